// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.log")
	if err := os.WriteFile(path, []byte("a\nb\n"), 0o640); err != nil {
		t.Fatal(err)
	}

	err := Rewrite(path, func(r io.Reader, w io.Writer) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, strings.ToUpper(string(data)))
		return err
	})
	if err != nil {
		t.Fatalf("Rewrite got err %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "A\nB\n" {
		t.Errorf("content got %q want %q", got, "A\nB\n")
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o640 {
		t.Errorf("mode got %v want 0640", fi.Mode().Perm())
	}
	assertNoTemps(t, dir)
}

func TestRewriteFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.log")
	const orig = "[1.0] KML_CPU_batch_1, 5\n"
	if err := os.WriteFile(path, []byte(orig), 0o644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := Rewrite(path, func(r io.Reader, w io.Writer) error {
		io.WriteString(w, "partial output")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Rewrite got err %v want %v", err, boom)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != orig {
		t.Errorf("original content got %q want %q", got, orig)
	}
	assertNoTemps(t, dir)
}

func TestRewriteMissing(t *testing.T) {
	err := Rewrite(filepath.Join(t.TempDir(), "nope"), func(io.Reader, io.Writer) error { return nil })
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Rewrite of missing file got %v want ErrNotExist", err)
	}
}

func assertNoTemps(t *testing.T, dir string) {
	t.Helper()
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range ents {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temporary file %s left behind", e.Name())
		}
	}
}
