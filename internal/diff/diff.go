// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diff reports differences between expected and actual
// normalized logs in tests.
package diff

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Diff returns a human-readable description of the differences
// between want and got. It uses "diff -u" when available and falls
// back to reporting the first differing line. The result is empty
// only if want == got.
func Diff(want, got string) string {
	if want == got {
		return ""
	}
	if _, err := exec.LookPath("diff"); err == nil {
		if out, ok := unified(want, got); ok {
			return out
		}
	}
	return firstLine(want, got)
}

func unified(want, got string) (string, bool) {
	dir, err := os.MkdirTemp("", "kbench-diff")
	if err != nil {
		return "", false
	}
	defer os.RemoveAll(dir)

	wantPath, gotPath := dir+"/want", dir+"/got"
	if os.WriteFile(wantPath, []byte(want), 0o600) != nil || os.WriteFile(gotPath, []byte(got), 0o600) != nil {
		return "", false
	}
	// diff exits 1 when the inputs differ; any output is the answer.
	data, _ := exec.Command("diff", "-u", wantPath, gotPath).CombinedOutput()
	return string(data), len(data) > 0
}

func firstLine(want, got string) string {
	wl := strings.Split(want, "\n")
	gl := strings.Split(got, "\n")
	for i := 0; i < len(wl) || i < len(gl); i++ {
		var w, g string
		if i < len(wl) {
			w = wl[i]
		}
		if i < len(gl) {
			g = gl[i]
		}
		if w != g || i >= len(wl) || i >= len(gl) {
			return fmt.Sprintf("line %d:\nwant: %q\ngot:  %q", i+1, w, g)
		}
	}
	return fmt.Sprintf("want: %q\ngot:  %q", want, got)
}
