// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package atomicfile rewrites files so that readers observe either
// the old content or the new content, never a partial write.
package atomicfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const bufSize = 64 << 10

// Rewrite replaces the content of path with what transform writes
// when given the current content. The new content is written to a
// temporary file in the same directory, synced, and renamed over
// path. If transform or any step fails, path is left untouched and
// the temporary file is removed.
//
// The replacement keeps the permission bits of the original file.
func Rewrite(path string, transform func(r io.Reader, w io.Writer) error) (err error) {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file", path)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriterSize(tmp, bufSize)
	if err = transform(bufio.NewReaderSize(in, bufSize), bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Chmod(fi.Mode().Perm()); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = replace(tmpPath, path); err != nil {
		return err
	}
	// Best effort: make the rename durable.
	syncDir(dir)
	return nil
}
