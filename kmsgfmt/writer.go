// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kmsgfmt

import (
	"fmt"
	"io"
)

// A Writer writes normalized kernel log lines: one payload per line,
// without timestamps.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes rec. Syntax errors are not part of the normalized log
// and are ignored.
func (w *Writer) Write(rec Record) error {
	switch rec := rec.(type) {
	case *Result:
		_, err := io.WriteString(w.w, rec.Payload+"\n")
		return err
	case *SyntaxError:
		return nil
	default:
		return fmt.Errorf("unknown Record type %T", rec)
	}
}
