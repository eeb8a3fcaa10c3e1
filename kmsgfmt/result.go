// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kmsgfmt

import "github.com/laika-ae/kbench/family"

// A Result is one normalized measurement.
type Result struct {
	// Key identifies the family, variant, and batch size.
	Key family.PointKey

	// Prefix is the recognized prefix the payload started with.
	Prefix string

	// Value is the measurement: time in microseconds or throughput
	// in MB/s, depending on the family. It is never negative.
	Value float64

	// Extra holds any further values printed on the same line.
	Extra []float64

	// Payload is the line with its timestamp removed. This is what
	// a Writer emits.
	Payload string

	fileName string
	line     int
}

// Pos returns the file name and line number of r.
func (r *Result) Pos() (fileName string, line int) {
	return r.fileName, r.line
}

// Clone makes a copy of r that does not share storage with r.
func (r *Result) Clone() *Result {
	r2 := *r
	if r.Extra != nil {
		r2.Extra = append([]float64(nil), r.Extra...)
	}
	return &r2
}
