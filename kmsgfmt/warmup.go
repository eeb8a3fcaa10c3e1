// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kmsgfmt

// DefaultWarmupBatch is the batch size whose first sample is a warmup
// run. The benchmark modules run batch 16 once before their sweep, so
// the first batch-16 line of every prefix is a cold start.
const DefaultWarmupBatch = 16

// A Warmup records, per prefix, whether the warmup sample has been
// dropped. It belongs to a single pipeline run; share one between
// Readers only when they read consecutive parts of the same log.
type Warmup struct {
	batch   int
	dropped map[string]bool
}

// NewWarmup returns an accumulator that drops the first sample of
// batch for each prefix. A batch <= 0 disables warmup elision.
func NewWarmup(batch int) *Warmup {
	return &Warmup{batch: batch, dropped: make(map[string]bool)}
}

// Batch returns the warmup batch size.
func (w *Warmup) Batch() int {
	return w.batch
}

// Drop reports whether the sample for batch under prefix is a warmup
// sample, and records it as dropped if so.
func (w *Warmup) Drop(prefix string, batch int) bool {
	if w.batch <= 0 || batch != w.batch || w.dropped[prefix] {
		return false
	}
	w.dropped[prefix] = true
	return true
}
