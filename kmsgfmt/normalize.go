// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kmsgfmt

import (
	"fmt"
	"io"

	"github.com/laika-ae/kbench/family"
	"github.com/laika-ae/kbench/internal/atomicfile"
)

// A PostProcessError reports that normalizing a captured log failed.
// The raw log is still intact at Path.
type PostProcessError struct {
	Path string
	Err  error
}

func (e *PostProcessError) Error() string {
	return fmt.Sprintf("normalizing %s: %v (raw log left in place)", e.Path, e.Err)
}

func (e *PostProcessError) Unwrap() error {
	return e.Err
}

// Options configures normalization.
type Options struct {
	// WarmupBatch is the batch size whose first sample per prefix is
	// dropped. Zero means DefaultWarmupBatch; negative disables.
	WarmupBatch int

	// Warn, if non-nil, is called for every malformed line.
	Warn func(format string, args ...interface{})
}

func (o *Options) warmup() *Warmup {
	batch := DefaultWarmupBatch
	if o != nil && o.WarmupBatch != 0 {
		batch = o.WarmupBatch
	}
	return NewWarmup(batch)
}

func (o *Options) warn(err *SyntaxError) {
	if o != nil && o.Warn != nil {
		o.Warn("%v\n", err)
	}
}

// Normalize reads a raw kernel log from r and writes the payload of
// every measurement to w, in input order. The same input always
// produces the same output.
func Normalize(r io.Reader, w io.Writer, fileName string, vocab *family.Vocabulary, opts *Options) (Stats, error) {
	reader := NewReader(r, fileName, vocab, opts.warmup())
	writer := NewWriter(w)
	for reader.Scan() {
		rec := reader.Result()
		if err, ok := rec.(*SyntaxError); ok {
			opts.warn(err)
			continue
		}
		if err := writer.Write(rec); err != nil {
			return reader.Stats(), err
		}
	}
	return reader.Stats(), reader.Err()
}

// NormalizeFile normalizes the log at path in place. On failure the
// error is a *PostProcessError and path still holds the raw log.
func NormalizeFile(path string, vocab *family.Vocabulary, opts *Options) (Stats, error) {
	var stats Stats
	err := atomicfile.Rewrite(path, func(r io.Reader, w io.Writer) error {
		var err error
		stats, err = Normalize(r, w, path, vocab, opts)
		return err
	})
	if err != nil {
		return stats, &PostProcessError{Path: path, Err: err}
	}
	return stats, nil
}

// ReadAll returns every Result in r. Malformed lines are passed to
// opts.Warn and skipped.
func ReadAll(r io.Reader, fileName string, vocab *family.Vocabulary, opts *Options) ([]*Result, Stats, error) {
	reader := NewReader(r, fileName, vocab, opts.warmup())
	var out []*Result
	for reader.Scan() {
		switch rec := reader.Result().(type) {
		case *SyntaxError:
			opts.warn(rec)
		case *Result:
			out = append(out, rec.Clone())
		}
	}
	return out, reader.Stats(), reader.Err()
}
