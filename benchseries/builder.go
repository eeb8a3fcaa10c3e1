// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"fmt"
	"os"

	"github.com/laika-ae/kbench/family"
	"github.com/laika-ae/kbench/kmsgfmt"
)

// A DuplicateError reports two measurements for the same series and
// batch size. Neither value is kept: a duplicate means the capture
// interleaved two runs or replayed a module, and the data is suspect.
type DuplicateError struct {
	Key           family.PointKey
	First, Second *kmsgfmt.Result
}

func (e *DuplicateError) Error() string {
	f1, l1 := e.First.Pos()
	f2, l2 := e.Second.Pos()
	return fmt.Sprintf("%s:%d: duplicate measurement for %s: %v (first at %s:%d), then %v",
		f2, l2, e.Key, e.First.Value, f1, l1, e.Second.Value)
}

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	// Warn is called for records the Builder skips, such as batch sizes
	// that are not on the family's axis, and for malformed lines read
	// through AddReader.
	Warn func(format string, args ...interface{})
}

// DefaultBuilderOptions returns options that print warnings to
// standard error.
func DefaultBuilderOptions() *BuilderOptions {
	return &BuilderOptions{
		Warn: func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format, args...)
		},
	}
}

// A Builder collects measurements and projects them into a Dataset.
type Builder struct {
	families map[string]*family.Family
	cells    map[family.SeriesKey]map[int]*kmsgfmt.Result
	offAxis  map[family.PointKey]*kmsgfmt.Result
	order    []family.SeriesKey // first-seen order of keys not in a family's variant list

	warn func(format string, args ...interface{})
}

// NewBuilder returns a Builder for measurements of fams. Records of
// other families are rejected by Add.
func NewBuilder(fams []*family.Family, opts *BuilderOptions) *Builder {
	b := &Builder{
		families: make(map[string]*family.Family),
		cells:    make(map[family.SeriesKey]map[int]*kmsgfmt.Result),
		offAxis:  make(map[family.PointKey]*kmsgfmt.Result),
		warn:     func(string, ...interface{}) {},
	}
	for _, f := range fams {
		b.families[f.Name] = f
	}
	if opts != nil && opts.Warn != nil {
		b.warn = opts.Warn
	}
	return b
}

// Add adds res to the Builder. It returns a *DuplicateError if a
// measurement for the same key and batch size was already added, even
// if that batch size is not on the family's axis.
func (b *Builder) Add(res *kmsgfmt.Result) error {
	key := res.Key
	f := b.families[key.Family]
	if f == nil {
		file, line := res.Pos()
		return fmt.Errorf("%s:%d: unknown family %q", file, line, key.Family)
	}
	if !onAxis(f.Axis, key.Batch) {
		if prev, ok := b.offAxis[key]; ok {
			return &DuplicateError{Key: key, First: prev, Second: res.Clone()}
		}
		b.offAxis[key] = res.Clone()
		file, line := res.Pos()
		b.warn("%s:%d: %s: batch size %d is not on the %s axis, skipping\n", file, line, key.SeriesKey, key.Batch, f.Name)
		return nil
	}

	cell := b.cells[key.SeriesKey]
	if cell == nil {
		cell = make(map[int]*kmsgfmt.Result)
		b.cells[key.SeriesKey] = cell
		if _, ok := f.Variant(key.Variant); !ok {
			b.order = append(b.order, key.SeriesKey)
		}
	}
	if prev, ok := cell[key.Batch]; ok {
		return &DuplicateError{Key: key, First: prev, Second: res.Clone()}
	}
	cell[key.Batch] = res.Clone()
	return nil
}

// AddReader adds every record read from r. Syntax errors are passed
// to the warn hook. It stops at the first duplicate.
func (b *Builder) AddReader(r *kmsgfmt.Reader) error {
	for r.Scan() {
		switch rec := r.Result().(type) {
		case *kmsgfmt.SyntaxError:
			// Non-fatal; the line is dropped.
			b.warn("%v\n", rec)
		case *kmsgfmt.Result:
			if err := b.Add(rec); err != nil {
				return err
			}
		}
	}
	return r.Err()
}

// Dataset projects the collected measurements onto each family's axis.
// Every variant of a family that has at least one measurement gets a
// series, measured or not.
func (b *Builder) Dataset() *Dataset {
	d := &Dataset{
		families: make(map[string]*family.Family),
		series:   make(map[family.SeriesKey]*Series),
	}
	seen := make(map[string]bool)
	for k := range b.cells {
		seen[k.Family] = true
	}
	add := func(f *family.Family, key family.SeriesKey) {
		values := make(map[int]float64)
		for batch, res := range b.cells[key] {
			values[batch] = res.Value
		}
		d.series[key] = project(key, f.Unit, values, f.Axis, f.Sentinel())
	}
	for name, f := range b.families {
		if !seen[name] {
			continue
		}
		d.families[name] = f
		for _, v := range f.Variants {
			add(f, family.SeriesKey{Family: name, Variant: v.Name})
		}
	}
	for _, key := range b.order {
		add(b.families[key.Family], key)
	}
	return d
}

func onAxis(axis []int, batch int) bool {
	for _, a := range axis {
		if a == batch {
			return true
		}
	}
	return false
}

// Extract builds a Dataset from records, projecting every series onto
// axis. Missing points are filled with unmeasured, or with
// family.DefaultUnmeasured if unmeasured is 0, since 0 is a real
// measurement. Records whose batch size is not on axis are skipped.
func Extract(records []*kmsgfmt.Result, axis []int, unmeasured float64) (*Dataset, error) {
	for i, batch := range axis {
		if batch <= 0 || i > 0 && batch <= axis[i-1] {
			return nil, fmt.Errorf("batch axis %v is not strictly increasing and positive", axis)
		}
	}
	if unmeasured < 0 {
		return nil, fmt.Errorf("negative unmeasured sentinel %v", unmeasured)
	}
	var fams []*family.Family
	seen := make(map[string]bool)
	for _, rec := range records {
		if name := rec.Key.Family; !seen[name] {
			seen[name] = true
			fams = append(fams, &family.Family{Name: name, Axis: axis, Unmeasured: unmeasured})
		}
	}
	b := NewBuilder(fams, nil)
	for _, rec := range records {
		if err := b.Add(rec); err != nil {
			return nil, err
		}
	}
	return b.Dataset(), nil
}
