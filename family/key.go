// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package family

import "fmt"

// A SeriesKey identifies one series: a variant (or strategy) of a
// family. The zero SeriesKey is invalid; use NewSeriesKey.
type SeriesKey struct {
	Family, Variant string
}

// NewSeriesKey returns the key for variant of family.
func NewSeriesKey(family, variant string) (SeriesKey, error) {
	if family == "" || variant == "" {
		return SeriesKey{}, fmt.Errorf("invalid series key %q/%q", family, variant)
	}
	return SeriesKey{family, variant}, nil
}

func (k SeriesKey) String() string {
	return k.Family + "/" + k.Variant
}

// Less orders keys by family, then variant.
func (k SeriesKey) Less(o SeriesKey) bool {
	if k.Family != o.Family {
		return k.Family < o.Family
	}
	return k.Variant < o.Variant
}

// A PointKey identifies a single measurement: a series at one batch
// size.
type PointKey struct {
	SeriesKey
	Batch int
}

// NewPointKey returns the key for batch in series.
func NewPointKey(series SeriesKey, batch int) (PointKey, error) {
	if series.Family == "" || series.Variant == "" {
		return PointKey{}, fmt.Errorf("invalid series key %q/%q", series.Family, series.Variant)
	}
	if batch <= 0 {
		return PointKey{}, fmt.Errorf("%s: batch size %d is not positive", series, batch)
	}
	return PointKey{series, batch}, nil
}

func (k PointKey) String() string {
	return fmt.Sprintf("%s@%d", k.SeriesKey, k.Batch)
}
