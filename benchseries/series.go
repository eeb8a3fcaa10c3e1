// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchseries turns normalized kernel log measurements into
// per-variant series over a family's canonical batch axis, and
// compares those series to find the optimal strategy and the batch
// size at which it changes.
package benchseries

import (
	"sort"

	"github.com/laika-ae/kbench/family"
)

// A Point is one position on a series' batch axis.
type Point struct {
	Batch int     `json:"batch"`
	Value float64 `json:"value"`
	// Measured is false if no record was seen for Batch. Value is
	// then the family's sentinel and must not be plotted.
	Measured bool `json:"measured"`
}

// A Series is one variant's values, one Point per canonical batch
// size, in strictly increasing batch order.
type Series struct {
	Key    family.SeriesKey
	Unit   string
	Points []Point
}

// project lays values over axis, filling gaps with sentinel.
func project(key family.SeriesKey, unit string, values map[int]float64, axis []int, sentinel float64) *Series {
	s := &Series{Key: key, Unit: unit, Points: make([]Point, len(axis))}
	for i, batch := range axis {
		v, ok := values[batch]
		if !ok {
			v = sentinel
		}
		s.Points[i] = Point{Batch: batch, Value: v, Measured: ok}
	}
	return s
}

// Values returns the value at every point, sentinels included.
func (s *Series) Values() []float64 {
	vs := make([]float64, len(s.Points))
	for i, p := range s.Points {
		vs[i] = p.Value
	}
	return vs
}

// Axis returns the batch size of every point.
func (s *Series) Axis() []int {
	axis := make([]int, len(s.Points))
	for i, p := range s.Points {
		axis[i] = p.Batch
	}
	return axis
}

// NumMeasured returns the number of measured points.
func (s *Series) NumMeasured() int {
	n := 0
	for _, p := range s.Points {
		if p.Measured {
			n++
		}
	}
	return n
}

// At returns the point for batch.
func (s *Series) At(batch int) (Point, bool) {
	i := sort.Search(len(s.Points), func(i int) bool { return s.Points[i].Batch >= batch })
	if i < len(s.Points) && s.Points[i].Batch == batch {
		return s.Points[i], true
	}
	return Point{}, false
}

// A Dataset maps series keys to series. It is read-only once built.
type Dataset struct {
	families map[string]*family.Family
	series   map[family.SeriesKey]*Series
}

// Families returns the families that have series in d, sorted by name.
func (d *Dataset) Families() []*family.Family {
	fams := make([]*family.Family, 0, len(d.families))
	for _, f := range d.families {
		fams = append(fams, f)
	}
	sort.Slice(fams, func(i, j int) bool { return fams[i].Name < fams[j].Name })
	return fams
}

// Family returns the description of the named family, or nil.
func (d *Dataset) Family(name string) *family.Family {
	return d.families[name]
}

// Series returns the series for key, or nil.
func (d *Dataset) Series(key family.SeriesKey) *Series {
	return d.series[key]
}

// Keys returns every series key in d in sorted order.
func (d *Dataset) Keys() []family.SeriesKey {
	keys := make([]family.SeriesKey, 0, len(d.series))
	for k := range d.series {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Len returns the number of series in d.
func (d *Dataset) Len() int {
	return len(d.series)
}
