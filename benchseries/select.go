// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"fmt"
	"sort"
	"strings"

	"github.com/laika-ae/kbench/family"
)

// A Reason classifies a crossover search.
type Reason int

const (
	// NoData means the axis is too short to compare, or a series has
	// no measurements.
	NoData Reason = iota
	// FirstFlip means the preferred series changes along the axis.
	FirstFlip
	// AlwaysA means A is preferred at every batch size.
	AlwaysA
	// AlwaysB means A is preferred at no batch size.
	AlwaysB
)

var reasonNames = [...]string{
	NoData:    "NO_DATA",
	FirstFlip: "FIRST_FLIP",
	AlwaysA:   "ALWAYS_A",
	AlwaysB:   "ALWAYS_B",
}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return fmt.Sprintf("Reason(%d)", int(r))
	}
	return reasonNames[r]
}

func (r Reason) MarshalText() ([]byte, error) {
	if r < 0 || int(r) >= len(reasonNames) {
		return nil, fmt.Errorf("invalid crossover reason %d", int(r))
	}
	return []byte(reasonNames[r]), nil
}

func (r *Reason) UnmarshalText(text []byte) error {
	for i, name := range reasonNames {
		if name == string(text) {
			*r = Reason(i)
			return nil
		}
	}
	return fmt.Errorf("unknown crossover reason %q", text)
}

// A Crossover is the result of comparing two series.
type Crossover struct {
	// Batch is the crossover batch size, or 0 if there is none
	// (AlwaysB, NoData).
	Batch  int
	Reason Reason
	// Index is the axis index of Batch, or -1.
	Index int
}

// Defined reports whether c has a crossover batch.
func (c Crossover) Defined() bool {
	return c.Batch > 0
}

func (c Crossover) String() string {
	if !c.Defined() {
		return c.Reason.String()
	}
	return fmt.Sprintf("%s@%d", c.Reason, c.Batch)
}

// FindCrossover compares a and b over axis in one pass. A is
// preferred at i if a[i] <= b[i]+tolerance. The first i where that
// predicate differs from its value at i-1 is the crossover, at
// axis[i]. Without a flip, the result is AlwaysA at the last batch or
// AlwaysB with no batch. An axis shorter than two yields NoData.
func FindCrossover(a, b []float64, axis []int, tolerance float64) (Crossover, error) {
	if len(a) != len(axis) || len(b) != len(axis) {
		return Crossover{}, fmt.Errorf("series lengths %d and %d do not match axis length %d", len(a), len(b), len(axis))
	}
	if len(axis) < 2 {
		return Crossover{Reason: NoData, Index: -1}, nil
	}
	prefA := a[0] <= b[0]+tolerance
	for i := 1; i < len(axis); i++ {
		if (a[i] <= b[i]+tolerance) != prefA {
			return Crossover{Batch: axis[i], Reason: FirstFlip, Index: i}, nil
		}
	}
	if prefA {
		last := len(axis) - 1
		return Crossover{Batch: axis[last], Reason: AlwaysA, Index: last}, nil
	}
	return Crossover{Reason: AlwaysB, Index: -1}, nil
}

// SelectOptimal returns the element-wise minimum of a and b and the
// crossover of a against b. The optimal series does not depend on
// argument order. a and b must share a family and an axis.
func SelectOptimal(a, b *Series, tolerance float64) (*Series, Crossover, error) {
	if a.Key.Family != b.Key.Family {
		return nil, Crossover{}, fmt.Errorf("cannot compare %s with %s: different families", a.Key, b.Key)
	}
	if len(a.Points) != len(b.Points) {
		return nil, Crossover{}, fmt.Errorf("cannot compare %s with %s: %d and %d points", a.Key, b.Key, len(a.Points), len(b.Points))
	}
	names := []string{a.Key.Variant, b.Key.Variant}
	sort.Strings(names)
	opt := &Series{
		Key:    family.SeriesKey{Family: a.Key.Family, Variant: "best(" + strings.Join(names, ",") + ")"},
		Unit:   a.Unit,
		Points: make([]Point, len(a.Points)),
	}
	for i, pa := range a.Points {
		pb := b.Points[i]
		if pa.Batch != pb.Batch {
			return nil, Crossover{}, fmt.Errorf("cannot compare %s with %s: batch %d vs %d at index %d", a.Key, b.Key, pa.Batch, pb.Batch, i)
		}
		switch {
		case pa.Value < pb.Value:
			opt.Points[i] = pa
		case pb.Value < pa.Value:
			opt.Points[i] = pb
		default:
			opt.Points[i] = Point{Batch: pa.Batch, Value: pa.Value, Measured: pa.Measured || pb.Measured}
		}
	}
	c, err := FindCrossover(a.Values(), b.Values(), a.Axis(), tolerance)
	if err != nil {
		return nil, Crossover{}, err
	}
	return opt, c, nil
}

// OptimalOf returns the element-wise minimum of two or more series,
// named key.
func OptimalOf(key family.SeriesKey, series ...*Series) (*Series, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("%s: need at least two series, have %d", key, len(series))
	}
	opt := series[0]
	for _, s := range series[1:] {
		var err error
		if opt, _, err = SelectOptimal(opt, s, 0); err != nil {
			return nil, err
		}
	}
	opt.Key = key
	return opt, nil
}
