// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"math"

	"github.com/aclements/go-moremath/stats"
)

// A Summary describes the measured points of a series.
type Summary struct {
	Measured int     `json:"measured"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	GeoMean  float64 `json:"geomean"`
}

// Summarize summarizes the measured points of s. Sentinel values are
// ignored. The geometric mean only covers positive values.
func Summarize(s *Series) Summary {
	var xs, pos []float64
	for _, p := range s.Points {
		if !p.Measured {
			continue
		}
		xs = append(xs, p.Value)
		if p.Value > 0 {
			pos = append(pos, p.Value)
		}
	}
	sum := Summary{Measured: len(xs)}
	if len(xs) == 0 {
		return sum
	}
	sum.Min, sum.Max = stats.Bounds(xs)
	if len(pos) > 0 {
		sum.GeoMean = stats.GeoMean(pos)
	}
	return sum
}

// Speedup returns the geometric mean of b[i]/a[i] over the batch sizes
// measured, and positive, in both series: how many times faster a is
// than b when values are latencies. It reports false if there is no
// such batch size.
func Speedup(a, b *Series) (float64, bool) {
	var ratios []float64
	for _, pa := range a.Points {
		pb, ok := b.At(pa.Batch)
		if !ok || !pa.Measured || !pb.Measured || pa.Value <= 0 || pb.Value <= 0 {
			continue
		}
		ratios = append(ratios, pb.Value/pa.Value)
	}
	if len(ratios) == 0 {
		return 0, false
	}
	g := stats.GeoMean(ratios)
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return 0, false
	}
	return g, true
}
