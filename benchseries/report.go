// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/laika-ae/kbench/family"
)

// A Report is the finished result of a pipeline run, in the form
// handed to a renderer. Values that were not measured hold the
// family's sentinel and are false in the matching Measured mask.
type Report struct {
	Families []*FamilyReport `json:"families"`
}

// A FamilyReport holds the series and crossovers of one family.
type FamilyReport struct {
	Name       string             `json:"name"`
	Unit       string             `json:"unit,omitempty"`
	Axis       []int              `json:"axis"`
	Unmeasured float64            `json:"unmeasured"`
	Series     []*SeriesReport    `json:"series"`
	Crossovers []*CrossoverReport `json:"crossovers,omitempty"`
}

// A SeriesReport is one variant or strategy series.
type SeriesReport struct {
	Name     string    `json:"name"`
	Label    string    `json:"label,omitempty"`
	Strategy bool      `json:"strategy,omitempty"`
	Values   []float64 `json:"values"`
	Measured []bool    `json:"measured"`
	Summary  Summary   `json:"summary"`
}

// A CrossoverReport is the crossover of series A against series B.
type CrossoverReport struct {
	A       string  `json:"a"`
	B       string  `json:"b"`
	Batch   int     `json:"batch,omitempty"`
	Reason  Reason  `json:"reason"`
	Speedup float64 `json:"speedup,omitempty"` // geomean B/A over jointly measured points
}

// SeriesNamed returns the series called name, or nil.
func (f *FamilyReport) SeriesNamed(name string) *SeriesReport {
	for _, s := range f.Series {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Family returns the report for the named family, or nil.
func (r *Report) Family(name string) *FamilyReport {
	for _, f := range r.Families {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func newSeriesReport(s *Series, label string, strategy bool) *SeriesReport {
	sr := &SeriesReport{
		Name:     s.Key.Variant,
		Label:    label,
		Strategy: strategy,
		Values:   s.Values(),
		Measured: make([]bool, len(s.Points)),
		Summary:  Summarize(s),
	}
	for i, p := range s.Points {
		sr.Measured[i] = p.Measured
	}
	return sr
}

// BuildReport computes the strategy series and crossovers of every
// family in ds. A crossover whose series has no measured point at all
// is reported as NoData rather than compared against sentinels.
func BuildReport(ds *Dataset) (*Report, error) {
	r := &Report{Families: []*FamilyReport{}}
	for _, f := range ds.Families() {
		fr := &FamilyReport{
			Name:       f.Name,
			Unit:       f.Unit,
			Axis:       append([]int(nil), f.Axis...),
			Unmeasured: f.Sentinel(),
			Series:     []*SeriesReport{},
		}
		// Variants in family order, then any series the family does
		// not declare.
		byName := make(map[string]*Series)
		for _, v := range f.Variants {
			if s := ds.Series(family.SeriesKey{Family: f.Name, Variant: v.Name}); s != nil {
				byName[v.Name] = s
				fr.Series = append(fr.Series, newSeriesReport(s, v.Label, false))
			}
		}
		for _, key := range ds.Keys() {
			if key.Family != f.Name || byName[key.Variant] != nil {
				continue
			}
			s := ds.Series(key)
			byName[key.Variant] = s
			fr.Series = append(fr.Series, newSeriesReport(s, "", false))
		}

		for _, st := range f.Strategies {
			members := make([]*Series, 0, len(st.Of))
			for _, m := range st.Of {
				if s := byName[m]; s != nil {
					members = append(members, s)
				}
			}
			if len(members) < 2 {
				continue
			}
			opt, err := OptimalOf(family.SeriesKey{Family: f.Name, Variant: st.Name}, members...)
			if err != nil {
				return nil, fmt.Errorf("strategy %s: %w", st.Name, err)
			}
			byName[st.Name] = opt
			fr.Series = append(fr.Series, newSeriesReport(opt, "", true))
		}

		for _, pair := range f.Crossovers {
			a, b := byName[pair.A], byName[pair.B]
			cr := &CrossoverReport{A: pair.A, B: pair.B, Reason: NoData}
			fr.Crossovers = append(fr.Crossovers, cr)
			if a == nil || b == nil || a.NumMeasured() == 0 || b.NumMeasured() == 0 {
				continue
			}
			c, err := FindCrossover(a.Values(), b.Values(), f.Axis, f.Tolerance)
			if err != nil {
				return nil, fmt.Errorf("crossover %s: %w", pair, err)
			}
			cr.Batch, cr.Reason = c.Batch, c.Reason
			cr.Speedup, _ = Speedup(a, b)
		}
		r.Families = append(r.Families, fr)
	}
	return r, nil
}

// WriteJSON writes r as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	return enc.Encode(r)
}

// ReadJSON reads a Report written by WriteJSON.
func ReadJSON(rd io.Reader) (*Report, error) {
	var r Report
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &r, nil
}
