// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"encoding/csv"
	"io"
	"strconv"
)

type CsvOptions int

const (
	CSV_PLAIN    CsvOptions = 0 // unmeasured cells are empty
	CSV_SENTINEL CsvOptions = 1 // unmeasured cells hold the sentinel
	CSV_SUMMARY  CsvOptions = 2 // append min, max and geomean rows
)

// WriteCSV writes one table per family: a header row naming the
// family, unit and series, then one row per batch size. Tables are
// separated by an empty line.
func (r *Report) WriteCSV(out io.Writer, options CsvOptions) error {
	csvw := csv.NewWriter(out)
	for i, f := range r.Families {
		if i > 0 {
			csvw.Write(nil)
		}
		csvw.WriteAll(f.csvTable(options))
	}
	csvw.Flush()
	return csvw.Error()
}

func (f *FamilyReport) csvTable(options CsvOptions) [][]string {
	hdr := []string{f.Name + " batch"}
	if f.Unit != "" {
		hdr[0] += " (" + f.Unit + ")"
	}
	for _, s := range f.Series {
		hdr = append(hdr, s.Name)
	}
	tab := [][]string{hdr}

	for i, batch := range f.Axis {
		row := []string{strconv.Itoa(batch)}
		for _, s := range f.Series {
			switch {
			case s.Measured[i]:
				row = append(row, strof(s.Values[i]))
			case options&CSV_SENTINEL != 0:
				row = append(row, strof(f.Unmeasured))
			default:
				row = append(row, "")
			}
		}
		tab = append(tab, row)
	}

	if options&CSV_SUMMARY != 0 {
		rows := []struct {
			name string
			get  func(Summary) float64
		}{
			{"min", func(s Summary) float64 { return s.Min }},
			{"max", func(s Summary) float64 { return s.Max }},
			{"geomean", func(s Summary) float64 { return s.GeoMean }},
		}
		for _, r := range rows {
			row := []string{r.name}
			for _, s := range f.Series {
				if s.Summary.Measured == 0 {
					row = append(row, "")
				} else {
					row = append(row, strof(r.get(s.Summary)))
				}
			}
			tab = append(tab, row)
		}
	}
	return tab
}

func strof(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
