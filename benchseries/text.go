// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/cheynewallace/tabby"
)

// WriteText writes r as aligned text tables, one per family, followed
// by that family's crossovers. Unmeasured points are shown as "-".
func (r *Report) WriteText(w io.Writer) error {
	for i, f := range r.Families {
		if i > 0 {
			fmt.Fprintln(w)
		}
		unit := ""
		if f.Unit != "" {
			unit = " (" + f.Unit + ")"
		}
		fmt.Fprintf(w, "%s%s\n", f.Name, unit)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		t := tabby.NewCustom(tw)
		hdr := []interface{}{"batch"}
		for _, s := range f.Series {
			hdr = append(hdr, s.Name)
		}
		t.AddHeader(hdr...)
		for j, batch := range f.Axis {
			line := []interface{}{batch}
			for _, s := range f.Series {
				if s.Measured[j] {
					line = append(line, strconv.FormatFloat(s.Values[j], 'g', -1, 64))
				} else {
					line = append(line, "-")
				}
			}
			t.AddLine(line...)
		}
		t.Print()

		for _, c := range f.Crossovers {
			fmt.Fprintf(w, "%s vs %s: %s", c.A, c.B, c.Reason)
			if c.Batch > 0 {
				fmt.Fprintf(w, " at batch %d", c.Batch)
			}
			if c.Speedup > 0 {
				fmt.Fprintf(w, ", %s/%s geomean %.2fx", c.B, c.A, c.Speedup)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}
