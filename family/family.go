// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package family describes benchmark families: the variants a family
// measures, the kernel log prefixes each variant prints, and the
// canonical batch-size axis its series are projected onto.
//
// A family is data, not code. Supporting a new benchmark suite means
// describing its prefixes (in Go or in a YAML file, see Load), not
// changing the normalizer or the extractor.
package family

import (
	"fmt"
	"strings"
)

// DefaultUnmeasured is the sentinel used for batch sizes that have no
// measurement when a Family does not set its own. It is larger than
// any latency the harness has ever recorded and is never a valid
// measurement, so renderers must treat it as "do not plot".
const DefaultUnmeasured = 999999

// batchMarker must appear in every prefix. The batch size is parsed
// from the digits that follow it.
const batchMarker = "_batch_"

// A Variant is one execution strategy within a family, such as the
// CPU baseline or the integrated-GPU persistent kernel.
type Variant struct {
	Name   string `yaml:"name" json:"name"`                       // e.g. "APU_PK"
	Prefix string `yaml:"prefix" json:"prefix"`                   // e.g. "KML_APU_PK_batch_"
	Label  string `yaml:"label,omitempty" json:"label,omitempty"` // human readable, optional
}

// A Strategy is a named best-of composite of two or more variants.
// Its series is the element-wise minimum of its members.
type Strategy struct {
	Name string   `yaml:"name" json:"name"`
	Of   []string `yaml:"of" json:"of"`
}

// A Pair names two series (variants or strategies) whose crossover
// batch is reported. A is the series whose advantage region is drawn.
type Pair struct {
	A string `yaml:"a" json:"a"`
	B string `yaml:"b" json:"b"`
}

func (p Pair) String() string {
	return p.A + " vs " + p.B
}

// A Family is a benchmark suite whose variants share a batch axis.
type Family struct {
	Name string `yaml:"name"`
	// Unit is the unit of every value in the family, e.g. "us" or "MB/s".
	Unit string `yaml:"unit"`
	// Axis is the canonical batch-size axis, strictly increasing.
	Axis []int `yaml:"axis"`
	// Unmeasured is the sentinel for missing points. Zero selects
	// DefaultUnmeasured, because zero is a legitimate measurement.
	Unmeasured float64 `yaml:"unmeasured,omitempty"`
	// Tolerance absorbs measurement noise near a tie when computing
	// crossovers.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	Variants   []Variant  `yaml:"variants"`
	Strategies []Strategy `yaml:"strategies,omitempty"`
	Crossovers []Pair     `yaml:"crossovers,omitempty"`
}

// Sentinel returns the value used for unmeasured points.
func (f *Family) Sentinel() float64 {
	if f.Unmeasured == 0 {
		return DefaultUnmeasured
	}
	return f.Unmeasured
}

// Variant returns the variant called name.
func (f *Family) Variant(name string) (Variant, bool) {
	for _, v := range f.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// Strategy returns the strategy called name.
func (f *Family) Strategy(name string) (Strategy, bool) {
	for _, s := range f.Strategies {
		if s.Name == name {
			return s, true
		}
	}
	return Strategy{}, false
}

// Validate checks f for internal consistency.
func (f *Family) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("family has no name")
	}
	errorf := func(format string, args ...interface{}) error {
		return fmt.Errorf("family %s: %s", f.Name, fmt.Sprintf(format, args...))
	}
	if len(f.Axis) == 0 {
		return errorf("empty batch axis")
	}
	for i, b := range f.Axis {
		if b <= 0 {
			return errorf("batch size %d is not positive", b)
		}
		if i > 0 && b <= f.Axis[i-1] {
			return errorf("batch axis is not strictly increasing at %d", b)
		}
	}
	if f.Unmeasured < 0 {
		return errorf("negative unmeasured sentinel %v", f.Unmeasured)
	}
	if f.Tolerance < 0 {
		return errorf("negative tolerance %v", f.Tolerance)
	}
	if len(f.Variants) == 0 {
		return errorf("no variants")
	}

	names := make(map[string]bool)
	prefixes := make(map[string]bool)
	for _, v := range f.Variants {
		if v.Name == "" {
			return errorf("variant with prefix %q has no name", v.Prefix)
		}
		if names[v.Name] {
			return errorf("duplicate variant %s", v.Name)
		}
		names[v.Name] = true
		if !strings.Contains(v.Prefix, batchMarker) {
			return errorf("prefix %q of variant %s does not contain %q", v.Prefix, v.Name, batchMarker)
		}
		if prefixes[v.Prefix] {
			return errorf("duplicate prefix %q", v.Prefix)
		}
		prefixes[v.Prefix] = true
	}

	for _, s := range f.Strategies {
		if s.Name == "" {
			return errorf("strategy has no name")
		}
		if names[s.Name] {
			return errorf("strategy %s shadows a variant or strategy", s.Name)
		}
		if len(s.Of) < 2 {
			return errorf("strategy %s needs at least two variants", s.Name)
		}
		for _, m := range s.Of {
			if _, ok := f.Variant(m); !ok {
				return errorf("strategy %s refers to unknown variant %s", s.Name, m)
			}
		}
		names[s.Name] = true
	}

	for _, p := range f.Crossovers {
		if !names[p.A] || !names[p.B] {
			return errorf("crossover %s refers to an unknown series", p)
		}
		if p.A == p.B {
			return errorf("crossover %s compares a series with itself", p)
		}
	}
	return nil
}
