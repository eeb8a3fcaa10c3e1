// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package family

import "fmt"

// Variant names shared by the built-in families.
const (
	CPU   = "CPU"    // CPU baseline
	DGPU  = "dGPU"   // discrete GPU
	APUPL = "APU_PL" // integrated GPU, per-launch kernel
	APUPK = "APU_PK" // integrated GPU, persistent kernel
	IGPU  = "iGPU"   // best of the two integrated-GPU strategies
)

// pow2 returns the powers of two from lo to hi inclusive.
func pow2(lo, hi int) []int {
	var axis []int
	for b := lo; b <= hi; b *= 2 {
		axis = append(axis, b)
	}
	return axis
}

// standard returns a family whose prefixes are "<tag>_<variant>_batch_"
// for the four usual variants, with the integrated-GPU composite
// compared against the discrete GPU.
func standard(name, tag string, axis []int, tolerance float64) *Family {
	variant := func(v, label string) Variant {
		return Variant{Name: v, Prefix: fmt.Sprintf("%s_%s_batch_", tag, v), Label: label}
	}
	return &Family{
		Name:      name,
		Unit:      "us",
		Axis:      axis,
		Tolerance: tolerance,
		Variants: []Variant{
			variant(CPU, "CPU"),
			variant(DGPU, "dGPU"),
			variant(APUPL, "iGPU per-launch kernel"),
			variant(APUPK, "iGPU persistent kernel"),
		},
		Strategies: []Strategy{{Name: IGPU, Of: []string{APUPL, APUPK}}},
		Crossovers: []Pair{{A: IGPU, B: DGPU}},
	}
}

// Builtin returns the families printed by the evaluation kernel
// modules: KML, MLLB, and the three LinnOS layer configurations.
// Each call returns fresh values that the caller may modify.
func Builtin() []*Family {
	fams := []*Family{
		standard("KML", "KML", pow2(1, 4096), 0),
		standard("MLLB", "MLLB", pow2(8, 65536), 0),
	}
	for layer := 0; layer < 3; layer++ {
		tag := fmt.Sprintf("linnos+%d", layer)
		fams = append(fams, standard(tag, tag, pow2(1, 1024), 2))
	}
	return fams
}
