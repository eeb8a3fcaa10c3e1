// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/laika-ae/kbench/family"
)

var axis4 = []int{1, 2, 4, 8}

func TestFindCrossover(t *testing.T) {
	type testCase struct {
		name      string
		a, b      []float64
		axis      []int
		tolerance float64
		want      Crossover
	}
	for _, test := range []testCase{
		{"flip to B", []float64{10, 10, 10, 50}, []float64{20, 20, 20, 20}, axis4, 0, Crossover{8, FirstFlip, 3}},
		{"flip to A", []float64{30, 30, 10, 10}, []float64{20, 20, 20, 20}, axis4, 0, Crossover{4, FirstFlip, 2}},
		{"always A", []float64{5, 5, 5, 5}, []float64{20, 20, 20, 20}, axis4, 0, Crossover{8, AlwaysA, 3}},
		{"always B", []float64{50, 50, 50, 50}, []float64{20, 20, 20, 20}, axis4, 0, Crossover{0, AlwaysB, -1}},
		{"ties prefer A", []float64{20, 20, 20, 20}, []float64{20, 20, 20, 20}, axis4, 0, Crossover{8, AlwaysA, 3}},
		{"tolerance absorbs noise", []float64{10, 21, 22, 50}, []float64{20, 20, 20, 20}, axis4, 2, Crossover{8, FirstFlip, 3}},
		{"no tolerance", []float64{10, 21, 22, 50}, []float64{20, 20, 20, 20}, axis4, 0, Crossover{2, FirstFlip, 1}},
		{"first flip only", []float64{1, 9, 1, 9}, []float64{5, 5, 5, 5}, axis4, 0, Crossover{2, FirstFlip, 1}},
		{"empty axis", nil, nil, nil, 0, Crossover{0, NoData, -1}},
		{"single point", []float64{1}, []float64{2}, []int{16}, 0, Crossover{0, NoData, -1}},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := FindCrossover(test.a, test.b, test.axis, test.tolerance)
			if err != nil {
				t.Fatalf("FindCrossover got err %v", err)
			}
			if got != test.want {
				t.Errorf("FindCrossover got %+v want %+v", got, test.want)
			}
			if got.Defined() != (got.Reason == FirstFlip || got.Reason == AlwaysA) {
				t.Errorf("Defined() got %v for reason %v", got.Defined(), got.Reason)
			}
		})
	}
}

func TestFindCrossoverLengthMismatch(t *testing.T) {
	if _, err := FindCrossover([]float64{1, 2}, []float64{1, 2, 3}, []int{1, 2}, 0); err == nil {
		t.Errorf("FindCrossover with mismatched lengths got nil error")
	}
}

// TestFindCrossoverTotal checks that every input maps to exactly one
// reason, and that the batch agrees with it.
func TestFindCrossoverTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for iter := 0; iter < 1000; iter++ {
		n := rng.Intn(6)
		axis := make([]int, n)
		a, b := make([]float64, n), make([]float64, n)
		for i := range axis {
			axis[i] = 1 << i
			a[i], b[i] = float64(rng.Intn(5)), float64(rng.Intn(5))
		}
		c, err := FindCrossover(a, b, axis, float64(rng.Intn(2)))
		if err != nil {
			t.Fatal(err)
		}
		switch c.Reason {
		case NoData:
			if n >= 2 || c.Defined() {
				t.Fatalf("%v vs %v: got %v", a, b, c)
			}
		case FirstFlip:
			if c.Index < 1 || c.Batch != axis[c.Index] {
				t.Fatalf("%v vs %v: got %v", a, b, c)
			}
		case AlwaysA:
			if c.Batch != axis[n-1] {
				t.Fatalf("%v vs %v: got %v", a, b, c)
			}
		case AlwaysB:
			if c.Defined() {
				t.Fatalf("%v vs %v: got %v", a, b, c)
			}
		default:
			t.Fatalf("unknown reason %v", c.Reason)
		}
	}
}

func testSeries(variant string, values ...float64) *Series {
	s := &Series{Key: family.SeriesKey{Family: "F", Variant: variant}, Unit: "us"}
	for i, v := range values {
		s.Points = append(s.Points, Point{Batch: axis4[i], Value: v, Measured: v != family.DefaultUnmeasured})
	}
	return s
}

func TestSelectOptimal(t *testing.T) {
	const u = family.DefaultUnmeasured
	a := testSeries("A", 10, 10, u, 50)
	b := testSeries("B", 20, 5, u, 20)

	opt, c, err := SelectOptimal(a, b, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := &Series{
		Key:  family.SeriesKey{Family: "F", Variant: "best(A,B)"},
		Unit: "us",
		Points: []Point{
			{1, 10, true},
			{2, 5, true},
			{4, u, false},
			{8, 20, true},
		},
	}
	if diff := cmp.Diff(want, opt); diff != "" {
		t.Errorf("optimal mismatch (-want +got):\n%s", diff)
	}
	if want := (Crossover{2, FirstFlip, 1}); c != want {
		t.Errorf("crossover got %v want %v", c, want)
	}
}

func TestSelectOptimalCommutative(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	values := []float64{0, 1, 2, 3, family.DefaultUnmeasured}
	for iter := 0; iter < 500; iter++ {
		var va, vb []float64
		for range axis4 {
			va = append(va, values[rng.Intn(len(values))])
			vb = append(vb, values[rng.Intn(len(values))])
		}
		a, b := testSeries("x", va...), testSeries("y", vb...)
		ab, _, err := SelectOptimal(a, b, 0)
		if err != nil {
			t.Fatal(err)
		}
		ba, _, err := SelectOptimal(b, a, 0)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(ab, ba); diff != "" {
			t.Fatalf("SelectOptimal(%v, %v) not commutative:\n%s", va, vb, diff)
		}
	}
}

func TestSelectOptimalMismatch(t *testing.T) {
	a := testSeries("A", 1, 2, 3, 4)
	b := testSeries("B", 1, 2, 3)
	if _, _, err := SelectOptimal(a, b, 0); err == nil {
		t.Errorf("different lengths: got nil error")
	}
	c := testSeries("C", 1, 2, 3, 4)
	c.Key.Family = "G"
	if _, _, err := SelectOptimal(a, c, 0); err == nil {
		t.Errorf("different families: got nil error")
	}
	d := testSeries("D", 1, 2, 3, 4)
	d.Points[2].Batch = 5
	if _, _, err := SelectOptimal(a, d, 0); err == nil {
		t.Errorf("different axes: got nil error")
	}
}

func TestOptimalOf(t *testing.T) {
	key := family.SeriesKey{Family: "F", Variant: "best"}
	opt, err := OptimalOf(key, testSeries("A", 4, 3, 2, 1), testSeries("B", 1, 9, 9, 9), testSeries("C", 9, 9, 0, 9))
	if err != nil {
		t.Fatal(err)
	}
	if opt.Key != key {
		t.Errorf("key got %v want %v", opt.Key, key)
	}
	if diff := cmp.Diff([]float64{1, 3, 0, 1}, opt.Values()); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	if _, err := OptimalOf(key, testSeries("A", 1, 2, 3, 4)); err == nil {
		t.Errorf("OptimalOf with one series got nil error")
	}
}

func TestReasonText(t *testing.T) {
	for _, r := range []Reason{NoData, FirstFlip, AlwaysA, AlwaysB} {
		data, err := json.Marshal(r)
		if err != nil {
			t.Fatal(err)
		}
		var got Reason
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		if got != r {
			t.Errorf("%v round-tripped through %s as %v", r, data, got)
		}
	}
	if got := AlwaysB.String(); got != "ALWAYS_B" {
		t.Errorf("AlwaysB.String() got %q", got)
	}
	var r Reason
	if err := r.UnmarshalText([]byte("SOMETIMES")); err == nil {
		t.Errorf("UnmarshalText of unknown reason got nil error")
	}
}
