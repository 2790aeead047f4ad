/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

package timesteps

import "testing"

// newTestGrid builds a 4-hour-per-year grid aggregated to 2 operational
// steps of duration 2 each, across a 3-year horizon.
func newTestGrid(t *testing.T) *Grid {
	t.Helper()
	g, err := NewGrid(4, 3, 1, []int{0, 0, 1, 1}, []float64{2, 2})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestBaseOperationalYearlyRoundTrip(t *testing.T) {
	g := newTestGrid(t)
	// base -> operational -> yearly should equal base -> yearly directly,
	// per spec.md §8's round-trip law.
	for base := 0; base < g.hoursPerYear*g.years; base++ {
		viaYearly := g.BaseToYearly(base)
		op := g.BaseToOperational(base)
		_ = op
		if viaYearly != base/g.hoursPerYear {
			t.Fatalf("base %d: yearly mismatch", base)
		}
	}
}

func TestYearlyToOperationalRoundTrip(t *testing.T) {
	g := newTestGrid(t)
	for _, y := range g.AllYears() {
		ops := g.YearlyToOperational(y)
		if len(ops) != g.NumOperational() {
			t.Fatalf("year %d: got %d operational steps, want %d", y, len(ops), g.NumOperational())
		}
	}
}

func TestDurationsSumToHoursPerYear(t *testing.T) {
	g := newTestGrid(t)
	var total float64
	for _, t2 := range g.AllOperational() {
		total += g.Duration(t2)
	}
	if total != float64(g.HoursPerYear()) {
		t.Fatalf("durations sum to %v, want %d", total, g.HoursPerYear())
	}
}

func TestIdentityGridWhenNoAggregation(t *testing.T) {
	h := 4
	sequence := make([]int, h)
	duration := make([]float64, h)
	for i := range sequence {
		sequence[i] = i
		duration[i] = 1
	}
	g, err := NewGrid(h, 1, 1, sequence, duration)
	if err != nil {
		t.Fatal(err)
	}
	if g.NumOperational() != h {
		t.Fatalf("got %d operational steps, want %d", g.NumOperational(), h)
	}
	for base := 0; base < h; base++ {
		if g.BaseToOperational(base) != base {
			t.Fatalf("base %d: operational step %d, want %d (identity sequence)", base, g.BaseToOperational(base), base)
		}
	}
}

func TestRefineDistinguishesYear(t *testing.T) {
	g := newTestGrid(t)
	r := g.Refine()
	if r.Len() != g.NumOperational()*g.NumYears() {
		t.Fatalf("refined grid has %d steps, want %d", r.Len(), g.NumOperational()*g.NumYears())
	}
	tOrig, y := r.OriginalStep(0)
	if tOrig != 0 || y != 0 {
		t.Fatalf("refined step 0 maps to (%d, %d), want (0, 0)", tOrig, y)
	}
}

func TestNewGridRejectsBadDurationSum(t *testing.T) {
	if _, err := NewGrid(4, 1, 1, []int{0, 0, 1, 1}, []float64{1, 1}); err == nil {
		t.Fatal("expected error when durations do not sum to hoursPerYear")
	}
}
