/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

// Package timesteps implements the three-layer time model: base hourly
// steps, representative operational steps with duration, and yearly
// investment periods, plus the bidirectional mappings between them
// (spec.md §4.2).
package timesteps

import "fmt"

// Grid is the time-step model for one horizon. It is constructed once by
// NewGrid and is read-only afterwards, shared by every
// element (spec.md §4.9 ownership notes).
type Grid struct {
	hoursPerYear int
	years        int
	intervalYears int // calendar years between consecutive yearly steps

	// sequence[h] is the operational step that base hour h (within one
	// year, 0..hoursPerYear-1) maps to. It repeats identically every year.
	sequence []int

	// duration[t] is the duration in hours of operational step t.
	duration []float64

	numOperational int
}

// NewGrid constructs a time-step grid from the aggregator's outputs.
//
// sequence must have length hoursPerYear and every value in
// [0, len(duration)). duration[t] is the number of base hours represented
// by operational step t; it must sum to hoursPerYear.
func NewGrid(hoursPerYear, years, intervalYears int, sequence []int, duration []float64) (*Grid, error) {
	if len(sequence) != hoursPerYear {
		return nil, fmt.Errorf("timesteps: sequence length %d does not match hoursPerYear %d", len(sequence), hoursPerYear)
	}
	var total float64
	for _, d := range duration {
		total += d
	}
	if total != float64(hoursPerYear) {
		return nil, fmt.Errorf("timesteps: operational durations sum to %v, want %d", total, hoursPerYear)
	}
	for _, t := range sequence {
		if t < 0 || t >= len(duration) {
			return nil, fmt.Errorf("timesteps: sequence references out-of-range operational step %d", t)
		}
	}
	return &Grid{
		hoursPerYear:  hoursPerYear,
		years:         years,
		intervalYears: intervalYears,
		sequence:      append([]int(nil), sequence...),
		duration:      append([]float64(nil), duration...),
		numOperational: len(duration),
	}, nil
}

// HoursPerYear is H in spec.md §4.2.
func (g *Grid) HoursPerYear() int { return g.hoursPerYear }

// NumOperational is T, the number of representative operational steps.
func (g *Grid) NumOperational() int { return g.numOperational }

// NumYears is Y, the number of yearly investment periods in the horizon.
func (g *Grid) NumYears() int { return g.years }

// IntervalBetweenYears is ΔY, the calendar-year spacing of yearly steps.
func (g *Grid) IntervalBetweenYears() int { return g.intervalYears }

// Duration returns τ_t, the duration in hours of operational step t.
func (g *Grid) Duration(t int) float64 { return g.duration[t] }

// BaseToOperational maps a base hour in the full horizon (0..H·ΔY-1,
// using H as hoursPerYear) to its operational step, a direct lookup in the
// periodic sequence array (spec.md §4.2).
func (g *Grid) BaseToOperational(baseHour int) int {
	return g.sequence[baseHour%g.hoursPerYear]
}

// BaseToYearly integer-divides the base hour by hours-per-year.
func (g *Grid) BaseToYearly(baseHour int) int {
	return baseHour / g.hoursPerYear
}

// OperationalToYearly returns the yearly step containing the first base
// hour that maps to t (spec.md §4.2: "integer-divide the first base hour
// mapped to t by hours-per-year").
//
// Because the sequence is periodic, an operational step that recurs across
// multiple years only has a single first occurrence within year 0; in a
// refined grid (see Refine) each (t, y) pair becomes its own operational
// step, so this method is exact for unrefined grids and for the refined
// step it is called on.
func (g *Grid) OperationalToYearly(t int) (int, error) {
	for h, ot := range g.sequence {
		if ot == t {
			return g.BaseToYearly(h), nil
		}
	}
	return 0, fmt.Errorf("timesteps: operational step %d not reachable from any base hour", t)
}

// YearlyToOperational returns the unique set of operational steps whose
// base hours fall in yearly step y.
func (g *Grid) YearlyToOperational(y int) []int {
	seen := make(map[int]bool)
	var out []int
	for h := 0; h < g.hoursPerYear; h++ {
		t := g.sequence[h]
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// AllOperational returns every operational step index, 0..T-1.
func (g *Grid) AllOperational() []int {
	out := make([]int, g.numOperational)
	for i := range out {
		out[i] = i
	}
	return out
}

// AllYears returns every yearly step index, 0..Y-1.
func (g *Grid) AllYears() []int {
	out := make([]int, g.years)
	for i := range out {
		out[i] = i
	}
	return out
}

// Refine rebuilds the grid so that operational steps distinguish
// (original-operational-step, year) pairs, used when an element's raw
// series vary by year and the plain operational index collapses that
// variation (spec.md §4.3, "Linking investment and operation").
//
// The returned grid has years*originalNumOperational operational steps;
// RefinedIndex recovers the (t, y) pair for a refined step.
func (g *Grid) Refine() *RefinedGrid {
	n := g.numOperational
	refinedDuration := make([]float64, 0, n*g.years)
	pairs := make([][2]int, 0, n*g.years)
	for y := 0; y < g.years; y++ {
		for t := 0; t < n; t++ {
			refinedDuration = append(refinedDuration, g.duration[t])
			pairs = append(pairs, [2]int{t, y})
		}
	}
	return &RefinedGrid{base: g, pairs: pairs, duration: refinedDuration}
}

// RefinedGrid is a time grid refined to distinguish operational step and
// year, as described by the "Linking investment and operation" rule of
// spec.md §4.3.
type RefinedGrid struct {
	base     *Grid
	pairs    [][2]int
	duration []float64
}

// Duration returns the duration of a refined step.
func (r *RefinedGrid) Duration(refinedStep int) float64 { return r.duration[refinedStep] }

// OriginalStep returns the (operational, year) pair a refined step stands for.
func (r *RefinedGrid) OriginalStep(refinedStep int) (t, y int) {
	p := r.pairs[refinedStep]
	return p[0], p[1]
}

// Len returns the number of refined steps.
func (r *RefinedGrid) Len() int { return len(r.pairs) }
