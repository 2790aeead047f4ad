/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

// Package params implements the Parameter Store: named N-dimensional
// arrays over named index tuples, with broadcast, default fills and
// min/max tracking (spec.md §4.4/§3 Parameter Store).
package params

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// Parameter is one named N-dimensional array plus the coordinate metadata
// needed to look values up by index tuple rather than flat offset.
//
// Grounded on the teacher's CTMData.AddVariable (vargrid.go), which pairs a
// sparse.DenseArray with dimension names, a description and units; here the
// description/unit fields are supplemented per SPEC_FULL.md §4 from
// ZEN-garden's Parameter docstring/unit metadata.
type Parameter struct {
	Name string
	Doc  string
	Unit string
	Dims []string            // dimension names, in array-axis order
	Axes map[string][]string // dim name -> ordered coordinate labels
	data *sparse.DenseArray

	min, max     float64
	minSet       bool
}

// Store holds every named parameter declared for one optimization run.
type Store struct {
	params map[string]*Parameter
}

// NewStore returns an empty parameter store.
func NewStore() *Store {
	return &Store{params: make(map[string]*Parameter)}
}

// Declare creates a new named parameter with the given dimension names and
// coordinate axes (axes[dim] lists the labels along that dimension, in the
// order they occupy the backing array). defaultValue fills every entry
// before any explicit value is set; per spec.md §3 this is 0 for additive
// quantities and +∞ for unconstraining upper bounds.
func (s *Store) Declare(name string, dims []string, axes map[string][]string, doc, unit string, defaultValue float64) (*Parameter, error) {
	if _, exists := s.params[name]; exists {
		logrus.Warnf("params: parameter %q already declared; overwriting", name)
	}
	shape := make([]int, len(dims))
	for i, d := range dims {
		ax, ok := axes[d]
		if !ok {
			return nil, fmt.Errorf("params: parameter %q missing axis for dimension %q", name, d)
		}
		shape[i] = len(ax)
	}
	arr := sparse.ZerosDense(shape...)
	if defaultValue != 0 {
		for i := range arr.Elements {
			arr.Elements[i] = defaultValue
		}
	}
	p := &Parameter{
		Name: name,
		Doc:  doc,
		Unit: unit,
		Dims: append([]string(nil), dims...),
		Axes: axes,
		data: arr,
	}
	s.params[name] = p
	return p, nil
}

// Get returns the declared parameter, or an error if it is unknown.
func (s *Store) Get(name string) (*Parameter, error) {
	p, ok := s.params[name]
	if !ok {
		return nil, fmt.Errorf("params: unknown parameter %q", name)
	}
	return p, nil
}

// coords resolves a tuple of coordinate labels (one per declared dimension,
// in order) to flat array indices.
func (p *Parameter) coords(labels ...string) ([]int, error) {
	if len(labels) != len(p.Dims) {
		return nil, fmt.Errorf("params: %q expects %d coordinates, got %d", p.Name, len(p.Dims), len(labels))
	}
	idx := make([]int, len(labels))
	for i, lbl := range labels {
		pos := indexOf(p.Axes[p.Dims[i]], lbl)
		if pos < 0 {
			return nil, fmt.Errorf("params: %q: %q is not a member of dimension %q", p.Name, lbl, p.Dims[i])
		}
		idx[i] = pos
	}
	return idx, nil
}

func indexOf(ss []string, v string) int {
	for i, s := range ss {
		if s == v {
			return i
		}
	}
	return -1
}

// Set assigns value at the coordinate labels, tracking running min/max.
func (p *Parameter) Set(value float64, labels ...string) error {
	idx, err := p.coords(labels...)
	if err != nil {
		return err
	}
	p.data.Set(value, idx...)
	if !math.IsInf(value, 0) {
		if !p.minSet || value < p.min {
			p.min = value
		}
		if !p.minSet || value > p.max {
			p.max = value
		}
		p.minSet = true
	}
	return nil
}

// Value returns the value at the coordinate labels.
func (p *Parameter) Value(labels ...string) (float64, error) {
	idx, err := p.coords(labels...)
	if err != nil {
		return 0, err
	}
	return p.data.Get(idx...), nil
}

// Min and Max return the running bounds of every finite value set so far.
// They are unset (ok=false) until at least one finite value has been
// assigned.
func (p *Parameter) Min() (v float64, ok bool) { return p.min, p.minSet }
func (p *Parameter) Max() (v float64, ok bool) { return p.max, p.minSet }

// IsInfinite reports whether value is the "+∞ means skip the constraint"
// sentinel of spec.md §3/§7. NaN is never a valid sentinel and callers
// should treat it as a DataError.
func IsInfinite(value float64) bool { return math.IsInf(value, 1) }

// Broadcast fills every coordinate of the trailing dimensions not named by
// labels with a single source value, used when a parameter is specified at
// a coarser index (e.g. per-technology) than the array it's ultimately read
// through (e.g. per-technology-per-node). labels give the leading
// coordinates; with one label per dimension it is the same as Set.
func (p *Parameter) Broadcast(value float64, labels ...string) error {
	if len(labels) >= len(p.Dims) {
		return p.Set(value, labels...)
	}
	for _, lbl := range p.Axes[p.Dims[len(labels)]] {
		next := append(append([]string(nil), labels...), lbl)
		if err := p.Broadcast(value, next...); err != nil {
			return err
		}
	}
	return nil
}

// Shape returns the backing array's per-dimension extents.
func (p *Parameter) Shape() []int { return p.data.GetShape() }
