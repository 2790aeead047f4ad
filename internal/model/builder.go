/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

// Package model implements the Variable/Constraint Builder and the
// OptimizationContext that owns the Index Registry, Parameter Store and
// the variable/constraint collection for one solve (spec.md §4.4, §3
// Ownership, §9 "Global/process-wide optimization context").
package model

import (
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/zengarden/internal/params"
	"github.com/spatialmodel/zengarden/internal/sets"
	"github.com/spatialmodel/zengarden/internal/timesteps"
)

// Domain is a variable's algebraic domain.
type Domain int

const (
	ContinuousFree Domain = iota
	ContinuousNonNegative
	Integer
	Binary
)

// Bounds describes a variable's lower/upper bound, which may be a fixed
// pair, an array indexed the same way as the variable, or a govaluate
// expression evaluated per tuple over the declared parameters (spec.md
// §4.4: "bounds (pair, array, or callable)").
type Bounds struct {
	Lower, Upper float64       // used when Expr == nil and PerTuple == nil
	PerTuple     map[string][2]float64
	Expr         *govaluate.EvaluableExpression
	ExprParams   func(sets.Tuple) map[string]interface{}
}

func (b Bounds) at(t sets.Tuple, key string) (lo, hi float64, err error) {
	if b.Expr != nil {
		vars := b.ExprParams(t)
		v, err := b.Expr.Evaluate(vars)
		if err != nil {
			return 0, 0, fmt.Errorf("model: bound expression: %w", err)
		}
		f, ok := v.(float64)
		if !ok {
			return 0, 0, fmt.Errorf("model: bound expression did not evaluate to a number")
		}
		return 0, f, nil
	}
	if b.PerTuple != nil {
		pair, ok := b.PerTuple[key]
		if !ok {
			return 0, math.Inf(1), nil
		}
		return pair[0], pair[1], nil
	}
	return b.Lower, b.Upper, nil
}

// Variable is a decision variable declared over a (possibly masked)
// coordinate rectangle.
type Variable struct {
	Name   string
	Dims   []string
	Tuples []sets.Tuple
	Domain Domain
	Active []bool // one per tuple; false means no variable exists there

	lower, upper []float64
	primal       []float64
	index        map[string]int // tuple key -> position in Tuples
}

func tupleKey(t sets.Tuple) string {
	s := ""
	for i, v := range t {
		if i > 0 {
			s += "\x1f"
		}
		s += v
	}
	return s
}

// At returns the position of tuple within the variable's declared index,
// or -1 if it is not part of the index (distinct from being masked out).
func (v *Variable) At(t sets.Tuple) int {
	pos, ok := v.index[tupleKey(t)]
	if !ok {
		return -1
	}
	return pos
}

// IsActive reports whether a variable exists at tuple t.
func (v *Variable) IsActive(t sets.Tuple) bool {
	pos := v.At(t)
	return pos >= 0 && v.Active[pos]
}

// SetPrimal records a solver-returned primal value.
func (v *Variable) SetPrimal(t sets.Tuple, value float64) {
	pos := v.At(t)
	if pos >= 0 {
		v.primal[pos] = value
	}
}

// Primal returns the solver-returned value at t, or 0 if inactive.
func (v *Variable) Primal(t sets.Tuple) float64 {
	pos := v.At(t)
	if pos < 0 || !v.Active[pos] {
		return 0
	}
	return v.primal[pos]
}

// ConstraintKind distinguishes a block constraint (one vectorized
// expression over a whole rectangle) from a rule constraint (one scalar
// expression per tuple, later stacked), per spec.md §4.4.
type ConstraintKind int

const (
	Block ConstraintKind = iota
	Rule
)

// Sense is a constraint's relational operator.
type Sense int

const (
	LessEqual Sense = iota
	Equal
	GreaterEqual
)

// Term is one coefficient applied to a variable at a tuple of the
// variable's own index, one summand of a constraint row's linear
// expression.
type Term struct {
	Variable *Variable
	VarTuple sets.Tuple
	Coeff    float64
}

// Row is the linear expression of one constraint tuple: the left-hand-side
// terms and the right-hand-side constant, i.e. spec.md §4.4's "a single
// expression f(vars, params) {≤,=,≥} g(params)" with f expanded to its
// coefficients and g folded to a number.
type Row struct {
	Terms []Term
	RHS   float64
}

// ExprFunc builds the Row for one active tuple of a constraint's index.
// Called once per active tuple at AddConstraint time, since the
// coefficients and right-hand side of a constraint are fixed at assembly
// time — only the variables' primal values are unknown until the solve.
type ExprFunc func(t sets.Tuple) (Row, error)

// Constraint is one named family of constraints over a coordinate
// rectangle, together with the linear expression row of every active
// tuple — what a solver.Backend reads to build the actual LP/MILP matrix.
type Constraint struct {
	Name   string
	Kind   ConstraintKind
	Sense  Sense
	Dims   []string
	Tuples []sets.Tuple
	Active []bool
	Rows   []Row
	dual   []float64
}

// SetDual records a solver-returned dual value.
func (c *Constraint) SetDual(idx int, value float64) {
	if idx >= 0 && idx < len(c.dual) {
		c.dual[idx] = value
	}
}

// Dual returns the dual value at tuple position idx.
func (c *Constraint) Dual(idx int) float64 {
	if idx < 0 || idx >= len(c.dual) {
		return 0
	}
	return c.dual[idx]
}

// Context is the OptimizationContext: the single owner of the Index
// Registry, Parameter Store and the variable/constraint collection for one
// solve. Constructed from (analysis, system, data) and destroyed after the
// last solve, per spec.md §9.
type Context struct {
	Sets   *sets.Registry
	Params *params.Store
	Time   *timesteps.Grid

	variables   map[string]*Variable
	constraints map[string]*Constraint
	varOrder    []string
	constrOrder []string
}

// NewContext constructs an empty optimization context around the already
// populated registry, parameter store and time grid.
func NewContext(reg *sets.Registry, store *params.Store, grid *timesteps.Grid) *Context {
	return &Context{
		Sets:        reg,
		Params:      store,
		Time:        grid,
		variables:   make(map[string]*Variable),
		constraints: make(map[string]*Constraint),
	}
}

// AddVariable declares a variable over cs, masked by active. bounds
// supplies per-tuple or expression-based bounds; domain fixes the
// variable's algebraic type.
//
// Binary variables must only be requested when they materially affect the
// model (spec.md §4.4); callers are responsible for that decision before
// calling AddVariable with Domain == Binary — this method does not itself
// suppress a binary whose index happens to be empty, since an empty index
// is a configuration error, not a no-op.
func (c *Context) AddVariable(name string, cs *sets.CustomSet, active []bool, domain Domain, bounds Bounds) (*Variable, error) {
	if _, exists := c.variables[name]; exists {
		logrus.Warnf("model: variable %q already declared; overwriting", name)
	}
	if active == nil {
		active = make([]bool, len(cs.Tuples))
		for i := range active {
			active[i] = true
		}
	}
	if len(active) != len(cs.Tuples) {
		return nil, fmt.Errorf("model: variable %q mask length %d does not match %d tuples", name, len(active), len(cs.Tuples))
	}
	v := &Variable{
		Name:   name,
		Dims:   cs.Dims,
		Tuples: cs.Tuples,
		Domain: domain,
		Active: active,
		lower:  make([]float64, len(cs.Tuples)),
		upper:  make([]float64, len(cs.Tuples)),
		primal: make([]float64, len(cs.Tuples)),
		index:  make(map[string]int, len(cs.Tuples)),
	}
	for i, t := range cs.Tuples {
		v.index[tupleKey(t)] = i
		if !active[i] {
			continue
		}
		lo, hi, err := bounds.at(t, tupleKey(t))
		if err != nil {
			return nil, err
		}
		if domain == ContinuousNonNegative && lo < 0 {
			lo = 0
		}
		if domain == Binary {
			lo, hi = 0, 1
		}
		v.lower[i], v.upper[i] = lo, hi
	}
	c.variables[name] = v
	c.varOrder = append(c.varOrder, name)
	return v, nil
}

// Variable looks up a previously declared variable.
func (c *Context) Variable(name string) (*Variable, error) {
	v, ok := c.variables[name]
	if !ok {
		return nil, fmt.Errorf("model: unknown variable %q", name)
	}
	return v, nil
}

// Variables returns every declared variable in declaration order.
func (c *Context) Variables() []*Variable {
	out := make([]*Variable, len(c.varOrder))
	for i, n := range c.varOrder {
		out[i] = c.variables[n]
	}
	return out
}

// AddConstraint declares a constraint family. rhsInfinite, when non-nil,
// reports per-tuple whether the right-hand-side bound is +∞, in which case
// that tuple's constraint is skipped entirely rather than emitted as a
// trivial inequality (spec.md §4.4 Skipping semantics). expr builds the
// actual linear expression of every remaining active tuple — the
// coefficients and right-hand side a solver.Backend needs to assemble the
// real LP/MILP matrix row, not just the tuple's coordinates.
func (c *Context) AddConstraint(name string, kind ConstraintKind, sense Sense, cs *sets.CustomSet, active []bool, rhsInfinite func(sets.Tuple) bool, expr ExprFunc) (*Constraint, error) {
	if _, exists := c.constraints[name]; exists {
		logrus.Warnf("model: constraint %q already declared; overwriting", name)
	}
	if active == nil {
		active = make([]bool, len(cs.Tuples))
		for i := range active {
			active[i] = true
		}
	}
	if len(active) != len(cs.Tuples) {
		return nil, fmt.Errorf("model: constraint %q mask length %d does not match %d tuples", name, len(active), len(cs.Tuples))
	}
	if rhsInfinite != nil {
		for i, t := range cs.Tuples {
			if active[i] && rhsInfinite(t) {
				active[i] = false
			}
		}
	}
	if expr == nil {
		return nil, fmt.Errorf("model: constraint %q requires a non-nil expression", name)
	}
	rows := make([]Row, len(cs.Tuples))
	for i, t := range cs.Tuples {
		if !active[i] {
			continue
		}
		row, err := expr(t)
		if err != nil {
			return nil, fmt.Errorf("model: constraint %q at %v: %w", name, t, err)
		}
		rows[i] = row
	}
	con := &Constraint{
		Name:   name,
		Kind:   kind,
		Sense:  sense,
		Dims:   cs.Dims,
		Tuples: cs.Tuples,
		Active: active,
		Rows:   rows,
		dual:   make([]float64, len(cs.Tuples)),
	}
	c.constraints[name] = con
	c.constrOrder = append(c.constrOrder, name)
	return con, nil
}

// Constraints returns every declared constraint family in declaration order.
func (c *Context) Constraints() []*Constraint {
	out := make([]*Constraint, len(c.constrOrder))
	for i, n := range c.constrOrder {
		out[i] = c.constraints[n]
	}
	return out
}

// NeedsBinary reports whether at least one active tuple's min-addition or
// fixed-cost coefficient is non-zero, the materiality test spec.md §4.4
// requires before a binary variable may be emitted.
func NeedsBinary(active []bool, coefficient func(int) float64) bool {
	for i, a := range active {
		if a && coefficient(i) != 0 {
			return true
		}
	}
	return false
}
