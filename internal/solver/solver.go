/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

// Package solver implements the Solver Adapter: hands the assembled
// LP/MILP to an external solver and populates primal/dual values back onto
// the Context's variables and constraints (spec.md §4.8).
package solver

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/zengarden/internal/model"
)

// Status is the solver's termination kind (spec.md §4.8, §7).
type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
	TimeLimit
	SolverError
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	case TimeLimit:
		return "time-limit"
	default:
		return "solver-error"
	}
}

// Options carries the user options of spec.md §6 solver section through to
// the external solver untouched.
type Options struct {
	SolverName    string
	Tolerance     float64
	ThreadCount   int
	ExtractDuals  bool
	TimeLimit     time.Duration
	MaxRetries    int // transient RPC/process failures before giving up
}

// Backend is the opaque external collaborator that actually solves the
// assembled problem; production code wires this to whatever LP/MILP
// solver binary or RPC endpoint is configured. It returns primal values
// keyed by variable name and tuple position, and (if requested) duals
// keyed by constraint name and tuple position.
type Backend interface {
	Solve(opts Options, ctx *model.Context) (Solution, error)
}

// Solution is what a Backend call returns on any termination.
type Solution struct {
	Status  Status
	Primal  map[string][]float64 // variable name -> value per declared tuple position
	Dual    map[string][]float64 // constraint name -> value per declared tuple position, only if ExtractDuals
	Message string
}

// Adapter runs a Backend with retry around transient failures, and
// populates primal/dual values back onto ctx's declared variables and
// constraints. Non-optimal terminations are returned by kind, not raised,
// per spec.md §4.8/§7: "Non-optimal terminations are reported by kind...
// without raising; a higher layer decides."
type Adapter struct {
	Backend Backend
}

// Solve hands the model to the backend, retrying only transient failures
// (the backend signals these by returning a non-nil error; a returned
// Solution with Status == SolverError is terminal and is not retried).
func (a *Adapter) Solve(opts Options, ctx *model.Context) (Solution, error) {
	var sol Solution
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = 1
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = time.Duration(retries) * opts.TimeLimitOrDefault()

	op := func() error {
		var err error
		sol, err = a.Backend.Solve(opts, ctx)
		return err
	}
	notify := func(err error, d time.Duration) {
		logrus.Warnf("solver: transient failure %v; retrying in %v", err, d)
	}
	if err := backoff.RetryNotify(op, backoff.WithMaxRetries(bo, uint64(retries)), notify); err != nil {
		return Solution{Status: SolverError, Message: err.Error()}, fmt.Errorf("solver: %w", err)
	}

	if sol.Status == Optimal {
		if err := apply(ctx, sol); err != nil {
			return sol, err
		}
	}
	return sol, nil
}

// TimeLimitOrDefault returns the configured time limit, or one minute if
// unset, used only to size the adapter's own retry budget.
func (o Options) TimeLimitOrDefault() time.Duration {
	if o.TimeLimit <= 0 {
		return time.Minute
	}
	return o.TimeLimit
}

// apply writes a solution's primal/dual arrays back into the context's
// variable and constraint coordinate arrays, in declaration-order
// position — the layout spec.md §6 calls "indexed back into the
// component layout".
func apply(ctx *model.Context, sol Solution) error {
	for _, v := range ctx.Variables() {
		vals, ok := sol.Primal[v.Name]
		if !ok {
			continue
		}
		for i, t := range v.Tuples {
			if i < len(vals) {
				v.SetPrimal(t, vals[i])
			}
		}
	}
	if sol.Dual == nil {
		return nil
	}
	for _, c := range ctx.Constraints() {
		vals, ok := sol.Dual[c.Name]
		if !ok {
			continue
		}
		for i := range c.Tuples {
			if i < len(vals) {
				c.SetDual(i, vals[i])
			}
		}
	}
	return nil
}
