/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

package solver

import (
	"errors"
	"testing"
	"time"

	"github.com/spatialmodel/zengarden/internal/model"
	"github.com/spatialmodel/zengarden/internal/params"
	"github.com/spatialmodel/zengarden/internal/sets"
)

type stubBackend struct {
	sol Solution
	err error
}

func (b *stubBackend) Solve(opts Options, ctx *model.Context) (Solution, error) {
	return b.sol, b.err
}

func newTestContext(t *testing.T) *model.Context {
	t.Helper()
	reg := sets.NewRegistry()
	reg.AddSet("nodes", []string{"a", "b"}, "", "")
	cs, err := reg.CreateCustomSet("nodes")
	if err != nil {
		t.Fatal(err)
	}
	ctx := model.NewContext(reg, params.NewStore(), nil)
	if _, err := ctx.AddVariable("capacity", cs, nil, model.ContinuousNonNegative, model.Bounds{Upper: 100}); err != nil {
		t.Fatal(err)
	}
	expr := func(tup sets.Tuple) (model.Row, error) { return model.Row{RHS: 100}, nil }
	if _, err := ctx.AddConstraint("capacity_limit", model.Block, model.LessEqual, cs, nil, nil, expr); err != nil {
		t.Fatal(err)
	}
	return ctx
}

func TestSolveAppliesPrimalValuesOnOptimal(t *testing.T) {
	ctx := newTestContext(t)
	backend := &stubBackend{sol: Solution{
		Status: Optimal,
		Primal: map[string][]float64{"capacity": {10, 20}},
	}}
	a := &Adapter{Backend: backend}
	sol, err := a.Solve(Options{}, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != Optimal {
		t.Fatalf("got status %v, want Optimal", sol.Status)
	}
	v, _ := ctx.Variable("capacity")
	if v.Primal(v.Tuples[0]) != 10 || v.Primal(v.Tuples[1]) != 20 {
		t.Fatalf("primal values not applied: %v, %v", v.Primal(v.Tuples[0]), v.Primal(v.Tuples[1]))
	}
}

func TestSolveDoesNotApplyValuesOnInfeasible(t *testing.T) {
	ctx := newTestContext(t)
	backend := &stubBackend{sol: Solution{Status: Infeasible}}
	a := &Adapter{Backend: backend}
	sol, err := a.Solve(Options{}, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != Infeasible {
		t.Fatalf("got %v, want Infeasible", sol.Status)
	}
	v, _ := ctx.Variable("capacity")
	if v.Primal(v.Tuples[0]) != 0 {
		t.Fatal("infeasible termination must not populate primal values")
	}
}

func TestSolveGivesUpAfterTransientFailures(t *testing.T) {
	ctx := newTestContext(t)
	backend := &stubBackend{err: errors.New("transient RPC failure")}
	a := &Adapter{Backend: backend}
	_, err := a.Solve(Options{TimeLimit: time.Millisecond, MaxRetries: 1}, ctx)
	if err == nil {
		t.Fatal("expected an error once the retry budget is exhausted")
	}
}

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		Optimal:     "optimal",
		Infeasible:  "infeasible",
		Unbounded:   "unbounded",
		TimeLimit:   "time-limit",
		SolverError: "solver-error",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Fatalf("%v: got %q, want %q", status, got, want)
		}
	}
}
