/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

package horizon

import (
	"testing"

	"github.com/spatialmodel/zengarden/internal/model"
	"github.com/spatialmodel/zengarden/internal/params"
	"github.com/spatialmodel/zengarden/internal/sets"
	"github.com/spatialmodel/zengarden/internal/solver"
)

type stubBackend struct {
	statuses []solver.Status
}

func (b *stubBackend) Solve(opts solver.Options, ctx *model.Context) (solver.Solution, error) {
	status := b.statuses[0]
	b.statuses = b.statuses[1:]
	return solver.Solution{Status: status}, nil
}

func newIterationContext(t *testing.T) *model.Context {
	t.Helper()
	reg := sets.NewRegistry()
	reg.AddSet("nodes", []string{"a"}, "", "")
	cs, err := reg.CreateCustomSet("nodes")
	if err != nil {
		t.Fatal(err)
	}
	ctx := model.NewContext(reg, params.NewStore(), nil)
	if _, err := ctx.AddVariable("capacity", cs, nil, model.ContinuousNonNegative, model.Bounds{Upper: 100}); err != nil {
		t.Fatal(err)
	}
	return ctx
}

func TestRunStopsOnNonOptimalTermination(t *testing.T) {
	backend := &stubBackend{statuses: []solver.Status{solver.Optimal, solver.Infeasible, solver.Optimal}}
	ad := &solver.Adapter{Backend: backend}
	calls := 0
	assemble := func(iteration int, state interface{}) (*model.Context, error) {
		calls++
		return newIterationContext(t), nil
	}
	update := func(ctx *model.Context, sol solver.Solution) (interface{}, error) {
		return "updated", nil
	}
	results, err := Run(3, assemble, ad, solver.Options{}, update)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (stops after the infeasible iteration)", len(results))
	}
	if calls != 2 {
		t.Fatalf("assembler called %d times, want 2", calls)
	}
}

func TestRunThreadsStateBetweenIterations(t *testing.T) {
	backend := &stubBackend{statuses: []solver.Status{solver.Optimal, solver.Optimal}}
	ad := &solver.Adapter{Backend: backend}
	var seenStates []interface{}
	assemble := func(iteration int, state interface{}) (*model.Context, error) {
		seenStates = append(seenStates, state)
		return newIterationContext(t), nil
	}
	update := func(ctx *model.Context, sol solver.Solution) (interface{}, error) {
		return "state-from-iteration", nil
	}
	if _, err := Run(2, assemble, ad, solver.Options{}, update); err != nil {
		t.Fatal(err)
	}
	if seenStates[0] != nil {
		t.Fatalf("first iteration should see nil state, got %v", seenStates[0])
	}
	if seenStates[1] != "state-from-iteration" {
		t.Fatalf("second iteration should see the first iteration's updated state, got %v", seenStates[1])
	}
}
