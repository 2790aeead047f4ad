/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

// Package horizon runs the rolling-horizon loop of spec.md §5: a
// serialized assemble → solve → extract → update-existing-state →
// reassemble sequence, with no concurrency across iterations and each
// iteration constructing a fresh model.
package horizon

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/zengarden/internal/model"
	"github.com/spatialmodel/zengarden/internal/solver"
)

// IterationResult is what one rolling-horizon iteration returns.
type IterationResult struct {
	Year     int
	Solution solver.Solution
}

// Assembler builds a fresh optimization context for one horizon-step
// iteration. existingState carries the prior iteration's updated existing
// capacity state forward; it is nil on the first call.
type Assembler func(iteration int, existingState interface{}) (*model.Context, error)

// StateUpdater extracts the new existing-capacity state from a solved
// context, to be threaded into the next iteration's Assembler call
// (spec.md §3 Lifecycles: "rolling-horizon mode re-opens the model with
// updated existing-capacity state after each solve").
type StateUpdater func(ctx *model.Context, sol solver.Solution) (interface{}, error)

// Run executes iterations serially, never holding more than one
// OptimizationContext alive at a time: the previous iteration's context is
// released (dropped) before the next is assembled, per spec.md §5
// "Each iteration constructs a fresh model; previously built objects are
// released."
func Run(iterations int, assemble Assembler, ad *solver.Adapter, opts solver.Options, update StateUpdater) ([]IterationResult, error) {
	var results []IterationResult
	var state interface{}
	for i := 0; i < iterations; i++ {
		ctx, err := assemble(i, state)
		if err != nil {
			return results, fmt.Errorf("horizon: assembling iteration %d: %w", i, err)
		}
		sol, err := ad.Solve(opts, ctx)
		if err != nil {
			return results, fmt.Errorf("horizon: solving iteration %d: %w", i, err)
		}
		results = append(results, IterationResult{Year: i, Solution: sol})
		if sol.Status != solver.Optimal {
			logrus.Warnf("horizon: iteration %d terminated as %s; stopping rolling horizon", i, sol.Status)
			return results, nil
		}
		state, err = update(ctx, sol)
		if err != nil {
			return results, fmt.Errorf("horizon: updating existing-capacity state after iteration %d: %w", i, err)
		}
		// ctx goes out of scope here; nothing references it beyond
		// the extracted state, matching the teacher's framework.go release
		// pattern where InMAPdata.Data is not reused across re-inits.
	}
	return results, nil
}
