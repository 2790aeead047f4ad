/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

package model

import (
	"math"
	"testing"

	"github.com/Knetic/govaluate"

	"github.com/spatialmodel/zengarden/internal/params"
	"github.com/spatialmodel/zengarden/internal/sets"
)

func newTestContext(t *testing.T) (*Context, *sets.CustomSet) {
	t.Helper()
	reg := sets.NewRegistry()
	reg.AddSet("nodes", []string{"a", "b", "c"}, "", "")
	cs, err := reg.CreateCustomSet("nodes")
	if err != nil {
		t.Fatal(err)
	}
	ctx := NewContext(reg, params.NewStore(), nil)
	return ctx, cs
}

func TestAddVariableAppliesFixedBounds(t *testing.T) {
	ctx, cs := newTestContext(t)
	v, err := ctx.AddVariable("capacity", cs, nil, ContinuousNonNegative, Bounds{Lower: 0, Upper: 100})
	if err != nil {
		t.Fatal(err)
	}
	if v.upper[0] != 100 {
		t.Fatalf("got upper %v, want 100", v.upper[0])
	}
}

func TestAddVariableBinaryForcesZeroOneBounds(t *testing.T) {
	ctx, cs := newTestContext(t)
	v, err := ctx.AddVariable("invest", cs, nil, Binary, Bounds{Lower: -5, Upper: 5})
	if err != nil {
		t.Fatal(err)
	}
	for i := range v.Tuples {
		if v.lower[i] != 0 || v.upper[i] != 1 {
			t.Fatalf("binary variable bounds at %d: got [%v,%v], want [0,1]", i, v.lower[i], v.upper[i])
		}
	}
}

func TestAddVariableNonNegativeClampsNegativeLowerBound(t *testing.T) {
	ctx, cs := newTestContext(t)
	v, err := ctx.AddVariable("flow", cs, nil, ContinuousNonNegative, Bounds{Lower: -10, Upper: 10})
	if err != nil {
		t.Fatal(err)
	}
	for i := range v.Tuples {
		if v.lower[i] != 0 {
			t.Fatalf("got lower %v, want 0 (non-negative domain clamps)", v.lower[i])
		}
	}
}

func TestAddVariableMaskSuppressesInactiveTuples(t *testing.T) {
	ctx, cs := newTestContext(t)
	active := []bool{true, false, true}
	v, err := ctx.AddVariable("flow", cs, active, ContinuousNonNegative, Bounds{Lower: 0, Upper: 5})
	if err != nil {
		t.Fatal(err)
	}
	if v.IsActive(cs.Tuples[1]) {
		t.Fatal("masked tuple should be inactive")
	}
	if !v.IsActive(cs.Tuples[0]) {
		t.Fatal("unmasked tuple should be active")
	}
}

func TestAddVariableRejectsMismatchedMaskLength(t *testing.T) {
	ctx, cs := newTestContext(t)
	if _, err := ctx.AddVariable("flow", cs, []bool{true}, ContinuousNonNegative, Bounds{}); err == nil {
		t.Fatal("expected error for mask length mismatch")
	}
}

func TestBoundsExpressionEvaluatedPerTuple(t *testing.T) {
	expr, err := govaluate.NewEvaluableExpression("capacityLimit * 2")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cs := newTestContext(t)
	bounds := Bounds{
		Expr: expr,
		ExprParams: func(tup sets.Tuple) map[string]interface{} {
			return map[string]interface{}{"capacityLimit": 50.0}
		},
	}
	v, err := ctx.AddVariable("capacity", cs, nil, ContinuousNonNegative, bounds)
	if err != nil {
		t.Fatal(err)
	}
	if v.upper[0] != 100 {
		t.Fatalf("got upper %v, want 100 (50*2)", v.upper[0])
	}
}

func TestAddConstraintSkipsTuplesWithInfiniteRHS(t *testing.T) {
	ctx, cs := newTestContext(t)
	rhsInfinite := func(tup sets.Tuple) bool { return tup[0] == "b" }
	expr := func(tup sets.Tuple) (Row, error) { return Row{RHS: 1}, nil }
	con, err := ctx.AddConstraint("capacityLimit", Block, LessEqual, cs, nil, rhsInfinite, expr)
	if err != nil {
		t.Fatal(err)
	}
	for i, tup := range con.Tuples {
		want := tup[0] != "b"
		if con.Active[i] != want {
			t.Fatalf("tuple %v: active=%v, want %v", tup, con.Active[i], want)
		}
	}
}

func TestAddConstraintRejectsNilExpression(t *testing.T) {
	ctx, cs := newTestContext(t)
	if _, err := ctx.AddConstraint("capacityLimit", Block, LessEqual, cs, nil, nil, nil); err == nil {
		t.Fatal("expected error for a nil expression builder")
	}
}

func TestAddConstraintStoresExpressionRowsPerTuple(t *testing.T) {
	ctx, cs := newTestContext(t)
	v, err := ctx.AddVariable("flow", cs, nil, ContinuousFree, Bounds{})
	if err != nil {
		t.Fatal(err)
	}
	expr := func(tup sets.Tuple) (Row, error) {
		return Row{Terms: []Term{{Variable: v, VarTuple: tup, Coeff: 2}}, RHS: 10}, nil
	}
	con, err := ctx.AddConstraint("doubled", Block, LessEqual, cs, nil, nil, expr)
	if err != nil {
		t.Fatal(err)
	}
	for i, row := range con.Rows {
		if row.RHS != 10 || len(row.Terms) != 1 || row.Terms[0].Coeff != 2 {
			t.Fatalf("row %d: got %+v, want coeff 2 / RHS 10", i, row)
		}
	}
}

func TestConstraintDualRoundTrip(t *testing.T) {
	ctx, cs := newTestContext(t)
	expr := func(tup sets.Tuple) (Row, error) { return Row{RHS: 0}, nil }
	con, err := ctx.AddConstraint("balance", Block, Equal, cs, nil, nil, expr)
	if err != nil {
		t.Fatal(err)
	}
	con.SetDual(0, 42)
	if con.Dual(0) != 42 {
		t.Fatalf("got %v, want 42", con.Dual(0))
	}
	if con.Dual(-1) != 0 {
		t.Fatal("out-of-range dual lookup should return 0")
	}
}

func TestVariablesAndConstraintsPreserveDeclarationOrder(t *testing.T) {
	ctx, cs := newTestContext(t)
	ctx.AddVariable("first", cs, nil, ContinuousFree, Bounds{})
	ctx.AddVariable("second", cs, nil, ContinuousFree, Bounds{})
	vars := ctx.Variables()
	if len(vars) != 2 || vars[0].Name != "first" || vars[1].Name != "second" {
		t.Fatalf("variables not in declaration order: %v", vars)
	}
}

func TestNeedsBinaryRequiresNonZeroCoefficient(t *testing.T) {
	active := []bool{true, true, false}
	coeffs := []float64{0, 0, 5}
	if NeedsBinary(active, func(i int) float64 { return coeffs[i] }) {
		t.Fatal("all active coefficients are zero; binary should not be needed")
	}
	coeffs[1] = 3
	if !NeedsBinary(active, func(i int) float64 { return coeffs[i] }) {
		t.Fatal("an active non-zero coefficient should require a binary")
	}
}

func TestVariableLookupOfUnknownTupleReturnsNegativeOne(t *testing.T) {
	ctx, cs := newTestContext(t)
	v, _ := ctx.AddVariable("flow", cs, nil, ContinuousFree, Bounds{})
	if v.At(sets.Tuple{"not-a-node"}) != -1 {
		t.Fatal("expected -1 for a tuple outside the declared index")
	}
}

func TestUnsetPerTupleBoundDefaultsToUnboundedAbove(t *testing.T) {
	ctx, cs := newTestContext(t)
	bounds := Bounds{PerTuple: map[string][2]float64{}}
	v, err := ctx.AddVariable("flow", cs, nil, ContinuousFree, bounds)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(v.upper[0], 1) {
		t.Fatalf("got upper %v, want +Inf for a tuple absent from PerTuple", v.upper[0])
	}
}
