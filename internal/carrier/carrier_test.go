/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

package carrier

import (
	"math"
	"testing"

	"github.com/spatialmodel/zengarden/internal/model"
	"github.com/spatialmodel/zengarden/internal/params"
	"github.com/spatialmodel/zengarden/internal/sets"
	"github.com/spatialmodel/zengarden/internal/timesteps"
)

func newTestContext(t *testing.T) *model.Context {
	t.Helper()
	reg := sets.NewRegistry()
	reg.AddSet("carriers", []string{"electricity"}, "", "")
	reg.AddSet("nodes", []string{"n1"}, "", "")
	reg.AddSet("operational_steps", []string{"0", "1"}, "", "")
	reg.AddSet("years", []string{"0", "1"}, "", "")

	store := params.NewStore()
	stepDims := []string{"carriers", "nodes", "operational_steps"}
	stepAxes := map[string][]string{"carriers": {"electricity"}, "nodes": {"n1"}, "operational_steps": {"0", "1"}}
	demand, err := store.Declare("demand", stepDims, stepAxes, "", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	must(t, demand.Set(50, "electricity", "n1", "0"))
	must(t, demand.Set(80, "electricity", "n1", "1"))

	availImport, err := store.Declare("availability_import", stepDims, stepAxes, "", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	must(t, availImport.Set(100, "electricity", "n1", "0"))
	must(t, availImport.Set(100, "electricity", "n1", "1"))

	availExport, err := store.Declare("availability_export", stepDims, stepAxes, "", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	must(t, availExport.Set(0, "electricity", "n1", "0"))
	must(t, availExport.Set(0, "electricity", "n1", "1"))

	priceImport, err := store.Declare("price_import", stepDims, stepAxes, "", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	must(t, priceImport.Set(5, "electricity", "n1", "0"))
	must(t, priceImport.Set(5, "electricity", "n1", "1"))
	if _, err := store.Declare("price_export", stepDims, stepAxes, "", "", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Declare("carbon_intensity", stepDims, stepAxes, "", "", 0); err != nil {
		t.Fatal(err)
	}

	yearlyDims := []string{"carriers", "nodes", "years"}
	yearlyAxes := map[string][]string{"carriers": {"electricity"}, "nodes": {"n1"}, "years": {"0", "1"}}
	importYearly, err := store.Declare("availability_import_yearly", yearlyDims, yearlyAxes, "", "", math.Inf(1))
	if err != nil {
		t.Fatal(err)
	}
	_ = importYearly
	if _, err := store.Declare("availability_export_yearly", yearlyDims, yearlyAxes, "", "", math.Inf(1)); err != nil {
		t.Fatal(err)
	}

	grid, err := timesteps.NewGrid(4, 2, 1, []int{0, 0, 1, 1}, []float64{2, 2})
	if err != nil {
		t.Fatal(err)
	}
	return model.NewContext(reg, store, grid)
}

func TestDeclareBuildsImportExportVariables(t *testing.T) {
	ctx := newTestContext(t)
	e, err := Declare(ctx, Spec{Name: "electricity", ShedPrice: math.Inf(1)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if e.Import == nil || e.Export == nil {
		t.Fatal("expected import and export flow variables")
	}
	if len(e.Import.Tuples) != 2 {
		t.Fatalf("got %d tuples, want 2 (one per operational step)", len(e.Import.Tuples))
	}
}

func TestDeclareDisablesShedWhenPriceInfinite(t *testing.T) {
	ctx := newTestContext(t)
	e, err := Declare(ctx, Spec{Name: "electricity", ShedPrice: math.Inf(1)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, tup := range e.ShedDemand.Tuples {
		if e.ShedDemand.IsActive(tup) {
			t.Fatalf("shed demand at tuple %d should be inactive when ShedPrice is +Inf", i)
		}
	}
}

func TestDeclareEnablesShedWhenPriceFinite(t *testing.T) {
	ctx := newTestContext(t)
	e, err := Declare(ctx, Spec{Name: "electricity", ShedPrice: 1000}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, tup := range e.ShedDemand.Tuples {
		if !e.ShedDemand.IsActive(tup) {
			t.Fatalf("shed demand at tuple %d should be active when ShedPrice is finite", i)
		}
	}
}

func TestEvaluateCostCarrier(t *testing.T) {
	ctx := newTestContext(t)
	e, err := Declare(ctx, Spec{Name: "electricity", ShedPrice: math.Inf(1)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tup := e.Import.Tuples[0]
	e.Import.SetPrimal(tup, 10)
	e.Export.SetPrimal(tup, 2)
	got := e.EvaluateCostCarrier(tup, 5, 3)
	want := 5.0*10 - 3.0*2
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNodalBalanceResidualZeroWhenBalanced(t *testing.T) {
	ctx := newTestContext(t)
	e, err := Declare(ctx, Spec{Name: "electricity", ShedPrice: math.Inf(1)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tup := e.Import.Tuples[0]
	e.Import.SetPrimal(tup, 20)
	e.Export.SetPrimal(tup, 0)
	// conversionOut=30, conversionIn=0, transportNet=0, storageNet=0, import=20 -> supply=50, demand=50
	residual := e.NodalBalanceResidual(tup, 30, 0, 0, 0, 50)
	if residual != 0 {
		t.Fatalf("got residual %v, want 0", residual)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
