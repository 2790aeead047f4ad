/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

package technology

import (
	"math"
	"testing"

	"github.com/spatialmodel/zengarden/internal/model"
	"github.com/spatialmodel/zengarden/internal/params"
	"github.com/spatialmodel/zengarden/internal/sets"
	"github.com/spatialmodel/zengarden/internal/timesteps"
)

func TestAnnuityFactorZeroDiscountRate(t *testing.T) {
	a := AnnuityFactor(0, 20)
	if a != 1.0/20 {
		t.Fatalf("got %v, want 1/20", a)
	}
}

func TestAnnuityFactorPositiveDiscountRate(t *testing.T) {
	a := AnnuityFactor(0.05, 20)
	if a <= 0 || a >= 1 {
		t.Fatalf("annuity factor %v out of the expected (0,1) range", a)
	}
}

func TestLifetimeWindowClampsToHorizonStart(t *testing.T) {
	start, end := LifetimeWindow(0, 2, 10, 5)
	// ceil(10/5) = 2 window years; start = 2 - 2 + 1 = 1
	if start != 1 || end != 2 {
		t.Fatalf("got [%d,%d], want [1,2]", start, end)
	}

	start, end = LifetimeWindow(0, 1, 100, 5)
	if start != 0 || end != 1 {
		t.Fatalf("window predating horizon start should clamp to y0: got [%d,%d], want [0,1]", start, end)
	}
}

func TestConstructionLagSteps(t *testing.T) {
	if got := ConstructionLagSteps(3, 2); got != 2 {
		t.Fatalf("ceil(3/2)=2: got %d", got)
	}
	if got := ConstructionLagSteps(0, 2); got != 0 {
		t.Fatalf("zero construction time: got %d, want 0", got)
	}
}

func TestExistingSurvivingExcludesExpiredGenerations(t *testing.T) {
	existing := []ExistingGeneration{
		{Location: "a", Capacity: map[CapacityType]float64{Power: 10}, Lifetime: 15},
		{Location: "a", Capacity: map[CapacityType]float64{Power: 5}, Lifetime: 3},
		{Location: "b", Capacity: map[CapacityType]float64{Power: 100}, Lifetime: 50},
	}
	got := ExistingSurviving(existing, "a", Power, 2, 2) // 2 years * 2 = 4 elapsed
	if got != 10 {
		t.Fatalf("got %v, want 10 (only the 15-year generation survives past 4 elapsed years)", got)
	}
}

func TestDiffusionUpperBoundGrowsWithKnowledgeStock(t *testing.T) {
	low := DiffusionUpperBound(0.1, 1, 100, 0)
	high := DiffusionUpperBound(0.1, 1, 200, 0)
	if high <= low {
		t.Fatalf("doubling knowledge stock should increase the bound: got low=%v high=%v", low, high)
	}
	withZeta := DiffusionUpperBound(0.1, 1, 0, 5)
	if withZeta != 5 {
		t.Fatalf("zero knowledge stock: bound should equal zeta*intervalYears=5, got %v", withZeta)
	}
}

func TestReferenceFlowConversionUsesOutputWhenReferenceIsOutput(t *testing.T) {
	spec := Spec{Name: "boiler", Kind: Conversion, ReferenceCarriers: []string{"heat"}}
	conv := &ConversionSpec{InputCarriers: []string{"gas"}, OutputCarriers: []string{"heat"}}
	sample := FlowSample{InputConversionFlow: 10, OutputConversionFlow: 7}
	v, err := ReferenceFlow(spec, conv, sample)
	if err != nil {
		t.Fatal(err)
	}
	if v != 7 {
		t.Fatalf("got %v, want 7 (output flow)", v)
	}
}

func TestReferenceFlowTransportSumsNothingButTransportFlow(t *testing.T) {
	spec := Spec{Name: "pipeline", Kind: Transport, ReferenceCarriers: []string{"hydrogen"}}
	v, err := ReferenceFlow(spec, nil, FlowSample{TransportFlow: 42})
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Fatalf("got %v, want 42", v)
	}
}

func TestReferenceFlowStorageSumsChargeAndDischarge(t *testing.T) {
	spec := Spec{Name: "battery", Kind: Storage, ReferenceCarriers: []string{"electricity"}}
	v, err := ReferenceFlow(spec, nil, FlowSample{ChargeFlow: 3, DischargeFlow: 4})
	if err != nil {
		t.Fatal(err)
	}
	if v != 7 {
		t.Fatalf("got %v, want 7", v)
	}
}

func TestSiblingsExcludesOtherKindsAndSelf(t *testing.T) {
	wind := Spec{Name: "wind", Kind: Conversion, ReferenceCarriers: []string{"electricity"}}
	solar := Spec{Name: "solar", Kind: Conversion, ReferenceCarriers: []string{"electricity"}}
	battery := Spec{Name: "battery", Kind: Storage, ReferenceCarriers: []string{"electricity"}}
	all := []Spec{wind, solar, battery}

	got := Siblings(wind, all)
	if len(got) != 1 || got[0].Name != "solar" {
		t.Fatalf("got %v, want only solar (same kind, same reference carrier, excluding self)", got)
	}
}

func TestCapexAnnualizedDoubleCapexTransport(t *testing.T) {
	single := CapexAnnualized(0, 20, 100, 50, 10, true, false)
	double := CapexAnnualized(0, 20, 100, 50, 10, true, true)
	if single != 100.0/20 {
		t.Fatalf("single capex: got %v, want %v", single, 100.0/20)
	}
	wantDouble := (100.0 + 50.0*10) / 20
	if double != wantDouble {
		t.Fatalf("double capex: got %v, want %v", double, wantDouble)
	}
}

func TestDeclareBuildsCoreVariablesForConversionTechnology(t *testing.T) {
	reg := sets.NewRegistry()
	store := params.NewStore()
	limit, err := store.Declare("capacity_limit", []string{"location", "year"},
		map[string][]string{"location": {"a", "b"}, "year": {"0", "1"}}, "", "", math.Inf(1))
	if err != nil {
		t.Fatal(err)
	}
	must(t, limit.Set(500, "a", "0"))
	must(t, limit.Set(500, "a", "1"))
	must(t, limit.Set(500, "b", "0"))
	must(t, limit.Set(500, "b", "1"))

	grid, err := timesteps.NewGrid(4, 2, 1, []int{0, 0, 1, 1}, []float64{2, 2})
	if err != nil {
		t.Fatal(err)
	}
	ctx := model.NewContext(reg, store, grid)

	spec := Spec{
		Name:             "wind",
		Kind:             Conversion,
		ReferenceCarriers: []string{"electricity"},
		Lifetime:         20,
		MaxAddition:      map[CapacityType]float64{Power: math.Inf(1)},
		DiffusionRate:    math.Inf(1),
	}
	elem, err := Declare(ctx, spec, nil, []string{"a", "b"}, []int{0, 1}, []CapacityType{Power})
	if err != nil {
		t.Fatal(err)
	}
	if elem.Capacity[Power] == nil {
		t.Fatal("expected a capacity variable for the Power capacity type")
	}
	if len(elem.Capacity[Power].Tuples) != 4 {
		t.Fatalf("capacity variable: got %d tuples, want 4 (2 locations * 2 years)", len(elem.Capacity[Power].Tuples))
	}
	if elem.CostOpex == nil {
		t.Fatal("expected a cost_opex variable")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
