/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

package main

import (
	"fmt"
	"math"

	"github.com/spatialmodel/zengarden/internal/carrier"
	"github.com/spatialmodel/zengarden/internal/config"
	"github.com/spatialmodel/zengarden/internal/model"
	"github.com/spatialmodel/zengarden/internal/params"
	"github.com/spatialmodel/zengarden/internal/sets"
	"github.com/spatialmodel/zengarden/internal/technology"
	"github.com/spatialmodel/zengarden/internal/timesteps"
)

// assembled is everything construct builds for one solve: the shared
// OptimizationContext plus the carrier/technology elements declared
// against it (spec.md §9 "Global/process-wide optimization context").
type assembled struct {
	ctx          *model.Context
	carriers     []*carrier.Element
	technologies []*technology.Element
}

// construct builds a fresh registry, parameter store, time grid and
// OptimizationContext from cfg, then declares every carrier and
// technology the configuration names.
//
// CSV/spreadsheet data ingestion is an external collaborator per spec.md
// §1; no such source is wired here, so every declared parameter is a
// structural placeholder (0 or +∞, whichever is unconstraining) rather
// than real input data. A production deployment replaces
// declareDefaultParams with a real data-loading step feeding the same
// params.Store.
func construct(cfg *config.Config) (*assembled, error) {
	years := make([]int, cfg.System.PlanningHorizonYears)
	for i := range years {
		years[i] = i
	}
	yearStrs := make([]string, len(years))
	for i, y := range years {
		yearStrs[i] = fmt.Sprintf("%d", y)
	}

	steps := cfg.System.AggregatedTimeStepsPerYear
	if steps <= 0 {
		steps = 1
	}
	hours := cfg.System.TotalHoursPerYear
	if hours <= 0 {
		hours = steps
	}
	stepStrs := make([]string, steps)
	for t := range stepStrs {
		stepStrs[t] = fmt.Sprintf("%d", t)
	}
	sequence := make([]int, hours)
	for h := range sequence {
		sequence[h] = (h * steps) / hours
	}
	duration := make([]float64, steps)
	base := float64(hours) / float64(steps)
	for t := range duration {
		duration[t] = base
	}
	intervalYears := cfg.System.IntervalBetweenYears
	if intervalYears <= 0 {
		intervalYears = 1
	}
	grid, err := timesteps.NewGrid(hours, len(years), intervalYears, sequence, duration)
	if err != nil {
		return nil, fmt.Errorf("zengarden: building time grid: %w", err)
	}

	reg := sets.NewRegistry()
	reg.AddSet("carriers", cfg.System.Carriers, "", "")
	reg.AddSet("nodes", cfg.System.Nodes, "", "")
	reg.AddSet("edges", cfg.System.Edges, "", "")
	reg.AddSet("operational_steps", stepStrs, "", "")
	reg.AddSet("years", yearStrs, "", "")

	store := params.NewStore()
	if err := declareDefaultParams(store, cfg, stepStrs, yearStrs); err != nil {
		return nil, err
	}

	ctx := model.NewContext(reg, store, grid)

	a := &assembled{ctx: ctx}
	for _, name := range cfg.System.Carriers {
		e, err := carrier.Declare(ctx, carrier.Spec{Name: name, ShedPrice: math.Inf(1)}, nil)
		if err != nil {
			return nil, fmt.Errorf("zengarden: declaring carrier %q: %w", name, err)
		}
		a.carriers = append(a.carriers, e)
	}

	capTypes := capacityTypesOf(cfg.System.SetCapacityTypes)
	discountRate := technology.DiscountRate(cfg.Analysis.DiscountRate)
	declareTechs := func(names []string, kind technology.Kind, locations []string) error {
		for _, name := range names {
			spec := technology.Spec{
				Name:                 name,
				Kind:                 kind,
				ReferenceCarriers:    cfg.System.Carriers,
				Lifetime:             20, // placeholder until per-technology lifetime data is wired in
				MaxAddition:          map[technology.CapacityType]float64{technology.Power: math.Inf(1), technology.Energy: math.Inf(1)},
				DiffusionRate:        math.Inf(1),
				DiscountRate:         discountRate,
				DoubleCapexTransport: cfg.System.DoubleCapexTransport,
			}
			elem, err := technology.Declare(ctx, spec, nil, locations, years, capTypes)
			if err != nil {
				return fmt.Errorf("zengarden: declaring technology %q: %w", name, err)
			}
			a.technologies = append(a.technologies, elem)
		}
		return nil
	}
	if err := declareTechs(cfg.System.ConversionTechnologies, technology.Conversion, cfg.System.Nodes); err != nil {
		return nil, err
	}
	if err := declareTechs(cfg.System.TransportTechnologies, technology.Transport, cfg.System.Edges); err != nil {
		return nil, err
	}
	if err := declareTechs(cfg.System.StorageTechnologies, technology.Storage, cfg.System.Nodes); err != nil {
		return nil, err
	}

	return a, nil
}

// declareDefaultParams declares every parameter carrier.Declare and
// technology.Declare read from ctx.Params, filled with the unconstraining
// default (0 for additive quantities, +∞ for upper bounds) per spec.md §3,
// standing in for the data-ingestion step this package does not perform.
func declareDefaultParams(store *params.Store, cfg *config.Config, stepStrs, yearStrs []string) error {
	stepDims := []string{"carriers", "nodes", "operational_steps"}
	stepAxes := map[string][]string{"carriers": cfg.System.Carriers, "nodes": cfg.System.Nodes, "operational_steps": stepStrs}
	for _, name := range []string{"demand", "price_import", "price_export", "carbon_intensity"} {
		if _, err := store.Declare(name, stepDims, stepAxes, "", "", 0); err != nil {
			return err
		}
	}
	for _, name := range []string{"availability_import", "availability_export"} {
		if _, err := store.Declare(name, stepDims, stepAxes, "", "", math.Inf(1)); err != nil {
			return err
		}
	}

	yearlyDims := []string{"carriers", "nodes", "years"}
	yearlyAxes := map[string][]string{"carriers": cfg.System.Carriers, "nodes": cfg.System.Nodes, "years": yearStrs}
	for _, name := range []string{"availability_import_yearly", "availability_export_yearly"} {
		if _, err := store.Declare(name, yearlyDims, yearlyAxes, "", "", math.Inf(1)); err != nil {
			return err
		}
	}

	locations := append(append([]string{}, cfg.System.Nodes...), cfg.System.Edges...)
	capAxes := map[string][]string{"location": locations, "year": yearStrs}
	if _, err := store.Declare("capacity_limit", []string{"location", "year"}, capAxes, "", "", math.Inf(1)); err != nil {
		return err
	}
	return nil
}

func capacityTypesOf(names []string) []technology.CapacityType {
	var out []technology.CapacityType
	for _, n := range names {
		switch n {
		case "energy":
			out = append(out, technology.Energy)
		default:
			out = append(out, technology.Power)
		}
	}
	if len(out) == 0 {
		out = []technology.CapacityType{technology.Power}
	}
	return out
}
