/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

// Package technology implements the Technology Subsystem: capacity and
// investment variables, lifetime bookkeeping, construction-time shift,
// diffusion-limited addition, annualized capex and yearly opex/carbon
// accrual (spec.md §4.6). Conversion, transport and storage technologies
// are tagged variants dispatched by Kind, following the "Dynamic dispatch
// over heterogeneous element kinds" redesign of spec.md §9: the source's
// subclass registration becomes a switch over Kind, with shared behavior
// in the hooks below.
package technology

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spatialmodel/zengarden/internal/model"
	"github.com/spatialmodel/zengarden/internal/params"
	"github.com/spatialmodel/zengarden/internal/sets"
)

// Kind tags the technology variant.
type Kind int

const (
	Conversion Kind = iota
	Transport
	Storage
)

// CapacityType distinguishes flow-rate ("power") from stored-energy
// ("energy") capacity (spec.md GLOSSARY).
type CapacityType string

const (
	Power  CapacityType = "power"
	Energy CapacityType = "energy"
)

// Spec holds the per-technology attributes of spec.md §3's Technology
// entity, shared by every Kind.
type Spec struct {
	Name             string
	Kind             Kind
	ReferenceCarriers []string // primary is ReferenceCarriers[0]; see SPEC_FULL.md §4

	Lifetime         float64 // ℓ_h, years
	ConstructionTime float64 // κ_h source unit (years); ⌈κ/ΔY⌉ lag steps are applied
	MinAddition      map[CapacityType]float64
	MaxAddition      map[CapacityType]float64 // +∞ = unbounded
	UnboundedAddition float64                 // ζ_h, the unbounded-market-share term
	DiffusionRate    float64                   // ϑ_h,y; +∞ disables the constraint
	MinLoad, MaxLoad float64
	OnOffCapable     bool // whether min-load on/off binaries are modelled

	OpexSpecificVariable float64
	OpexSpecificFixed    map[CapacityType]float64
	CarbonIntensityTech  float64

	Bidirectional        bool // transport only
	CapexSpecific        float64
	CapexPerDistance     float64 // transport only, paired with Distance
	Distance             float64 // transport only, the edge's length
	DiscountRate         DiscountRate
	DiffusionDecay       float64 // δ, decay of past knowledge stock (spec.md §4.6 op 6)
	DoubleCapexTransport bool    // spec.md §9 "double_capex_transport"
}

// ReferenceCarrier returns the primary reference carrier.
func (s Spec) ReferenceCarrier() string {
	if len(s.ReferenceCarriers) == 0 {
		return ""
	}
	return s.ReferenceCarriers[0]
}

// ExistingGeneration is one pre-horizon capacity generation with its own
// remaining lifetime (spec.md §3 "Existing capacity / generation").
type ExistingGeneration struct {
	Location string
	Capacity map[CapacityType]float64
	Lifetime float64 // remaining lifetime in years at horizon start
	Capex    float64 // capex_specific of the existing generation
}

// Element is one technology's variables, wired into a shared Context.
type Element struct {
	Spec Spec

	Capacity, CapacityPrevious         map[CapacityType]*model.Variable
	CapacityAddition, CapacityInvestment map[CapacityType]*model.Variable
	CostCapex, CapexYearly, OpexYearly map[CapacityType]*model.Variable
	CostOpex                           *model.Variable
	CarbonEmissionsTechnology          *model.Variable
	Flow                              *model.Variable // reference-carrier flow (spec.md §4.6 op 8), per (location, step)
	On, Off                           *model.Variable  // binary, nil unless Spec.OnOffCapable
	Installation                      *model.Variable // binary, nil if not needed

	existing []ExistingGeneration
	ctx      *model.Context
	cs       map[CapacityType]*sets.CustomSet // (tech, capacityType, location, year)
	locations []string
	years     []int
}

// DiscountRate is shared across every technology's annuity-factor
// computation (spec.md §4.6 op 7); it lives on the owning Context's
// Objective Assembler wiring in a complete build but is threaded in
// directly here to keep this package independent of internal/objective.
type DiscountRate float64

// AnnuityFactor computes a = (1+r)^ℓ r / ((1+r)^ℓ - 1), or 1/ℓ when r == 0
// (spec.md §4.6 op 7).
func AnnuityFactor(r DiscountRate, lifetime float64) float64 {
	if r == 0 {
		return 1 / lifetime
	}
	rf := float64(r)
	factor := math.Pow(1+rf, lifetime)
	return factor * rf / (factor - 1)
}

// decayFactor computes (1-δ)^exponent, or 0 for a negative exponent. It is
// used by the diffusion knowledge-stock terms (spec.md §4.6 op 6) in Declare
// and KnowledgeStock; the annual_capex constraint covers new additions only
// and accrues no capex for existing generations.
func decayFactor(delta float64, exponent float64) float64 {
	if exponent < 0 {
		return 0
	}
	return math.Pow(1-delta, exponent)
}

// Declare builds every variable of spec.md §4.6 for one technology.
// locations is the set of nodes (conversion/storage) or edges (transport)
// the technology can be sited on. years is the yearly index set.
func Declare(ctx *model.Context, spec Spec, existing []ExistingGeneration, locations []string, years []int, capacityTypes []CapacityType) (*Element, error) {
	e := &Element{Spec: spec, existing: existing, ctx: ctx, locations: locations, years: years,
		Capacity: map[CapacityType]*model.Variable{}, CapacityPrevious: map[CapacityType]*model.Variable{},
		CapacityAddition: map[CapacityType]*model.Variable{}, CapacityInvestment: map[CapacityType]*model.Variable{},
		CostCapex: map[CapacityType]*model.Variable{}, CapexYearly: map[CapacityType]*model.Variable{},
		OpexYearly: map[CapacityType]*model.Variable{}, cs: map[CapacityType]*sets.CustomSet{},
	}

	for _, k := range capacityTypes {
		if spec.Kind != Storage && k == Energy {
			continue // only storage declares an energy capacity type
		}
		cs := rectangle(locations, years)
		e.cs[k] = cs

		capLimit, err := ctx.Params.Get("capacity_limit")
		if err != nil {
			return nil, err
		}
		capUpper := capacityLimitUpper(cs, capLimit, existing, k)

		if e.Capacity[k], err = ctx.AddVariable(vname(spec.Name, string(k), "capacity"), cs, nil, model.ContinuousNonNegative, model.Bounds{PerTuple: capUpper}); err != nil {
			return nil, err
		}
		if e.CapacityPrevious[k], err = ctx.AddVariable(vname(spec.Name, string(k), "capacity_previous"), cs, nil, model.ContinuousNonNegative, model.Bounds{Upper: math.Inf(1)}); err != nil {
			return nil, err
		}

		addUpper := additionUpper(cs, spec, k)
		if e.CapacityAddition[k], err = ctx.AddVariable(vname(spec.Name, string(k), "capacity_addition"), cs, nil, model.ContinuousNonNegative, model.Bounds{PerTuple: addUpper}); err != nil {
			return nil, err
		}
		if e.CapacityInvestment[k], err = ctx.AddVariable(vname(spec.Name, string(k), "capacity_investment"), cs, nil, model.ContinuousNonNegative, model.Bounds{Upper: math.Inf(1)}); err != nil {
			return nil, err
		}
		if e.CostCapex[k], err = ctx.AddVariable(vname(spec.Name, string(k), "cost_capex"), cs, nil, model.ContinuousNonNegative, model.Bounds{Upper: math.Inf(1)}); err != nil {
			return nil, err
		}
		if e.CapexYearly[k], err = ctx.AddVariable(vname(spec.Name, string(k), "capex_yearly"), cs, nil, model.ContinuousNonNegative, model.Bounds{Upper: math.Inf(1)}); err != nil {
			return nil, err
		}
		if e.OpexYearly[k], err = ctx.AddVariable(vname(spec.Name, string(k), "opex_yearly"), cs, nil, model.ContinuousNonNegative, model.Bounds{Upper: math.Inf(1)}); err != nil {
			return nil, err
		}

		capacityExpr := func(t sets.Tuple) (model.Row, error) {
			v, err := capLimit.Value(t...)
			if err != nil {
				return model.Row{}, err
			}
			existingAtLoc := ExistingSurviving(existing, t[0], k, 0, 1)
			if existingAtLoc > v {
				v = existingAtLoc
			}
			return model.Row{Terms: []model.Term{{Variable: e.Capacity[k], VarTuple: t, Coeff: 1}}, RHS: v}, nil
		}
		if _, err := ctx.AddConstraint(vname(spec.Name, string(k), "capacity_limit"), model.Block, model.LessEqual, cs, nil,
			infiniteWhere(capLimit, locations, years, k), capacityExpr); err != nil {
			return nil, err
		}
		if minAdd := spec.MinAddition[k]; minAdd != 0 {
			needed := model.NeedsBinary(allTrue(len(cs.Tuples)), func(i int) float64 { return minAdd })
			if needed && e.Installation == nil {
				if e.Installation, err = ctx.AddVariable(vname(spec.Name, "", "technology_installation"), cs, nil, model.Binary, model.Bounds{}); err != nil {
					return nil, err
				}
			}
			minAdditionExpr := func(t sets.Tuple) (model.Row, error) {
				return model.Row{Terms: []model.Term{
					{Variable: e.CapacityAddition[k], VarTuple: t, Coeff: 1},
					{Variable: e.Installation, VarTuple: t, Coeff: -minAdd},
				}, RHS: 0}, nil
			}
			if _, err := ctx.AddConstraint(vname(spec.Name, string(k), "min_addition"), model.Block, model.GreaterEqual, cs, nil, nil, minAdditionExpr); err != nil {
				return nil, err
			}
		}
		if maxAdd, ok := spec.MaxAddition[k]; ok && !math.IsInf(maxAdd, 1) && maxAdd != 0 {
			maxAdditionExpr := func(t sets.Tuple) (model.Row, error) {
				return model.Row{Terms: []model.Term{{Variable: e.CapacityAddition[k], VarTuple: t, Coeff: 1}}, RHS: maxAdd}, nil
			}
			if _, err := ctx.AddConstraint(vname(spec.Name, string(k), "max_addition"), model.Block, model.LessEqual, cs, nil, nil, maxAdditionExpr); err != nil {
				return nil, err
			}
		}
		kappa := ConstructionLagSteps(spec.ConstructionTime, ctx.Time.IntervalBetweenYears())
		constructionExpr := func(t sets.Tuple) (model.Row, error) {
			loc, yStr := t[0], t[1]
			y, err := strconv.Atoi(yStr)
			if err != nil {
				return model.Row{}, fmt.Errorf("technology: %s: non-integer year %q: %w", spec.Name, yStr, err)
			}
			terms := []model.Term{{Variable: e.CapacityAddition[k], VarTuple: t, Coeff: 1}}
			laggedY := y - kappa
			if len(years) > 0 && laggedY >= years[0] {
				terms = append(terms, model.Term{Variable: e.CapacityInvestment[k], VarTuple: sets.Tuple{loc, strconv.Itoa(laggedY)}, Coeff: -1})
			}
			return model.Row{Terms: terms, RHS: 0}, nil
		}
		if _, err := ctx.AddConstraint(vname(spec.Name, string(k), "construction_time"), model.Rule, model.Equal, cs, nil, nil, constructionExpr); err != nil {
			return nil, err
		}
		lifetimeExpr := func(t sets.Tuple) (model.Row, error) {
			loc, yStr := t[0], t[1]
			y, err := strconv.Atoi(yStr)
			if err != nil {
				return model.Row{}, fmt.Errorf("technology: %s: non-integer year %q: %w", spec.Name, yStr, err)
			}
			y0 := 0
			if len(years) > 0 {
				y0 = years[0]
			}
			start, end := LifetimeWindow(y0, y, spec.Lifetime, ctx.Time.IntervalBetweenYears())
			terms := []model.Term{{Variable: e.Capacity[k], VarTuple: t, Coeff: 1}}
			for yy := start; yy <= end; yy++ {
				terms = append(terms, model.Term{Variable: e.CapacityAddition[k], VarTuple: sets.Tuple{loc, strconv.Itoa(yy)}, Coeff: -1})
			}
			rhs := ExistingSurviving(existing, loc, k, y, ctx.Time.IntervalBetweenYears())
			return model.Row{Terms: terms, RHS: rhs}, nil
		}
		if _, err := ctx.AddConstraint(vname(spec.Name, string(k), "lifetime"), model.Rule, model.Equal, cs, nil, nil, lifetimeExpr); err != nil {
			return nil, err
		}
		if !math.IsInf(spec.DiffusionRate, 1) {
			intervalYears := ctx.Time.IntervalBetweenYears()
			growth := math.Pow(1+spec.DiffusionRate, float64(intervalYears)) - 1
			diffusionNodeExpr := func(t sets.Tuple) (model.Row, error) {
				loc, yStr := t[0], t[1]
				y, err := strconv.Atoi(yStr)
				if err != nil {
					return model.Row{}, fmt.Errorf("technology: %s: non-integer year %q: %w", spec.Name, yStr, err)
				}
				y0 := 0
				if len(years) > 0 {
					y0 = years[0]
				}
				terms := []model.Term{{Variable: e.CapacityAddition[k], VarTuple: t, Coeff: 1}}
				var existingStock float64
				for _, yy := range years {
					if yy >= y {
						continue
					}
					exponent := float64(intervalYears * (y - 1 - yy))
					terms = append(terms, model.Term{Variable: e.CapacityAddition[k], VarTuple: sets.Tuple{loc, strconv.Itoa(yy)}, Coeff: -growth * decayFactor(spec.DiffusionDecay, exponent)})
				}
				for _, g := range existing {
					if g.Location != loc {
						continue
					}
					exponent := float64(intervalYears*(y-1-y0)) + spec.Lifetime - g.Lifetime
					existingStock += g.Capacity[k] * decayFactor(spec.DiffusionDecay, exponent)
				}
				rhs := growth*existingStock + spec.UnboundedAddition*float64(intervalYears)
				return model.Row{Terms: terms, RHS: rhs}, nil
			}
			if _, err := ctx.AddConstraint(vname(spec.Name, string(k), "diffusion_limit_node"), model.Rule, model.LessEqual, cs, nil, nil, diffusionNodeExpr); err != nil {
				return nil, err
			}
			diffusionTotalExpr := func(t sets.Tuple) (model.Row, error) {
				yStr := t[0]
				y, err := strconv.Atoi(yStr)
				if err != nil {
					return model.Row{}, fmt.Errorf("technology: %s: non-integer year %q: %w", spec.Name, yStr, err)
				}
				y0 := 0
				if len(years) > 0 {
					y0 = years[0]
				}
				var terms []model.Term
				var existingStock float64
				for _, loc := range locations {
					terms = append(terms, model.Term{Variable: e.CapacityAddition[k], VarTuple: sets.Tuple{loc, yStr}, Coeff: 1})
					for _, yy := range years {
						if yy >= y {
							continue
						}
						exponent := float64(intervalYears * (y - 1 - yy))
						terms = append(terms, model.Term{Variable: e.CapacityAddition[k], VarTuple: sets.Tuple{loc, strconv.Itoa(yy)}, Coeff: -growth * decayFactor(spec.DiffusionDecay, exponent)})
					}
					for _, g := range existing {
						if g.Location != loc {
							continue
						}
						exponent := float64(intervalYears*(y-1-y0)) + spec.Lifetime - g.Lifetime
						existingStock += g.Capacity[k] * decayFactor(spec.DiffusionDecay, exponent)
					}
				}
				rhs := growth*existingStock + spec.UnboundedAddition*float64(intervalYears)*float64(len(locations))
				return model.Row{Terms: terms, RHS: rhs}, nil
			}
			if _, err := ctx.AddConstraint(vname(spec.Name, string(k), "diffusion_limit_total"), model.Rule, model.LessEqual, yearlyOnly(years), nil, nil, diffusionTotalExpr); err != nil {
				return nil, err
			}
		}
		annualCapexExpr := func(t sets.Tuple) (model.Row, error) {
			coeff := CapexAnnualized(spec.DiscountRate, spec.Lifetime, spec.CapexSpecific, spec.CapexPerDistance, spec.Distance, spec.Kind == Transport, spec.DoubleCapexTransport)
			return model.Row{Terms: []model.Term{
				{Variable: e.CapexYearly[k], VarTuple: t, Coeff: 1},
				{Variable: e.CapacityAddition[k], VarTuple: t, Coeff: -coeff},
			}, RHS: 0}, nil
		}
		if _, err := ctx.AddConstraint(vname(spec.Name, string(k), "annual_capex"), model.Rule, model.Equal, cs, nil, nil, annualCapexExpr); err != nil {
			return nil, err
		}
		if spec.Bidirectional && spec.Kind == Transport {
			bidirectionalExpr := func(t sets.Tuple) (model.Row, error) {
				loc, yStr := t[0], t[1]
				terms := []model.Term{{Variable: e.Capacity[k], VarTuple: t, Coeff: 1}}
				if rev := reverseEdge(loc); rev != "" && rev != loc {
					terms = append(terms, model.Term{Variable: e.Capacity[k], VarTuple: sets.Tuple{rev, yStr}, Coeff: -1})
				}
				return model.Row{Terms: terms, RHS: 0}, nil
			}
			if _, err := ctx.AddConstraint(vname(spec.Name, string(k), "bidirectional"), model.Block, model.Equal, cs, nil, nil, bidirectionalExpr); err != nil {
				return nil, err
			}
		}
	}

	stepsCS := rectangleSteps(locations, ctx)
	var err error
	if e.CostOpex, err = ctx.AddVariable(vname(spec.Name, "", "cost_opex"), stepsCS, nil, model.ContinuousNonNegative, model.Bounds{Upper: math.Inf(1)}); err != nil {
		return nil, err
	}
	if e.CarbonEmissionsTechnology, err = ctx.AddVariable(vname(spec.Name, "", "carbon_emissions_technology"), stepsCS, nil, model.ContinuousFree, model.Bounds{Lower: math.Inf(-1), Upper: math.Inf(1)}); err != nil {
		return nil, err
	}
	if e.Flow, err = ctx.AddVariable(vname(spec.Name, "", "reference_flow"), stepsCS, nil, model.ContinuousNonNegative, model.Bounds{Upper: math.Inf(1)}); err != nil {
		return nil, err
	}
	opexExpr := func(t sets.Tuple) (model.Row, error) {
		return model.Row{Terms: []model.Term{
			{Variable: e.CostOpex, VarTuple: t, Coeff: 1},
			{Variable: e.Flow, VarTuple: t, Coeff: -spec.OpexSpecificVariable},
		}, RHS: 0}, nil
	}
	if _, err := ctx.AddConstraint(vname(spec.Name, "", "opex_step_eq"), model.Rule, model.Equal, stepsCS, nil, nil, opexExpr); err != nil {
		return nil, err
	}
	carbonExpr := func(t sets.Tuple) (model.Row, error) {
		return model.Row{Terms: []model.Term{
			{Variable: e.CarbonEmissionsTechnology, VarTuple: t, Coeff: 1},
			{Variable: e.Flow, VarTuple: t, Coeff: -spec.CarbonIntensityTech},
		}, RHS: 0}, nil
	}
	if _, err := ctx.AddConstraint(vname(spec.Name, "", "carbon_step_eq"), model.Rule, model.Equal, stepsCS, nil, nil, carbonExpr); err != nil {
		return nil, err
	}

	if spec.OnOffCapable {
		on, err := ctx.AddVariable(vname(spec.Name, "", "technology_on"), stepsCS, nil, model.Binary, model.Bounds{})
		if err != nil {
			return nil, err
		}
		off, err := ctx.AddVariable(vname(spec.Name, "", "technology_off"), stepsCS, nil, model.Binary, model.Bounds{})
		if err != nil {
			return nil, err
		}
		e.On, e.Off = on, off
		onOffSumExpr := func(t sets.Tuple) (model.Row, error) {
			return model.Row{Terms: []model.Term{
				{Variable: on, VarTuple: t, Coeff: 1},
				{Variable: off, VarTuple: t, Coeff: 1},
			}, RHS: 1}, nil
		}
		if _, err := ctx.AddConstraint(vname(spec.Name, "", "on_off_sum"), model.Block, model.Equal, stepsCS, nil, nil, onOffSumExpr); err != nil {
			return nil, err
		}
		// flow >= minLoad * on, the linear floor enforced only while the
		// technology is on (spec.md §4.6's on/off min-load coupling).
		onMinLoadExpr := func(t sets.Tuple) (model.Row, error) {
			return model.Row{Terms: []model.Term{
				{Variable: e.Flow, VarTuple: t, Coeff: 1},
				{Variable: on, VarTuple: t, Coeff: -spec.MinLoad},
			}, RHS: 0}, nil
		}
		if _, err := ctx.AddConstraint(vname(spec.Name, "", "on_min_load"), model.Block, model.GreaterEqual, stepsCS, nil, nil, onMinLoadExpr); err != nil {
			return nil, err
		}
		// flow + maxLoad*off <= maxLoad, i.e. flow <= maxLoad*(1-off): the
		// big-M linearization of "flow forced to 0 while off" (spec.md §9
		// redesign: a linear Block-kind constraint replaces the
		// bilinear flow*off product the source used).
		offZeroExpr := func(t sets.Tuple) (model.Row, error) {
			return model.Row{Terms: []model.Term{
				{Variable: e.Flow, VarTuple: t, Coeff: 1},
				{Variable: off, VarTuple: t, Coeff: spec.MaxLoad},
			}, RHS: spec.MaxLoad}, nil
		}
		if _, err := ctx.AddConstraint(vname(spec.Name, "", "off_zero"), model.Block, model.LessEqual, stepsCS, nil, nil, offZeroExpr); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// reverseEdge swaps a "u-v"-formatted edge identifier to "v-u"; returns ""
// if loc is not in that form.
func reverseEdge(loc string) string {
	parts := strings.SplitN(loc, "-", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[1] + "-" + parts[0]
}

// LifetimeWindow returns the inclusive range [start, y] of yearly steps
// whose additions still contribute to capacity at year y, per spec.md
// §4.6 op 5: start = max(y0, y - ceil(ℓ/ΔY) + 1).
func LifetimeWindow(y0, y int, lifetime float64, intervalYears int) (start, end int) {
	window := int(math.Ceil(lifetime / float64(intervalYears)))
	start = y - window + 1
	if start < y0 {
		start = y0
	}
	return start, y
}

// ConstructionLagSteps returns κ = ⌈construction_time / ΔY⌉, the number of
// yearly steps an investment is shifted before it becomes a capacity
// addition (spec.md §4.6 op 4).
func ConstructionLagSteps(constructionTime float64, intervalYears int) int {
	return int(math.Ceil(constructionTime / float64(intervalYears)))
}

// ExistingSurviving sums the existing-generation capacity of kind k at
// location loc that has not yet reached the end of its remaining lifetime
// by yearly step y (spec.md §4.6 op 5 "existing_surviving").
func ExistingSurviving(existing []ExistingGeneration, loc string, k CapacityType, y, intervalYears int) float64 {
	var total float64
	for _, g := range existing {
		if g.Location != loc {
			continue
		}
		yearsElapsed := float64(y * intervalYears)
		if yearsElapsed < g.Lifetime {
			total += g.Capacity[k]
		}
	}
	return total
}

// KnowledgeStock computes K, the decayed knowledge stock feeding the
// diffusion-limit constraint (spec.md §4.6 op 6).
//
// additions supplies, for every yearly step strictly before y, the total
// in-kind addition at the same location (or across all locations for the
// fleet-wide variant) plus σ·spillover already summed in by the caller;
// spillover is zero for transport technologies and for edges, per
// spec.md §4.6 and SPEC_FULL.md's sibling-set clarification.
func KnowledgeStock(additions map[int]float64, existingAtHorizonStart []ExistingGeneration, k CapacityType, y, y0, intervalYears int, lifetime, delta float64) float64 {
	var stock float64
	for yTilde, add := range additions {
		if yTilde >= y {
			continue
		}
		exponent := float64(intervalYears * (y - 1 - yTilde))
		stock += add * decayFactor(delta, exponent)
	}
	for _, g := range existingAtHorizonStart {
		exponent := float64(intervalYears*(y-1-y0)) + lifetime - g.Lifetime
		stock += g.Capacity[k] * decayFactor(delta, exponent)
	}
	return stock
}

// DiffusionUpperBound computes ((1+ϑ)^ΔY - 1)*K + ζ*ΔY, the right-hand
// side of spec.md §4.6 op 6.
func DiffusionUpperBound(theta float64, intervalYears int, knowledgeStock, zeta float64) float64 {
	growth := math.Pow(1+theta, float64(intervalYears)) - 1
	return growth*knowledgeStock + zeta*float64(intervalYears)
}

func vname(tech, capType, suffix string) string {
	if capType == "" {
		return tech + "." + suffix
	}
	return tech + "." + capType + "." + suffix
}

func rectangle(locations []string, years []int) *sets.CustomSet {
	yearStrs := make([]string, len(years))
	for i, y := range years {
		yearStrs[i] = fmt.Sprintf("%d", y)
	}
	var tuples []sets.Tuple
	for _, loc := range locations {
		for _, y := range yearStrs {
			tuples = append(tuples, sets.Tuple{loc, y})
		}
	}
	return &sets.CustomSet{Dims: []string{"location", "year"}, Tuples: tuples}
}

func yearlyOnly(years []int) *sets.CustomSet {
	var tuples []sets.Tuple
	for _, y := range years {
		tuples = append(tuples, sets.Tuple{fmt.Sprintf("%d", y)})
	}
	return &sets.CustomSet{Dims: []string{"year"}, Tuples: tuples}
}

func rectangleSteps(locations []string, ctx *model.Context) *sets.CustomSet {
	var tuples []sets.Tuple
	for _, loc := range locations {
		for _, t := range ctx.Time.AllOperational() {
			tuples = append(tuples, sets.Tuple{loc, fmt.Sprintf("%d", t)})
		}
	}
	return &sets.CustomSet{Dims: []string{"location", "step"}, Tuples: tuples}
}

func allTrue(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}

func capacityLimitUpper(cs *sets.CustomSet, limit *params.Parameter, existing []ExistingGeneration, k CapacityType) map[string][2]float64 {
	out := make(map[string][2]float64, len(cs.Tuples))
	for _, t := range cs.Tuples {
		v, err := limit.Value(t...)
		if err != nil || params.IsInfinite(v) {
			out[tupleKeyOf(t)] = [2]float64{0, math.Inf(1)}
			continue
		}
		existingAtLoc := ExistingSurviving(existing, t[0], k, 0, 1)
		if existingAtLoc > v {
			v = existingAtLoc
		}
		out[tupleKeyOf(t)] = [2]float64{0, v}
	}
	return out
}

func additionUpper(cs *sets.CustomSet, spec Spec, k CapacityType) map[string][2]float64 {
	out := make(map[string][2]float64, len(cs.Tuples))
	maxAdd, ok := spec.MaxAddition[k]
	for _, t := range cs.Tuples {
		if !ok || math.IsInf(maxAdd, 1) {
			out[tupleKeyOf(t)] = [2]float64{0, math.Inf(1)}
		} else {
			out[tupleKeyOf(t)] = [2]float64{0, maxAdd}
		}
	}
	return out
}

func infiniteWhere(p *params.Parameter, locations []string, years []int, k CapacityType) func(sets.Tuple) bool {
	return func(t sets.Tuple) bool {
		v, err := p.Value(t...)
		if err != nil {
			return true
		}
		return params.IsInfinite(v)
	}
}

func tupleKeyOf(t sets.Tuple) string {
	s := ""
	for i, v := range t {
		if i > 0 {
			s += "\x1f"
		}
		s += v
	}
	return s
}
