/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

// Package config loads the struct-shaped analysis/system/solver input
// configuration of spec.md §6 through github.com/lnashier/viper, the same
// fork the teacher vendors, with github.com/BurntSushi/toml as the default
// on-disk format.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/lnashier/viper"

	"github.com/spatialmodel/zengarden/internal/tsa"
)

// ClusterMethod mirrors analysis.cluster_method (spec.md §6).
type ClusterMethod string

const (
	KMeans   ClusterMethod = "k_means"
	KMedoids ClusterMethod = "k_medoids"
)

// Analysis holds analysis-section configuration (spec.md §6).
type Analysis struct {
	ObjectiveName  string
	Sense          string // "minimize" or "maximize"
	DiscountRate   float64
	RoundingDecimals int

	HoursPerPeriod      int
	Resolution          int
	ClusterMethod       ClusterMethod
	Solver              string
	ExtremePeriodMethod string
	Rescale             bool
	Representation      string // "meanRepresentation" | "segmentedRepresentation"

	DatasetHeaders []string
}

// System holds system-section configuration (spec.md §6).
type System struct {
	Carriers               []string
	Nodes                  []string
	Edges                  []string
	ConversionTechnologies  []string
	TransportTechnologies   []string
	StorageTechnologies     []string

	IntervalBetweenYears        int
	PlanningHorizonYears        int // Y, the number of yearly investment periods
	UnaggregatedTimeStepsPerYear int
	TotalHoursPerYear            int
	AggregatedTimeStepsPerYear   int
	SetCapacityTypes             []string // [power, energy]

	ConductTimeSeriesAggregation bool
	ExcludeParametersFromTSA     [][2]string
	DoubleCapexTransport         bool
	KnowledgeDepreciationRate    float64
	KnowledgeSpilloverRate       float64
	UnboundedMarketShare         float64
	BidirectionalTransportTechnologies []string
}

// Solver holds solver-section configuration (spec.md §6). Options is
// passed through opaquely to the external solver, per spec.md §1's
// scope note ("the low-level solver interface... only inputs/outputs of
// a solve call are relevant").
type Solver struct {
	Name        string
	Tolerance   float64
	ThreadCount int
	ExtractDuals bool
	TimeLimit   time.Duration
	Options     map[string]interface{}
}

// Config is the full struct-shaped input configuration.
type Config struct {
	Analysis Analysis
	System   System
	Solver   Solver
}

// Load reads a configuration file through viper, defaulting unset fields
// the way spec.md §3's Parameter defaults work: 0 for additive quantities,
// +∞ is left to callers (not representable in TOML, so +∞ bounds are
// supplied as explicit parameter values downstream, not as config
// defaults here).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ZENGARDEN")
	v.AutomaticEnv()

	setDefaults(v)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Analysis: Analysis{
			ObjectiveName:       v.GetString("analysis.objective_name"),
			Sense:               v.GetString("analysis.sense"),
			DiscountRate:        v.GetFloat64("analysis.discount_rate"),
			RoundingDecimals:    v.GetInt("analysis.rounding_decimals"),
			HoursPerPeriod:      v.GetInt("analysis.hours_per_period"),
			Resolution:          v.GetInt("analysis.resolution"),
			ClusterMethod:       ClusterMethod(v.GetString("analysis.cluster_method")),
			Solver:              v.GetString("analysis.solver"),
			ExtremePeriodMethod: v.GetString("analysis.extreme_period_method"),
			Rescale:             v.GetBool("analysis.rescale"),
			Representation:      v.GetString("analysis.representation"),
			DatasetHeaders:      v.GetStringSlice("analysis.dataset_headers"),
		},
		System: System{
			Carriers:               v.GetStringSlice("system.carriers"),
			Nodes:                  v.GetStringSlice("system.nodes"),
			Edges:                  v.GetStringSlice("system.edges"),
			ConversionTechnologies:  v.GetStringSlice("system.conversion_technologies"),
			TransportTechnologies:   v.GetStringSlice("system.transport_technologies"),
			StorageTechnologies:     v.GetStringSlice("system.storage_technologies"),
			IntervalBetweenYears:        v.GetInt("system.interval_between_years"),
			PlanningHorizonYears:        v.GetInt("system.planning_horizon_years"),
			UnaggregatedTimeStepsPerYear: v.GetInt("system.unaggregated_time_steps_per_year"),
			TotalHoursPerYear:            v.GetInt("system.total_hours_per_year"),
			AggregatedTimeStepsPerYear:   v.GetInt("system.aggregated_time_steps_per_year"),
			SetCapacityTypes:             v.GetStringSlice("system.set_capacity_types"),
			ConductTimeSeriesAggregation: v.GetBool("system.conduct_time_series_aggregation"),
			DoubleCapexTransport:         v.GetBool("system.double_capex_transport"),
			KnowledgeDepreciationRate:    v.GetFloat64("system.knowledge_depreciation_rate"),
			KnowledgeSpilloverRate:       v.GetFloat64("system.knowledge_spillover_rate"),
			UnboundedMarketShare:         v.GetFloat64("system.unbounded_market_share"),
			BidirectionalTransportTechnologies: v.GetStringSlice("system.bidirectional_transport_technologies"),
		},
		Solver: Solver{
			Name:         v.GetString("solver.name"),
			Tolerance:    v.GetFloat64("solver.tolerance"),
			ThreadCount:  v.GetInt("solver.thread_count"),
			ExtractDuals: v.GetBool("solver.extract_duals"),
			TimeLimit:    v.GetDuration("solver.time_limit"),
		},
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("analysis.sense", "minimize")
	v.SetDefault("analysis.objective_name", "total_cost")
	v.SetDefault("analysis.rounding_decimals", 6)
	v.SetDefault("analysis.cluster_method", string(KMeans))
	v.SetDefault("analysis.representation", "segmentedRepresentation")
	v.SetDefault("system.interval_between_years", 1)
	v.SetDefault("system.planning_horizon_years", 1)
	v.SetDefault("system.conduct_time_series_aggregation", true)
	v.SetDefault("system.set_capacity_types", []string{"power", "energy"})
	v.SetDefault("solver.extract_duals", true)
}

// TSAConfig builds the Time-Series Aggregator's configuration from the
// analysis section (spec.md §6), the wiring point between the on-disk
// configuration and internal/tsa.Aggregator.
func (c *Config) TSAConfig() tsa.Config {
	method := tsa.KMeans
	if c.Analysis.ClusterMethod == KMedoids {
		method = tsa.KMedoids
	}
	return tsa.Config{
		HoursPerPeriod:     c.Analysis.HoursPerPeriod,
		Representative:     c.System.AggregatedTimeStepsPerYear,
		Method:             method,
		KeepExtremePeriods: c.Analysis.ExtremePeriodMethod != "" && c.Analysis.ExtremePeriodMethod != "none",
		Conduct:            c.System.ConductTimeSeriesAggregation,
		Representation:     c.Analysis.Representation,
	}
}

// WriteDefaultTOML writes a commented default configuration file to path
// using BurntSushi/toml, the format the teacher's own pack carries as a
// direct dependency for default-config generation.
func WriteDefaultTOML(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := toml.NewEncoder(f)
	return enc.Encode(defaultConfig())
}

func defaultConfig() *Config {
	return &Config{
		Analysis: Analysis{Sense: "minimize", ObjectiveName: "total_cost", RoundingDecimals: 6, ClusterMethod: KMeans, Representation: "segmentedRepresentation"},
		System:   System{IntervalBetweenYears: 1, PlanningHorizonYears: 1, ConductTimeSeriesAggregation: true, SetCapacityTypes: []string{"power", "energy"}},
		Solver:   Solver{ExtractDuals: true},
	}
}
