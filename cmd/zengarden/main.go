/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

// Command zengarden assembles and solves a capacity-expansion
// optimization model from a struct-shaped configuration file.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spatialmodel/zengarden/internal/config"
	"github.com/spatialmodel/zengarden/internal/horizon"
	"github.com/spatialmodel/zengarden/internal/model"
	"github.com/spatialmodel/zengarden/internal/solver"
)

// unconfiguredBackend stands in for the external solver process/RPC
// endpoint spec.md §1 treats as an opaque collaborator (out of scope).
// It always terminates as SolverError so a production build's job is
// solely to supply a real solver.Backend, not to change any of the
// assembly wired above it.
type unconfiguredBackend struct{}

func (unconfiguredBackend) Solve(opts solver.Options, ctx *model.Context) (solver.Solution, error) {
	return solver.Solution{Status: solver.SolverError, Message: "no solver backend configured"}, nil
}

var configFile string

func main() {
	root := &cobra.Command{
		Use:   "zengarden",
		Short: "A capacity-expansion optimization model for energy systems.",
		Long: `zengarden assembles a multi-period, multi-location linear (or
mixed-integer) program from declarative input data, solves it with an
external solver, and extracts its primal and dual results.

Refer to the subcommand documentation for configuration options and
default settings.`,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "zengarden.toml", "Path to configuration file")

	root.AddCommand(runCmd(), rollingHorizonCmd(), validateCmd(), initConfigCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Assemble and solve the model once.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			logrus.Infof("zengarden: loaded configuration from %s (objective=%s, sense=%s)", configFile, cfg.Analysis.ObjectiveName, cfg.Analysis.Sense)

			a, err := construct(cfg)
			if err != nil {
				return err
			}
			logrus.Infof("zengarden: assembled %d variables, %d constraints across %d carriers and %d technologies",
				len(a.ctx.Variables()), len(a.ctx.Constraints()), len(a.carriers), len(a.technologies))

			adapter := &solver.Adapter{Backend: unconfiguredBackend{}}
			sol, err := adapter.Solve(solver.Options{
				SolverName:   cfg.Solver.Name,
				Tolerance:    cfg.Solver.Tolerance,
				ThreadCount:  cfg.Solver.ThreadCount,
				ExtractDuals: cfg.Solver.ExtractDuals,
				TimeLimit:    cfg.Solver.TimeLimit,
			}, a.ctx)
			if err != nil {
				return fmt.Errorf("solving: %w", err)
			}
			logrus.Infof("zengarden: solve terminated as %s (%s)", sol.Status, sol.Message)
			return nil
		},
	}
}

func rollingHorizonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rolling-horizon",
		Short: "Run the serialized assemble/solve/extract/update loop across the horizon.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			logrus.Infof("zengarden: rolling-horizon over %d iterations, %d-year interval steps", cfg.System.PlanningHorizonYears, cfg.System.IntervalBetweenYears)

			adapter := &solver.Adapter{Backend: unconfiguredBackend{}}
			opts := solver.Options{
				SolverName:   cfg.Solver.Name,
				Tolerance:    cfg.Solver.Tolerance,
				ThreadCount:  cfg.Solver.ThreadCount,
				ExtractDuals: cfg.Solver.ExtractDuals,
				TimeLimit:    cfg.Solver.TimeLimit,
			}
			assemble := func(iteration int, existingState interface{}) (*model.Context, error) {
				logrus.Infof("zengarden: rolling-horizon iteration %d: re-assembling from %s", iteration, configFile)
				a, err := construct(cfg)
				if err != nil {
					return nil, err
				}
				return a.ctx, nil
			}
			update := func(ctx *model.Context, sol solver.Solution) (interface{}, error) {
				// Carrying the solved capacity state forward into the next
				// iteration's existing-generation inputs requires the data
				// ingestion layer out of scope per spec.md §1; nil keeps
				// every iteration's assembly independent of the last.
				return nil, nil
			}
			results, err := horizon.Run(cfg.System.PlanningHorizonYears, assemble, adapter, opts, update)
			if err != nil {
				return fmt.Errorf("rolling horizon: %w", err)
			}
			for _, r := range results {
				logrus.Infof("zengarden: rolling-horizon iteration %d terminated as %s", r.Year, r.Solution.Status)
			}
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Construct the index registry and parameter store without solving.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			if len(cfg.System.Carriers) == 0 {
				return fmt.Errorf("configuration error: system.carriers must not be empty")
			}
			if _, err := construct(cfg); err != nil {
				return err
			}
			logrus.Infof("zengarden: configuration %s is structurally valid (%d carriers, %d nodes)", configFile, len(cfg.System.Carriers), len(cfg.System.Nodes))
			return nil
		},
	}
}

func initConfigCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a default configuration file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.WriteDefaultTOML(out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "zengarden.toml", "Path to write the default configuration file")
	return cmd
}
