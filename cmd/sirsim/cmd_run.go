package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/netsir/internal/config"
	"github.com/gyaneshwarpardhi/netsir/internal/engine"
	"github.com/gyaneshwarpardhi/netsir/internal/logging"
	"github.com/gyaneshwarpardhi/netsir/internal/store"
)

const cliExperiment = "cli"

// addExperimentFlags registers the flags that describe one experiment.
func addExperimentFlags(cmd *cobra.Command) {
	cmd.Flags().String("network", "", "Edge list file (u v [weight] per line)")
	cmd.Flags().String("seeds", "", "Comma-separated seed node labels")
	cmd.Flags().Float64("beta", 0.25, "Infection rate per susceptible-infected edge")
	cmd.Flags().Float64("gamma", 1, "Recovery rate per infected node")
	cmd.Flags().Float64("max-time", 50, "Simulated time horizon")
	cmd.Flags().Uint64("rng-seed", 1, "Random stream seed")
	cmd.MarkFlagRequired("network")
	cmd.MarkFlagRequired("seeds")
}

// experimentConfig builds a single-experiment config from flags.
func experimentConfig(cmd *cobra.Command, trials, workers int) (*config.SimConfig, error) {
	path, _ := cmd.Flags().GetString("network")
	seeds, _ := cmd.Flags().GetString("seeds")
	beta, _ := cmd.Flags().GetFloat64("beta")
	gamma, _ := cmd.Flags().GetFloat64("gamma")
	maxTime, _ := cmd.Flags().GetFloat64("max-time")
	rngSeed, _ := cmd.Flags().GetUint64("rng-seed")
	level, _ := cmd.Flags().GetString("log-level")

	var labels []string
	for _, s := range strings.Split(seeds, ",") {
		if s = strings.TrimSpace(s); s != "" {
			labels = append(labels, s)
		}
	}
	cfg := &config.SimConfig{
		Version: "cli",
		Engine: config.EngineConf{
			TrialWorkers:   workers,
			QueueDepth:     workers * 4,
			TrialTimeoutMs: 10 * 60 * 1000,
			LogLevel:       level,
		},
		Network: config.NetworkConf{Path: path},
		Experiments: []config.Experiment{{
			ID:      cliExperiment,
			Enabled: true,
			Beta:    beta,
			Gamma:   gamma,
			MaxTime: maxTime,
			Seeds:   labels,
			Trials:  trials,
			RNGSeed: rngSeed,
		}},
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// startEngine loads the network and starts an engine backed by an in-memory store.
func startEngine(ctx context.Context, cfg *config.SimConfig) (*engine.Engine, func(), error) {
	logger := logging.NewLogger(cfg.Engine.LogLevel, os.Stderr)
	model, err := engine.LoadModel(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(ctx, "")
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	eng := engine.New(ctx, model, st, cfg.Engine, logger)
	return eng, func() {
		cancel()
		eng.Shutdown()
		st.Close()
	}, nil
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation and write its S/I/R timeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			trial, _ := cmd.Flags().GetInt("trial")
			out, _ := cmd.Flags().GetString("out")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := experimentConfig(cmd, 1, 1)
			if err != nil {
				return err
			}
			eng, stop, err := startEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer stop()

			res, err := eng.RunTrial(cmd.Context(), cliExperiment, trial)
			if err != nil {
				return err
			}
			if res.Error != "" {
				return fmt.Errorf("simulation failed: %s", res.Error)
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if jsonOut {
				return json.NewEncoder(w).Encode(res)
			}
			if err := res.Result.Timeline.WriteCSV(w); err != nil {
				return fmt.Errorf("failed to write timeline: %w", err)
			}
			final := res.Result.Timeline.Final()
			fmt.Fprintf(cmd.ErrOrStderr(), "%s at t=%.4g: S=%d I=%d R=%d\n",
				res.Result.Outcome, final.T, final.S, final.I, final.R)
			return nil
		},
	}
	addExperimentFlags(cmd)
	cmd.Flags().Int("trial", 0, "Trial number (selects the random stream)")
	cmd.Flags().String("out", "-", "Timeline CSV output file ('-' for stdout)")
	return cmd
}
