package config

import (
	"fmt"
	"math"
	"strings"
)

// Validate checks the config for:
//   - Required fields (version, network path)
//   - Duplicate experiment IDs
//   - Rates and horizons the simulator would reject
//   - Empty or repeated seed sets
//
// Seed labels are checked against the network later, when it is loaded.
func Validate(cfg *SimConfig) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string
	if cfg.Network.Path == "" {
		errs = append(errs, "network.path is required")
	}
	if cfg.Engine.TrialWorkers < 0 || cfg.Engine.QueueDepth < 0 || cfg.Engine.TrialTimeoutMs < 0 || cfg.Engine.MaxBatches < 0 {
		errs = append(errs, "engine settings must not be negative")
	}

	ids := make(map[string]int)
	for i, ex := range cfg.Experiments {
		if ex.ID == "" {
			errs = append(errs, fmt.Sprintf("experiments[%d]: id is required", i))
			continue
		}
		if prev, ok := ids[ex.ID]; ok {
			errs = append(errs, fmt.Sprintf("duplicate id %q (experiments[%d] and experiments[%d])", ex.ID, prev, i))
		} else {
			ids[ex.ID] = i
		}
		errs = append(errs, validateExperiment(ex)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateExperiment(ex Experiment) []string {
	var errs []string
	loc := "experiment " + ex.ID
	if !(ex.Beta >= 0) || math.IsInf(ex.Beta, 0) {
		errs = append(errs, fmt.Sprintf("%s: beta must be finite and >= 0, got %v", loc, ex.Beta))
	}
	if !(ex.Gamma > 0) || math.IsInf(ex.Gamma, 0) {
		errs = append(errs, fmt.Sprintf("%s: gamma must be finite and > 0, got %v", loc, ex.Gamma))
	}
	if !(ex.MaxTime > 0) {
		errs = append(errs, fmt.Sprintf("%s: max_time must be > 0, got %v", loc, ex.MaxTime))
	}
	if ex.Trials < 0 {
		errs = append(errs, fmt.Sprintf("%s: trials must be >= 0, got %d", loc, ex.Trials))
	}
	if len(ex.Seeds) == 0 {
		errs = append(errs, fmt.Sprintf("%s: seeds must not be empty", loc))
	}
	seen := make(map[string]struct{}, len(ex.Seeds))
	for _, s := range ex.Seeds {
		if _, dup := seen[s]; dup {
			errs = append(errs, fmt.Sprintf("%s: seed %q listed twice", loc, s))
		}
		seen[s] = struct{}{}
	}
	return errs
}
