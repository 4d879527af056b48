package config

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Validate rejects configurations the orchestrator cannot run with. Operation
// argument schemas are compiled here so a bad schema fails startup instead of
// a live call.
func Validate(cfg Config) error {
	seen := make(map[string]bool, len(cfg.Workers))
	for _, w := range cfg.Workers {
		if w.Name == "" {
			return fmt.Errorf("worker with empty name")
		}
		if seen[w.Name] {
			return fmt.Errorf("duplicate worker name: %s", w.Name)
		}
		seen[w.Name] = true

		if w.Command == "" {
			return fmt.Errorf("worker %s has no launch command", w.Name)
		}
		if w.MaxInFlight < 0 {
			return fmt.Errorf("worker %s: max_in_flight must be >= 0", w.Name)
		}

		ops := make(map[string]bool, len(w.Operations))
		for _, op := range w.Operations {
			if op.Name == "" {
				return fmt.Errorf("worker %s declares an operation with empty name", w.Name)
			}
			if ops[op.Name] {
				return fmt.Errorf("worker %s declares operation %s twice", w.Name, op.Name)
			}
			ops[op.Name] = true

			if op.Schema != nil {
				loader := gojsonschema.NewGoLoader(op.Schema)
				if _, err := gojsonschema.NewSchema(loader); err != nil {
					return fmt.Errorf("worker %s operation %s: bad argument schema: %w", w.Name, op.Name, err)
				}
			}
		}
	}

	if len(cfg.Stages) > 0 {
		sum := 0
		stageNames := make(map[string]bool, len(cfg.Stages))
		for _, s := range cfg.Stages {
			if s.Name == "" {
				return fmt.Errorf("stage with empty name")
			}
			if stageNames[s.Name] {
				return fmt.Errorf("duplicate stage name: %s", s.Name)
			}
			stageNames[s.Name] = true
			if s.Weight < 0 {
				return fmt.Errorf("stage %s has negative weight", s.Name)
			}
			sum += s.Weight
		}
		if sum != 100 {
			return fmt.Errorf("stage weights sum to %d, want 100", sum)
		}
	}

	if cfg.RateLimit.MinInterval < 0 {
		return fmt.Errorf("rate_limit.min_interval must be >= 0")
	}
	if cfg.RateLimit.RefreshInterval <= 0 {
		return fmt.Errorf("rate_limit.refresh_interval must be > 0")
	}
	if cfg.Calls.Timeout <= 0 {
		return fmt.Errorf("calls.timeout must be > 0")
	}
	switch cfg.Calls.Strategy {
	case "", "persistent", "ephemeral":
	default:
		return fmt.Errorf("calls.strategy must be persistent or ephemeral, got %q", cfg.Calls.Strategy)
	}

	return nil
}
