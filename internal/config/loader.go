package config

import (
	"context"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if BVSIM_CONFIG is set
//  3. env (prefix BVSIM_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("BVSIM_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, wrapLoad(err)
		}
	}

	// Environment variables: BVSIM_ADDR, BVSIM_ENGINE_FUEL, ...
	// Map env keys like BVSIM_ENGINE_FUEL -> engine_fuel (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("BVSIM_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "bvsim_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, wrapLoad(err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, wrapLoad(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants New() alone satisfies but a file or env layer
// could break once applied on top of it.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.EngineFuel <= 0:
		return invalid("engine_fuel must be positive")
	case c.ModelCacheMaxSize <= 0:
		return invalid("model_cache_max_size must be positive")
	case c.PerturbationDelta <= 0 || c.PerturbationDelta >= 1:
		return invalid("perturbation_delta must be in (0, 1)")
	case c.PerturbationRalliesPerPoint <= 0:
		return invalid("perturbation_rallies_per_point must be positive")
	case c.PerturbationNumPoints <= 0:
		return invalid("perturbation_num_points must be positive")
	case c.AttributionFamily != "gbt" && c.AttributionFamily != "logistic":
		return invalid("attribution_family must be gbt or logistic")
	case c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json":
		return invalid("log_format must be text or json")
	}
	return nil
}
