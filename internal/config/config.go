// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New() initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"

	"github.com/okian/bvsim/internal/attribution/gbt"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: "text" (human-readable, the
	// default) or "json" (structured, for shipping to a log aggregator).
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address for /metrics and /healthz.
	Addr string `koanf:"addr"`

	// EngineFuel overrides engine.DefaultFuel, the max contacts a single
	// rally may take before it's declared a budget failure, for
	// Service.SingleRally only; Simulate and Attribute run with
	// engine.DefaultFuel.
	EngineFuel int `koanf:"engine_fuel"`

	// Workers overrides montecarlo.Request.Workers; 0 selects
	// runtime.NumCPU() at request time.
	Workers int `koanf:"workers"`

	// ModelCacheEnabled toggles the win-probability memoization layer.
	ModelCacheEnabled bool `koanf:"model_cache_enabled"`

	// ModelCachePath selects the SQLite backend when non-empty; empty
	// selects the in-memory backend.
	ModelCachePath    string `koanf:"model_cache_path"`
	ModelCacheMaxSize int    `koanf:"model_cache_max_size"`

	// PerturbationDelta, PerturbationRalliesPerPoint and
	// PerturbationNumPoints parameterize attribution dataset generation.
	PerturbationDelta           float64 `koanf:"perturbation_delta"`
	PerturbationRalliesPerPoint int     `koanf:"perturbation_rallies_per_point"`
	PerturbationNumPoints       int     `koanf:"perturbation_num_points"`

	// AttributionFamily selects the classifier the attribution engine
	// fits: "gbt" or "logistic".
	AttributionFamily string `koanf:"attribution_family"`

	GBTMaxDepth        int     `koanf:"gbt_max_depth"`
	GBTRounds          int     `koanf:"gbt_rounds"`
	GBTLearningRate    float64 `koanf:"gbt_learning_rate"`
	GBTLambda          float64 `koanf:"gbt_lambda"`
	GBTMinChildWeight  float64 `koanf:"gbt_min_child_weight"`
	GBTEarlyStopRounds int     `koanf:"gbt_early_stop_rounds"`

	LogisticCVFolds    int       `koanf:"logistic_cv_folds"`
	LogisticLambdaGrid []float64 `koanf:"logistic_lambda_grid"`
}

// New creates a Config populated with sensible defaults.
func New() *Config {
	gbtDefaults := gbt.DefaultConfig()
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":9080",

		EngineFuel: 256,
		Workers:    runtime.NumCPU(),

		ModelCacheEnabled: true,
		ModelCachePath:    "",
		ModelCacheMaxSize: 10_000,

		PerturbationDelta:           0.05,
		PerturbationRalliesPerPoint: 1,
		PerturbationNumPoints:       500,

		AttributionFamily: "gbt",

		GBTMaxDepth:        gbtDefaults.MaxDepth,
		GBTRounds:          gbtDefaults.Rounds,
		GBTLearningRate:    gbtDefaults.LearningRate,
		GBTLambda:          gbtDefaults.Lambda,
		GBTMinChildWeight:  gbtDefaults.MinChildWeight,
		GBTEarlyStopRounds: gbtDefaults.EarlyStopRounds,

		LogisticCVFolds:    5,
		LogisticLambdaGrid: []float64{0.001, 0.01, 0.1, 1, 10, 100},
	}
}

// GBTConfig adapts the relevant fields into a gbt.Config.
func (c *Config) GBTConfig() gbt.Config {
	return gbt.Config{
		MaxDepth:        c.GBTMaxDepth,
		Rounds:          c.GBTRounds,
		LearningRate:    c.GBTLearningRate,
		Lambda:          c.GBTLambda,
		MinChildWeight:  c.GBTMinChildWeight,
		EarlyStopRounds: c.GBTEarlyStopRounds,
	}
}
