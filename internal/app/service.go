// Package service wires the domain packages (engine, montecarlo,
// perturbation, attribution, modelcache) behind a single facade, the same
// role okian-cuju's internal/app.Service plays for the leaderboard system:
// one struct, built with functional options, that owns every adapter's
// lifecycle and exposes a small set of use-case methods to cmd/.
package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/bvsim/internal/adapters/modelcache"
	"github.com/okian/bvsim/internal/adapters/montecarlo"
	"github.com/okian/bvsim/internal/adapters/perturbation"
	"github.com/okian/bvsim/internal/attribution"
	"github.com/okian/bvsim/internal/config"
	"github.com/okian/bvsim/internal/domain/engine"
	"github.com/okian/bvsim/internal/domain/errs"
	"github.com/okian/bvsim/internal/domain/rally"
	"github.com/okian/bvsim/internal/domain/teamstats"
	"github.com/okian/bvsim/internal/rng"
	"github.com/okian/bvsim/pkg/logger"
)

// Service exposes the three end-to-end use cases a caller (the CLI, or any
// future API) drives: running a batch of rallies to a win probability,
// running and tracing a single rally, and fitting an attribution report
// over a perturbed dataset.
type Service struct {
	mu sync.RWMutex

	// Core components
	driver *montecarlo.Driver
	cache  modelcache.Cache

	cfg *config.Config

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig overrides the default config.Config.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCache injects a pre-built model cache, bypassing cfg's
// ModelCacheEnabled/ModelCachePath selection. Mainly useful for tests.
func WithCache(c modelcache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg: config.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service's adapters: the Monte Carlo driver and,
// if enabled, the model cache. It is idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.driver = montecarlo.New(montecarlo.WithLogger(s.logger.Named("montecarlo")))

	if s.cache == nil && s.cfg.ModelCacheEnabled {
		cache, err := s.buildCache()
		if err != nil {
			return err
		}
		s.cache = cache
	}

	s.started = true
	s.logger.Info(ctx, "simulator service started",
		logger.Int("workers", s.cfg.Workers),
		logger.Int("engine_fuel", s.cfg.EngineFuel),
		logger.String("model_cache_path", s.cfg.ModelCachePath),
	)
	return nil
}

func (s *Service) buildCache() (modelcache.Cache, error) {
	if s.cfg.ModelCachePath == "" {
		return modelcache.NewMemory(modelcache.WithMaxSize(s.cfg.ModelCacheMaxSize)), nil
	}
	return modelcache.Open(s.cfg.ModelCachePath)
}

// Stop releases the service's adapters.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if s.cache != nil {
		_ = s.cache.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "simulator service stopped")
}

// SimulateRequest is one batch Monte Carlo request.
type SimulateRequest struct {
	TeamA, TeamB teamstats.Stats
	Serving      rally.TeamID
	NumRallies   int
	Seed         uint64
	Model        teamstats.ConditionalModel
	Momentum     *montecarlo.MomentumConfig
}

// Simulate runs req through the Monte Carlo driver, consulting the model
// cache first when req carries no momentum extension (momentum's streak
// bookkeeping is not part of the cache key, so a cache hit would be
// incorrect for it).
func (s *Service) Simulate(ctx context.Context, req SimulateRequest) (montecarlo.Result, error) {
	const op = "service.Simulate"

	runID := uuid.NewString()
	s.logger.Debug(ctx, "simulate run started",
		logger.String("run_id", runID), logger.Int("num_rallies", req.NumRallies))

	model := req.Model
	if model.SetGivenReception == nil {
		model = teamstats.DefaultConditionalModel()
	}

	var cacheKey string
	if s.cache != nil && req.Momentum == nil {
		cacheKey = modelcache.Key(req.Serving, req.TeamA, req.TeamB, model, req.NumRallies)
		if entry, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
			return montecarlo.Result{
				RalliesRun: req.NumRallies,
				PWinA:      entry.PWinA,
				CILow:      entry.CILow,
				CIHigh:     entry.CIHigh,
				CIMethod:   entry.CIMethod,
			}, nil
		}
	}

	workers := s.cfg.Workers
	result, err := s.driver.Run(ctx, montecarlo.Request{
		NumRallies: req.NumRallies,
		Serving:    req.Serving,
		TeamA:      req.TeamA,
		TeamB:      req.TeamB,
		Model:      model,
		Seed:       req.Seed,
		Momentum:   req.Momentum,
		Workers:    workers,
	})
	if err != nil {
		return montecarlo.Result{}, errs.Wrap(op, errs.KindOf(err), err)
	}

	if cacheKey != "" {
		_ = s.cache.Put(ctx, cacheKey, modelcache.Entry{
			PWinA:    result.PWinA,
			CILow:    result.CILow,
			CIHigh:   result.CIHigh,
			CIMethod: result.CIMethod,
		})
	}

	s.logger.Debug(ctx, "simulate run finished",
		logger.String("run_id", runID), logger.Float64("p_win_a", result.PWinA))

	return result, nil
}

// SingleRallyRequest runs exactly one rally and returns its full trajectory.
type SingleRallyRequest struct {
	TeamA, TeamB teamstats.Stats
	Serving      rally.TeamID
	Seed         uint64
	Model        teamstats.ConditionalModel
}

// SingleRally runs one traced rally, for callers that want to inspect the
// state sequence rather than an aggregate probability.
func (s *Service) SingleRally(_ context.Context, req SingleRallyRequest) (rally.Outcome, error) {
	model := req.Model
	if model.SetGivenReception == nil {
		model = teamstats.DefaultConditionalModel()
	}

	eng := engine.New(engine.WithFuel(s.cfg.EngineFuel), engine.WithTrajectory(true))
	source := rng.New(req.Seed)
	return eng.Run(source, req.Serving, req.TeamA, req.TeamB, model)
}

// AttributeRequest drives end-to-end dataset generation followed by
// classifier fitting.
type AttributeRequest struct {
	TeamA, TeamB teamstats.Stats
	Model        teamstats.ConditionalModel
	Seed         uint64

	NumPoints       int
	Delta           float64
	RalliesPerPoint int

	AttributionConfig attribution.Config
}

// Attribute generates a perturbation dataset around TeamA/TeamB and fits
// the configured classifier against it, returning the attribution report.
func (s *Service) Attribute(ctx context.Context, req AttributeRequest) (attribution.Report, error) {
	const op = "service.Attribute"

	runID := uuid.NewString()
	s.logger.Debug(ctx, "attribute run started", logger.String("run_id", runID))

	model := req.Model
	if model.SetGivenReception == nil {
		model = teamstats.DefaultConditionalModel()
	}

	numPoints := req.NumPoints
	if numPoints <= 0 {
		numPoints = s.cfg.PerturbationNumPoints
	}
	delta := req.Delta
	if delta <= 0 {
		delta = s.cfg.PerturbationDelta
	}
	rallies := req.RalliesPerPoint
	if rallies <= 0 {
		rallies = s.cfg.PerturbationRalliesPerPoint
	}

	ds, err := perturbation.Generate(ctx, req.TeamA, req.TeamB, perturbation.Config{
		NumPoints:       numPoints,
		Delta:           delta,
		RalliesPerPoint: rallies,
		Model:           model,
		Seed:            req.Seed,
		Workers:         s.cfg.Workers,
	})
	if err != nil {
		return attribution.Report{}, errs.Wrap(op, errs.KindOf(err), err)
	}

	acfg := req.AttributionConfig
	if acfg.GBT.Rounds == 0 && acfg.Family != attribution.Logistic {
		acfg = s.defaultAttributionConfig()
	}

	report, err := attribution.Fit(ds, acfg)
	s.logger.Debug(ctx, "attribute run finished",
		logger.String("run_id", runID), logger.Float64("holdout_auc", report.HoldoutAUC))
	return report, err
}

func (s *Service) defaultAttributionConfig() attribution.Config {
	cfg := attribution.DefaultConfig()
	cfg.GBT = s.cfg.GBTConfig()
	cfg.CVFolds = s.cfg.LogisticCVFolds
	cfg.LambdaGrid = s.cfg.LogisticLambdaGrid
	if s.cfg.AttributionFamily == "logistic" {
		cfg.Family = attribution.Logistic
	}
	return cfg
}
