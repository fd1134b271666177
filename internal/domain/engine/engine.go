// Package engine drives a single rally to completion by repeatedly sampling
// the probability kernel, the state-machine shape spec.md §4.2 describes.
// It mirrors the bounded-loop structure of okian-cuju's
// internal/adapters/mq/worker.InMemoryWorker.Run (select-driven loop with a
// hard exit condition) and the possession bookkeeping of
// original_source's rally_simulator.py, but it runs fully in-process with
// no channels: a rally is sequential by construction, never data-parallel.
package engine

import (
	"github.com/okian/bvsim/internal/domain/errs"
	"github.com/okian/bvsim/internal/domain/kernel"
	"github.com/okian/bvsim/internal/domain/rally"
	"github.com/okian/bvsim/internal/domain/teamstats"
)

// DefaultFuel is the maximum number of contacts a rally may take before the
// engine gives up and reports errs.BudgetExceeded, per spec.md §4.2's
// "pathological parameterizations must not hang a shard" requirement.
const DefaultFuel = 256

// Sampler draws a uniform variate in [0, 1). The Monte Carlo driver supplies
// a seeded, counter-based implementation; tests can supply a fixed sequence.
type Sampler interface {
	Float64() float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithFuel overrides DefaultFuel.
func WithFuel(fuel int) Option {
	return func(e *Engine) {
		if fuel > 0 {
			e.fuel = fuel
		}
	}
}

// WithTrajectory makes Run record every visited state onto the returned
// rally.Outcome. Off by default: spec.md §4.3 batches millions of rallies,
// and retaining a trajectory for each is wasted allocation the aggregate
// statistics never need.
func WithTrajectory(enabled bool) Option {
	return func(e *Engine) { e.trace = enabled }
}

// Engine runs one rally at a time against a kernel. It holds no per-rally
// state between calls to Run, so a single Engine is reused across an entire
// shard.
type Engine struct {
	kernel *kernel.Kernel
	fuel   int
	trace  bool
}

// New builds an Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		kernel: kernel.New(),
		fuel:   DefaultFuel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run simulates one rally from serve to point, sampling from rng. teamA and
// teamB must already be validated; the engine does not re-validate them on
// every rally for performance, matching spec.md §4.3's batch-validate-once
// contract (the driver validates before spawning shards).
func (e *Engine) Run(rng Sampler, serving rally.TeamID, teamA, teamB teamstats.Stats, model teamstats.ConditionalModel) (rally.Outcome, error) {
	const op = "engine.Run"

	ctx := rally.NewContext(serving)
	state := rally.ServeAttempt

	var trajectory []rally.State
	if e.trace {
		trajectory = append(trajectory, state)
	}

	for step := 0; ; step++ {
		if step >= e.fuel {
			return rally.Outcome{}, errs.New(op, errs.BudgetExceeded)
		}

		branches, err := e.kernel.Transitions(state, ctx, teamA, teamB, model)
		if err != nil {
			return rally.Outcome{}, errs.Wrap(op, errs.InvalidStats, err)
		}

		next, possession := sample(branches, rng.Float64())
		ctx.PrevState = state
		ctx.Possession = possession
		ctx.ContactCount++
		state = next

		if e.trace {
			trajectory = append(trajectory, state)
		}

		if state.Terminal() {
			ctx.PointWinner = possession
			return rally.Outcome{
				Winner:     ctx.PointWinner,
				Serving:    serving,
				Contacts:   ctx.ContactCount,
				Trajectory: trajectory,
			}, nil
		}
	}
}

// sample performs inverse-CDF selection over branches using u, a uniform
// variate in [0, 1). The last branch always absorbs residual floating-point
// mass so selection never falls through for u arbitrarily close to 1.
func sample(branches []kernel.Branch, u float64) (rally.State, rally.TeamID) {
	var acc float64
	for i, b := range branches {
		acc += b.Probability
		if u < acc || i == len(branches)-1 {
			return b.Next, b.Possession
		}
	}
	// Unreachable: branches is always non-empty.
	return rally.StatePointFor, rally.TeamA
}
