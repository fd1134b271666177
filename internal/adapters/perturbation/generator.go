// Package perturbation generates the labeled dataset the attribution
// engine trains on, spec.md §4.4's Perturbation Data Generator: starting
// from two baseline team profiles, it samples R perturbed stat pairs and,
// for each, runs M rallies directly through the rally engine, emitting one
// labeled row per rally (R×M rows total) with that rally's own winner as
// the label. The fan-out across points mirrors the producer/consumer shape
// of okian-cuju's internal/adapters/mq/queue and mq/worker — a bounded unit
// of work handed to a pool of workers — but collapsed into a single
// in-process conc pool rather than a channel-backed queue, since this
// pipeline never crosses a goroutine boundary the caller needs visibility
// into.
package perturbation

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/okian/bvsim/internal/domain/engine"
	"github.com/okian/bvsim/internal/domain/errs"
	"github.com/okian/bvsim/internal/domain/rally"
	"github.com/okian/bvsim/internal/domain/teamstats"
	"github.com/okian/bvsim/internal/rng"
	"github.com/okian/bvsim/pkg/metrics"
)

// defaultDelta is the additive noise half-width spec.md §4.4 defaults to.
const defaultDelta = 0.05

// defaultRalliesPerPoint is how many rallies label a single perturbed
// point (M in spec.md §4.4, defaulting to 1: one match per point, its
// actual winner as the label).
const defaultRalliesPerPoint = 1

// Config parameterizes dataset generation.
type Config struct {
	NumPoints        int // R
	Delta            float64
	RalliesPerPoint  int // M
	Model            teamstats.ConditionalModel
	Seed             uint64
	Workers          int
}

// Row is one labeled sample: the perturbed feature vector (in
// teamstats.Table order, "a_" then "b_" prefixed) and the binary label.
type Row struct {
	Features []float64
	TeamAWin bool
	PWinA    float64
}

// Dataset is the output of Generate: column names (shared across every
// row) and the row matrix.
type Dataset struct {
	Columns []string
	Rows    []Row
}

// columns builds the fixed "a_<name>"/"b_<name>" column list in
// teamstats.Table order, skipping derived (non-mutable) fields — spec.md
// §4.4 perturbs raw rates only.
func columns() []string {
	cols := make([]string, 0, 2*len(teamstats.Table))
	for _, f := range teamstats.Table {
		if !f.Mutable() {
			continue
		}
		cols = append(cols, "a_"+f.Name)
	}
	for _, f := range teamstats.Table {
		if !f.Mutable() {
			continue
		}
		cols = append(cols, "b_"+f.Name)
	}
	return cols
}

// Generate runs cfg.NumPoints independent perturbations of baselineA and
// baselineB, runs cfg.RalliesPerPoint rallies against each, and returns one
// row per rally (R×M rows total) — spec.md §4.4's "for each design point,
// run M rallies... emit one row per rally" contract, and the same shape
// original_source's _generate_training_data uses at M=1: one match per
// perturbed point, labeled by its actual winner rather than a rounded
// aggregate probability. It aborts the whole run on the first point that
// errors, the same fail-fast contract montecarlo.Driver.Run applies within
// one batch.
func Generate(ctx context.Context, baselineA, baselineB teamstats.Stats, cfg Config) (Dataset, error) {
	const op = "perturbation.Generate"

	if err := baselineA.Validate(); err != nil {
		return Dataset{}, errs.Wrap(op, errs.InvalidStats, err)
	}
	if err := baselineB.Validate(); err != nil {
		return Dataset{}, errs.Wrap(op, errs.InvalidStats, err)
	}
	if cfg.NumPoints <= 0 {
		return Dataset{}, errs.New(op, errs.InvalidStats)
	}

	delta := cfg.Delta
	if delta <= 0 {
		delta = defaultDelta
	}
	rallies := cfg.RalliesPerPoint
	if rallies <= 0 {
		rallies = defaultRalliesPerPoint
	}
	model := cfg.Model
	if model.SetGivenReception == nil {
		model = teamstats.DefaultConditionalModel()
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	p := pool.NewWithResults[[]Row]().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(workers)

	for i := 0; i < cfg.NumPoints; i++ {
		pointSeed := cfg.Seed + uint64(i)*2654435761
		p.Go(func(ctx context.Context) ([]Row, error) {
			return generatePoint(ctx, baselineA, baselineB, model, pointSeed, delta, rallies)
		})
	}

	perPoint, err := p.Wait()
	if err != nil {
		return Dataset{}, errs.Wrap(op, errs.KindOf(err), err)
	}

	rows := make([]Row, 0, cfg.NumPoints*rallies)
	for _, pr := range perPoint {
		rows = append(rows, pr...)
	}

	metrics.RecordDatasetRowsGenerated(len(rows))
	return Dataset{Columns: columns(), Rows: rows}, nil
}

// generatePoint perturbs both teams' mutable stats with ±delta additive
// noise, clamps and renormalizes per spec.md §4.4, then runs rallies
// independent rallies against the perturbed pair and returns one Row per
// rally, each sharing the point's feature vector but carrying its own
// rally's actual winner as the label. PWinA is the point's own empirical
// win rate across those rallies — a free byproduct of running them — kept
// on every row so attribution's reliability/margin-of-error metrics still
// have a confidence signal to read.
func generatePoint(
	ctx context.Context,
	baselineA, baselineB teamstats.Stats,
	model teamstats.ConditionalModel,
	seed uint64,
	delta float64,
	rallies int,
) ([]Row, error) {
	const op = "perturbation.generatePoint"

	source := rng.New(seed)
	pa := perturb(baselineA, delta, source)
	pb := perturb(baselineB, delta, source)

	if err := pa.Validate(); err != nil {
		return nil, errs.Wrap(op, errs.InvalidStats, err)
	}
	if err := pb.Validate(); err != nil {
		return nil, errs.Wrap(op, errs.InvalidStats, err)
	}

	features := make([]float64, 0, 2*len(teamstats.Table))
	for _, f := range teamstats.Table {
		if !f.Mutable() {
			continue
		}
		features = append(features, f.Get(pa))
	}
	for _, f := range teamstats.Table {
		if !f.Mutable() {
			continue
		}
		features = append(features, f.Get(pb))
	}

	eng := engine.New()
	wins := make([]bool, rallies)
	var winsA int
	for i := 0; i < rallies; i++ {
		if i%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, errs.Wrap(op, errs.Cancelled, ctx.Err())
			default:
			}
		}
		outcome, err := eng.Run(source, rally.TeamA, pa, pb, model)
		if err != nil {
			return nil, errs.Wrap(op, errs.KindOf(err), err)
		}
		wins[i] = outcome.Winner == rally.TeamA
		if wins[i] {
			winsA++
		}
	}
	pointPWinA := float64(winsA) / float64(rallies)

	rows := make([]Row, rallies)
	for i, win := range wins {
		rows[i] = Row{Features: features, TeamAWin: win, PWinA: pointPWinA}
	}
	return rows, nil
}

// checkInterval mirrors montecarlo's cooperative cancellation cadence for
// the same reason: a single point's rallies can run long enough to need a
// mid-point cancel check.
const checkInterval = 1024

// perturb applies independent additive noise in [-delta, delta] to every
// mutable feature of s, clamps to the feature's valid range, renormalizes
// the reception distribution so it still sums to 1, and scales ace and
// error down proportionally when their sum exceeds 1 — spec.md §4.4's
// "clamped/renormalized" contract.
func perturb(s teamstats.Stats, delta float64, source interface{ Float64() float64 }) teamstats.Stats {
	out := s
	for _, f := range teamstats.Table {
		if !f.Mutable() {
			continue
		}
		noise := (source.Float64()*2 - 1) * delta
		v := f.Get(out) + noise
		if v < f.Range.Min {
			v = f.Range.Min
		}
		if v > f.Range.Max {
			v = f.Range.Max
		}
		out = f.With(out, v)
	}
	if sum := out.ServeAce + out.ServeError; sum > 1 {
		out.ServeAce /= sum
		out.ServeError /= sum
	}
	return renormalizeReception(out)
}

// renormalizeReception rescales the four reception buckets to sum to 1
// after independent perturbation, preserving their relative proportions.
func renormalizeReception(s teamstats.Stats) teamstats.Stats {
	sum := s.ReceptionPerfect + s.ReceptionGood + s.ReceptionPoor + s.ReceptionError
	if sum <= 0 {
		return s
	}
	s.ReceptionPerfect /= sum
	s.ReceptionGood /= sum
	s.ReceptionPoor /= sum
	s.ReceptionError /= sum
	return s
}
