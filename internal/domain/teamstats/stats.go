// Package teamstats defines the immutable team performance profile that
// drives the probability kernel, the fixed feature table the perturbation
// generator and attribution engine iterate instead of using reflection (see
// spec.md §9's redesign note on dynamic field access), and the validation
// every call re-applies per spec.md §6's "core re-validates and fails fast"
// contract.
package teamstats

import (
	"fmt"
	"math"

	"github.com/okian/bvsim/internal/domain/errs"
)

// sumTolerance is the ± tolerance spec.md §3 allows for the reception-row
// sum invariant.
const sumTolerance = 0.005

// Stats is an immutable record of rates in [0,1]. Construct with New; there
// is no exported mutator, matching spec.md §3's "treated as read-only"
// lifecycle — every field below is set once and aliased freely across
// Monte Carlo shards.
type Stats struct {
	// Serve.
	ServeAce   float64
	ServeError float64

	// Reception distribution; must sum to 1 within sumTolerance.
	ReceptionPerfect float64
	ReceptionGood    float64
	ReceptionPoor    float64
	ReceptionError   float64

	// Setting.
	BallHandlingError float64

	// Attack.
	AttackKill  float64
	AttackError float64

	// Defense.
	Dig            float64
	BlockKill      float64
	ControlledBlock float64
	BlockError     float64
}

// ServeInPlay is the implicit remainder of the serve distribution.
func (s Stats) ServeInPlay() float64 {
	return 1 - s.ServeAce - s.ServeError
}

// HittingEfficiency is derived, never stored: kill − error, per spec.md §3.
func (s Stats) HittingEfficiency() float64 {
	return s.AttackKill - s.AttackError
}

// New validates raw rates and returns an immutable Stats, or an
// errs.InvalidStats error naming the offending field. Validation failures
// are fatal to the call, per spec.md §3: there is no silent clamping here —
// clamping is the perturbation generator's job (§4.4) after it has
// deliberately pushed a value out of range.
func New(
	serveAce, serveError float64,
	receptionPerfect, receptionGood, receptionPoor, receptionError float64,
	ballHandlingError float64,
	attackKill, attackError float64,
	dig, blockKill, controlledBlock, blockError float64,
) (Stats, error) {
	s := Stats{
		ServeAce:          serveAce,
		ServeError:        serveError,
		ReceptionPerfect:  receptionPerfect,
		ReceptionGood:     receptionGood,
		ReceptionPoor:     receptionPoor,
		ReceptionError:    receptionError,
		BallHandlingError: ballHandlingError,
		AttackKill:        attackKill,
		AttackError:       attackError,
		Dig:               dig,
		BlockKill:         blockKill,
		ControlledBlock:   controlledBlock,
		BlockError:        blockError,
	}
	if err := s.Validate(); err != nil {
		return Stats{}, err
	}
	return s, nil
}

// Validate re-checks every invariant in spec.md §3. It is exported so
// perturbation (§4.4) and the HTTP/CLI wrapper layer can re-validate after
// mutating a clone.
func (s Stats) Validate() error {
	const op = "teamstats.Validate"

	for _, f := range baseFields(s) {
		if f.value < 0 || f.value > 1 {
			return errs.Field(op, errs.InvalidStats, f.name, f.value)
		}
	}

	if serveSum := s.ServeAce + s.ServeError; serveSum > 1+1e-9 {
		return errs.Field(op, errs.InvalidStats, "serve.ace+serve.error", serveSum)
	}

	receptionSum := s.ReceptionPerfect + s.ReceptionGood + s.ReceptionPoor + s.ReceptionError
	if math.Abs(receptionSum-1) > sumTolerance {
		return errs.Field(op, errs.InvalidStats, "reception.sum", receptionSum)
	}

	return nil
}

type namedField struct {
	name  string
	value float64
}

func baseFields(s Stats) []namedField {
	return []namedField{
		{"serve.ace", s.ServeAce},
		{"serve.error", s.ServeError},
		{"reception.perfect", s.ReceptionPerfect},
		{"reception.good", s.ReceptionGood},
		{"reception.poor", s.ReceptionPoor},
		{"reception.error", s.ReceptionError},
		{"setting.ball_handling_error", s.BallHandlingError},
		{"attack.kill", s.AttackKill},
		{"attack.error", s.AttackError},
		{"defense.dig", s.Dig},
		{"defense.block_kill", s.BlockKill},
		{"defense.controlled_block", s.ControlledBlock},
		{"defense.block_error", s.BlockError},
	}
}

// Default returns the "equal teams" baseline used by spec.md §8 scenario 1.
func Default() Stats {
	s, err := New(
		0.10, 0.05,
		0.30, 0.50, 0.15, 0.05,
		0.02,
		0.45, 0.10,
		0.60, 0.15, 0.25, 0.05,
	)
	if err != nil {
		// Unreachable: the literal baseline above satisfies every invariant.
		panic(fmt.Sprintf("teamstats: default baseline invalid: %v", err))
	}
	return s
}
