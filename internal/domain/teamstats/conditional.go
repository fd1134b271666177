package teamstats

import (
	"math"

	"github.com/okian/bvsim/internal/domain/errs"
)

// Quality is the ordinal reception/set tag used as a lookup key into the
// conditional model, per spec.md's Glossary entry for "Reception quality" /
// "Set quality".
type Quality int

const (
	Poor Quality = iota
	Good
	Perfect
)

// SetRow holds P(Set = Perfect, Good, Poor | Reception = row's quality).
type SetRow struct {
	Perfect, Good, Poor float64
}

func (r SetRow) sum() float64 { return r.Perfect + r.Good + r.Poor }

// AttackRow holds P(kill, error | Set = row's quality); the remainder is
// AttackDefended mass.
type AttackRow struct {
	Kill, Error float64
}

// ConditionalModel is the fixed lookup spec.md §3/§4.1 describes: P(set
// quality | reception quality) and P(attack outcome | set quality), plus
// the AttackDefended block/dig branch weights spec.md §9 leaves as a free,
// run-configurable parameter.
type ConditionalModel struct {
	// SetGivenReception[q] is the set-quality row conditioned on reception
	// quality q.
	SetGivenReception map[Quality]SetRow

	// AttackGivenSet[q] is the kill/error row conditioned on set quality q.
	AttackGivenSet map[Quality]AttackRow

	// WBlock and WDig are the AttackDefended branch weights (spec.md §4.1,
	// §9 Open Question: "unmotivated in the source... must be configurable").
	WBlock, WDig float64
}

// DefaultConditionalModel returns the canonical table from spec.md §4.1.
func DefaultConditionalModel() ConditionalModel {
	return ConditionalModel{
		SetGivenReception: map[Quality]SetRow{
			Perfect: {Perfect: 0.90, Good: 0.08, Poor: 0.02},
			Good:    {Perfect: 0.60, Good: 0.35, Poor: 0.05},
			Poor:    {Perfect: 0.20, Good: 0.60, Poor: 0.20},
		},
		AttackGivenSet: map[Quality]AttackRow{
			Perfect: {Kill: 0.60, Error: 0.15},
			Good:    {Kill: 0.40, Error: 0.20},
			Poor:    {Kill: 0.20, Error: 0.35},
		},
		WBlock: 0.4,
		WDig:   0.6,
	}
}

// Validate checks every row sums to 1 within tolerance (spec.md §3) and that
// the branch weights sum to 1.
func (m ConditionalModel) Validate() error {
	const op = "teamstats.ConditionalModel.Validate"
	for q, row := range m.SetGivenReception {
		if math.Abs(row.sum()-1) > 1e-9 {
			return errs.Field(op, errs.InvalidStats, "set_given_reception", float64(q))
		}
	}
	for q, row := range m.AttackGivenSet {
		sum := row.Kill + row.Error
		if sum < 0 || sum > 1+1e-9 {
			return errs.Field(op, errs.InvalidStats, "attack_given_set", float64(q))
		}
	}
	if math.Abs(m.WBlock+m.WDig-1) > 1e-9 {
		return errs.Field(op, errs.InvalidStats, "w_block+w_dig", m.WBlock+m.WDig)
	}
	return nil
}
