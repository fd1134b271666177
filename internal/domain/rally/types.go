// Package rally holds the tagged state set, the per-rally mutable context,
// and the outcome/result types from spec.md §3. It depends only on
// teamstats, never on the kernel or the driver, so it can be shared by both
// without an import cycle — the same layering okian-cuju uses between
// internal/domain/model and the adapters that consume it.
package rally

import "github.com/okian/bvsim/internal/domain/teamstats"

// TeamID identifies one of the two sides in a rally.
type TeamID uint8

const (
	TeamA TeamID = iota
	TeamB
)

// Opponent returns the other team.
func (t TeamID) Opponent() TeamID {
	if t == TeamA {
		return TeamB
	}
	return TeamA
}

func (t TeamID) String() string {
	if t == TeamA {
		return "team_a"
	}
	return "team_b"
}

// State is the closed set of ten rally states from spec.md §3. Terminal
// states are represented by StatePointFor plus a TeamID payload on
// RallyContext/RallyOutcome rather than two separate enum members — Go
// enums don't carry payloads the way a tagged union does, but the
// information content (which team won) is identical, and
// StatePointFor(winner) is still reached in exactly one step from any
// scoring action, matching spec.md §3's "intermediate outcomes collapse
// directly to PointFor in one step" requirement.
type State int

const (
	ServeAttempt State = iota
	ServeInPlay
	ReceptionPerfect
	ReceptionGood
	ReceptionPoor
	SetPerfect
	SetGood
	SetPoor
	AttackDefended
	StatePointFor // terminal; winner carried on RallyContext.PointWinner
)

func (s State) String() string {
	switch s {
	case ServeAttempt:
		return "serve_attempt"
	case ServeInPlay:
		return "serve_in_play"
	case ReceptionPerfect:
		return "reception_perfect"
	case ReceptionGood:
		return "reception_good"
	case ReceptionPoor:
		return "reception_poor"
	case SetPerfect:
		return "set_perfect"
	case SetGood:
		return "set_good"
	case SetPoor:
		return "set_poor"
	case AttackDefended:
		return "attack_defended"
	case StatePointFor:
		return "point_for"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends the rally.
func (s State) Terminal() bool { return s == StatePointFor }

// ReceptionQuality maps a reception state to its ordinal quality tag, or
// false if s is not a reception state.
func (s State) ReceptionQuality() (teamstats.Quality, bool) {
	switch s {
	case ReceptionPerfect:
		return teamstats.Perfect, true
	case ReceptionGood:
		return teamstats.Good, true
	case ReceptionPoor:
		return teamstats.Poor, true
	default:
		return 0, false
	}
}

// SetQuality maps a set state to its ordinal quality tag, or false if s is
// not a set state.
func (s State) SetQuality() (teamstats.Quality, bool) {
	switch s {
	case SetPerfect:
		return teamstats.Perfect, true
	case SetGood:
		return teamstats.Good, true
	case SetPoor:
		return teamstats.Poor, true
	default:
		return 0, false
	}
}

// Context is the mutable, per-rally bookkeeping of spec.md §3. It is
// discarded at rally end and never shared across goroutines.
type Context struct {
	Serving      TeamID
	Possession   TeamID
	QualityCarry teamstats.Quality
	ContactCount uint16
	PrevState    State

	// PointWinner is only meaningful once State == StatePointFor.
	PointWinner TeamID
}

// NewContext initializes a rally context exactly as spec.md §4.2 step 1
// describes: serving team serves and holds possession, state is
// ServeAttempt.
func NewContext(serving TeamID) Context {
	return Context{
		Serving:    serving,
		Possession: serving,
		PrevState:  ServeAttempt,
	}
}

// Outcome is the terminal record of one rally, spec.md §3's RallyOutcome.
// Trajectory is left nil unless the caller asked for trace retention.
type Outcome struct {
	Winner     TeamID
	Serving    TeamID
	Contacts   uint16
	Trajectory []State
}
