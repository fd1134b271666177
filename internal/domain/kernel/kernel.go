// Package kernel computes the next-state distribution for a single rally
// step. It is the probability kernel of spec.md §4.1: a pure function of
// (state, context, stats, conditional model), with no I/O and no simulated
// latency, following the Option-configured-component shape of
// okian-cuju's internal/domain/scoring but stripped of everything that
// models an external service.
package kernel

import (
	"math"

	"github.com/okian/bvsim/internal/domain/errs"
	"github.com/okian/bvsim/internal/domain/rally"
	"github.com/okian/bvsim/internal/domain/teamstats"
)

// massTolerance is the renormalization tolerance spec.md §4.1 allows before
// a kernel output is rejected as InvalidStats.
const massTolerance = 1e-9

// Branch is one edge out of the current state: the next state, the
// probability mass on it, and which team gains possession of Next (or, if
// Next is terminal, which team won the point).
type Branch struct {
	Next        rally.State
	Probability float64
	Possession  rally.TeamID
}

// Option configures a Kernel. Kept for symmetry with the rest of the corpus
// even though the canonical kernel today takes no options — spec.md §4.1
// names no tunables beyond the conditional model's own WBlock/WDig, which
// travel with the model value rather than the kernel.
type Option func(*Kernel)

// Kernel evaluates rally transitions. It is stateless and safe for
// concurrent use by every Monte Carlo shard.
type Kernel struct{}

// New builds a Kernel. Variadic opts are accepted for forward compatibility
// and future tunables; none exist yet.
func New(opts ...Option) *Kernel {
	k := &Kernel{}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// teams bundles both sides' stats so step functions can fetch either by
// TeamID without the caller juggling argument order.
type teams struct {
	a, b teamstats.Stats
}

func (t teams) of(id rally.TeamID) teamstats.Stats {
	if id == rally.TeamA {
		return t.a
	}
	return t.b
}

// Transitions returns the outgoing branches from state, given the rally
// context and both teams' stats. It returns errs.InvalidStats if the
// resulting distribution does not sum to 1 within massTolerance.
func (k *Kernel) Transitions(
	state rally.State,
	ctx rally.Context,
	teamA, teamB teamstats.Stats,
	model teamstats.ConditionalModel,
) ([]Branch, error) {
	const op = "kernel.Transitions"

	t := teams{teamA, teamB}
	var branches []Branch
	switch state {
	case rally.ServeAttempt:
		branches = serveBranches(ctx, t.of(ctx.Serving))
	case rally.ServeInPlay:
		branches = receptionBranches(ctx, t.of(ctx.Serving.Opponent()))
	case rally.ReceptionPerfect:
		branches = setBranches(ctx, teamstats.Perfect, t.of(ctx.Possession), model)
	case rally.ReceptionGood:
		branches = setBranches(ctx, teamstats.Good, t.of(ctx.Possession), model)
	case rally.ReceptionPoor:
		branches = setBranches(ctx, teamstats.Poor, t.of(ctx.Possession), model)
	case rally.SetPerfect:
		branches = attackBranches(ctx, teamstats.Perfect, t.of(ctx.Possession), model)
	case rally.SetGood:
		branches = attackBranches(ctx, teamstats.Good, t.of(ctx.Possession), model)
	case rally.SetPoor:
		branches = attackBranches(ctx, teamstats.Poor, t.of(ctx.Possession), model)
	case rally.AttackDefended:
		branches = defendedBranches(ctx, t.of(ctx.Possession), model)
	default:
		return nil, errs.New(op, errs.InternalError)
	}

	if err := checkMass(op, branches); err != nil {
		return nil, err
	}
	return branches, nil
}

func checkMass(op string, branches []Branch) error {
	var sum float64
	for _, b := range branches {
		sum += b.Probability
	}
	if math.Abs(sum-1) > massTolerance {
		return errs.Field(op, errs.InvalidStats, "branch_mass", sum)
	}
	return nil
}

// serveBranches implements spec.md §4.1's serve step: the serving team aces,
// errors, or puts the ball in play. An ace or serve error resolves the
// rally immediately.
func serveBranches(ctx rally.Context, server teamstats.Stats) []Branch {
	return []Branch{
		{rally.StatePointFor, server.ServeAce, ctx.Serving},
		{rally.StatePointFor, server.ServeError, ctx.Serving.Opponent()},
		{rally.ServeInPlay, server.ServeInPlay(), ctx.Serving},
	}
}

// receptionBranches implements the receiving team's reception step: a clean
// error is scored immediately for the server; otherwise the ball lands in
// one of the three reception-quality buckets and possession passes to the
// receiving team.
func receptionBranches(ctx rally.Context, receiver teamstats.Stats) []Branch {
	receivingTeam := ctx.Serving.Opponent()
	return []Branch{
		{rally.StatePointFor, receiver.ReceptionError, ctx.Serving},
		{rally.ReceptionPerfect, receiver.ReceptionPerfect, receivingTeam},
		{rally.ReceptionGood, receiver.ReceptionGood, receivingTeam},
		{rally.ReceptionPoor, receiver.ReceptionPoor, receivingTeam},
	}
}

// setBranches applies the conditional model's P(set quality | reception
// quality) row, carving out the setting team's ball-handling error first and
// rescaling the remaining mass per spec.md §4.1. The setting team is whoever
// currently holds possession, set by the preceding reception step.
func setBranches(ctx rally.Context, recvQuality teamstats.Quality, setter teamstats.Stats, model teamstats.ConditionalModel) []Branch {
	row := model.SetGivenReception[recvQuality]
	bhe := setter.BallHandlingError
	remain := 1 - bhe

	settingTeam := ctx.Possession
	return []Branch{
		{rally.StatePointFor, bhe, settingTeam.Opponent()},
		{rally.SetPerfect, row.Perfect * remain, settingTeam},
		{rally.SetGood, row.Good * remain, settingTeam},
		{rally.SetPoor, row.Poor * remain, settingTeam},
	}
}

// attackBranches blends the attacking team's own AttackKill/AttackError
// rates with the conditional model's P(attack outcome | set quality) row,
// which supplies the set-quality modifier (a poor set both suppresses kills
// and amplifies errors relative to a perfect one), mirroring
// original_source's _calculate_attack_probabilities scaling
// attack_kill_percentage/attack_error_percentage by a set-quality modifier.
// Kill and error resolve the rally; the remainder becomes AttackDefended,
// with the ball handed to the defense.
func attackBranches(ctx rally.Context, setQuality teamstats.Quality, attacker teamstats.Stats, model teamstats.ConditionalModel) []Branch {
	row := model.AttackGivenSet[setQuality]
	perfect := model.AttackGivenSet[teamstats.Perfect]

	killMod := 1.0
	if perfect.Kill > 0 {
		killMod = row.Kill / perfect.Kill
	}
	errMod := 1.0
	if perfect.Error > 0 {
		errMod = row.Error / perfect.Error
	}

	kill := attacker.AttackKill * killMod
	err := attacker.AttackError * errMod
	if sum := kill + err; sum > 1 {
		kill /= sum
		err /= sum
	}
	defended := 1 - kill - err

	return []Branch{
		{rally.StatePointFor, kill, ctx.Possession},
		{rally.StatePointFor, err, ctx.Possession.Opponent()},
		{rally.AttackDefended, defended, ctx.Possession.Opponent()},
	}
}

// defendedBranches blends the defending team's block and dig outcomes per
// the WBlock/WDig weights spec.md §9 leaves configurable (Validate()
// requires WBlock+WDig==1, which is what keeps the branches below summing
// to 1). A block kill or a missed dig scores immediately; a controlled
// block, a touched-but-uncontrolled block, or a successful dig restarts
// the point with possession on the defense, now acting as a receiving
// team via ReceptionGood. ctx.Possession already holds the defending
// team: attackBranches hands possession to the defense when it emits the
// AttackDefended branch, and the caller passes defender's own stats in
// accordingly.
//
// BlockKill/ControlledBlock/BlockError don't necessarily sum to 1 on their
// own (spec.md's scenario defaults sum to 0.45), so they're renormalized
// first against a residual "touch" bucket — a block that deflects the
// attack without killing, controlling, or erroring it — mirroring
// original_source's _calculate_block_outcome_probabilities, which adds
// the same residual before normalizing.
func defendedBranches(ctx rally.Context, defender teamstats.Stats, model teamstats.ConditionalModel) []Branch {
	defense := ctx.Possession
	attacker := defense.Opponent()

	kill := defender.BlockKill
	controlled := defender.ControlledBlock
	blockErr := defender.BlockError
	touch := 1 - kill - controlled - blockErr
	if touch < 0 {
		touch = 0
	}
	blockTotal := kill + controlled + touch + blockErr
	if blockTotal == 0 {
		blockTotal = 1
	}

	blockKill := model.WBlock * (kill / blockTotal)
	blockError := model.WBlock * (blockErr / blockTotal)
	blockContinue := model.WBlock * ((controlled + touch) / blockTotal)

	dig := model.WDig * defender.Dig
	digMiss := model.WDig * (1 - defender.Dig)

	return []Branch{
		{rally.StatePointFor, blockKill, defense},
		{rally.StatePointFor, blockError, attacker},
		{rally.StatePointFor, digMiss, attacker},
		{rally.ReceptionGood, blockContinue + dig, defense},
	}
}
