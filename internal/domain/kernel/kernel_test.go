package kernel_test

import (
	"testing"

	"github.com/okian/bvsim/internal/domain/kernel"
	"github.com/okian/bvsim/internal/domain/rally"
	"github.com/okian/bvsim/internal/domain/teamstats"
	. "github.com/smartystreets/goconvey/convey"
)

func mustStats(t *testing.T, opts ...func(*statBuilder)) teamstats.Stats {
	t.Helper()
	b := statBuilder{
		serveAce: 0.1, serveError: 0.1,
		receptionPerfect: 0.5, receptionGood: 0.3, receptionPoor: 0.15, receptionError: 0.05,
		ballHandlingError: 0.02,
		attackKill:        0.5, attackError: 0.2,
		dig: 0.6, blockKill: 0.1, controlledBlock: 0.2, blockError: 0.05,
	}
	for _, o := range opts {
		o(&b)
	}
	s, err := teamstats.New(
		b.serveAce, b.serveError,
		b.receptionPerfect, b.receptionGood, b.receptionPoor, b.receptionError,
		b.ballHandlingError,
		b.attackKill, b.attackError,
		b.dig, b.blockKill, b.controlledBlock, b.blockError,
	)
	if err != nil {
		t.Fatalf("build stats: %v", err)
	}
	return s
}

type statBuilder struct {
	serveAce, serveError                                        float64
	receptionPerfect, receptionGood, receptionPoor, receptionError float64
	ballHandlingError                                            float64
	attackKill, attackError                                      float64
	dig, blockKill, controlledBlock, blockError                  float64
}

func TestTransitions(t *testing.T) {
	Convey("Given a kernel and two valid teams", t, func() {
		k := kernel.New()
		teamA := mustStats(t)
		teamB := mustStats(t)
		model := teamstats.DefaultConditionalModel()

		Convey("When evaluating ServeAttempt", func() {
			ctx := rally.NewContext(rally.TeamA)
			branches, err := k.Transitions(rally.ServeAttempt, ctx, teamA, teamB, model)

			Convey("Then it returns ace/error/in-play branches summing to 1", func() {
				So(err, ShouldBeNil)
				So(branches, ShouldHaveLength, 3)
				var sum float64
				for _, b := range branches {
					sum += b.Probability
				}
				So(sum, ShouldAlmostEqual, 1.0, 1e-9)
			})
		})

		Convey("When evaluating ServeInPlay", func() {
			ctx := rally.NewContext(rally.TeamA)
			branches, err := k.Transitions(rally.ServeInPlay, ctx, teamA, teamB, model)

			Convey("Then possession passes to the receiving team on non-error branches", func() {
				So(err, ShouldBeNil)
				for _, b := range branches {
					if b.Next != rally.StatePointFor {
						So(b.Possession, ShouldEqual, rally.TeamB)
					}
				}
			})
		})

		Convey("When evaluating an AttackDefended step", func() {
			ctx := rally.NewContext(rally.TeamA)
			ctx.Possession = rally.TeamA
			branches, err := k.Transitions(rally.AttackDefended, ctx, teamA, teamB, model)

			Convey("Then the mass still sums to 1", func() {
				So(err, ShouldBeNil)
				var sum float64
				for _, b := range branches {
					sum += b.Probability
				}
				So(sum, ShouldAlmostEqual, 1.0, 1e-9)
			})
		})

		Convey("When the conditional model is internally inconsistent", func() {
			bad := model
			bad.WBlock, bad.WDig = 0.9, 0.9
			ctx := rally.NewContext(rally.TeamA)

			Convey("Then AttackDefended mass no longer sums to 1 and Transitions fails", func() {
				_, err := k.Transitions(rally.AttackDefended, ctx, teamA, teamB, bad)
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When team A's attack is set while possession is held by A", func() {
			ctx := rally.NewContext(rally.TeamA)
			ctx.Possession = rally.TeamA
			weakA := mustStats(t, func(b *statBuilder) { b.attackKill = 0.1 })
			strongA := mustStats(t, func(b *statBuilder) { b.attackKill = 0.8 })

			weakBranches, err := k.Transitions(rally.SetPerfect, ctx, weakA, teamB, model)
			So(err, ShouldBeNil)
			strongBranches, err := k.Transitions(rally.SetPerfect, ctx, strongA, teamB, model)
			So(err, ShouldBeNil)

			killProb := func(branches []kernel.Branch) float64 {
				for _, b := range branches {
					if b.Next == rally.StatePointFor && b.Possession == rally.TeamA {
						return b.Probability
					}
				}
				return -1
			}

			Convey("Then the attacking team's own kill rate, not just the set quality, drives the kill branch", func() {
				So(killProb(strongBranches), ShouldBeGreaterThan, killProb(weakBranches))
			})
		})

		Convey("When AttackDefended is evaluated with possession already on the defending team", func() {
			ctx := rally.NewContext(rally.TeamA)
			ctx.Possession = rally.TeamB // B is defending; A just attacked
			weakDefenseB := mustStats(t, func(b *statBuilder) { b.blockKill = 0.05; b.dig = 0.1 })
			strongDefenseB := mustStats(t, func(b *statBuilder) { b.blockKill = 0.5; b.dig = 0.9 })

			weakBranches, err := k.Transitions(rally.AttackDefended, ctx, teamA, weakDefenseB, model)
			So(err, ShouldBeNil)
			strongBranches, err := k.Transitions(rally.AttackDefended, ctx, teamA, strongDefenseB, model)
			So(err, ShouldBeNil)

			continuationProb := func(branches []kernel.Branch) float64 {
				for _, b := range branches {
					if b.Next == rally.ReceptionGood && b.Possession == rally.TeamB {
						return b.Probability
					}
				}
				return -1
			}

			Convey("Then the defending team's own block/dig stats, not the attacker's, drive the outcome", func() {
				So(continuationProb(strongBranches), ShouldBeGreaterThan, continuationProb(weakBranches))
			})
		})
	})
}
