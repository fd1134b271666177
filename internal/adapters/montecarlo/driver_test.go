package montecarlo_test

import (
	"context"
	"testing"

	"github.com/okian/bvsim/internal/adapters/montecarlo"
	"github.com/okian/bvsim/internal/domain/rally"
	"github.com/okian/bvsim/internal/domain/teamstats"
	"github.com/okian/bvsim/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func equalStats(t *testing.T) teamstats.Stats {
	t.Helper()
	s, err := teamstats.New(
		0.1, 0.1,
		0.5, 0.3, 0.15, 0.05,
		0.02,
		0.5, 0.2,
		0.6, 0.1, 0.2, 0.05,
	)
	if err != nil {
		t.Fatalf("build stats: %v", err)
	}
	return s
}

func dominantStats(t *testing.T) teamstats.Stats {
	t.Helper()
	s, err := teamstats.New(
		0.3, 0.02,
		0.7, 0.2, 0.08, 0.02,
		0.01,
		0.7, 0.1,
		0.7, 0.15, 0.2, 0.02,
	)
	if err != nil {
		t.Fatalf("build stats: %v", err)
	}
	return s
}

func TestDriverRun(t *testing.T) {
	Convey("Given a driver and two identical teams", t, func() {
		d := montecarlo.New()
		teamA := equalStats(t)
		teamB := equalStats(t)
		model := teamstats.DefaultConditionalModel()

		Convey("When running a moderate batch", func() {
			result, err := d.Run(context.Background(), montecarlo.Request{
				NumRallies: 5000,
				Serving:    rally.TeamA,
				TeamA:      teamA,
				TeamB:      teamB,
				Model:      model,
				Seed:       1,
			})

			Convey("Then it reports a Wilson CI bracketing roughly 0.5", func() {
				So(err, ShouldBeNil)
				So(result.RalliesRun, ShouldEqual, 5000)
				So(result.CIMethod, ShouldEqual, "wilson")
				So(result.PWinA, ShouldBeBetween, 0.3, 0.7)
				So(result.CILow, ShouldBeLessThanOrEqualTo, result.PWinA)
				So(result.CIHigh, ShouldBeGreaterThanOrEqualTo, result.PWinA)
			})
		})

		Convey("When the same seed is run twice", func() {
			req := montecarlo.Request{
				NumRallies: 2000,
				Serving:    rally.TeamA,
				TeamA:      teamA,
				TeamB:      teamB,
				Model:      model,
				Seed:       77,
				Workers:    4,
			}
			r1, err1 := d.Run(context.Background(), req)
			r2, err2 := d.Run(context.Background(), req)

			Convey("Then results are identical regardless of worker count staying fixed", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(r1.TeamAWins, ShouldEqual, r2.TeamAWins)
				So(r1.RalliesRun, ShouldEqual, r2.RalliesRun)
			})
		})

		Convey("When the same seed is run with a different worker count", func() {
			base := montecarlo.Request{
				NumRallies: 6000,
				Serving:    rally.TeamA,
				TeamA:      teamA,
				TeamB:      teamB,
				Model:      model,
				Seed:       123,
			}
			solo := base
			solo.Workers = 1
			parallel := base
			parallel.Workers = 16

			r1, err1 := d.Run(context.Background(), solo)
			r2, err2 := d.Run(context.Background(), parallel)

			Convey("Then wins_a and the rally count are bit-identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(r2.TeamAWins, ShouldEqual, r1.TeamAWins)
				So(r2.RalliesRun, ShouldEqual, r1.RalliesRun)
				So(r2.PWinA, ShouldEqual, r1.PWinA)
			})
		})

		Convey("When an invalid request is submitted", func() {
			_, err := d.Run(context.Background(), montecarlo.Request{
				NumRallies: 0,
				TeamA:      teamA,
				TeamB:      teamB,
				Model:      model,
			})

			Convey("Then it fails fast with no shards spawned", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := d.Run(ctx, montecarlo.Request{
				NumRallies: 10000,
				Serving:    rally.TeamA,
				TeamA:      teamA,
				TeamB:      teamB,
				Model:      model,
				Seed:       3,
				Workers:    8,
			})

			Convey("Then it returns an error", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})

	Convey("Given a driver and a team with a clear serve/attack edge", t, func() {
		d := montecarlo.New()
		strong := dominantStats(t)
		weak := equalStats(t)
		model := teamstats.DefaultConditionalModel()

		Convey("When running a batch with the stronger team serving", func() {
			result, err := d.Run(context.Background(), montecarlo.Request{
				NumRallies: 4000,
				Serving:    rally.TeamA,
				TeamA:      strong,
				TeamB:      weak,
				Model:      model,
				Seed:       5,
			})

			Convey("Then the stronger team wins the clear majority of points", func() {
				So(err, ShouldBeNil)
				So(result.PWinA, ShouldBeGreaterThan, 0.6)
			})
		})
	})

	Convey("Given a momentum-enabled request", t, func() {
		d := montecarlo.New()
		teamA := equalStats(t)
		teamB := equalStats(t)
		model := teamstats.DefaultConditionalModel()

		Convey("When running with a serve-streak boost", func() {
			result, err := d.Run(context.Background(), montecarlo.Request{
				NumRallies: 4000,
				Serving:    rally.TeamA,
				TeamA:      teamA,
				TeamB:      teamB,
				Model:      model,
				Seed:       9,
				Momentum: &montecarlo.MomentumConfig{
					Streak: 2,
					Boost:  0.1,
				},
			})

			Convey("Then the CI method switches to bootstrap", func() {
				So(err, ShouldBeNil)
				So(result.CIMethod, ShouldEqual, "bootstrap")
				So(result.CILow, ShouldBeLessThanOrEqualTo, result.PWinA)
				So(result.CIHigh, ShouldBeGreaterThanOrEqualTo, result.PWinA)
			})
		})
	})
}
