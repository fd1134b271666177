package rally_test

import (
	"testing"

	"github.com/okian/bvsim/internal/domain/rally"
	"github.com/okian/bvsim/internal/domain/teamstats"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTeamID(t *testing.T) {
	Convey("Given the two team IDs", t, func() {
		Convey("Then Opponent flips between them", func() {
			So(rally.TeamA.Opponent(), ShouldEqual, rally.TeamB)
			So(rally.TeamB.Opponent(), ShouldEqual, rally.TeamA)
		})

		Convey("Then String is stable and distinct", func() {
			So(rally.TeamA.String(), ShouldEqual, "team_a")
			So(rally.TeamB.String(), ShouldEqual, "team_b")
		})
	})
}

func TestState(t *testing.T) {
	Convey("Given the rally state set", t, func() {
		Convey("Then only StatePointFor is terminal", func() {
			So(rally.StatePointFor.Terminal(), ShouldBeTrue)
			So(rally.ServeAttempt.Terminal(), ShouldBeFalse)
			So(rally.AttackDefended.Terminal(), ShouldBeFalse)
		})

		Convey("Then ReceptionQuality maps only reception states", func() {
			q, ok := rally.ReceptionPerfect.ReceptionQuality()
			So(ok, ShouldBeTrue)
			So(q, ShouldEqual, teamstats.Perfect)

			_, ok = rally.SetGood.ReceptionQuality()
			So(ok, ShouldBeFalse)
		})

		Convey("Then SetQuality maps only set states", func() {
			q, ok := rally.SetPoor.SetQuality()
			So(ok, ShouldBeTrue)
			So(q, ShouldEqual, teamstats.Poor)

			_, ok = rally.ReceptionGood.SetQuality()
			So(ok, ShouldBeFalse)
		})

		Convey("Then every state renders a non-empty, non-unknown name", func() {
			states := []rally.State{
				rally.ServeAttempt, rally.ServeInPlay,
				rally.ReceptionPerfect, rally.ReceptionGood, rally.ReceptionPoor,
				rally.SetPerfect, rally.SetGood, rally.SetPoor,
				rally.AttackDefended, rally.StatePointFor,
			}
			for _, s := range states {
				So(s.String(), ShouldNotEqual, "unknown")
			}
		})
	})
}

func TestNewContext(t *testing.T) {
	Convey("Given a fresh context for a serving team", t, func() {
		ctx := rally.NewContext(rally.TeamB)

		Convey("Then the serving team also holds possession", func() {
			So(ctx.Serving, ShouldEqual, rally.TeamB)
			So(ctx.Possession, ShouldEqual, rally.TeamB)
		})

		Convey("Then the previous state starts at ServeAttempt", func() {
			So(ctx.PrevState, ShouldEqual, rally.ServeAttempt)
		})
	})
}
