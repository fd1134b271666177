package stat_test

import (
	"testing"

	"github.com/okian/bvsim/internal/stat"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWilsonScore(t *testing.T) {
	Convey("Given zero trials", t, func() {
		Convey("Then the interval collapses to zero", func() {
			p, low, high := stat.WilsonScore(0, 0)
			So(p, ShouldEqual, 0)
			So(low, ShouldEqual, 0)
			So(high, ShouldEqual, 0)
		})
	})

	Convey("Given a coin-flip-like sample", t, func() {
		Convey("Then the point estimate is near 0.5 and the interval brackets it", func() {
			p, low, high := stat.WilsonScore(500, 1000)
			So(p, ShouldEqual, 0.5)
			So(low, ShouldBeLessThan, p)
			So(high, ShouldBeGreaterThan, p)
			So(low, ShouldBeGreaterThanOrEqualTo, 0)
			So(high, ShouldBeLessThanOrEqualTo, 1)
		})
	})

	Convey("Given all successes", t, func() {
		Convey("Then the interval stays within [0, 1]", func() {
			_, low, high := stat.WilsonScore(100, 100)
			So(low, ShouldBeGreaterThanOrEqualTo, 0)
			So(high, ShouldBeLessThanOrEqualTo, 1)
		})
	})

	Convey("Given a larger sample at the same ratio", t, func() {
		Convey("Then the interval narrows", func() {
			_, low1, high1 := stat.WilsonScore(50, 100)
			_, low2, high2 := stat.WilsonScore(5000, 10000)
			So(high2-low2, ShouldBeLessThan, high1-low1)
		})
	})
}
