package stat_test

import (
	"testing"

	"github.com/okian/bvsim/internal/stat"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWelford(t *testing.T) {
	Convey("Given a fresh accumulator", t, func() {
		var w stat.Welford

		Convey("Then an empty accumulator reports zero mean, variance, and count", func() {
			So(w.Mean(), ShouldEqual, 0)
			So(w.Variance(), ShouldEqual, 0)
			So(w.Count(), ShouldEqual, 0)
		})

		Convey("When a single value is added", func() {
			w.Add(5)

			Convey("Then the mean is that value and variance is zero", func() {
				So(w.Mean(), ShouldEqual, 5)
				So(w.Variance(), ShouldEqual, 0)
				So(w.Count(), ShouldEqual, 1)
			})
		})

		Convey("When a known sequence is added", func() {
			for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
				w.Add(v)
			}

			Convey("Then mean and sample variance match the closed-form values", func() {
				So(w.Mean(), ShouldEqual, 5)
				So(w.Variance(), ShouldAlmostEqual, 4.571428571, 1e-6)
				So(w.Count(), ShouldEqual, 8)
			})
		})
	})
}
