package logit_test

import (
	"testing"

	"github.com/okian/bvsim/internal/attribution/logit"
	. "github.com/smartystreets/goconvey/convey"
)

func separable(n int) ([][]float64, []float64) {
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		v := float64(i-n/2) / float64(n)
		x[i] = []float64{v}
		if v > 0 {
			y[i] = 1
		}
	}
	return x, y
}

func TestFit(t *testing.T) {
	Convey("Given a linearly separable one-feature dataset", t, func() {
		x, y := separable(200)

		Convey("When fitting with light regularization", func() {
			m := logit.Fit(x, y, 0.01)

			Convey("Then the fitted weight is positive and predictions match the sign", func() {
				So(m.Weights[0], ShouldBeGreaterThan, 0)
				So(m.PredictProba([]float64{0.4}), ShouldBeGreaterThan, 0.7)
				So(m.PredictProba([]float64{-0.4}), ShouldBeLessThan, 0.3)
			})
		})

		Convey("When fitting with heavy regularization", func() {
			light := logit.Fit(x, y, 0.01)
			heavy := logit.Fit(x, y, 1000)

			Convey("Then heavier regularization shrinks the weight toward zero", func() {
				abs := func(v float64) float64 {
					if v < 0 {
						return -v
					}
					return v
				}
				So(abs(heavy.Weights[0]), ShouldBeLessThan, abs(light.Weights[0]))
			})
		})
	})
}

func TestFitCV(t *testing.T) {
	Convey("Given a dataset and a lambda grid", t, func() {
		x, y := separable(150)
		grid := logit.DefaultLambdaGrid()

		Convey("When running 5-fold cross validation", func() {
			m, lambda := logit.FitCV(x, y, grid, 5)

			Convey("Then it selects a lambda from the grid and returns a usable model", func() {
				found := false
				for _, g := range grid {
					if g == lambda {
						found = true
					}
				}
				So(found, ShouldBeTrue)
				So(m.PredictProba([]float64{0.4}), ShouldBeGreaterThan, 0.5)
			})
		})
	})
}
