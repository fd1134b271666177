package gbt_test

import (
	"math"
	"testing"

	"github.com/okian/bvsim/internal/attribution/gbt"
	. "github.com/smartystreets/goconvey/convey"
)

// linearlySeparable builds a dataset where y is fully determined by the
// sign of feature 0, an easy target for a shallow boosted ensemble to fit.
func linearlySeparable(n int) ([][]float64, []float64) {
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		v := float64(i-n/2) / float64(n)
		x[i] = []float64{v, 0.5}
		if v > 0 {
			y[i] = 1
		}
	}
	return x, y
}

func TestFitSeparatesClasses(t *testing.T) {
	Convey("Given a linearly separable dataset", t, func() {
		x, y := linearlySeparable(200)
		cfg := gbt.Config{
			MaxDepth:       3,
			Rounds:         30,
			LearningRate:   0.3,
			Lambda:         1.0,
			MinChildWeight: 1.0,
		}

		Convey("When fitting without a holdout set", func() {
			m := gbt.Fit(x, y, cfg, nil, nil)

			Convey("Then predictions separate the two classes by a wide margin", func() {
				So(m.PredictProba([]float64{0.4, 0.5}), ShouldBeGreaterThan, 0.8)
				So(m.PredictProba([]float64{-0.4, 0.5}), ShouldBeLessThan, 0.2)
			})
		})

		Convey("When fitting with early stopping against a holdout set", func() {
			holdoutX, holdoutY := linearlySeparable(50)
			cfgES := cfg
			cfgES.Rounds = 200
			cfgES.EarlyStopRounds = 5
			m := gbt.Fit(x, y, cfgES, holdoutX, holdoutY)

			Convey("Then boosting halts before exhausting all rounds", func() {
				So(len(m.Trees), ShouldBeLessThan, cfgES.Rounds)
			})
		})
	})
}

func TestTreePredictWithinLeafBounds(t *testing.T) {
	Convey("Given a tree fit on a small dataset", t, func() {
		x, y := linearlySeparable(40)
		m := gbt.Fit(x, y, gbt.DefaultConfig(), nil, nil)

		Convey("Then every leaf in every tree is reachable and finite", func() {
			for _, tree := range m.Trees {
				node := tree.Root()
				for !tree.IsLeaf(node) {
					node = tree.Left(node)
				}
				v := tree.Value(node)
				So(math.IsNaN(v), ShouldBeFalse)
			}
		})
	})
}
