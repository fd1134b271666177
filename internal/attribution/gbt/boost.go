package gbt

import "math"

// Config parameterizes the boosting run, matching spec.md §4.5's named
// hyperparameters.
type Config struct {
	MaxDepth       int
	Rounds         int
	LearningRate   float64
	Lambda         float64
	MinChildWeight float64
	// EarlyStopRounds stops boosting if holdout loss fails to improve for
	// this many consecutive rounds. 0 disables early stopping.
	EarlyStopRounds int
}

// DefaultConfig returns spec.md §4.5's canonical hyperparameters: depth 4,
// 200 rounds, learning rate 0.05.
func DefaultConfig() Config {
	return Config{
		MaxDepth:        4,
		Rounds:          200,
		LearningRate:    0.05,
		Lambda:          1.0,
		MinChildWeight:  1.0,
		EarlyStopRounds: 20,
	}
}

// Model is a fitted additive ensemble of trees over the logistic loss: the
// raw score is basePrediction + sum(learningRate * tree(x)), and the
// predicted probability is sigmoid(score).
type Model struct {
	Trees         []*Tree
	LearningRate  float64
	BasePrediction float64
}

// PredictRaw returns the pre-sigmoid score for x.
func (m *Model) PredictRaw(x []float64) float64 {
	score := m.BasePrediction
	for _, t := range m.Trees {
		score += m.LearningRate * t.Predict(x)
	}
	return score
}

// PredictProba returns P(y=1|x).
func (m *Model) PredictProba(x []float64) float64 {
	return sigmoid(m.PredictRaw(x))
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// Fit trains a GBT model against binary labels y in {0,1}. holdoutX/holdoutY,
// if non-empty, are used for early stopping; otherwise boosting always runs
// the full Rounds.
func Fit(features [][]float64, y []float64, cfg Config, holdoutX [][]float64, holdoutY []float64) *Model {
	base := logOdds(meanOf(y))
	m := &Model{LearningRate: cfg.LearningRate, BasePrediction: base}

	n := len(y)
	raw := make([]float64, n)
	for i := range raw {
		raw[i] = base
	}

	bestLoss := math.Inf(1)
	roundsSinceImprove := 0

	for round := 0; round < cfg.Rounds; round++ {
		g := make([]float64, n)
		h := make([]float64, n)
		for i := 0; i < n; i++ {
			p := sigmoid(raw[i])
			g[i] = p - y[i]
			h[i] = p * (1 - p)
			if h[i] < 1e-6 {
				h[i] = 1e-6
			}
		}

		tree := fitTree(features, g, h, cfg.MaxDepth, cfg.Lambda, cfg.MinChildWeight)
		m.Trees = append(m.Trees, tree)

		for i := 0; i < n; i++ {
			raw[i] += cfg.LearningRate * tree.Predict(features[i])
		}

		if cfg.EarlyStopRounds > 0 && len(holdoutX) > 0 {
			loss := logLoss(m, holdoutX, holdoutY)
			if loss < bestLoss-1e-6 {
				bestLoss = loss
				roundsSinceImprove = 0
			} else {
				roundsSinceImprove++
				if roundsSinceImprove >= cfg.EarlyStopRounds {
					break
				}
			}
		}
	}

	return m
}

func logLoss(m *Model, x [][]float64, y []float64) float64 {
	var sum float64
	for i := range x {
		p := clampProba(m.PredictProba(x[i]))
		if y[i] == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(len(x))
}

func clampProba(p float64) float64 {
	const eps = 1e-12
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}

func logOdds(p float64) float64 {
	p = clampProba(p)
	return math.Log(p / (1 - p))
}

func meanOf(y []float64) float64 {
	var sum float64
	for _, v := range y {
		sum += v
	}
	return sum / float64(len(y))
}
