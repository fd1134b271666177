// Package logit implements L2-regularized logistic regression fit by
// iteratively reweighted least squares, the attribution engine's logistic
// model family (spec.md §4.5). As with gbt, no regression/ML library
// appears in the example corpus, so this is a from-scratch, stdlib-only
// implementation of the standard IRLS update; see DESIGN.md.
package logit

import "math"

// Model is a fitted logistic regression: P(y=1|x) = sigmoid(intercept +
// dot(weights, x)).
type Model struct {
	Intercept float64
	Weights   []float64
}

// PredictProba returns P(y=1|x).
func (m *Model) PredictProba(x []float64) float64 {
	z := m.Intercept
	for i, w := range m.Weights {
		z += w * x[i]
	}
	return sigmoid(z)
}

func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

// maxIter bounds IRLS iterations; the loop also exits early on convergence.
const maxIter = 50

// convergenceTol is the minimum relative change in the weight vector's
// L2 norm below which IRLS is considered converged.
const convergenceTol = 1e-6

// Fit trains a logistic regression against binary labels y, L2-penalizing
// the weights (not the intercept) by lambda.
func Fit(features [][]float64, y []float64, lambda float64) *Model {
	n := len(y)
	if n == 0 {
		return &Model{}
	}
	p := len(features[0])

	// beta[0] is the intercept; beta[1:] are the feature weights.
	beta := make([]float64, p+1)

	for iter := 0; iter < maxIter; iter++ {
		// Working response and weight per IRLS for logistic regression:
		// z_i = eta_i + (y_i - mu_i) / (mu_i * (1 - mu_i))
		// w_i = mu_i * (1 - mu_i)
		eta := make([]float64, n)
		mu := make([]float64, n)
		w := make([]float64, n)
		z := make([]float64, n)
		for i := 0; i < n; i++ {
			eta[i] = beta[0]
			for j := 0; j < p; j++ {
				eta[i] += beta[j+1] * features[i][j]
			}
			mu[i] = clampProba(sigmoid(eta[i]))
			w[i] = mu[i] * (1 - mu[i])
			if w[i] < 1e-6 {
				w[i] = 1e-6
			}
			z[i] = eta[i] + (y[i]-mu[i])/w[i]
		}

		newBeta := weightedRidgeSolve(features, z, w, lambda, p)

		var diff, norm float64
		for j := range beta {
			d := newBeta[j] - beta[j]
			diff += d * d
			norm += newBeta[j] * newBeta[j]
		}
		beta = newBeta
		if norm > 0 && math.Sqrt(diff/norm) < convergenceTol {
			break
		}
	}

	return &Model{Intercept: beta[0], Weights: beta[1:]}
}

// weightedRidgeSolve solves the weighted, ridge-penalized normal equations
// (X'WX + lambda*I) beta = X'Wz via Gaussian elimination, where X has an
// implicit leading column of 1s for the intercept (not penalized).
func weightedRidgeSolve(features [][]float64, z, w []float64, lambda float64, p int) []float64 {
	dim := p + 1
	a := make([][]float64, dim)
	for i := range a {
		a[i] = make([]float64, dim+1)
	}

	for i := range z {
		row := make([]float64, dim)
		row[0] = 1
		copy(row[1:], features[i])

		for r := 0; r < dim; r++ {
			for c := 0; c < dim; c++ {
				a[r][c] += w[i] * row[r] * row[c]
			}
			a[r][dim] += w[i] * row[r] * z[i]
		}
	}

	for d := 1; d < dim; d++ {
		a[d][d] += lambda
	}

	return gaussianSolve(a, dim)
}

func gaussianSolve(a [][]float64, dim int) []float64 {
	for col := 0; col < dim; col++ {
		pivot := col
		for r := col + 1; r < dim; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		a[col], a[pivot] = a[pivot], a[col]

		if math.Abs(a[col][col]) < 1e-12 {
			continue
		}
		for r := col + 1; r < dim; r++ {
			factor := a[r][col] / a[col][col]
			for c := col; c <= dim; c++ {
				a[r][c] -= factor * a[col][c]
			}
		}
	}

	x := make([]float64, dim)
	for r := dim - 1; r >= 0; r-- {
		sum := a[r][dim]
		for c := r + 1; c < dim; c++ {
			sum -= a[r][c] * x[c]
		}
		if math.Abs(a[r][r]) < 1e-12 {
			x[r] = 0
			continue
		}
		x[r] = sum / a[r][r]
	}
	return x
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
