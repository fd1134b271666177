// Package stat holds the small set of statistical primitives spec.md §4.3
// names: the Wilson score interval for the i.i.d. case and the Welford
// mean/variance accumulator the momentum extension's interval is built
// on, where rallies are no longer independent draws. Neither is carried by any
// example repo as a library import — gonum and similar stats packages never
// appear in the corpus (see DESIGN.md) — so both are written directly
// against the closed-form definitions, in the plain, unexported-helper style
// of rewired-gh-poly_oracle's internal/monitor/welford.go.
package stat

import "math"

// zScore95 is the two-sided 95% normal quantile used by the Wilson
// interval; montecarlo's bootstrapCI keeps its own copy of the value.
const zScore95 = 1.959963984540054

// WilsonScore returns the point estimate and the 95% Wilson score interval
// for wins successes out of n independent Bernoulli trials, per spec.md
// §4.3. It returns (0, 0, 0) for n == 0.
func WilsonScore(wins, n int) (pHat, low, high float64) {
	if n == 0 {
		return 0, 0, 0
	}
	p := float64(wins) / float64(n)
	z := zScore95
	nf := float64(n)

	denom := 1 + z*z/nf
	center := p + z*z/(2*nf)
	margin := z * math.Sqrt(p*(1-p)/nf+z*z/(4*nf*nf))

	low = (center - margin) / denom
	high = (center + margin) / denom
	return p, clamp01(low), clamp01(high)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
