package stat

import "math"

// Welford accumulates a running mean and variance in a single pass,
// following the update rule of rewired-gh-poly_oracle's
// internal/monitor/welford.go, generalized here to a named type so the
// momentum extension can keep one accumulator per bootstrap resample
// instead of threading loose float64 fields through a struct it doesn't
// own.
type Welford struct {
	count int
	mean  float64
	m2    float64
}

// Add folds x into the running mean/variance.
func (w *Welford) Add(x float64) {
	w.count++
	delta := x - w.mean
	w.mean += delta / float64(w.count)
	delta2 := x - w.mean
	w.m2 += delta * delta2
}

// Mean returns the running mean; 0 if Add has never been called.
func (w *Welford) Mean() float64 { return w.mean }

// Variance returns the sample variance; 0 if fewer than two values were
// added.
func (w *Welford) Variance() float64 {
	if w.count < 2 {
		return 0
	}
	return w.m2 / float64(w.count-1)
}

// StdDev returns the sample standard deviation.
func (w *Welford) StdDev() float64 { return math.Sqrt(w.Variance()) }

// Count returns how many values have been added.
func (w *Welford) Count() int { return w.count }
