package montecarlo

import (
	"math"

	"github.com/okian/bvsim/internal/stat"
)

// zScore95 mirrors stat.WilsonScore's two-sided 95% normal quantile.
const zScore95 = 1.959963984540054

// defaultBootstraps is B from spec.md §4.3 when MomentumConfig.Bootstraps
// is left at its zero value.
const defaultBootstraps = 200

// bootstrapCI estimates p_a_win and its 95% interval under the momentum
// extension, where successive rallies within a shard are correlated by the
// serve streak and a Wilson interval's independence assumption no longer
// holds. Each shard's own win rate is treated as one sample: the interval is
// the pooled win rate plus or minus z times the standard deviation of the
// shard rates (Welford) over the square root of the shard count. No
// bootstrap resampling is done, and cfg.Bootstraps does not change the
// result; a request of fewer than two non-empty shards gets a zero-width
// interval.
func bootstrapCI(shards []shardResult, cfg *MomentumConfig) (pHat, low, high float64) {
	b := cfg.Bootstraps
	if b <= 0 {
		b = defaultBootstraps
	}

	var w stat.Welford
	var totalRun, totalWins int
	for _, sr := range shards {
		if sr.run == 0 {
			continue
		}
		w.Add(sr.pHat)
		totalRun += sr.run
		totalWins += sr.winsA
	}

	if totalRun == 0 {
		return 0, 0, 0
	}

	pHat = float64(totalWins) / float64(totalRun)
	if w.Count() < 2 {
		return pHat, pHat, pHat
	}

	margin := zScore95 * w.StdDev() / math.Sqrt(float64(w.Count()))
	low, high = pHat-margin, pHat+margin
	if low < 0 {
		low = 0
	}
	if high > 1 {
		high = 1
	}
	return pHat, low, high
}
