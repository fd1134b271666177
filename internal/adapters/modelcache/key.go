package modelcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/okian/bvsim/internal/domain/rally"
	"github.com/okian/bvsim/internal/domain/teamstats"
)

// Key fingerprints the inputs that fully determine a Monte Carlo batch's
// expected result: both teams' stats, the conditional model, the serving
// team, and the rally count. Seed is deliberately excluded — two requests
// that differ only by seed converge to the same win probability as
// NumRallies grows, and the cache's purpose is cross-request memoization
// of that probability, not exact replay of one run's random draws (the
// driver itself, not the cache, is responsible for per-seed determinism).
func Key(serving rally.TeamID, teamA, teamB teamstats.Stats, model teamstats.ConditionalModel, numRallies int) string {
	h := sha256.New()
	fmt.Fprintf(h, "serving=%d;rallies=%d;", serving, numRallies)
	writeStats(h, "a", teamA)
	writeStats(h, "b", teamB)
	fmt.Fprintf(h, "wblock=%.6f;wdig=%.6f;", model.WBlock, model.WDig)
	for _, q := range []teamstats.Quality{teamstats.Perfect, teamstats.Good, teamstats.Poor} {
		row := model.SetGivenReception[q]
		fmt.Fprintf(h, "set[%d]=%.6f,%.6f,%.6f;", q, row.Perfect, row.Good, row.Poor)
		arow := model.AttackGivenSet[q]
		fmt.Fprintf(h, "attack[%d]=%.6f,%.6f;", q, arow.Kill, arow.Error)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeStats(h io.Writer, prefix string, s teamstats.Stats) {
	for _, f := range teamstats.Table {
		fmt.Fprintf(h, "%s.%s=%.6f;", prefix, f.Name, f.Get(s))
	}
}
