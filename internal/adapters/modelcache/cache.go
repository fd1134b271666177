// Package modelcache memoizes Monte Carlo batch results by request
// fingerprint, so repeated Simulate calls against the same team/model
// inputs skip re-running rallies. Attribute and the perturbation generator
// do not use it. Grounded on okian-cuju's internal/domain/dedupe: the
// bounded in-memory backend reuses its linked-list-plus-map shape, evicting
// the oldest entry first, generalized from "seen or not" (a set) to "seen,
// and if so, what was the result" (a cache).
package modelcache

import "context"

// Entry is one cached batch result, keyed by a caller-computed
// fingerprint (see Key).
type Entry struct {
	PWinA    float64
	CILow    float64
	CIHigh   float64
	CIMethod string
}

// Cache stores and retrieves Entries by key. Implementations must be safe
// for concurrent use: one Service may run many Simulate calls at once.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, entry Entry) error
	Close() error
}
