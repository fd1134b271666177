package modelcache

import (
	"context"
	"sync"

	"github.com/okian/bvsim/pkg/metrics"
)

// defaultMaxSize bounds the in-memory cache the same way okian-cuju's
// dedupe.inMemoryDeduper defaults to 50000 entries; model-cache keys are
// larger (a float64 triple rather than a presence bit) so this default is
// smaller.
const defaultMaxSize = 10000

type node struct {
	key  string
	prev *node
	next *node
}

// memoryCache is a bounded cache that evicts the oldest-inserted entry
// first: same linked-list-plus-map
// structure as okian-cuju's dedupe.inMemoryDeduper, generalized to carry a
// value per key instead of just membership.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]Entry
	nodes   map[string]*node
	head    *node // most recently inserted
	tail    *node // least recently inserted; evicted first
	maxSize int
}

// Option configures a memoryCache.
type Option func(*memoryCache)

// WithMaxSize overrides defaultMaxSize. A non-positive size disables
// eviction entirely.
func WithMaxSize(n int) Option {
	return func(c *memoryCache) { c.maxSize = n }
}

// NewMemory builds an in-process, bounded Cache.
func NewMemory(opts ...Option) Cache {
	c := &memoryCache{
		entries: make(map[string]Entry),
		nodes:   make(map[string]*node),
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *memoryCache) Get(_ context.Context, key string) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok {
		metrics.RecordModelCacheHit()
	} else {
		metrics.RecordModelCacheMiss()
	}
	return e, ok, nil
}

func (c *memoryCache) Put(_ context.Context, key string, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		return nil
	}

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictTail()
	}

	n := &node{key: key, next: c.head}
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}

	c.entries[key] = entry
	c.nodes[key] = n
	metrics.UpdateModelCacheSize(len(c.entries))
	return nil
}

// evictTail drops the least recently inserted entry (first in, first out:
// newest stays, oldest goes), the same tail eviction as okian-cuju's
// evictLIFO. Must be called with c.mu held.
func (c *memoryCache) evictTail() {
	if c.tail == nil {
		return
	}
	victim := c.tail
	c.tail = victim.prev
	if c.tail != nil {
		c.tail.next = nil
	} else {
		c.head = nil
	}

	delete(c.entries, victim.key)
	delete(c.nodes, victim.key)
	metrics.RecordModelCacheEviction()
}

func (c *memoryCache) Close() error { return nil }
