package dataset

import (
	"container/list"
	"sync"
	"time"
)

// RequestCacheConfig holds the retry and staleness policy applied to
// dataset fetches.
type RequestCacheConfig struct {
	// FailureTTL is how long a failed fetch suppresses re-attempts for the
	// same key. Preload calls inside the window fail immediately with the
	// recorded error instead of hammering the source.
	// Default: 5 seconds.
	FailureTTL time.Duration

	// StaleAfter is the age at which a cached dataset is considered stale
	// and eligible for refetch on the next Preload. Zero means cached data
	// never goes stale by age.
	StaleAfter time.Duration

	// MaxEntries bounds the number of tracked keys, evicted LRU.
	// Default: 256.
	MaxEntries int
}

// DefaultRequestCacheConfig returns the default policy.
func DefaultRequestCacheConfig() *RequestCacheConfig {
	return &RequestCacheConfig{
		FailureTTL: 5 * time.Second,
		StaleAfter: 0,
		MaxEntries: 256,
	}
}

// RequestCache tracks per-key fetch outcomes: recent failures (to bound
// retry rate) and fetch times plus explicit invalidations (to decide
// staleness). It stores no blob data; the subscription store holds that.
type RequestCache struct {
	mu      sync.Mutex
	config  *RequestCacheConfig
	entries map[string]*list.Element
	order   *list.List // LRU order, front = most recent
}

type requestItem struct {
	key       string
	lastErr   error
	failedAt  time.Time
	fetchedAt time.Time
	stale     bool
}

// NewRequestCache creates a request cache with the given policy; nil uses
// the defaults.
func NewRequestCache(config *RequestCacheConfig) *RequestCache {
	if config == nil {
		config = DefaultRequestCacheConfig()
	}
	return &RequestCache{
		config:  config,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// RecordFailure notes that a fetch for key failed now.
func (c *RequestCache) RecordFailure(key string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item := c.touch(key)
	item.lastErr = err
	item.failedAt = time.Now()
}

// Failure returns the recorded error for key if it is still inside the
// failure window.
func (c *RequestCache) Failure(key string) (error, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	item := el.Value.(*requestItem)
	if item.lastErr == nil || time.Since(item.failedAt) > c.config.FailureTTL {
		return nil, false
	}
	c.order.MoveToFront(el)
	return item.lastErr, true
}

// RecordSuccess notes a successful fetch or write for key, clearing any
// failure and staleness.
func (c *RequestCache) RecordSuccess(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item := c.touch(key)
	item.lastErr = nil
	item.stale = false
	item.fetchedAt = time.Now()
}

// MarkStale flags key so the next Preload refetches even though the blob
// is cached. Used by invalidation feeds.
func (c *RequestCache) MarkStale(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch(key).stale = true
}

// Stale reports whether key's cached blob should be refetched.
func (c *RequestCache) Stale(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return false
	}
	item := el.Value.(*requestItem)
	if item.stale {
		return true
	}
	if c.config.StaleAfter > 0 && !item.fetchedAt.IsZero() {
		return time.Since(item.fetchedAt) > c.config.StaleAfter
	}
	return false
}

// touch returns key's item, creating it and evicting LRU as needed.
// Caller holds c.mu.
func (c *RequestCache) touch(key string) *requestItem {
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*requestItem)
	}
	item := &requestItem{key: key}
	c.entries[key] = c.order.PushFront(item)

	max := c.config.MaxEntries
	if max <= 0 {
		max = DefaultRequestCacheConfig().MaxEntries
	}
	for c.order.Len() > max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*requestItem).key)
	}
	return item
}
