package dataset

import (
	"context"
	"sync"
	"time"

	"github.com/glint-ui/glint/pkg/glint"
	"github.com/glint-ui/glint/pkg/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Scope is the tracking namespace dataset reads are recorded under.
const Scope = "dataset"

const defaultTracerName = "glint.dataset"

// Source is the external source of record for dataset blobs. Fetch
// returns the blob bytes or fails; Store persists a new value. Timeouts
// and retries inside the source surface as plain errors here.
type Source interface {
	Fetch(ctx context.Context, key Key) ([]byte, error)
	Store(ctx context.Context, key Key, data []byte) error
}

// Cache is the dataset cache: a keyed subscription store of fetched
// blobs, a per-key in-flight fetch table, and the retry/staleness policy
// of a RequestCache.
type Cache struct {
	entries  *store.Store
	source   Source
	requests *RequestCache
	metrics  *metrics
	tracer   trace.Tracer

	mu       sync.Mutex
	inflight map[string]*flight

	// gen bumps on every explicit write to a key. An in-flight fetch
	// snapshots the generation when it starts and discards its result if
	// the generation moved: an explicit write always wins over a fetch
	// that was already in flight.
	gen map[string]uint64
}

// flight is one outstanding fetch. Concurrent preloads for the same key
// wait on done and share err.
type flight struct {
	done chan struct{}
	err  error
}

// Option configures a Cache.
type Option func(*Cache)

// WithScheduler sets the notification scheduler for the cache's entries.
func WithScheduler(s glint.Scheduler) Option {
	return func(c *Cache) {
		c.entries.SetScheduler(s)
	}
}

// WithRequestCache replaces the default retry/staleness policy.
func WithRequestCache(rc *RequestCache) Option {
	return func(c *Cache) {
		c.requests = rc
	}
}

// WithMetrics enables Prometheus metrics for the cache.
func WithMetrics(opts ...MetricsOption) Option {
	return func(c *Cache) {
		c.metrics = newMetrics(opts)
	}
}

// WithTracerName overrides the OpenTelemetry tracer name.
func WithTracerName(name string) Option {
	return func(c *Cache) {
		c.tracer = otel.Tracer(name)
	}
}

// New creates a dataset cache over source.
func New(source Source, opts ...Option) *Cache {
	c := &Cache{
		entries:  store.New(Scope),
		source:   source,
		requests: NewRequestCache(nil),
		tracer:   otel.Tracer(defaultTracerName),
		inflight: make(map[string]*flight),
		gen:      make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read returns the cached blob for key, or ok=false if absent. It is a
// synchronous cache lookup and never triggers a fetch. Tracked like any
// store read.
func (c *Cache) Read(key Key) ([]byte, bool, error) {
	return c.entries.Read(key.Canonical())
}

// Has reports whether key's blob is cached.
func (c *Cache) Has(key Key) bool {
	return c.entries.Has(key.Canonical())
}

// Preload ensures key's blob is cached. A fresh cached blob completes
// immediately. Otherwise one external fetch is issued; concurrent
// Preload calls for the same key coalesce onto it and all complete with
// the same outcome. Success populates the entry through a normal write,
// so subscribers are notified: a dataset becoming available for the
// first time is itself a change.
//
// A failure recorded inside the request cache's failure window fails
// immediately with the recorded error instead of refetching.
func (c *Cache) Preload(ctx context.Context, key Key) error {
	id := key.Canonical()

	if c.entries.Has(id) && !c.requests.Stale(id) {
		c.metrics.recordCacheHit()
		return nil
	}
	if err, ok := c.requests.Failure(id); ok {
		return &FetchError{Key: key, Op: "fetch", Err: err}
	}

	c.mu.Lock()
	if f, ok := c.inflight[id]; ok {
		c.mu.Unlock()
		c.metrics.recordCoalesced()
		select {
		case <-f.done:
			return f.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f := &flight{done: make(chan struct{})}
	c.inflight[id] = f
	gen := c.gen[id]
	c.mu.Unlock()

	f.err = c.fetch(ctx, key, id, gen)
	close(f.done)
	return f.err
}

// fetch performs the single external fetch for a preload and populates
// the cache unless an explicit write superseded it.
func (c *Cache) fetch(ctx context.Context, key Key, id string, gen uint64) error {
	ctx, span := c.tracer.Start(ctx, "dataset.fetch",
		trace.WithAttributes(attribute.String("dataset.key", key.String())))
	defer span.End()

	start := time.Now()
	data, err := c.source.Fetch(ctx, key)
	elapsed := time.Since(start).Seconds()

	c.mu.Lock()
	delete(c.inflight, id)
	superseded := c.gen[id] != gen
	c.mu.Unlock()

	if err != nil {
		c.metrics.recordFetch("error", elapsed)
		c.requests.RecordFailure(id, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return &FetchError{Key: key, Op: "fetch", Err: err}
	}
	c.metrics.recordFetch("ok", elapsed)

	if superseded {
		// An explicit write landed while this fetch was in flight; the
		// written value wins and the fetched bytes are discarded. The
		// caller still sees success: the key is cached, just newer.
		return nil
	}
	c.requests.RecordSuccess(id)
	return c.entries.Write(id, data)
}

// Write pushes data to the external source of record and, only after the
// remote write is acknowledged, updates the cache entry and notifies
// subscribers. A failed remote write leaves the cache unchanged and
// propagates the failure.
func (c *Cache) Write(ctx context.Context, key Key, data []byte) error {
	id := key.Canonical()

	ctx, span := c.tracer.Start(ctx, "dataset.write_through",
		trace.WithAttributes(attribute.String("dataset.key", key.String())))
	defer span.End()

	if err := c.source.Store(ctx, key, data); err != nil {
		c.metrics.recordWrite("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "write-through failed")
		return &FetchError{Key: key, Op: "write", Err: err}
	}
	c.metrics.recordWrite("ok")

	c.mu.Lock()
	c.gen[id]++
	c.mu.Unlock()

	c.requests.RecordSuccess(id)
	return c.entries.Write(id, data)
}

// Invalidate marks key stale so the next Preload refetches it. Used by
// invalidation feeds (see blobsource.HTTPSource.Watch); the cached blob
// remains readable in the meantime.
func (c *Cache) Invalidate(key Key) {
	c.requests.MarkStale(key.Canonical())
}

// Subscribe registers fn for writes to the canonicalized key. Part of the
// glint.Subscribable contract; mounted boundaries call it with the
// canonical IDs their evaluation recorded.
func (c *Cache) Subscribe(id string, fn func()) func() {
	return c.entries.Subscribe(id, fn)
}

// SubscribeKey is Subscribe for a structured key.
func (c *Cache) SubscribeKey(key Key, fn func()) func() {
	return c.entries.Subscribe(key.Canonical(), fn)
}

// Snapshot returns the cache's global version counter.
func (c *Cache) Snapshot() uint64 {
	return c.entries.Snapshot()
}

// Destroy tears the cache down: entries and subscribers are cleared and
// later reads or writes fail with store.ErrStoreClosed. In-flight
// fetches resolve their waiters but no longer populate anything.
func (c *Cache) Destroy() {
	c.entries.Destroy()
}
