package dataset

import (
	"context"
	"errors"
	"sync"
)

// Batch is the handle returned by All: the settled/loading state of a
// concurrent preload fan-out, its aggregate error, and a reload action
// that re-attempts the whole list. Keys that succeeded stay cached across
// failures and reloads; there is no all-or-nothing rollback.
type Batch struct {
	cache *Cache
	keys  []Key

	mu      sync.Mutex
	loading bool
	err     error
	done    chan struct{}
}

// All preloads keys concurrently and returns immediately with a handle.
// Wait on Done for settlement; Err then reports nil or a *BatchError
// naming every failed key alongside the keys that succeeded.
func (c *Cache) All(ctx context.Context, keys []Key) *Batch {
	b := &Batch{cache: c, keys: keys}
	b.start(ctx)
	return b
}

func (b *Batch) start(ctx context.Context) {
	b.mu.Lock()
	b.loading = true
	b.err = nil
	done := make(chan struct{})
	b.done = done
	b.mu.Unlock()

	go b.run(ctx, done)
}

func (b *Batch) run(ctx context.Context, done chan struct{}) {
	results := make([]error, len(b.keys))

	var wg sync.WaitGroup
	for i, key := range b.keys {
		wg.Add(1)
		go func(i int, key Key) {
			defer wg.Done()
			results[i] = b.cache.Preload(ctx, key)
		}(i, key)
	}
	wg.Wait()

	agg := &BatchError{}
	for i, err := range results {
		if err == nil {
			agg.Succeeded = append(agg.Succeeded, b.keys[i])
			continue
		}
		var fe *FetchError
		if !errors.As(err, &fe) {
			fe = &FetchError{Key: b.keys[i], Op: "fetch", Err: err}
		}
		agg.Failed = append(agg.Failed, fe)
	}

	b.mu.Lock()
	if b.done == done { // a Reload may have superseded this run
		b.loading = false
		if len(agg.Failed) > 0 {
			b.err = agg
		}
	}
	b.mu.Unlock()
	close(done)
}

// Loading reports whether the current attempt is still in flight.
func (b *Batch) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

// Err returns nil while loading or after full success, and the aggregate
// *BatchError after a settled attempt with failures.
func (b *Batch) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Done returns a channel closed when the current attempt settles. Reload
// replaces the channel; callers should re-read Done after reloading.
func (b *Batch) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Reload re-attempts the batch. Already-cached keys complete immediately;
// failed keys refetch once their failure window has passed.
func (b *Batch) Reload(ctx context.Context) {
	b.start(ctx)
}

// Keys returns the batch's key list.
func (b *Batch) Keys() []Key {
	return b.keys
}
