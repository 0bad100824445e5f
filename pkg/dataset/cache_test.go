package dataset

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeSource is an in-memory Source with controllable fetch behavior.
type fakeSource struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	fetches atomic.Int64
	stores  atomic.Int64

	fetchErr error
	storeErr error

	// block, when non-nil, holds every Fetch until closed.
	block chan struct{}
	// fetching receives one signal per Fetch entry, for synchronizing
	// with a blocked fetch.
	fetching chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{blobs: make(map[string][]byte)}
}

func (f *fakeSource) put(key Key, data []byte) {
	f.mu.Lock()
	f.blobs[key.Canonical()] = data
	f.mu.Unlock()
}

func (f *fakeSource) Fetch(ctx context.Context, key Key) ([]byte, error) {
	f.fetches.Add(1)
	if f.fetching != nil {
		f.fetching <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[key.Canonical()]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (f *fakeSource) Store(ctx context.Context, key Key, data []byte) error {
	f.stores.Add(1)
	if f.storeErr != nil {
		return f.storeErr
	}
	f.put(key, data)
	return nil
}

func TestPreloadPopulatesCache(t *testing.T) {
	src := newFakeSource()
	key := K("main", Field("users"))
	src.put(key, []byte("blob"))
	c := New(src)
	defer c.Destroy()

	if _, ok, _ := c.Read(key); ok {
		t.Fatal("cache populated before preload")
	}
	if err := c.Preload(context.Background(), key); err != nil {
		t.Fatal(err)
	}
	data, ok, err := c.Read(key)
	if err != nil || !ok || string(data) != "blob" {
		t.Fatalf("Read = (%q, %v, %v)", data, ok, err)
	}
}

func TestPreloadCachedIsFree(t *testing.T) {
	src := newFakeSource()
	key := K("main")
	src.put(key, []byte("blob"))
	c := New(src)
	defer c.Destroy()

	c.Preload(context.Background(), key)
	c.Preload(context.Background(), key)
	c.Preload(context.Background(), key)
	if got := src.fetches.Load(); got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}
}

func TestPreloadNotifiesSubscribers(t *testing.T) {
	src := newFakeSource()
	key := K("main")
	src.put(key, []byte("blob"))
	c := New(src)
	defer c.Destroy()

	fired := 0
	unsub := c.SubscribeKey(key, func() { fired++ })
	defer unsub()

	c.Preload(context.Background(), key)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1: first availability is a change", fired)
	}
}

func TestPreloadCoalesces(t *testing.T) {
	src := newFakeSource()
	key := K("main")
	src.put(key, []byte("blob"))
	src.block = make(chan struct{})
	src.fetching = make(chan struct{}, 1)
	c := New(src)
	defer c.Destroy()

	var wg sync.WaitGroup
	errs := make([]error, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = c.Preload(context.Background(), key)
	}()
	<-src.fetching // the leader is inside Fetch

	for i := 1; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Preload(context.Background(), key)
		}(i)
	}
	// Give the followers a moment to join the flight, then release.
	time.Sleep(10 * time.Millisecond)
	close(src.block)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("preload %d: %v", i, err)
		}
	}
	if got := src.fetches.Load(); got != 1 {
		t.Fatalf("fetches = %d, want 1 coalesced fetch", got)
	}
}

func TestPreloadFailure(t *testing.T) {
	src := newFakeSource()
	boom := errors.New("source unreachable")
	src.fetchErr = boom
	key := K("main")
	c := New(src)
	defer c.Destroy()

	err := c.Preload(context.Background(), key)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if !errors.Is(err, boom) {
		t.Fatal("FetchError does not wrap the source error")
	}
	if fe.Key.Canonical() != key.Canonical() {
		t.Fatalf("FetchError.Key = %v", fe.Key)
	}
	if c.Has(key) {
		t.Fatal("failed preload populated the cache")
	}
}

func TestPreloadFailureWindowSuppressesRefetch(t *testing.T) {
	src := newFakeSource()
	src.fetchErr = errors.New("boom")
	key := K("main")
	c := New(src, WithRequestCache(NewRequestCache(&RequestCacheConfig{
		FailureTTL: time.Hour,
	})))
	defer c.Destroy()

	c.Preload(context.Background(), key)
	c.Preload(context.Background(), key)
	c.Preload(context.Background(), key)
	if got := src.fetches.Load(); got != 1 {
		t.Fatalf("fetches = %d, want 1: failures inside the window fail fast", got)
	}
}

func TestPreloadRetriesAfterWindow(t *testing.T) {
	src := newFakeSource()
	src.fetchErr = errors.New("boom")
	key := K("main")
	c := New(src, WithRequestCache(NewRequestCache(&RequestCacheConfig{
		FailureTTL: time.Nanosecond,
	})))
	defer c.Destroy()

	c.Preload(context.Background(), key)
	time.Sleep(time.Millisecond)

	src.fetchErr = nil
	src.put(key, []byte("recovered"))
	if err := c.Preload(context.Background(), key); err != nil {
		t.Fatal(err)
	}
	data, _, _ := c.Read(key)
	if string(data) != "recovered" {
		t.Fatalf("data = %q", data)
	}
}

func TestWriteThrough(t *testing.T) {
	src := newFakeSource()
	key := K("main")
	c := New(src)
	defer c.Destroy()

	fired := 0
	unsub := c.SubscribeKey(key, func() { fired++ })
	defer unsub()

	if err := c.Write(context.Background(), key, []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if src.stores.Load() != 1 {
		t.Fatal("write did not reach the source of record")
	}
	data, _, _ := c.Read(key)
	if string(data) != "v1" {
		t.Fatalf("cache = %q after write-through", data)
	}
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestWriteThroughFailureLeavesCacheUnchanged(t *testing.T) {
	src := newFakeSource()
	key := K("main")
	src.put(key, []byte("old"))
	c := New(src)
	defer c.Destroy()
	c.Preload(context.Background(), key)

	fired := 0
	unsub := c.SubscribeKey(key, func() { fired++ })
	defer unsub()

	src.storeErr = errors.New("remote rejected")
	err := c.Write(context.Background(), key, []byte("new"))
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Op != "write" {
		t.Fatalf("err = %v, want write *FetchError", err)
	}
	data, _, _ := c.Read(key)
	if string(data) != "old" {
		t.Fatalf("cache = %q, want the pre-write value", data)
	}
	if fired != 0 {
		t.Fatal("failed write notified subscribers")
	}
}

func TestExplicitWriteWinsOverInflightFetch(t *testing.T) {
	src := newFakeSource()
	key := K("main")
	src.put(key, []byte("fetched"))
	src.block = make(chan struct{})
	src.fetching = make(chan struct{}, 1)
	c := New(src)
	defer c.Destroy()

	done := make(chan error, 1)
	go func() { done <- c.Preload(context.Background(), key) }()
	<-src.fetching

	// The write lands while the fetch is still in flight.
	if err := c.Write(context.Background(), key, []byte("written")); err != nil {
		t.Fatal(err)
	}
	close(src.block)
	if err := <-done; err != nil {
		t.Fatalf("superseded preload reported failure: %v", err)
	}

	data, _, _ := c.Read(key)
	if string(data) != "written" {
		t.Fatalf("cache = %q, the stale fetch result overwrote an explicit write", data)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	src := newFakeSource()
	key := K("main")
	src.put(key, []byte("v1"))
	c := New(src)
	defer c.Destroy()

	c.Preload(context.Background(), key)
	src.put(key, []byte("v2"))
	c.Invalidate(key)

	// Cached value stays readable until the refetch lands.
	data, ok, _ := c.Read(key)
	if !ok || string(data) != "v1" {
		t.Fatalf("Read after Invalidate = (%q, %v)", data, ok)
	}

	if err := c.Preload(context.Background(), key); err != nil {
		t.Fatal(err)
	}
	if got := src.fetches.Load(); got != 2 {
		t.Fatalf("fetches = %d, want 2", got)
	}
	data, _, _ = c.Read(key)
	if string(data) != "v2" {
		t.Fatalf("data = %q after refetch", data)
	}
}

func TestPreloadContextCancelWhileCoalesced(t *testing.T) {
	src := newFakeSource()
	key := K("main")
	src.put(key, []byte("blob"))
	src.block = make(chan struct{})
	src.fetching = make(chan struct{}, 1)
	c := New(src)
	defer c.Destroy()

	leaderDone := make(chan error, 1)
	go func() { leaderDone <- c.Preload(context.Background(), key) }()
	<-src.fetching

	ctx, cancel := context.WithCancel(context.Background())
	followerDone := make(chan error, 1)
	go func() { followerDone <- c.Preload(ctx, key) }()
	cancel()

	if err := <-followerDone; !errors.Is(err, context.Canceled) {
		t.Fatalf("follower err = %v, want context.Canceled", err)
	}
	close(src.block)
	if err := <-leaderDone; err != nil {
		t.Fatalf("leader err = %v", err)
	}
}
