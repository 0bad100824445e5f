package glint

import "sync"

// Handle is a mounted boundary: live subscriptions to the keys the last
// evaluation read, plus the machinery to re-evaluate when one of them is
// written. Close releases every subscription.
type Handle struct {
	mu        sync.Mutex
	closed    bool
	rendering bool
	pending   bool
	unsubs    []func()
	snapshots map[Subscribable]uint64

	evaluate func() // set by Mount; runs one evaluation + delivery
}

// Mount evaluates b, delivers the result to onResult, and subscribes to
// every dependency the evaluation recorded. Each subsequent write to a
// tracked key re-evaluates the body with a fresh frame and delivers the
// new result, replacing the old one in place. Notifications arrive
// through the owning store's scheduler, so deferring or batching is
// configured there, not here.
func Mount[T any](b *Boundary[T], onResult func(T)) *Handle {
	h := &Handle{snapshots: make(map[Subscribable]uint64)}
	h.evaluate = func() {
		result, deps := b.Evaluate()
		h.mu.Lock()
		h.resubscribeLocked(deps)
		h.mu.Unlock()
		onResult(result)
	}
	h.run()
	return h
}

// notify is the subscriber callback shared by all of the handle's
// subscriptions. The coarse version snapshot of each source is the fast
// path: if nothing changed anywhere since the last evaluation, the body
// does not re-run.
func (h *Handle) notify() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	changed := false
	for src, seen := range h.snapshots {
		if src.Snapshot() != seen {
			changed = true
			break
		}
	}
	if !changed {
		h.mu.Unlock()
		return
	}
	if h.rendering {
		// A write issued from inside the body or the result callback.
		// Defer to the render loop already on the stack instead of
		// re-entering it.
		h.pending = true
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	h.run()
}

// run evaluates until no notification arrived during the evaluation, so a
// body whose delivery writes further tracked keys settles rather than
// recursing.
func (h *Handle) run() {
	h.mu.Lock()
	if h.closed || h.rendering {
		h.mu.Unlock()
		return
	}
	h.rendering = true
	h.mu.Unlock()

	for {
		h.evaluate()

		h.mu.Lock()
		if !h.pending || h.closed {
			h.rendering = false
			h.mu.Unlock()
			return
		}
		h.pending = false
		h.mu.Unlock()
	}
}

// resubscribeLocked replaces the previous evaluation's subscriptions with
// ones for deps. Caller holds h.mu.
func (h *Handle) resubscribeLocked(deps []Dep) {
	for _, unsub := range h.unsubs {
		unsub()
	}
	h.unsubs = h.unsubs[:0]
	for k := range h.snapshots {
		delete(h.snapshots, k)
	}
	for _, dep := range deps {
		h.unsubs = append(h.unsubs, dep.Source.Subscribe(dep.Key.ID, h.notify))
		h.snapshots[dep.Source] = dep.Source.Snapshot()
	}
}

// Close unsubscribes from all tracked keys. Notifications already in
// flight become no-ops. Idempotent.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, unsub := range h.unsubs {
		unsub()
	}
	h.unsubs = nil
}
