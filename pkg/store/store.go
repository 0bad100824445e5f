package store

import (
	"sync"
	"sync/atomic"

	"github.com/glint-ui/glint/pkg/glint"
)

// entry holds one key's value and subscribers. A nil value means absent:
// the key reads as missing and Has reports false, but the subscriber set
// survives so callers can subscribe before the first write. The entry is
// removed outright only when both value and subscribers are gone.
type entry struct {
	value     []byte
	lastWrite uint64

	// subs in registration order; notification delivery follows it.
	subs []subscriber

	// pending is set while a notification thunk for this key is queued
	// with the scheduler but not yet delivered. Writes during that window
	// merge their subscriber snapshot into pendingSubs instead of queueing
	// a second thunk, which keeps same-key delivery FIFO and coalesced.
	pending     bool
	pendingSubs []subscriber
}

type subscriber struct {
	id uint64
	fn func()
}

// Store is a keyed subscription store. All operations are synchronous and
// non-blocking; the zero scheduler delivers notifications immediately.
type Store struct {
	scope string

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	version   atomic.Uint64
	nextSubID atomic.Uint64

	schedMu   sync.RWMutex
	scheduler glint.Scheduler
}

// Option configures a Store.
type Option func(*Store)

// WithScheduler sets the notification scheduler. The default is
// glint.Immediate.
func WithScheduler(s glint.Scheduler) Option {
	return func(st *Store) {
		st.scheduler = s
	}
}

// New creates an empty store. scope names the tracking namespace recorded
// with every tracked read ("state", "dataset", ...).
func New(scope string, opts ...Option) *Store {
	st := &Store{
		scope:   scope,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Scope returns the store's tracking namespace.
func (s *Store) Scope() string {
	return s.scope
}

// SetScheduler replaces the notification scheduler. Thunks already handed
// to the previous scheduler are unaffected.
func (s *Store) SetScheduler(sched glint.Scheduler) {
	s.schedMu.Lock()
	s.scheduler = sched
	s.schedMu.Unlock()
}

func (s *Store) schedule(notify func()) {
	s.schedMu.RLock()
	sched := s.scheduler
	s.schedMu.RUnlock()
	if sched == nil {
		sched = glint.Immediate
	}
	sched(notify)
}

// Read returns the current value for key, or ok=false if absent. If a
// tracking frame is open on this goroutine the key is recorded as a
// dependency whether or not a value exists. The returned slice must be
// treated as immutable.
func (s *Store) Read(key string) (value []byte, ok bool, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, false, ErrStoreClosed
	}
	if e, exists := s.entries[key]; exists && e.value != nil {
		value, ok = e.value, true
	}
	s.mu.Unlock()

	// Record after releasing the lock; the tracker may call back into
	// arbitrary code via frame bookkeeping.
	if glint.IsTracking() {
		glint.Record(glint.Dep{
			Key:    glint.Key{Scope: s.scope, ID: key},
			Source: s,
		})
	}
	return value, ok, nil
}

// Write replaces the value for key and notifies its subscribers through
// the scheduler. A nil value deletes the key. The global version is
// incremented and subscribers are notified on every write, including one
// that stores bytes identical to the current value: invalidation is
// write-driven, not diff-driven.
func (s *Store) Write(key string, value []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	notify := s.writeLocked(key, value)
	s.mu.Unlock()

	if notify {
		s.schedule(func() { s.deliver(key) })
	}
	return nil
}

// writeLocked performs the entry update under s.mu and reports whether a
// notification thunk must be scheduled for key.
func (s *Store) writeLocked(key string, value []byte) (notify bool) {
	e := s.entries[key]
	if e == nil {
		e = &entry{}
		s.entries[key] = e
	}

	if value == nil {
		e.value = nil
	} else {
		// Private copy so a caller mutating its slice afterwards cannot
		// corrupt what subscribers read.
		e.value = append([]byte(nil), value...)
	}
	e.lastWrite = s.version.Add(1)

	if e.value == nil && len(e.subs) == 0 && !e.pending {
		delete(s.entries, key)
		return false
	}

	// Snapshot subscribers at write time: registrations added between this
	// write and delivery must not retroactively fire.
	if e.pending {
		e.pendingSubs = mergeSubs(e.pendingSubs, e.subs)
		return false
	}
	if len(e.subs) == 0 {
		return false
	}
	e.pending = true
	e.pendingSubs = append([]subscriber(nil), e.subs...)
	return true
}

// Delete removes key. Equivalent to Write(key, nil).
func (s *Store) Delete(key string) error {
	return s.Write(key, nil)
}

// deliver runs the pending notification for key. Callbacks whose
// subscription was removed between write and delivery are skipped.
func (s *Store) deliver(key string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	e := s.entries[key]
	if e == nil {
		s.mu.Unlock()
		return
	}
	snapshot := e.pendingSubs
	e.pending = false
	e.pendingSubs = nil

	live := make(map[uint64]bool, len(e.subs))
	for _, sub := range e.subs {
		live[sub.id] = true
	}
	if e.value == nil && len(e.subs) == 0 {
		delete(s.entries, key)
	}
	s.mu.Unlock()

	for _, sub := range snapshot {
		if live[sub.id] {
			sub.fn()
		}
	}
}

// Has reports whether key currently holds a value. A destroyed store has
// nothing.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, exists := s.entries[key]
	return exists && e.value != nil
}

// Subscribe registers fn to run after each write to key, including writes
// that delete it. The returned closure removes exactly this registration
// and is idempotent. Subscribing to a destroyed store returns a no-op
// unsubscribe rather than an error, to tolerate teardown races.
func (s *Store) Subscribe(key string, fn func()) (unsubscribe func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	e := s.entries[key]
	if e == nil {
		e = &entry{}
		s.entries[key] = e
	}
	id := s.nextSubID.Add(1)
	e.subs = append(e.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(key, id) })
	}
}

func (s *Store) unsubscribe(key string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[key]
	if e == nil {
		return
	}
	for i, sub := range e.subs {
		if sub.id == id {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			break
		}
	}
	if e.value == nil && len(e.subs) == 0 && !e.pending {
		delete(s.entries, key)
	}
}

// Snapshot returns the global version counter. It changes on every write
// to any key and powers the coarse "has anything changed" fast path.
func (s *Store) Snapshot() uint64 {
	return s.version.Load()
}

// Len reports how many keys currently hold a value.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.value != nil {
			n++
		}
	}
	return n
}

// Destroy clears all entries and subscriber sets. Subsequent Read and
// Write calls fail with ErrStoreClosed; residual subscriptions and
// pending notifications become no-ops.
func (s *Store) Destroy() {
	s.mu.Lock()
	s.closed = true
	s.entries = nil
	s.mu.Unlock()
}

// writeIfAbsent stores value only when key holds no value, atomically
// with respect to concurrent writes to the same key. It backs InitTyped's
// guarded first-write. Reports whether the write happened.
func (s *Store) writeIfAbsent(key string, value []byte) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrStoreClosed
	}
	if e, exists := s.entries[key]; exists && e.value != nil {
		s.mu.Unlock()
		return false, nil
	}
	notify := s.writeLocked(key, value)
	s.mu.Unlock()

	if notify {
		s.schedule(func() { s.deliver(key) })
	}
	return true, nil
}

func mergeSubs(into, add []subscriber) []subscriber {
	seen := make(map[uint64]bool, len(into))
	for _, sub := range into {
		seen[sub.id] = true
	}
	for _, sub := range add {
		if !seen[sub.id] {
			seen[sub.id] = true
			into = append(into, sub)
		}
	}
	return into
}
