package glint

import (
	"runtime"
	"sync"
)

// Key identifies a tracked store entry. Scope names the store that owns
// the entry ("state", "dataset", or a custom store scope); ID is the key
// within that store, canonicalized by the store itself.
type Key struct {
	Scope string
	ID    string
}

// Subscribable is the store-side capability a dependency carries so that a
// mounted boundary can subscribe to the keys it read. Both pkg/store and
// pkg/dataset satisfy it.
type Subscribable interface {
	// Subscribe registers fn to run after a write to id. The returned
	// closure removes the registration and is safe to call more than once.
	Subscribe(id string, fn func()) (unsubscribe func())

	// Snapshot returns the store's global version counter. It changes on
	// every write to any key and powers the "has anything changed" fast
	// path before a boundary re-evaluates.
	Snapshot() uint64
}

// Dep is one recorded dependency: the key that was read and the store it
// was read from.
type Dep struct {
	Key    Key
	Source Subscribable
}

// FrameID identifies an open tracking frame.
type FrameID uint64

// frame collects the dependencies recorded during one evaluation pass.
// deps preserves first-read order; seen deduplicates by key.
type frame struct {
	id   FrameID
	deps []Dep
	seen map[Key]struct{}
}

// trackingContext holds the reactive state for one goroutine: the stack of
// open frames and the untracked-suppression depth.
type trackingContext struct {
	frames         []*frame
	untrackedDepth int
}

// trackingContexts stores per-goroutine tracking contexts. The stack
// discipline is strictly synchronous within a goroutine; the map only
// exists so concurrent evaluations on different goroutines cannot corrupt
// each other's frames.
var trackingContexts sync.Map

// getGoroutineID parses the current goroutine's ID from the runtime stack
// header ("goroutine <id> ..."). Implementation detail; never exposed.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := 10; i < n; i++ { // skip "goroutine "
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

func getTrackingContext() *trackingContext {
	gid := getGoroutineID()
	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}
	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// Begin pushes a new empty tracking frame onto the current goroutine's
// stack and returns its handle. Every Begin must be paired with End on the
// same goroutine; use WithFrame for an exception-safe pairing.
func Begin() FrameID {
	ctx := getTrackingContext()
	f := &frame{
		id:   FrameID(nextID()),
		seen: make(map[Key]struct{}),
	}
	ctx.frames = append(ctx.frames, f)
	return f.id
}

// End pops frames down to and including id and returns the dependencies
// recorded for id, in first-read order. Inner frames still open at End are
// discarded with it, which makes End safe to call from a deferred cleanup
// after a panic unwound past nested Begins. An id that is not on the stack
// pops nothing and returns nil.
func End(id FrameID) []Dep {
	ctx := getTrackingContext()
	for i := len(ctx.frames) - 1; i >= 0; i-- {
		if ctx.frames[i].id == id {
			deps := ctx.frames[i].deps
			ctx.frames = ctx.frames[:i]
			if len(ctx.frames) == 0 && ctx.untrackedDepth == 0 {
				trackingContexts.Delete(getGoroutineID())
			}
			return deps
		}
	}
	return nil
}

// IsTracking reports whether any frame is open on the current goroutine.
// Store read paths use it to skip the recording branch cheaply.
func IsTracking() bool {
	gid := getGoroutineID()
	v, ok := trackingContexts.Load(gid)
	if !ok {
		return false
	}
	ctx := v.(*trackingContext)
	return len(ctx.frames) > 0 && ctx.untrackedDepth == 0
}

// Record inserts d into every open frame on the current goroutine,
// deduplicated per frame by key. Recording into all frames (not only the
// top) is what gives an outer boundary the transitive dependencies of the
// boundaries nested inside it.
func Record(d Dep) {
	ctx := getTrackingContext()
	if ctx.untrackedDepth > 0 {
		return
	}
	for _, f := range ctx.frames {
		if _, dup := f.seen[d.Key]; dup {
			continue
		}
		f.seen[d.Key] = struct{}{}
		f.deps = append(f.deps, d)
	}
}

// WithFrame runs fn inside a fresh tracking frame and returns the
// dependencies it recorded. The frame is popped on every exit path,
// including a panic inside fn.
func WithFrame(fn func()) (deps []Dep) {
	id := Begin()
	defer func() {
		deps = End(id)
	}()
	fn()
	return
}

// Untracked runs fn with dependency recording suppressed. Reads inside fn
// resolve normally but register nothing, even with frames open.
func Untracked(fn func()) {
	ctx := getTrackingContext()
	ctx.untrackedDepth++
	defer func() {
		ctx.untrackedDepth--
		if len(ctx.frames) == 0 && ctx.untrackedDepth == 0 {
			trackingContexts.Delete(getGoroutineID())
		}
	}()
	fn()
}
