// Package glint provides the reactive tracking and invalidation core for
// the Glint framework.
//
// The engine is key-based rather than value-based: stores (pkg/store,
// pkg/dataset) record every key a computation reads into the active
// tracking frame, and a mounted boundary subscribes to exactly those keys.
// Writing any tracked key re-evaluates the boundary body with a fresh
// frame, replacing the previous result.
//
// # Tracking
//
// A tracking frame is a set of dependencies collected during one
// synchronous evaluation pass:
//
//	id := glint.Begin()
//	value := renderSidebar() // store reads are recorded
//	deps := glint.End(id)
//
// Frames nest: a key read inside an inner frame is also recorded in every
// enclosing frame, so an outer boundary depends transitively on everything
// its children read. Frames are per goroutine; an evaluation must not
// yield to another goroutine while its frame is open.
//
// # Boundaries
//
// A reactive boundary wraps a side-effect-free body function. The body is
// checked once, at construction time, against the capture rules in
// pkg/capture: it may reference package-level bindings, its own
// parameters, and anything it declares itself, but nothing from an
// enclosing function's scope.
//
//	b, err := glint.NewBoundary(func() string {
//	    name, _, _ := store.Read("user.name")
//	    return string(name)
//	})
//
// Mounting a boundary evaluates it, subscribes to the recorded keys, and
// re-evaluates through the configured scheduler whenever one of them is
// written.
//
// # Scheduling
//
// Notification delivery is pluggable. The default scheduler invokes
// notification thunks synchronously; a Deferred scheduler queues them for
// an explicit Flush, coalescing repeated writes to the same key into a
// single delivery that observes the latest value.
package glint
