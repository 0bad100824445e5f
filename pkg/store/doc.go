// Package store implements the keyed subscription store: a map from key
// to an opaque byte value plus a subscriber set, with a global version
// counter that increments on every write.
//
// Store is the shared primitive behind both ephemeral UI state and the
// dataset cache. Reads performed while a glint tracking frame is open are
// recorded as dependencies; writes snapshot the subscriber set and hand a
// single notification thunk to the configured scheduler.
//
// The package also hosts the process-wide state store used by the
// package-level accessors:
//
//	store.Initialize(store.New("state"))
//	defer store.Clear()
//
//	_ = store.InitTyped("volume", 50, store.JSON[int]())
//	v, ok, _ := store.ReadTyped("volume", store.JSON[int]())
//
// Values are opaque bytes and are treated as immutable once stored:
// replace, never patch. Writing a nil value is deletion.
package store
