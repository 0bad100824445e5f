// Package dataset caches remotely fetched binary blobs keyed by
// (workspace, hierarchical path), on top of the keyed subscription store.
//
// Reads are synchronous cache lookups and never fetch; Preload issues at
// most one outstanding fetch per key, coalescing concurrent callers onto
// it. Writes go through the external source of record first and only
// touch the cache after the remote write is acknowledged. Batch preload
// fans out concurrently and reports partial failure without rolling back
// the keys that succeeded.
//
//	cache := dataset.New(source)
//	key := dataset.Key{Workspace: "analytics", Path: []dataset.Segment{
//	    dataset.Field("users"), dataset.Index(3),
//	}}
//	if err := cache.Preload(ctx, key); err != nil { ... }
//	data, ok, err := cache.Read(key)
//
// Cache reads participate in glint dependency tracking like any store
// read, so a reactive boundary that read a dataset re-evaluates when the
// dataset is written or first becomes available.
package dataset
