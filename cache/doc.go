// Package cache provides a thread-safe, in-process cache with pluggable
// eviction strategies, a memory budget, tag-based bulk invalidation and a
// background expiry sweep.
//
// # Construction
//
// A cache is created from a [Config] whose limits are validated up front:
//
//	c, err := cache.New(ctx, cache.Config{
//	    MaxEntries:      1000,
//	    MaxMemoryBytes:  50 << 20,
//	    Strategy:        cache.StrategyLRU,
//	    CleanupInterval: time.Minute,
//	})
//
// When CleanupInterval is positive a single goroutine removes expired
// entries and re-enforces the memory budget on that period. [Cache.Close]
// stops it with a bounded wait and then clears the store.
//
// # Limits and eviction
//
// Two independent limits are enforced after every [Cache.Put]: the entry
// cap (MaxEntries) and the memory budget (MaxMemoryBytes). While either is
// exceeded, one candidate at a time is evicted per the configured
// [Strategy] — least recently used, least frequently used, oldest inserted,
// or oldest created. A single value whose estimated size exceeds the whole
// budget is rejected outright: Put returns false and nothing changes.
//
// Sizes are estimates, not guarantees. The default estimator serializes the
// value with msgpack and falls back to a structural walk (string length,
// recursive slice/map sums, a fixed default for opaque types) when
// serialization is impossible. Estimation never fails a Put. Supply
// [WithSizer] to measure domain types precisely.
//
// # Tags
//
// Entries may carry tags ([WithTags]); [Cache.InvalidateByTags] removes
// every entry under any of the given tags in one call. Tag bookkeeping is
// pruned as entries leave the cache.
//
// # Callbacks and observability
//
// [Cache.OnEviction], [Cache.OnHit] and [Cache.OnMiss] register hooks that
// run under the cache lock. A panicking callback is recovered and logged;
// it never aborts the operation that triggered it. [WithMeter] adds
// OpenTelemetry counters for hits, misses and evictions plus entry-count
// and memory gauges.
//
// # Value semantics
//
// Values are stored as-is, without copying. A caller must not assume that
// mutating a returned value is reflected back into the cache, nor that the
// cache's copy is isolated from such mutation: treat returned values as
// read-only or store copies.
//
// The typed helpers [GetAs] and [Fetch] wrap the any-valued API, with
// [Fetch] providing cache-aside population in one call.
package cache
