// Package querycache caches query-style results keyed by statement text and
// parameters, with automatic tag derivation from the tables a statement
// touches. Invalidating a table removes every cached result that read from
// or wrote to it.
package querycache

import (
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/agentuity/go-cache/cache"
)

// TablePrefix is the tag prefix applied to auto-derived table tags.
const TablePrefix = "table:"

// tableRefs matches table names following FROM/JOIN/UPDATE/INTO keywords.
var tableRefs = regexp.MustCompile(`(?i)\b(?:from|join|update|into)\s+([a-zA-Z_][a-zA-Z0-9_]*)`)

// aggregateShape matches statements computing aggregates; those results
// change slowly and get the statistics TTL.
var aggregateShape = regexp.MustCompile(`(?i)\b(?:count|sum|avg|min|max)\s*\(`)

// distinctShape matches distinct-value listings, typically backing
// autocomplete, which get the shortest TTL.
var distinctShape = regexp.MustCompile(`(?i)\bselect\s+distinct\b`)

// TTLs are the default lifetimes chosen by query-shape classification.
type TTLs struct {
	// Statistics applies to aggregate queries (COUNT/SUM/AVG/MIN/MAX).
	Statistics time.Duration
	// Autocomplete applies to SELECT DISTINCT queries.
	Autocomplete time.Duration
	// Search applies to everything else.
	Search time.Duration
}

// DefaultTTLs returns the stock classification TTLs.
func DefaultTTLs() TTLs {
	return TTLs{
		Statistics:   10 * time.Minute,
		Autocomplete: 5 * time.Minute,
		Search:       3 * time.Minute,
	}
}

// QueryStats is the hit/miss pair tracked per distinct statement text.
type QueryStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

type queryCounter struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a QueryCache.
type Option func(*QueryCache)

// WithTTLs overrides the classification TTLs.
func WithTTLs(ttls TTLs) Option {
	return func(q *QueryCache) { q.ttls = ttls }
}

// QueryCache wraps a cache engine with query-aware keying, tagging and
// per-statement accounting. It adds no locking of its own: storage is
// serialized by the engine and the per-statement counters are lock-free.
type QueryCache struct {
	engine *cache.Cache
	ttls   TTLs
	counts *xsync.MapOf[string, *queryCounter]
}

// New wraps the given engine. The engine's lifecycle stays with the
// wrapper: Close closes it.
func New(engine *cache.Cache, opts ...Option) *QueryCache {
	q := &QueryCache{
		engine: engine,
		ttls:   DefaultTTLs(),
		counts: xsync.NewMapOf[string, *queryCounter](),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// QueryKey derives the cache key for a statement and its parameters. Two
// logically equal parameter lists always produce the same key.
func QueryKey(sql string, params ...any) string {
	return cache.Key("query", sql, params)
}

// GetQuery returns the cached result for (sql, params), or def on a miss.
// The per-statement hit/miss counter is updated either way.
func (q *QueryCache) GetQuery(sql string, params []any, def any) any {
	val, ok := q.GetQueryOK(sql, params)
	if !ok {
		return def
	}
	return val
}

// GetQueryOK is GetQuery with an explicit found flag.
func (q *QueryCache) GetQueryOK(sql string, params []any) (any, bool) {
	counter, _ := q.counts.LoadOrStore(sql, &queryCounter{})
	val, ok := q.engine.GetOK(QueryKey(sql, params...))
	if ok {
		counter.hits.Add(1)
	} else {
		counter.misses.Add(1)
	}
	return val, ok
}

// PutOption configures a single PutQuery call.
type PutOption func(*putOptions)

type putOptions struct {
	ttl    time.Duration
	ttlSet bool
	tags   []string
}

// WithTTL stores the result with an explicit TTL instead of the
// classification default.
func WithTTL(d time.Duration) PutOption {
	return func(o *putOptions) {
		o.ttl = d
		o.ttlSet = true
	}
}

// WithTags attaches extra tags beyond the auto-derived table tags.
func WithTags(tags ...string) PutOption {
	return func(o *putOptions) {
		o.tags = append(o.tags, tags...)
	}
}

// PutQuery stores a result for (sql, params). Tags are derived by scanning
// the statement for table references and unioned with any supplied tags;
// the TTL comes from query-shape classification unless set explicitly.
func (q *QueryCache) PutQuery(sql string, params []any, result any, opts ...PutOption) bool {
	var po putOptions
	for _, opt := range opts {
		opt(&po)
	}
	tags := Tables(sql)
	for i, table := range tags {
		tags[i] = TablePrefix + table
	}
	tags = append(tags, po.tags...)

	ttl := q.classify(sql)
	if po.ttlSet {
		ttl = po.ttl
	}
	return q.engine.Put(QueryKey(sql, params...), result,
		cache.WithTTL(ttl), cache.WithTags(tags...))
}

// InvalidateTable removes every cached result tagged with the given table.
func (q *QueryCache) InvalidateTable(name string) int {
	return q.engine.InvalidateByTags(TablePrefix + strings.ToLower(name))
}

// GetQueryStats returns a snapshot of the per-statement hit/miss counters.
func (q *QueryCache) GetQueryStats() map[string]QueryStats {
	out := make(map[string]QueryStats)
	q.counts.Range(func(sql string, counter *queryCounter) bool {
		out[sql] = QueryStats{
			Hits:   counter.hits.Load(),
			Misses: counter.misses.Load(),
		}
		return true
	})
	return out
}

// Stats returns the underlying engine's counters.
func (q *QueryCache) Stats() cache.Stats {
	return q.engine.Stats()
}

// MemoryUsage returns the underlying engine's memory report.
func (q *QueryCache) MemoryUsage() cache.MemoryReport {
	return q.engine.MemoryUsage()
}

// Clear removes all cached results. Per-statement counters are kept.
func (q *QueryCache) Clear() {
	q.engine.Clear()
}

// Close closes the underlying engine.
func (q *QueryCache) Close() {
	q.engine.Close()
}

// Tables extracts the lowercased table names referenced by a statement.
func Tables(sql string) []string {
	matches := tableRefs.FindAllStringSubmatch(sql, -1)
	seen := make(map[string]struct{}, len(matches))
	var tables []string
	for _, m := range matches {
		name := strings.ToLower(m[1])
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		tables = append(tables, name)
	}
	return tables
}

func (q *QueryCache) classify(sql string) time.Duration {
	switch {
	case aggregateShape.MatchString(sql):
		return q.ttls.Statistics
	case distinctShape.MatchString(sql):
		return q.ttls.Autocomplete
	default:
		return q.ttls.Search
	}
}
