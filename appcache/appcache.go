// Package appcache is the category-aware application façade over the cache
// engine and the query cache. Domain callers store and fetch computed
// results (autocomplete lists, statistics, process records, search results,
// reminder lists) by category; writes to the underlying data invalidate a
// whole category in one call, without any caller touching engine internals.
package appcache

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/agentuity/go-cache/cache"
	"github.com/agentuity/go-cache/logger"
	"github.com/agentuity/go-cache/querycache"
)

// Category groups cache keys for bulk invalidation.
type Category string

const (
	CategoryProcesses    Category = "processes"
	CategoryReminders    Category = "reminders"
	CategoryStatistics   Category = "statistics"
	CategoryAutocomplete Category = "autocomplete"
)

// Categories lists every category the façade tracks.
var Categories = []Category{
	CategoryProcesses,
	CategoryReminders,
	CategoryStatistics,
	CategoryAutocomplete,
}

// AppCache composes one cache engine for computed results and one query
// cache for raw query results. It adds no locking of its own: storage is
// serialized by the engines and the dependency bookkeeping is lock-free.
type AppCache struct {
	cfg     Config
	log     logger.Logger
	app     *cache.Cache
	queries *querycache.QueryCache

	// dependencies records, per category, the keys created under it. Used
	// for bookkeeping only, never for storage.
	dependencies map[Category]*xsync.MapOf[string, struct{}]
}

// Option configures an AppCache.
type Option func(*options)

type options struct {
	logger  logger.Logger
	appOpts []cache.Option
}

// WithLogger sets the façade logger; it is also passed to both engines.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCacheOptions appends extra engine options (for example cache.WithMeter)
// to both underlying caches.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(o *options) { o.appOpts = append(o.appOpts, opts...) }
}

// New builds the façade: an LRU engine for application data and a wrapped
// LRU engine for query results, both sized from cfg.
func New(ctx context.Context, cfg Config, opts ...Option) (*AppCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.NewConsoleLogger()
	}
	log := o.logger.WithPrefix("appcache")

	appOpts := append([]cache.Option{
		cache.WithLogger(o.logger),
		cache.WithName("app"),
	}, o.appOpts...)
	app, err := cache.New(ctx, cache.Config{
		MaxEntries:      cfg.MaxEntries,
		MaxMemoryBytes:  cfg.MaxMemoryBytes,
		Strategy:        cache.StrategyLRU,
		CleanupInterval: cfg.CleanupInterval.Std(),
	}, appOpts...)
	if err != nil {
		return nil, err
	}

	queryOpts := append([]cache.Option{
		cache.WithLogger(o.logger),
		cache.WithName("query"),
	}, o.appOpts...)
	queryEngine, err := cache.New(ctx, cache.Config{
		MaxEntries:      cfg.QueryMaxEntries,
		MaxMemoryBytes:  cfg.QueryMaxMemoryBytes,
		Strategy:        cache.StrategyLRU,
		CleanupInterval: cfg.CleanupInterval.Std(),
	}, queryOpts...)
	if err != nil {
		app.Close()
		return nil, err
	}

	a := &AppCache{
		cfg: cfg,
		log: log,
		app: app,
		queries: querycache.New(queryEngine, querycache.WithTTLs(querycache.TTLs{
			Statistics:   cfg.StatisticsTTL.Std(),
			Autocomplete: cfg.AutocompleteTTL.Std(),
			Search:       cfg.SearchTTL.Std(),
		})),
		dependencies: make(map[Category]*xsync.MapOf[string, struct{}], len(Categories)),
	}
	for _, cat := range Categories {
		a.dependencies[cat] = xsync.NewMapOf[string, struct{}]()
	}

	app.OnEviction(func(key string, _ any) { log.Debug("eviction: %s", key) })
	app.OnHit(func(key string, _ any) { log.Trace("hit: %s", key) })
	app.OnMiss(func(key string) { log.Trace("miss: %s", key) })
	return a, nil
}

func (a *AppCache) track(cat Category, key string) {
	a.dependencies[cat].Store(key, struct{}{})
}

// GetAutocomplete returns the cached completion list for a field and typed
// prefix.
func (a *AppCache) GetAutocomplete(field, query string) ([]string, bool) {
	return cache.GetAs[[]string](a.app, cache.Key("autocomplete", field, query))
}

// SetAutocomplete caches a completion list for a field and typed prefix.
func (a *AppCache) SetAutocomplete(field, query string, data []string) {
	key := cache.Key("autocomplete", field, query)
	a.app.Put(key, data,
		cache.WithTTL(a.cfg.AutocompleteTTL.Std()),
		cache.WithTags(string(CategoryAutocomplete), "autocomplete:"+field))
	a.track(CategoryAutocomplete, key)
}

// GetStatistics returns a cached statistics payload for a type and filters.
func (a *AppCache) GetStatistics(statType string, filters map[string]any) (map[string]any, bool) {
	return cache.GetAs[map[string]any](a.app, cache.Key("stats", statType, filters))
}

// SetStatistics caches a statistics payload.
func (a *AppCache) SetStatistics(statType string, data map[string]any, filters map[string]any) {
	key := cache.Key("stats", statType, filters)
	a.app.Put(key, data,
		cache.WithTTL(a.cfg.StatisticsTTL.Std()),
		cache.WithTags(string(CategoryStatistics), "statistics:"+statType))
	a.track(CategoryStatistics, key)
}

// GetProcess returns a cached process record by id.
func (a *AppCache) GetProcess(id any) (map[string]any, bool) {
	return cache.GetAs[map[string]any](a.app, cache.Key("process", id))
}

// SetProcess caches a process record by id.
func (a *AppCache) SetProcess(id any, data map[string]any) {
	key := cache.Key("process", id)
	a.app.Put(key, data,
		cache.WithTTL(a.cfg.ProcessTTL.Std()),
		cache.WithTags(string(CategoryProcesses), "processes:record"))
	a.track(CategoryProcesses, key)
}

// GetProcessSearch returns cached search results for a filter set.
func (a *AppCache) GetProcessSearch(filters map[string]any) ([]map[string]any, bool) {
	return cache.GetAs[[]map[string]any](a.app, cache.Key("search", filters))
}

// SetProcessSearch caches search results for a filter set. Search results
// age out on the shorter search TTL but invalidate with the process
// category.
func (a *AppCache) SetProcessSearch(data []map[string]any, filters map[string]any) {
	key := cache.Key("search", filters)
	a.app.Put(key, data,
		cache.WithTTL(a.cfg.SearchTTL.Std()),
		cache.WithTags(string(CategoryProcesses), "processes:search"))
	a.track(CategoryProcesses, key)
}

// GetReminders returns a cached reminder list for a filter set.
func (a *AppCache) GetReminders(filters map[string]any) ([]map[string]any, bool) {
	return cache.GetAs[[]map[string]any](a.app, cache.Key("reminders", filters))
}

// SetReminders caches a reminder list for a filter set.
func (a *AppCache) SetReminders(data []map[string]any, filters map[string]any) {
	key := cache.Key("reminders", filters)
	a.app.Put(key, data,
		cache.WithTTL(a.cfg.ProcessTTL.Std()),
		cache.WithTags(string(CategoryReminders), "reminders:list"))
	a.track(CategoryReminders, key)
}

// GetQueryResult returns a cached raw query result.
func (a *AppCache) GetQueryResult(sql string, params []any) (any, bool) {
	return a.queries.GetQueryOK(sql, params)
}

// SetQueryResult caches a raw query result; tags and TTL come from the
// query cache's classification.
func (a *AppCache) SetQueryResult(sql string, params []any, result any) bool {
	return a.queries.PutQuery(sql, params, result)
}

// QueryCache exposes the wrapped query cache for persistence-layer callers.
func (a *AppCache) QueryCache() *querycache.QueryCache {
	return a.queries
}

// InvalidateCategory removes every entry under the category's base tag and
// clears its dependency set. The processes and reminders categories also
// invalidate their table in the query cache. An unknown category is a no-op.
func (a *AppCache) InvalidateCategory(cat Category) {
	deps, ok := a.dependencies[cat]
	if !ok {
		a.log.Warn("ignoring invalidation for unknown category %q", cat)
		return
	}
	removed := a.app.InvalidateByTags(string(cat))
	deps.Clear()
	switch cat {
	case CategoryProcesses:
		removed += a.queries.InvalidateTable(a.cfg.ProcessesTable)
	case CategoryReminders:
		removed += a.queries.InvalidateTable(a.cfg.RemindersTable)
	}
	a.log.Info("invalidated category %s (%d entries)", cat, removed)
}

// InvalidateProcesses invalidates process records and search results.
func (a *AppCache) InvalidateProcesses() {
	a.InvalidateCategory(CategoryProcesses)
}

// InvalidateReminders invalidates reminder lists.
func (a *AppCache) InvalidateReminders() {
	a.InvalidateCategory(CategoryReminders)
}

// InvalidateStatistics invalidates cached statistics.
func (a *AppCache) InvalidateStatistics() {
	a.InvalidateCategory(CategoryStatistics)
}

// InvalidateAutocomplete invalidates autocomplete entries. With a non-empty
// field only that field's entries are removed; the category's dependency
// set is cleared only on a full invalidation.
func (a *AppCache) InvalidateAutocomplete(field string) {
	if field != "" {
		removed := a.app.InvalidateByTags("autocomplete:" + field)
		a.log.Info("invalidated autocomplete field %s (%d entries)", field, removed)
		return
	}
	a.InvalidateCategory(CategoryAutocomplete)
}

// InvalidateAll clears both caches and every dependency set.
func (a *AppCache) InvalidateAll() {
	a.app.Clear()
	a.queries.Clear()
	for _, deps := range a.dependencies {
		deps.Clear()
	}
	a.log.Info("invalidated all cached data")
}

// Report summarizes both caches and the dependency bookkeeping.
type Report struct {
	App          CacheReport    `json:"app_cache"`
	Query        CacheReport    `json:"query_cache"`
	Dependencies map[string]int `json:"dependencies"`
}

// CacheReport is the per-cache slice of a Report.
type CacheReport struct {
	HitRate       float64 `json:"hit_rate"`
	MemoryUsageMB float64 `json:"memory_usage_mb"`
	EntryCount    int     `json:"entry_count"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Evictions     int64   `json:"evictions"`
}

func toCacheReport(s cache.Stats) CacheReport {
	return CacheReport{
		HitRate:       s.HitRate(),
		MemoryUsageMB: s.MemoryUsageMB(),
		EntryCount:    s.EntryCount,
		Hits:          s.Hits,
		Misses:        s.Misses,
		Evictions:     s.Evictions,
	}
}

// Report returns a combined snapshot of both caches.
func (a *AppCache) Report() Report {
	deps := make(map[string]int, len(a.dependencies))
	for cat, set := range a.dependencies {
		deps[string(cat)] = set.Size()
	}
	return Report{
		App:          toCacheReport(a.app.Stats()),
		Query:        toCacheReport(a.queries.Stats()),
		Dependencies: deps,
	}
}

// MemoryUsage combines the memory reports of both caches.
type MemoryUsage struct {
	App     cache.MemoryReport `json:"app_cache"`
	Query   cache.MemoryReport `json:"query_cache"`
	TotalMB float64            `json:"total_mb"`
}

// MemoryUsage returns the combined memory report.
func (a *AppCache) MemoryUsage() MemoryUsage {
	app := a.app.MemoryUsage()
	query := a.queries.MemoryUsage()
	return MemoryUsage{
		App:     app,
		Query:   query,
		TotalMB: app.CacheSizeMB + query.CacheSizeMB,
	}
}

// Cache exposes the application-data engine for the memoization decorator.
func (a *AppCache) Cache() *cache.Cache {
	return a.app
}

// Close closes both underlying caches.
func (a *AppCache) Close() {
	a.app.Close()
	a.queries.Close()
	a.log.Debug("closed")
}
