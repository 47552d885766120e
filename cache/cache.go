package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/agentuity/go-cache/logger"
)

// removeReason describes why an entry is leaving the cache. Only capacity,
// memory and expiry removals count toward the evictions stat.
type removeReason int

const (
	reasonManual removeReason = iota
	reasonReplace
	reasonExpired
	reasonCapacity
	reasonMemory
	reasonTags
	reasonClear
)

func (r removeReason) countsAsEviction() bool {
	return r == reasonExpired || r == reasonCapacity || r == reasonMemory
}

// Cache is a thread-safe, in-process store with pluggable eviction
// strategies, a memory budget, tag-based bulk invalidation and an optional
// background sweep. All operations on one instance are serialized by a
// single mutex; no operation performs I/O while holding it.
type Cache struct {
	cfg     Config
	log     logger.Logger
	sizer   Sizer
	metrics *metrics

	ctx       context.Context
	cancel    context.CancelFunc
	waitGroup sync.WaitGroup
	closeOnce sync.Once

	mu      sync.Mutex
	entries map[string]*Entry

	// Per-strategy indices. Only the active strategy's index is maintained
	// on insert/touch; removal clears all of them.
	lruList  *list.List
	lruElem  map[string]*list.Element
	lfuNodes map[string]*lfuNode
	lfuSeq   uint64
	fifoList *list.List
	fifoElem map[string]*list.Element

	tags  map[string]map[string]struct{}
	stats Stats

	evictionCallbacks []func(key string, value any)
	hitCallbacks      []func(key string, value any)
	missCallbacks     []func(key string)
}

type lfuNode struct {
	count int64
	seq   uint64
}

// New creates a cache with the given configuration. The context bounds the
// lifetime of the background sweep; cancelling it stops the sweep the same
// way Close does.
func New(parent context.Context, cfg Config, opts ...Option) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{name: "cache"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.NewConsoleLogger()
	}
	if o.sizer == nil {
		o.sizer = DefaultSizer
	}
	ctx, cancel := context.WithCancel(parent)
	c := &Cache{
		cfg:      cfg,
		log:      o.logger.WithPrefix(o.name),
		sizer:    o.sizer,
		ctx:      ctx,
		cancel:   cancel,
		entries:  make(map[string]*Entry),
		lruList:  list.New(),
		lruElem:  make(map[string]*list.Element),
		lfuNodes: make(map[string]*lfuNode),
		fifoList: list.New(),
		fifoElem: make(map[string]*list.Element),
		tags:     make(map[string]map[string]struct{}),
	}
	if o.meter != nil {
		m, err := newMetrics(o.meter, o.name, c)
		if err != nil {
			c.log.Warn("metrics registration failed: %v", err)
		} else {
			c.metrics = m
		}
	}
	if cfg.CleanupInterval > 0 {
		c.waitGroup.Add(1)
		go c.run()
	}
	return c, nil
}

// Put stores a value under key. It returns false without mutating the cache
// when the value's estimated size alone exceeds the memory budget. Storing
// over an existing key removes the old entry first.
func (c *Cache) Put(key string, value any, opts ...PutOption) bool {
	var po putOptions
	for _, opt := range opts {
		opt(&po)
	}
	size := c.estimate(value)
	if size > c.cfg.MaxMemoryBytes {
		return false
	}
	ttl := c.cfg.DefaultTTL
	if po.ttlSet {
		ttl = po.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.removeLocked(key, reasonReplace)
	}

	now := time.Now()
	entry := &Entry{
		Key:          key,
		Value:        value,
		CreatedAt:    now,
		LastAccessed: now,
		AccessCount:  1,
		TTL:          ttl,
		Size:         size,
		Tags:         make(map[string]struct{}, len(po.tags)),
	}
	for _, tag := range po.tags {
		entry.Tags[tag] = struct{}{}
	}

	c.entries[key] = entry
	switch c.cfg.Strategy {
	case StrategyLRU:
		c.lruElem[key] = c.lruList.PushBack(key)
	case StrategyLFU:
		c.lfuSeq++
		c.lfuNodes[key] = &lfuNode{count: 1, seq: c.lfuSeq}
	case StrategyFIFO:
		c.fifoElem[key] = c.fifoList.PushBack(key)
	}
	for tag := range entry.Tags {
		keys, ok := c.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	c.stats.MemoryUsage += size
	c.stats.EntryCount++

	c.enforceSizeLocked()
	c.enforceMemoryLocked()
	return true
}

// Get returns the value stored under key, or def when the key is absent or
// expired. A hit updates the entry's access bookkeeping and the active
// strategy's index; an expired entry is removed and counted as an eviction.
func (c *Cache) Get(key string, def any) any {
	val, ok := c.GetOK(key)
	if !ok {
		return def
	}
	return val
}

// GetOK is Get with an explicit found flag instead of a caller default.
func (c *Cache) GetOK(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.missLocked(key)
		return nil, false
	}
	now := time.Now()
	if entry.Expired(now) {
		c.removeLocked(key, reasonExpired)
		c.missLocked(key)
		return nil, false
	}

	entry.touch(now)
	switch c.cfg.Strategy {
	case StrategyLRU:
		if elem, ok := c.lruElem[key]; ok {
			c.lruList.MoveToBack(elem)
		}
	case StrategyLFU:
		if node, ok := c.lfuNodes[key]; ok {
			node.count++
		}
	}

	c.stats.Hits++
	c.metrics.hit()
	for _, cb := range c.hitCallbacks {
		c.safely("hit callback", func() { cb(key, entry.Value) })
	}
	return entry.Value, true
}

func (c *Cache) missLocked(key string) {
	c.stats.Misses++
	c.metrics.miss()
	for _, cb := range c.missCallbacks {
		c.safely("miss callback", func() { cb(key) })
	}
}

// Delete removes the entry stored under key. It reports whether an entry
// was present. Explicit deletion does not count as an eviction.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return false
	}
	c.removeLocked(key, reasonManual)
	return true
}

// Exists reports whether key holds a live entry. Unlike Get it does not
// touch access bookkeeping or stats, but it still removes the entry when it
// finds it expired.
func (c *Cache) Exists(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	if entry.Expired(time.Now()) {
		c.removeLocked(key, reasonExpired)
		return false
	}
	return true
}

// Keys returns all currently live keys, sweeping any expired entries found
// during the scan.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	keys := make([]string, 0, len(c.entries))
	var expired []string
	for key, entry := range c.entries {
		if entry.Expired(now) {
			expired = append(expired, key)
			continue
		}
		keys = append(keys, key)
	}
	for _, key := range expired {
		c.removeLocked(key, reasonExpired)
	}
	return keys
}

// InvalidateByTags removes every entry registered under any of the given
// tags and returns the number of entries removed.
func (c *Cache) InvalidateByTags(tags ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	doomed := make(map[string]struct{})
	for _, tag := range tags {
		for key := range c.tags[tag] {
			doomed[key] = struct{}{}
		}
	}
	for key := range doomed {
		c.removeLocked(key, reasonTags)
	}
	return len(doomed)
}

// Clear removes every entry through the regular removal path, so eviction
// callbacks fire for each.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Cache) clearLocked() {
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	for _, key := range keys {
		c.removeLocked(key, reasonClear)
	}
}

// Stats returns a snapshot of the cache counters. Memory usage and entry
// count are recomputed from live state.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	var memory int64
	for _, entry := range c.entries {
		memory += entry.Size
	}
	c.stats.MemoryUsage = memory
	c.stats.EntryCount = len(c.entries)
	return c.stats
}

// OnEviction registers a callback invoked for every entry removal, whatever
// the reason. Callbacks run under the cache lock: they must be fast and must
// not call back into the cache. Panics are recovered and logged.
func (c *Cache) OnEviction(fn func(key string, value any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictionCallbacks = append(c.evictionCallbacks, fn)
}

// OnHit registers a callback invoked on every successful Get. Same
// constraints as OnEviction.
func (c *Cache) OnHit(fn func(key string, value any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hitCallbacks = append(c.hitCallbacks, fn)
}

// OnMiss registers a callback invoked on every Get miss. Same constraints
// as OnEviction.
func (c *Cache) OnMiss(fn func(key string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.missCallbacks = append(c.missCallbacks, fn)
}

// Close stops the background sweep, waiting a bounded time for it to exit,
// then clears the store. Close is idempotent.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		done := make(chan struct{})
		go func() {
			c.waitGroup.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(closeTimeout):
			c.log.Warn("sweep goroutine did not exit within %s", closeTimeout)
		}
		c.Clear()
	})
}

// estimate wraps the configured sizer so a misbehaving sizer degrades to
// the fixed default instead of failing the Put.
func (c *Cache) estimate(value any) (size int64) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("size estimation panicked: %v", r)
			size = defaultValueSize
		}
	}()
	return c.sizer(value)
}

// safely runs fn, recovering and logging any panic. Callback faults are
// side-channel only and never abort the triggering operation.
func (c *Cache) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("%s failed: %v", what, r)
		}
	}()
	fn()
}

// removeLocked is the single removal path shared by eviction, deletion,
// tag invalidation, expiry and clear. The caller holds the lock.
func (c *Cache) removeLocked(key string, reason removeReason) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	for _, cb := range c.evictionCallbacks {
		c.safely("eviction callback", func() { cb(key, entry.Value) })
	}

	if elem, ok := c.lruElem[key]; ok {
		c.lruList.Remove(elem)
		delete(c.lruElem, key)
	}
	delete(c.lfuNodes, key)
	if elem, ok := c.fifoElem[key]; ok {
		c.fifoList.Remove(elem)
		delete(c.fifoElem, key)
	}

	for tag := range entry.Tags {
		if keys, ok := c.tags[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.tags, tag)
			}
		}
	}

	delete(c.entries, key)
	c.stats.MemoryUsage -= entry.Size
	c.stats.EntryCount--
	if reason.countsAsEviction() {
		c.stats.Evictions++
		c.metrics.eviction()
	}
}

// evictionCandidateLocked selects the next entry to evict per the active
// strategy. It returns false only when the store is empty or the indices
// are out of step with the entry map.
func (c *Cache) evictionCandidateLocked() (string, bool) {
	if len(c.entries) == 0 {
		return "", false
	}
	switch c.cfg.Strategy {
	case StrategyLRU:
		if elem := c.lruList.Front(); elem != nil {
			return elem.Value.(string), true
		}
	case StrategyLFU:
		var best string
		var bestNode *lfuNode
		for key, node := range c.lfuNodes {
			if _, live := c.entries[key]; !live {
				continue
			}
			if bestNode == nil || node.count < bestNode.count ||
				(node.count == bestNode.count && node.seq < bestNode.seq) {
				best, bestNode = key, node
			}
		}
		if bestNode != nil {
			return best, true
		}
	case StrategyFIFO:
		if elem := c.fifoList.Front(); elem != nil {
			return elem.Value.(string), true
		}
	case StrategyTTL:
		var oldest string
		var oldestAt time.Time
		for key, entry := range c.entries {
			if oldest == "" || entry.CreatedAt.Before(oldestAt) {
				oldest, oldestAt = key, entry.CreatedAt
			}
		}
		if oldest != "" {
			return oldest, true
		}
	}
	return "", false
}

func (c *Cache) enforceSizeLocked() {
	for len(c.entries) > c.cfg.MaxEntries {
		key, ok := c.evictionCandidateLocked()
		if !ok {
			break
		}
		c.removeLocked(key, reasonCapacity)
	}
}

func (c *Cache) enforceMemoryLocked() {
	var memory int64
	for _, entry := range c.entries {
		memory += entry.Size
	}
	for memory > c.cfg.MaxMemoryBytes && len(c.entries) > 0 {
		key, ok := c.evictionCandidateLocked()
		if !ok {
			break
		}
		memory -= c.entries[key].Size
		c.removeLocked(key, reasonMemory)
	}
}

func (c *Cache) sweepExpiredLocked() {
	now := time.Now()
	var expired []string
	for key, entry := range c.entries {
		if entry.Expired(now) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		c.removeLocked(key, reasonExpired)
	}
}

// run is the background sweep loop: every CleanupInterval it removes
// expired entries and re-enforces the memory limit. A fault in one pass is
// logged and the loop continues on its next tick.
func (c *Cache) run() {
	defer c.waitGroup.Done()
	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.safely("sweep", func() {
				c.mu.Lock()
				defer c.mu.Unlock()
				c.sweepExpiredLocked()
				c.enforceMemoryLocked()
			})
		}
	}
}
