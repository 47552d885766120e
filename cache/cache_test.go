package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentuity/go-cache/logger"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CleanupInterval = 0
	return cfg
}

func newTestCache(t *testing.T, cfg Config, opts ...Option) *Cache {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewTestLogger())}, opts...)
	c, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestConfigValidation(t *testing.T) {
	_, err := New(context.Background(), Config{MaxEntries: 0, MaxMemoryBytes: 100})
	assert.Error(t, err)
	_, err = New(context.Background(), Config{MaxEntries: 10, MaxMemoryBytes: 0})
	assert.Error(t, err)
	_, err = New(context.Background(), Config{MaxEntries: 10, MaxMemoryBytes: 100, CleanupInterval: -time.Second})
	assert.Error(t, err)
	_, err = New(context.Background(), Config{MaxEntries: 10, MaxMemoryBytes: 100, Strategy: Strategy(42)})
	assert.Error(t, err)
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newTestCache(t, testConfig())
	assert.True(t, c.Put("k", "v", WithTTL(time.Minute)))
	assert.Equal(t, "v", c.Get("k", "default"))
	assert.Equal(t, "default", c.Get("absent", "default"))
}

func TestExpiry(t *testing.T) {
	c := newTestCache(t, testConfig())
	assert.True(t, c.Put("k", "v", WithTTL(time.Millisecond)))
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, "d", c.Get("k", "d"))
	assert.NotContains(t, c.Keys(), "k")
}

func TestDefaultTTLApplied(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultTTL = time.Millisecond
	c := newTestCache(t, cfg)
	assert.True(t, c.Put("short", 1))
	assert.True(t, c.Put("pinned", 2, WithTTL(0)))
	time.Sleep(5 * time.Millisecond)
	assert.False(t, c.Exists("short"))
	assert.True(t, c.Exists("pinned"))
}

func TestExpiredEntryCountsAsEviction(t *testing.T) {
	c := newTestCache(t, testConfig())
	c.Put("k", "v", WithTTL(time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok := c.GetOK("k")
	assert.False(t, ok)
	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(0), stats.Hits)
}

func TestSizeLimitEviction(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 3
	c := newTestCache(t, cfg)
	for i := 0; i < 4; i++ {
		assert.True(t, c.Put(fmt.Sprintf("k%d", i), i))
	}
	assert.LessOrEqual(t, c.Stats().EntryCount, 3)
	assert.True(t, c.Exists("k3"))
}

func TestMemoryLimitEviction(t *testing.T) {
	cfg := testConfig()
	cfg.MaxMemoryBytes = 100
	c := newTestCache(t, cfg, WithSizer(func(any) int64 { return 40 }))
	for i := 0; i < 5; i++ {
		assert.True(t, c.Put(fmt.Sprintf("k%d", i), i))
		assert.LessOrEqual(t, c.Stats().MemoryUsage, int64(100))
	}
}

func TestOversizedRejection(t *testing.T) {
	cfg := testConfig()
	cfg.MaxMemoryBytes = 100
	c := newTestCache(t, cfg, WithSizer(func(any) int64 { return 1000 }))
	assert.False(t, c.Put("k", "huge"))
	assert.False(t, c.Exists("k"))
	assert.Equal(t, 0, c.Stats().EntryCount)
}

func TestTagInvalidationExactness(t *testing.T) {
	c := newTestCache(t, testConfig())
	c.Put("a", 1, WithTags("T"))
	c.Put("b", 2, WithTags("T"))
	c.Put("c", 3)
	assert.Equal(t, 2, c.InvalidateByTags("T"))
	assert.False(t, c.Exists("a"))
	assert.False(t, c.Exists("b"))
	assert.True(t, c.Exists("c"))
	// tag bookkeeping is pruned, so a second pass removes nothing
	assert.Equal(t, 0, c.InvalidateByTags("T"))
}

func TestTagInvalidationIsNotAnEviction(t *testing.T) {
	c := newTestCache(t, testConfig())
	c.Put("a", 1, WithTags("T"))
	c.InvalidateByTags("T")
	c.Put("b", 2)
	c.Delete("b")
	assert.Equal(t, int64(0), c.Stats().Evictions)
}

func TestHitMissAccounting(t *testing.T) {
	c := newTestCache(t, testConfig())
	assert.Equal(t, "d", c.Get("missing", "d"))
	c.Put("k", 1)
	assert.Equal(t, 1, c.Get("k", "d"))
	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate(), 1e-9)
}

func TestHitRateZeroWhenUntouched(t *testing.T) {
	c := newTestCache(t, testConfig())
	assert.Zero(t, c.Stats().HitRate())
}

func TestLRUOrdering(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 2
	cfg.Strategy = StrategyLRU
	c := newTestCache(t, cfg)
	c.Put("a", 1)
	c.Put("b", 2)
	assert.Equal(t, 1, c.Get("a", nil))
	c.Put("c", 3)
	assert.False(t, c.Exists("b"))
	assert.True(t, c.Exists("a"))
	assert.True(t, c.Exists("c"))
}

func TestLFUEvictsLeastFrequent(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 2
	cfg.Strategy = StrategyLFU
	c := newTestCache(t, cfg)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a", nil)
	c.Get("a", nil)
	c.Put("c", 3)
	assert.False(t, c.Exists("b"))
	assert.True(t, c.Exists("a"))
	assert.True(t, c.Exists("c"))
}

func TestLFUTieBreakByInsertionOrder(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 2
	cfg.Strategy = StrategyLFU
	c := newTestCache(t, cfg)
	c.Put("first", 1)
	c.Put("second", 2)
	// equal frequency: the earliest inserted key loses
	c.Put("third", 3)
	assert.False(t, c.Exists("first"))
	assert.True(t, c.Exists("second"))
	assert.True(t, c.Exists("third"))
}

func TestFIFOEvictsOldestInsert(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 2
	cfg.Strategy = StrategyFIFO
	c := newTestCache(t, cfg)
	c.Put("a", 1)
	c.Put("b", 2)
	// touching does not save a FIFO entry
	c.Get("a", nil)
	c.Get("a", nil)
	c.Put("c", 3)
	assert.False(t, c.Exists("a"))
	assert.True(t, c.Exists("b"))
	assert.True(t, c.Exists("c"))
}

func TestFIFOSkipsDeletedKeys(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 2
	cfg.Strategy = StrategyFIFO
	c := newTestCache(t, cfg)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Delete("a")
	c.Put("c", 3)
	c.Put("d", 4)
	assert.False(t, c.Exists("b"))
	assert.True(t, c.Exists("c"))
	assert.True(t, c.Exists("d"))
}

func TestTTLStrategyEvictsOldestCreated(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 2
	cfg.Strategy = StrategyTTL
	c := newTestCache(t, cfg)
	c.Put("a", 1)
	time.Sleep(time.Millisecond)
	c.Put("b", 2)
	time.Sleep(time.Millisecond)
	c.Put("c", 3)
	assert.False(t, c.Exists("a"))
	assert.True(t, c.Exists("b"))
	assert.True(t, c.Exists("c"))
}

func TestReplaceExistingKey(t *testing.T) {
	c := newTestCache(t, testConfig())
	var removed []string
	c.OnEviction(func(key string, _ any) { removed = append(removed, key) })
	c.Put("k", "old")
	c.Put("k", "new")
	assert.Equal(t, "new", c.Get("k", nil))
	assert.Equal(t, 1, c.Stats().EntryCount)
	assert.Equal(t, []string{"k"}, removed)
	// replacing is not memory or capacity pressure
	assert.Equal(t, int64(0), c.Stats().Evictions)
}

func TestDelete(t *testing.T) {
	c := newTestCache(t, testConfig())
	c.Put("k", 1)
	assert.True(t, c.Delete("k"))
	assert.False(t, c.Delete("k"))
	assert.False(t, c.Exists("k"))
}

func TestExistsDoesNotTouchStats(t *testing.T) {
	c := newTestCache(t, testConfig())
	c.Put("k", 1)
	c.Exists("k")
	c.Exists("absent")
	stats := c.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
}

func TestClearFiresCallbacks(t *testing.T) {
	c := newTestCache(t, testConfig())
	var removed int
	c.OnEviction(func(string, any) { removed++ })
	c.Put("a", 1)
	c.Put("b", 2)
	c.Clear()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, c.Stats().EntryCount)
}

func TestCallbacks(t *testing.T) {
	c := newTestCache(t, testConfig())
	var hits, misses int
	c.OnHit(func(string, any) { hits++ })
	c.OnMiss(func(string) { misses++ })
	c.Get("absent", nil)
	c.Put("k", 1)
	c.Get("k", nil)
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestCallbackPanicIsContained(t *testing.T) {
	log := logger.NewTestLogger()
	cfg := testConfig()
	c, err := New(context.Background(), cfg, WithLogger(log))
	require.NoError(t, err)
	defer c.Close()

	c.OnHit(func(string, any) { panic("boom") })
	c.Put("k", "v")
	assert.Equal(t, "v", c.Get("k", nil))
	assert.NotEmpty(t, log.Messages("WARNING"))
	assert.Equal(t, int64(1), c.Stats().Hits)
}

func TestSizerPanicDegradesToDefault(t *testing.T) {
	c := newTestCache(t, testConfig(), WithSizer(func(any) int64 { panic("no size") }))
	assert.True(t, c.Put("k", "v"))
	assert.Equal(t, int64(defaultValueSize), c.Stats().MemoryUsage)
}

func TestStatsSnapshotRecomputes(t *testing.T) {
	c := newTestCache(t, testConfig(), WithSizer(func(any) int64 { return 10 }))
	c.Put("a", 1)
	c.Put("b", 2)
	stats := c.Stats()
	assert.Equal(t, 2, stats.EntryCount)
	assert.Equal(t, int64(20), stats.MemoryUsage)
}

func TestBackgroundSweep(t *testing.T) {
	cfg := testConfig()
	cfg.CleanupInterval = 20 * time.Millisecond
	c := newTestCache(t, cfg)
	c.Put("k", "v", WithTTL(5*time.Millisecond))
	assert.Eventually(t, func() bool {
		return c.Stats().EntryCount == 0
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCloseIsIdempotent(t *testing.T) {
	cfg := testConfig()
	cfg.CleanupInterval = 10 * time.Millisecond
	c, err := New(context.Background(), cfg, WithLogger(logger.NewTestLogger()))
	require.NoError(t, err)
	c.Put("k", 1)
	c.Close()
	c.Close()
	assert.Equal(t, 0, c.Stats().EntryCount)
}

func TestParentContextStopsSweep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := testConfig()
	cfg.CleanupInterval = 10 * time.Millisecond
	c, err := New(ctx, cfg, WithLogger(logger.NewTestLogger()))
	require.NoError(t, err)
	cancel()
	c.Close()
}

func TestConcurrentAccess(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 10000
	c := newTestCache(t, cfg)

	const goroutines = 8
	const keysPer = 100
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < keysPer; i++ {
				key := fmt.Sprintf("g%d-k%d", g, i)
				c.Put(key, i)
				c.Get(key, nil)
				c.Delete(key)
				c.Put(key, i)
			}
		}(g)
	}
	wg.Wait()

	// every key's final operation was a successful Put with no TTL
	assert.Equal(t, goroutines*keysPer, c.Stats().EntryCount)
}

func TestMemoryUsageReport(t *testing.T) {
	c := newTestCache(t, testConfig(), WithSizer(func(any) int64 { return 100 }))
	c.Put("a", 1)
	c.Put("b", 2)
	report := c.MemoryUsage()
	assert.Equal(t, int64(200), report.CacheSizeBytes)
	assert.Equal(t, 2, report.EntryCount)
	assert.Equal(t, 100.0, report.AverageEntrySize)
}
