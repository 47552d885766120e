package memoize

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentuity/go-cache/cache"
	"github.com/agentuity/go-cache/logger"
)

func newTestEngine(t *testing.T) *cache.Cache {
	t.Helper()
	cfg := cache.DefaultConfig()
	cfg.CleanupInterval = 0
	c, err := cache.New(context.Background(), cfg, cache.WithLogger(logger.NewTestLogger()))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestWrapCachesByArgument(t *testing.T) {
	c := newTestEngine(t)
	var calls atomic.Int64
	square := Wrap(c, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n * n, nil
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		v, err := square(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, 16, v)
	}
	v, err := square(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 25, v)
	assert.Equal(t, int64(2), calls.Load())
}

func TestFuncZeroArg(t *testing.T) {
	c := newTestEngine(t)
	var calls atomic.Int64
	load := Func(c, func(context.Context) (string, error) {
		calls.Add(1)
		return "payload", nil
	}, WithName("load"))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		v, err := load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "payload", v)
	}
	assert.Equal(t, int64(1), calls.Load())
}

func TestWrap2DistinctArgPairs(t *testing.T) {
	c := newTestEngine(t)
	var calls atomic.Int64
	join := Wrap2(c, func(_ context.Context, a, b string) (string, error) {
		calls.Add(1)
		return a + ":" + b, nil
	})

	ctx := context.Background()
	v, err := join(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "a:b", v)
	v, err = join(ctx, "a", "c")
	require.NoError(t, err)
	assert.Equal(t, "a:c", v)
	_, err = join(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestErrorsPropagateAndAreNotCached(t *testing.T) {
	c := newTestEngine(t)
	var calls atomic.Int64
	boom := errors.New("boom")
	failing := Wrap(c, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		if calls.Load() == 1 {
			return 0, boom
		}
		return n, nil
	})

	ctx := context.Background()
	_, err := failing(ctx, 7)
	assert.ErrorIs(t, err, boom)

	v, err := failing(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, int64(2), calls.Load())
}

func TestWithTTL(t *testing.T) {
	c := newTestEngine(t)
	var calls atomic.Int64
	now := Wrap(c, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	}, WithTTL(time.Millisecond))

	ctx := context.Background()
	_, err := now(ctx, 1)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = now(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestWithTagsParticipateInInvalidation(t *testing.T) {
	c := newTestEngine(t)
	var calls atomic.Int64
	lookup := Wrap(c, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	}, WithTags("processes"))

	ctx := context.Background()
	_, err := lookup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.InvalidateByTags("processes"))
	_, err = lookup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestWithKeyFunc(t *testing.T) {
	c := newTestEngine(t)
	var calls atomic.Int64
	byUser := Wrap(c, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	}, WithKeyFunc(func(args ...any) string { return "fixed" }))

	ctx := context.Background()
	byUser(ctx, 1)
	byUser(ctx, 2)
	assert.Equal(t, int64(1), calls.Load())
	assert.True(t, c.Exists("fixed"))
}

func TestConcurrentMissesCollapse(t *testing.T) {
	c := newTestEngine(t)
	var calls atomic.Int64
	slow := Wrap(c, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return n, nil
	})

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := slow(ctx, 3)
			assert.NoError(t, err)
			assert.Equal(t, 3, v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), calls.Load())
}
