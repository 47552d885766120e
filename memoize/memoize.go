// Package memoize caches the results of function calls. A wrapped function
// derives its cache key from the function's identity and a canonical form
// of its arguments, so repeat calls with equal arguments are served from the
// cache. Concurrent misses for the same key are collapsed into a single
// invocation. Errors propagate unmodified and are never cached.
package memoize

import (
	"context"
	"reflect"
	"runtime"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/agentuity/go-cache/cache"
)

// KeyFunc builds a cache key from the call's arguments, replacing the
// default identity-plus-canonical-args derivation.
type KeyFunc func(args ...any) string

// Option configures a memoized function.
type Option func(*options)

type options struct {
	ttl    time.Duration
	ttlSet bool
	tags   []string
	name   string
	keyFn  KeyFunc
}

// WithTTL stores memoized results with the given TTL instead of the
// cache's default.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		o.ttl = d
		o.ttlSet = true
	}
}

// WithTags attaches tags to memoized results so they participate in bulk
// invalidation.
func WithTags(tags ...string) Option {
	return func(o *options) { o.tags = append(o.tags, tags...) }
}

// WithName overrides the runtime-derived function name in cache keys.
// Closures share one runtime name per call site, so name them explicitly
// when wrapping more than one.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithKeyFunc replaces the default key derivation entirely.
func WithKeyFunc(fn KeyFunc) Option {
	return func(o *options) { o.keyFn = fn }
}

func buildOptions(fn any, opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.name == "" {
		o.name = runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	}
	return o
}

func (o *options) key(args ...any) string {
	if o.keyFn != nil {
		return o.keyFn(args...)
	}
	parts := append([]any{"memo", o.name}, args...)
	return cache.Key(parts...)
}

func (o *options) putOptions() []cache.PutOption {
	var puts []cache.PutOption
	if o.ttlSet {
		puts = append(puts, cache.WithTTL(o.ttl))
	}
	if len(o.tags) > 0 {
		puts = append(puts, cache.WithTags(o.tags...))
	}
	return puts
}

func call[R any](c *cache.Cache, g *singleflight.Group, o *options, key string, invoke func() (R, error)) (R, error) {
	if val, ok := cache.GetAs[R](c, key); ok {
		return val, nil
	}
	res, err, _ := g.Do(key, func() (any, error) {
		// another flight may have populated the key while we queued
		if val, ok := cache.GetAs[R](c, key); ok {
			return val, nil
		}
		val, err := invoke()
		if err != nil {
			return nil, err
		}
		c.Put(key, val, o.putOptions()...)
		return val, nil
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return res.(R), nil
}

// Func memoizes a zero-argument function.
func Func[R any](c *cache.Cache, fn func(ctx context.Context) (R, error), opts ...Option) func(ctx context.Context) (R, error) {
	o := buildOptions(fn, opts)
	var g singleflight.Group
	return func(ctx context.Context) (R, error) {
		return call(c, &g, o, o.key(), func() (R, error) { return fn(ctx) })
	}
}

// Wrap memoizes a one-argument function.
func Wrap[A any, R any](c *cache.Cache, fn func(ctx context.Context, arg A) (R, error), opts ...Option) func(ctx context.Context, arg A) (R, error) {
	o := buildOptions(fn, opts)
	var g singleflight.Group
	return func(ctx context.Context, arg A) (R, error) {
		return call(c, &g, o, o.key(arg), func() (R, error) { return fn(ctx, arg) })
	}
}

// Wrap2 memoizes a two-argument function.
func Wrap2[A any, B any, R any](c *cache.Cache, fn func(ctx context.Context, a A, b B) (R, error), opts ...Option) func(ctx context.Context, a A, b B) (R, error) {
	o := buildOptions(fn, opts)
	var g singleflight.Group
	return func(ctx context.Context, a A, b B) (R, error) {
		return call(c, &g, o, o.key(a, b), func() (R, error) { return fn(ctx, a, b) })
	}
}
