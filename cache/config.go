package cache

import (
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/metric"

	"github.com/agentuity/go-cache/logger"
)

// DefaultCleanupInterval is the default background sweep interval.
const DefaultCleanupInterval = time.Minute

// DefaultMaxMemoryBytes is the default memory budget (50 MiB).
const DefaultMaxMemoryBytes = 50 * 1024 * 1024

// DefaultMaxEntries is the default entry cap.
const DefaultMaxEntries = 1000

// closeTimeout bounds how long Close waits for the sweep goroutine to exit.
const closeTimeout = 5 * time.Second

// Config holds the immutable configuration of a cache instance.
type Config struct {
	// MaxEntries caps the number of live entries. Must be > 0.
	MaxEntries int
	// MaxMemoryBytes caps the total estimated size of live entries. Must be > 0.
	MaxMemoryBytes int64
	// DefaultTTL is applied to entries stored without an explicit TTL.
	// Zero means entries do not expire unless a TTL is supplied per Put.
	DefaultTTL time.Duration
	// Strategy selects the eviction policy.
	Strategy Strategy
	// CleanupInterval is the background sweep period. Zero disables the sweep.
	CleanupInterval time.Duration
}

// DefaultConfig returns the configuration used when fields are left zero.
func DefaultConfig() Config {
	return Config{
		MaxEntries:      DefaultMaxEntries,
		MaxMemoryBytes:  DefaultMaxMemoryBytes,
		Strategy:        StrategyLRU,
		CleanupInterval: DefaultCleanupInterval,
	}
}

// Validate rejects configurations the cache cannot operate with.
func (c Config) Validate() error {
	if c.MaxEntries <= 0 {
		return errors.Newf("cache: MaxEntries must be > 0, got %d", c.MaxEntries)
	}
	if c.MaxMemoryBytes <= 0 {
		return errors.Newf("cache: MaxMemoryBytes must be > 0, got %d", c.MaxMemoryBytes)
	}
	if c.CleanupInterval < 0 {
		return errors.Newf("cache: CleanupInterval must be >= 0, got %s", c.CleanupInterval)
	}
	if c.Strategy < StrategyLRU || c.Strategy > StrategyTTL {
		return errors.Newf("cache: invalid strategy: %d", int(c.Strategy))
	}
	return nil
}

// Sizer estimates the byte footprint of a value. Estimates are best-effort;
// a Sizer must never panic out of the cache.
type Sizer func(value any) int64

// Option configures a cache instance at construction.
type Option func(*options)

type options struct {
	logger logger.Logger
	sizer  Sizer
	meter  metric.Meter
	name   string
}

// WithLogger sets the logger used for callback and sweep faults.
// Defaults to a console logger at the environment-configured level.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSizer replaces the default serialization-probe size estimator.
func WithSizer(s Sizer) Option {
	return func(o *options) { o.sizer = s }
}

// WithMeter enables OpenTelemetry instrumentation of hits, misses,
// evictions, entry count and memory usage.
func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}

// WithName sets the instance name used in log prefixes and metric attributes.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// PutOption configures a single Put call.
type PutOption func(*putOptions)

type putOptions struct {
	ttl    time.Duration
	ttlSet bool
	tags   []string
}

// WithTTL sets the TTL for the stored entry. WithTTL(0) explicitly stores
// the entry without expiry, overriding the cache's default TTL.
func WithTTL(d time.Duration) PutOption {
	return func(o *putOptions) {
		o.ttl = d
		o.ttlSet = true
	}
}

// WithTags attaches tags to the stored entry for bulk invalidation.
func WithTags(tags ...string) PutOption {
	return func(o *putOptions) {
		o.tags = append(o.tags, tags...)
	}
}
