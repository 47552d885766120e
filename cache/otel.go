package cache

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the OpenTelemetry instruments for one cache instance. All
// methods are safe on a nil receiver so the uninstrumented path stays free
// of conditionals.
type metrics struct {
	attrs     metric.MeasurementOption
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	evictions metric.Int64Counter
}

func newMetrics(meter metric.Meter, name string, c *Cache) (*metrics, error) {
	m := &metrics{
		attrs: metric.WithAttributes(attribute.String("cache.name", name)),
	}
	var err error
	if m.hits, err = meter.Int64Counter("cache.hits",
		metric.WithDescription("Number of cache hits")); err != nil {
		return nil, err
	}
	if m.misses, err = meter.Int64Counter("cache.misses",
		metric.WithDescription("Number of cache misses")); err != nil {
		return nil, err
	}
	if m.evictions, err = meter.Int64Counter("cache.evictions",
		metric.WithDescription("Number of entries evicted for capacity, memory or expiry")); err != nil {
		return nil, err
	}

	entries, err := meter.Int64ObservableGauge("cache.entries",
		metric.WithDescription("Number of live entries"))
	if err != nil {
		return nil, err
	}
	memory, err := meter.Int64ObservableGauge("cache.memory_bytes",
		metric.WithDescription("Estimated bytes held by live entries"))
	if err != nil {
		return nil, err
	}
	attrSet := attribute.NewSet(attribute.String("cache.name", name))
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := c.Stats()
		o.ObserveInt64(entries, int64(stats.EntryCount), metric.WithAttributeSet(attrSet))
		o.ObserveInt64(memory, stats.MemoryUsage, metric.WithAttributeSet(attrSet))
		return nil
	}, entries, memory)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *metrics) hit() {
	if m == nil {
		return
	}
	m.hits.Add(context.Background(), 1, m.attrs)
}

func (m *metrics) miss() {
	if m == nil {
		return
	}
	m.misses.Add(context.Background(), 1, m.attrs)
}

func (m *metrics) eviction() {
	if m == nil {
		return
	}
	m.evictions.Add(context.Background(), 1, m.attrs)
}
