// Package service implements the SafeSpace use cases on top of the
// repository and cache ports. Both readable collections (stories and
// resources) are served cache-aside: read through the cache, fill it on a
// miss, and invalidate it after every write.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/cache"
)

// DefaultTTL is the expiry applied to every cached collection.
const DefaultTTL = time.Hour

// Cache keys of the two readable collections.
const (
	StoriesKey   = "stories"
	ResourcesKey = "resources"
)

// CacheRecorder observes cache outcomes. observability.Collector satisfies it.
type CacheRecorder interface {
	CacheHit(collection string)
	CacheMiss(collection string)
	CacheError(collection, operation string)
}

// Loader fetches the full current collection from the store.
type Loader[T any] func(ctx context.Context) ([]T, error)

// CollectionConfig configures one cached collection.
type CollectionConfig struct {
	Key          string
	TTL          time.Duration
	SingleFlight bool
}

// Collection is a cache-aside view over one store collection. The cached
// value is the JSON encoding of the full collection.
type Collection[T any] struct {
	key      string
	ttl      time.Duration
	cache    cache.Cache
	load     Loader[T]
	logger   *zap.Logger
	recorder CacheRecorder
	tracer   trace.Tracer
	group    *singleflight.Group

	// generation is bumped by Invalidate. A fill that started under an older
	// generation drops what it cached.
	generation atomic.Uint64
}

// NewCollection builds a cache-aside collection. A nil cache behaves as an
// always-empty cache.
func NewCollection[T any](cfg CollectionConfig, c cache.Cache, load Loader[T], opts ...Option) *Collection[T] {
	o := newOptions(opts)
	if c == nil {
		c = cache.NopCache{}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	col := &Collection[T]{
		key:      cfg.Key,
		ttl:      ttl,
		cache:    c,
		load:     load,
		logger:   o.logger.With(zap.String("collection", cfg.Key)),
		recorder: o.metrics,
		tracer:   o.tracer,
	}
	if cfg.SingleFlight {
		col.group = &singleflight.Group{}
	}
	return col
}

// Key returns the cache key of the collection.
func (c *Collection[T]) Key() string {
	return c.key
}

// Read returns the collection. A cache hit is returned without touching the
// store. A miss, an unreachable cache or an undecodable entry falls back to
// the store and refills the cache. Store failures are returned and nothing
// is cached.
func (c *Collection[T]) Read(ctx context.Context) ([]T, error) {
	ctx, span := c.tracer.Start(ctx, "cache_aside.read",
		trace.WithAttributes(attribute.String("collection", c.key)))
	defer span.End()

	if items, ok := c.fromCache(ctx); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return items, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	items, err := c.fill(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}
	return items, nil
}

// Invalidate drops the cached entry. Failures are logged and counted but not
// returned: the entry still expires within the TTL.
func (c *Collection[T]) Invalidate(ctx context.Context) {
	c.generation.Add(1)
	if c.group != nil {
		// Readers arriving after the write must not join a load that began
		// before it.
		c.group.Forget(c.key)
	}
	if err := c.cache.Delete(ctx, c.key); err != nil {
		c.recorder.CacheError(c.key, "delete")
		c.logger.Warn("Cache invalidation failed", zap.Error(err))
	}
}

func (c *Collection[T]) fromCache(ctx context.Context) ([]T, bool) {
	data, found, err := c.cache.Get(ctx, c.key)
	if err != nil {
		c.recorder.CacheError(c.key, "get")
		c.recorder.CacheMiss(c.key)
		c.logger.Warn("Cache read failed, reading from store", zap.Error(err))
		return nil, false
	}
	if !found {
		c.recorder.CacheMiss(c.key)
		return nil, false
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		c.recorder.CacheError(c.key, "decode")
		c.recorder.CacheMiss(c.key)
		c.logger.Warn("Discarding undecodable cache entry", zap.Error(err))
		return nil, false
	}
	if items == nil {
		items = []T{}
	}
	c.recorder.CacheHit(c.key)
	return items, true
}

// fill loads from the store and repopulates the cache. With single-flight
// enabled concurrent misses share one load; each caller gets its own slice.
func (c *Collection[T]) fill(ctx context.Context) ([]T, error) {
	if c.group == nil {
		return c.loadAndStore(ctx)
	}

	v, err, _ := c.group.Do(c.key, func() (any, error) {
		// The shared load must not fail because the first caller went away.
		return c.loadAndStore(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	shared := v.([]T)
	items := make([]T, len(shared))
	copy(items, shared)
	return items, nil
}

func (c *Collection[T]) loadAndStore(ctx context.Context) ([]T, error) {
	gen := c.generation.Load()
	items, err := c.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", c.key, err)
	}
	if items == nil {
		items = []T{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		c.recorder.CacheError(c.key, "encode")
		c.logger.Error("Failed to encode collection for cache", zap.Error(err))
		return items, nil
	}
	if err := c.cache.Set(ctx, c.key, data, c.ttl); err != nil {
		c.recorder.CacheError(c.key, "set")
		c.logger.Warn("Cache fill failed", zap.Error(err))
		return items, nil
	}
	if c.generation.Load() != gen {
		// A write landed while loading; the snapshot may predate it.
		if err := c.cache.Delete(ctx, c.key); err != nil {
			c.recorder.CacheError(c.key, "delete")
			c.logger.Warn("Failed to drop stale cache fill", zap.Error(err))
		}
	}
	return items, nil
}

// Option customises a service or collection.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	metrics Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Metrics is the full set of counters the services update.
type Metrics interface {
	CacheRecorder
	StoryCreated()
	ReactionCreated()
	ReportCreated()
}

type nopMetrics struct{}

func (nopMetrics) CacheHit(string)           {}
func (nopMetrics) CacheMiss(string)          {}
func (nopMetrics) CacheError(string, string) {}
func (nopMetrics) StoryCreated()             {}
func (nopMetrics) ReactionCreated()          {}
func (nopMetrics) ReportCreated()            {}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer sets the tracer used for cache-aside spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithClock overrides the time source used for entity timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:  zap.NewNop(),
		metrics: nopMetrics{},
		tracer:  otel.Tracer("github.com/nancymuyeh/SafeSpace/internal/service"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
