// Package observability wires logging, Prometheus metrics and OpenTelemetry
// tracing for the API.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. Each
// Collector owns its registry, so several can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Business metrics
	StoriesCreated   prometheus.Counter
	ReactionsCreated prometheus.Counter
	ReportsCreated   prometheus.Counter

	// Store metrics
	StoreQueries  *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	CacheErrors *prometheus.CounterVec
}

// NewCollector creates a metrics collector with the given namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		StoriesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stories_created_total",
			Help:      "Total number of stories created",
		}),
		ReactionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reactions_created_total",
			Help:      "Total number of reactions created",
		}),
		ReportsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_created_total",
			Help:      "Total number of story reports filed",
		}),
		StoreQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_queries_total",
				Help:      "Total number of relational store operations",
			},
			[]string{"operation", "table", "status"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_query_duration_seconds",
				Help:      "Relational store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"collection"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"collection"},
		),
		CacheErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_errors_total",
				Help:      "Total number of failed cache operations",
			},
			[]string{"collection", "operation"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.StoriesCreated,
		c.ReactionsCreated,
		c.ReportsCreated,
		c.StoreQueries,
		c.StoreDuration,
		c.CacheHits,
		c.CacheMisses,
		c.CacheErrors,
	)

	return c
}

// CacheHit records a cache hit for collection.
func (c *Collector) CacheHit(collection string) {
	c.CacheHits.WithLabelValues(collection).Inc()
}

// CacheMiss records a cache miss for collection.
func (c *Collector) CacheMiss(collection string) {
	c.CacheMisses.WithLabelValues(collection).Inc()
}

// CacheError records a failed cache operation.
func (c *Collector) CacheError(collection, operation string) {
	c.CacheErrors.WithLabelValues(collection, operation).Inc()
}

func (c *Collector) StoryCreated()    { c.StoriesCreated.Inc() }
func (c *Collector) ReactionCreated() { c.ReactionsCreated.Inc() }
func (c *Collector) ReportCreated()   { c.ReportsCreated.Inc() }

// ObserveQuery records one store operation.
func (c *Collector) ObserveQuery(operation, table string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.StoreQueries.WithLabelValues(operation, table, status).Inc()
	c.StoreDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Registry returns the Prometheus registry for this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
