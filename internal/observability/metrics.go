package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// Catalog lookups by outcome (ok, invalid). Watch for: clients sending bad counts.
	CatalogRequestsTotal *prometheus.CounterVec

	// Cars returned per representation (html, json).
	CarsServedTotal *prometheus.CounterVec

	// Template render latency. Only observed on cache misses.
	ViewRenderDuration *prometheus.HistogramVec

	// Rendered-view cache hits. Hit rate = hits / catalogRequestsTotal{outcome="ok"} for html.
	ViewCacheHitsTotal *prometheus.CounterVec

	// Rendered-view cache errors by operation (get, set). Watch for: memcached outages.
	ViewCacheErrorsTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	CacheWarmingTotal           prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram
	CacheWarmingErrorsTotal     prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	CatalogRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogRequestsTotal",
			Help: "Total number of car catalog lookups by outcome",
		},
		[]string{"outcome"},
	)
	CarsServedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carsServedTotal",
			Help: "Total number of car records returned, by representation",
		},
		[]string{"format"},
	)
	ViewRenderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "viewRenderDurationSeconds",
			Help:    "Template render latency in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		},
		[]string{"view", "status"},
	)
	ViewCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewCacheHitsTotal",
			Help: "Total number of rendered-view cache hits",
		},
		[]string{"view"},
	)
	ViewCacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewCacheErrorsTotal",
			Help: "Total number of rendered-view cache errors by operation",
		},
		[]string{"operation"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Total number of view cache warming runs",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "View cache warming duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Total number of view cache warming runs with at least one failure",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		CatalogRequestsTotal, CarsServedTotal,
		ViewRenderDuration, ViewCacheHitsTotal, ViewCacheErrorsTotal,
		RateLimitDeniedTotal,
		CacheWarmingTotal, CacheWarmingDurationSeconds, CacheWarmingErrorsTotal,
	)
}

// RecordCarsServed records a successful catalog lookup returning n cars in the given format.
func RecordCarsServed(format string, n int) {
	CatalogRequestsTotal.WithLabelValues("ok").Inc()
	CarsServedTotal.WithLabelValues(format).Add(float64(n))
}

// RecordInvalidCatalogRequest records a lookup rejected before reaching the catalog.
func RecordInvalidCatalogRequest() {
	CatalogRequestsTotal.WithLabelValues("invalid").Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
