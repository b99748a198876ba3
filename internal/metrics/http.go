// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// HTTP surface metrics. Paths are route patterns, never raw URLs, to
// keep label cardinality bounded.

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zsc_http_requests_total",
		Help: "Total number of HTTP requests by method, route and status code",
	}, []string{"method", "path", "status"})

	httpRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zsc_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zsc_http_requests_in_flight",
		Help: "Current number of HTTP requests being served",
	})

	ratelimitAllowedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zsc_ratelimit_allowed_total",
		Help: "Total number of rate-limited operations that proceeded",
	}, []string{"limiter"})

	ratelimitDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zsc_ratelimit_denied_total",
		Help: "Total number of operations rejected or abandoned by a rate limiter",
	}, []string{"limiter"})

	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zsc_cache_hits_total",
		Help: "Total number of cache hits by backend",
	}, []string{"backend"})

	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zsc_cache_misses_total",
		Help: "Total number of cache misses by backend",
	}, []string{"backend"})

	cacheErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zsc_cache_errors_total",
		Help: "Total number of cache backend errors by backend and operation",
	}, []string{"backend", "op"})
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, path, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, path).Observe(seconds)
}

func IncHTTPInFlight() { httpRequestsInFlight.Inc() }
func DecHTTPInFlight() { httpRequestsInFlight.Dec() }

func IncRatelimitAllowed(limiter string) { ratelimitAllowedTotal.WithLabelValues(limiter).Inc() }
func IncRatelimitDenied(limiter string)  { ratelimitDeniedTotal.WithLabelValues(limiter).Inc() }

func IncCacheHit(backend string)  { cacheHitsTotal.WithLabelValues(backend).Inc() }
func IncCacheMiss(backend string) { cacheMissesTotal.WithLabelValues(backend).Inc() }
func IncCacheError(backend, op string) {
	cacheErrorsTotal.WithLabelValues(backend, op).Inc()
}

// CounterValue reads the current value of a labelled counter. Test helper.
func CounterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// CacheHitsCounter exposes the labelled hit counter for tests.
func CacheHitsCounter(backend string) prometheus.Counter {
	return cacheHitsTotal.WithLabelValues(backend)
}

// CacheMissesCounter exposes the labelled miss counter for tests.
func CacheMissesCounter(backend string) prometheus.Counter {
	return cacheMissesTotal.WithLabelValues(backend)
}
