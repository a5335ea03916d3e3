// Package telemetry provides Prometheus metrics for the dare scoring service.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dare"

// Fetch results recorded by RecordFetch.
const (
	FetchOK     = "ok"
	FetchFailed = "failed"
)

// Cache lookup states recorded by RecordCacheLookup.
const (
	CacheFresh  = "fresh"
	CacheStale  = "stale"
	CacheMiss   = "miss"
	CacheFailed = "failed"
)

// Custom registry to avoid default Go runtime metrics.
var registry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide metrics registry

var (
	scoresComputed = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scoring",
		Name:      "scores_computed_total",
		Help:      "Total number of composite scores computed and stored",
	})

	scoreChanges = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scoring",
		Name:      "score_changes_total",
		Help:      "Composite score changes by direction",
	}, []string{"direction"})

	compositeScores = promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scoring",
		Name:      "composite_score",
		Help:      "Distribution of computed composite scores",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})

	scoringErrors = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scoring",
		Name:      "errors_total",
		Help:      "Total number of failed score computations",
	})

	platformFetches = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "connector",
		Name:      "fetches_total",
		Help:      "Platform fetches by platform and result",
	}, []string{"platform", "result"})

	platformFetchLatency = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "connector",
		Name:      "fetch_duration_seconds",
		Help:      "Platform fetch and calculation latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"platform"})

	cacheLookups = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "cache_lookups_total",
		Help:      "Cached metrics lookups by platform and state",
	}, []string{"platform", "state"})

	notificationsPublished = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notify",
		Name:      "events_published_total",
		Help:      "Notification events published by kind",
	}, []string{"kind"})

	httpRequests = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	httpRequestDuration = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
)

// RecordScoreComputed records a stored composite score.
func RecordScoreComputed(overall int) {
	scoresComputed.Inc()
	compositeScores.Observe(float64(overall))
}

// RecordScoreChange records the direction of a detected score change.
func RecordScoreChange(amount int) {
	switch {
	case amount > 0:
		scoreChanges.WithLabelValues("up").Inc()
	case amount < 0:
		scoreChanges.WithLabelValues("down").Inc()
	}
}

// RecordScoringError records a failed score computation.
func RecordScoringError() {
	scoringErrors.Inc()
}

// RecordFetch records one platform fetch outcome and its latency.
func RecordFetch(platform, result string, seconds float64) {
	platformFetches.WithLabelValues(platform, result).Inc()
	platformFetchLatency.WithLabelValues(platform).Observe(seconds)
}

// RecordCacheLookup records a cached metrics lookup.
func RecordCacheLookup(platform, state string) {
	cacheLookups.WithLabelValues(platform, state).Inc()
}

// RecordNotification records a published notification event.
func RecordNotification(kind string) {
	notificationsPublished.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(route, method, statusCode string, seconds float64) {
	httpRequests.WithLabelValues(route, method, statusCode).Inc()
	httpRequestDuration.WithLabelValues(route, method).Observe(seconds)
}

// Registry returns the registry holding all dare metrics.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
