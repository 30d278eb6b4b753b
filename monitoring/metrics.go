// Package monitoring provides metrics and observability for the listing render backend
package monitoring

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dispatch metrics
	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_dispatch_total",
			Help: "Total number of listing dispatches by terminal status",
		},
		[]string{"status"},
	)

	dispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listing_dispatch_duration_seconds",
			Help:    "Duration of listing dispatches including all retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	renderAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_render_attempts_total",
			Help: "Total number of individual worker render calls by outcome",
		},
		[]string{"outcome"},
	)

	renderAttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listing_render_attempt_duration_seconds",
			Help:    "Duration of individual worker render calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	inFlightListings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "listing_dispatch_in_flight",
			Help: "Number of listings currently being rendered",
		},
	)

	// Artifact cache metrics
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_cache_hits_total",
			Help: "Total number of artifact cache hits",
		},
		[]string{"operation"},
	)

	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_cache_misses_total",
			Help: "Total number of artifact cache misses",
		},
		[]string{"operation"},
	)

	cacheSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listing_cache_swept_entries_total",
			Help: "Total number of expired artifacts removed by sweeps",
		},
	)

	cacheWrittenBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listing_cache_written_bytes_total",
			Help: "Total bytes of rendered artifacts written to the cache",
		},
	)

	// Poller metrics
	pollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_poll_cycles_total",
			Help: "Total number of feed poll cycles by status",
		},
		[]string{"status"},
	)

	pollNewListings = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listing_poll_new_listings",
			Help:    "Number of newly observed listings per poll cycle",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	// Persistence metrics
	persistenceOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_persistence_operations_total",
			Help: "Total number of endpoint-list persistence operations",
		},
		[]string{"operation", "status"},
	)

	// Worker health metrics
	workersRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "listing_workers_registered",
			Help: "Number of registered rendering workers",
		},
	)

	workersHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "listing_workers_healthy",
			Help: "Number of rendering workers that passed the last health check",
		},
	)

	workersMemoryBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "listing_workers_memory_bytes",
			Help: "Aggregate self-reported memory usage of healthy workers",
		},
	)

	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listing_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)
)

// Alerting counters, kept outside Prometheus so alert rules can read them
// without scraping.
var (
	consecutiveFeedFailures int64
	exhaustedDispatches     int64
)

// RecordDispatch records a terminal dispatch outcome
func RecordDispatch(status string, duration float64) {
	dispatchTotal.WithLabelValues(status).Inc()
	dispatchDuration.WithLabelValues(status).Observe(duration)
	if status == "exhausted" {
		atomic.AddInt64(&exhaustedDispatches, 1)
	}
}

// RecordRenderAttempt records a single worker render call
func RecordRenderAttempt(outcome string, duration float64) {
	renderAttemptsTotal.WithLabelValues(outcome).Inc()
	renderAttemptDuration.WithLabelValues(outcome).Observe(duration)
}

// UpdateInFlight updates the in-flight listings gauge
func UpdateInFlight(count int) {
	inFlightListings.Set(float64(count))
}

// RecordCacheHit records an artifact cache hit
func RecordCacheHit(operation string) {
	cacheHits.WithLabelValues(operation).Inc()
}

// RecordCacheMiss records an artifact cache miss
func RecordCacheMiss(operation string) {
	cacheMisses.WithLabelValues(operation).Inc()
}

// RecordCacheSweep records the number of entries removed by one sweep
func RecordCacheSweep(removed int) {
	cacheSweptTotal.Add(float64(removed))
}

// RecordCacheWrite records the size of a written artifact
func RecordCacheWrite(bytes int) {
	cacheWrittenBytes.Add(float64(bytes))
}

// RecordPollCycle records a completed or failed feed poll cycle
func RecordPollCycle(status string, newListings int) {
	pollCyclesTotal.WithLabelValues(status).Inc()
	if status == "failed" {
		atomic.AddInt64(&consecutiveFeedFailures, 1)
		return
	}
	atomic.StoreInt64(&consecutiveFeedFailures, 0)
	pollNewListings.Observe(float64(newListings))
}

// RecordPersistence records an endpoint-list load or save
func RecordPersistence(operation, status string) {
	persistenceOperations.WithLabelValues(operation, status).Inc()
}

// UpdateWorkerStats updates the worker health gauges
func UpdateWorkerStats(total, healthy int, memoryBytes uint64) {
	workersRegistered.Set(float64(total))
	workersHealthy.Set(float64(healthy))
	workersMemoryBytes.Set(float64(memoryBytes))
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration)
}

// ConsecutiveFeedFailures returns the number of feed poll cycles that have
// failed in a row.
func ConsecutiveFeedFailures() int64 {
	return atomic.LoadInt64(&consecutiveFeedFailures)
}

// DrainExhaustedDispatches returns the number of exhausted dispatches since
// the last call and resets the counter.
func DrainExhaustedDispatches() int64 {
	return atomic.SwapInt64(&exhaustedDispatches, 0)
}
