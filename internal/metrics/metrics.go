// Package metrics provides Prometheus metrics for the alert cache.
// It tracks the fetch-publish-apply pipeline and the size of live session stores.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"alertcache/internal/alertstore"
)

const (
	namespace = "alertcache"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDropped = "dropped"
)

// Event metrics track store events from publish to apply.
var (
	// EventsPublishedTotal counts events published by the fetcher.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of store events published to the queue",
		},
		[]string{"kind"},
	)

	// EventsConsumedTotal counts messages handled by the processor.
	EventsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_consumed_total",
			Help:      "Total number of queue messages handled by the processor",
		},
		[]string{"result"}, // success, dropped
	)

	// EventsAppliedTotal counts events applied to a session store.
	EventsAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_applied_total",
			Help:      "Total number of events applied to session stores",
		},
		[]string{"kind"},
	)

	// EventApplyLatency measures the time spent inside the transition function.
	EventApplyLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_apply_latency_seconds",
			Help:      "Time to apply a single event to a store in seconds",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"kind"},
	)

	// EventQueueLatency measures time between publish and consume.
	EventQueueLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_queue_latency_seconds",
			Help:      "Time an event spent in the queue in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// QueuePublishLatency measures time to publish a message to the queue.
	QueuePublishLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_publish_latency_seconds",
			Help:      "Time to publish a message to the queue in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
		},
	)
)

// Fetch metrics track repository reads performed on behalf of sessions.
var (
	// FetchesTotal counts fetch operations.
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Total number of fetch operations",
		},
		[]string{"operation", "result"},
	)

	// FetchLatency measures repository read plus publish time.
	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_latency_seconds",
			Help:      "Time to fetch from the repository and publish in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)
)

// Session metrics track live stores.
var (
	// ActiveSessions tracks the number of live session stores.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Current number of live session stores",
		},
	)

	// CachedAlerts tracks the record count of the most recently updated store.
	CachedAlerts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cached_alerts",
			Help:      "Number of alert records held by a store after each applied event",
			Buckets:   []float64{0, 10, 30, 100, 300, 1000, 3000, 10000},
		},
	)
)

// Storage metrics track repository operations.
var (
	// StorageOperationLatency measures latency of storage operations.
	StorageOperationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_operation_latency_seconds",
			Help:      "Latency of storage operations in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"store", "operation"},
	)

	// StorageOperationsTotal counts storage operations.
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operations_total",
			Help:      "Total number of storage operations",
		},
		[]string{"store", "operation", "status"},
	)
)

// ObserveApply is an alertstore.Observer that records per-event metrics.
func ObserveApply(kind alertstore.Kind, _, after alertstore.State, took time.Duration) {
	EventsAppliedTotal.WithLabelValues(string(kind)).Inc()
	EventApplyLatency.WithLabelValues(string(kind)).Observe(took.Seconds())
	CachedAlerts.Observe(float64(after.Len()))
}

// SetActiveSessions is a session registry size hook.
func SetActiveSessions(n int) {
	ActiveSessions.Set(float64(n))
}

// ObserveStorage records the outcome of one repository call started at start.
func ObserveStorage(store, operation string, start time.Time, err error) {
	StorageOperationLatency.WithLabelValues(store, operation).Observe(time.Since(start).Seconds())
	status := ResultSuccess
	if err != nil {
		status = ResultFailure
	}
	StorageOperationsTotal.WithLabelValues(store, operation, status).Inc()
}
