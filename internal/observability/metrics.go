package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PostMutations counts repository mutations by operation and result.
	PostMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postdesk_post_mutations_total",
		Help: "Total number of post mutations by operation and result",
	}, []string{"operation", "result"})

	// PersistenceFailures counts storage loads and saves that fell back or were dropped.
	PersistenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postdesk_persistence_failures_total",
		Help: "Total number of failed persistence attempts by operation",
	}, []string{"operation"})

	// ToastsTotal counts notifications shown by tone.
	ToastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postdesk_toasts_total",
		Help: "Total number of toasts emitted by tone",
	}, []string{"tone"})

	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postdesk_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// StorageLatency records backend latency by operation and backend.
	StorageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "postdesk_storage_latency_seconds",
		Help:    "Storage backend latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "backend"})
)

// Mutation results used as the "result" label.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultRejected = "rejected"
)

// StorageMetrics records latency for one storage backend.
type StorageMetrics struct {
	backend string
}

// NewStorageMetrics returns a new StorageMetrics instance.
func NewStorageMetrics(backend string) *StorageMetrics {
	return &StorageMetrics{backend: backend}
}

// ObserveOperation records the latency of a backend call.
func (m *StorageMetrics) ObserveOperation(operation string, start time.Time) {
	StorageLatency.WithLabelValues(operation, m.backend).Observe(time.Since(start).Seconds())
}

// TrackOperation returns a function that records latency when called (e.g. defer).
func (m *StorageMetrics) TrackOperation(operation string) func() {
	start := time.Now()
	return func() {
		m.ObserveOperation(operation, start)
	}
}
