package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/dittodrive/pkg/store"
)

type storeMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewStoreMetrics creates a Prometheus-backed store.Recorder for the given
// backend name ("s3", "memory"), or nil when metrics are disabled. A nil
// Recorder makes store.Instrument a no-op.
func NewStoreMetrics(backend string) store.Recorder {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()
	labels := prometheus.Labels{"backend": backend}

	return &storeMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name:        "dittodrive_store_operations_total",
				Help:        "Total number of object store operations by outcome",
				ConstLabels: labels,
			},
			[]string{"operation", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "dittodrive_store_operation_duration_seconds",
				Help:        "Duration of object store operations in seconds",
				ConstLabels: labels,
				Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"operation"},
		),
	}
}

func (m *storeMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}
