package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DriveMetrics provides observability for namespace-level operations.
//
// Implementations record completed operations (list, create_folder, move,
// rename, delete, upload), raised and resolved name conflicts, and upload
// volume. A nil DriveMetrics is valid and disables collection.
type DriveMetrics interface {
	// RecordOperation records one completed drive operation.
	RecordOperation(operation string, duration time.Duration, err error)

	// RecordConflict records a raised name conflict by kind
	// (upload, move, rename).
	RecordConflict(kind string)

	// RecordResolution records a conflict resolution choice
	// (replace, keep_both, cancel).
	RecordResolution(choice string)

	// RecordUploadBytes adds transferred upload bytes.
	RecordUploadBytes(n int64)
}

type driveMetrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	conflicts   *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	uploadBytes prometheus.Counter
}

// NewDriveMetrics creates a Prometheus-backed DriveMetrics, or nil when
// metrics are disabled.
func NewDriveMetrics() DriveMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &driveMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrive_operations_total",
				Help: "Total number of drive operations by outcome",
			},
			[]string{"operation", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittodrive_operation_duration_seconds",
				Help:    "Duration of drive operations in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"operation"},
		),
		conflicts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrive_conflicts_total",
				Help: "Total number of name conflicts raised by kind",
			},
			[]string{"kind"},
		),
		resolutions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrive_conflict_resolutions_total",
				Help: "Total number of conflict resolutions by choice",
			},
			[]string{"choice"},
		),
		uploadBytes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittodrive_upload_bytes_total",
				Help: "Total bytes uploaded",
			},
		),
	}
}

func (m *driveMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *driveMetrics) RecordConflict(kind string) {
	m.conflicts.WithLabelValues(kind).Inc()
}

func (m *driveMetrics) RecordResolution(choice string) {
	m.resolutions.WithLabelValues(choice).Inc()
}

func (m *driveMetrics) RecordUploadBytes(n int64) {
	m.uploadBytes.Add(float64(n))
}
