package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/mountfd/pkg/metrics"
)

// logMetrics is the Prometheus implementation of metrics.LogMetrics.
type logMetrics struct {
	emits       *prometheus.CounterVec
	drops       prometheus.Counter
	drains      prometheus.Counter
	drainedSize prometheus.Histogram
}

// NewLogMetrics creates a new Prometheus-backed LogMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewLogMetrics() metrics.LogMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &logMetrics{
		emits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mountfd_log_emits_total",
				Help: "Total number of diagnostic lines emitted by severity",
			},
			[]string{"severity"}, // "info", "warning", "error"
		),
		drops: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "mountfd_log_drops_total",
				Help: "Total number of diagnostic lines dropped because a log ring was full",
			},
		),
		drains: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "mountfd_log_drains_total",
				Help: "Total number of diagnostic lines drained by descriptor reads",
			},
		),
		drainedSize: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mountfd_log_drained_bytes",
				Help:    "Distribution of drained diagnostic line sizes",
				Buckets: []float64{16, 32, 64, 128, 256, 512},
			},
		),
	}
}

// RecordEmit implements metrics.LogMetrics.
func (m *logMetrics) RecordEmit(severity string) {
	m.emits.WithLabelValues(severity).Inc()
}

// RecordDrop implements metrics.LogMetrics.
func (m *logMetrics) RecordDrop() {
	m.drops.Inc()
}

// RecordDrain implements metrics.LogMetrics.
func (m *logMetrics) RecordDrain(bytes int) {
	m.drains.Inc()
	m.drainedSize.Observe(float64(bytes))
}
