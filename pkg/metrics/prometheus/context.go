// Package prometheus provides Prometheus-backed implementations of the
// metrics interfaces in pkg/metrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/mountfd/pkg/metrics"
)

// contextMetrics is the Prometheus implementation of metrics.ContextMetrics.
type contextMetrics struct {
	opens            *prometheus.CounterVec
	configOperations *prometheus.CounterVec
	configDuration   *prometheus.HistogramVec
	phaseTransitions *prometheus.CounterVec
	releases         *prometheus.CounterVec
	live             prometheus.Gauge
}

// NewContextMetrics creates a new Prometheus-backed ContextMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewContextMetrics() metrics.ContextMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &contextMetrics{
		opens: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mountfd_context_opens_total",
				Help: "Total number of mount configuration contexts created by filesystem type and purpose",
			},
			[]string{"fstype", "purpose"}, // purpose: "new_mount", "reconfigure"
		),
		configOperations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mountfd_config_operations_total",
				Help: "Total number of configure calls by command, filesystem type and outcome",
			},
			[]string{"command", "fstype", "error_code"}, // error_code empty on success
		),
		configDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "mountfd_config_duration_milliseconds",
				Help: "Duration of configure calls in milliseconds",
				Buckets: []float64{
					0.01, // 10us - parameter sets
					0.05, // 50us
					0.1,  // 100us
					0.5,  // 500us
					1,    // 1ms
					5,    // 5ms
					10,   // 10ms - create triggers
					50,   // 50ms
					100,  // 100ms
					500,  // 500ms
				},
			},
			[]string{"command", "fstype"},
		),
		phaseTransitions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mountfd_phase_transitions_total",
				Help: "Total number of context phase transitions",
			},
			[]string{"fstype", "from", "to"},
		),
		releases: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mountfd_context_releases_total",
				Help: "Total number of contexts destroyed by filesystem type",
			},
			[]string{"fstype"},
		),
		live: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "mountfd_contexts_live",
				Help: "Number of mount configuration contexts currently alive",
			},
		),
	}
}

// RecordOpen implements metrics.ContextMetrics.
func (m *contextMetrics) RecordOpen(fstype string, purpose string) {
	m.opens.WithLabelValues(fstype, purpose).Inc()
	m.live.Inc()
}

// RecordConfig implements metrics.ContextMetrics.
func (m *contextMetrics) RecordConfig(command string, fstype string, duration time.Duration, errorCode string) {
	m.configOperations.WithLabelValues(command, fstype, errorCode).Inc()
	m.configDuration.WithLabelValues(command, fstype).Observe(float64(duration.Microseconds()) / 1000.0)
}

// RecordPhaseTransition implements metrics.ContextMetrics.
func (m *contextMetrics) RecordPhaseTransition(fstype string, from string, to string) {
	m.phaseTransitions.WithLabelValues(fstype, from, to).Inc()
}

// RecordRelease implements metrics.ContextMetrics.
func (m *contextMetrics) RecordRelease(fstype string) {
	m.releases.WithLabelValues(fstype).Inc()
	m.live.Dec()
}
