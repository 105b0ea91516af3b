package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SaveMetrics records the outcome of each product-save phase.
type SaveMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewSaveMetrics registers the save metrics on the provided registerer.
func NewSaveMetrics(reg prometheus.Registerer) *SaveMetrics {
	if reg == nil {
		return &SaveMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "product_save_phase_duration_seconds",
		Help:    "Duration of product save phases in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "product_save_phase_success",
		Help: "Successful product save phase executions.",
	}, []string{"phase"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "product_save_phase_failure",
		Help: "Failed product save phase executions.",
	}, []string{"phase"})
	reg.MustRegister(duration, success, failure)
	return &SaveMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named phase.
func (s *SaveMetrics) ObserveDuration(phase string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(phase)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named phase.
func (s *SaveMetrics) IncSuccess(phase string) {
	if s == nil || s.success == nil {
		return
	}
	s.success.WithLabelValues(normalizeLabel(phase)).Inc()
}

// IncFailure increments the failure counter for the named phase.
func (s *SaveMetrics) IncFailure(phase string) {
	if s == nil || s.failure == nil {
		return
	}
	s.failure.WithLabelValues(normalizeLabel(phase)).Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return strings.ReplaceAll(trimmed, " ", "_")
}
