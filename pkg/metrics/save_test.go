package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSaveMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSaveMetrics(reg)

	m.IncSuccess("upload")
	m.IncSuccess("upload")
	m.IncFailure("persist")
	m.ObserveDuration("Delete Phase", 200*time.Millisecond)

	if got := testutil.ToFloat64(m.success.WithLabelValues("upload")); got != 2 {
		t.Fatalf("expected 2 upload successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("persist")); got != 1 {
		t.Fatalf("expected 1 persist failure, got %v", got)
	}
}

func TestSaveMetricsNilSafe(t *testing.T) {
	var m *SaveMetrics
	m.IncSuccess("upload")
	m.IncFailure("upload")
	m.ObserveDuration("upload", time.Second)

	empty := NewSaveMetrics(nil)
	empty.IncSuccess("upload")
}
