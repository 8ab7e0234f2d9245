package metrics_test

import (
	"testing"
	"time"

	"github.com/vanderheijden86/netcover/pkg/metrics"
)

func TestTimingMetric_RecordAndStats(t *testing.T) {
	m := metrics.PathFind
	m.Reset()

	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)

	stats := m.Stats()
	if stats.Count != 2 {
		t.Errorf("count = %d, want 2", stats.Count)
	}
	if stats.MaxMs < stats.AvgMs {
		t.Errorf("max %.2fms below avg %.2fms", stats.MaxMs, stats.AvgMs)
	}
	if stats.Name != "path_find" {
		t.Errorf("name = %s, want path_find", stats.Name)
	}
}

func TestTimer_Defer(t *testing.T) {
	m := metrics.PathValidate
	m.Reset()

	func() {
		defer metrics.Timer(m)()
	}()

	if m.Count() != 1 {
		t.Errorf("count = %d, want 1", m.Count())
	}
}

func TestSetEnabled(t *testing.T) {
	m := metrics.CoverageApply
	m.Reset()

	metrics.SetEnabled(false)
	defer metrics.SetEnabled(true)
	m.Record(time.Millisecond)
	if m.Count() != 0 {
		t.Errorf("disabled metrics recorded %d measurements", m.Count())
	}
}
