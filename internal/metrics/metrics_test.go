package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics()
	if err := m.Register(reg); err != nil {
		t.Fatal(err)
	}
	if err := m.Register(reg); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRecording(t *testing.T) {
	m := NewMetrics()
	m.ObserveDiscover(StatusOK, 0.02, 150)
	m.ObserveDiscover(StatusInvalid, 0.001, 0)
	m.IncSwipe("accept")
	m.IncSwipe("accept")
	m.ObserveEvolution("updated", 0.01)
	m.AddQueueDepth(3)
	m.AddQueueDepth(-1)
	m.IncDispatchRejected()

	if got := testutil.ToFloat64(m.discoverRequests.WithLabelValues(StatusOK)); got != 1 {
		t.Errorf("ok requests=%v", got)
	}
	if got := testutil.ToFloat64(m.swipes.WithLabelValues("accept")); got != 2 {
		t.Errorf("accept swipes=%v", got)
	}
	if got := testutil.ToFloat64(m.evolutionOutcomes.WithLabelValues("updated")); got != 1 {
		t.Errorf("updated outcomes=%v", got)
	}
	if got := testutil.ToFloat64(m.dispatchQueueDepth); got != 2 {
		t.Errorf("queue depth=%v", got)
	}
	if got := testutil.ToFloat64(m.dispatchRejected); got != 1 {
		t.Errorf("rejected=%v", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveDiscover(StatusOK, 1, 1)
	m.IncSwipe("reject")
	m.ObserveEvolution("skipped", 0)
	m.AddQueueDepth(1)
	m.IncDispatchRejected()
}
