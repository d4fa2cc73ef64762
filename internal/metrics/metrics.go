// Package metrics holds the Prometheus collectors for discovery, swipes and profile evolution.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "matchfeed"

// Discovery request outcomes.
const (
	StatusOK      = "ok"
	StatusInvalid = "invalid"
	StatusError   = "error"
)

// Metrics contains the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	discoverRequests   *prometheus.CounterVec
	discoverDuration   prometheus.Histogram
	discoverCandidates prometheus.Histogram
	swipes             *prometheus.CounterVec
	evolutionOutcomes  *prometheus.CounterVec
	evolutionDuration  prometheus.Histogram
	dispatchQueueDepth prometheus.Gauge
	dispatchRejected   prometheus.Counter
}

// NewMetrics creates the collectors. They are not registered; call Register.
func NewMetrics() *Metrics {
	return &Metrics{
		discoverRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "discover_requests_total",
				Help:      "Discovery requests by status",
			},
			[]string{"status"},
		),
		discoverDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discover_duration_seconds",
			Help:      "Latency of discovery requests",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		discoverCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discover_candidates",
			Help:      "Number of scored candidates per discovery request",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		swipes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "swipes_total",
				Help:      "Recorded swipes by decision",
			},
			[]string{"decision"},
		),
		evolutionOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evolution_outcomes_total",
				Help:      "Profile evolution runs by outcome",
			},
			[]string{"outcome"},
		),
		evolutionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evolution_duration_seconds",
			Help:      "Duration of profile recomputations",
			Buckets:   prometheus.DefBuckets,
		}),
		dispatchQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "evolution_queue_depth",
			Help:      "Accept events waiting for an evolution worker",
		}),
		dispatchRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evolution_rejected_total",
			Help:      "Accept events rejected because a worker queue was full or stopped",
		}),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.discoverRequests,
		m.discoverDuration,
		m.discoverCandidates,
		m.swipes,
		m.evolutionOutcomes,
		m.evolutionDuration,
		m.dispatchQueueDepth,
		m.dispatchRejected,
	}
}

// ObserveDiscover records one discovery request.
func (m *Metrics) ObserveDiscover(status string, seconds float64, candidates int) {
	if m == nil {
		return
	}
	m.discoverRequests.WithLabelValues(status).Inc()
	m.discoverDuration.Observe(seconds)
	if status == StatusOK {
		m.discoverCandidates.Observe(float64(candidates))
	}
}

// IncSwipe counts a recorded swipe.
func (m *Metrics) IncSwipe(decision string) {
	if m == nil {
		return
	}
	m.swipes.WithLabelValues(decision).Inc()
}

// ObserveEvolution records an evolution outcome and, for recomputations, its duration.
func (m *Metrics) ObserveEvolution(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.evolutionOutcomes.WithLabelValues(outcome).Inc()
	if seconds > 0 {
		m.evolutionDuration.Observe(seconds)
	}
}

// AddQueueDepth adjusts the dispatcher queue gauge.
func (m *Metrics) AddQueueDepth(delta float64) {
	if m == nil {
		return
	}
	m.dispatchQueueDepth.Add(delta)
}

// IncDispatchRejected counts an accept event the dispatcher could not queue.
func (m *Metrics) IncDispatchRejected() {
	if m == nil {
		return
	}
	m.dispatchRejected.Inc()
}
