package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the analyzer's prometheus collectors. A nil *Metrics is safe
// to call; every method no-ops so tests and one-shot CLI runs can skip
// registration.
type Metrics struct {
	runDuration      prometheus.Histogram
	runsTotal        *prometheus.CounterVec
	detectorFlags    *prometheus.GaugeVec
	detectorFailures *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "procwatch_run_duration_seconds",
			Help:    "Wall time of full analyzer runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "procwatch_runs_total",
			Help: "Analyzer runs by outcome.",
		}, []string{"outcome"}),
		detectorFlags: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "procwatch_detector_flags",
			Help: "Flags emitted by each detector in the latest run.",
		}, []string{"detector"}),
		detectorFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "procwatch_detector_failures_total",
			Help: "Detector executions that errored and contributed zero flags.",
		}, []string{"detector"}),
	}
}

func (m *Metrics) ObserveRun(seconds float64, outcome string) {
	if m == nil {
		return
	}
	m.runDuration.Observe(seconds)
	m.runsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetDetectorFlags(detector string, n int) {
	if m == nil {
		return
	}
	m.detectorFlags.WithLabelValues(detector).Set(float64(n))
}

func (m *Metrics) DetectorFailed(detector string) {
	if m == nil {
		return
	}
	m.detectorFailures.WithLabelValues(detector).Inc()
}
