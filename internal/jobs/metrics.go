package jobs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records job lifecycle counters. A nil *Metrics records nothing.
type Metrics struct {
	started  prometheus.Counter
	finished *prometheus.CounterVec
	inFlight prometheus.Gauge
	duration *prometheus.HistogramVec
}

// NewMetrics registers the job metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		started: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pdftomd",
			Name:      "jobs_started_total",
			Help:      "Conversion jobs scheduled.",
		}),
		finished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pdftomd",
			Name:      "jobs_finished_total",
			Help:      "Conversion jobs that reached a terminal state, by outcome.",
		}, []string{"outcome"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pdftomd",
			Name:      "jobs_in_flight",
			Help:      "Conversion jobs currently running.",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pdftomd",
			Name:      "job_duration_seconds",
			Help:      "Wall time from scheduling to terminal state.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"state"}),
	}
}

func (m *Metrics) jobStarted() {
	if m == nil {
		return
	}
	m.started.Inc()
	m.inFlight.Inc()
}

func (m *Metrics) jobFinished(res Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.finished.WithLabelValues(res.Outcome()).Inc()
	m.duration.WithLabelValues(string(res.State)).Observe(elapsed.Seconds())
}
