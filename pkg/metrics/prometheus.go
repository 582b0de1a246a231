package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisions   *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	affirmative *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_decisions_total",
				Help: "Composite signal decisions by outcome",
			},
			[]string{"decision", "symbol"},
		),
		rejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_rejected_total",
				Help: "Messages rejected before aggregation",
			},
			[]string{"reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		affirmative: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalfuse_affirmative_votes",
				Help: "Affirmative vote count of the last composite per symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalfuse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordDecision records one composite decision.
func (r *Recorder) RecordDecision(decision, symbol string) {
	r.decisions.WithLabelValues(decision, symbol).Inc()
}

// RecordRejected records a message rejected before aggregation.
func (r *Recorder) RecordRejected(reason string) {
	r.rejected.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordAffirmativeVotes records the vote count behind the last composite.
func (r *Recorder) RecordAffirmativeVotes(symbol string, n int) {
	r.affirmative.WithLabelValues(symbol).Set(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
