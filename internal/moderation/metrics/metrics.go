package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the moderation worker.
type Metrics struct {
	Decisions   *prometheus.CounterVec
	NoOps       *prometheus.CounterVec
	JobDuration prometheus.Histogram
	RiskScore   prometheus.Histogram
}

// New registers all moderation worker metrics.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recompensa_moderation_decisions_total",
			Help: "Total moderation decisions by action",
		}, []string{"action"}), // action: "APPROVE", "ADJUST", "REJECT"

		NoOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recompensa_moderation_noops_total",
			Help: "Total jobs completed without effect by cause",
		}, []string{"cause"}), // cause: "missing", "already_decided", "lost_race"

		JobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recompensa_moderation_job_duration_seconds",
			Help:    "Duration of moderation job handling",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		RiskScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recompensa_moderation_risk_score",
			Help:    "Distribution of computed risk scores",
			Buckets: []float64{0, 5, 10, 20, 40, 60, 100, 200},
		}),
	}
}

// IncDecision records a moderation verdict.
func (m *Metrics) IncDecision(action string) {
	if m != nil {
		m.Decisions.WithLabelValues(action).Inc()
	}
}

// IncNoOp records a job that completed without effect.
func (m *Metrics) IncNoOp(cause string) {
	if m != nil {
		m.NoOps.WithLabelValues(cause).Inc()
	}
}

// ObserveJob records handling duration.
func (m *Metrics) ObserveJob(d time.Duration) {
	if m != nil {
		m.JobDuration.Observe(d.Seconds())
	}
}

// ObserveRiskScore records a computed score.
func (m *Metrics) ObserveRiskScore(score int) {
	if m != nil {
		m.RiskScore.Observe(float64(score))
	}
}
