package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the job queue.
type Metrics struct {
	Enqueued    prometheus.Counter
	Handled     *prometheus.CounterVec
	Retries     prometheus.Counter
	DeadLetters prometheus.Counter
}

// NewMetrics registers queue metrics with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		Enqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recompensa_queue_jobs_enqueued_total",
			Help: "Total moderation jobs enqueued",
		}),
		Handled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recompensa_queue_jobs_handled_total",
			Help: "Total moderation job deliveries by outcome",
		}, []string{"outcome"}), // outcome: "success", "failure"
		Retries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recompensa_queue_job_retries_total",
			Help: "Total moderation job retries scheduled",
		}),
		DeadLetters: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recompensa_queue_dead_letters_total",
			Help: "Total moderation jobs routed to the dead-letter channel",
		}),
	}
}

// IncEnqueued records an enqueued job.
func (m *Metrics) IncEnqueued() {
	if m != nil {
		m.Enqueued.Inc()
	}
}

// IncHandled records a delivery outcome.
func (m *Metrics) IncHandled(outcome string) {
	if m != nil {
		m.Handled.WithLabelValues(outcome).Inc()
	}
}

// IncRetries records a scheduled retry.
func (m *Metrics) IncRetries() {
	if m != nil {
		m.Retries.Inc()
	}
}

// IncDeadLetters records an exhausted job.
func (m *Metrics) IncDeadLetters() {
	if m != nil {
		m.DeadLetters.Inc()
	}
}
