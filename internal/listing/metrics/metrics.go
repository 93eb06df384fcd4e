// Package metrics provides Prometheus metrics for the listing module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for listing intake and the public feed.
type Metrics struct {
	Created       prometheus.Counter
	EnqueueFailed prometheus.Counter
	Requeued      prometheus.Counter
	FeedLatency   prometheus.Histogram
	CreateLatency prometheus.Histogram
}

// New registers all listing metrics.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recompensa_listings_created_total",
			Help: "Total listings accepted for review",
		}),

		EnqueueFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recompensa_listings_enqueue_failures_total",
			Help: "Total listings created whose review job could not be enqueued",
		}),

		Requeued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recompensa_listings_requeued_total",
			Help: "Total stale pending listings re-enqueued by the repair sweep",
		}),

		FeedLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recompensa_feed_duration_seconds",
			Help:    "Duration of public feed queries",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		CreateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recompensa_listing_create_duration_seconds",
			Help:    "Duration of listing creation including enqueue",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncCreated records an accepted listing.
func (m *Metrics) IncCreated() {
	if m != nil {
		m.Created.Inc()
	}
}

// IncEnqueueFailed records a listing left pending without a queued job.
func (m *Metrics) IncEnqueueFailed() {
	if m != nil {
		m.EnqueueFailed.Inc()
	}
}

// AddRequeued records listings re-enqueued by the repair sweep.
func (m *Metrics) AddRequeued(n int) {
	if m != nil {
		m.Requeued.Add(float64(n))
	}
}

// ObserveFeed records a feed query duration.
func (m *Metrics) ObserveFeed(d time.Duration) {
	if m != nil {
		m.FeedLatency.Observe(d.Seconds())
	}
}

// ObserveCreate records a create duration.
func (m *Metrics) ObserveCreate(d time.Duration) {
	if m != nil {
		m.CreateLatency.Observe(d.Seconds())
	}
}
