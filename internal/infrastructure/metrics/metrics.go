package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/garyjia/event-approval/internal/domain/workflow"
)

const namespace = "event_approval"

var latencyBuckets = []float64{
	0.001, 0.002, 0.005,
	0.01, 0.02, 0.05,
	0.1, 0.2, 0.5,
	1, 2, 5, 10,
}

// Metrics holds the prometheus collectors for the workflow, outbox and notifications
type Metrics struct {
	transitionTotal   *prometheus.CounterVec
	transitionLatency *prometheus.HistogramVec

	dispatchTotal   *prometheus.CounterVec
	dispatchLatency *prometheus.HistogramVec
	deadTotal       *prometheus.CounterVec

	deliveryTotal *prometheus.CounterVec
}

// New registers every collector with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transitionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transition_total",
			Help:      "Total number of status transition attempts.",
		}, []string{"from", "to", "outcome"}),
		transitionLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transition_latency_seconds",
			Help:      "Latency distribution for status transitions.",
			Buckets:   latencyBuckets,
		}, []string{"outcome"}),
		dispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_dispatch_total",
			Help:      "Total number of outbox dispatch operations.",
		}, []string{"event_type", "result"}),
		dispatchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_dispatch_latency_seconds",
			Help:      "Latency distribution for outbox dispatch.",
			Buckets:   latencyBuckets,
		}, []string{"event_type", "result"}),
		deadTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_dead_total",
			Help:      "Total number of outbox messages that gave up retrying.",
		}, []string{"event_type"}),
		deliveryTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_delivery_total",
			Help:      "Total number of notification deliveries per channel.",
		}, []string{"channel", "result"}),
	}
}

// ObserveTransition records one ExecuteTransition call
func (m *Metrics) ObserveTransition(from, to workflow.Status, outcome string, elapsed time.Duration) {
	m.transitionTotal.WithLabelValues(label(from.String()), label(to.String()), outcome).Inc()
	m.transitionLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveDispatch records one outbox dispatch attempt
func (m *Metrics) ObserveDispatch(eventType, result string, elapsed time.Duration) {
	m.dispatchTotal.WithLabelValues(eventType, result).Inc()
	m.dispatchLatency.WithLabelValues(eventType, result).Observe(elapsed.Seconds())
}

// IncDead counts a message that reached its attempt limit
func (m *Metrics) IncDead(eventType string) {
	m.deadTotal.WithLabelValues(eventType).Inc()
}

// ObserveDelivery counts a notification delivery outcome
func (m *Metrics) ObserveDelivery(channel, result string) {
	m.deliveryTotal.WithLabelValues(channel, result).Inc()
}

// label keeps unknown statuses out of the label space
func label(s string) string {
	if s == "" {
		return "none"
	}
	if workflow.Status(s).IsValid() || workflow.Status(s) == workflow.StatusReturned {
		return s
	}
	return "unknown"
}
