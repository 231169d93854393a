package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		WebhookEventsTotal,
		WebhookDuration,
		ReconcileConflictsTotal,
	)
}

var (
	// Count of webhook deliveries by event type and result.
	// result: applied|replay|ignored|bad_signature|bad_json
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_webhook_events_total",
			Help: "Count of gateway webhook deliveries by event and result.",
		},
		[]string{"event", "result"},
	)

	// Latency of the webhook handler grouped by result.
	WebhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_webhook_duration_seconds",
			Help:    "Duration of the gateway webhook handler in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)

	// Operator-facing anomalies the state machine swallows on purpose.
	// kind: conflicting_state|amount_mismatch|unresolved_reference
	ReconcileConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconcile_conflicts_total",
			Help: "Reconciliation anomalies by kind; visible only here and in logs.",
		},
		[]string{"kind"},
	)
)

func IncWebhookEvent(event, result string) {
	WebhookEventsTotal.WithLabelValues(norm(event), norm(result)).Inc()
}

func IncReconcileConflict(kind string) {
	ReconcileConflictsTotal.WithLabelValues(norm(kind)).Inc()
}
