package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsGrantedTotal,
		subscriptionsSupersededTotal,
		subscriptionsExpiredTotal,
	)
}

var (
	subscriptionsGrantedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_granted_total",
			Help: "Subscriptions granted from successful payments, by plan.",
		},
		[]string{"plan"},
	)

	subscriptionsSupersededTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_superseded_total",
			Help: "Prior active subscriptions cancelled by a new purchase.",
		},
	)

	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Subscriptions marked expired by the sweep worker.",
		},
	)
)

func IncSubscriptionGranted(planID string) {
	subscriptionsGrantedTotal.WithLabelValues(norm(planID)).Inc()
}

func AddSubscriptionsSuperseded(n int) {
	subscriptionsSupersededTotal.Add(float64(n))
}

func AddSubscriptionsExpired(n int) {
	subscriptionsExpiredTotal.Add(float64(n))
}
