package order

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Total number of orders created",
		},
	)

	paymentIntents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payment_intents_total",
			Help: "Payment intent creations by outcome",
		},
		[]string{"outcome"},
	)

	paymentVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payment_verifications_total",
			Help: "Payment verifications by outcome",
		},
		[]string{"outcome"},
	)
)
