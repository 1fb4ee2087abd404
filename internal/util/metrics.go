package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed by customers",
	})

	OrdersShippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_shipped_total",
		Help: "Total number of orders marked shipped",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected order placements",
	}, []string{"reason"})

	FulfillmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillments_total",
		Help: "Total number of fulfillment dispatches",
	}, []string{"mode"})

	SubscriptionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_transitions_total",
		Help: "Total number of subscription status transitions",
	}, []string{"to"})

	LoyaltyPointsSpentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_points_spent_total",
		Help: "Total loyalty points redeemed against orders",
	})

	LoyaltyPointsEarnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_points_earned_total",
		Help: "Total loyalty points granted for orders",
	})

	InventoryReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inventory_reserve_latency_seconds",
		Help:    "Latency of inventory reservation transactions",
		Buckets: prometheus.DefBuckets,
	})

	CascadeDeletedRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_deleted_rows_total",
		Help: "Total rows removed by admin cascading deletes",
	}, []string{"entity"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
