// Package metrics holds the Prometheus collectors served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders persisted after every line item was reserved.",
	})
	OrdersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Order placements or updates that failed, by reason.",
	}, []string{"reason"})
	StockReserved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_reserved_units_total",
		Help: "Product units taken from stock by orders.",
	})
	EventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_events_handled_total",
		Help: "Order events consumed, by type and outcome.",
	}, []string{"type", "outcome"})
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
