package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	}, []string{"order_type"})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order creations",
	}, []string{"reason"})

	OrderStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of order status transitions",
	}, []string{"from", "to"})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	StockReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_reserve_latency_seconds",
		Help:    "Latency of stock reservation operations",
		Buckets: prometheus.DefBuckets,
	})

	StockReservationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_reservations_failed_total",
		Help: "Total number of failed stock reservations",
	}, []string{"reason"})

	MovementsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_movements_applied_total",
		Help: "Total number of inventory movements applied",
	}, []string{"movement_type"})

	MovementsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_movements_failed_total",
		Help: "Total number of inventory movement applications that failed",
	})

	MovementLinesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_movement_lines_skipped_total",
		Help: "Order lines skipped by the movement planner for missing products",
	})

	TransfersValidatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transfers_validated_total",
		Help: "Total number of transfer validations",
	}, []string{"result"})

	TransferConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transfer_conflicts_total",
		Help: "Total number of advisory transfer conflicts reported",
	})

	TransfersCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transfers_completed_total",
		Help: "Total number of completed transfers",
	})

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
