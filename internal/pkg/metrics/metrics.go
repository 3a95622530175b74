// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 结账核心的业务指标。配合 /metrics 路由由 Prometheus 抓取。
var (
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bazaar",
		Subsystem: "checkout",
		Name:      "reservations_total",
		Help:      "Stock reservation attempts by result.",
	}, []string{"result"}) // ok / insufficient_stock / retry_exhausted / error

	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bazaar",
		Subsystem: "checkout",
		Name:      "orders_placed_total",
		Help:      "Orders successfully created.",
	})

	StockCommitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bazaar",
		Subsystem: "inventory",
		Name:      "stock_commits_total",
		Help:      "Inventory commit/release/restore operations by kind.",
	}, []string{"kind"}) // commit / release / restore

	CompensationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bazaar",
		Subsystem: "checkout",
		Name:      "compensations_total",
		Help:      "Compensating hold releases triggered by failed order creation.",
	})
)
