package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// LedgerMetrics tracks inventory ledger operations and the stock snapshot
// published by the stock report job.
type LedgerMetrics struct {
	duration   *prometheus.HistogramVec
	operations *prometheus.CounterVec
	lowStock   prometheus.Gauge
	totalValue prometheus.Gauge
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventory_operation_duration_seconds",
		Help:    "Duration of inventory ledger operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_operations_total",
		Help: "Inventory ledger operations by outcome.",
	}, []string{"op", "result"})
	lowStock := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inventory_low_stock_items",
		Help: "Inventory records at or below the low stock threshold.",
	})
	totalValue := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inventory_total_value",
		Help: "Sum of quantity times price across all inventory records.",
	})
	reg.MustRegister(duration, operations, lowStock, totalValue)
	return &LedgerMetrics{
		duration:   duration,
		operations: operations,
		lowStock:   lowStock,
		totalValue: totalValue,
	}
}

// Observe records one operation outcome and its latency.
func (m *LedgerMetrics) Observe(op string, started time.Time, err error) {
	if m == nil || m.duration == nil {
		return
	}
	op = normalizeLabel(op)
	m.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.operations.WithLabelValues(op, result).Inc()
}

func (m *LedgerMetrics) SetLowStockItems(n int) {
	if m == nil || m.lowStock == nil {
		return
	}
	m.lowStock.Set(float64(n))
}

func (m *LedgerMetrics) SetTotalValue(v float64) {
	if m == nil || m.totalValue == nil {
		return
	}
	m.totalValue.Set(v)
}
