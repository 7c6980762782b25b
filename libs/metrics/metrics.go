package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func Register(registry *prometheus.Registry) {
	registry.MustRegister(RequestCount, RequestDuration)
}

func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// SimMetrics instruments the simulation: order flow, settled trades, book
// depth, fee pools and step latency.
type SimMetrics struct {
	OrdersPlaced    *prometheus.CounterVec
	OrdersCancelled *prometheus.CounterVec
	TradesSettled   *prometheus.CounterVec
	BookDepth       *prometheus.GaugeVec
	FeePool         *prometheus.GaugeVec
	FeesPaidOut     prometheus.Counter
	StepDuration    prometheus.Histogram
	StepsCompleted  prometheus.Counter
}

func NewSimMetrics(registry *prometheus.Registry) *SimMetrics {
	m := &SimMetrics{
		OrdersPlaced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sim_orders_placed_total",
				Help: "Orders accepted into a book.",
			},
			[]string{"pair", "side"},
		),
		OrdersCancelled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sim_orders_cancelled_total",
				Help: "Orders cancelled per pair, by reason.",
			},
			[]string{"pair", "reason"},
		),
		TradesSettled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sim_trades_settled_total",
				Help: "Trades settled per pair.",
			},
			[]string{"pair"},
		),
		BookDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sim_book_depth",
				Help: "Active orders per book side.",
			},
			[]string{"pair", "side"},
		),
		FeePool: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sim_fee_pool",
				Help: "Accrued fee pool per asset.",
			},
			[]string{"asset"},
		),
		FeesPaidOut: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sim_fees_paid_out_total",
				Help: "Stable fees distributed to collateral holders.",
			},
		),
		StepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sim_step_duration_seconds",
				Help:    "Wall time per simulation step.",
				Buckets: prometheus.DefBuckets,
			},
		),
		StepsCompleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sim_steps_completed_total",
				Help: "Simulation steps completed.",
			},
		),
	}
	registry.MustRegister(
		m.OrdersPlaced, m.OrdersCancelled, m.TradesSettled, m.BookDepth,
		m.FeePool, m.FeesPaidOut, m.StepDuration, m.StepsCompleted,
	)
	return m
}

func (m *SimMetrics) ObserveOrder(pair, side string) {
	m.OrdersPlaced.WithLabelValues(pair, side).Inc()
}

func (m *SimMetrics) ObserveCancel(pair, reason string) {
	m.OrdersCancelled.WithLabelValues(pair, reason).Inc()
}

func (m *SimMetrics) ObserveTrades(pair string, count int) {
	m.TradesSettled.WithLabelValues(pair).Add(float64(count))
}

func (m *SimMetrics) SetBookDepth(pair, side string, depth float64) {
	m.BookDepth.WithLabelValues(pair, side).Set(depth)
}

func (m *SimMetrics) SetFeePool(asset string, size float64) {
	m.FeePool.WithLabelValues(asset).Set(size)
}

func (m *SimMetrics) ObserveStep(duration time.Duration) {
	m.StepDuration.Observe(duration.Seconds())
	m.StepsCompleted.Inc()
}
