package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crossover"

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics for the metrics server itself
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	cyclesTotal      *prometheus.CounterVec
	signalsGenerated *prometheus.CounterVec
	ordersTotal      *prometheus.CounterVec
	movingAverage    *prometheus.GaugeVec
	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	backtestEquity   *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	r.cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_cycles_total",
			Help:      "Live loop cycles by outcome",
		},
		[]string{"outcome"},
	)
	r.signalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_generated_total",
			Help:      "Total number of signals generated",
		},
		[]string{"strategy", "action"},
	)
	r.ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Orders submitted by side and resulting status",
		},
		[]string{"side", "status"},
	)
	r.movingAverage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "moving_average",
			Help:      "Latest moving average by window",
		},
		[]string{"symbol", "window"},
	)
	r.backtestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backtests_total",
			Help:      "Total number of backtests",
		},
		[]string{"status"},
	)
	r.backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backtest_duration_seconds",
			Help:      "Backtest duration in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
	)
	r.backtestEquity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backtest_final_equity",
			Help:      "Final equity of the last backtest per symbol",
		},
		[]string{"symbol"},
	)

	reg.MustRegister(
		r.httpRequestsTotal,
		r.httpRequestsInFlight,
		r.cyclesTotal,
		r.signalsGenerated,
		r.ordersTotal,
		r.movingAverage,
		r.backtestsTotal,
		r.backtestDuration,
		r.backtestEquity,
	)

	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int) {
	r.httpRequestsTotal.WithLabelValues(method, path, statusToString(status)).Inc()
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordCycle records a completed live loop cycle.
func (r *Registry) RecordCycle(outcome string) {
	r.cyclesTotal.WithLabelValues(outcome).Inc()
}

// RecordSignal records a generated signal.
func (r *Registry) RecordSignal(strategy, action string) {
	r.signalsGenerated.WithLabelValues(strategy, action).Inc()
}

// RecordOrder records an order submission result.
func (r *Registry) RecordOrder(side, status string) {
	r.ordersTotal.WithLabelValues(side, status).Inc()
}

// SetMovingAverages publishes the latest short and long averages.
func (r *Registry) SetMovingAverages(symbol string, short, long float64) {
	r.movingAverage.WithLabelValues(symbol, "short").Set(short)
	r.movingAverage.WithLabelValues(symbol, "long").Set(long)
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(status string, duration float64) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
}

// SetBacktestEquity publishes the final equity of a backtest.
func (r *Registry) SetBacktestEquity(symbol string, equity float64) {
	r.backtestEquity.WithLabelValues(symbol).Set(equity)
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
