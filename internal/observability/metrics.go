// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Resolution metrics
	PoolResolutions *prometheus.CounterVec
	LockAnalyses    *prometheus.CounterVec

	// Price oracle metrics
	PriceRefreshes *prometheus.CounterVec
	NativePrice    prometheus.Gauge

	// Facade metrics
	Snapshots *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "solana_token_market"
	}
	factory := promauto.With(reg)

	return &Metrics{
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "JSON-RPC call latency by method",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}, []string{"method"}),
		RPCCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_errors_total",
			Help:      "JSON-RPC call failures by method and kind (transport, protocol)",
		}, []string{"method", "kind"}),

		PoolResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "resolutions_total",
			Help:      "Pool resolution attempts by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		LockAnalyses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lplock",
			Name:      "analyses_total",
			Help:      "LP lock analyses by verdict",
		}, []string{"verdict"}),

		PriceRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "refreshes_total",
			Help:      "Native price refresh attempts by outcome",
		}, []string{"outcome"}),
		NativePrice: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "native_price_usd",
			Help:      "Cached native asset price in USD",
		}),

		Snapshots: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "snapshots_total",
			Help:      "Market snapshots produced by outcome",
		}, []string{"outcome"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCError records a failed RPC call.
func RecordRPCError(method, kind string) {
	DefaultMetrics.RPCCallErrors.WithLabelValues(method, kind).Inc()
}

// RecordPoolResolution records the outcome of one resolver strategy.
func RecordPoolResolution(strategy, outcome string) {
	DefaultMetrics.PoolResolutions.WithLabelValues(strategy, outcome).Inc()
}

// RecordLockAnalysis records an LP lock verdict.
func RecordLockAnalysis(locked bool) {
	verdict := "unlocked"
	if locked {
		verdict = "locked"
	}
	DefaultMetrics.LockAnalyses.WithLabelValues(verdict).Inc()
}

// RecordPriceRefresh records a price refresh attempt and the resulting cached price.
func RecordPriceRefresh(outcome string, price float64) {
	DefaultMetrics.PriceRefreshes.WithLabelValues(outcome).Inc()
	DefaultMetrics.NativePrice.Set(price)
}

// RecordSnapshot records a produced market snapshot.
func RecordSnapshot(outcome string) {
	DefaultMetrics.Snapshots.WithLabelValues(outcome).Inc()
}
