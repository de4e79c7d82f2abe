// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Launch metrics
	TransactionsBuilt   *prometheus.CounterVec
	InstructionsPerTx   *prometheus.HistogramVec
	MintRejections      *prometheus.CounterVec
	AirdropsRequested   *prometheus.CounterVec
	TransactionsSettled *prometheus.CounterVec

	// Pinning metrics
	PinsCreated   *prometheus.CounterVec
	PinDuration   *prometheus.HistogramVec
	PinsRemoved   prometheus.Counter
	PinningErrors *prometheus.CounterVec

	// Solana metrics
	RPCCallLatency  *prometheus.HistogramVec
	RPCCallErrors   *prometheus.CounterVec
	WSSubscriptions prometheus.Gauge
	WSReconnects    prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	StartTime prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil registerer uses the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "token_launchpad"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		TransactionsBuilt: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "transactions_built_total",
			Help:      "Total number of partially signed transactions returned by kind",
		}, []string{"kind"}),
		InstructionsPerTx: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "instructions_per_transaction",
			Help:      "Number of instructions in built transactions",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
		}, []string{"kind"}),
		MintRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "mint_rejections_total",
			Help:      "Total number of mint requests rejected by reason",
		}, []string{"reason"}),
		AirdropsRequested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "airdrops_total",
			Help:      "Total number of airdrop requests by outcome",
		}, []string{"outcome"}),
		TransactionsSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "transactions_settled_total",
			Help:      "Total number of submitted transactions by final status",
		}, []string{"status"}),

		PinsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pinning",
			Name:      "pins_created_total",
			Help:      "Total number of IPFS pins created by kind",
		}, []string{"kind"}),
		PinDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pinning",
			Name:      "pin_duration_seconds",
			Help:      "Pinning API call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
		PinsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pinning",
			Name:      "pins_removed_total",
			Help:      "Total number of IPFS pins removed",
		}),
		PinningErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pinning",
			Name:      "errors_total",
			Help:      "Total number of pinning API errors by operation",
		}, []string{"operation"}),

		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls by method",
		}, []string{"method"}),
		WSSubscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_subscriptions",
			Help:      "Current number of active WebSocket subscriptions",
		}),
		WSReconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		StartTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "start_time_seconds",
			Help:      "Unix timestamp of process start",
		}),
	}
	m.StartTime.Set(float64(time.Now().Unix()))
	return m
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(route string, code int, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, statusLabel(code)).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordTransactionBuilt records a transaction handed back to a wallet.
func RecordTransactionBuilt(kind string, instructions int) {
	DefaultMetrics.TransactionsBuilt.WithLabelValues(kind).Inc()
	DefaultMetrics.InstructionsPerTx.WithLabelValues(kind).Observe(float64(instructions))
}

// RecordMintRejected records a refused mint request.
func RecordMintRejected(reason string) {
	DefaultMetrics.MintRejections.WithLabelValues(reason).Inc()
}

// RecordAirdrop records an airdrop attempt.
func RecordAirdrop(outcome string) {
	DefaultMetrics.AirdropsRequested.WithLabelValues(outcome).Inc()
}

// RecordSettlement records the final status of a submitted transaction.
func RecordSettlement(status string) {
	DefaultMetrics.TransactionsSettled.WithLabelValues(status).Inc()
}

// RecordPin records a pinning API call.
func RecordPin(kind string, seconds float64, err error) {
	DefaultMetrics.PinDuration.WithLabelValues(kind).Observe(seconds)
	if err != nil {
		DefaultMetrics.PinningErrors.WithLabelValues(kind).Inc()
		return
	}
	DefaultMetrics.PinsCreated.WithLabelValues(kind).Inc()
}

// RecordUnpin records a removed pin.
func RecordUnpin(err error) {
	if err != nil {
		DefaultMetrics.PinningErrors.WithLabelValues("unpin").Inc()
		return
	}
	DefaultMetrics.PinsRemoved.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// UpdateWSSubscriptions sets the active subscription gauge.
func UpdateWSSubscriptions(n int) {
	DefaultMetrics.WSSubscriptions.Set(float64(n))
}

// RecordWSReconnect increments the reconnect counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
