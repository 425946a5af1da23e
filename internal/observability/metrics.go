// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "amm_launch_lab"

// Metrics holds all Prometheus metrics for the application.
// All Record/Observe methods are safe on a nil receiver.
type Metrics struct {
	// Ingestion metrics
	LogsProcessed         *prometheus.CounterVec
	EventProcessingErrors *prometheus.CounterVec
	HighestBlockSeen      prometheus.Gauge
	LastProcessedAt       prometheus.Gauge

	// Launch metrics
	LaunchOutcomes  *prometheus.CounterVec
	SnipersDetected prometheus.Counter
	FundingChains   *prometheus.CounterVec

	// Upstream metrics
	RPCCallLatency    *prometheus.HistogramVec
	RPCCallErrors     *prometheus.CounterVec
	EtherscanRequests *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates the metric set and registers it with reg.
// A nil reg creates unregistered collectors, which is what tests want.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	f := promauto.With(reg)

	return &Metrics{
		LogsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "logs_processed_total",
			Help:      "Total number of pool logs processed by architecture and event",
		}, []string{"architecture", "event"}),
		EventProcessingErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "event_processing_errors_total",
			Help:      "Total number of event processing errors by stage",
		}, []string{"stage"}),
		HighestBlockSeen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "highest_block_seen",
			Help:      "Highest block number seen",
		}),
		LastProcessedAt: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_processed_timestamp",
			Help:      "Unix timestamp of the last processed liquidity event",
		}),

		LaunchOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "outcomes_total",
			Help:      "Liquidity events by architecture and outcome",
		}, []string{"architecture", "outcome"}),
		SnipersDetected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "snipers_detected_total",
			Help:      "Total number of sniper records stored",
		}),
		FundingChains: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "funding_chains_total",
			Help:      "Funding traces by terminal status",
		}, []string{"status"}),

		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_latency_seconds",
			Help:      "Node RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_errors_total",
			Help:      "Node RPC calls that failed after retries",
		}, []string{"method"}),
		EtherscanRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "etherscan",
			Name:      "requests_total",
			Help:      "Explorer requests by action and result",
		}, []string{"action", "result"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint of the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordLog counts a processed pool log.
func (m *Metrics) RecordLog(architecture, event string) {
	if m == nil {
		return
	}
	m.LogsProcessed.WithLabelValues(architecture, event).Inc()
}

// RecordBlock raises the highest block gauge.
func (m *Metrics) RecordBlock(block int64) {
	if m == nil {
		return
	}
	m.HighestBlockSeen.Set(float64(block))
	m.LastProcessedAt.SetToCurrentTime()
}

// RecordEventError records an event processing error.
func (m *Metrics) RecordEventError(stage string) {
	if m == nil {
		return
	}
	m.EventProcessingErrors.WithLabelValues(stage).Inc()
}

// RecordOutcome records the outcome of one liquidity event.
func (m *Metrics) RecordOutcome(architecture, outcome string) {
	if m == nil {
		return
	}
	m.LaunchOutcomes.WithLabelValues(architecture, outcome).Inc()
}

// RecordSnipers adds n stored snipers.
func (m *Metrics) RecordSnipers(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SnipersDetected.Add(float64(n))
}

// RecordFundingChain records a terminal funding trace status.
func (m *Metrics) RecordFundingChain(status string) {
	if m == nil {
		return
	}
	m.FundingChains.WithLabelValues(status).Inc()
}

// ObserveRPC records RPC call latency and failure.
func (m *Metrics) ObserveRPC(method string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.RPCCallLatency.WithLabelValues(method).Observe(d.Seconds())
	if err != nil {
		m.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordEtherscan records one explorer request result.
func (m *Metrics) RecordEtherscan(action, result string) {
	if m == nil {
		return
	}
	m.EtherscanRequests.WithLabelValues(action, result).Inc()
}

// ObserveDB records database query metrics.
func (m *Metrics) ObserveDB(database, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
