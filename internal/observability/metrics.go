// Package observability provides Prometheus metrics for monitoring the
// indexer's backfill, live-drain, and storage paths.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the indexer.
type Metrics struct {
	// Decode metrics
	EventsDecoded *prometheus.CounterVec
	DecodeIssues  *prometheus.CounterVec
	DecodeLatency *prometheus.HistogramVec

	// Storage metrics
	EventsStored      *prometheus.CounterVec
	DuplicatesSkipped prometheus.Counter
	DBQueryDuration   *prometheus.HistogramVec
	DBQueryErrors     *prometheus.CounterVec

	// Backfill metrics
	BackfillPagesFetched   *prometheus.CounterVec
	BackfillCursorAdvances *prometheus.CounterVec
	BackfillInFlight       prometheus.Gauge

	// Live-drain metrics
	BufferOccupancy *prometheus.GaugeVec
	BufferOverflows *prometheus.CounterVec
	WSReconnects    prometheus.Counter

	// Coordinator / health metrics
	CoordinatorState  *prometheus.GaugeVec
	RPCCallLatency    *prometheus.HistogramVec
	LastEventObserved *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "orca_indexer"
	}

	return &Metrics{
		EventsDecoded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "events_decoded_total",
			Help:      "Total number of events successfully decoded, by event type",
		}, []string{"event_type"}),
		DecodeIssues: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "issues_total",
			Help:      "Total number of decode issues (malformed payload, overflow), by reason",
		}, []string{"reason"}),
		DecodeLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "latency_seconds",
			Help:      "Time spent decoding one transaction's log bundle",
			Buckets:   prometheus.DefBuckets,
		}, []string{"dex"}),

		EventsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "events_stored_total",
			Help:      "Total number of events persisted, by event type",
		}, []string{"event_type"}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "duplicates_skipped_total",
			Help:      "Total number of writes skipped because the signature already existed",
		}),
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors, by operation",
		}, []string{"operation"}),

		BackfillPagesFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "pages_fetched_total",
			Help:      "Total number of signature pages fetched per pool",
		}, []string{"dex", "pool"}),
		BackfillCursorAdvances: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "cursor_advances_total",
			Help:      "Total number of times a pool's signature cursor advanced",
		}, []string{"dex", "pool"}),
		BackfillInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "inflight_fetches",
			Help:      "Number of transaction fetches currently in flight",
		}),

		BufferOccupancy: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "buffer_occupancy",
			Help:      "Number of buffered (pool, signature) entries awaiting drain",
		}, []string{"dex", "pool"}),
		BufferOverflows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "buffer_overflows_total",
			Help:      "Total number of times a pool's live buffer overflowed and triggered a secondary backfill",
		}, []string{"dex", "pool"}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnect attempts",
		}),

		CoordinatorState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "state",
			Help:      "Current coordinator state per pool (1 = in this state, 0 otherwise)",
		}, []string{"dex", "pool", "state"}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		LastEventObserved: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_event_observed_timestamp",
			Help:      "Unix timestamp of the last event observed for a pool",
		}, []string{"dex", "pool"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordDecoded increments the decoded-events counter for kind.
func RecordDecoded(kind string) {
	DefaultMetrics.EventsDecoded.WithLabelValues(kind).Inc()
}

// RecordDecodeIssue increments the decode-issues counter for reason.
func RecordDecodeIssue(reason string) {
	DefaultMetrics.DecodeIssues.WithLabelValues(reason).Inc()
}

// RecordStored increments the stored-events counter for kind.
func RecordStored(kind string) {
	DefaultMetrics.EventsStored.WithLabelValues(kind).Inc()
}

// RecordDuplicateSkipped increments the duplicates-skipped counter.
func RecordDuplicateSkipped() {
	DefaultMetrics.DuplicatesSkipped.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordBackfillPage records one fetched signature page for a pool.
func RecordBackfillPage(dex, pool string) {
	DefaultMetrics.BackfillPagesFetched.WithLabelValues(dex, pool).Inc()
}

// RecordCursorAdvance records one cursor advance for a pool.
func RecordCursorAdvance(dex, pool string) {
	DefaultMetrics.BackfillCursorAdvances.WithLabelValues(dex, pool).Inc()
}

// SetBufferOccupancy sets the current buffer size for a pool.
func SetBufferOccupancy(dex, pool string, n int) {
	DefaultMetrics.BufferOccupancy.WithLabelValues(dex, pool).Set(float64(n))
}

// RecordBufferOverflow records a buffer overflow for a pool.
func RecordBufferOverflow(dex, pool string) {
	DefaultMetrics.BufferOverflows.WithLabelValues(dex, pool).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// SetCoordinatorState marks state as active for (dex, pool) and clears the
// others so exactly one state gauge is set to 1 at a time.
func SetCoordinatorState(dex, pool, state string, allStates []string) {
	for _, s := range allStates {
		v := 0.0
		if s == state {
			v = 1.0
		}
		DefaultMetrics.CoordinatorState.WithLabelValues(dex, pool, s).Set(v)
	}
}
