package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/mezonai/starledger/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type VerificationOutcome string

var (
	VerificationValid     VerificationOutcome = "valid"
	VerificationMismatch  VerificationOutcome = "mismatch"
	VerificationNoRequest VerificationOutcome = "no_request"
)

type nodePromMetrics struct {
	nodeUpUnixSeconds   prometheus.Gauge
	blockHeight         prometheus.Gauge
	appendedBlocks      *prometheus.CounterVec
	appendLatency       prometheus.Histogram
	blockSizeBytes      prometheus.Histogram
	mempoolSize         prometheus.Gauge
	verificationCount   *prometheus.CounterVec
	expiredRequests     prometheus.Counter
	rejectedAppends     prometheus.Counter
	chainViolations     *prometheus.CounterVec
	rateLimitedRequests prometheus.Counter
	ledgerEvents        *prometheus.CounterVec
	panicCount          prometheus.Counter
}

func newNodePromMetrics() *nodePromMetrics {
	return &nodePromMetrics{
		nodeUpUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "starledger_node_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the node",
			},
		),
		blockHeight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "starledger_block_height",
				Help: "Height of the latest block",
			},
		),
		appendedBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "starledger_appended_blocks_total",
				Help: "The total number of appended blocks",
			},
			[]string{"kind"},
		),
		appendLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "starledger_append_latency_seconds",
				Help: "Duration in second of a block append including the store write",
			},
		),
		blockSizeBytes: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "starledger_block_size_bytes",
				Help:    "The encoded block size in bytes",
				Buckets: prometheus.ExponentialBuckets(128, 2, 8),
			},
		),
		mempoolSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "starledger_mempool_size",
				Help: "Validation requests currently held in the mempool",
			},
		),
		verificationCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "starledger_signature_verifications_total",
				Help: "Signature checks by outcome",
			},
			[]string{"outcome"},
		),
		expiredRequests: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "starledger_expired_requests_total",
				Help: "Validation requests purged by their window timer",
			},
		),
		rejectedAppends: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "starledger_unauthorized_appends_total",
				Help: "Owned appends refused for lack of a verified request",
			},
		),
		chainViolations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "starledger_chain_violations_total",
				Help: "Violations found by chain validation runs",
			},
			[]string{"kind"},
		),
		rateLimitedRequests: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "starledger_rate_limited_requests_total",
				Help: "Requests refused by the rate limiter",
			},
		),
		ledgerEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "starledger_events_total",
				Help: "Ledger and mempool events delivered to the event journal",
			},
			[]string{"type"},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "starledger_panic_count",
				Help: "Recovered panics in background goroutines",
			},
		),
	}
}

var (
	nodeMetrics *nodePromMetrics
	initOnce    sync.Once
)

func metrics() *nodePromMetrics {
	initOnce.Do(func() {
		nodeMetrics = newNodePromMetrics()
	})
	return nodeMetrics
}

// InitMetrics registers the metric set and stamps the node start time.
func InitMetrics() {
	metrics().nodeUpUnixSeconds.SetToCurrentTime()
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func SetBlockHeight(height uint64) {
	metrics().blockHeight.Set(float64(height))
}

func RecordAppendedBlock(kind string, sizeBytes int, duration time.Duration) {
	m := metrics()
	m.appendedBlocks.With(prometheus.Labels{"kind": kind}).Inc()
	m.blockSizeBytes.Observe(float64(sizeBytes))
	m.appendLatency.Observe(duration.Seconds())
}

func SetMempoolSize(size int) {
	metrics().mempoolSize.Set(float64(size))
}

func RecordVerification(outcome VerificationOutcome) {
	metrics().verificationCount.With(prometheus.Labels{
		"outcome": string(outcome),
	}).Inc()
}

func IncreaseExpiredRequests() {
	metrics().expiredRequests.Inc()
}

func IncreaseRejectedAppends() {
	metrics().rejectedAppends.Inc()
}

func RecordChainViolation(kind string) {
	metrics().chainViolations.With(prometheus.Labels{"kind": kind}).Inc()
}

func IncreaseRateLimited() {
	metrics().rateLimitedRequests.Inc()
}

func RecordEvent(eventType string) {
	metrics().ledgerEvents.With(prometheus.Labels{"type": eventType}).Inc()
}

func IncreasePanicCount() {
	metrics().panicCount.Inc()
}
