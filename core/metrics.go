package core

// metrics.go — Prometheus instrumentation for the admission pipeline and
// miner (a supplemented feature: spec.md names no metrics surface, but
// the teacher instruments every long-running subsystem via
// prometheus/client_golang, and an append-only ledger operator needs the
// same visibility into rejection rates and mining latency).

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the counters and histograms ChainState updates as
// entries move through admission and mining.
type Metrics struct {
	Rejections      *prometheus.CounterVec
	Submissions     prometheus.Counter
	BlocksMined     prometheus.Counter
	MineDuration    prometheus.Histogram
	MineAttempts    prometheus.Histogram
	ValidatorLatency prometheus.Histogram
}

// NewMetrics constructs and registers a Metrics bundle against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the global
// default registry across parallel test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "natlangchain",
			Name:      "admission_rejections_total",
			Help:      "Count of entries rejected by the admission pipeline, by rejection kind.",
		}, []string{"kind"}),
		Submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "natlangchain",
			Name:      "admission_submissions_total",
			Help:      "Count of entries that reached the pending pool.",
		}),
		BlocksMined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "natlangchain",
			Name:      "blocks_mined_total",
			Help:      "Count of blocks successfully mined and persisted.",
		}),
		MineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "natlangchain",
			Name:      "mine_duration_seconds",
			Help:      "Wall-clock time spent searching for a valid nonce.",
			Buckets:   prometheus.DefBuckets,
		}),
		MineAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "natlangchain",
			Name:      "mine_attempts",
			Help:      "Number of hash attempts consumed per mined block.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}),
		ValidatorLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "natlangchain",
			Name:      "validator_latency_seconds",
			Help:      "Latency of Semantic Validator calls, including retries.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Rejections, m.Submissions, m.BlocksMined, m.MineDuration, m.MineAttempts, m.ValidatorLatency)
	return m
}

func (m *Metrics) recordRejection(kind RejectionKind) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(string(kind)).Inc()
}
