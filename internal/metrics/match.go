package metrics

import "github.com/prometheus/client_golang/prometheus"

// Matching Prometheus metrics.
var (
	MatchOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_operations_total",
			Help:      "Matching operations by outcome",
		},
		[]string{"outcome"}, // "ok" / "query_failed" / "empty_corpus" / "error"
	)

	MatchCandidatesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_candidates_skipped_total",
			Help:      "Candidates skipped because no embedding could be produced",
		},
	)

	MatchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_results",
			Help:      "Number of matches returned per operation",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)

	MatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_duration_seconds",
			Help:      "Matching operation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"mode"}, // "single" / "batch"
	)
)

var registered bool

// Register registers all lostmatch Prometheus metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(
		EncoderRequestsTotal,
		EncoderRequestDuration,
		EncoderErrorsTotal,
		DecodeErrorsTotal,
		EmbeddingCacheTotal,
		MatchOperationsTotal,
		MatchCandidatesSkipped,
		MatchResults,
		MatchDuration,
		httpRequestDuration,
		httpRequestsTotal,
	)
	registered = true
}
