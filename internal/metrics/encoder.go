package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "lostmatch"

// Encoder Prometheus metrics.
var (
	EncoderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encoder_requests_total",
			Help:      "Total number of image encoding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EncoderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encoder_request_duration_seconds",
			Help:      "Image encoding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	EncoderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encoder_errors_total",
			Help:      "Total image encoding failures by reason",
		},
		[]string{"provider", "model", "reason"},
	)

	DecodeErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_decode_errors_total",
			Help:      "Image payloads rejected before encoding",
		},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Batch embedding memo hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)
