package lostmatch

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	encoder    ImageEncoder
	model      string
	dimensions int
	maxPixels  int

	topK           int
	scorer         string
	minScore       float64
	categoryFilter bool
	noBatchCache   bool
	skipResolved   bool
	keyPrefix      string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEncoder sets the image embedding provider. Required.
func WithEncoder(e ImageEncoder) Option {
	return optionFunc(func(c *clientConfig) {
		c.encoder = e
	})
}

// WithModel pins the expected encoder model. Embeddings reported under a
// different model are rejected.
func WithModel(model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.model = model
	})
}

// WithDimensions sets the embedding dimension. Defaults to 512.
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithMaxPixels bounds decoded image size (width*height).
func WithMaxPixels(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxPixels = n
	})
}

// WithTopK sets the default number of matches. Defaults to 5.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithScorer selects the similarity transform: "inverse_distance" (default)
// or "exponential".
func WithScorer(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.scorer = name
	})
}

// WithMinScore drops matches scoring below min.
func WithMinScore(min float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.minScore = min
	})
}

// WithCategoryFilter restricts candidates to the query's category.
func WithCategoryFilter() Option {
	return optionFunc(func(c *clientConfig) {
		c.categoryFilter = true
	})
}

// WithExcludeResolved leaves resolved items out of stored pools when matching.
func WithExcludeResolved() Option {
	return optionFunc(func(c *clientConfig) {
		c.skipResolved = true
	})
}

// WithoutBatchCache disables embedding reuse within a MatchAll run.
func WithoutBatchCache() Option {
	return optionFunc(func(c *clientConfig) {
		c.noBatchCache = true
	})
}

// WithKeyPrefix sets the key namespace for stored items. Defaults to "lostmatch".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
