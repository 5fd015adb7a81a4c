package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

// encoder is the consumer interface for the wrapped embedding provider (ISP).
type encoder interface {
	EncodeItem(ctx context.Context, item domain.Item) (domain.EmbeddingResult, error)
}

type entry struct {
	result domain.EmbeddingResult
	err    error
}

// Memo remembers item embeddings for the lifetime of one batch run, so each
// candidate is encoded at most once no matter how many queries it is compared
// against. Failures are remembered too: a failed call is final within the run.
// A Memo must not outlive its run; embeddings are never persisted.
type Memo struct {
	inner      encoder
	model      string
	cacheTotal *prometheus.CounterVec

	mu      sync.Mutex
	entries map[string]entry
	logger  *zap.Logger
}

// New creates a run-scoped memo.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner encoder,
	model string,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Memo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memo{
		inner:      inner,
		model:      model,
		cacheTotal: cacheTotal,
		entries:    make(map[string]entry),
		logger:     logger,
	}
}

// EncodeItem returns the remembered outcome for item or calls the inner provider.
func (m *Memo) EncodeItem(ctx context.Context, item domain.Item) (domain.EmbeddingResult, error) {
	key := m.key(item)

	m.mu.Lock()
	e, ok := m.entries[key]
	m.mu.Unlock()
	if ok {
		m.incCache("hit")
		return e.result, e.err
	}

	m.incCache("miss")

	result, err := m.inner.EncodeItem(ctx, item)
	if err != nil && ctx.Err() != nil {
		// cancellation is not a property of the image
		return result, err
	}

	m.mu.Lock()
	m.entries[key] = entry{result: result, err: err}
	m.mu.Unlock()

	if err != nil {
		m.logger.Debug("Remembering failed embedding",
			zap.String("item_id", item.ID),
			zap.String("kind", string(item.Kind)),
			zap.Error(err),
		)
	}
	return result, err
}

// Len returns the number of remembered items.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memo) incCache(result string) {
	if m.cacheTotal != nil {
		m.cacheTotal.WithLabelValues(result).Inc()
	}
}

// key combines item identity, encoder model and image content, so an item
// edited mid-run is not served a stale vector.
func (m *Memo) key(item domain.Item) string {
	h := sha256.Sum256(item.Image)
	return string(item.Kind) + ":" + item.ID + "@" + m.model + ":" + hex.EncodeToString(h[:8])
}
