package match

import (
	"context"
	"errors"
	"sync"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

// fakeEncoder maps image payloads to fixed vectors.
type fakeEncoder struct {
	mu      sync.Mutex
	vectors map[string]domain.Embedding
	model   string
	errs    map[string]error
	calls   map[string]int
}

func newFakeEncoder(vectors map[string]domain.Embedding) *fakeEncoder {
	return &fakeEncoder{
		vectors: vectors,
		model:   "test-model",
		errs:    map[string]error{},
		calls:   map[string]int{},
	}
}

func (f *fakeEncoder) EncodeItem(_ context.Context, item domain.Item) (domain.EmbeddingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := string(item.Image)
	f.calls[item.ID]++
	if err, ok := f.errs[key]; ok {
		return domain.EmbeddingResult{}, err
	}
	v, ok := f.vectors[key]
	if !ok {
		return domain.EmbeddingResult{}, domain.NewEncodingError(domain.ReasonStatus, errors.New("status 500"))
	}
	return domain.EmbeddingResult{Vector: v, Model: f.model}, nil
}

func (f *fakeEncoder) callsFor(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

// memoEncoder is a minimal per-run memo used to exercise WithMemo.
type memoEncoder struct {
	inner ItemEncoder
	seen  map[string]domain.EmbeddingResult
	errs  map[string]error
}

func (m *memoEncoder) EncodeItem(ctx context.Context, item domain.Item) (domain.EmbeddingResult, error) {
	key := string(item.Kind) + ":" + item.ID
	if r, ok := m.seen[key]; ok {
		return r, nil
	}
	if err, ok := m.errs[key]; ok {
		return domain.EmbeddingResult{}, err
	}
	r, err := m.inner.EncodeItem(ctx, item)
	if err != nil {
		m.errs[key] = err
		return r, err
	}
	m.seen[key] = r
	return r, nil
}

func (m *memoEncoder) Len() int { return len(m.seen) + len(m.errs) }

func newMemo(inner ItemEncoder) ItemEncoder {
	return &memoEncoder{inner: inner, seen: map[string]domain.EmbeddingResult{}, errs: map[string]error{}}
}

type fakeCorpus struct {
	lost  []domain.Item
	found []domain.Item
	err   error
}

func (c *fakeCorpus) ListLost(context.Context) ([]domain.Item, error) { return c.lost, c.err }

func (c *fakeCorpus) ListFound(context.Context) ([]domain.Item, error) { return c.found, c.err }

func (c *fakeCorpus) GetLost(_ context.Context, id string) (domain.Item, error) {
	return get(c.lost, id)
}

func (c *fakeCorpus) GetFound(_ context.Context, id string) (domain.Item, error) {
	return get(c.found, id)
}

func get(items []domain.Item, id string) (domain.Item, error) {
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return domain.Item{}, domain.ErrItemNotFound
}

func lostItem(id, image string) domain.Item {
	return domain.Item{ID: id, Kind: domain.KindLost, Image: []byte(image), Status: domain.StatusLost}
}

func foundItem(id, image string) domain.Item {
	return domain.Item{ID: id, Kind: domain.KindFound, Image: []byte(image), Status: domain.StatusFound}
}
