package item

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/lostmatch/internal/db"
	"github.com/kailas-cloud/lostmatch/internal/domain"
)

// DefaultPrefix namespaces item keys.
const DefaultPrefix = "lostmatch"

// store is the consumer interface for item hashes (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo reads and seeds lost and found item reports stored as hashes.
// It implements usecase/match.Corpus.
type Repo struct {
	store  store
	prefix string
}

// New creates an item repository. An empty prefix selects DefaultPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Repo{store: s, prefix: prefix}
}

// ListLost returns every lost item report.
func (r *Repo) ListLost(ctx context.Context) ([]domain.Item, error) {
	return r.list(ctx, domain.KindLost)
}

// ListFound returns every found item report.
func (r *Repo) ListFound(ctx context.Context) ([]domain.Item, error) {
	return r.list(ctx, domain.KindFound)
}

// GetLost returns a lost item by ID.
func (r *Repo) GetLost(ctx context.Context, id string) (domain.Item, error) {
	return r.get(ctx, domain.KindLost, id)
}

// GetFound returns a found item by ID.
func (r *Repo) GetFound(ctx context.Context, id string) (domain.Item, error) {
	return r.get(ctx, domain.KindFound, id)
}

// Put stores items in one pipelined round-trip. Items without an ID are rejected.
func (r *Repo) Put(ctx context.Context, items ...domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	batch := make([]db.HashSetItem, 0, len(items))
	for i := range items {
		it := &items[i]
		if it.ID == "" {
			return fmt.Errorf("item %d: empty id", i)
		}
		if it.Kind != domain.KindLost && it.Kind != domain.KindFound {
			return fmt.Errorf("item %s: unknown kind %q", it.ID, it.Kind)
		}
		batch = append(batch, db.HashSetItem{
			Key:    r.key(it.Kind, it.ID),
			Fields: buildHashFields(it),
		})
	}
	if err := r.store.HSetMulti(ctx, batch); err != nil {
		return fmt.Errorf("put items: %w", err)
	}
	return nil
}

// Delete removes an item report.
func (r *Repo) Delete(ctx context.Context, kind domain.Kind, id string) error {
	key := r.key(kind, id)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

func (r *Repo) get(ctx context.Context, kind domain.Kind, id string) (domain.Item, error) {
	key := r.key(kind, id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return parseHashFields(kind, id, m), nil
}

// list loads all items of kind, ordered by creation time then ID.
func (r *Repo) list(ctx context.Context, kind domain.Kind) ([]domain.Item, error) {
	pattern := r.key(kind, "*")
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return []domain.Item{}, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load %s items: %w", kind, err)
	}

	items := make([]domain.Item, 0, len(keys))
	base := r.key(kind, "")
	for i, m := range hashes {
		if len(m) == 0 {
			continue // deleted after SCAN
		}
		items = append(items, parseHashFields(kind, strings.TrimPrefix(keys[i], base), m))
	}

	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (r *Repo) key(kind domain.Kind, id string) string {
	return r.prefix + ":" + string(kind) + ":" + id
}
