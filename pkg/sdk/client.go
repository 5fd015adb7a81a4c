package lostmatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/lostmatch/internal/db"
	dbRedis "github.com/kailas-cloud/lostmatch/internal/db/redis"
	"github.com/kailas-cloud/lostmatch/internal/domain"
	"github.com/kailas-cloud/lostmatch/internal/repository/embcache"
	itemrepo "github.com/kailas-cloud/lostmatch/internal/repository/item"
	embeddinguc "github.com/kailas-cloud/lostmatch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/lostmatch/internal/usecase/health"
	matchuc "github.com/kailas-cloud/lostmatch/internal/usecase/match"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, replaced in tests.
type itemStore interface {
	ListLost(ctx context.Context) ([]domain.Item, error)
	ListFound(ctx context.Context) ([]domain.Item, error)
	GetLost(ctx context.Context, id string) (domain.Item, error)
	GetFound(ctx context.Context, id string) (domain.Item, error)
	Put(ctx context.Context, items ...domain.Item) error
	Delete(ctx context.Context, kind domain.Kind, id string) error
}

type matchUseCase interface {
	Match(ctx context.Context, query domain.Item, candidates []domain.Item, k int) ([]domain.Match, error)
	MatchLost(ctx context.Context, id string, k int) ([]domain.Match, error)
	MatchFound(ctx context.Context, id string, k int) ([]domain.Match, error)
	MatchAll(ctx context.Context) ([]domain.Match, error)
}

// Client is the lostmatch SDK entry point.
type Client struct {
	store     db.Store
	items     itemStore
	matchSvc  matchUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a lostmatch Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		dimensions: matchuc.DefaultDimensions,
		keyPrefix:  itemrepo.DefaultPrefix,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("lostmatch: database address required (use WithValkey or WithRedis)")
	}
	if cfg.encoder == nil {
		return nil, fmt.Errorf("lostmatch: image encoder required (use WithEncoder): %w", ErrConfiguration)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("lostmatch: database not ready: %w", err)
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("lostmatch: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("lostmatch: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	items := itemrepo.New(store, cfg.keyPrefix)

	encoder := &encoderAdapter{inner: cfg.encoder}
	var providerOpts []embeddinguc.Option
	if cfg.model != "" {
		providerOpts = append(providerOpts, embeddinguc.WithModel(cfg.model))
	}
	if cfg.maxPixels > 0 {
		providerOpts = append(providerOpts, embeddinguc.WithMaxPixels(cfg.maxPixels))
	}
	provider, err := embeddinguc.NewProvider(encoder, cfg.dimensions, providerOpts...)
	if err != nil {
		return nil, fmt.Errorf("lostmatch: %w", err)
	}

	scorer, err := matchuc.ScorerByName(cfg.scorer)
	if err != nil {
		return nil, fmt.Errorf("lostmatch: %w", err)
	}

	matchSvc := matchuc.New(provider, items, nil).
		WithTopK(cfg.topK).
		WithDimensions(cfg.dimensions).
		WithScorer(scorer).
		WithMinScore(cfg.minScore).
		WithCategoryFilter(cfg.categoryFilter).
		WithExcludeResolved(cfg.skipResolved)
	if !cfg.noBatchCache {
		matchSvc.WithMemo(func(inner matchuc.ItemEncoder) matchuc.ItemEncoder {
			return embcache.New(inner, cfg.model, nil, nil)
		})
	}

	return &Client{
		store:     store,
		items:     items,
		matchSvc:  matchSvc,
		healthSvc: healthuc.New(store, encoder),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// PutItems stores or replaces items. Each item needs an ID and a kind.
func (c *Client) PutItems(ctx context.Context, items ...Item) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("put_items", start, err) }()

	dom := make([]domain.Item, len(items))
	for i, it := range items {
		dom[i] = itemToDomain(it)
	}
	if err = c.items.Put(ctx, dom...); err != nil {
		return fmt.Errorf("put items: %w", err)
	}
	return nil
}

// GetItem returns the stored item or ErrItemNotFound.
func (c *Client) GetItem(ctx context.Context, kind Kind, id string) (_ Item, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get_item", start, err) }()

	var it domain.Item
	switch kind {
	case KindLost:
		it, err = c.items.GetLost(ctx, id)
	case KindFound:
		it, err = c.items.GetFound(ctx, id)
	default:
		err = fmt.Errorf("unknown kind %q: %w", kind, ErrConfiguration)
	}
	if err != nil {
		return Item{}, fmt.Errorf("get item: %w", err)
	}
	return itemFromDomain(it), nil
}

// ListItems returns all items of kind ordered by creation time.
func (c *Client) ListItems(ctx context.Context, kind Kind) (_ []Item, err error) {
	start := time.Now()
	defer func() { c.obs.observe("list_items", start, err) }()

	var dom []domain.Item
	switch kind {
	case KindLost:
		dom, err = c.items.ListLost(ctx)
	case KindFound:
		dom, err = c.items.ListFound(ctx)
	default:
		err = fmt.Errorf("unknown kind %q: %w", kind, ErrConfiguration)
	}
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	out := make([]Item, len(dom))
	for i, it := range dom {
		out[i] = itemFromDomain(it)
	}
	return out, nil
}

// DeleteItem removes an item. Deleting a missing item is not an error.
func (c *Client) DeleteItem(ctx context.Context, kind Kind, id string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete_item", start, err) }()

	if err = c.items.Delete(ctx, domain.Kind(kind), id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// Match ranks candidates against query and returns up to k matches
// (k <= 0 selects the configured default).
func (c *Client) Match(ctx context.Context, query Item, candidates []Item, k int) (_ []Match, err error) {
	start := time.Now()
	var n int
	defer func() { c.obs.observeMatches("match", start, n, err) }()

	pool := make([]domain.Item, len(candidates))
	for i, it := range candidates {
		pool[i] = itemToDomain(it)
	}
	ms, err := c.matchSvc.Match(ctx, itemToDomain(query), pool, k)
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}
	n = len(ms)
	return matchesFromDomain(ms), nil
}

// MatchLost matches a stored lost item against the found items.
func (c *Client) MatchLost(ctx context.Context, id string, k int) (_ []Match, err error) {
	start := time.Now()
	var n int
	defer func() { c.obs.observeMatches("match_lost", start, n, err) }()

	ms, err := c.matchSvc.MatchLost(ctx, id, k)
	if err != nil {
		return nil, fmt.Errorf("match lost: %w", err)
	}
	n = len(ms)
	return matchesFromDomain(ms), nil
}

// MatchFound matches a stored found item against the lost items.
func (c *Client) MatchFound(ctx context.Context, id string, k int) (_ []Match, err error) {
	start := time.Now()
	var n int
	defer func() { c.obs.observeMatches("match_found", start, n, err) }()

	ms, err := c.matchSvc.MatchFound(ctx, id, k)
	if err != nil {
		return nil, fmt.Errorf("match found: %w", err)
	}
	n = len(ms)
	return matchesFromDomain(ms), nil
}

// MatchAll matches every lost item against every found item.
func (c *Client) MatchAll(ctx context.Context) (_ []Match, err error) {
	start := time.Now()
	var n int
	defer func() { c.obs.observeMatches("match_all", start, n, err) }()

	ms, err := c.matchSvc.MatchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("match all: %w", err)
	}
	n = len(ms)
	return matchesFromDomain(ms), nil
}

// encoderAdapter wraps the public ImageEncoder to satisfy domain.ImageEncoder.
type encoderAdapter struct {
	inner ImageEncoder
}

func (a *encoderAdapter) EncodeImage(ctx context.Context, png []byte) (domain.EmbeddingResult, error) {
	r, err := a.inner.EncodeImage(ctx, png)
	if err != nil {
		if errors.Is(err, domain.ErrEncodingFailure) {
			return domain.EmbeddingResult{}, err
		}
		return domain.EmbeddingResult{}, domain.NewEncodingError(domain.ReasonNetwork, err)
	}
	return domain.EmbeddingResult{Vector: r.Vector, Model: r.Model}, nil
}

// HealthCheck forwards to the inner encoder when it supports health checks.
func (a *encoderAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
