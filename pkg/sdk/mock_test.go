package lostmatch

import (
	"context"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

// --- itemStore mock ---

type mockItemStore struct {
	listLostFn  func(ctx context.Context) ([]domain.Item, error)
	listFoundFn func(ctx context.Context) ([]domain.Item, error)
	getLostFn   func(ctx context.Context, id string) (domain.Item, error)
	getFoundFn  func(ctx context.Context, id string) (domain.Item, error)
	putFn       func(ctx context.Context, items ...domain.Item) error
	deleteFn    func(ctx context.Context, kind domain.Kind, id string) error
}

func (m *mockItemStore) ListLost(ctx context.Context) ([]domain.Item, error) {
	return m.listLostFn(ctx)
}

func (m *mockItemStore) ListFound(ctx context.Context) ([]domain.Item, error) {
	return m.listFoundFn(ctx)
}

func (m *mockItemStore) GetLost(ctx context.Context, id string) (domain.Item, error) {
	return m.getLostFn(ctx, id)
}

func (m *mockItemStore) GetFound(ctx context.Context, id string) (domain.Item, error) {
	return m.getFoundFn(ctx, id)
}

func (m *mockItemStore) Put(ctx context.Context, items ...domain.Item) error {
	return m.putFn(ctx, items...)
}

func (m *mockItemStore) Delete(ctx context.Context, kind domain.Kind, id string) error {
	return m.deleteFn(ctx, kind, id)
}

// --- matchUseCase mock ---

type mockMatchUC struct {
	matchFn      func(ctx context.Context, query domain.Item, candidates []domain.Item, k int) ([]domain.Match, error)
	matchLostFn  func(ctx context.Context, id string, k int) ([]domain.Match, error)
	matchFoundFn func(ctx context.Context, id string, k int) ([]domain.Match, error)
	matchAllFn   func(ctx context.Context) ([]domain.Match, error)
}

func (m *mockMatchUC) Match(
	ctx context.Context, query domain.Item, candidates []domain.Item, k int,
) ([]domain.Match, error) {
	return m.matchFn(ctx, query, candidates, k)
}

func (m *mockMatchUC) MatchLost(ctx context.Context, id string, k int) ([]domain.Match, error) {
	return m.matchLostFn(ctx, id, k)
}

func (m *mockMatchUC) MatchFound(ctx context.Context, id string, k int) ([]domain.Match, error) {
	return m.matchFoundFn(ctx, id, k)
}

func (m *mockMatchUC) MatchAll(ctx context.Context) ([]domain.Match, error) {
	return m.matchAllFn(ctx)
}

// --- ImageEncoder mock ---

type mockEncoder struct {
	fn       func(ctx context.Context, png []byte) (EncodeResult, error)
	healthFn func(ctx context.Context) error
}

func (m *mockEncoder) EncodeImage(ctx context.Context, png []byte) (EncodeResult, error) {
	return m.fn(ctx, png)
}

// healthEncoder additionally implements HealthCheck.
type healthEncoder struct {
	mockEncoder
}

func (m *healthEncoder) HealthCheck(ctx context.Context) error {
	return m.healthFn(ctx)
}

// --- helpers ---

func testClient(items itemStore, matchSvc matchUseCase) *Client {
	return &Client{
		items:    items,
		matchSvc: matchSvc,
	}
}
