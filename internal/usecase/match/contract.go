package match

import (
	"context"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

// ItemEncoder embeds an item's image.
type ItemEncoder interface {
	EncodeItem(ctx context.Context, item domain.Item) (domain.EmbeddingResult, error)
}

// Corpus reads lost and found items. Implementations must tolerate concurrent reads.
type Corpus interface {
	ListLost(ctx context.Context) ([]domain.Item, error)
	ListFound(ctx context.Context) ([]domain.Item, error)
	GetLost(ctx context.Context, id string) (domain.Item, error)
	GetFound(ctx context.Context, id string) (domain.Item, error)
}

// MemoFactory wraps an encoder with a memo that lives for one batch run.
type MemoFactory func(inner ItemEncoder) ItemEncoder
