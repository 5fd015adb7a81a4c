package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lostmatch/internal/domain"
	"github.com/kailas-cloud/lostmatch/internal/imaging"
	"github.com/kailas-cloud/lostmatch/internal/metrics"
)

// Provider converts raw image payloads into embeddings of a fixed dimension.
// It is immutable after construction and safe for concurrent use.
type Provider struct {
	encoder domain.ImageEncoder
	canon   *imaging.Canonicalizer
	dims    int
	model   string
	logger  *zap.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithModel pins the expected encoder model version. Embeddings reporting another
// model are rejected as encoding failures.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithMaxPixels bounds the decoded image size.
func WithMaxPixels(n int) Option {
	return func(p *Provider) { p.canon = imaging.NewCanonicalizer(n) }
}

// WithLogger sets the provider logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// NewProvider creates a Provider producing embeddings of length dims.
func NewProvider(encoder domain.ImageEncoder, dims int, opts ...Option) (*Provider, error) {
	if encoder == nil {
		return nil, fmt.Errorf("encoder is required: %w", domain.ErrConfiguration)
	}
	if dims <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d: %w", dims, domain.ErrConfiguration)
	}
	p := &Provider{
		encoder: encoder,
		canon:   imaging.NewCanonicalizer(0),
		dims:    dims,
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Encode normalizes payload and asks the encoder for its embedding.
//
// Errors: ErrDecodeFailure for malformed payloads, ErrEncodingFailure for
// encoder failures (both soft), ErrDimensionMismatch when the encoder returns
// a vector of the wrong length.
func (p *Provider) Encode(ctx context.Context, payload []byte) (domain.EmbeddingResult, error) {
	png, err := p.canon.Normalize(payload)
	if err != nil {
		if errors.Is(err, domain.ErrDecodeFailure) {
			metrics.DecodeErrorsTotal.Inc()
		}
		return domain.EmbeddingResult{}, fmt.Errorf("normalize image: %w", err)
	}

	res, err := p.encoder.EncodeImage(ctx, png)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	if len(res.Vector) != p.dims {
		return domain.EmbeddingResult{}, fmt.Errorf("encoder returned %d values, want %d: %w",
			len(res.Vector), p.dims, domain.ErrDimensionMismatch)
	}
	if p.model != "" && res.Model != "" && res.Model != p.model {
		return domain.EmbeddingResult{}, domain.NewEncodingError(domain.ReasonModel,
			fmt.Errorf("encoder model %q, want %q", res.Model, p.model))
	}
	if res.Model == "" {
		res.Model = p.model
	}
	return res, nil
}

// EncodeItem encodes the item's image payload.
func (p *Provider) EncodeItem(ctx context.Context, item domain.Item) (domain.EmbeddingResult, error) {
	if !item.HasImage() {
		return domain.EmbeddingResult{}, domain.ErrNoImage
	}
	return p.Encode(ctx, item.Image)
}
