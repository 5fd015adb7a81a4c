package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

// InstrumentedEncoder wraps an ImageEncoder with call logging.
// Transport metrics (requests, duration, errors) are recorded in the transport packages.
type InstrumentedEncoder struct {
	inner    domain.ImageEncoder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEncoder wraps an encoder with observability.
func NewInstrumentedEncoder(
	inner domain.ImageEncoder, provider, model string, logger *zap.Logger,
) *InstrumentedEncoder {
	return &InstrumentedEncoder{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// EncodeImage delegates to the inner encoder and logs the outcome.
func (p *InstrumentedEncoder) EncodeImage(
	ctx context.Context, png []byte,
) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.EncodeImage(ctx, png)

	duration := time.Since(start)

	if err != nil {
		p.logger.Warn("Image encoding failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.String("reason", domain.EncodingReason(err)),
			zap.Duration("duration", duration),
			zap.Int("image_bytes", len(png)),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("encode image: %w", err)
	}

	p.logger.Debug("Image encoding completed",
		zap.String("provider", p.provider),
		zap.String("model", result.Model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Vector)),
		zap.Int("image_bytes", len(png)),
	)

	return result, nil
}

// HealthCheck forwards to the inner encoder when it supports health probes.
func (p *InstrumentedEncoder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("encoder health check: %w", err)
		}
	}
	return nil
}
