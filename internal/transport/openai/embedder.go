package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lostmatch/internal/domain"
	"github.com/kailas-cloud/lostmatch/internal/metrics"
)

// Embedder encodes images through an OpenAI-compatible multimodal embeddings API
// (CLIP-style servers accepting {"image": "<data URL>"} inputs).
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	provider   string
	logger     *zap.Logger
}

var (
	_ domain.ImageEncoder  = (*Embedder)(nil)
	_ domain.HealthChecker = (*Embedder)(nil)
)

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
	Provider   string
	Logger     *zap.Logger
}

// imageInput is a single multimodal embeddings input.
type imageInput struct {
	Image string `json:"image"`
}

// NewEmbedder creates an OpenAI-compatible image embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		provider:   cfg.Provider,
		logger:     logger,
	}
}

// EncodeImage implements domain.ImageEncoder.
func (e *Embedder) EncodeImage(ctx context.Context, png []byte) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []imageInput{{Image: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)}},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		reason := domain.ReasonNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			reason = domain.ReasonTimeout
		} else if isAPIError(err) {
			reason = domain.ReasonStatus
		}
		e.recordError(reason)
		return domain.EmbeddingResult{}, domain.NewEncodingError(reason, parseAPIError(err))
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		e.recordError(domain.ReasonShape)
		return domain.EmbeddingResult{}, domain.NewEncodingError(domain.ReasonShape, errors.New("empty embedding response"))
	}

	metrics.EncoderRequestsTotal.WithLabelValues(e.provider, string(e.model), "success").Inc()
	metrics.EncoderRequestDuration.WithLabelValues(e.provider, string(e.model)).Observe(duration.Seconds())

	model := string(resp.Model)
	if model == "" {
		model = string(e.model)
	}

	return domain.EmbeddingResult{
		Vector: resp.Data[0].Embedding,
		Model:  model,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (e *Embedder) recordError(reason string) {
	metrics.EncoderRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
	metrics.EncoderErrorsTotal.WithLabelValues(e.provider, string(e.model), reason).Inc()
}

func isAPIError(err error) bool {
	var reqErr *openai.RequestError
	var apiErr *openai.APIError
	return errors.As(err, &reqErr) || errors.As(err, &apiErr)
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("embedding API error %d: %s", reqErr.HTTPStatusCode, detail)
		}
		return fmt.Errorf("embedding API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("embedding request failed: %w", err)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
