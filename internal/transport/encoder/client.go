// Package encoder is the client for the remote image encoding service.
package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lostmatch/internal/domain"
	"github.com/kailas-cloud/lostmatch/internal/metrics"
)

// DefaultTimeout bounds a single encoding round-trip.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps the JSON body read from the encoder.
const maxResponseBytes = 4 << 20

// Config holds the encoding service settings.
type Config struct {
	URL       string
	HealthURL string
	APIKey    string
	Model     string
	Timeout   time.Duration
	Provider  string
	Logger    *zap.Logger
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Client posts canonical PNG images to the encoding endpoint.
type Client struct {
	http      *http.Client
	url       string
	healthURL string
	apiKey    string
	model     string
	timeout   time.Duration
	provider  string
	logger    *zap.Logger
}

var (
	_ domain.ImageEncoder  = (*Client)(nil)
	_ domain.HealthChecker = (*Client)(nil)
)

// NewClient creates an encoding service client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("encoder url is required: %w", domain.ErrConfiguration)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "http"
	}
	return &Client{
		http:      hc,
		url:       cfg.URL,
		healthURL: cfg.HealthURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		timeout:   timeout,
		provider:  provider,
		logger:    logger,
	}, nil
}

// encodeResponse is the success body of the encoding endpoint.
type encodeResponse struct {
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model,omitempty"`
}

// EncodeImage implements domain.ImageEncoder. A single attempt is made.
func (c *Client) EncodeImage(ctx context.Context, png []byte) (domain.EmbeddingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, contentType, err := multipartBody(png)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("build request: %w: %w", domain.ErrConfiguration, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		return domain.EmbeddingResult{}, c.fail(classifyTransportError(err), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.EmbeddingResult{}, c.fail(classifyTransportError(err), fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return domain.EmbeddingResult{}, c.fail(domain.ReasonStatus,
			fmt.Errorf("encoder returned %d: %s", resp.StatusCode, truncate(data, 256)))
	}

	var parsed encodeResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return domain.EmbeddingResult{}, c.fail(domain.ReasonShape, fmt.Errorf("parse body: %w", err))
	}
	if len(parsed.Embedding) == 0 {
		return domain.EmbeddingResult{}, c.fail(domain.ReasonShape, errors.New("response has no embedding"))
	}

	model := parsed.Model
	if model == "" {
		model = c.model
	}

	metrics.EncoderRequestsTotal.WithLabelValues(c.provider, c.model, "success").Inc()
	metrics.EncoderRequestDuration.WithLabelValues(c.provider, c.model).Observe(duration.Seconds())

	return domain.EmbeddingResult{Vector: parsed.Embedding, Model: model}, nil
}

// HealthCheck probes the configured health URL; without one it is a no-op.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.healthURL == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("encoder health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("encoder health returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) fail(reason string, err error) error {
	metrics.EncoderRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
	metrics.EncoderErrorsTotal.WithLabelValues(c.provider, c.model, reason).Inc()
	return domain.NewEncodingError(reason, err)
}

func multipartBody(png []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="image.png"`)
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create part: %w", err)
	}
	if _, err := part.Write(png); err != nil {
		return nil, "", fmt.Errorf("write part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func classifyTransportError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ReasonTimeout
	}
	return domain.ReasonNetwork
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
