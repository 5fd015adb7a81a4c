package domain

import "context"

// Embedding is a fixed-length vector describing an image's visual content.
// Embeddings are only comparable when produced by the same encoder model.
type Embedding []float32

// EmbeddingResult carries the vector and the encoder model that produced it.
type EmbeddingResult struct {
	Vector Embedding
	Model  string
}

// ImageEncoder turns canonical PNG bytes into an embedding.
type ImageEncoder interface {
	EncodeImage(ctx context.Context, png []byte) (EmbeddingResult, error)
}

// HealthChecker verifies encoder availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
