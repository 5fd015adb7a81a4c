package lostmatch

import "context"

// ImageEncoder converts canonical PNG bytes into an embedding vector.
// Model identifies the encoder model; vectors from different models are
// never compared.
type ImageEncoder interface {
	EncodeImage(ctx context.Context, png []byte) (EncodeResult, error)
}

// EncodeResult carries the embedding vector and the model that produced it.
type EncodeResult struct {
	Vector []float32
	Model  string
}
