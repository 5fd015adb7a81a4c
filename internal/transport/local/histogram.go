// Package local provides an in-process image encoder used for development and tests.
package local

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

// ModelName identifies embeddings produced by HistogramEncoder.
const ModelName = "rgb-histogram-v1"

// HistogramEncoder embeds an image as its normalized RGB color histogram.
// The dimension must be a perfect cube (bins per channel cubed); 512 gives 8 bins.
type HistogramEncoder struct {
	bins int
	dims int
}

var _ domain.ImageEncoder = (*HistogramEncoder)(nil)

// NewHistogramEncoder creates an encoder producing dims-length vectors.
func NewHistogramEncoder(dims int) (*HistogramEncoder, error) {
	bins := int(math.Round(math.Cbrt(float64(dims))))
	if dims <= 0 || bins*bins*bins != dims || bins > 256 {
		return nil, fmt.Errorf("histogram dimension %d is not a cube of 1..256: %w", dims, domain.ErrConfiguration)
	}
	return &HistogramEncoder{bins: bins, dims: dims}, nil
}

// EncodeImage implements domain.ImageEncoder.
func (h *HistogramEncoder) EncodeImage(ctx context.Context, data []byte) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, domain.NewEncodingError(domain.ReasonTimeout, err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.EmbeddingResult{}, domain.NewEncodingError(domain.ReasonShape, fmt.Errorf("decode png: %w", err))
	}

	vec := make(domain.Embedding, h.dims)
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return domain.EmbeddingResult{Vector: vec, Model: ModelName}, nil
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			vec[h.bin(img, x, y)]++
		}
	}
	for i := range vec {
		vec[i] /= float32(total)
	}
	return domain.EmbeddingResult{Vector: vec, Model: ModelName}, nil
}

func (h *HistogramEncoder) bin(img image.Image, x, y int) int {
	r, g, b, _ := img.At(x, y).RGBA()
	q := func(v uint32) int { return int(v>>8) * h.bins / 256 }
	return (q(r)*h.bins+q(g))*h.bins + q(b)
}
