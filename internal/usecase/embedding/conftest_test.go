package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

type mockEncoder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
	last   []byte
}

func (m *mockEncoder) EncodeImage(_ context.Context, png []byte) (domain.EmbeddingResult, error) {
	m.calls++
	m.last = png
	return m.result, m.err
}

type healthyEncoder struct {
	mockEncoder
	healthErr error
}

func (h *healthyEncoder) HealthCheck(_ context.Context) error { return h.healthErr }

func dataURL(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return []byte("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()))
}
