package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

// DefaultMaxPixels bounds decoded image size (width*height).
const DefaultMaxPixels = 40_000_000

// Canonicalizer re-encodes arbitrary images as opaque 8-bit RGB PNG so the encoder
// always receives the same format regardless of source format or color mode.
type Canonicalizer struct {
	maxPixels int
	encoder   png.Encoder
}

// NewCanonicalizer creates a canonicalizer. maxPixels <= 0 uses DefaultMaxPixels.
func NewCanonicalizer(maxPixels int) *Canonicalizer {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Canonicalizer{
		maxPixels: maxPixels,
		encoder:   png.Encoder{CompressionLevel: png.BestSpeed},
	}
}

// Canonicalize decodes raw image bytes and returns canonical PNG bytes.
func (c *Canonicalizer) Canonicalize(raw []byte) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read image header: %w: %w", domain.ErrDecodeFailure, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("empty %s image: %w", format, domain.ErrDecodeFailure)
	}
	if cfg.Width*cfg.Height > c.maxPixels {
		return nil, fmt.Errorf("%s image %dx%d exceeds %d pixels: %w",
			format, cfg.Width, cfg.Height, c.maxPixels, domain.ErrDecodeFailure)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode %s image: %w: %w", format, domain.ErrDecodeFailure, err)
	}

	// Flatten onto white: an opaque RGBA is written by image/png as 8-bit truecolor.
	bounds := img.Bounds()
	rgb := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgb, rgb.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(rgb, rgb.Bounds(), img, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := c.encoder.Encode(&buf, rgb); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Normalize decodes a payload and canonicalizes the image it holds.
func (c *Canonicalizer) Normalize(payload []byte) ([]byte, error) {
	raw, err := DecodePayload(payload)
	if err != nil {
		return nil, err
	}
	return c.Canonicalize(raw)
}
