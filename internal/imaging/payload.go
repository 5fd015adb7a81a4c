// Package imaging turns item image payloads into the canonical form sent to encoders.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

const base64Marker = ";base64,"

// magic prefixes of formats accepted as raw bytes.
var magics = [][]byte{
	[]byte("\x89PNG\r\n\x1a\n"),
	[]byte("\xff\xd8\xff"),
	[]byte("GIF87a"),
	[]byte("GIF89a"),
}

// DecodePayload returns the binary image bytes held by payload.
// Payloads are either raw image bytes or base64 text, optionally behind a
// data-URL prefix. Base64 text is sanitized and re-padded before decoding.
func DecodePayload(payload []byte) ([]byte, error) {
	if isRawImage(payload) {
		return payload, nil
	}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload: %w", domain.ErrDecodeFailure)
	}

	text := string(trimmed)
	if idx := strings.Index(text, base64Marker); idx >= 0 {
		text = text[idx+len(base64Marker):]
	} else if strings.HasPrefix(text, "data:") {
		return nil, fmt.Errorf("data URL is not base64 encoded: %w", domain.ErrDecodeFailure)
	}

	clean := sanitizeBase64(text)
	if len(clean) == 0 {
		return nil, fmt.Errorf("no base64 data: %w", domain.ErrDecodeFailure)
	}
	if len(clean)%4 == 1 {
		return nil, fmt.Errorf("truncated base64 data (%d chars): %w", len(clean), domain.ErrDecodeFailure)
	}
	if rem := len(clean) % 4; rem != 0 {
		clean += strings.Repeat("=", 4-rem)
	}

	data, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w: %w", domain.ErrDecodeFailure, err)
	}
	return data, nil
}

// sanitizeBase64 keeps only standard alphabet characters. Everything else,
// including padding, is dropped; padding is recomputed by the caller.
func sanitizeBase64(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '+', c == '/':
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isRawImage(b []byte) bool {
	for _, m := range magics {
		if bytes.HasPrefix(b, m) {
			return true
		}
	}
	// BMP: "BM" followed by size and four reserved zero bytes, which base64 text never has.
	if len(b) >= 10 && b[0] == 'B' && b[1] == 'M' && bytes.Equal(b[6:10], []byte{0, 0, 0, 0}) {
		return true
	}
	// RIFF....WEBP
	return len(b) >= 12 && bytes.Equal(b[:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP"))
}
