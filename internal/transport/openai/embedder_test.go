package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

// embeddingResponse mirrors the OpenAI-compatible API embedding response.
type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

func newTestEmbedder(url string) *Embedder {
	return NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    url,
		Model:      "clip-test",
		Dimensions: 3,
		Provider:   "test",
		Logger:     zap.NewNop(),
	})
}

func TestEmbedder_EncodeImage(t *testing.T) {
	expected := []float32{0.1, 0.2, 0.3}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var body struct {
			Input []map[string]string `json:"input"`
			Model string              `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(body.Input) != 1 || !strings.HasPrefix(body.Input[0]["image"], "data:image/png;base64,") {
			t.Errorf("unexpected input: %v", body.Input)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embeddingResponse{
			Object: "list",
			Model:  "clip-test",
			Data:   []embeddingData{{Object: "embedding", Embedding: expected}},
		})
	}))
	defer server.Close()

	res, err := newTestEmbedder(server.URL).EncodeImage(context.Background(), []byte("png-bytes"))
	if err != nil {
		t.Fatalf("EncodeImage failed: %v", err)
	}
	if len(res.Vector) != len(expected) {
		t.Fatalf("expected %d dimensions, got %d", len(expected), len(res.Vector))
	}
	for i, v := range res.Vector {
		if v != expected[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expected[i])
		}
	}
	if res.Model != "clip-test" {
		t.Errorf("Model = %q", res.Model)
	}
}

func TestEmbedder_EmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embeddingResponse{Object: "list", Model: "clip-test"})
	}))
	defer server.Close()

	_, err := newTestEmbedder(server.URL).EncodeImage(context.Background(), []byte("png"))
	if !errors.Is(err, domain.ErrEncodingFailure) {
		t.Fatalf("expected ErrEncodingFailure, got %v", err)
	}
	if domain.EncodingReason(err) != domain.ReasonShape {
		t.Errorf("reason = %q", domain.EncodingReason(err))
	}
}

func TestEmbedder_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"image input not supported"}`))
	}))
	defer server.Close()

	_, err := newTestEmbedder(server.URL).EncodeImage(context.Background(), []byte("png"))
	if !errors.Is(err, domain.ErrEncodingFailure) {
		t.Fatalf("expected ErrEncodingFailure, got %v", err)
	}
	if domain.EncodingReason(err) != domain.ReasonStatus {
		t.Errorf("reason = %q", domain.EncodingReason(err))
	}
	if !strings.Contains(err.Error(), "image input not supported") {
		t.Errorf("expected detail in error, got %q", err.Error())
	}
}

func TestExtractDetail(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"detail":"bad input"}`, "bad input"},
		{`{"error":"x"}`, ""},
		{`not json`, ""},
	}
	for _, tc := range tests {
		if got := extractDetail([]byte(tc.body)); got != tc.want {
			t.Errorf("extractDetail(%q) = %q, want %q", tc.body, got, tc.want)
		}
	}
}
