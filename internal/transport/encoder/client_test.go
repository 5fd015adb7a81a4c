package encoder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(&Config{
		URL:       srv.URL + "/embed",
		HealthURL: srv.URL + "/health",
		APIKey:    "secret",
		Model:     "clip-test",
		Timeout:   timeout,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RequiresURL(t *testing.T) {
	if _, err := NewClient(&Config{}); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestEncodeImage_Success(t *testing.T) {
	png := []byte("\x89PNG fake")
	var gotImage []byte
	var gotAccept, gotAuth string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotAuth = r.Header.Get("Authorization")
		f, hdr, err := r.FormFile("image")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		if hdr.Header.Get("Content-Type") != "image/png" {
			http.Error(w, "wrong content type", http.StatusBadRequest)
			return
		}
		gotImage, _ = io.ReadAll(f)
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.5, 0.25}})
	}, time.Second)

	res, err := c.EncodeImage(context.Background(), png)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Vector) != 2 || res.Vector[0] != 0.5 {
		t.Errorf("unexpected vector: %v", res.Vector)
	}
	if res.Model != "clip-test" {
		t.Errorf("Model = %q, want configured model", res.Model)
	}
	if string(gotImage) != string(png) {
		t.Errorf("server received %q", gotImage)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestEncodeImage_ModelFromResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"embedding":[1],"model":"clip-v2"}`)
	}, time.Second)

	res, err := c.EncodeImage(context.Background(), []byte("png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Model != "clip-v2" {
		t.Errorf("Model = %q, want clip-v2", res.Model)
	}
}

func TestEncodeImage_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		reason  string
	}{
		{
			name: "non-200",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "model not loaded", http.StatusServiceUnavailable)
			},
			reason: domain.ReasonStatus,
		},
		{
			name: "missing embedding field",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"vector":[1,2]}`)
			},
			reason: domain.ReasonShape,
		},
		{
			name: "empty embedding",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"embedding":[]}`)
			},
			reason: domain.ReasonShape,
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `<html>oops</html>`)
			},
			reason: domain.ReasonShape,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, tc.handler, time.Second)
			_, err := c.EncodeImage(context.Background(), []byte("png"))
			if !errors.Is(err, domain.ErrEncodingFailure) {
				t.Fatalf("expected ErrEncodingFailure, got %v", err)
			}
			if got := domain.EncodingReason(err); got != tc.reason {
				t.Errorf("reason = %q, want %q", got, tc.reason)
			}
		})
	}
}

func TestEncodeImage_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	_, err := c.EncodeImage(context.Background(), []byte("png"))
	if !errors.Is(err, domain.ErrEncodingFailure) {
		t.Fatalf("expected ErrEncodingFailure, got %v", err)
	}
	if got := domain.EncodingReason(err); got != domain.ReasonTimeout {
		t.Errorf("reason = %q, want %q", got, domain.ReasonTimeout)
	}
}

func TestEncodeImage_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(&Config{URL: url, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.EncodeImage(context.Background(), []byte("png"))
	if !errors.Is(err, domain.ErrEncodingFailure) {
		t.Fatalf("expected ErrEncodingFailure, got %v", err)
	}
	if got := domain.EncodingReason(err); got != domain.ReasonNetwork {
		t.Errorf("reason = %q, want %q", got, domain.ReasonNetwork)
	}
}

func TestHealthCheck(t *testing.T) {
	healthy := true
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}, time.Second)

	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	healthy = false
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error for unhealthy encoder")
	}
}

func TestHealthCheck_NoURL(t *testing.T) {
	c, err := NewClient(&Config{URL: "http://127.0.0.1:1/embed"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("expected no-op health check, got %v", err)
	}
}
