package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lostmatch/internal/domain"
	healthuc "github.com/kailas-cloud/lostmatch/internal/usecase/health"
)

// --- Mocks ---

type mockMatcher struct {
	matchFn      func(ctx context.Context, q domain.Item, c []domain.Item, k int) ([]domain.Match, error)
	matchLostFn  func(ctx context.Context, id string, k int) ([]domain.Match, error)
	matchFoundFn func(ctx context.Context, id string, k int) ([]domain.Match, error)
	matchAllFn   func(ctx context.Context) ([]domain.Match, error)
}

func (m *mockMatcher) Match(ctx context.Context, q domain.Item, c []domain.Item, k int) ([]domain.Match, error) {
	if m.matchFn != nil {
		return m.matchFn(ctx, q, c, k)
	}
	return []domain.Match{}, nil
}

func (m *mockMatcher) MatchLost(ctx context.Context, id string, k int) ([]domain.Match, error) {
	if m.matchLostFn != nil {
		return m.matchLostFn(ctx, id, k)
	}
	return []domain.Match{}, nil
}

func (m *mockMatcher) MatchFound(ctx context.Context, id string, k int) ([]domain.Match, error) {
	if m.matchFoundFn != nil {
		return m.matchFoundFn(ctx, id, k)
	}
	return []domain.Match{}, nil
}

func (m *mockMatcher) MatchAll(ctx context.Context) ([]domain.Match, error) {
	if m.matchAllFn != nil {
		return m.matchAllFn(ctx)
	}
	return []domain.Match{}, nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newTestServer(m *mockMatcher) http.Handler {
	return router(NewServer(m, healthuc.New(pinger{}, nil), zap.NewNop()))
}

// router mounts srv on a bare chi router, without middleware.
func router(srv *Server) http.Handler {
	r := chi.NewRouter()
	srv.Register(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, http.NoBody)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

// --- Tests ---

func TestMatchLostItem_OK(t *testing.T) {
	m := &mockMatcher{
		matchLostFn: func(_ context.Context, id string, k int) ([]domain.Match, error) {
			if id != "lost-1" {
				t.Errorf("unexpected id %q", id)
			}
			if k != 3 {
				t.Errorf("unexpected k %d", k)
			}
			return []domain.Match{{
				QueryID: "lost-1", CandidateID: "found-9", Score: 0.5, Distance: 1,
				Candidate: domain.Item{ID: "found-9", Kind: domain.KindFound, Description: "wallet",
					Image: []byte("secret-image-bytes")},
			}}, nil
		},
	}

	rr := do(t, newTestServer(m), http.MethodGet, "/lost-items/lost-1/matches?k=3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "secret-image-bytes") {
		t.Error("response must not echo image payloads")
	}
	resp := decode[MatchResponse](t, rr)
	if resp.QueryID != "lost-1" || len(resp.Matches) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	got := resp.Matches[0]
	if got.CandidateID != "found-9" || got.Score != 0.5 || got.Candidate.Description != "wallet" {
		t.Errorf("unexpected match: %+v", got)
	}
}

func TestMatchLostItem_DefaultK(t *testing.T) {
	m := &mockMatcher{
		matchLostFn: func(_ context.Context, _ string, k int) ([]domain.Match, error) {
			if k != 0 {
				t.Errorf("expected k=0 (engine default), got %d", k)
			}
			return []domain.Match{}, nil
		},
	}
	rr := do(t, newTestServer(m), http.MethodGet, "/lost-items/x/matches", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"matches":[]`) {
		t.Errorf("expected empty array, got %s", rr.Body.String())
	}
}

func TestMatchLostItem_InvalidK(t *testing.T) {
	h := newTestServer(&mockMatcher{})
	for _, q := range []string{"k=abc", "k=0", "k=-1", fmt.Sprintf("k=%d", MaxK+1)} {
		rr := do(t, h, http.MethodGet, "/lost-items/x/matches?"+q, "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", q, rr.Code)
		}
	}
}

func TestMatchFoundItem_NotFound(t *testing.T) {
	m := &mockMatcher{
		matchFoundFn: func(context.Context, string, int) ([]domain.Match, error) {
			return nil, fmt.Errorf("get found item z: %w", domain.ErrItemNotFound)
		},
	}
	rr := do(t, newTestServer(m), http.MethodGet, "/found-items/z/matches", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorResponseCodeItemNotFound {
		t.Errorf("unexpected code %s", resp.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   ErrorResponseCode
	}{
		{fmt.Errorf("embed: %w", domain.ErrDimensionMismatch), http.StatusBadGateway, ErrorResponseCodeDimensionMismatch},
		{domain.NewEncodingError(domain.ReasonTimeout, errors.New("slow")), http.StatusBadGateway, ErrorResponseCodeEncoderUnavailable},
		{domain.ErrConfiguration, http.StatusInternalServerError, ErrorResponseCodeConfiguration},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorResponseCodeTimeout},
		{errors.New("redis: connection refused"), http.StatusInternalServerError, ErrorResponseCodeInternalError},
	}
	for _, tt := range tests {
		m := &mockMatcher{matchAllFn: func(context.Context) ([]domain.Match, error) { return nil, tt.err }}
		rr := do(t, newTestServer(m), http.MethodPost, "/matches/batch", "")
		if rr.Code != tt.status {
			t.Errorf("%v: got %d, want %d", tt.err, rr.Code, tt.status)
			continue
		}
		resp := decode[ErrorResponse](t, rr)
		if resp.Code != tt.code {
			t.Errorf("%v: code %s, want %s", tt.err, resp.Code, tt.code)
		}
		if strings.Contains(resp.Message, "redis") {
			t.Errorf("internal details leaked: %q", resp.Message)
		}
	}
}

func TestMatchItems_OK(t *testing.T) {
	m := &mockMatcher{
		matchFn: func(_ context.Context, q domain.Item, c []domain.Item, k int) ([]domain.Match, error) {
			if q.ID != "q" || q.Kind != domain.KindLost || string(q.Image) != "data:image/png;base64,AAAA" {
				t.Errorf("unexpected query: %+v", q)
			}
			if len(c) != 2 || c[0].Kind != domain.KindFound || c[1].Status != domain.StatusFound {
				t.Errorf("unexpected candidates: %+v", c)
			}
			if k != 1 {
				t.Errorf("unexpected k %d", k)
			}
			return []domain.Match{{QueryID: q.ID, CandidateID: c[1].ID, Candidate: c[1], Score: 1}}, nil
		},
	}

	body := `{"query":{"id":"q","image":"data:image/png;base64,AAAA"},
		"candidates":[{"id":"a","image":"AAAA"},{"id":"b","image":"BBBB"}],"k":1}`
	rr := do(t, newTestServer(m), http.MethodPost, "/matches", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[MatchResponse](t, rr)
	if len(resp.Matches) != 1 || resp.Matches[0].CandidateID != "b" || resp.Matches[0].Candidate.Kind != "found" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestMatchItems_FoundDirection(t *testing.T) {
	m := &mockMatcher{
		matchFn: func(_ context.Context, q domain.Item, c []domain.Item, _ int) ([]domain.Match, error) {
			if q.Kind != domain.KindFound || c[0].Kind != domain.KindLost {
				t.Errorf("kinds not swapped: %s / %s", q.Kind, c[0].Kind)
			}
			return []domain.Match{}, nil
		},
	}
	body := `{"kind":"found","query":{"id":"q"},"candidates":[{"id":"a"}]}`
	if rr := do(t, newTestServer(m), http.MethodPost, "/matches", body); rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
}

func TestMatchItems_BadRequests(t *testing.T) {
	h := newTestServer(&mockMatcher{})
	for name, body := range map[string]string{
		"malformed json": `{"query":`,
		"bad kind":       `{"kind":"stolen","query":{"id":"q"}}`,
		"bad k":          `{"query":{"id":"q"},"k":0}`,
	} {
		if rr := do(t, h, http.MethodPost, "/matches", body); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", name, rr.Code)
		}
	}
}

func TestMatchItems_BodyLimit(t *testing.T) {
	srv := NewServer(&mockMatcher{}, healthuc.New(nil, nil), zap.NewNop()).WithMaxBodyBytes(64)
	body := `{"query":{"id":"q","image":"` + string(bytes.Repeat([]byte("A"), 256)) + `"}}`
	if rr := do(t, router(srv), http.MethodPost, "/matches", body); rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestMatchBatch_OK(t *testing.T) {
	m := &mockMatcher{
		matchAllFn: func(context.Context) ([]domain.Match, error) {
			return []domain.Match{
				{QueryID: "L1", CandidateID: "F1", Score: 1},
				{QueryID: "L2", CandidateID: "F1", Score: 0.2},
			}, nil
		},
	}
	rr := do(t, newTestServer(m), http.MethodPost, "/matches/batch", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	resp := decode[BatchResponse](t, rr)
	if resp.Total != 2 || resp.Matches[1].QueryID != "L2" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHealthCheck(t *testing.T) {
	srv := NewServer(&mockMatcher{}, healthuc.New(pinger{}, nil), zap.NewNop())
	rr := do(t, router(srv), http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	resp := decode[HealthResponse](t, rr)
	if resp.Status != "ok" || resp.Checks["corpus"] != "ok" || resp.Version == "" {
		t.Errorf("unexpected response: %+v", resp)
	}

	srv = NewServer(&mockMatcher{}, healthuc.New(pinger{err: errors.New("down")}, nil), zap.NewNop())
	rr = do(t, router(srv), http.MethodGet, "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := do(t, newTestServer(&mockMatcher{}), http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newTestServer(&mockMatcher{})
	if rr := do(t, h, http.MethodGet, "/collections", ""); rr.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/matches", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("got %d, want 405", rr.Code)
	}
}
