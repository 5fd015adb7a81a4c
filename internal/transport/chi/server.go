package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lostmatch/internal/domain"
	logpkg "github.com/kailas-cloud/lostmatch/internal/logger"
	healthuc "github.com/kailas-cloud/lostmatch/internal/usecase/health"
	"github.com/kailas-cloud/lostmatch/internal/version"
)

// MaxK caps the k query parameter.
const MaxK = 100

// DefaultMaxBodyBytes caps POST bodies when no limit is configured.
const DefaultMaxBodyBytes = 32 << 20

// Matcher is the match engine as seen by the HTTP adapter.
type Matcher interface {
	Match(ctx context.Context, query domain.Item, candidates []domain.Item, k int) ([]domain.Match, error)
	MatchLost(ctx context.Context, id string, k int) ([]domain.Match, error)
	MatchFound(ctx context.Context, id string, k int) ([]domain.Match, error)
	MatchAll(ctx context.Context) ([]domain.Match, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the match entry points, health and metrics.
type Server struct {
	matcher       Matcher
	health        *healthuc.Service
	logger        *zap.Logger
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(matcher Matcher, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		matcher:      matcher,
		health:       health,
		logger:       logger,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrItemNotFound, http.StatusNotFound, ErrorResponseCodeItemNotFound),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusBadGateway, ErrorResponseCodeDimensionMismatch),
		sentinelHandler(domain.ErrEncodingFailure, http.StatusBadGateway, ErrorResponseCodeEncoderUnavailable),
		sentinelHandler(domain.ErrConfiguration, http.StatusInternalServerError, ErrorResponseCodeConfiguration),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorResponseCodeTimeout),
	}
	return s
}

// WithMaxBodyBytes caps request bodies.
func (s *Server) WithMaxBodyBytes(n int64) *Server {
	if n > 0 {
		s.maxBodyBytes = n
	}
	return s
}

// Register mounts all routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/lost-items/{id}/matches", s.MatchLostItem)
	r.Get("/found-items/{id}/matches", s.MatchFoundItem)
	r.Post("/matches", s.MatchItems)
	r.Post("/matches/batch", s.MatchBatch)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorResponseCodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorResponseCodeBadRequest, "method not allowed")
	})
}

// MatchLostItem handles GET /lost-items/{id}/matches.
func (s *Server) MatchLostItem(w http.ResponseWriter, r *http.Request) {
	id, k, ok := s.bindItemParams(w, r)
	if !ok {
		return
	}
	matches, err := s.matcher.MatchLost(r.Context(), id, k)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{QueryID: id, Matches: matchesToAPI(matches)})
}

// MatchFoundItem handles GET /found-items/{id}/matches.
func (s *Server) MatchFoundItem(w http.ResponseWriter, r *http.Request) {
	id, k, ok := s.bindItemParams(w, r)
	if !ok {
		return
	}
	matches, err := s.matcher.MatchFound(r.Context(), id, k)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{QueryID: id, Matches: matchesToAPI(matches)})
}

// MatchItems handles POST /matches.
func (s *Server) MatchItems(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	queryKind, candKind := domain.KindLost, domain.KindFound
	switch domain.Kind(req.Kind) {
	case "", domain.KindLost:
	case domain.KindFound:
		queryKind, candKind = domain.KindFound, domain.KindLost
	default:
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed,
			fmt.Sprintf("kind must be %q or %q", domain.KindLost, domain.KindFound))
		return
	}

	k := 0
	if req.K != nil {
		if err := validateK(*req.K); err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
			return
		}
		k = *req.K
	}

	query := itemFromPayload(req.Query, queryKind)
	candidates := make([]domain.Item, len(req.Candidates))
	for i, c := range req.Candidates {
		candidates[i] = itemFromPayload(c, candKind)
	}

	matches, err := s.matcher.Match(r.Context(), query, candidates, k)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{QueryID: query.ID, Matches: matchesToAPI(matches)})
}

// MatchBatch handles POST /matches/batch.
func (s *Server) MatchBatch(w http.ResponseWriter, r *http.Request) {
	matches, err := s.matcher.MatchAll(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BatchResponse{Matches: matchesToAPI(matches), Total: len(matches)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// bindItemParams binds the {id} path parameter and the optional k query parameter.
func (s *Server) bindItemParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id == "" {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid format for parameter id")
		return "", 0, false
	}

	var k *int
	if err := runtime.BindQueryParameter("form", true, false, "k", r.URL.Query(), &k); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid format for parameter k")
		return "", 0, false
	}
	if k == nil {
		return id, 0, true
	}
	if err := validateK(*k); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return "", 0, false
	}
	return id, *k, true
}

func validateK(k int) error {
	if k <= 0 || k > MaxK {
		return fmt.Errorf("k must be between 1 and %d", MaxK)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrItemNotFound,
		domain.ErrDimensionMismatch,
		domain.ErrEncodingFailure,
		domain.ErrConfiguration,
		context.DeadlineExceeded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}
