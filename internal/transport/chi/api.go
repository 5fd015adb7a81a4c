package chi

import (
	"time"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Error codes returned by the API.
const (
	ErrorResponseCodeBadRequest         ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized       ErrorResponseCode = "unauthorized"
	ErrorResponseCodeValidationFailed   ErrorResponseCode = "validation_failed"
	ErrorResponseCodeItemNotFound       ErrorResponseCode = "item_not_found"
	ErrorResponseCodeDimensionMismatch  ErrorResponseCode = "dimension_mismatch"
	ErrorResponseCodeEncoderUnavailable ErrorResponseCode = "encoder_unavailable"
	ErrorResponseCodeConfiguration      ErrorResponseCode = "configuration_error"
	ErrorResponseCodeTimeout            ErrorResponseCode = "timeout"
	ErrorResponseCodeInternalError      ErrorResponseCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}

// ItemPayload is an item report as submitted in POST /matches.
type ItemPayload struct {
	ID            string `json:"id"`
	Description   string `json:"description,omitempty"`
	Location      string `json:"location,omitempty"`
	ContactNumber string `json:"contact_number,omitempty"`
	Category      string `json:"category,omitempty"`
	// Image is a data URL or bare base64 string.
	Image  string `json:"image,omitempty"`
	Status string `json:"status,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// MatchRequest is the body of POST /matches. Kind is the query's collection
// ("lost" by default); candidates belong to the other one.
type MatchRequest struct {
	Kind       string        `json:"kind,omitempty"`
	Query      ItemPayload   `json:"query"`
	Candidates []ItemPayload `json:"candidates"`
	K          *int          `json:"k,omitempty"`
}

// ItemSummary describes a matched item without its image payload.
type ItemSummary struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind,omitempty"`
	Description   string     `json:"description,omitempty"`
	Location      string     `json:"location,omitempty"`
	ContactNumber string     `json:"contact_number,omitempty"`
	Category      string     `json:"category,omitempty"`
	Status        string     `json:"status,omitempty"`
	UserID        string     `json:"user_id,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// MatchItem is one ranked candidate.
type MatchItem struct {
	QueryID     string      `json:"query_id"`
	CandidateID string      `json:"candidate_id"`
	Score       float64     `json:"score"`
	Distance    float64     `json:"distance"`
	Candidate   ItemSummary `json:"candidate"`
}

// MatchResponse is returned by the single-query endpoints.
type MatchResponse struct {
	QueryID string      `json:"query_id"`
	Matches []MatchItem `json:"matches"`
}

// BatchResponse is returned by POST /matches/batch.
type BatchResponse struct {
	Matches []MatchItem `json:"matches"`
	Total   int         `json:"total"`
}

func itemFromPayload(p ItemPayload, kind domain.Kind) domain.Item {
	it := domain.Item{
		ID:          p.ID,
		Kind:        kind,
		Description: p.Description,
		Location:    p.Location,
		Contact:     p.ContactNumber,
		Category:    p.Category,
		Status:      domain.ParseStatus(p.Status, kind),
		OwnerID:     p.UserID,
	}
	if p.Image != "" {
		it.Image = []byte(p.Image)
	}
	return it
}

func summaryFromItem(it domain.Item) ItemSummary {
	s := ItemSummary{
		ID:            it.ID,
		Kind:          string(it.Kind),
		Description:   it.Description,
		Location:      it.Location,
		ContactNumber: it.Contact,
		Category:      it.Category,
		Status:        string(it.Status),
		UserID:        it.OwnerID,
	}
	if !it.CreatedAt.IsZero() {
		t := it.CreatedAt
		s.CreatedAt = &t
	}
	return s
}

func matchesToAPI(ms []domain.Match) []MatchItem {
	out := make([]MatchItem, len(ms))
	for i, m := range ms {
		out[i] = MatchItem{
			QueryID:     m.QueryID,
			CandidateID: m.CandidateID,
			Score:       m.Score,
			Distance:    m.Distance,
			Candidate:   summaryFromItem(m.Candidate),
		}
	}
	return out
}
