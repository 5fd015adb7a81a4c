package lostmatch

import (
	"time"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

// Kind is the collection an item belongs to.
type Kind string

// Item collections.
const (
	KindLost  Kind = "lost"
	KindFound Kind = "found"
)

// Status is the lifecycle state of an item.
type Status string

// Item statuses. An empty status defaults by kind.
const (
	StatusLost     Status = "lost"
	StatusFound    Status = "found"
	StatusResolved Status = "resolved"
)

// Item is a lost or found item report.
type Item struct {
	ID          string
	Kind        Kind
	Description string
	Location    string
	Contact     string
	Category    string
	// Image is a data-URL string or raw image bytes.
	Image     []byte
	Status    Status
	OwnerID   string
	CreatedAt time.Time
}

// Match is a scored pairing between a query item and a candidate.
type Match struct {
	QueryID     string
	CandidateID string
	Candidate   Item
	Distance    float64
	Score       float64
}

func itemToDomain(it Item) domain.Item {
	kind := domain.Kind(it.Kind)
	status := domain.Status(it.Status)
	if status == "" {
		status = domain.DefaultStatus(kind)
	}
	return domain.Item{
		ID:          it.ID,
		Kind:        kind,
		Description: it.Description,
		Location:    it.Location,
		Contact:     it.Contact,
		Category:    it.Category,
		Image:       it.Image,
		Status:      status,
		OwnerID:     it.OwnerID,
		CreatedAt:   it.CreatedAt,
	}
}

func itemFromDomain(it domain.Item) Item {
	return Item{
		ID:          it.ID,
		Kind:        Kind(it.Kind),
		Description: it.Description,
		Location:    it.Location,
		Contact:     it.Contact,
		Category:    it.Category,
		Image:       it.Image,
		Status:      Status(it.Status),
		OwnerID:     it.OwnerID,
		CreatedAt:   it.CreatedAt,
	}
}

func matchesFromDomain(ms []domain.Match) []Match {
	out := make([]Match, len(ms))
	for i, m := range ms {
		out[i] = Match{
			QueryID:     m.QueryID,
			CandidateID: m.CandidateID,
			Candidate:   itemFromDomain(m.Candidate),
			Distance:    m.Distance,
			Score:       m.Score,
		}
	}
	return out
}
