package item

import (
	"time"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

// Hash field names. They follow the item report documents of the reporting app.
const (
	fieldDescription = "description"
	fieldLocation    = "location"
	fieldContact     = "contactNumber"
	fieldCategory    = "category"
	fieldImage       = "image"
	fieldStatus      = "status"
	fieldOwner       = "userId"
	fieldCreatedAt   = "createdAt"
	fieldUpdatedAt   = "updatedAt"
)

// buildHashFields flattens an item into HSET fields. Zero timestamps are omitted.
func buildHashFields(it *domain.Item) map[string]string {
	m := map[string]string{
		fieldDescription: it.Description,
		fieldLocation:    it.Location,
		fieldContact:     it.Contact,
		fieldCategory:    it.Category,
		fieldImage:       string(it.Image),
		fieldStatus:      string(it.Status),
		fieldOwner:       it.OwnerID,
	}
	if it.Status == "" {
		m[fieldStatus] = string(domain.DefaultStatus(it.Kind))
	}
	if !it.CreatedAt.IsZero() {
		m[fieldCreatedAt] = it.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if !it.UpdatedAt.IsZero() {
		m[fieldUpdatedAt] = it.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return m
}

// parseHashFields rebuilds an item from a hash. Missing fields become zero
// values; an unknown status falls back to the kind's default.
func parseHashFields(kind domain.Kind, id string, m map[string]string) domain.Item {
	it := domain.Item{
		ID:          id,
		Kind:        kind,
		Description: m[fieldDescription],
		Location:    m[fieldLocation],
		Contact:     m[fieldContact],
		Category:    m[fieldCategory],
		Status:      domain.ParseStatus(m[fieldStatus], kind),
		OwnerID:     m[fieldOwner],
		CreatedAt:   parseTime(m[fieldCreatedAt]),
		UpdatedAt:   parseTime(m[fieldUpdatedAt]),
	}
	if img := m[fieldImage]; img != "" {
		it.Image = []byte(img)
	}
	return it
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
