package postgres

import (
	"time"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

// record is one row of lost_items or found_items.
type record struct {
	ID            string    `db:"id"`
	Description   string    `db:"description"`
	Location      string    `db:"location"`
	ContactNumber string    `db:"contact_number"`
	Category      string    `db:"category"`
	Image         string    `db:"image"`
	Status        string    `db:"status"`
	UserID        string    `db:"user_id"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r record) toItem(kind domain.Kind) domain.Item {
	it := domain.Item{
		ID:          r.ID,
		Kind:        kind,
		Description: r.Description,
		Location:    r.Location,
		Contact:     r.ContactNumber,
		Category:    r.Category,
		Status:      domain.ParseStatus(r.Status, kind),
		OwnerID:     r.UserID,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.Image != "" {
		it.Image = []byte(r.Image)
	}
	return it
}
