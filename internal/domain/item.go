package domain

import (
	"bytes"
	"time"
)

// Kind is the collection an item belongs to.
type Kind string

// Item collections.
const (
	KindLost  Kind = "lost"
	KindFound Kind = "found"
)

// Status is the lifecycle state of an item report.
type Status string

// Item statuses.
const (
	StatusLost     Status = "lost"
	StatusFound    Status = "found"
	StatusResolved Status = "resolved"
)

// DefaultStatus returns the status a freshly reported item of kind k starts with.
func DefaultStatus(k Kind) Status {
	if k == KindFound {
		return StatusFound
	}
	return StatusLost
}

// ParseStatus maps a stored status string to a Status, defaulting by kind.
func ParseStatus(s string, k Kind) Status {
	switch Status(s) {
	case StatusLost, StatusFound, StatusResolved:
		return Status(s)
	default:
		return DefaultStatus(k)
	}
}

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
	UpdatedAt time.Time
}

// HasImage reports whether the item carries a non-blank image payload.
func (it *Item) HasImage() bool {
	return len(bytes.TrimSpace(it.Image)) > 0
}

// Resolved reports whether the item has been closed out.
func (it *Item) Resolved() bool {
	return it.Status == StatusResolved
}

// CategoryKnown reports whether the item has a usable category label.
func (it *Item) CategoryKnown() bool {
	return it.Category != "" && it.Category != CategoryUnknown
}
