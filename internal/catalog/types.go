package catalog

import "time"

// Event lifecycle states.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusCancelled = "cancelled"
)

// Venue represents a physical location events are held at.
type Venue struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Event represents a scheduled happening at a venue.
type Event struct {
	ID          string    `json:"id"`
	VenueID     string    `json:"venueId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	PriceCents  int64     `json:"priceCents"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// VenueInput carries create/update fields for a venue.
type VenueInput struct {
	Name     string
	Address  string
	City     string
	Capacity int
}

// EventInput carries create/update fields for an event.
type EventInput struct {
	VenueID     string
	Name        string
	Description string
	Category    string
	StartsAt    time.Time
	EndsAt      time.Time
	PriceCents  int64
	Status      string
}

func validStatus(s string) bool {
	switch s {
	case StatusDraft, StatusPublished, StatusCancelled:
		return true
	}
	return false
}
