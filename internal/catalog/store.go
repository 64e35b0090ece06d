package catalog

import "context"

// Store describes persistence operations required by the catalog.
type Store interface {
	Venues(ctx context.Context) VenueStore
	Events(ctx context.Context) EventStore
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// VenueStore manages venues.
type VenueStore interface {
	Create(ctx context.Context, v *Venue) error
	Find(ctx context.Context, id string) (*Venue, error)
	List(ctx context.Context, filter VenueFilter) ([]Venue, error)
	Update(ctx context.Context, v *Venue) error
	Delete(ctx context.Context, id string) error
}

// EventStore manages events.
type EventStore interface {
	Create(ctx context.Context, e *Event) error
	Find(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, filter EventFilter) ([]Event, error)
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id string) error
}
