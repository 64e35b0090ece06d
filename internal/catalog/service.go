package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service enforces catalog business rules over a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("catalog: store is required")
	}
	svc := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Venues --------------------------------------------------------------------

func (s *Service) CreateVenue(ctx context.Context, in VenueInput) (*Venue, error) {
	if err := validateVenueInput(in); err != nil {
		return nil, err
	}
	venue := &Venue{
		Name:     strings.TrimSpace(in.Name),
		Address:  strings.TrimSpace(in.Address),
		City:     strings.TrimSpace(in.City),
		Capacity: in.Capacity,
	}
	if err := s.store.Venues(ctx).Create(ctx, venue); err != nil {
		return nil, err
	}
	return venue, nil
}

func (s *Service) GetVenue(ctx context.Context, id string) (*Venue, error) {
	return s.store.Venues(ctx).Find(ctx, id)
}

func (s *Service) ListVenues(ctx context.Context, filter VenueFilter) ([]Venue, error) {
	return s.store.Venues(ctx).List(ctx, filter)
}

func (s *Service) UpdateVenue(ctx context.Context, id string, in VenueInput) (*Venue, error) {
	if err := validateVenueInput(in); err != nil {
		return nil, err
	}
	venues := s.store.Venues(ctx)
	venue, err := venues.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	venue.Name = strings.TrimSpace(in.Name)
	venue.Address = strings.TrimSpace(in.Address)
	venue.City = strings.TrimSpace(in.City)
	venue.Capacity = in.Capacity
	if err := venues.Update(ctx, venue); err != nil {
		return nil, err
	}
	return venue, nil
}

func (s *Service) DeleteVenue(ctx context.Context, id string) error {
	return s.store.Venues(ctx).Delete(ctx, id)
}

// Events --------------------------------------------------------------------

func (s *Service) CreateEvent(ctx context.Context, in EventInput) (*Event, error) {
	in.Status = normalizeStatus(in.Status)
	if err := validateEventInput(in); err != nil {
		return nil, err
	}

	event := &Event{
		VenueID:     strings.TrimSpace(in.VenueID),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(strings.ToLower(in.Category)),
		StartsAt:    in.StartsAt.UTC(),
		EndsAt:      in.EndsAt.UTC(),
		PriceCents:  in.PriceCents,
		Status:      in.Status,
	}

	// The venue existence check and the insert share one transaction so a
	// concurrent venue delete cannot slip between them.
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.Venues(ctx).Find(ctx, event.VenueID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: venue %s does not exist", ErrInvalidInput, event.VenueID)
			}
			return err
		}
		return s.store.Events(ctx).Create(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) GetEvent(ctx context.Context, id string) (*Event, error) {
	return s.store.Events(ctx).Find(ctx, id)
}

func (s *Service) ListEvents(ctx context.Context, filter EventFilter) ([]Event, error) {
	return s.store.Events(ctx).List(ctx, filter)
}

func (s *Service) UpdateEvent(ctx context.Context, id string, in EventInput) (*Event, error) {
	in.Status = normalizeStatus(in.Status)
	if err := validateEventInput(in); err != nil {
		return nil, err
	}
	events := s.store.Events(ctx)
	event, err := events.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	event.VenueID = strings.TrimSpace(in.VenueID)
	event.Name = strings.TrimSpace(in.Name)
	event.Description = strings.TrimSpace(in.Description)
	event.Category = strings.TrimSpace(strings.ToLower(in.Category))
	event.StartsAt = in.StartsAt.UTC()
	event.EndsAt = in.EndsAt.UTC()
	event.PriceCents = in.PriceCents
	event.Status = in.Status
	if err := events.Update(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	return s.store.Events(ctx).Delete(ctx, id)
}

// Validation ----------------------------------------------------------------

func validateVenueInput(in VenueInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be greater than zero", ErrInvalidInput)
	}
	return nil
}

func validateEventInput(in EventInput) error {
	if strings.TrimSpace(in.VenueID) == "" {
		return fmt.Errorf("%w: venueId is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.StartsAt.IsZero() || in.EndsAt.IsZero() {
		return fmt.Errorf("%w: startsAt and endsAt are required", ErrInvalidInput)
	}
	if !in.EndsAt.After(in.StartsAt) {
		return fmt.Errorf("%w: endsAt must be after startsAt", ErrInvalidInput)
	}
	if in.PriceCents < 0 {
		return fmt.Errorf("%w: priceCents must be >= 0", ErrInvalidInput)
	}
	if !validStatus(in.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	return nil
}

func normalizeStatus(status string) string {
	status = strings.TrimSpace(strings.ToLower(status))
	if status == "" {
		return StatusDraft
	}
	return status
}
