package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"evenue.org/internal/audit"
	"evenue.org/internal/auth"
	"evenue.org/internal/catalog"
)

type venueRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Capacity int    `json:"capacity"`
}

type eventRequest struct {
	VenueID     string    `json:"venueId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	PriceCents  int64     `json:"priceCents"`
	Status      string    `json:"status"`
}

type venueListResponse struct {
	Items []catalog.Venue `json:"items"`
}

type eventListResponse struct {
	Items []catalog.Event `json:"items"`
}

// Venues ---------------------------------------------------------------------

func (a *API) handleVenuesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listVenues(w, r)
	case http.MethodPost:
		a.createVenue(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleVenueResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/venues/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getVenue(w, r, id)
	case http.MethodPut:
		a.updateVenue(w, r, id)
	case http.MethodDelete:
		a.deleteVenue(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listVenues(w http.ResponseWriter, r *http.Request) {
	filter, err := venueFilterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	venues, err := a.catalog.ListVenues(r.Context(), filter)
	if err != nil {
		handleCatalogError(w, r, err)
		return
	}
	if venues == nil {
		venues = []catalog.Venue{}
	}
	writeJSON(w, http.StatusOK, venueListResponse{Items: venues})
}

func (a *API) createVenue(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireRole(w, r, auth.RoleOrganizer, auth.RoleAdmin); !ok {
		return
	}
	var req venueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	venue, err := a.catalog.CreateVenue(r.Context(), catalog.VenueInput{
		Name:     req.Name,
		Address:  req.Address,
		City:     req.City,
		Capacity: req.Capacity,
	})
	if err != nil {
		handleCatalogError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "catalog.venue.created", map[string]any{
		"venue_id": venue.ID,
		"name":     venue.Name,
	})

	w.Header().Set("Location", "/v1/venues/"+venue.ID)
	writeJSON(w, http.StatusCreated, venue)
}

func (a *API) getVenue(w http.ResponseWriter, r *http.Request, id string) {
	venue, err := a.catalog.GetVenue(r.Context(), id)
	if err != nil {
		handleCatalogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, venue)
}

func (a *API) updateVenue(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.requireRole(w, r, auth.RoleOrganizer, auth.RoleAdmin); !ok {
		return
	}
	var req venueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	venue, err := a.catalog.UpdateVenue(r.Context(), id, catalog.VenueInput{
		Name:     req.Name,
		Address:  req.Address,
		City:     req.City,
		Capacity: req.Capacity,
	})
	if err != nil {
		handleCatalogError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "catalog.venue.updated", map[string]any{
		"venue_id": venue.ID,
	})

	writeJSON(w, http.StatusOK, venue)
}

func (a *API) deleteVenue(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.requireRole(w, r, auth.RoleOrganizer, auth.RoleAdmin); !ok {
		return
	}
	if err := a.catalog.DeleteVenue(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrConflict) {
			writeError(w, r, http.StatusConflict, "venue still has events")
			return
		}
		handleCatalogError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "catalog.venue.deleted", map[string]any{
		"venue_id": id,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Events ---------------------------------------------------------------------

func (a *API) handleEventsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listEvents(w, r)
	case http.MethodPost:
		a.createEvent(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleEventResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/events/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getEvent(w, r, id)
	case http.MethodPut:
		a.updateEvent(w, r, id)
	case http.MethodDelete:
		a.deleteEvent(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := eventFilterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	events, err := a.catalog.ListEvents(r.Context(), filter)
	if err != nil {
		handleCatalogError(w, r, err)
		return
	}
	if events == nil {
		events = []catalog.Event{}
	}
	writeJSON(w, http.StatusOK, eventListResponse{Items: events})
}

func (a *API) createEvent(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireRole(w, r, auth.RoleOrganizer, auth.RoleAdmin); !ok {
		return
	}
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	event, err := a.catalog.CreateEvent(r.Context(), eventInputFromRequest(req))
	if err != nil {
		handleCatalogError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "catalog.event.created", map[string]any{
		"event_id": event.ID,
		"venue_id": event.VenueID,
		"name":     event.Name,
	})

	w.Header().Set("Location", "/v1/events/"+event.ID)
	writeJSON(w, http.StatusCreated, event)
}

func (a *API) getEvent(w http.ResponseWriter, r *http.Request, id string) {
	event, err := a.catalog.GetEvent(r.Context(), id)
	if err != nil {
		handleCatalogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (a *API) updateEvent(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.requireRole(w, r, auth.RoleOrganizer, auth.RoleAdmin); !ok {
		return
	}
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	event, err := a.catalog.UpdateEvent(r.Context(), id, eventInputFromRequest(req))
	if err != nil {
		handleCatalogError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "catalog.event.updated", map[string]any{
		"event_id": event.ID,
	})

	writeJSON(w, http.StatusOK, event)
}

func (a *API) deleteEvent(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.requireRole(w, r, auth.RoleOrganizer, auth.RoleAdmin); !ok {
		return
	}
	if err := a.catalog.DeleteEvent(r.Context(), id); err != nil {
		handleCatalogError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "catalog.event.deleted", map[string]any{
		"event_id": id,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Query parsing --------------------------------------------------------------

func venueFilterFromQuery(q url.Values) (catalog.VenueFilter, error) {
	minCapacity, err := parseIntParam(q.Get("minCapacity"), "minCapacity", 1, 1<<30)
	if err != nil {
		return catalog.VenueFilter{}, err
	}
	limit, err := parseIntParam(q.Get("limit"), "limit", 1, 200)
	if err != nil {
		return catalog.VenueFilter{}, err
	}
	offset, err := parseIntParam(q.Get("offset"), "offset", 0, 1<<30)
	if err != nil {
		return catalog.VenueFilter{}, err
	}
	return catalog.VenueFilter{
		City:        q.Get("city"),
		Name:        q.Get("name"),
		MinCapacity: minCapacity,
		Limit:       limit,
		Offset:      offset,
	}, nil
}

func eventFilterFromQuery(q url.Values) (catalog.EventFilter, error) {
	from, err := parseTimeParam(q.Get("from"), "from")
	if err != nil {
		return catalog.EventFilter{}, err
	}
	to, err := parseTimeParam(q.Get("to"), "to")
	if err != nil {
		return catalog.EventFilter{}, err
	}
	maxPrice, err := parseInt64Param(q.Get("maxPrice"), "maxPrice")
	if err != nil {
		return catalog.EventFilter{}, err
	}
	limit, err := parseIntParam(q.Get("limit"), "limit", 1, 200)
	if err != nil {
		return catalog.EventFilter{}, err
	}
	offset, err := parseIntParam(q.Get("offset"), "offset", 0, 1<<30)
	if err != nil {
		return catalog.EventFilter{}, err
	}
	return catalog.EventFilter{
		VenueID:       q.Get("venueId"),
		Category:      q.Get("category"),
		Status:        q.Get("status"),
		Name:          q.Get("name"),
		From:          from,
		To:            to,
		MaxPriceCents: maxPrice,
		Limit:         limit,
		Offset:        offset,
	}, nil
}

func parseTimeParam(raw, name string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New(name + " must be an RFC3339 timestamp")
	}
	return t, nil
}

func eventInputFromRequest(req eventRequest) catalog.EventInput {
	return catalog.EventInput{
		VenueID:     req.VenueID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		PriceCents:  req.PriceCents,
		Status:      req.Status,
	}
}

func handleCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	case errors.Is(err, catalog.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
