package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreListEventsAppliesFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	start := time.Date(2025, 7, 1, 20, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "venue_id", "name", "description", "category", "starts_at", "ends_at",
		"price_cents", "status", "created_at", "updated_at",
	}).AddRow("e-1", "v-1", "Concert", nil, "music", start, start.Add(2*time.Hour),
		int64(2500), StatusPublished, start, start)

	mock.ExpectQuery("from events where venue_id = \\$1 and status = \\$2 order by starts_at asc limit \\$3 offset \\$4").
		WithArgs("v-1", StatusPublished, 25, 0).
		WillReturnRows(rows)

	store := NewPGStore(db)
	events, err := store.Events(context.Background()).List(context.Background(), EventFilter{
		VenueID: "v-1",
		Status:  StatusPublished,
		Limit:   25,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 1 || events[0].ID != "e-1" || events[0].Description != "" {
		t.Fatalf("unexpected events: %+v", events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreVenueFindNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select .* from venues where id=\\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "address", "city", "capacity", "created_at", "updated_at",
		}))

	store := NewPGStore(db)
	if _, err := store.Venues(context.Background()).Find(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreDeleteVenueMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("delete from venues where id=\\$1").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPGStore(db)
	if err := store.Venues(context.Background()).Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
