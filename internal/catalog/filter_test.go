package catalog

import (
	"testing"
	"time"
)

func TestVenueFilterClause(t *testing.T) {
	where, args := VenueFilter{}.Clause()
	if where != "" || args != nil {
		t.Fatalf("empty filter produced %q %v", where, args)
	}

	where, args = VenueFilter{City: "Berlin", Name: "arena", MinCapacity: 500}.Clause()
	want := " where lower(city) = lower($1) and name ilike $2 and capacity >= $3"
	if where != want {
		t.Fatalf("clause = %q, want %q", where, want)
	}
	if len(args) != 3 || args[0] != "Berlin" || args[1] != "%arena%" || args[2] != 500 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestEventFilterClause(t *testing.T) {
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	where, args := EventFilter{
		VenueID:       "v-1",
		Status:        StatusPublished,
		From:          from,
		To:            to,
		MaxPriceCents: 2500,
	}.Clause()
	want := " where venue_id = $1 and status = $2 and starts_at >= $3 and starts_at <= $4 and price_cents <= $5"
	if where != want {
		t.Fatalf("clause = %q, want %q", where, want)
	}
	if len(args) != 5 || args[0] != "v-1" || args[4] != int64(2500) {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestPageBounds(t *testing.T) {
	cases := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, defaultPageSize, 0},
		{-5, -3, defaultPageSize, 0},
		{10, 20, 10, 20},
		{10000, 0, maxPageSize, 0},
	}
	for _, tc := range cases {
		limit, offset := EventFilter{Limit: tc.limit, Offset: tc.offset}.Page()
		if limit != tc.wantLimit || offset != tc.wantOffset {
			t.Fatalf("Page(%d,%d) = %d,%d, want %d,%d",
				tc.limit, tc.offset, limit, offset, tc.wantLimit, tc.wantOffset)
		}
	}
}
