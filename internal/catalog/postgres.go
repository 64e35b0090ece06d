package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"evenue.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Venues(ctx context.Context) VenueStore {
	return &venueStore{q: querierFrom(ctx, s.db)}
}

func (s *PGStore) Events(ctx context.Context) EventStore {
	return &eventStore{q: querierFrom(ctx, s.db)}
}

type txContextKey struct{}

// WithTx runs fn inside one transaction; nested calls join the outer one.
func (s *PGStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txContextKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(context.WithValue(ctx, txContextKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func querierFrom(ctx context.Context, db *sql.DB) querier {
	if tx, ok := ctx.Value(txContextKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// Venue store ---------------------------------------------------------------

type venueStore struct{ q querier }

const venueColumns = `id, name, address, city, capacity, created_at, updated_at`

func (s *venueStore) Create(ctx context.Context, v *Venue) error {
	if v.ID == "" {
		v.ID = ids.New()
	}
	return s.q.QueryRowContext(ctx,
		`insert into venues(id, name, address, city, capacity)
		 values($1,$2,$3,$4,$5)
		 returning created_at, updated_at`,
		v.ID, v.Name, v.Address, v.City, v.Capacity,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
}

func (s *venueStore) Find(ctx context.Context, id string) (*Venue, error) {
	row := s.q.QueryRowContext(ctx,
		`select `+venueColumns+` from venues where id=$1`, id)
	var v Venue
	if err := row.Scan(&v.ID, &v.Name, &v.Address, &v.City, &v.Capacity, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (s *venueStore) List(ctx context.Context, filter VenueFilter) ([]Venue, error) {
	where, args := filter.Clause()
	limit, offset := filter.Page()
	query := fmt.Sprintf(`select %s from venues%s order by name asc limit $%d offset $%d`,
		venueColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var venues []Venue
	for rows.Next() {
		var v Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Address, &v.City, &v.Capacity, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

func (s *venueStore) Update(ctx context.Context, v *Venue) error {
	res, err := s.q.ExecContext(ctx,
		`update venues set name=$2, address=$3, city=$4, capacity=$5, updated_at=now() where id=$1`,
		v.ID, v.Name, v.Address, v.City, v.Capacity)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *venueStore) Delete(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `delete from venues where id=$1`, id)
	if err != nil {
		return mapCatalogConstraint(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Event store ---------------------------------------------------------------

type eventStore struct{ q querier }

const eventColumns = `id, venue_id, name, description, category, starts_at, ends_at,
	price_cents, status, created_at, updated_at`

func (s *eventStore) Create(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	err := s.q.QueryRowContext(ctx,
		`insert into events(id, venue_id, name, description, category, starts_at, ends_at, price_cents, status)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 returning created_at, updated_at`,
		e.ID, e.VenueID, e.Name, e.Description, e.Category, e.StartsAt, e.EndsAt, e.PriceCents, e.Status,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	return mapCatalogConstraint(err)
}

func (s *eventStore) Find(ctx context.Context, id string) (*Event, error) {
	row := s.q.QueryRowContext(ctx,
		`select `+eventColumns+` from events where id=$1`, id)
	e, err := scanEvent(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *eventStore) List(ctx context.Context, filter EventFilter) ([]Event, error) {
	where, args := filter.Clause()
	limit, offset := filter.Page()
	query := fmt.Sprintf(`select %s from events%s order by starts_at asc limit $%d offset $%d`,
		eventColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *eventStore) Update(ctx context.Context, e *Event) error {
	res, err := s.q.ExecContext(ctx,
		`update events set venue_id=$2, name=$3, description=$4, category=$5, starts_at=$6,
			ends_at=$7, price_cents=$8, status=$9, updated_at=now()
		 where id=$1`,
		e.ID, e.VenueID, e.Name, e.Description, e.Category, e.StartsAt, e.EndsAt, e.PriceCents, e.Status)
	if err != nil {
		return mapCatalogConstraint(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *eventStore) Delete(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `delete from events where id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEvent(scan func(dest ...any) error) (*Event, error) {
	var (
		e    Event
		desc sql.NullString
	)
	err := scan(&e.ID, &e.VenueID, &e.Name, &desc, &e.Category, &e.StartsAt, &e.EndsAt,
		&e.PriceCents, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Description = desc.String
	return &e, nil
}

// mapCatalogConstraint translates foreign-key and unique violations into the
// package error taxonomy.
func mapCatalogConstraint(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return ErrConflict
		case "23505":
			return ErrConflict
		}
	}
	return err
}
