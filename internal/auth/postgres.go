package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

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

func (s *PGStore) Users(ctx context.Context) UserStore {
	return &userStore{q: querierFrom(ctx, s.db)}
}

type txContextKey struct{}

// WithTx starts a transaction and makes every store call made through the
// derived context join it. fn returning nil commits; an error rolls back.
// Nested calls reuse the outer transaction.
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

// querier is the subset of *sql.DB and *sql.Tx the stores need.
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

// User store ---------------------------------------------------------------

type userStore struct{ q querier }

const userColumns = `id, username, email, first_name, last_name, password_hash, roles,
	enabled, locked, account_expired, credentials_expired, last_login_at, created_at, updated_at`

func (s *userStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	_, err := s.q.ExecContext(ctx,
		`insert into users(id, username, email, first_name, last_name, password_hash, roles,
			enabled, locked, account_expired, credentials_expired)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash,
		strings.Join(u.Roles, ","), u.Enabled, u.Locked, u.AccountExpired, u.CredentialsExpired,
	)
	return mapUserConstraint(err)
}

func (s *userStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return s.scanOne(s.q.QueryRowContext(ctx,
		`select `+userColumns+` from users where username=$1`, username))
}

func (s *userStore) FindByLogin(ctx context.Context, login string) (*User, error) {
	return s.scanOne(s.q.QueryRowContext(ctx,
		`select `+userColumns+` from users where username=$1 or email=$1`, login))
}

func (s *userStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`select exists(select 1 from users where email=$1)`, email).Scan(&exists)
	return exists, err
}

func (s *userStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`select exists(select 1 from users where username=$1)`, username).Scan(&exists)
	return exists, err
}

func (s *userStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.q.ExecContext(ctx,
		`update users set last_login_at=$2, updated_at=now() where id=$1`, id, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *userStore) scanOne(row *sql.Row) (*User, error) {
	var (
		u         User
		firstName sql.NullString
		lastName  sql.NullString
		roles     string
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &firstName, &lastName, &u.PasswordHash, &roles,
		&u.Enabled, &u.Locked, &u.AccountExpired, &u.CredentialsExpired, &lastLogin,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.FirstName = firstName.String
	u.LastName = lastName.String
	if roles != "" {
		u.Roles = strings.Split(roles, ",")
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

// mapUserConstraint translates Postgres unique violations into the package
// error taxonomy.
func mapUserConstraint(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "email") {
			return ErrEmailAlreadyRegistered
		}
		return ErrConflict
	}
	return err
}
