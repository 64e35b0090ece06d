package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "email", "first_name", "last_name", "password_hash", "roles",
		"enabled", "locked", "account_expired", "credentials_expired", "last_login_at",
		"created_at", "updated_at",
	})
}

func TestPGStoreFindByLogin(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery("from users where username=\\$1 or email=\\$1").
		WithArgs("alice").
		WillReturnRows(userRows().AddRow(
			"01HZX", "alice", "alice@example.com", "Alice", nil, "hash", "user,organizer",
			true, false, false, false, nil, created, created,
		))

	store := NewPGStore(db)
	u, err := store.Users(context.Background()).FindByLogin(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByLogin: %v", err)
	}
	if u.Username != "alice" || u.FirstName != "Alice" || u.LastName != "" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if len(u.Roles) != 2 || u.Roles[1] != "organizer" {
		t.Fatalf("roles not split: %v", u.Roles)
	}
	if u.LastLoginAt != nil {
		t.Fatalf("expected nil last login, got %v", u.LastLoginAt)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreFindNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("from users where username=\\$1 or email=\\$1").
		WithArgs("missing").
		WillReturnRows(userRows())

	store := NewPGStore(db)
	if _, err := store.Users(context.Background()).FindByLogin(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreUpdateLastLoginMissingUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update users set last_login_at").
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPGStore(db)
	err = store.Users(context.Background()).UpdateLastLogin(context.Background(), "missing", time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreWithTxCommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("insert into users").
		WithArgs(sqlmock.AnyArg(), "bob", "bob@example.com", "", "", "hash", "user",
			true, false, false, false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	store := NewPGStore(db)
	err = store.WithTx(context.Background(), func(ctx context.Context) error {
		return store.Users(ctx).Create(ctx, &User{
			Username:     "bob",
			Email:        "bob@example.com",
			PasswordHash: "hash",
			Roles:        []string{"user"},
			Enabled:      true,
		})
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreWithTxRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	store := NewPGStore(db)
	err = store.WithTx(context.Background(), func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
