package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
// WithTx runs fn inside a single transaction; every store call made through
// the context passed to fn joins that transaction. fn returning an error
// rolls the transaction back, nil commits it.
type Store interface {
	Users(ctx context.Context) UserStore
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserStore manages accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	FindByUsername(ctx context.Context, username string) (*User, error)
	// FindByLogin resolves a username-or-email login identifier.
	FindByLogin(ctx context.Context, login string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}
