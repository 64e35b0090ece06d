package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Service implements the business rules around login, registration and
// refresh. It is the only component allowed to issue tokens.
type Service struct {
	store Store
	codec *Codec
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs a Service with optional configuration.
func NewService(store Store, codec *Codec, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if codec == nil {
		return nil, errors.New("auth: codec is required")
	}
	svc := &Service{
		store: store,
		codec: codec,
		now:   time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Codec exposes the token codec so the HTTP layer can inspect tokens.
func (s *Service) Codec() *Codec {
	return s.codec
}

// Login authenticates credentials and issues a token pair.
//
// Lookup failure and password mismatch deliberately yield the same
// ErrInvalidCredentials so responses do not reveal whether an identifier
// exists. The account-state gates run in a fixed order because error
// specificity depends on it: enabled, locked, account-expired,
// credentials-expired.
func (s *Service) Login(ctx context.Context, creds Credentials) (Outcome, error) {
	login := strings.TrimSpace(creds.UsernameOrEmail)
	if login == "" || creds.Password == "" {
		return Outcome{}, ErrInvalidCredentials
	}

	users := s.store.Users(ctx)
	user, err := users.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Outcome{}, ErrInvalidCredentials
		}
		return Outcome{}, err
	}
	if err := checkAccountState(user); err != nil {
		return Outcome{}, err
	}
	if err := VerifyPassword(user.PasswordHash, creds.Password); err != nil {
		return Outcome{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return Outcome{}, fmt.Errorf("update last login: %w", err)
	}
	user.LastLoginAt = &now

	return s.issueOutcome(user)
}

// Register creates an account and issues its first token pair.
//
// The username, when not supplied, is derived from the email local part plus
// a time-derived numeric suffix. On collision one fallback draw from a
// different suffix source is attempted; beyond that the database unique
// constraint has the final word.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Outcome, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return Outcome{}, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if len(in.Password) < 8 {
		return Outcome{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	users := s.store.Users(ctx)
	taken, err := users.ExistsByEmail(ctx, email)
	if err != nil {
		return Outcome{}, err
	}
	if taken {
		return Outcome{}, ErrEmailAlreadyRegistered
	}

	username := strings.TrimSpace(strings.ToLower(in.Username))
	if username == "" {
		username, err = s.deriveUsername(ctx, users, email)
		if err != nil {
			return Outcome{}, err
		}
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return Outcome{}, err
	}

	user := &User{
		Username:     username,
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		Roles:        []string{RoleUser},
		Enabled:      true,
	}

	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		return s.store.Users(ctx).Create(ctx, user)
	})
	if err != nil {
		return Outcome{}, err
	}

	return s.issueOutcome(user)
}

// Refresh exchanges a refresh token for a fresh token pair. Any failure on
// the way collapses to ErrInvalidToken so responses do not leak whether the
// subject still exists.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Outcome, error) {
	claims, err := s.codec.ParseClaims(refreshToken)
	if err != nil {
		return Outcome{}, ErrInvalidToken
	}
	if claims.TokenType != TokenTypeRefresh {
		return Outcome{}, ErrInvalidToken
	}

	user, err := s.store.Users(ctx).FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Outcome{}, ErrInvalidToken
		}
		return Outcome{}, err
	}
	if !s.codec.IsValid(refreshToken, user.Username) {
		return Outcome{}, ErrInvalidToken
	}

	return s.issueOutcome(user)
}

// Authenticate validates an access token and resolves its principal. Token
// parse failures keep their specific kind so the request filter can log
// them; every other rejection is ErrInvalidToken.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	subject, err := s.codec.ParseSubject(token)
	if err != nil {
		return Principal{}, err
	}
	user, err := s.store.Users(ctx).FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	if !user.Enabled {
		return Principal{}, ErrInvalidToken
	}
	if !s.codec.IsValid(token, user.Username) {
		return Principal{}, ErrInvalidToken
	}
	return Principal{
		UserID:   user.ID,
		Username: user.Username,
		Roles:    user.Roles,
	}, nil
}

func (s *Service) issueOutcome(user *User) (Outcome, error) {
	access, err := s.codec.IssueAccess(user.Username, user.Roles)
	if err != nil {
		return Outcome{}, err
	}
	refresh, err := s.codec.IssueRefresh(user.Username)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.codec.AccessTTL().Seconds()),
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Roles:        user.Roles,
	}, nil
}

// checkAccountState runs the account gates in their fixed order and
// short-circuits on the first failing condition.
func checkAccountState(u *User) error {
	switch {
	case !u.Enabled:
		return ErrAccountDisabled
	case u.Locked:
		return ErrAccountLocked
	case u.AccountExpired:
		return ErrAccountExpired
	case u.CredentialsExpired:
		return ErrCredentialsExpired
	}
	return nil
}

func (s *Service) deriveUsername(ctx context.Context, users UserStore, email string) (string, error) {
	base := sanitizeUsername(email[:strings.Index(email, "@")])
	if base == "" {
		base = "user"
	}

	now := s.now()
	candidate := base + strconv.FormatInt(now.UnixMilli()%10000, 10)
	taken, err := users.ExistsByUsername(ctx, candidate)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate, nil
	}

	// One fallback draw from a different suffix source.
	candidate = base + strconv.FormatInt(now.UnixNano()%1000000, 10)
	taken, err = users.ExistsByUsername(ctx, candidate)
	if err != nil {
		return "", err
	}
	if taken {
		return "", fmt.Errorf("%w: could not derive a unique username", ErrConflict)
	}
	return candidate, nil
}

func sanitizeUsername(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	return b.String()
}
