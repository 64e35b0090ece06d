package auth

import "errors"

var (
	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: already exists")
	ErrInvalidInput = errors.New("auth: invalid input")

	// Credential errors. All of them surface as 401; the distinction only
	// matters for audit logging.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountDisabled    = errors.New("auth: account disabled")
	ErrAccountLocked      = errors.New("auth: account locked")
	ErrAccountExpired     = errors.New("auth: account expired")
	ErrCredentialsExpired = errors.New("auth: credentials expired")

	ErrEmailAlreadyRegistered = errors.New("auth: email already registered")

	// ErrInvalidToken collapses every token rejection visible outside the
	// codec boundary.
	ErrInvalidToken = errors.New("auth: invalid or expired token")

	// Token parse failures reported by the codec.
	ErrTokenMalformed        = errors.New("auth: token malformed")
	ErrTokenSignatureInvalid = errors.New("auth: token signature invalid")
	ErrTokenExpired          = errors.New("auth: token expired")
	ErrTokenUnsupported      = errors.New("auth: token unsupported")
)
