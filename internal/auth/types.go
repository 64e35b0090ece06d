package auth

import "time"

// Built-in role names. Every account gets at least RoleUser at creation.
const (
	RoleUser      = "user"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// User represents an account. Username and email are each globally unique.
type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Roles        []string

	Enabled            bool
	Locked             bool
	AccountExpired     bool
	CredentialsExpired bool

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Credentials is transient login input. It is never persisted.
type Credentials struct {
	UsernameOrEmail string
	Password        string
}

// RegisterInput carries the registration request fields. Username is
// optional; a missing username is derived from the email local part.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Outcome is the result of a successful login, registration or refresh.
type Outcome struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	UserID       string
	Username     string
	Email        string
	Roles        []string
}
