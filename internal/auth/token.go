package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultIssuer is the iss claim stamped on every token unless overridden.
const DefaultIssuer = "evenue"

// TokenTypeRefresh marks refresh tokens via the custom "type" claim.
const TokenTypeRefresh = "refresh"

// refreshTTLFactor: a refresh token lives a fixed multiple of the access
// token window.
const refreshTTLFactor = 7

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// TokenClaims is the verified claim set the codec hands back to callers.
type TokenClaims struct {
	Subject   string
	Issuer    string
	TokenType string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the wire representation: standard claims plus a
// comma-joined roles string and an optional token type.
type tokenClaims struct {
	Roles     string `json:"roles,omitempty"`
	TokenType string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Codec is the sole authority on token signature and expiry semantics. It
// signs with HMAC-SHA256 over a shared secret and is stateless, so it is
// safe for concurrent use from request handlers.
type Codec struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	now       func() time.Time
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec)

// WithCodecClock overrides the time source (useful for expiry tests).
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec for the given signing secret and access-token
// lifetime.
func NewCodec(secret []byte, issuer string, accessTTL time.Duration, opts ...CodecOption) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: signing secret is required")
	}
	if accessTTL <= 0 {
		return nil, errors.New("auth: access token ttl must be greater than zero")
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		issuer = DefaultIssuer
	}
	c := &Codec{
		secret:    secret,
		issuer:    issuer,
		accessTTL: accessTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AccessTTL returns the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration {
	return c.accessTTL
}

// Issue signs a token with subject = username, issued-at = now and
// expiry = now + ttl. Pure computation, no side effects.
func (c *Codec) Issue(subject string, roles []string, ttl time.Duration) (string, error) {
	return c.issue(subject, roles, ttl, "")
}

// IssueAccess issues an access token using the configured lifetime.
func (c *Codec) IssueAccess(subject string, roles []string) (string, error) {
	return c.Issue(subject, roles, c.accessTTL)
}

// IssueRefresh issues a refresh token with ttl = refreshTTLFactor times the
// access lifetime and the claim type=refresh.
func (c *Codec) IssueRefresh(subject string) (string, error) {
	return c.issue(subject, nil, c.accessTTL*refreshTTLFactor, TokenTypeRefresh)
}

func (c *Codec) issue(subject string, roles []string, ttl time.Duration, tokenType string) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", errors.New("subject is required")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be greater than zero")
	}

	now := c.now().UTC()
	claims := tokenClaims{
		Roles:     joinRoles(roles),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseClaims decodes and verifies a token, classifying failures as
// ErrTokenMalformed, ErrTokenSignatureInvalid, ErrTokenExpired or
// ErrTokenUnsupported.
func (c *Codec) ParseClaims(token string) (TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenClaims{}, ErrTokenMalformed
	}

	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errUnexpectedSigningMethod
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }))
	if err != nil {
		return TokenClaims{}, classifyTokenError(err)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return TokenClaims{}, ErrTokenMalformed
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return TokenClaims{}, ErrTokenMalformed
	}
	out := TokenClaims{
		Subject:   claims.Subject,
		Issuer:    claims.Issuer,
		TokenType: claims.TokenType,
		Roles:     splitRoles(claims.Roles),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// ParseSubject decodes and verifies the token signature and returns the
// subject claim.
func (c *Codec) ParseSubject(token string) (string, error) {
	claims, err := c.ParseClaims(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IsValid reports whether the token carries a valid signature, has not
// expired and names the expected subject. It never returns an error; any
// parse failure yields false.
func (c *Codec) IsValid(token, expectedSubject string) bool {
	claims, err := c.ParseClaims(token)
	if err != nil {
		return false
	}
	return claims.Subject == expectedSubject
}

// IsExpired reports whether the token's expiry timestamp is in the past.
// A parse failure caused by expiry yields true; other failures yield false.
func (c *Codec) IsExpired(token string) bool {
	claims, err := c.ParseClaims(token)
	if err != nil {
		return errors.Is(err, ErrTokenExpired)
	}
	return claims.ExpiresAt.Before(c.now().UTC())
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, errUnexpectedSigningMethod):
		return ErrTokenUnsupported
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenUnsupported
	default:
		return ErrTokenMalformed
	}
}

// joinRoles normalizes, deduplicates and comma-joins role names for the
// roles claim.
func joinRoles(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	seen := make(map[string]struct{}, len(roles))
	var normalized []string
	for _, role := range roles {
		role = strings.TrimSpace(strings.ToLower(role))
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		normalized = append(normalized, role)
	}
	sort.Strings(normalized)
	return strings.Join(normalized, ",")
}

func splitRoles(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}
