package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"evenue.org/internal/auth"
	"evenue.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// publicPaths never carry a principal; the filter skips token inspection
// entirely so a stale token on a probe does not trigger store lookups or
// rejection logs.
var publicPaths = []string{
	"/",
	"/healthz",
	"/readyz",
	"/metrics",
	"/openapi.yaml",
	"/v1/info",
	"/v1/auth/register",
	"/v1/auth/login",
	"/v1/auth/refresh",
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// withAuth resolves a bearer token into a principal when one is presented.
// It never rejects a request on its own: a missing or bad token leaves the
// request anonymous and the failure is logged, so public endpoints keep
// working and protected handlers decide for themselves via requireAuth.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := extractBearerToken(r.Header.Get(authHeader))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if _, already := auth.PrincipalFromContext(r.Context()); already {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			obs.LogRequest(map[string]any{
				"level":      "warn",
				"msg":        "token_rejected",
				"request_id": RequestIDFromContext(r.Context()),
				"path":       r.URL.Path,
				"reason":     tokenFailureKind(err),
			})
			next.ServeHTTP(w, r)
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth fetches the principal or writes a 401. The boolean reports
// whether the handler may proceed.
func (a *API) requireAuth(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		w.Header().Set("WWW-Authenticate", `Bearer realm="evenue"`)
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return auth.Principal{}, false
	}
	return principal, true
}

// requireRole is requireAuth plus a role check; a principal without any of
// the roles gets a 403.
func (a *API) requireRole(w http.ResponseWriter, r *http.Request, roles ...string) (auth.Principal, bool) {
	principal, ok := a.requireAuth(w, r)
	if !ok {
		return auth.Principal{}, false
	}
	if !principal.HasAnyRole(roles...) {
		writeError(w, r, http.StatusForbidden, "insufficient role")
		return auth.Principal{}, false
	}
	return principal, true
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}

func tokenFailureKind(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, auth.ErrTokenSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, auth.ErrTokenUnsupported):
		return "unsupported"
	default:
		return "other"
	}
}
