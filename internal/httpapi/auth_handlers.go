package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"evenue.org/internal/audit"
	"evenue.org/internal/auth"
)

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	// Username is an accepted alias for usernameOrEmail.
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r loginRequest) identifier() string {
	if v := strings.TrimSpace(r.UsernameOrEmail); v != "" {
		return v
	}
	return strings.TrimSpace(r.Username)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	TokenType    string   `json:"tokenType"`
	ExpiresIn    int64    `json:"expiresIn"`
	UserID       string   `json:"userId"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
}

func toTokenResponse(out auth.Outcome) tokenResponse {
	roles := out.Roles
	if roles == nil {
		roles = []string{}
	}
	return tokenResponse{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    out.ExpiresIn,
		UserID:       out.UserID,
		Username:     out.Username,
		Email:        out.Email,
		Roles:        roles,
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	out, err := a.auth.Register(r.Context(), auth.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailAlreadyRegistered):
			writeError(w, r, http.StatusConflict, "email is already registered")
		case errors.Is(err, auth.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, auth.ErrConflict):
			writeError(w, r, http.StatusConflict, "could not allocate a username, retry with an explicit one")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.user.registered", map[string]any{
		"user_id":  out.UserID,
		"username": out.Username,
		"email":    out.Email,
	})

	writeJSON(w, http.StatusCreated, toTokenResponse(out))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	out, err := a.auth.Login(r.Context(), auth.Credentials{
		UsernameOrEmail: req.identifier(),
		Password:        req.Password,
	})
	if err != nil {
		// The precise cause goes to the audit trail only. The response is
		// one generic 401 regardless of whether the account exists, is
		// disabled, locked or expired.
		_ = audit.LogEvent(r.Context(), "auth.login.rejected", map[string]any{
			"login":  req.identifier(),
			"reason": loginFailureKind(err),
		})
		if isCredentialError(err) {
			writeError(w, r, http.StatusUnauthorized, "invalid username or password")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login.success", map[string]any{
		"user_id":  out.UserID,
		"username": out.Username,
	})

	writeJSON(w, http.StatusOK, toTokenResponse(out))
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		writeError(w, r, http.StatusBadRequest, "refreshToken is required")
		return
	}

	out, err := a.auth.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, r, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toTokenResponse(out))
}

func isCredentialError(err error) bool {
	return errors.Is(err, auth.ErrInvalidCredentials) ||
		errors.Is(err, auth.ErrAccountDisabled) ||
		errors.Is(err, auth.ErrAccountLocked) ||
		errors.Is(err, auth.ErrAccountExpired) ||
		errors.Is(err, auth.ErrCredentialsExpired)
}

func loginFailureKind(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "bad_credentials"
	case errors.Is(err, auth.ErrAccountDisabled):
		return "disabled"
	case errors.Is(err, auth.ErrAccountLocked):
		return "locked"
	case errors.Is(err, auth.ErrAccountExpired):
		return "account_expired"
	case errors.Is(err, auth.ErrCredentialsExpired):
		return "credentials_expired"
	default:
		return "error"
	}
}
