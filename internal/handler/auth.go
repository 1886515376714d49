package handler

import (
	"net/http"

	"github.com/meetwo/meetwo-server/internal/apperror"
	"github.com/meetwo/meetwo-server/internal/auth"
	"github.com/meetwo/meetwo-server/internal/service"
)

// AuthHandler exposes registration, login and token introspection.
type AuthHandler struct {
	svc *service.AuthService
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.CreateUserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.svc.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.svc.Login(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Validate handles POST /api/auth/validate: checks the bearer token without
// requiring the auth middleware, so clients can probe expired sessions.
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerToken(r)
	if token == "" {
		writeError(w, apperror.Unauthorized("missing bearer token"))
		return
	}

	user, err := h.svc.Validate(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Me handles GET /api/auth/me for an authenticated caller.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	user, err := h.svc.CurrentUser(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so this is an
// acknowledgement for clients that want a definite end-of-session call.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
