package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meetwo/meetwo-server/internal/apperror"
	"github.com/meetwo/meetwo-server/internal/service"
)

// UserHandler exposes profile CRUD and the search endpoints.
type UserHandler struct {
	svc *service.UserService
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Create handles POST /api/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateUserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// List handles GET /api/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context(), intQuery(r, "offset", 0), intQuery(r, "limit", 20))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Get handles GET /api/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetByUsername handles GET /api/users/username/{username}.
func (h *UserHandler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		writeError(w, apperror.Validation("username", "username is required"))
		return
	}

	user, err := h.svc.GetByUsername(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Update handles PUT /api/users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var in service.UpdateUserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete handles DELETE /api/users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ByCity handles GET /api/users/search/city/{city}.
func (h *UserHandler) ByCity(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ByCity(r.Context(), chi.URLParam(r, "city"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ByGender handles GET /api/users/search/gender/{gender}.
func (h *UserHandler) ByGender(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ByGender(r.Context(), chi.URLParam(r, "gender"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ByAgeRange handles GET /api/users/search/age-range?min=&max=.
func (h *UserHandler) ByAgeRange(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ByAgeRange(r.Context(), intQuery(r, "min", 18), intQuery(r, "max", 99))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Newest handles GET /api/users/newest?limit=.
func (h *UserHandler) Newest(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Newest(r.Context(), intQuery(r, "limit", 10))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// CheckUsername handles GET /api/users/check/username/{username}.
func (h *UserHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	taken, err := h.svc.ExistsByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": taken})
}

// CheckEmail handles GET /api/users/check/email/{email}.
func (h *UserHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	taken, err := h.svc.ExistsByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": taken})
}
