// Package handler holds the thin HTTP layer: decode the request, call a
// service, encode the result. Domain errors become status codes here and
// nowhere else.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meetwo/meetwo-server/internal/apperror"
	"github.com/meetwo/meetwo-server/internal/logger"
)

// ErrorResponse is the standard error body returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("failed to encode JSON response", "error", err)
		}
	}
}

// writeError maps a domain error kind to an HTTP status code.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	resp := ErrorResponse{Error: "internal_error", Message: "something went wrong"}
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Field = appErr.Field
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, resp.Error = http.StatusBadRequest, "validation_failed"
	case errors.Is(err, apperror.ErrSelfReference):
		status, resp.Error = http.StatusBadRequest, "self_reference"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, resp.Error = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrNotAllowed):
		status, resp.Error = http.StatusForbidden, "not_allowed"
	case errors.Is(err, apperror.ErrNotFound):
		status, resp.Error = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrAlreadyExists):
		status, resp.Error = http.StatusConflict, "already_exists"
	case errors.Is(err, apperror.ErrMaxCapacity):
		status, resp.Error = http.StatusConflict, "max_capacity"
	case errors.Is(err, apperror.ErrTooLarge):
		status, resp.Error = http.StatusRequestEntityTooLarge, "too_large"
	default:
		logger.Error("unhandled error in request", "error", err)
	}

	writeJSON(w, status, resp)
}

// decodeJSON parses the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.Validation("", "invalid JSON body")
	}
	return nil
}

func parseID(raw, name string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation(name, "must be a positive integer")
	}
	return id, nil
}

// idParam reads a uint64 URL parameter.
func idParam(r *http.Request, name string) (uint64, error) {
	return parseID(chi.URLParam(r, name), name)
}

// idQuery reads a uint64 query parameter.
func idQuery(r *http.Request, name string) (uint64, error) {
	return parseID(r.URL.Query().Get(name), name)
}

// intQuery reads an optional int query parameter, falling back to def.
func intQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
