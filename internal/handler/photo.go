package handler

import (
	"net/http"

	"github.com/meetwo/meetwo-server/internal/apperror"
	"github.com/meetwo/meetwo-server/internal/service"
)

// PhotoHandler exposes gallery management, uploads included.
type PhotoHandler struct {
	svc           *service.PhotoService
	maxUploadSize int64
}

// NewPhotoHandler builds a PhotoHandler. maxUploadSize bounds multipart
// parsing memory.
func NewPhotoHandler(svc *service.PhotoService, maxUploadSize int64) *PhotoHandler {
	return &PhotoHandler{svc: svc, maxUploadSize: maxUploadSize}
}

// Upload handles POST /api/photos (multipart form: file, userId, isMain, altText).
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1024)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeError(w, apperror.TooLarge("upload exceeds the size limit"))
		return
	}

	userID, err := idQuery(r, "userId")
	if err != nil {
		// userId may also be a form field
		if raw := r.FormValue("userId"); raw != "" {
			userID, err = parseID(raw, "userId")
		}
		if err != nil {
			writeError(w, err)
			return
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.Validation("file", "a file part is required"))
		return
	}
	defer file.Close()

	requestedMain := r.FormValue("isMain") == "true"
	photo, err := h.svc.Upload(r.Context(), userID, file, header, requestedMain, r.FormValue("altText"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, photo)
}

// CreateFromURL handles POST /api/photos/url.
func (h *PhotoHandler) CreateFromURL(w http.ResponseWriter, r *http.Request) {
	var in service.CreatePhotoInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	photo, err := h.svc.CreateFromURL(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, photo)
}

// Get handles GET /api/photos/{id}.
func (h *PhotoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	photo, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, photo)
}

// ListByUser handles GET /api/photos/user/{userId}.
func (h *PhotoHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	photos, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, photos)
}

// Main handles GET /api/photos/user/{userId}/main.
func (h *PhotoHandler) Main(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	photo, err := h.svc.Main(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, photo)
}

// Update handles PUT /api/photos/{id}.
func (h *PhotoHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var in service.UpdatePhotoInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	photo, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, photo)
}

// SetMain handles PUT /api/photos/{id}/set-main.
func (h *PhotoHandler) SetMain(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	photo, err := h.svc.SetMain(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, photo)
}

type reorderRequest struct {
	PhotoIDs []uint64 `json:"photoIds"`
}

// Reorder handles PUT /api/photos/user/{userId}/reorder.
func (h *PhotoHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	var in reorderRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	photos, err := h.svc.Reorder(r.Context(), userID, in.PhotoIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, photos)
}

// Delete handles DELETE /api/photos/{id}.
func (h *PhotoHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
