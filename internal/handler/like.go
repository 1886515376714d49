package handler

import (
	"net/http"

	"github.com/meetwo/meetwo-server/internal/service"
)

// LikeHandler exposes likes, derived matches and the like statistics.
type LikeHandler struct {
	svc *service.LikeService
}

// NewLikeHandler builds a LikeHandler.
func NewLikeHandler(svc *service.LikeService) *LikeHandler {
	return &LikeHandler{svc: svc}
}

type createLikeRequest struct {
	LikerID     uint64 `json:"likerId"`
	LikedUserID uint64 `json:"likedUserId"`
}

// Create handles POST /api/likes.
func (h *LikeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in createLikeRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	like, err := h.svc.Create(r.Context(), in.LikerID, in.LikedUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, like)
}

// Get handles GET /api/likes/{id}.
func (h *LikeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	like, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, like)
}

// Remove handles DELETE /api/likes?likerId=&likedUserId=.
func (h *LikeHandler) Remove(w http.ResponseWriter, r *http.Request) {
	likerID, err := idQuery(r, "likerId")
	if err != nil {
		writeError(w, err)
		return
	}
	likedUserID, err := idQuery(r, "likedUserId")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Remove(r.Context(), likerID, likedUserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveByID handles DELETE /api/likes/{id}.
func (h *LikeHandler) RemoveByID(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.RemoveByID(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GivenBy handles GET /api/likes/given/user/{userId}.
func (h *LikeHandler) GivenBy(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	likes, err := h.svc.GivenBy(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, likes)
}

// ReceivedBy handles GET /api/likes/received/user/{userId}?pageToken=&limit=.
func (h *LikeHandler) ReceivedBy(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	var pageToken *string
	if raw := r.URL.Query().Get("pageToken"); raw != "" {
		pageToken = &raw
	}

	page, err := h.svc.ReceivedBy(r.Context(), userID, pageToken, intQuery(r, "limit", 20))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Matches handles GET /api/likes/matches/user/{userId}.
func (h *LikeHandler) Matches(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	matches, err := h.svc.MatchesFor(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// CheckMatch handles GET /api/likes/check-match?user1=&user2=.
func (h *LikeHandler) CheckMatch(w http.ResponseWriter, r *http.Request) {
	user1, err := idQuery(r, "user1")
	if err != nil {
		writeError(w, err)
		return
	}
	user2, err := idQuery(r, "user2")
	if err != nil {
		writeError(w, err)
		return
	}

	matched, err := h.svc.IsMatch(r.Context(), user1, user2)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isMatch": matched})
}

// CheckLike handles GET /api/likes/check-like?likerId=&likedUserId=.
func (h *LikeHandler) CheckLike(w http.ResponseWriter, r *http.Request) {
	likerID, err := idQuery(r, "likerId")
	if err != nil {
		writeError(w, err)
		return
	}
	likedUserID, err := idQuery(r, "likedUserId")
	if err != nil {
		writeError(w, err)
		return
	}

	liked, err := h.svc.HasLiked(r.Context(), likerID, likedUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hasLiked": liked})
}

// Stats handles GET /api/likes/stats/user/{userId}.
func (h *LikeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	stats, err := h.svc.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// TopUsers handles GET /api/likes/top-users?limit=.
func (h *LikeHandler) TopUsers(w http.ResponseWriter, r *http.Request) {
	top, err := h.svc.TopLiked(r.Context(), intQuery(r, "limit", 10))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

// Recent handles GET /api/likes/recent/user/{userId}?hours=.
func (h *LikeHandler) Recent(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	likes, err := h.svc.RecentReceived(r.Context(), userID, intQuery(r, "hours", 24))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, likes)
}

// LikedUsers handles GET /api/likes/liked-users/{userId}.
func (h *LikeHandler) LikedUsers(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	ids, err := h.svc.LikedUserIDs(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]uint64{"likedUserIds": ids})
}

// RemoveAll handles DELETE /api/likes/user/{userId}/all.
func (h *LikeHandler) RemoveAll(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.RemoveAllForUser(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
