package handler

import (
	"net/http"

	"github.com/meetwo/meetwo-server/internal/service"
)

// MessageHandler exposes match-gated messaging.
type MessageHandler struct {
	svc *service.MessageService
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(svc *service.MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// Send handles POST /api/messages.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var in service.SendMessageInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.svc.Send(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

type updateMessageRequest struct {
	UserID  uint64 `json:"userId"`
	Content string `json:"content"`
}

// Update handles PUT /api/messages/{id}.
func (h *MessageHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var in updateMessageRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.svc.Update(r.Context(), id, in.UserID, in.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// Get handles GET /api/messages/{id}.
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// Conversation handles GET /api/messages/conversation?userId=&otherUserId=.
func (h *MessageHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	userID, err := idQuery(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}
	otherID, err := idQuery(r, "otherUserId")
	if err != nil {
		writeError(w, err)
		return
	}

	msgs, err := h.svc.Conversation(r.Context(), userID, otherID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// RecentConversation handles GET /api/messages/conversation/recent?userId=&otherUserId=&limit=.
func (h *MessageHandler) RecentConversation(w http.ResponseWriter, r *http.Request) {
	userID, err := idQuery(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}
	otherID, err := idQuery(r, "otherUserId")
	if err != nil {
		writeError(w, err)
		return
	}

	msgs, err := h.svc.RecentBetween(r.Context(), userID, otherID, intQuery(r, "limit", 20))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// Conversations handles GET /api/messages/conversations/user/{userId}.
func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	summaries, err := h.svc.Conversations(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// MarkRead handles PUT /api/messages/{id}/read?userId=.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	userID, err := idQuery(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.svc.MarkRead(r.Context(), id, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// MarkConversationRead handles PUT /api/messages/conversation/read?receiverId=&senderId=.
func (h *MessageHandler) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	receiverID, err := idQuery(r, "receiverId")
	if err != nil {
		writeError(w, err)
		return
	}
	senderID, err := idQuery(r, "senderId")
	if err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.svc.MarkConversationRead(r.Context(), receiverID, senderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

// Delete handles DELETE /api/messages/{id}?userId=.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	userID, err := idQuery(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id, userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteConversation handles DELETE /api/messages/conversation?userId=&otherUserId=.
func (h *MessageHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID, err := idQuery(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}
	otherID, err := idQuery(r, "otherUserId")
	if err != nil {
		writeError(w, err)
		return
	}

	flagged, err := h.svc.DeleteConversation(r.Context(), userID, otherID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": flagged})
}

// UnreadCount handles GET /api/messages/unread/count/{userId}.
func (h *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	count, err := h.svc.UnreadCount(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unreadCount": count})
}

// UnreadInConversation handles GET /api/messages/unread/count/conversation?receiverId=&senderId=.
func (h *MessageHandler) UnreadInConversation(w http.ResponseWriter, r *http.Request) {
	receiverID, err := idQuery(r, "receiverId")
	if err != nil {
		writeError(w, err)
		return
	}
	senderID, err := idQuery(r, "senderId")
	if err != nil {
		writeError(w, err)
		return
	}

	count, err := h.svc.UnreadInConversation(r.Context(), receiverID, senderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unreadCount": count})
}

// Stats handles GET /api/messages/stats/user/{userId}.
func (h *MessageHandler) Stats(w http.ResponseWriter, r *http.Request) {
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

// CanSend handles GET /api/messages/can-send?senderId=&receiverId=.
func (h *MessageHandler) CanSend(w http.ResponseWriter, r *http.Request) {
	senderID, err := idQuery(r, "senderId")
	if err != nil {
		writeError(w, err)
		return
	}
	receiverID, err := idQuery(r, "receiverId")
	if err != nil {
		writeError(w, err)
		return
	}

	ok, err := h.svc.CanSend(r.Context(), senderID, receiverID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"canSend": ok})
}

// Search handles GET /api/messages/search/user/{userId}?q=&limit=.
func (h *MessageHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	msgs, err := h.svc.Search(r.Context(), userID, r.URL.Query().Get("q"), intQuery(r, "limit", 50))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// Recent handles GET /api/messages/recent/user/{userId}?hours=.
func (h *MessageHandler) Recent(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	msgs, err := h.svc.RecentFor(r.Context(), userID, intQuery(r, "hours", 24))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// DeleteAll handles DELETE /api/messages/user/{userId}/all.
func (h *MessageHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.DeleteAllForUser(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
