package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/meetwo/meetwo-server/internal/app"
	"github.com/meetwo/meetwo-server/internal/apperror"
	"github.com/meetwo/meetwo-server/internal/db"
	"github.com/meetwo/meetwo-server/internal/logger"
	"github.com/meetwo/meetwo-server/internal/repository"
)

// conversationTail is how many recent messages each conversation summary carries.
const conversationTail = 5

// SendMessageInput carries the fields accepted when sending a message.
type SendMessageInput struct {
	SenderID    uint64 `json:"senderId"`
	ReceiverID  uint64 `json:"receiverId"`
	Content     string `json:"content"`
	MessageType string `json:"messageType"`
}

// MessageService manages match-gated messaging.
//
// Sending requires a mutual match at send time. Each side deletes messages
// independently; a row is physically purged once both sides deleted it.
type MessageService struct {
	appCtx *app.AppContext
	likes  *LikeService
}

// NewMessageService builds a MessageService. The like service provides the
// match predicate.
func NewMessageService(appCtx *app.AppContext, likes *LikeService) *MessageService {
	return &MessageService{appCtx: appCtx, likes: likes}
}

func (s *MessageService) maxContentLen() int {
	if s.appCtx.Cfg != nil && s.appCtx.Cfg.Message.MaxContentLen > 0 {
		return s.appCtx.Cfg.Message.MaxContentLen
	}
	return 5000
}

func (s *MessageService) validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperror.Validation("content", "content must not be blank")
	}
	if len(content) > s.maxContentLen() {
		return apperror.Validation("content", "content is too long")
	}
	return nil
}

// CanSend reports whether sender may message receiver, i.e. whether the two
// users are currently matched.
func (s *MessageService) CanSend(ctx context.Context, senderID, receiverID uint64) (bool, error) {
	return s.likes.IsMatch(ctx, senderID, receiverID)
}

// Send creates a message from sender to receiver.
//
// The match check and the insert run in one transaction, so a like removed
// concurrently cannot let a message slip through after the match dissolved.
func (s *MessageService) Send(ctx context.Context, in SendMessageInput) (*MessageResponse, error) {
	if in.SenderID == in.ReceiverID {
		return nil, apperror.SelfReference("users cannot message themselves")
	}
	if err := s.validateContent(in.Content); err != nil {
		return nil, err
	}
	if in.MessageType == "" {
		in.MessageType = db.MessageTypeText
	}
	if !db.ValidMessageType(in.MessageType) {
		return nil, apperror.Validation("messageType", "unknown message type")
	}

	msg := &db.Message{
		SenderID:    in.SenderID,
		ReceiverID:  in.ReceiverID,
		Content:     in.Content,
		MessageType: in.MessageType,
	}

	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)
		likes := repository.NewLikeRepository(tx)
		messages := repository.NewMessageRepository(tx)

		for _, id := range []uint64{in.SenderID, in.ReceiverID} {
			if _, err := users.FindByID(ctx, id); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperror.NotFound("user", id)
				}
				return err
			}
		}

		forward, err := likes.Exists(ctx, in.SenderID, in.ReceiverID)
		if err != nil {
			return err
		}
		backward, err := likes.Exists(ctx, in.ReceiverID, in.SenderID)
		if err != nil {
			return err
		}
		if !forward || !backward {
			return apperror.NotAllowed("users must be matched to exchange messages")
		}

		return messages.Create(ctx, msg)
	})
	if err != nil {
		return nil, err
	}

	return NewMessageResponse(msg), nil
}

// Get returns one message.
func (s *MessageService) Get(ctx context.Context, id uint64) (*MessageResponse, error) {
	msg, err := repository.NewMessageRepository(s.appCtx.DB).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("message", id)
		}
		return nil, err
	}
	return NewMessageResponse(msg), nil
}

// Update edits the content of a message. Only the sender may edit.
func (s *MessageService) Update(ctx context.Context, id, userID uint64, content string) (*MessageResponse, error) {
	if err := s.validateContent(content); err != nil {
		return nil, err
	}

	var updated *db.Message
	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		messages := repository.NewMessageRepository(tx)

		msg, err := messages.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("message", id)
			}
			return err
		}
		if msg.SenderID != userID {
			return apperror.NotAllowed("only the sender may edit a message")
		}

		msg.Content = content
		if err := messages.Save(ctx, msg); err != nil {
			return err
		}
		updated = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewMessageResponse(updated), nil
}

// Conversation returns the full exchange between viewer and partner as the
// viewer sees it, oldest first.
func (s *MessageService) Conversation(ctx context.Context, viewerID, partnerID uint64) ([]MessageResponse, error) {
	msgs, err := repository.NewMessageRepository(s.appCtx.DB).ConversationBetween(ctx, viewerID, partnerID)
	if err != nil {
		return nil, err
	}
	return toMessageResponses(msgs), nil
}

// RecentBetween returns the newest messages of a conversation, newest first.
func (s *MessageService) RecentBetween(ctx context.Context, viewerID, partnerID uint64, limit int) ([]MessageResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	msgs, err := repository.NewMessageRepository(s.appCtx.DB).RecentBetween(ctx, viewerID, partnerID, limit)
	if err != nil {
		return nil, err
	}
	return toMessageResponses(msgs), nil
}

// Conversations lists the viewer's conversations: partner profile, last
// message, unread count and a short tail of recent messages. Ordered by the
// last message, newest first; conversations without one sort last.
func (s *MessageService) Conversations(ctx context.Context, viewerID uint64) ([]ConversationSummary, error) {
	messages := repository.NewMessageRepository(s.appCtx.DB)

	partnerIDs, err := messages.PartnerIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	profiles, err := loadProfiles(ctx, s.appCtx.DB, partnerIDs)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(partnerIDs))
	for _, partnerID := range partnerIDs {
		profile, ok := profiles[partnerID]
		if !ok {
			continue
		}

		summary := ConversationSummary{Partner: profile, RecentMessages: []MessageResponse{}}

		last, err := messages.LastVisibleBetween(ctx, viewerID, partnerID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if last != nil {
			summary.LastMessage = NewMessageResponse(last)
		}

		summary.UnreadCount, err = messages.UnreadCountFrom(ctx, viewerID, partnerID)
		if err != nil {
			return nil, err
		}

		recent, err := messages.RecentBetween(ctx, viewerID, partnerID, conversationTail)
		if err != nil {
			return nil, err
		}
		summary.RecentMessages = toMessageResponses(recent)

		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].LastMessage, summaries[j].LastMessage
		switch {
		case a == nil && b == nil:
			return summaries[i].Partner.ID < summaries[j].Partner.ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.CreatedAt.Equal(b.CreatedAt):
			return a.CreatedAt.After(b.CreatedAt)
		default:
			return summaries[i].Partner.ID < summaries[j].Partner.ID
		}
	})

	return summaries, nil
}

// MarkRead flags one message as read. Only the receiver may mark it.
func (s *MessageService) MarkRead(ctx context.Context, id, userID uint64) (*MessageResponse, error) {
	var updated *db.Message

	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		messages := repository.NewMessageRepository(tx)

		msg, err := messages.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("message", id)
			}
			return err
		}
		if msg.ReceiverID != userID {
			return apperror.NotAllowed("only the receiver may mark a message read")
		}

		if !msg.IsRead {
			now := time.Now()
			msg.IsRead = true
			msg.ReadAt = &now
			if err := messages.Save(ctx, msg); err != nil {
				return err
			}
		}
		updated = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewMessageResponse(updated), nil
}

// MarkConversationRead flags every unread message from sender to receiver as
// read. Returns how many messages were updated.
func (s *MessageService) MarkConversationRead(ctx context.Context, receiverID, senderID uint64) (int64, error) {
	return repository.NewMessageRepository(s.appCtx.DB).
		MarkConversationRead(ctx, receiverID, senderID, time.Now())
}

// Delete hides a message for the calling side and purges the row once both
// sides have deleted it.
func (s *MessageService) Delete(ctx context.Context, id, userID uint64) error {
	return s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		messages := repository.NewMessageRepository(tx)

		msg, err := messages.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("message", id)
			}
			return err
		}

		switch userID {
		case msg.SenderID:
			msg.DeletedBySender = true
		case msg.ReceiverID:
			msg.DeletedByReceiver = true
		default:
			return apperror.NotAllowed("user is not a party to this message")
		}

		if msg.DeletedBySender && msg.DeletedByReceiver {
			return messages.Delete(ctx, msg.ID)
		}
		return messages.Save(ctx, msg)
	})
}

// DeleteConversation hides the whole conversation for the caller only, then
// purges any rows now dead on both sides. Returns how many messages were
// flagged for the caller.
func (s *MessageService) DeleteConversation(ctx context.Context, userID, partnerID uint64) (int64, error) {
	var flagged int64

	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		messages := repository.NewMessageRepository(tx)

		var err error
		flagged, err = messages.SoftDeleteConversation(ctx, userID, partnerID)
		if err != nil {
			return err
		}

		purged, err := messages.PurgeBothDeleted(ctx, userID, partnerID)
		if err != nil {
			return err
		}
		if purged > 0 {
			logger.Info("purged conversation rows", "user_a", userID, "user_b", partnerID, "count", purged)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return flagged, nil
}

// UnreadCount returns the total number of unread messages for the user.
func (s *MessageService) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	return repository.NewMessageRepository(s.appCtx.DB).UnreadCountTotal(ctx, userID)
}

// UnreadInConversation returns the unread count from one sender.
func (s *MessageService) UnreadInConversation(ctx context.Context, receiverID, senderID uint64) (int64, error) {
	return repository.NewMessageRepository(s.appCtx.DB).UnreadCountFrom(ctx, receiverID, senderID)
}

// Stats aggregates the user's messaging activity. The average response time
// is a simplified estimate: the mean gap between an incoming message and the
// user's next reply, within each conversation.
func (s *MessageService) Stats(ctx context.Context, userID uint64) (*MessageStats, error) {
	messages := repository.NewMessageRepository(s.appCtx.DB)

	sent, err := messages.CountSent(ctx, userID)
	if err != nil {
		return nil, err
	}
	received, err := messages.CountReceived(ctx, userID)
	if err != nil {
		return nil, err
	}
	unread, err := messages.UnreadCountTotal(ctx, userID)
	if err != nil {
		return nil, err
	}
	partnerIDs, err := messages.PartnerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	var totalGap time.Duration
	var replies int64
	for _, partnerID := range partnerIDs {
		conv, err := messages.ConversationBetween(ctx, userID, partnerID)
		if err != nil {
			return nil, err
		}
		for i := 1; i < len(conv); i++ {
			if conv[i-1].ReceiverID == userID && conv[i].SenderID == userID {
				totalGap += conv[i].CreatedAt.Sub(conv[i-1].CreatedAt)
				replies++
			}
		}
	}

	stats := &MessageStats{
		UserID:              userID,
		MessagesSent:        sent,
		MessagesReceived:    received,
		UnreadCount:         unread,
		ActiveConversations: len(partnerIDs),
	}
	if replies > 0 {
		stats.AvgResponseMinutes = totalGap.Minutes() / float64(replies)
	}
	return stats, nil
}

// Search returns the user's visible messages containing the term, newest first.
func (s *MessageService) Search(ctx context.Context, userID uint64, term string, limit int) ([]MessageResponse, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperror.Validation("q", "search term must not be empty")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	msgs, err := repository.NewMessageRepository(s.appCtx.DB).Search(ctx, userID, term, limit)
	if err != nil {
		return nil, err
	}
	return toMessageResponses(msgs), nil
}

// RecentFor returns the user's visible messages from the past N hours across
// all conversations.
func (s *MessageService) RecentFor(ctx context.Context, userID uint64, hours int) ([]MessageResponse, error) {
	if hours <= 0 {
		hours = 24
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	msgs, err := repository.NewMessageRepository(s.appCtx.DB).RecentFor(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	return toMessageResponses(msgs), nil
}

// DeleteAllForUser physically removes every message the user sent or received.
func (s *MessageService) DeleteAllForUser(ctx context.Context, userID uint64) error {
	return repository.NewMessageRepository(s.appCtx.DB).DeleteAllForUser(ctx, userID)
}

func toMessageResponses(msgs []db.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, *NewMessageResponse(&msgs[i]))
	}
	return out
}
