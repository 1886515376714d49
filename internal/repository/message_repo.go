package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/meetwo/meetwo-server/internal/db"
)

// MessageRepository provides data access methods for the Message model.
//
// Every read takes the viewer into account: a message stays visible to a side
// until that side deletes it, and the row is physically purged once both sides
// have deleted it.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new repository bound to the given DB connection.
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Create inserts a new message row.
func (r *MessageRepository) Create(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// Save persists all fields of an existing message.
func (r *MessageRepository) Save(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).Save(msg).Error
}

// FindByID returns the message with the given ID or gorm.ErrRecordNotFound.
func (r *MessageRepository) FindByID(ctx context.Context, id uint64) (*db.Message, error) {
	var msg db.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// visibleBetween scopes a query to messages exchanged between viewer and
// partner that the viewer has not deleted on their side.
func visibleBetween(q *gorm.DB, viewerID, partnerID uint64) *gorm.DB {
	return q.Where(
		`(sender_id = ? AND receiver_id = ? AND deleted_by_sender = ?)
		 OR (sender_id = ? AND receiver_id = ? AND deleted_by_receiver = ?)`,
		viewerID, partnerID, false,
		partnerID, viewerID, false,
	)
}

// ConversationBetween returns the full conversation as the viewer sees it,
// oldest first.
func (r *MessageRepository) ConversationBetween(ctx context.Context, viewerID, partnerID uint64) ([]db.Message, error) {
	var msgs []db.Message
	err := visibleBetween(r.db.WithContext(ctx), viewerID, partnerID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// RecentBetween returns the newest visible messages of a conversation, capped
// at limit, newest first.
func (r *MessageRepository) RecentBetween(ctx context.Context, viewerID, partnerID uint64, limit int) ([]db.Message, error) {
	var msgs []db.Message
	err := visibleBetween(r.db.WithContext(ctx), viewerID, partnerID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// LastVisibleBetween returns the newest message of a conversation as the
// viewer sees it, or gorm.ErrRecordNotFound for an empty conversation.
func (r *MessageRepository) LastVisibleBetween(ctx context.Context, viewerID, partnerID uint64) (*db.Message, error) {
	var msg db.Message
	err := visibleBetween(r.db.WithContext(ctx), viewerID, partnerID).
		Order("created_at DESC, id DESC").
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// PartnerIDs returns the distinct users the viewer has a visible conversation
// with, in no particular order.
func (r *MessageRepository) PartnerIDs(ctx context.Context, viewerID uint64) ([]uint64, error) {
	var sent []uint64
	err := r.db.WithContext(ctx).Model(&db.Message{}).
		Where("sender_id = ? AND deleted_by_sender = ?", viewerID, false).
		Distinct("receiver_id").
		Pluck("receiver_id", &sent).Error
	if err != nil {
		return nil, err
	}

	var received []uint64
	err = r.db.WithContext(ctx).Model(&db.Message{}).
		Where("receiver_id = ? AND deleted_by_receiver = ?", viewerID, false).
		Distinct("sender_id").
		Pluck("sender_id", &received).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[uint64]struct{}, len(sent)+len(received))
	partners := make([]uint64, 0, len(sent)+len(received))
	for _, id := range append(sent, received...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		partners = append(partners, id)
	}
	return partners, nil
}

// UnreadCountFrom counts unread messages the receiver still sees from one sender.
func (r *MessageRepository) UnreadCountFrom(ctx context.Context, receiverID, senderID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ? AND deleted_by_receiver = ?",
			receiverID, senderID, false, false).
		Count(&count).Error
	return count, err
}

// UnreadCountTotal counts all unread messages the receiver still sees.
func (r *MessageRepository) UnreadCountTotal(ctx context.Context, receiverID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Message{}).
		Where("receiver_id = ? AND is_read = ? AND deleted_by_receiver = ?",
			receiverID, false, false).
		Count(&count).Error
	return count, err
}

// MarkConversationRead flags every unread message from sender to receiver as
// read with the given timestamp. Returns the number of messages updated.
func (r *MessageRepository) MarkConversationRead(ctx context.Context, receiverID, senderID uint64, readAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&db.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", receiverID, senderID, false).
		Updates(map[string]any{"is_read": true, "read_at": readAt})
	return res.RowsAffected, res.Error
}

// SoftDeleteConversation sets the viewer-side deleted flag on every message of
// the conversation. Returns the number of messages flagged.
func (r *MessageRepository) SoftDeleteConversation(ctx context.Context, viewerID, partnerID uint64) (int64, error) {
	sent := r.db.WithContext(ctx).Model(&db.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND deleted_by_sender = ?", viewerID, partnerID, false).
		Update("deleted_by_sender", true)
	if sent.Error != nil {
		return 0, sent.Error
	}

	received := r.db.WithContext(ctx).Model(&db.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND deleted_by_receiver = ?", partnerID, viewerID, false).
		Update("deleted_by_receiver", true)
	if received.Error != nil {
		return 0, received.Error
	}

	return sent.RowsAffected + received.RowsAffected, nil
}

// PurgeBothDeleted physically removes messages between two users that both
// sides have deleted. Returns the number of rows purged.
func (r *MessageRepository) PurgeBothDeleted(ctx context.Context, userA, userB uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where(
			`deleted_by_sender = ? AND deleted_by_receiver = ?
			 AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))`,
			true, true, userA, userB, userB, userA,
		).
		Delete(&db.Message{})
	return res.RowsAffected, res.Error
}

// Search returns the viewer's visible messages whose content contains the
// query, newest first.
func (r *MessageRepository) Search(ctx context.Context, viewerID uint64, query string, limit int) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where(
			`((sender_id = ? AND deleted_by_sender = ?) OR (receiver_id = ? AND deleted_by_receiver = ?))
			 AND content LIKE ?`,
			viewerID, false, viewerID, false,
			"%"+query+"%",
		).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// RecentFor returns the viewer's visible messages created after the given
// instant, across all conversations, newest first.
func (r *MessageRepository) RecentFor(ctx context.Context, viewerID uint64, since time.Time) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where(
			`((sender_id = ? AND deleted_by_sender = ?) OR (receiver_id = ? AND deleted_by_receiver = ?))
			 AND created_at > ?`,
			viewerID, false, viewerID, false, since,
		).
		Order("created_at DESC, id DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// CountSent counts every message the user ever sent, deleted or not.
// Stats intentionally ignore soft-delete flags.
func (r *MessageRepository) CountSent(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Message{}).
		Where("sender_id = ?", userID).
		Count(&count).Error
	return count, err
}

// CountReceived counts every message the user ever received.
func (r *MessageRepository) CountReceived(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Message{}).
		Where("receiver_id = ?", userID).
		Count(&count).Error
	return count, err
}

// Delete removes a message row.
func (r *MessageRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&db.Message{}, id).Error
}

// DeleteAllForUser removes every message the user sent or received.
// Used when a user account is deleted.
func (r *MessageRepository) DeleteAllForUser(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Delete(&db.Message{}).Error
}
