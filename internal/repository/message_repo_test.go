package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/meetwo/meetwo-server/internal/db"
	"github.com/meetwo/meetwo-server/internal/repository"
)

func seedMessage(t *testing.T, dbase *gorm.DB, sender, receiver uint64, content string) *db.Message {
	t.Helper()
	msg := &db.Message{
		SenderID:    sender,
		ReceiverID:  receiver,
		Content:     content,
		MessageType: db.MessageTypeText,
	}
	require.NoError(t, dbase.Create(msg).Error)
	return msg
}

func TestMessageRepository_ConversationVisibility(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	m1 := seedMessage(t, dbase, 1, 2, "hi")
	seedMessage(t, dbase, 2, 1, "hello")
	seedMessage(t, dbase, 1, 2, "how are you")

	// both sides see all three
	forOne, err := repo.ConversationBetween(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, forOne, 3)
	assert.Equal(t, "hi", forOne[0].Content)

	// sender deletes the first message on their side only
	m1.DeletedBySender = true
	require.NoError(t, repo.Save(ctx, m1))

	forOne, err = repo.ConversationBetween(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, forOne, 2)

	forTwo, err := repo.ConversationBetween(ctx, 2, 1)
	require.NoError(t, err)
	assert.Len(t, forTwo, 3)
}

func TestMessageRepository_RecentAndLast(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	seedMessage(t, dbase, 1, 2, "first")
	seedMessage(t, dbase, 2, 1, "second")
	last := seedMessage(t, dbase, 1, 2, "third")

	recent, err := repo.RecentBetween(ctx, 1, 2, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Content)

	newest, err := repo.LastVisibleBetween(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, last.ID, newest.ID)
}

func TestMessageRepository_PartnerIDs(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	seedMessage(t, dbase, 1, 2, "to 2")
	seedMessage(t, dbase, 3, 1, "from 3")
	seedMessage(t, dbase, 1, 2, "again")
	seedMessage(t, dbase, 4, 5, "unrelated")

	partners, err := repo.PartnerIDs(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3}, partners)
}

func TestMessageRepository_UnreadAndMarkRead(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	seedMessage(t, dbase, 2, 1, "one")
	seedMessage(t, dbase, 2, 1, "two")
	seedMessage(t, dbase, 3, 1, "three")

	fromTwo, err := repo.UnreadCountFrom(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fromTwo)

	total, err := repo.UnreadCountTotal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	readAt := time.Now().UTC().Truncate(time.Millisecond)
	updated, err := repo.MarkConversationRead(ctx, 1, 2, readAt)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	total, err = repo.UnreadCountTotal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	// marking again is a no-op
	updated, err = repo.MarkConversationRead(ctx, 1, 2, readAt)
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestMessageRepository_SoftDeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	seedMessage(t, dbase, 1, 2, "a")
	seedMessage(t, dbase, 2, 1, "b")

	// user 1 deletes the conversation on their side
	flagged, err := repo.SoftDeleteConversation(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), flagged)

	forOne, err := repo.ConversationBetween(ctx, 1, 2)
	require.NoError(t, err)
	assert.Empty(t, forOne)

	forTwo, err := repo.ConversationBetween(ctx, 2, 1)
	require.NoError(t, err)
	assert.Len(t, forTwo, 2)

	// nothing purged yet, user 2 still sees the rows
	purged, err := repo.PurgeBothDeleted(ctx, 1, 2)
	require.NoError(t, err)
	assert.Zero(t, purged)

	// user 2 deletes too, rows become purgeable
	_, err = repo.SoftDeleteConversation(ctx, 2, 1)
	require.NoError(t, err)

	purged, err = repo.PurgeBothDeleted(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	var count int64
	require.NoError(t, dbase.Model(&db.Message{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMessageRepository_Search(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	seedMessage(t, dbase, 1, 2, "coffee tomorrow?")
	seedMessage(t, dbase, 2, 1, "coffee sounds great")
	seedMessage(t, dbase, 1, 2, "see you then")
	seedMessage(t, dbase, 3, 4, "coffee without user 1")

	hits, err := repo.Search(ctx, 1, "coffee", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestMessageRepository_CountsIgnoreSoftDelete(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	m := seedMessage(t, dbase, 1, 2, "a")
	seedMessage(t, dbase, 2, 1, "b")

	m.DeletedBySender = true
	require.NoError(t, repo.Save(ctx, m))

	sent, err := repo.CountSent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sent)

	received, err := repo.CountReceived(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), received)
}

func TestMessageRepository_DeleteAllForUser(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	seedMessage(t, dbase, 1, 2, "a")
	seedMessage(t, dbase, 3, 1, "b")
	seedMessage(t, dbase, 2, 3, "c")

	require.NoError(t, repo.DeleteAllForUser(ctx, 1))

	var count int64
	require.NoError(t, dbase.Model(&db.Message{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
