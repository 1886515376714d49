package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetwo/meetwo-server/internal/apperror"
	"github.com/meetwo/meetwo-server/internal/service"
)

func newMessagingStack(t *testing.T) (*service.UserService, *service.LikeService, *service.MessageService, uint64, uint64) {
	t.Helper()
	appCtx := newTestApp(t)
	users := newUserService(appCtx)
	likes := service.NewLikeService(appCtx)
	messages := service.NewMessageService(appCtx, likes)

	a := mustCreateUser(t, users, "a")
	b := mustCreateUser(t, users, "b")
	return users, likes, messages, a, b
}

func match(t *testing.T, likes *service.LikeService, a, b uint64) {
	t.Helper()
	_, err := likes.Create(context.Background(), a, b)
	require.NoError(t, err)
	_, err = likes.Create(context.Background(), b, a)
	require.NoError(t, err)
}

func TestMessageService_SendRequiresMatch(t *testing.T) {
	ctx := context.Background()
	_, likes, messages, a, b := newMessagingStack(t)

	// unmatched pair cannot talk
	canSend, err := messages.CanSend(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, canSend)

	_, err = messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: b, Content: "hi"})
	assert.True(t, errors.Is(err, apperror.ErrNotAllowed))

	// one-way like is not enough
	_, err = likes.Create(ctx, a, b)
	require.NoError(t, err)
	_, err = messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: b, Content: "hi"})
	assert.True(t, errors.Is(err, apperror.ErrNotAllowed))

	// mutual likes unlock messaging both ways
	_, err = likes.Create(ctx, b, a)
	require.NoError(t, err)

	sent, err := messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: b, Content: "hi"})
	require.NoError(t, err)
	assert.False(t, sent.IsRead)
	assert.Equal(t, "text", sent.MessageType)

	_, err = messages.Send(ctx, service.SendMessageInput{SenderID: b, ReceiverID: a, Content: "hello"})
	require.NoError(t, err)
}

func TestMessageService_SendValidation(t *testing.T) {
	ctx := context.Background()
	_, likes, messages, a, b := newMessagingStack(t)
	match(t, likes, a, b)

	_, err := messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: a, Content: "hi"})
	assert.True(t, errors.Is(err, apperror.ErrSelfReference))

	_, err = messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: b, Content: "   "})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	long := strings.Repeat("x", 5001)
	_, err = messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: b, Content: long})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	_, err = messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: b, Content: "hi", MessageType: "carrier-pigeon"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	_, err = messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: 9999, Content: "hi"})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestMessageService_UnmatchClosesConversation(t *testing.T) {
	ctx := context.Background()
	_, likes, messages, a, b := newMessagingStack(t)
	match(t, likes, a, b)

	_, err := messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: b, Content: "hi"})
	require.NoError(t, err)

	// removing one like dissolves the match and blocks further messages
	require.NoError(t, likes.Remove(ctx, b, a))

	_, err = messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: b, Content: "still there?"})
	assert.True(t, errors.Is(err, apperror.ErrNotAllowed))

	// history stays readable
	conv, err := messages.Conversation(ctx, a, b)
	require.NoError(t, err)
	assert.Len(t, conv, 1)
}

func TestMessageService_ReadFlow(t *testing.T) {
	ctx := context.Background()
	_, likes, messages, a, b := newMessagingStack(t)
	match(t, likes, a, b)

	m1, err := messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: b, Content: "one"})
	require.NoError(t, err)
	_, err = messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: b, Content: "two"})
	require.NoError(t, err)

	unread, err := messages.UnreadCount(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	// only the receiver may mark
	_, err = messages.MarkRead(ctx, m1.ID, a)
	assert.True(t, errors.Is(err, apperror.ErrNotAllowed))

	read, err := messages.MarkRead(ctx, m1.ID, b)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	unread, err = messages.UnreadInConversation(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	updated, err := messages.MarkConversationRead(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	unread, err = messages.UnreadCount(ctx, b)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestMessageService_PerSideDeleteThenPurge(t *testing.T) {
	ctx := context.Background()
	_, likes, messages, a, b := newMessagingStack(t)
	match(t, likes, a, b)

	msg, err := messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: b, Content: "secret"})
	require.NoError(t, err)

	// a stranger is no party to the message
	err = messages.Delete(ctx, msg.ID, 9999)
	assert.True(t, errors.Is(err, apperror.ErrNotAllowed))

	// sender deletes: hidden for a, visible for b
	require.NoError(t, messages.Delete(ctx, msg.ID, a))

	convA, err := messages.Conversation(ctx, a, b)
	require.NoError(t, err)
	assert.Empty(t, convA)

	convB, err := messages.Conversation(ctx, b, a)
	require.NoError(t, err)
	assert.Len(t, convB, 1)

	// receiver deletes too: the row is physically gone
	require.NoError(t, messages.Delete(ctx, msg.ID, b))

	_, err = messages.Get(ctx, msg.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestMessageService_DeleteConversationIsOneSided(t *testing.T) {
	ctx := context.Background()
	_, likes, messages, a, b := newMessagingStack(t)
	match(t, likes, a, b)

	for _, content := range []string{"one", "two", "three"} {
		_, err := messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: b, Content: content})
		require.NoError(t, err)
	}

	flagged, err := messages.DeleteConversation(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, int64(3), flagged)

	convA, err := messages.Conversation(ctx, a, b)
	require.NoError(t, err)
	assert.Empty(t, convA)

	convB, err := messages.Conversation(ctx, b, a)
	require.NoError(t, err)
	assert.Len(t, convB, 3)

	// the other side deletes as well and the rows are purged
	_, err = messages.DeleteConversation(ctx, b, a)
	require.NoError(t, err)

	stats, err := messages.Stats(ctx, a)
	require.NoError(t, err)
	assert.Zero(t, stats.MessagesSent)
}

func TestMessageService_ConversationsOrdering(t *testing.T) {
	ctx := context.Background()
	appCtx := newTestApp(t)
	users := newUserService(appCtx)
	likes := service.NewLikeService(appCtx)
	messages := service.NewMessageService(appCtx, likes)

	me := mustCreateUser(t, users, "me")
	old := mustCreateUser(t, users, "old")
	fresh := mustCreateUser(t, users, "fresh")
	match(t, likes, me, old)
	match(t, likes, me, fresh)

	m1, err := messages.Send(ctx, service.SendMessageInput{SenderID: old, ReceiverID: me, Content: "old news"})
	require.NoError(t, err)
	m2, err := messages.Send(ctx, service.SendMessageInput{SenderID: fresh, ReceiverID: me, Content: "fresh news"})
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Millisecond)
	backdateMessage(t, appCtx, m1.ID, base.Add(-2*time.Hour))
	backdateMessage(t, appCtx, m2.ID, base.Add(-time.Hour))

	summaries, err := messages.Conversations(ctx, me)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// most recent conversation first
	assert.Equal(t, fresh, summaries[0].Partner.ID)
	assert.Equal(t, old, summaries[1].Partner.ID)
	assert.Equal(t, int64(1), summaries[0].UnreadCount)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "fresh news", summaries[0].LastMessage.Content)
	assert.Len(t, summaries[0].RecentMessages, 1)
}

func TestMessageService_SearchAndRecent(t *testing.T) {
	ctx := context.Background()
	appCtx := newTestApp(t)
	users := newUserService(appCtx)
	likes := service.NewLikeService(appCtx)
	messages := service.NewMessageService(appCtx, likes)

	a := mustCreateUser(t, users, "a")
	b := mustCreateUser(t, users, "b")
	match(t, likes, a, b)

	_, err := messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: b, Content: "coffee tomorrow?"})
	require.NoError(t, err)
	older, err := messages.Send(ctx, service.SendMessageInput{SenderID: b, ReceiverID: a, Content: "sure, coffee works"})
	require.NoError(t, err)

	hits, err := messages.Search(ctx, a, "coffee", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	_, err = messages.Search(ctx, a, "   ", 10)
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	backdateMessage(t, appCtx, older.ID, time.Now().Add(-48*time.Hour))
	recent, err := messages.RecentFor(ctx, a, 24)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "coffee tomorrow?", recent[0].Content)
}

func TestMessageService_Stats(t *testing.T) {
	ctx := context.Background()
	appCtx := newTestApp(t)
	users := newUserService(appCtx)
	likes := service.NewLikeService(appCtx)
	messages := service.NewMessageService(appCtx, likes)

	a := mustCreateUser(t, users, "a")
	b := mustCreateUser(t, users, "b")
	match(t, likes, a, b)

	incoming, err := messages.Send(ctx, service.SendMessageInput{SenderID: b, ReceiverID: a, Content: "ping"})
	require.NoError(t, err)
	reply, err := messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: b, Content: "pong"})
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Millisecond)
	backdateMessage(t, appCtx, incoming.ID, base.Add(-30*time.Minute))
	backdateMessage(t, appCtx, reply.ID, base.Add(-20*time.Minute))

	stats, err := messages.Stats(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.MessagesSent)
	assert.Equal(t, int64(1), stats.MessagesReceived)
	assert.Equal(t, int64(1), stats.UnreadCount)
	assert.Equal(t, 1, stats.ActiveConversations)
	assert.InDelta(t, 10.0, stats.AvgResponseMinutes, 0.01)
}

func TestMessageService_UpdateContent(t *testing.T) {
	ctx := context.Background()
	_, likes, messages, a, b := newMessagingStack(t)
	match(t, likes, a, b)

	msg, err := messages.Send(ctx, service.SendMessageInput{SenderID: a, ReceiverID: b, Content: "typo"})
	require.NoError(t, err)

	updated, err := messages.Update(ctx, msg.ID, a, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "fixed", updated.Content)

	// only the sender may edit
	_, err = messages.Update(ctx, msg.ID, b, "hijack")
	assert.True(t, errors.Is(err, apperror.ErrNotAllowed))
}

// End-to-end: register, like both ways, message, unmatch.
func TestScenario_MatchAndChat(t *testing.T) {
	ctx := context.Background()
	appCtx := newTestApp(t)
	users := newUserService(appCtx)
	likes := service.NewLikeService(appCtx)
	photos := service.NewPhotoService(appCtx, nil)
	messages := service.NewMessageService(appCtx, likes)

	alice := mustCreateUser(t, users, "alice")
	bob := mustCreateUser(t, users, "bob")

	_, err := photos.CreateFromURL(ctx, service.CreatePhotoInput{UserID: alice, URL: "http://x/alice.jpg"})
	require.NoError(t, err)

	like1, err := likes.Create(ctx, alice, bob)
	require.NoError(t, err)
	assert.False(t, like1.IsMatch)

	like2, err := likes.Create(ctx, bob, alice)
	require.NoError(t, err)
	assert.True(t, like2.IsMatch)

	// chat flows both ways
	_, err = messages.Send(ctx, service.SendMessageInput{SenderID: alice, ReceiverID: bob, Content: "hey!"})
	require.NoError(t, err)
	_, err = messages.Send(ctx, service.SendMessageInput{SenderID: bob, ReceiverID: alice, Content: "hey yourself"})
	require.NoError(t, err)

	// bob sees alice with her main photo in his match list
	bobMatches, err := likes.MatchesFor(ctx, bob)
	require.NoError(t, err)
	require.Len(t, bobMatches, 1)
	assert.Equal(t, alice, bobMatches[0].User.ID)
	assert.Equal(t, "http://x/alice.jpg", bobMatches[0].User.MainPhotoURL)

	// alice unmatches; the conversation freezes but history remains
	require.NoError(t, likes.Remove(ctx, alice, bob))
	_, err = messages.Send(ctx, service.SendMessageInput{SenderID: bob, ReceiverID: alice, Content: "gone?"})
	assert.True(t, errors.Is(err, apperror.ErrNotAllowed))

	history, err := messages.Conversation(ctx, bob, alice)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
