package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/meetwo/meetwo-server/internal/app"
	"github.com/meetwo/meetwo-server/internal/auth"
	"github.com/meetwo/meetwo-server/internal/config"
	"github.com/meetwo/meetwo-server/internal/db"
	"github.com/meetwo/meetwo-server/internal/handler"
	"github.com/meetwo/meetwo-server/internal/server"
	"github.com/meetwo/meetwo-server/internal/service"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&db.User{}, &db.Like{}, &db.Photo{}, &db.Message{}))

	cfg := &config.Config{}
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = "0"
	cfg.Upload.Dir = t.TempDir()
	cfg.Upload.MaxPhotos = 6
	cfg.Message.MaxContentLen = 5000

	tokens, err := auth.NewTokenService("test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceWithCost(4)

	appCtx := app.New(database, slog.Default(), cfg)

	users := service.NewUserService(appCtx, passwords, nil)
	authSvc := service.NewAuthService(appCtx, users, tokens, passwords)
	likes := service.NewLikeService(appCtx)
	photos := service.NewPhotoService(appCtx, nil)
	messages := service.NewMessageService(appCtx, likes)

	srv := server.New(appCtx, tokens, server.Handlers{
		Auth:     handler.NewAuthHandler(authSvc),
		Users:    handler.NewUserHandler(users),
		Likes:    handler.NewLikeHandler(likes),
		Photos:   handler.NewPhotoHandler(photos, 10<<20),
		Messages: handler.NewMessageHandler(messages),
	})
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, h http.Handler, username string) (token string, id uint64) {
	t.Helper()

	birth := time.Date(1995, 6, 15, 0, 0, 0, 0, time.UTC)
	rec := doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username":  username,
		"email":     username + "@example.com",
		"password":  "password",
		"firstName": "Test",
		"gender":    "female",
		"birthDate": birth,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID uint64 `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User.ID
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestServer(t)

	for _, path := range []string{"/api/users", "/api/likes/top-users", "/api/messages/unread/count/1"} {
		rec := doJSON(t, h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/users", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterLoginAndMe(t *testing.T) {
	h := newTestServer(t)

	token, _ := registerUser(t, h, "alice")

	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{
		"identifier": "alice",
		"password":   "password",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me struct {
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "alice", me.Username)

	rec = doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{
		"identifier": "alice",
		"password":   "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLikeMatchMessageFlow(t *testing.T) {
	h := newTestServer(t)

	tokenA, idA := registerUser(t, h, "ana")
	_, idB := registerUser(t, h, "bea")

	// One-sided like: no match, messaging blocked.
	rec := doJSON(t, h, http.MethodPost, "/api/likes", tokenA, map[string]uint64{
		"likerId": idA, "likedUserId": idB,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/api/messages", tokenA, map[string]any{
		"senderId": idA, "receiverId": idB, "content": "hi",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Reciprocal like closes the match.
	rec = doJSON(t, h, http.MethodPost, "/api/likes", tokenA, map[string]uint64{
		"likerId": idB, "likedUserId": idA,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet,
		fmt.Sprintf("/api/likes/check-match?user1=%d&user2=%d", idA, idB), tokenA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"isMatch":true}`, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/api/messages", tokenA, map[string]any{
		"senderId": idA, "receiverId": idB, "content": "hi",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet,
		fmt.Sprintf("/api/messages/conversation?userId=%d&otherUserId=%d", idB, idA), tokenA, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs []struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content)

	// Duplicate like is rejected.
	rec = doJSON(t, h, http.MethodPost, "/api/likes", tokenA, map[string]uint64{
		"likerId": idA, "likedUserId": idB,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUnknownIDReturnsNotFound(t *testing.T) {
	h := newTestServer(t)

	token, _ := registerUser(t, h, "cara")

	rec := doJSON(t, h, http.MethodGet, "/api/users/9999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/users/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
