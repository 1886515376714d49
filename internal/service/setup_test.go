package service_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/meetwo/meetwo-server/internal/app"
	"github.com/meetwo/meetwo-server/internal/auth"
	"github.com/meetwo/meetwo-server/internal/config"
	"github.com/meetwo/meetwo-server/internal/db"
	"github.com/meetwo/meetwo-server/internal/service"
)

// newTestApp builds an AppContext on an in-memory sqlite database.
func newTestApp(t *testing.T) *app.AppContext {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&db.User{}, &db.Like{}, &db.Photo{}, &db.Message{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	cfg := &config.Config{}
	cfg.Upload.MaxPhotos = 6
	cfg.Message.MaxContentLen = 5000

	return app.New(database, slog.Default(), cfg)
}

func newUserService(appCtx *app.AppContext) *service.UserService {
	return service.NewUserService(appCtx, auth.NewPasswordServiceWithCost(4), nil)
}

// mustCreateUser registers a bare valid profile and returns its ID.
func mustCreateUser(t *testing.T, users *service.UserService, username string) uint64 {
	t.Helper()
	resp, err := users.Create(context.Background(), service.CreateUserInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password",
		Gender:   db.GenderFemale,
	})
	require.NoError(t, err)
	return resp.ID
}

// backdateLike shifts a like's created_at so ordering tests are deterministic.
func backdateLike(t *testing.T, appCtx *app.AppContext, likerID, likedUserID uint64, at time.Time) {
	t.Helper()
	require.NoError(t, appCtx.DB.Model(&db.Like{}).
		Where("liker_id = ? AND liked_user_id = ?", likerID, likedUserID).
		Update("created_at", at).Error)
}

// backdateMessage shifts a message's created_at.
func backdateMessage(t *testing.T, appCtx *app.AppContext, id uint64, at time.Time) {
	t.Helper()
	require.NoError(t, appCtx.DB.Model(&db.Message{}).
		Where("id = ?", id).
		Update("created_at", at).Error)
}
