// Command server runs the meetwo HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meetwo/meetwo-server/internal/app"
	"github.com/meetwo/meetwo-server/internal/auth"
	"github.com/meetwo/meetwo-server/internal/config"
	"github.com/meetwo/meetwo-server/internal/db"
	"github.com/meetwo/meetwo-server/internal/handler"
	"github.com/meetwo/meetwo-server/internal/logger"
	"github.com/meetwo/meetwo-server/internal/server"
	"github.com/meetwo/meetwo-server/internal/service"
	"github.com/meetwo/meetwo-server/internal/storage"
)

func main() {
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewLocalStore(cfg.Upload.Dir, cfg.Upload.BaseURL, cfg.Upload.MaxSizeBytes)
	if err != nil {
		log.Error("failed to prepare upload directory", "error", err)
		os.Exit(1)
	}

	tokens, err := auth.NewTokenService(cfg.JWT.Secret, time.Duration(cfg.JWT.TTLHours)*time.Hour)
	if err != nil {
		log.Error("invalid JWT configuration", "error", err)
		os.Exit(1)
	}
	passwords := auth.NewPasswordService()

	appCtx := app.New(database, log, cfg)

	users := service.NewUserService(appCtx, passwords, store)
	authSvc := service.NewAuthService(appCtx, users, tokens, passwords)
	likes := service.NewLikeService(appCtx)
	photos := service.NewPhotoService(appCtx, store)
	messages := service.NewMessageService(appCtx, likes)

	srv := server.New(appCtx, tokens, server.Handlers{
		Auth:     handler.NewAuthHandler(authSvc),
		Users:    handler.NewUserHandler(users),
		Likes:    handler.NewLikeHandler(likes),
		Photos:   handler.NewPhotoHandler(photos, cfg.Upload.MaxSizeBytes),
		Messages: handler.NewMessageHandler(messages),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server stopped with error", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		log.Info("shutdown signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
			os.Exit(1)
		}
	}

	log.Info("server stopped")
}
