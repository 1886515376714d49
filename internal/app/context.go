// Package app wires shared process-wide dependencies into a single context
// struct passed to services and handlers.
package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/meetwo/meetwo-server/internal/config"
)

// AppContext carries the shared dependencies of the application.
type AppContext struct {
	DB     *gorm.DB
	Logger *slog.Logger
	Cfg    *config.Config
}

// New builds an AppContext from already-initialized dependencies.
func New(database *gorm.DB, log *slog.Logger, cfg *config.Config) *AppContext {
	return &AppContext{DB: database, Logger: log, Cfg: cfg}
}
