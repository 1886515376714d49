// Command seed resets the database and fills it with demo data.
package main

import (
	"os"

	"github.com/meetwo/meetwo-server/internal/config"
	"github.com/meetwo/meetwo-server/internal/db"
	"github.com/meetwo/meetwo-server/internal/logger"
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

	if err := db.SeedTestData(database); err != nil {
		log.Error("seeding failed", "error", err)
		os.Exit(1)
	}

	log.Info("database seeded")
}
