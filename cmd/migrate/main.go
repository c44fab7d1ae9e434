package main

// Run database migrations for DOC_STORE=postgres:
//   go run ./cmd/migrate

import (
	"context"
	"log"
	"os"

	"curiosity-sync/internal/shared/config"
	"curiosity-sync/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL, db.CLIOptions().WithConfig(cfg))
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}
	log.Printf("migrations applied")
}
