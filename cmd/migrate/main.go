package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"catalog/infrastructure/persistence/postgres"
)

func main() {
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres connection string")
	timeout := flag.Duration("timeout", 2*time.Minute, "migration deadline")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("DATABASE_URL or -dsn is required")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, *dsn, 2, logger)
	if err != nil {
		logger.Fatal("Failed to connect", zap.Error(err))
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}
	logger.Info("Migrations applied")
}
