package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"studiobook/internal/config"
	"studiobook/internal/database"
	"studiobook/internal/logger"
	"studiobook/internal/repository"
	"studiobook/internal/search"
)

// reindex rebuilds the Elasticsearch schedule index from Postgres. The
// index is a disposable read model; running this at any time converges it
// to the database.

func main() {
	var batchSize int
	flag.IntVar(&batchSize, "batch-size", 500, "Sessions fetched per page")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	logger.Get().Info("Starting schedule reindex")

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	esClient, err := search.NewElasticsearchClient(config.LoadElasticsearchConfig())
	if err != nil {
		logger.Fatal("Failed to connect to Elasticsearch", "error", err)
	}

	sessionRepo := repository.NewSessionRepository(db)

	if err := reindex(context.Background(), sessionRepo, esClient, batchSize); err != nil {
		logger.Fatal("Reindex failed", "error", err)
	}

	logger.Get().Info("Schedule reindex completed successfully")
}

func reindex(ctx context.Context, sessionRepo *repository.SessionRepository, esClient *search.ElasticsearchClient, batchSize int) error {
	start := time.Now()
	total := 0

	for page := 1; ; page++ {
		sessions, err := sessionRepo.List(ctx, "", page, batchSize)
		if err != nil {
			return fmt.Errorf("failed to list sessions (page %d): %w", page, err)
		}
		if len(sessions) == 0 {
			break
		}

		for i := range sessions {
			if err := esClient.IndexSession(ctx, &sessions[i]); err != nil {
				return fmt.Errorf("failed to index session %d: %w", sessions[i].ID, err)
			}
		}

		total += len(sessions)
		logger.Get().Info("Indexed batch", "page", page, "count", len(sessions))

		if len(sessions) < batchSize {
			break
		}
	}

	logger.Get().Info("Reindex finished", "sessions", total, "elapsed", time.Since(start))
	return nil
}
