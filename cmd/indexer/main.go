package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/adapters/database"
	"github.com/afferentology/platform/backend/internal/adapters/search"
	"github.com/afferentology/platform/backend/internal/application/services"
	"github.com/afferentology/platform/backend/internal/infrastructure/clients/postgres"
	"github.com/afferentology/platform/backend/internal/infrastructure/clients/typesense"
	"github.com/afferentology/platform/backend/internal/infrastructure/observability"
	"github.com/afferentology/platform/backend/pkg/config"
)

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete the articles collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	observability.InitLogger("article-indexer", cfg.Log.Level, cfg.Log.Format)

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("Invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, cfg, reset); err != nil {
			log.Error().Err(err).Msg("Reindex failed")
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Info().Dur("next_run_in", interval).Msg("Reindex complete")

		select {
		case <-ctx.Done():
			log.Info().Msg("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, reset bool) error {
	pgClient, err := postgres.NewClient(ctx, cfg.DatabaseDSN(), "admin", cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Warn().Str("collection", typesense.ArticlesCollection).Msg("Deleting search collection before reindex")
		if _, err := tsClient.Client().Collection(typesense.ArticlesCollection).Delete(ctx); err != nil && !typesense.IsNotFound(err) {
			log.Warn().Err(err).Msg("Failed to delete collection")
		}
	}

	if err := tsClient.InitSchema(ctx); err != nil {
		return err
	}

	articleService := services.NewArticleService(
		database.NewArticleAdapter(pgClient),
		database.NewPublicArticleAdapter(pgClient),
		search.NewArticleIndex(tsClient),
	)

	count, err := articleService.ReindexPublished(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("articles", count).Msg("Indexing complete")
	return nil
}
