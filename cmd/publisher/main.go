// Command publisher runs one scheduled-publication sweep and exits. It is meant for
// external cron when the API's own ticker is disabled.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/adapters/database"
	"github.com/afferentology/platform/backend/internal/adapters/events"
	"github.com/afferentology/platform/backend/internal/adapters/search"
	"github.com/afferentology/platform/backend/internal/application/services"
	"github.com/afferentology/platform/backend/internal/domain/repositories"
	"github.com/afferentology/platform/backend/internal/infrastructure/clients/postgres"
	"github.com/afferentology/platform/backend/internal/infrastructure/clients/redis"
	"github.com/afferentology/platform/backend/internal/infrastructure/clients/typesense"
	"github.com/afferentology/platform/backend/internal/infrastructure/observability"
	"github.com/afferentology/platform/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	observability.InitLogger("article-publisher", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("Scheduled publication sweep failed")
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	pgClient, err := postgres.NewClient(ctx, cfg.DatabaseDSN(), "admin", cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	var index repositories.ArticleSearchRepository
	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable, search index will not be updated")
		} else {
			index = search.NewArticleIndex(tsClient)
		}
	}

	scheduler := services.NewPublishSchedulerService(database.NewArticleAdapter(pgClient), index)

	// Tell running API instances to drop cached article lists.
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, cached article lists will expire by TTL")
		} else {
			defer redisClient.Close()
			bus := events.NewRedisEventBus(redisClient.Client())
			defer bus.Close()
			scheduler.SetEventBus(bus)
		}
	}

	result, err := scheduler.RunScheduledPublish(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	for _, p := range result.Published {
		log.Info().Str("article_id", p.ID).Str("slug", p.Slug).Msg("Published")
	}
	for _, f := range result.Errors {
		log.Error().Str("article_id", f.ID).Str("error", f.Error).Msg("Failed to publish")
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d article(s) failed to publish", len(result.Errors))
	}
	return nil
}
