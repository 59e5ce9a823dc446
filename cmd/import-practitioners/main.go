// Command import-practitioners bulk loads approved directory listings from a CSV export.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/adapters/cache"
	"github.com/afferentology/platform/backend/internal/adapters/database"
	"github.com/afferentology/platform/backend/internal/adapters/providers/geocoding"
	"github.com/afferentology/platform/backend/internal/application/services"
	"github.com/afferentology/platform/backend/internal/infrastructure/clients/postgres"
	"github.com/afferentology/platform/backend/internal/infrastructure/observability"
	"github.com/afferentology/platform/backend/pkg/config"
)

func main() {
	var path string
	flag.StringVar(&path, "file", "", "CSV file to import (default: stdin)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	observability.InitLogger("practitioner-import", cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var src io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Failed to open CSV")
		}
		defer f.Close()
		src = f
	}

	pgClient, err := postgres.NewClient(ctx, cfg.DatabaseDSN(), "admin", cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pgClient.Close()

	provider := geocoding.NewNominatimProvider(geocoding.NominatimOptions{
		BaseURL:        cfg.Geocoding.BaseURL,
		UserAgent:      cfg.Geocoding.UserAgent,
		Cache:          cache.NewMemoryAdapter(cfg.Geocoding.CacheTTL, 0),
		CacheTTL:       cfg.Geocoding.CacheTTL,
		RequestsPerSec: cfg.Geocoding.RequestsPerSec,
	})
	importer := services.NewPractitionerImportService(
		database.NewPractitionerAdapter(pgClient),
		services.NewGeocodingService(provider, cfg.Geocoding.RetryDelay),
	)

	report, err := importer.Import(ctx, src)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}
	for _, msg := range report.Errors {
		log.Warn().Str("row", msg).Msg("Row not imported")
	}
	log.Info().Int("imported", report.Imported).Int("skipped", report.Skipped).Int("errors", len(report.Errors)).
		Msg("Import complete")
}
