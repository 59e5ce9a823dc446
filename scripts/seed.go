package main

import (
	"context"
	_ "embed"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/adapters/database"
	"github.com/afferentology/platform/backend/internal/application/services"
	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/infrastructure/clients/postgres"
	"github.com/afferentology/platform/backend/internal/infrastructure/observability"
	"github.com/afferentology/platform/backend/pkg/config"
)

//go:embed schema.sql
var schema string

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	observability.InitLogger("seed", cfg.Log.Level, "console")

	ctx := context.Background()

	pgClient, err := postgres.NewClient(ctx, cfg.DatabaseDSN(), "admin", cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer pgClient.Close()

	if _, err := pgClient.DB().ExecContext(ctx, schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE practitioners, articles`); err != nil {
			log.Fatal().Err(err).Msg("Failed to reset tables")
		}
	}

	practitionerRepo := database.NewPractitionerAdapter(pgClient)
	articleRepo := database.NewArticleAdapter(pgClient)
	articleService := services.NewArticleService(articleRepo, database.NewPublicArticleAdapter(pgClient), nil)

	// 1. Seed practitioners with known coordinates so search works without a geocoder.
	now := time.Now().UTC()
	coords := func(v float64) *float64 { return &v }
	practitioners := []entities.Practitioner{
		{
			FirstName: "Helen", LastName: "Marsh", Email: "helen@example.com", ClinicName: "Marsh Clinic",
			StreetAddress: "12 High Street", City: "Leeds", State: "West Yorkshire", PostalCode: "LS1 4AP", Country: "United Kingdom",
			Latitude: coords(53.7997), Longitude: coords(-1.5492), YearsExperience: 12,
			Certifications: []string{"Afferentology Practitioner"}, Specialties: []string{"Sports injuries"},
			Status: entities.PractitionerStatusApproved,
		},
		{
			FirstName: "Tom", LastName: "Reed", Email: "tom@example.com", ClinicName: "Reed Therapy",
			StreetAddress: "4 Castle Road", City: "Bristol", PostalCode: "BS1 2AA", Country: "United Kingdom",
			Latitude: coords(51.4545), Longitude: coords(-2.5879), YearsExperience: 6,
			Certifications: []string{}, Specialties: []string{"Back pain"},
			Status: entities.PractitionerStatusApproved,
		},
		{
			FirstName: "Priya", LastName: "Shah", Email: "priya@example.com", ClinicName: "Shah Wellness",
			StreetAddress: "88 Market Square", City: "Cambridge", PostalCode: "CB2 3QJ", Country: "United Kingdom",
			Certifications: []string{}, Specialties: []string{},
			Status: entities.PractitionerStatusPending,
		},
	}

	for i := range practitioners {
		p := practitioners[i]
		p.ID = uuid.New().String()
		p.CreatedAt, p.UpdatedAt = now, now
		if p.Status == entities.PractitionerStatusApproved {
			p.ApprovedAt = &now
			p.ApprovedBy = "seed"
		}
		if err := practitionerRepo.Create(ctx, &p); err != nil {
			log.Warn().Err(err).Str("email", p.Email).Msg("Failed to create practitioner")
		}
	}

	// 2. Seed one article in each publication state.
	scheduledAt := now.Add(24 * time.Hour)
	articles := []entities.ArticleInput{
		{
			Title:     "What Is Afferentology?",
			Excerpt:   "An introduction to assessing the nervous system's input.",
			Content:   "<p>Afferentology looks at the signals travelling into the nervous system.</p>",
			Category:  "Introduction",
			Tags:      []string{"afferentology", "neurology"},
			Published: true,
		},
		{
			Title:       "The Nail in the Foot",
			Excerpt:     "Why treating the hip won't fix the foot.",
			Content:     "<p>If you have a nail in your heel, you'll limp.</p>",
			Category:    "Science",
			Tags:        []string{"reflexes"},
			ScheduledAt: &scheduledAt,
		},
		{
			Title:   "Draft: Muscle Testing Myths",
			Content: "<p>Work in progress.</p>",
		},
	}
	for i := range articles {
		if _, err := articleService.Create(ctx, &articles[i]); err != nil {
			log.Warn().Err(err).Str("title", articles[i].Title).Msg("Failed to create article")
		}
	}

	log.Info().Int("practitioners", len(practitioners)).Int("articles", len(articles)).Msg("Seeding completed")
}
