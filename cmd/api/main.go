package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/adapters/cache"
	"github.com/afferentology/platform/backend/internal/adapters/database"
	"github.com/afferentology/platform/backend/internal/adapters/events"
	"github.com/afferentology/platform/backend/internal/adapters/providers/geocoding"
	"github.com/afferentology/platform/backend/internal/adapters/search"
	"github.com/afferentology/platform/backend/internal/adapters/storage"
	"github.com/afferentology/platform/backend/internal/api/handlers"
	"github.com/afferentology/platform/backend/internal/api/middleware"
	"github.com/afferentology/platform/backend/internal/api/routes"
	"github.com/afferentology/platform/backend/internal/application/services"
	"github.com/afferentology/platform/backend/internal/domain/providers"
	"github.com/afferentology/platform/backend/internal/domain/repositories"
	"github.com/afferentology/platform/backend/internal/infrastructure/clients/openai"
	"github.com/afferentology/platform/backend/internal/infrastructure/clients/postgres"
	"github.com/afferentology/platform/backend/internal/infrastructure/clients/redis"
	"github.com/afferentology/platform/backend/internal/infrastructure/clients/typesense"
	"github.com/afferentology/platform/backend/internal/infrastructure/notifications"
	"github.com/afferentology/platform/backend/internal/infrastructure/observability"
	"github.com/afferentology/platform/backend/pkg/config"
)

const responseCacheTTLSeconds = 60

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Log.Level, cfg.Log.Format)

	// Set up context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			observability.EnableOTelLogs(cfg.OTEL.ServiceName)
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}
	prom := observability.NewPromMetrics("afferentology")

	// Database handles: admin reads and writes everything, public only sees published content.
	db, err := postgres.NewHandles(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL clients")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing PostgreSQL clients")
		}
	}()

	// Cache and content events: Redis when available so every instance sees every write,
	// otherwise in-process.
	var (
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-memory cache")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient.Client(), "afferentology:")
			eventBus = events.NewRedisEventBus(redisClient.Client())
			log.Info().Str("addr", cfg.RedisAddr()).Msg("Redis cache initialized")
		}
	}
	if cacheProvider == nil {
		cacheProvider = cache.NewMemoryAdapter(cfg.Geocoding.CacheTTL, 10*time.Minute)
		eventBus = events.NewLocalEventBus()
	}
	defer func() {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	invalidation := services.NewCacheInvalidationService(cacheProvider, eventBus)
	if err := invalidation.Start(); err != nil {
		log.Warn().Err(err).Msg("Cache invalidation disabled; cached responses expire by TTL only")
	}
	defer invalidation.Stop()

	// Search index
	var articleIndex repositories.ArticleSearchRepository
	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable, article search disabled")
		} else if err := tsClient.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to init Typesense schema, article search disabled")
		} else {
			articleIndex = search.NewArticleIndex(tsClient)
		}
	}

	// Geocoding
	var geocoder providers.GeocodingProvider
	switch cfg.Geocoding.Provider {
	case "mock":
		log.Warn().Msg("Using mock geocoding provider; practitioners will not be geocoded")
		geocoder = geocoding.NewMockProvider()
	case "google":
		geocoder = geocoding.NewGoogleProvider(geocoding.GoogleOptions{
			APIKey:   cfg.Geocoding.GoogleAPIKey,
			Cache:    cacheProvider,
			CacheTTL: cfg.Geocoding.CacheTTL,
		})
	default:
		geocoder = geocoding.NewNominatimProvider(geocoding.NominatimOptions{
			BaseURL:        cfg.Geocoding.BaseURL,
			UserAgent:      cfg.Geocoding.UserAgent,
			Cache:          cacheProvider,
			CacheTTL:       cfg.Geocoding.CacheTTL,
			RequestsPerSec: cfg.Geocoding.RequestsPerSec,
		})
	}
	geocodingService := services.NewGeocodingService(geocoder, cfg.Geocoding.RetryDelay)

	// Email
	var sender providers.EmailSender = notifications.LogSender{}
	if cfg.Email.Enabled {
		smtpSender, err := notifications.NewSMTPSender(cfg.Email)
		if err != nil {
			log.Warn().Err(err).Msg("SMTP misconfigured, emails will only be logged")
		} else {
			sender = smtpSender
		}
	}
	notificationService := services.NewNotificationService(sender, cfg.Email.IntakeAddress, cfg.Site.URL)

	// Chat completions
	var chatProvider providers.ChatCompletionProvider
	if cfg.OpenAI.APIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is not set; chat assistant disabled")
	} else {
		openaiClient, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize OpenAI client")
		} else {
			chatProvider = openaiClient
		}
	}

	// Image storage
	var uploader handlers.ImageUploader
	imageStore, err := storage.NewLocalImageStore(cfg.Storage.UploadDir, cfg.Storage.PublicBaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("Image uploads disabled")
	} else {
		uploader = services.NewImageUploadService(imageStore, cfg.Storage.MaxBytes, cfg.Storage.MaxWidth)
	}

	adminAuth, err := services.NewAdminAuthService(cfg.Admin.PasswordHash, cfg.Admin.Password, cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid admin credential configuration")
	}
	if !adminAuth.Configured() {
		log.Warn().Msg("No admin password configured; admin routes will reject every request")
	}

	// Initialize services
	practitionerRepo := database.NewPractitionerAdapter(db.Admin)
	practitionerService := services.NewPractitionerService(practitionerRepo, geocodingService, notificationService)
	practitionerService.SetEventBus(eventBus)

	articleRepo := database.NewArticleAdapter(db.Admin)
	articleService := services.NewArticleService(articleRepo, database.NewPublicArticleAdapter(db.Public), articleIndex)
	articleService.SetEventBus(eventBus)

	scheduler := services.NewPublishSchedulerService(articleRepo, articleIndex)
	scheduler.SetRecorder(observability.SweepRecorder{Prom: prom, OTel: metrics})
	scheduler.SetEventBus(eventBus)
	if cfg.Cron.SweepInterval > 0 {
		scheduler.Start(ctx, cfg.Cron.SweepInterval)
	}

	chatService := services.NewChatService(chatProvider)
	socialDrafts := services.NewSocialDraftService(cfg.Site.URL)

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid TRUSTED_PROXIES")
	}

	// Set up router
	router := routes.NewRouter(
		handlers.NewPractitionerHandler(practitionerService, prom),
		handlers.NewArticleHandler(articleService, uploader),
		handlers.NewPublishHandler(scheduler, cfg.Cron.Secret, adminAuth),
		handlers.NewChatHandler(chatService),
		handlers.NewAdminHandler(adminAuth),
		handlers.NewWebhookHandler(socialDrafts),
		adminAuth,
		middleware.NewIPRateLimiter(cfg.Admin.VerifyRPS, cfg.Admin.VerifyBurst, trustedProxies),
		middleware.NewResponseCache(cacheProvider, responseCacheTTLSeconds),
		metrics,
		prom,
	)
	if imageStore != nil && strings.HasPrefix(cfg.Storage.PublicBaseURL, "/") {
		router.ServeUploads(strings.TrimRight(cfg.Storage.PublicBaseURL, "/"), imageStore.Dir())
	}
	handler := router.SetupRoutes(cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:        cfg.ServerAddr(),
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Chat responses stream for as long as the model writes.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Server stopped")
}
