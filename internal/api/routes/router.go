package routes

import (
	"net/http"

	"github.com/afferentology/platform/backend/internal/api/handlers"
	"github.com/afferentology/platform/backend/internal/api/middleware"
	"github.com/afferentology/platform/backend/internal/infrastructure/observability"
)

const publicMaxAge = 60

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	practitionerHandler *handlers.PractitionerHandler
	articleHandler      *handlers.ArticleHandler
	publishHandler      *handlers.PublishHandler
	chatHandler         *handlers.ChatHandler
	adminHandler        *handlers.AdminHandler
	webhookHandler      *handlers.WebhookHandler

	verifier      middleware.TokenVerifier
	verifyLimiter *middleware.IPRateLimiter
	responseCache *middleware.ResponseCache

	metrics *observability.Metrics
	prom    *observability.PromMetrics
}

// NewRouter creates a new router. responseCache, metrics and prom may be nil.
func NewRouter(
	practitionerHandler *handlers.PractitionerHandler,
	articleHandler *handlers.ArticleHandler,
	publishHandler *handlers.PublishHandler,
	chatHandler *handlers.ChatHandler,
	adminHandler *handlers.AdminHandler,
	webhookHandler *handlers.WebhookHandler,

	verifier middleware.TokenVerifier,
	verifyLimiter *middleware.IPRateLimiter,
	responseCache *middleware.ResponseCache,

	metrics *observability.Metrics,
	prom *observability.PromMetrics,
) *Router {
	if responseCache == nil {
		responseCache = middleware.NewResponseCache(nil, 0)
	}
	return &Router{
		mux: http.NewServeMux(),

		practitionerHandler: practitionerHandler,
		articleHandler:      articleHandler,
		publishHandler:      publishHandler,
		chatHandler:         chatHandler,
		adminHandler:        adminHandler,
		webhookHandler:      webhookHandler,

		verifier:      verifier,
		verifyLimiter: verifyLimiter,
		responseCache: responseCache,

		metrics: metrics,
		prom:    prom,
	}
}

// publicRead wraps anonymous JSON reads with shared caching, ETag and gzip.
func (r *Router) publicRead(h http.HandlerFunc) http.Handler {
	return middleware.PublicCacheControl(publicMaxAge)(middleware.ResponseOptimization(r.responseCache.Wrap(h)))
}

// admin wraps a handler with token authentication.
func (r *Router) admin(h http.HandlerFunc) http.Handler {
	return middleware.NoStore(middleware.RequireAdmin(r.verifier)(h))
}

// ServeUploads exposes locally stored article images under prefix.
func (r *Router) ServeUploads(prefix, dir string) {
	r.mux.Handle("GET "+prefix+"/", http.StripPrefix(prefix, http.FileServer(http.Dir(dir))))
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(allowedOrigins []string) http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	if r.prom != nil {
		r.mux.Handle("GET /metrics", r.prom.Handler())
	}

	// Practitioner directory
	r.mux.Handle("GET /api/practitioners/search", r.publicRead(r.practitionerHandler.Search))
	r.mux.HandleFunc("POST /api/practitioners", r.practitionerHandler.Submit)

	// Articles. The view counter runs on every slug read, so it is not response cached.
	r.mux.Handle("GET /api/articles", r.publicRead(r.articleHandler.ListPublished))
	r.mux.Handle("GET /api/articles/search", r.publicRead(r.articleHandler.Search))
	r.mux.Handle("GET /api/articles/{slug}", middleware.ResponseOptimization(http.HandlerFunc(r.articleHandler.GetBySlug)))

	// Scheduled publication
	r.mux.HandleFunc("POST /api/articles/publish-scheduled", r.publishHandler.Run)
	r.mux.Handle("GET /api/articles/publish-scheduled", middleware.NoStore(http.HandlerFunc(r.publishHandler.Pending)))

	// Chat assistant streams; no buffering middleware.
	r.mux.HandleFunc("POST /api/chat", r.chatHandler.Stream)

	// Database webhooks
	r.mux.HandleFunc("POST /api/webhooks/article-published", r.webhookHandler.ArticlePublished)

	// Admin
	var verify http.Handler = http.HandlerFunc(r.adminHandler.Verify)
	if r.verifyLimiter != nil {
		verify = r.verifyLimiter.Wrap(verify)
	}
	r.mux.Handle("POST /api/admin/verify", middleware.NoStore(verify))

	r.mux.Handle("GET /api/admin/practitioners", r.admin(r.practitionerHandler.AdminList))
	r.mux.Handle("GET /api/admin/practitioners/{id}", r.admin(r.practitionerHandler.AdminGet))
	r.mux.Handle("PATCH /api/admin/practitioners/{id}", r.admin(r.practitionerHandler.AdminUpdateStatus))
	r.mux.Handle("DELETE /api/admin/practitioners/{id}", r.admin(r.practitionerHandler.AdminDelete))

	r.mux.Handle("GET /api/admin/articles", r.admin(r.articleHandler.AdminList))
	r.mux.Handle("POST /api/admin/articles", r.admin(r.articleHandler.AdminCreate))
	r.mux.Handle("POST /api/admin/articles/images", r.admin(r.articleHandler.UploadImage))
	r.mux.Handle("GET /api/admin/articles/{id}", r.admin(r.articleHandler.AdminGet))
	r.mux.Handle("PUT /api/admin/articles/{id}", r.admin(r.articleHandler.AdminUpdate))
	r.mux.Handle("DELETE /api/admin/articles/{id}", r.admin(r.articleHandler.AdminDelete))
	r.mux.Handle("PATCH /api/admin/articles/{id}/publish", r.admin(r.articleHandler.AdminSetPublished))

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics, r.prom)(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(allowedOrigins)(handler)

	return handler
}
