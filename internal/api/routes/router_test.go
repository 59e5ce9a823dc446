package routes_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afferentology/platform/backend/internal/api/handlers"
	"github.com/afferentology/platform/backend/internal/api/middleware"
	"github.com/afferentology/platform/backend/internal/api/routes"
	"github.com/afferentology/platform/backend/internal/application/services"
	"github.com/afferentology/platform/backend/internal/infrastructure/observability"
)

func newTestRouter(t *testing.T) (http.Handler, *services.AdminAuthService) {
	t.Helper()
	auth, err := services.NewAdminAuthService("", "letmein", "jwt-secret", time.Hour)
	require.NoError(t, err)

	router := routes.NewRouter(
		handlers.NewPractitionerHandler(nil, nil),
		handlers.NewArticleHandler(nil, nil),
		handlers.NewPublishHandler(nil, "cron-secret", auth),
		handlers.NewChatHandler(nil),
		handlers.NewAdminHandler(auth),
		handlers.NewWebhookHandler(services.NewSocialDraftService("https://afferentology.org")),
		auth,
		middleware.NewIPRateLimiter(0.01, 2, nil),
		nil,
		nil,
		observability.NewPromMetrics("test"),
	)
	return router.SetupRoutes([]string{"https://afferentology.org"}), auth
}

func TestRouter_Health(t *testing.T) {
	handler, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRouter_AdminRoutesRequireToken(t *testing.T) {
	handler, auth := newTestRouter(t)

	for _, route := range []struct{ method, path string }{
		{"GET", "/api/admin/practitioners"},
		{"PATCH", "/api/admin/practitioners/p1"},
		{"GET", "/api/admin/articles"},
		{"POST", "/api/admin/articles/images"},
		{"PATCH", "/api/admin/articles/a1/publish"},
	} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
		assert.Equal(t, "private, no-store", w.Header().Get("Cache-Control"), route.path)
	}

	token, _, err := auth.IssueToken()
	require.NoError(t, err)

	req := httptest.NewRequest("PATCH", "/api/admin/practitioners/p1", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	// Authenticated, then rejected by the handler for the missing status.
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_PublishScheduledRequiresSecret(t *testing.T) {
	handler, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/articles/publish-scheduled", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("POST", "/api/articles/publish-scheduled", nil)
	req.Header.Set("X-Manual-Trigger", "true")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_VerifyIsRateLimited(t *testing.T) {
	handler, _ := newTestRouter(t)

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/api/admin/verify", strings.NewReader(`{"password":"wrong"}`))
		req.RemoteAddr = "203.0.113.7:5000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRouter_CORSPreflight(t *testing.T) {
	handler, _ := newTestRouter(t)

	req := httptest.NewRequest("OPTIONS", "/api/practitioners", nil)
	req.Header.Set("Origin", "https://afferentology.org")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://afferentology.org", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Manual-Trigger")

	req = httptest.NewRequest("OPTIONS", "/api/practitioners", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_MetricsRecordsMatchedRoute(t *testing.T) {
	handler, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/admin/articles", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `route="GET /api/admin/articles"`)
}
