package handlers

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/api/middleware"
	"github.com/afferentology/platform/backend/internal/domain/entities"
)

// PublishScheduler runs the scheduled publication sweep.
type PublishScheduler interface {
	RunScheduledPublish(ctx context.Context, now time.Time) (*entities.PublishResult, error)
	ListPending(ctx context.Context) ([]*entities.PendingArticle, error)
}

// PublishHandler exposes the sweep to external cron and the admin UI.
type PublishHandler struct {
	scheduler  PublishScheduler
	cronSecret string
	verifier   middleware.TokenVerifier
	now        func() time.Time
}

// NewPublishHandler creates a new publish handler. Cron callers present
// cronSecret as a bearer token, and an empty cronSecret leaves that path open.
// Manual runs from the admin UI carry X-Manual-Trigger and an admin session token.
func NewPublishHandler(scheduler PublishScheduler, cronSecret string, verifier middleware.TokenVerifier) *PublishHandler {
	return &PublishHandler{scheduler: scheduler, cronSecret: cronSecret, verifier: verifier, now: time.Now}
}

func (h *PublishHandler) authorized(r *http.Request) bool {
	token, ok := middleware.BearerToken(r)
	if strings.EqualFold(r.Header.Get("X-Manual-Trigger"), "true") {
		if !ok || h.verifier == nil {
			return false
		}
		if _, err := h.verifier.VerifyToken(token); err != nil {
			log.Debug().Err(err).Msg("Rejected manual publish trigger")
			return false
		}
		return true
	}
	if h.cronSecret == "" {
		return true
	}
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) == 1
}

// Run handles POST /api/articles/publish-scheduled
func (h *PublishHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.scheduler.RunScheduledPublish(r.Context(), h.now().UTC())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	message := "No articles to publish"
	if n := len(result.Published); n > 0 {
		message = fmt.Sprintf("Published %d article(s)", n)
	}
	body := map[string]interface{}{
		"message":   message,
		"published": result.Published,
	}
	if len(result.Errors) > 0 {
		body["errors"] = result.Errors
	}
	respondWithJSON(w, http.StatusOK, body)
}

// Pending handles GET /api/articles/publish-scheduled
func (h *PublishHandler) Pending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.scheduler.ListPending(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if pending == nil {
		pending = []*entities.PendingArticle{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(pending),
		"articles": pending,
	})
}
