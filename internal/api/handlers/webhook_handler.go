package handlers

import (
	"net/http"

	"github.com/afferentology/platform/backend/internal/domain/entities"
)

// SocialDrafter builds social posts for published articles.
type SocialDrafter interface {
	LinkedInDraft(title, content, slug string) (*entities.SocialDraft, error)
}

// WebhookHandler receives database webhooks.
type WebhookHandler struct {
	drafts SocialDrafter
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(drafts SocialDrafter) *WebhookHandler {
	return &WebhookHandler{drafts: drafts}
}

type articleRecord struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Slug    string `json:"slug"`
}

type articleWebhookPayload struct {
	Record *articleRecord `json:"record"`
}

// ArticlePublished handles POST /api/webhooks/article-published
func (h *WebhookHandler) ArticlePublished(w http.ResponseWriter, r *http.Request) {
	var payload articleWebhookPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if payload.Record == nil {
		respondWithError(w, http.StatusBadRequest, "No record found")
		return
	}

	draft, err := h.drafts.LinkedInDraft(payload.Record.Title, payload.Record.Content, payload.Record.Slug)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"draft":   draft,
	})
}
