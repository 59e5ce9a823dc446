package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
)

const defaultSearchLimit = 20

// ArticleService defines the article operations used by the handler.
type ArticleService interface {
	Create(ctx context.Context, input *entities.ArticleInput) (*entities.Article, error)
	Update(ctx context.Context, id string, input *entities.ArticleInput) (*entities.Article, error)
	Get(ctx context.Context, id string) (*entities.Article, error)
	List(ctx context.Context, filter entities.ArticleFilter) ([]*entities.ArticleSummary, error)
	Delete(ctx context.Context, id string) error
	SetPublished(ctx context.Context, id string, published bool) (*entities.Article, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*entities.Article, error)
	ListPublished(ctx context.Context, filter entities.ArticleFilter) ([]*entities.ArticleSummary, error)
	Search(ctx context.Context, query string, limit int) ([]*entities.ArticleSearchHit, error)
}

// ImageUploader stores an uploaded article image and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, contentType string, size int64, r io.Reader) (string, error)
	MaxBytes() int64
}

// ArticleHandler handles public and admin article routes.
type ArticleHandler struct {
	service  ArticleService
	uploader ImageUploader
}

// NewArticleHandler creates a new article handler. uploader may be nil when uploads are disabled.
func NewArticleHandler(service ArticleService, uploader ImageUploader) *ArticleHandler {
	return &ArticleHandler{service: service, uploader: uploader}
}

func articleFilterFromQuery(r *http.Request) (entities.ArticleFilter, error) {
	q := r.URL.Query()
	filter := entities.ArticleFilter{
		Category: q.Get("category"),
		State:    entities.ArticleState(q.Get("state")),
	}
	switch filter.State {
	case "", entities.ArticleStateDraft, entities.ArticleStateScheduled, entities.ArticleStatePublished:
	default:
		return filter, apperrors.NewValidationError("invalid state parameter")
	}
	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		return filter, err
	}
	return filter, nil
}

// ListPublished handles GET /api/articles
func (h *ArticleHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	filter, err := articleFilterFromQuery(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	filter.State = ""

	articles, err := h.service.ListPublished(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"articles": articles,
	})
}

// GetBySlug handles GET /api/articles/{slug}
func (h *ArticleHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	article, err := h.service.GetPublishedBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"article": article,
	})
}

// Search handles GET /api/articles/search?q=
func (h *ArticleHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultSearchLimit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	hits, err := h.service.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"articles": hits,
	})
}

// AdminList handles GET /api/admin/articles
func (h *ArticleHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	filter, err := articleFilterFromQuery(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	articles, err := h.service.List(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"articles": articles,
	})
}

// AdminGet handles GET /api/admin/articles/{id}
func (h *ArticleHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	article, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"article": article,
	})
}

// AdminCreate handles POST /api/admin/articles
func (h *ArticleHandler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	var input entities.ArticleInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	article, err := h.service.Create(r.Context(), &input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"article": article,
	})
}

// AdminUpdate handles PUT /api/admin/articles/{id}
func (h *ArticleHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	var input entities.ArticleInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	article, err := h.service.Update(r.Context(), r.PathValue("id"), &input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"article": article,
	})
}

// AdminDelete handles DELETE /api/admin/articles/{id}
func (h *ArticleHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type publishRequest struct {
	Published *bool `json:"published"`
}

// AdminSetPublished handles PATCH /api/admin/articles/{id}/publish
func (h *ArticleHandler) AdminSetPublished(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if req.Published == nil {
		respondWithError(w, http.StatusBadRequest, "published is required")
		return
	}
	article, err := h.service.SetPublished(r.Context(), r.PathValue("id"), *req.Published)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"article": article,
	})
}

// UploadImage handles POST /api/admin/articles/images (multipart field "file").
func (h *ArticleHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		respondWithError(w, http.StatusServiceUnavailable, "image uploads are not configured")
		return
	}

	// Allow for multipart framing on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.uploader.MaxBytes()+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondWithError(w, http.StatusBadRequest, "File too large")
			return
		}
		respondWithError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	url, err := h.uploader.Upload(r.Context(), header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"url": url})
}
