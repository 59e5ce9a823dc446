package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/domain/providers"
	"github.com/afferentology/platform/backend/internal/domain/repositories"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
	"github.com/afferentology/platform/backend/pkg/utils"
)

const maxSlugAttempts = 50

// ArticleService manages the article CMS. Admin operations go through the privileged
// repository; public reads go through the published-only repository.
type ArticleService struct {
	repo   repositories.ArticleRepository
	public repositories.PublicArticleRepository
	index  repositories.ArticleSearchRepository
	events contentEvents
	now    func() time.Time
}

// NewArticleService creates an article service. index may be nil when search is disabled.
func NewArticleService(repo repositories.ArticleRepository, public repositories.PublicArticleRepository, index repositories.ArticleSearchRepository) *ArticleService {
	return &ArticleService{
		repo:   repo,
		public: public,
		index:  index,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetEventBus makes writes announce themselves so cached public responses are dropped.
func (s *ArticleService) SetEventBus(bus providers.EventBus) {
	s.events.bus = bus
}

// Create stores a new article. The slug is taken from the input or derived from the title,
// and suffixed -2, -3, ... when already in use.
func (s *ArticleService) Create(ctx context.Context, input *entities.ArticleInput) (*entities.Article, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	base := utils.Slugify(input.Slug)
	if base == "" {
		base = utils.Slugify(input.Title)
	}
	if base == "" {
		return nil, apperrors.NewValidationError("slug could not be derived from title")
	}
	slug, err := utils.UniqueSlug(ctx, base, func(ctx context.Context, candidate string) (bool, error) {
		return s.repo.SlugExists(ctx, candidate, "")
	}, maxSlugAttempts)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to allocate slug", err)
	}

	now := s.now()
	article := &entities.Article{
		ID:        uuid.New().String(),
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyContent(article, input)
	applyPublication(article, input, now)

	if err := s.repo.Create(ctx, article); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			return nil, err
		}
		return nil, apperrors.NewInternalError("failed to create article", err)
	}

	log.Info().Str("article_id", article.ID).Str("slug", article.Slug).Str("state", string(article.State())).Msg("Article created")
	s.syncIndex(ctx, article)
	s.events.emit(ctx, entities.ContentKindArticle, article.ID, article.Slug, entities.ContentActionCreated)
	return article, nil
}

// Update replaces an article's editable fields. The stored slug only changes when the input
// names a different one explicitly.
func (s *ArticleService) Update(ctx context.Context, id string, input *entities.ArticleInput) (*entities.Article, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	article, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Slug != "" {
		slug := utils.Slugify(input.Slug)
		if slug == "" {
			return nil, apperrors.NewValidationError("slug is invalid")
		}
		if slug != article.Slug {
			taken, err := s.repo.SlugExists(ctx, slug, article.ID)
			if err != nil {
				return nil, apperrors.NewInternalError("failed to check slug", err)
			}
			if taken {
				return nil, apperrors.NewConflictError("slug already in use: " + slug)
			}
			article.Slug = slug
		}
	}

	now := s.now()
	applyContent(article, input)
	applyPublication(article, input, now)
	article.UpdatedAt = now

	if err := s.repo.Update(ctx, article); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) || apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			return nil, err
		}
		return nil, apperrors.NewInternalError("failed to update article", err)
	}

	log.Info().Str("article_id", article.ID).Str("state", string(article.State())).Msg("Article updated")
	s.syncIndex(ctx, article)
	s.events.emit(ctx, entities.ContentKindArticle, article.ID, article.Slug, entities.ContentActionUpdated)
	return article, nil
}

// Get returns any article by id.
func (s *ArticleService) Get(ctx context.Context, id string) (*entities.Article, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns article summaries for the admin dashboard, most recently updated first.
func (s *ArticleService) List(ctx context.Context, filter entities.ArticleFilter) ([]*entities.ArticleSummary, error) {
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list articles", err)
	}
	return list, nil
}

// Delete removes an article.
func (s *ArticleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.Remove(ctx, id); err != nil {
			log.Warn().Err(err).Str("article_id", id).Msg("Failed to remove article from search index")
		}
	}
	log.Info().Str("article_id", id).Msg("Article deleted")
	s.events.emit(ctx, entities.ContentKindArticle, id, "", entities.ContentActionDeleted)
	return nil
}

// SetPublished publishes or unpublishes immediately, clearing any schedule.
func (s *ArticleService) SetPublished(ctx context.Context, id string, published bool) (*entities.Article, error) {
	if err := s.repo.SetPublished(ctx, id, published, s.now()); err != nil {
		return nil, err
	}
	article, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Info().Str("article_id", id).Bool("published", published).Msg("Article publication toggled")
	s.syncIndex(ctx, article)
	action := entities.ContentActionUnpublished
	if published {
		action = entities.ContentActionPublished
	}
	s.events.emit(ctx, entities.ContentKindArticle, article.ID, article.Slug, action)
	return article, nil
}

// GetPublishedBySlug returns a published article and counts the view.
// A failed view increment is logged and does not fail the read.
func (s *ArticleService) GetPublishedBySlug(ctx context.Context, slug string) (*entities.Article, error) {
	article, err := s.public.GetPublishedBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if err := s.public.IncrementViews(ctx, article.ID); err != nil {
		log.Warn().Err(err).Str("article_id", article.ID).Msg("Failed to increment article views")
	} else {
		article.Views++
	}
	return article, nil
}

// ListPublished returns published article summaries, newest first.
func (s *ArticleService) ListPublished(ctx context.Context, filter entities.ArticleFilter) ([]*entities.ArticleSummary, error) {
	list, err := s.public.ListPublished(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list articles", err)
	}
	return list, nil
}

// Search runs a full-text query over published articles.
func (s *ArticleService) Search(ctx context.Context, query string, limit int) ([]*entities.ArticleSearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("q is required")
	}
	if s.index == nil {
		return nil, apperrors.NewExternalError("article search is not configured", nil)
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	hits, err := s.index.Search(ctx, query, limit)
	if err != nil {
		return nil, apperrors.NewExternalError("article search failed", err)
	}
	return hits, nil
}

const reindexPageSize = 100

// ReindexPublished pushes every published article to the search index and returns how many were sent.
func (s *ArticleService) ReindexPublished(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, apperrors.NewExternalError("article search is not configured", nil)
	}
	count := 0
	for offset := 0; ; offset += reindexPageSize {
		page, err := s.repo.List(ctx, entities.ArticleFilter{
			State:  entities.ArticleStatePublished,
			Limit:  reindexPageSize,
			Offset: offset,
		})
		if err != nil {
			return count, apperrors.NewInternalError("failed to list published articles", err)
		}
		for _, summary := range page {
			article, err := s.repo.GetByID(ctx, summary.ID)
			if err != nil {
				// Deleted between the list and the read.
				log.Warn().Err(err).Str("article_id", summary.ID).Msg("Skipping article during reindex")
				continue
			}
			if err := s.index.Index(ctx, article); err != nil {
				return count, apperrors.NewExternalError("failed to index article", err)
			}
			count++
		}
		if len(page) < reindexPageSize {
			return count, nil
		}
	}
}

func (s *ArticleService) syncIndex(ctx context.Context, article *entities.Article) {
	if s.index == nil {
		return
	}
	var err error
	if article.Published {
		err = s.index.Index(ctx, article)
	} else {
		err = s.index.Remove(ctx, article.ID)
	}
	if err != nil {
		log.Warn().Err(err).Str("article_id", article.ID).Msg("Failed to sync article search index")
	}
}

func (s *ArticleService) validateInput(input *entities.ArticleInput) error {
	if input == nil {
		return apperrors.NewValidationError("article is required")
	}
	input.Title = strings.TrimSpace(input.Title)
	return validateStruct(input)
}

func applyContent(a *entities.Article, input *entities.ArticleInput) {
	a.Title = input.Title
	a.Excerpt = strings.TrimSpace(input.Excerpt)
	a.Content = input.Content
	a.AuthorName = strings.TrimSpace(input.AuthorName)
	if a.AuthorName == "" {
		a.AuthorName = entities.DefaultAuthorName
	}
	a.FeaturedImageURL = strings.TrimSpace(input.FeaturedImageURL)
	a.Category = strings.TrimSpace(input.Category)
	a.Tags = normalizeTags(input.Tags)
}

// applyPublication enforces the draft/scheduled/published invariant.
func applyPublication(a *entities.Article, input *entities.ArticleInput, now time.Time) {
	switch {
	case input.Published && a.Published:
		a.ScheduledAt = nil
	case input.Published:
		a.Publish(now)
	default:
		a.Unpublish()
		if input.ScheduledAt != nil {
			at := input.ScheduledAt.UTC()
			a.ScheduledAt = &at
		}
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		for _, part := range splitList(t) {
			key := strings.ToLower(part)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}
