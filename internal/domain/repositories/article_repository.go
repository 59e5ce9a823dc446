package repositories

import (
	"context"
	"time"

	"github.com/afferentology/platform/backend/internal/domain/entities"
)

// ArticleRepository is the privileged handle: reads and writes every article regardless of state.
type ArticleRepository interface {
	Create(ctx context.Context, article *entities.Article) error
	Update(ctx context.Context, article *entities.Article) error
	GetByID(ctx context.Context, id string) (*entities.Article, error)
	SlugExists(ctx context.Context, slug string, excludeID string) (bool, error)
	List(ctx context.Context, filter entities.ArticleFilter) ([]*entities.ArticleSummary, error)
	Delete(ctx context.Context, id string) error
	SetPublished(ctx context.Context, id string, published bool, at time.Time) error

	// ListDueForPublish returns unpublished articles with scheduled_at <= now.
	ListDueForPublish(ctx context.Context, now time.Time) ([]*entities.Article, error)
	// ListPendingSchedule returns every scheduled, unpublished article ordered by scheduled_at.
	ListPendingSchedule(ctx context.Context) ([]*entities.PendingArticle, error)
	// PublishScheduled flips one article to published only if it is still unpublished
	// and due at now. It reports false when another writer got there first or the
	// schedule was cleared or moved.
	PublishScheduled(ctx context.Context, id string, now time.Time) (bool, error)
}

// PublicArticleRepository is the anonymous handle: only published articles are visible.
type PublicArticleRepository interface {
	GetPublishedBySlug(ctx context.Context, slug string) (*entities.Article, error)
	ListPublished(ctx context.Context, filter entities.ArticleFilter) ([]*entities.ArticleSummary, error)
	IncrementViews(ctx context.Context, id string) error
}

// ArticleSearchRepository indexes published articles for full-text search.
type ArticleSearchRepository interface {
	Index(ctx context.Context, article *entities.Article) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]*entities.ArticleSearchHit, error)
}
