package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/domain/repositories"
	"github.com/afferentology/platform/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
)

// PublicArticleAdapter serves anonymous reads. Every query is restricted to published rows,
// and it is wired to the low-privilege database role.
type PublicArticleAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPublicArticleAdapter creates a new public article adapter
func NewPublicArticleAdapter(client *postgres.Client) repositories.PublicArticleRepository {
	return &PublicArticleAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetPublishedBySlug returns a published article or NOT_FOUND.
func (a *PublicArticleAdapter) GetPublishedBySlug(ctx context.Context, slug string) (*entities.Article, error) {
	query, args, err := a.db.Select(articleColumns...).
		From(articlesTable).
		Where(goqu.Ex{"slug": slug, "published": true}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	article, err := scanArticle(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("article %s not found", slug))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get article", err)
	}
	return article, nil
}

// ListPublished returns published summaries, newest publication first.
func (a *PublicArticleAdapter) ListPublished(ctx context.Context, filter entities.ArticleFilter) ([]*entities.ArticleSummary, error) {
	ds := a.db.Select(articleSummaryColumns...).
		From(articlesTable).
		Where(goqu.Ex{"published": true})
	if filter.Category != "" {
		ds = ds.Where(goqu.Ex{"category": filter.Category})
	}
	ds = pageArticles(ds.Order(goqu.I("published_at").Desc().NullsLast(), goqu.I("id").Asc()), filter)
	return listSummaries(ctx, a.client, ds)
}

// IncrementViews adds one to the view counter in a single statement.
func (a *PublicArticleAdapter) IncrementViews(ctx context.Context, id string) error {
	query, args, err := a.db.Update(articlesTable).
		Set(goqu.Record{"views": goqu.L("views + 1")}).
		Where(goqu.Ex{"id": id, "published": true}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to increment views", err)
	}
	return requireAffected(result, fmt.Sprintf("article with id %s not found", id))
}
