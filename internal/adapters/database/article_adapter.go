package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/domain/repositories"
	"github.com/afferentology/platform/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
)

const articlesTable = "articles"

var articleColumns = []interface{}{
	"id", "title", "slug", "excerpt", "content", "author_name",
	"featured_image_url", "category", "tags", "published", "published_at",
	"scheduled_at", "views", "created_at", "updated_at",
}

var articleSummaryColumns = []interface{}{
	"id", "title", "slug", "excerpt", "category", "published",
	"published_at", "scheduled_at", "views", "created_at",
}

// ArticleAdapter is the privileged article store used by admin routes and the publish sweep.
type ArticleAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewArticleAdapter creates a new article adapter
func NewArticleAdapter(client *postgres.Client) repositories.ArticleRepository {
	return &ArticleAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts an article. A duplicate slug surfaces as a conflict.
func (a *ArticleAdapter) Create(ctx context.Context, article *entities.Article) error {
	record := articleRecord(article)
	record["id"] = article.ID
	record["views"] = article.Views
	record["created_at"] = article.CreatedAt

	query, args, err := a.db.Insert(articlesTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("slug already in use: %s", article.Slug))
		}
		return apperrors.NewInternalError("failed to create article", err)
	}
	return nil
}

// Update writes every editable column. The view counter is never overwritten.
func (a *ArticleAdapter) Update(ctx context.Context, article *entities.Article) error {
	query, args, err := a.db.Update(articlesTable).
		Set(articleRecord(article)).
		Where(goqu.Ex{"id": article.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("slug already in use: %s", article.Slug))
		}
		return apperrors.NewInternalError("failed to update article", err)
	}
	return requireAffected(result, fmt.Sprintf("article with id %s not found", article.ID))
}

func articleRecord(article *entities.Article) goqu.Record {
	return goqu.Record{
		"title":              article.Title,
		"slug":               article.Slug,
		"excerpt":            article.Excerpt,
		"content":            article.Content,
		"author_name":        article.AuthorName,
		"featured_image_url": nullString(article.FeaturedImageURL),
		"category":           nullString(article.Category),
		"tags":               pq.Array(stringsOrEmpty(article.Tags)),
		"published":          article.Published,
		"published_at":       nullTime(article.PublishedAt),
		"scheduled_at":       nullTime(article.ScheduledAt),
		"updated_at":         article.UpdatedAt,
	}
}

// GetByID retrieves any article regardless of state.
func (a *ArticleAdapter) GetByID(ctx context.Context, id string) (*entities.Article, error) {
	query, args, err := a.db.Select(articleColumns...).
		From(articlesTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	article, err := scanArticle(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("article with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get article", err)
	}
	return article, nil
}

// SlugExists reports whether another article already uses slug.
func (a *ArticleAdapter) SlugExists(ctx context.Context, slug string, excludeID string) (bool, error) {
	ds := a.db.Select(goqu.L("1")).From(articlesTable).Where(goqu.Ex{"slug": slug})
	if excludeID != "" {
		ds = ds.Where(goqu.C("id").Neq(excludeID))
	}
	query, args, err := ds.Limit(1).ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build query", err)
	}

	var one int
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternalError("failed to check slug", err)
	}
	return true, nil
}

// List returns summaries of every article, most recently updated first.
func (a *ArticleAdapter) List(ctx context.Context, filter entities.ArticleFilter) ([]*entities.ArticleSummary, error) {
	ds := a.db.Select(articleSummaryColumns...).From(articlesTable)
	if filter.Category != "" {
		ds = ds.Where(goqu.Ex{"category": filter.Category})
	}
	if cond := stateCondition(filter.State); cond != nil {
		ds = ds.Where(cond)
	}
	ds = pageArticles(ds.Order(goqu.I("updated_at").Desc(), goqu.I("id").Asc()), filter)
	return listSummaries(ctx, a.client, ds)
}

func stateCondition(state entities.ArticleState) exp.Expression {
	switch state {
	case entities.ArticleStatePublished:
		return goqu.Ex{"published": true}
	case entities.ArticleStateScheduled:
		return goqu.And(goqu.Ex{"published": false}, goqu.I("scheduled_at").IsNotNull())
	case entities.ArticleStateDraft:
		return goqu.And(goqu.Ex{"published": false}, goqu.I("scheduled_at").IsNull())
	}
	return nil
}

func pageArticles(ds *goqu.SelectDataset, filter entities.ArticleFilter) *goqu.SelectDataset {
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}
	return ds
}

// Delete removes an article
func (a *ArticleAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(articlesTable).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete article", err)
	}
	return requireAffected(result, fmt.Sprintf("article with id %s not found", id))
}

// SetPublished publishes at the given time or returns the article to draft. Either way
// any schedule is cleared.
func (a *ArticleAdapter) SetPublished(ctx context.Context, id string, published bool, at time.Time) error {
	record := goqu.Record{
		"published":    published,
		"published_at": nil,
		"scheduled_at": nil,
		"updated_at":   at,
	}
	if published {
		record["published_at"] = at
	}

	query, args, err := a.db.Update(articlesTable).
		Set(record).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update article publication", err)
	}
	return requireAffected(result, fmt.Sprintf("article with id %s not found", id))
}

// ListDueForPublish returns unpublished articles whose scheduled_at is at or before now.
func (a *ArticleAdapter) ListDueForPublish(ctx context.Context, now time.Time) ([]*entities.Article, error) {
	query, args, err := a.db.Select(articleColumns...).
		From(articlesTable).
		Where(
			goqu.Ex{"published": false},
			goqu.I("scheduled_at").IsNotNull(),
			goqu.I("scheduled_at").Lte(now),
		).
		Order(goqu.I("scheduled_at").Asc(), goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query scheduled articles", err)
	}
	defer rows.Close()

	articles := make([]*entities.Article, 0)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan article", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate articles", err)
	}
	return articles, nil
}

// ListPendingSchedule returns every scheduled, unpublished article, soonest first.
func (a *ArticleAdapter) ListPendingSchedule(ctx context.Context) ([]*entities.PendingArticle, error) {
	query, args, err := a.db.Select("id", "title", "slug", "scheduled_at", "created_at").
		From(articlesTable).
		Where(
			goqu.Ex{"published": false},
			goqu.I("scheduled_at").IsNotNull(),
		).
		Order(goqu.I("scheduled_at").Asc(), goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query scheduled articles", err)
	}
	defer rows.Close()

	pending := make([]*entities.PendingArticle, 0)
	for rows.Next() {
		p := &entities.PendingArticle{}
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.ScheduledAt, &p.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan scheduled article", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate scheduled articles", err)
	}
	return pending, nil
}

// PublishScheduled flips one scheduled article to published. The update only matches
// a row that is still unpublished and still due at now, so concurrent sweeps publish
// each article exactly once and a schedule cleared or moved mid-sweep is respected.
func (a *ArticleAdapter) PublishScheduled(ctx context.Context, id string, now time.Time) (bool, error) {
	query, args, err := a.db.Update(articlesTable).
		Set(goqu.Record{
			"published":    true,
			"published_at": now,
			"scheduled_at": nil,
			"updated_at":   now,
		}).
		Where(
			goqu.Ex{"id": id},
			goqu.Ex{"published": false},
			goqu.I("scheduled_at").IsNotNull(),
			goqu.I("scheduled_at").Lte(now),
		).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to publish article", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return rowsAffected > 0, nil
}

func scanArticle(row rowScanner) (*entities.Article, error) {
	article := &entities.Article{}
	var (
		excerpt, featured, category sql.NullString
		publishedAt, scheduledAt    sql.NullTime
	)

	err := row.Scan(
		&article.ID,
		&article.Title,
		&article.Slug,
		&excerpt,
		&article.Content,
		&article.AuthorName,
		&featured,
		&category,
		pq.Array(&article.Tags),
		&article.Published,
		&publishedAt,
		&scheduledAt,
		&article.Views,
		&article.CreatedAt,
		&article.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	article.Excerpt = excerpt.String
	article.FeaturedImageURL = featured.String
	article.Category = category.String
	article.Tags = stringsOrEmpty(article.Tags)
	article.PublishedAt = timePtr(publishedAt)
	article.ScheduledAt = timePtr(scheduledAt)
	return article, nil
}

func listSummaries(ctx context.Context, client *postgres.Client, ds *goqu.SelectDataset) ([]*entities.ArticleSummary, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list articles", err)
	}
	defer rows.Close()

	summaries := make([]*entities.ArticleSummary, 0)
	for rows.Next() {
		s := &entities.ArticleSummary{}
		var excerpt, category sql.NullString
		var publishedAt, scheduledAt sql.NullTime
		err := rows.Scan(
			&s.ID,
			&s.Title,
			&s.Slug,
			&excerpt,
			&category,
			&s.Published,
			&publishedAt,
			&scheduledAt,
			&s.Views,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan article", err)
		}
		s.Excerpt = excerpt.String
		s.Category = category.String
		s.PublishedAt = timePtr(publishedAt)
		s.ScheduledAt = timePtr(scheduledAt)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate articles", err)
	}
	return summaries, nil
}
