package search

import (
	"context"
	"fmt"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/domain/repositories"
	tsclient "github.com/afferentology/platform/backend/internal/infrastructure/clients/typesense"
)

// ArticleIndex keeps published articles searchable in Typesense.
type ArticleIndex struct {
	client *tsclient.Client
}

var _ repositories.ArticleSearchRepository = (*ArticleIndex)(nil)

// NewArticleIndex creates a new Typesense-backed article index
func NewArticleIndex(client *tsclient.Client) *ArticleIndex {
	return &ArticleIndex{client: client}
}

// Index upserts one article document.
func (a *ArticleIndex) Index(ctx context.Context, article *entities.Article) error {
	_, err := a.client.Client().Collection(tsclient.ArticlesCollection).Documents().Upsert(ctx, articleDocument(article))
	if err != nil {
		return fmt.Errorf("failed to index article %s: %w", article.ID, err)
	}
	return nil
}

// Remove deletes an article document. Removing an article that was never indexed is not an error.
func (a *ArticleIndex) Remove(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(tsclient.ArticlesCollection).Document(id).Delete(ctx)
	if err != nil && !tsclient.IsNotFound(err) {
		return fmt.Errorf("failed to remove article %s from index: %w", id, err)
	}
	return nil
}

// Search runs a typo-tolerant query over title, excerpt, tags and content.
func (a *ArticleIndex) Search(ctx context.Context, query string, limit int) ([]*entities.ArticleSearchHit, error) {
	params := &api.SearchCollectionParams{
		Q:              pointer.String(query),
		QueryBy:        pointer.String("title,excerpt,tags,content"),
		QueryByWeights: pointer.String("4,2,2,1"),
		SortBy:         pointer.String("_text_match:desc,published_at:desc"),
		PerPage:        pointer.Int(limit),
		ExcludeFields:  pointer.String("content"),
	}

	result, err := a.client.Client().Collection(tsclient.ArticlesCollection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}

	hits := make([]*entities.ArticleSearchHit, 0)
	if result.Hits == nil {
		return hits, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		hits = append(hits, hitFromDocument(*hit.Document))
	}
	return hits, nil
}

func articleDocument(article *entities.Article) map[string]interface{} {
	publishedAt := article.UpdatedAt
	if article.PublishedAt != nil {
		publishedAt = *article.PublishedAt
	}
	tags := article.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]interface{}{
		"id":           article.ID,
		"title":        article.Title,
		"slug":         article.Slug,
		"excerpt":      article.Excerpt,
		"content":      article.Content,
		"author_name":  article.AuthorName,
		"category":     article.Category,
		"tags":         tags,
		"published_at": publishedAt.Unix(),
	}
}

// hitFromDocument reads a search document. Typesense decodes numbers as float64.
func hitFromDocument(doc map[string]interface{}) *entities.ArticleSearchHit {
	hit := &entities.ArticleSearchHit{
		ID:       stringField(doc, "id"),
		Title:    stringField(doc, "title"),
		Slug:     stringField(doc, "slug"),
		Excerpt:  stringField(doc, "excerpt"),
		Category: stringField(doc, "category"),
		Tags:     []string{},
	}
	if raw, ok := doc["tags"].([]interface{}); ok {
		for _, t := range raw {
			if s, ok := t.(string); ok {
				hit.Tags = append(hit.Tags, s)
			}
		}
	}
	if ts, ok := doc["published_at"].(float64); ok {
		at := time.Unix(int64(ts), 0).UTC()
		hit.PublishedAt = &at
	}
	return hit
}

func stringField(doc map[string]interface{}, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}
