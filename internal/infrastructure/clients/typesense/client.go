package typesense

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/afferentology/platform/backend/pkg/config"
	"github.com/afferentology/platform/backend/pkg/retry"
)

const (
	ArticlesCollection = "articles"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a Typesense client and waits for the server to report healthy.
func NewClient(ctx context.Context, cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxTotalTimeout = 30 * time.Second
	err := retry.DoWithLog(ctx, retryCfg, "typesense", func() error {
		healthy, err := client.Health(ctx, 2*time.Second)
		if err != nil {
			return err
		}
		if !healthy {
			return errors.New("typesense reported unhealthy")
		}
		return nil
	}, func(attempt int, err error, next time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", next).Msg("Typesense not ready, retrying")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("Connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// InitSchema ensures the articles collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	_, err := c.client.Collection(ArticlesCollection).Retrieve(ctx)
	if err == nil {
		return nil
	}
	if !IsNotFound(err) {
		return fmt.Errorf("failed to retrieve collection %s: %w", ArticlesCollection, err)
	}

	if _, err := c.client.Collections().Create(ctx, ArticleSchema()); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", ArticlesCollection, err)
	}

	log.Info().Str("collection", ArticlesCollection).Msg("Created Typesense collection")
	return nil
}

// ArticleSchema describes the published-article search collection.
func ArticleSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: ArticlesCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "title", Type: "string"},
			{Name: "slug", Type: "string", Index: pointer.False()},
			{Name: "excerpt", Type: "string", Optional: pointer.True()},
			{Name: "content", Type: "string"},
			{Name: "author_name", Type: "string", Optional: pointer.True()},
			{Name: "category", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "tags", Type: "string[]", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "published_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("published_at"),
	}
}

// IsNotFound reports whether err is a Typesense 404.
func IsNotFound(err error) bool {
	var httpErr *typesense.HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound
}
