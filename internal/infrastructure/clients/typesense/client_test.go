package typesense

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afferentology/platform/backend/pkg/config"
)

func TestNewClientAndInitSchema(t *testing.T) {
	var created atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-TYPESENSE-API-KEY"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/health":
			_, _ = w.Write([]byte(`{"ok":true}`))
		case r.Method == http.MethodGet && r.URL.Path == "/collections/articles":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/collections":
			created.Store(true)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"name":"articles","fields":[],"num_documents":0,"created_at":0}`))
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), &config.TypesenseConfig{URL: srv.URL, APIKey: "test-key"})
	require.NoError(t, err)

	require.NoError(t, client.InitSchema(context.Background()))
	assert.True(t, created.Load())
}

func TestArticleSchema(t *testing.T) {
	schema := ArticleSchema()
	assert.Equal(t, ArticlesCollection, schema.Name)
	require.NotNil(t, schema.DefaultSortingField)
	assert.Equal(t, "published_at", *schema.DefaultSortingField)

	names := make([]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "title")
	assert.Contains(t, names, "content")
	assert.Contains(t, names, "tags")
}
