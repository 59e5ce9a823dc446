package database_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afferentology/platform/backend/internal/adapters/database"
	"github.com/afferentology/platform/backend/internal/domain/entities"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
)

func TestPublicArticleAdapter_GetPublishedBySlug(t *testing.T) {
	t.Run("only published rows match", func(t *testing.T) {
		client, mock := newMock(t)
		adapter := database.NewPublicArticleAdapter(client)

		mock.ExpectQuery(`FROM "articles" WHERE \(\("published" IS TRUE\) AND \("slug" = 'muscle-testing'\)\)`).
			WillReturnRows(sqlmock.NewRows(articleCols).AddRow(articleRow("a1", true, nil)...))

		a, err := adapter.GetPublishedBySlug(context.Background(), "muscle-testing")
		require.NoError(t, err)
		assert.True(t, a.Published)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("draft is not found", func(t *testing.T) {
		client, mock := newMock(t)
		adapter := database.NewPublicArticleAdapter(client)

		mock.ExpectQuery(`FROM "articles"`).WillReturnRows(sqlmock.NewRows(articleCols))

		_, err := adapter.GetPublishedBySlug(context.Background(), "draft-post")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}

func TestPublicArticleAdapter_ListPublished(t *testing.T) {
	client, mock := newMock(t)
	adapter := database.NewPublicArticleAdapter(client)

	mock.ExpectQuery(`WHERE \(\("published" IS TRUE\) AND \("category" = 'science'\)\) ORDER BY "published_at" DESC NULLS LAST, "id" ASC LIMIT 5`).
		WillReturnRows(sqlmock.NewRows(summaryCols))

	list, err := adapter.ListPublished(context.Background(), entities.ArticleFilter{Category: "science", Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublicArticleAdapter_IncrementViews(t *testing.T) {
	client, mock := newMock(t)
	adapter := database.NewPublicArticleAdapter(client)

	mock.ExpectExec(`UPDATE "articles" SET "views"=views \+ 1 WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.IncrementViews(context.Background(), "a1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
