package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/afferentology/platform/backend/internal/adapters/events"
	"github.com/afferentology/platform/backend/internal/application/services"
	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/domain/providers"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
)

// memoryArticleStore applies the sweep's guarded update semantics in memory.
type memoryArticleStore struct {
	MockArticleRepository
	mu       sync.Mutex
	articles map[string]*entities.Article
	failIDs  map[string]error
}

func newMemoryArticleStore(articles ...*entities.Article) *memoryArticleStore {
	s := &memoryArticleStore{articles: map[string]*entities.Article{}, failIDs: map[string]error{}}
	for _, a := range articles {
		s.articles[a.ID] = a
	}
	return s
}

func (s *memoryArticleStore) ListDueForPublish(_ context.Context, now time.Time) ([]*entities.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*entities.Article
	for _, a := range s.articles {
		if !a.Published && a.ScheduledAt != nil && !a.ScheduledAt.After(now) {
			cp := *a
			due = append(due, &cp)
		}
	}
	return due, nil
}

func (s *memoryArticleStore) PublishScheduled(_ context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failIDs[id]; err != nil {
		return false, err
	}
	a := s.articles[id]
	if a == nil || a.Published {
		return false, nil
	}
	a.Publish(now)
	return true, nil
}

func scheduledArticle(id string, at time.Time) *entities.Article {
	return &entities.Article{ID: id, Title: "Title " + id, Slug: "slug-" + id, ScheduledAt: &at}
}

func TestPublishScheduler_PublishesDueArticlesOnce(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryArticleStore(
		scheduledArticle("due", now.Add(-24*time.Hour)),
		scheduledArticle("future", now.Add(time.Hour)),
		&entities.Article{ID: "draft", Title: "Draft"},
	)
	svc := services.NewPublishSchedulerService(store, nil)

	first, err := svc.RunScheduledPublish(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, first.Published, 1)
	assert.Equal(t, entities.PublishedArticle{ID: "due", Title: "Title due", Slug: "slug-due"}, first.Published[0])
	assert.Empty(t, first.Errors)

	a := store.articles["due"]
	assert.True(t, a.Published)
	assert.Nil(t, a.ScheduledAt)
	assert.Equal(t, now, *a.PublishedAt)
	assert.False(t, store.articles["future"].Published)
	assert.False(t, store.articles["draft"].Published)

	second, err := svc.RunScheduledPublish(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, second.Published)
	assert.Empty(t, second.Errors)
}

func TestPublishScheduler_IsolatesFailures(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryArticleStore(
		scheduledArticle("ok", now.Add(-time.Hour)),
		scheduledArticle("broken", now.Add(-time.Hour)),
	)
	store.failIDs["broken"] = errors.New("row locked")
	svc := services.NewPublishSchedulerService(store, nil)

	res, err := svc.RunScheduledPublish(context.Background(), now)

	require.NoError(t, err)
	require.Len(t, res.Published, 1)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "ok", res.Published[0].ID)
	assert.Equal(t, entities.PublishFailure{ID: "broken", Title: "Title broken", Error: "row locked"}, res.Errors[0])
	assert.True(t, store.articles["ok"].Published)
	assert.False(t, store.articles["broken"].Published)
}

func TestPublishScheduler_ConcurrentSweepsDoNotDoubleCount(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var articles []*entities.Article
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		articles = append(articles, scheduledArticle(id, now.Add(-time.Minute)))
	}
	store := newMemoryArticleStore(articles...)
	svc := services.NewPublishSchedulerService(store, nil)

	var wg sync.WaitGroup
	results := make([]*entities.PublishResult, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.RunScheduledPublish(context.Background(), now)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	total := 0
	for _, r := range results {
		total += len(r.Published)
		assert.Empty(t, r.Errors)
	}
	assert.Equal(t, 5, total)
}

func TestPublishScheduler_NothingDue(t *testing.T) {
	repo := new(MockArticleRepository)
	repo.On("ListDueForPublish", mock.Anything, mock.Anything).Return([]*entities.Article{}, nil)
	svc := services.NewPublishSchedulerService(repo, nil)

	res, err := svc.RunScheduledPublish(context.Background(), time.Now())

	require.NoError(t, err)
	assert.NotNil(t, res.Published)
	assert.Empty(t, res.Published)
	assert.Nil(t, res.Errors)
	repo.AssertNotCalled(t, "PublishScheduled", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishScheduler_QueryFailure(t *testing.T) {
	repo := new(MockArticleRepository)
	repo.On("ListDueForPublish", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	svc := services.NewPublishSchedulerService(repo, nil)

	res, err := svc.RunScheduledPublish(context.Background(), time.Now())

	assert.Nil(t, res)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestPublishScheduler_IndexesPublishedArticles(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryArticleStore(scheduledArticle("due", now.Add(-time.Hour)))
	index := new(MockArticleIndex)
	index.On("Index", mock.Anything, mock.MatchedBy(func(a *entities.Article) bool {
		return a.ID == "due" && a.Published
	})).Return(errors.New("typesense unavailable"))
	svc := services.NewPublishSchedulerService(store, index)

	res, err := svc.RunScheduledPublish(context.Background(), now)

	require.NoError(t, err)
	assert.Len(t, res.Published, 1)
	index.AssertExpectations(t)
}

func TestPublishScheduler_ListPending(t *testing.T) {
	repo := new(MockArticleRepository)
	pending := []*entities.PendingArticle{{ID: "a", Title: "A", Slug: "a", ScheduledAt: time.Now().Add(time.Hour)}}
	repo.On("ListPendingSchedule", mock.Anything).Return(pending, nil)
	svc := services.NewPublishSchedulerService(repo, nil)

	got, err := svc.ListPending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, pending, got)
}

type countingArticleStore struct {
	MockArticleRepository
	sweeps atomic.Int32
}

func (s *countingArticleStore) ListDueForPublish(context.Context, time.Time) ([]*entities.Article, error) {
	s.sweeps.Add(1)
	return nil, nil
}

func TestPublishScheduler_StartRunsPeriodically(t *testing.T) {
	store := &countingArticleStore{}
	svc := services.NewPublishSchedulerService(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return store.sweeps.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestPublishScheduler_AnnouncesPublishedArticles(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryArticleStore(scheduledArticle("due", now.Add(-time.Minute)))
	bus := events.NewLocalEventBus()
	defer bus.Close()
	updates, err := bus.Subscribe(context.Background(), providers.EventChannelContentUpdates)
	require.NoError(t, err)

	svc := services.NewPublishSchedulerService(store, nil)
	svc.SetEventBus(bus)

	_, err = svc.RunScheduledPublish(context.Background(), now)
	require.NoError(t, err)

	select {
	case ev := <-updates:
		assert.Equal(t, entities.ContentKindArticle, ev.Kind)
		assert.Equal(t, "due", ev.EntityID)
		assert.Equal(t, "slug-due", ev.Slug)
		assert.Equal(t, entities.ContentActionPublished, ev.Action)
	case <-time.After(time.Second):
		t.Fatal("no content event published")
	}
}
