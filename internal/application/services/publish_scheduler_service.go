package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/domain/providers"
	"github.com/afferentology/platform/backend/internal/domain/repositories"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
)

// SweepRecorder receives the outcome of every sweep for metrics.
type SweepRecorder interface {
	RecordSweep(ctx context.Context, published, failed int)
}

// PublishSchedulerService flips scheduled articles to published once their time has come.
type PublishSchedulerService struct {
	repo     repositories.ArticleRepository
	index    repositories.ArticleSearchRepository
	recorder SweepRecorder
	events   contentEvents
	now      func() time.Time
}

// NewPublishSchedulerService creates the sweep. index may be nil.
func NewPublishSchedulerService(repo repositories.ArticleRepository, index repositories.ArticleSearchRepository) *PublishSchedulerService {
	return &PublishSchedulerService{
		repo:  repo,
		index: index,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetRecorder attaches a metrics recorder. Call before Start.
func (s *PublishSchedulerService) SetRecorder(r SweepRecorder) {
	s.recorder = r
}

// SetEventBus announces every article the sweep publishes.
func (s *PublishSchedulerService) SetEventBus(bus providers.EventBus) {
	s.events.bus = bus
}

// RunScheduledPublish publishes every unpublished article with scheduled_at <= now.
// Each article is updated independently: a failure is reported in Errors and the sweep
// continues. An article that another run already published is reported in neither list.
// Only a failure to query the due articles is returned as an error.
func (s *PublishSchedulerService) RunScheduledPublish(ctx context.Context, now time.Time) (*entities.PublishResult, error) {
	due, err := s.repo.ListDueForPublish(ctx, now)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query scheduled articles", err)
	}

	result := &entities.PublishResult{
		Published: make([]entities.PublishedArticle, 0, len(due)),
	}
	if len(due) == 0 {
		return result, nil
	}

	for _, article := range due {
		flipped, err := s.repo.PublishScheduled(ctx, article.ID, now)
		if err != nil {
			log.Error().Err(err).Str("article_id", article.ID).Msg("Failed to publish scheduled article")
			result.Errors = append(result.Errors, entities.PublishFailure{
				ID:    article.ID,
				Title: article.Title,
				Error: err.Error(),
			})
			continue
		}
		if !flipped {
			log.Debug().Str("article_id", article.ID).Msg("Scheduled article no longer due; skipped")
			continue
		}

		article.Publish(now)
		result.Published = append(result.Published, entities.PublishedArticle{
			ID:    article.ID,
			Title: article.Title,
			Slug:  article.Slug,
		})
		s.events.emit(ctx, entities.ContentKindArticle, article.ID, article.Slug, entities.ContentActionPublished)

		if s.index != nil {
			if err := s.index.Index(ctx, article); err != nil {
				log.Warn().Err(err).Str("article_id", article.ID).Msg("Failed to index published article")
			}
		}
	}

	log.Info().
		Int("due", len(due)).
		Int("published", len(result.Published)).
		Int("failed", len(result.Errors)).
		Msg("Scheduled publication sweep finished")

	if s.recorder != nil {
		s.recorder.RecordSweep(ctx, len(result.Published), len(result.Errors))
	}
	return result, nil
}

// ListPending returns articles still waiting for their scheduled time, soonest first.
func (s *PublishSchedulerService) ListPending(ctx context.Context) ([]*entities.PendingArticle, error) {
	pending, err := s.repo.ListPendingSchedule(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list scheduled articles", err)
	}
	return pending, nil
}

// Start runs the sweep immediately and then every interval until ctx is cancelled.
func (s *PublishSchedulerService) Start(ctx context.Context, interval time.Duration) {
	run := func() {
		if _, err := s.RunScheduledPublish(ctx, s.now()); err != nil {
			log.Error().Err(err).Msg("Scheduled publication sweep failed")
		}
	}
	run()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Stopping scheduled publication sweep")
				return
			case <-ticker.C:
				run()
			}
		}
	}()
	log.Info().Dur("interval", interval).Msg("Started scheduled publication sweep")
}
