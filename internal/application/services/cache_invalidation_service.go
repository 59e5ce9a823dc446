package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/domain/providers"
)

const invalidationTimeout = 5 * time.Second

// Public routes whose cached responses a content change can make stale.
var invalidationPaths = map[entities.ContentKind][]string{
	entities.ContentKindArticle:      {"/api/articles"},
	entities.ContentKindPractitioner: {"/api/practitioners"},
}

// CacheInvalidationService drops cached public responses when content changes.
// Every API instance runs one, so a write on any instance clears the shared cache
// and each instance's in-process cache.
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  bool
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins listening for events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelContentUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to content updates: %w", err)
	}

	s.started = true
	go s.processEvents(eventChan)
	log.Info().Msg("Cache invalidation service started")
	return nil
}

// Stop stops the service and waits for the event loop to exit.
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	if s.started {
		<-s.done
	}
	log.Info().Msg("Cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.ContentEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.ContentEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), invalidationTimeout)
	defer cancel()

	if err := s.Invalidate(ctx, event.Kind); err != nil {
		log.Warn().Err(err).Str("event_id", event.ID).Str("kind", string(event.Kind)).Msg("Failed to invalidate cached responses")
	}
}

// Invalidate removes every cached response that may contain content of the given kind.
func (s *CacheInvalidationService) Invalidate(ctx context.Context, kind entities.ContentKind) error {
	paths, ok := invalidationPaths[kind]
	if !ok {
		return fmt.Errorf("unknown content kind %q", kind)
	}
	for _, path := range paths {
		n, err := s.cache.DeletePrefix(ctx, providers.HTTPCacheKeyPrefix(path))
		if err != nil {
			return fmt.Errorf("failed to invalidate %s: %w", path, err)
		}
		log.Debug().Str("path", path).Int("keys", n).Msg("Invalidated cached responses")
	}
	return nil
}
