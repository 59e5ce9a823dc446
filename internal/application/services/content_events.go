package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/domain/providers"
)

// contentEvents announces content writes. A nil bus makes every emit a no-op and a
// failed publish never fails the write; cached responses then expire by TTL.
type contentEvents struct {
	bus providers.EventBus
}

func (e contentEvents) emit(ctx context.Context, kind entities.ContentKind, id, slug string, action entities.ContentAction) {
	if e.bus == nil {
		return
	}
	event := entities.NewContentEvent(kind, id, slug, action)
	if err := e.bus.Publish(ctx, providers.EventChannelContentUpdates, event); err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Str("entity_id", id).Msg("Failed to publish content event")
	}
}
