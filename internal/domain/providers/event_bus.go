package providers

import (
	"context"

	"github.com/afferentology/platform/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to content events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.ContentEvent) error

	// Subscribe returns a channel of events that is closed when ctx ends or the bus closes.
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ContentEvent, error)

	// Unsubscribe drops every subscriber of a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelContentUpdates carries every article and practitioner change.
	EventChannelContentUpdates = "content:updates"

	// HTTPCachePrefix prefixes every cached public response key.
	HTTPCachePrefix = "http:cache:"
)

// HTTPCacheKeyPrefix returns the key prefix shared by all cached responses under path.
func HTTPCacheKeyPrefix(path string) string {
	return HTTPCachePrefix + path
}
