package events

import (
	"context"
	"errors"
	"sync"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/domain/providers"
)

// ErrBusClosed is returned by operations on a closed LocalEventBus.
var ErrBusClosed = errors.New("event bus closed")

// LocalEventBus delivers events within one process. It is used when Redis is disabled.
type LocalEventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.ContentEvent]struct{}
	closed      bool
}

// NewLocalEventBus creates an in-process event bus.
func NewLocalEventBus() *LocalEventBus {
	return &LocalEventBus{subscribers: make(map[string]map[chan *entities.ContentEvent]struct{})}
}

var _ providers.EventBus = (*LocalEventBus)(nil)

func (b *LocalEventBus) Publish(_ context.Context, channel string, event *entities.ContentEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	fanOut(b.subscribers[channel], event, channel)
	return nil
}

func (b *LocalEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ContentEvent, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.ContentEvent]struct{})
	}
	eventChan := make(chan *entities.ContentEvent, subscriberBuffer)
	b.subscribers[channel][eventChan] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(channel, eventChan)
	}()
	return eventChan, nil
}

func (b *LocalEventBus) remove(channel string, eventChan chan *entities.ContentEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[channel][eventChan]; !ok {
		return
	}
	delete(b.subscribers[channel], eventChan)
	close(eventChan)
	if len(b.subscribers[channel]) == 0 {
		delete(b.subscribers, channel)
	}
}

func (b *LocalEventBus) Unsubscribe(_ context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for subscriber := range b.subscribers[channel] {
		close(subscriber)
	}
	delete(b.subscribers, channel)
	return nil
}

func (b *LocalEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for channel, subscribers := range b.subscribers {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}
	return nil
}
