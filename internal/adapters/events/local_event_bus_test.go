package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/domain/providers"
)

func receive(t *testing.T, ch <-chan *entities.ContentEvent) *entities.ContentEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestLocalEventBus_FanOut(t *testing.T) {
	bus := NewLocalEventBus()
	defer bus.Close()
	ctx := context.Background()

	a, err := bus.Subscribe(ctx, providers.EventChannelContentUpdates)
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx, providers.EventChannelContentUpdates)
	require.NoError(t, err)
	other, err := bus.Subscribe(ctx, "other")
	require.NoError(t, err)

	event := entities.NewContentEvent(entities.ContentKindArticle, "a1", "nerve-health", entities.ContentActionPublished)
	require.NoError(t, bus.Publish(ctx, providers.EventChannelContentUpdates, event))

	assert.Equal(t, "a1", receive(t, a).EntityID)
	assert.Equal(t, entities.ContentActionPublished, receive(t, b).Action)
	select {
	case <-other:
		t.Fatal("unexpected event on other channel")
	default:
	}
}

func TestLocalEventBus_ContextCancelClosesChannel(t *testing.T) {
	bus := NewLocalEventBus()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, providers.EventChannelContentUpdates)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel was not closed")
	}
}

func TestLocalEventBus_Close(t *testing.T) {
	bus := NewLocalEventBus()
	ch, err := bus.Subscribe(context.Background(), providers.EventChannelContentUpdates)
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	_, ok := <-ch
	assert.False(t, ok)

	err = bus.Publish(context.Background(), providers.EventChannelContentUpdates, &entities.ContentEvent{})
	assert.ErrorIs(t, err, ErrBusClosed)
	_, err = bus.Subscribe(context.Background(), "x")
	assert.ErrorIs(t, err, ErrBusClosed)
	assert.NoError(t, bus.Close())
}
