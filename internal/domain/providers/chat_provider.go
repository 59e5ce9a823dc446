package providers

import (
	"context"

	"github.com/afferentology/platform/backend/internal/domain/entities"
)

// ChatCompletionProvider streams a completion for a conversation.
// onDelta is called with each content fragment in order; returning an error stops the stream.
type ChatCompletionProvider interface {
	StreamChat(ctx context.Context, messages []entities.ChatMessage, onDelta func(string) error) error
}
