package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/domain/providers"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
)

const (
	maxChatMessages      = 40
	maxChatMessageLength = 4000
)

// AssistantSystemPrompt frames every chat conversation.
const AssistantSystemPrompt = `You are an expert assistant for Afferentology, a neuromuscular assessment and treatment approach founded by Dr. Simon King.

Key Concepts:
- Afferentology focuses on identifying and removing "hidden irritants" that cause the nervous system to trigger a Withdrawal Reflex
- The Withdrawal Reflex inhibits muscle function to protect the body from perceived threats
- Common hidden irritants include: dental work (crowns, fillings, root canals), scar tissue, piercings, joint dysfunction
- The 50Hz Resting Tone represents the neurological frequency required for muscle readiness and stability
- When irritants are present, the brain down-regulates the 50Hz signal, causing muscle weakness
- Precision Muscle Testing is used to identify which muscles are inhibited and locate the source of aberrant afferent input
- Treatment involves "negating" the corrupted sensory signal, allowing the brain to restore normal muscle tone

Clinical Framework:
1. The Signal - Test the 50Hz resting tone to identify inhibition
2. The Irritant - Find the hidden source of aberrant afferent input
3. The Correction - Remove or neutralize the irritant to restore function

Historical Foundation:
- Based on Sir Charles Sherrington's neuromuscular reflex research (1906)
- Muscles are viewed as the beginning and ending of the nervous system
- Strength is restored by removing irritants to sensory (afferent) input

Your role:
- Answer questions about Afferentology principles and practices
- Explain the nail-in-the-foot analogy (pain is a signal, not the problem)
- Help users understand the difference between structural ("hardware") and neurological ("software") dysfunction
- Guide patients toward finding a certified practitioner
- Educate practitioners on the 50Hz protocols

Be conversational, clear, and use the nail-in-the-foot metaphor when explaining concepts. Always emphasize that Afferentology identifies WHY the body isn't healing itself.`

// ChatService forwards conversations to the completion provider under a fixed system prompt.
type ChatService struct {
	provider providers.ChatCompletionProvider
}

// NewChatService creates a new chat service.
func NewChatService(provider providers.ChatCompletionProvider) *ChatService {
	return &ChatService{provider: provider}
}

// PrepareConversation validates caller history and prepends the system prompt.
// Caller-supplied system messages are dropped.
func PrepareConversation(history []entities.ChatMessage) ([]entities.ChatMessage, error) {
	out := make([]entities.ChatMessage, 0, len(history)+1)
	out = append(out, entities.ChatMessage{Role: entities.ChatRoleSystem, Content: AssistantSystemPrompt})

	for _, m := range history {
		switch m.Role {
		case entities.ChatRoleSystem:
			continue
		case entities.ChatRoleUser, entities.ChatRoleAssistant:
		default:
			return nil, apperrors.NewValidationError("unsupported message role: " + string(m.Role))
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if len(content) > maxChatMessageLength {
			return nil, apperrors.NewValidationError("message is too long")
		}
		out = append(out, entities.ChatMessage{Role: m.Role, Content: content})
	}

	if len(out) == 1 {
		return nil, apperrors.NewValidationError("messages are required")
	}
	if len(out)-1 > maxChatMessages {
		// Keep the system prompt and the most recent turns.
		out = append(out[:1], out[len(out)-maxChatMessages:]...)
	}
	if out[len(out)-1].Role != entities.ChatRoleUser {
		return nil, apperrors.NewValidationError("last message must come from the user")
	}
	return out, nil
}

// Stream answers the conversation, passing each generated fragment to onDelta.
func (s *ChatService) Stream(ctx context.Context, history []entities.ChatMessage, onDelta func(string) error) error {
	messages, err := PrepareConversation(history)
	if err != nil {
		return err
	}
	if s.provider == nil {
		return apperrors.NewExternalError("chat assistant is not configured", nil)
	}

	if err := s.provider.StreamChat(ctx, messages, onDelta); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error().Err(err).Int("turns", len(messages)-1).Msg("Chat completion failed")
		return apperrors.NewExternalError("chat completion failed", err)
	}
	return nil
}
