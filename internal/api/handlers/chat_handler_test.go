package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afferentology/platform/backend/internal/api/handlers"
	"github.com/afferentology/platform/backend/internal/domain/entities"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
)

type stubChat struct {
	deltas  []string
	err     error
	history []entities.ChatMessage
}

func (s *stubChat) Stream(ctx context.Context, history []entities.ChatMessage, onDelta func(string) error) error {
	s.history = history
	for _, d := range s.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return s.err
}

func TestChatHandler_StreamsDeltas(t *testing.T) {
	chat := &stubChat{deltas: []string{"Hel", "lo \"there\""}}
	handler := handlers.NewChatHandler(chat)

	body := `{"messages":[{"role":"user","content":"Hi"}]}`
	w := httptest.NewRecorder()
	handler.Stream(w, httptest.NewRequest("POST", "/api/chat", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t,
		"data: {\"delta\":\"Hel\"}\n\ndata: {\"delta\":\"lo \\\"there\\\"\"}\n\ndata: [DONE]\n\n",
		w.Body.String())
	require.Len(t, chat.history, 1)
	assert.Equal(t, entities.ChatRoleUser, chat.history[0].Role)
}

func TestChatHandler_ErrorBeforeStream(t *testing.T) {
	chat := &stubChat{err: apperrors.NewValidationError("invalid role")}
	handler := handlers.NewChatHandler(chat)

	body := `{"messages":[{"role":"robot","content":"Hi"}]}`
	w := httptest.NewRecorder()
	handler.Stream(w, httptest.NewRequest("POST", "/api/chat", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid role")
}

func TestChatHandler_ErrorMidStream(t *testing.T) {
	chat := &stubChat{deltas: []string{"partial"}, err: apperrors.NewExternalError("chat completion failed", nil)}
	handler := handlers.NewChatHandler(chat)

	body := `{"messages":[{"role":"user","content":"Hi"}]}`
	w := httptest.NewRecorder()
	handler.Stream(w, httptest.NewRequest("POST", "/api/chat", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data: {"delta":"partial"}`)
	assert.Contains(t, w.Body.String(), `data: {"error":"chat completion failed"}`)
	assert.NotContains(t, w.Body.String(), "[DONE]")
}

func TestChatHandler_RequiresMessages(t *testing.T) {
	handler := handlers.NewChatHandler(&stubChat{})

	w := httptest.NewRecorder()
	handler.Stream(w, httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"messages":[]}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
