package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
)

// ChatStreamer answers a conversation fragment by fragment.
type ChatStreamer interface {
	Stream(ctx context.Context, history []entities.ChatMessage, onDelta func(string) error) error
}

// ChatHandler streams assistant replies as server-sent events.
type ChatHandler struct {
	chat ChatStreamer
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat ChatStreamer) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	Messages []entities.ChatMessage `json:"messages"`
}

// Stream handles POST /api/chat
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if len(req.Messages) == 0 {
		respondWithError(w, http.StatusBadRequest, "messages are required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Headers are deferred until the first fragment so that validation and
	// provider errors can still be returned as JSON.
	started := false
	start := func() {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		started = true
	}

	err := h.chat.Stream(r.Context(), req.Messages, func(delta string) error {
		if !started {
			start()
		}
		payload, err := json.Marshal(map[string]string{"delta": delta})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})

	if err != nil {
		if !started {
			respondWithAppError(w, r, err)
			return
		}
		// Mid-stream failures can only be reported in-band.
		log.Warn().Err(err).Msg("Chat stream interrupted")
		payload, _ := json.Marshal(map[string]string{"error": apperrors.PublicMessage(err)})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		return
	}

	if !started {
		start()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}
