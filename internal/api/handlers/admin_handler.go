package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/api/middleware"
)

// AdminAuthenticator checks the admin credential and issues session tokens.
type AdminAuthenticator interface {
	Configured() bool
	Authenticate(credential string) bool
	IssueToken() (string, time.Time, error)
}

// AdminHandler handles the admin login route.
type AdminHandler struct {
	auth AdminAuthenticator
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(auth AdminAuthenticator) *AdminHandler {
	return &AdminHandler{auth: auth}
}

type verifyRequest struct {
	Password string `json:"password"`
}

// Verify handles POST /api/admin/verify
func (h *AdminHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if !h.auth.Configured() {
		respondWithError(w, http.StatusInternalServerError, "Admin password not configured")
		return
	}

	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if !h.auth.Authenticate(req.Password) {
		log.Warn().Str("ip", middleware.ClientIP(r)).Msg("Failed admin login")
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}

	token, expires, err := h.auth.IssueToken()
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue admin token")
		respondWithError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"token":         token,
		"expires_at":    expires,
	})
}
