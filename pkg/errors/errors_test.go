package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NewNotFoundError("article not found"), http.StatusNotFound},
		{"validation", NewValidationError("email is required"), http.StatusBadRequest},
		{"conflict", NewConflictError("slug already exists"), http.StatusConflict},
		{"unauthorized", NewUnauthorizedError("missing token"), http.StatusUnauthorized},
		{"external", NewExternalError("geocoder down", fmt.Errorf("timeout")), http.StatusBadGateway},
		{"wrapped", fmt.Errorf("handler: %w", NewNotFoundError("x")), http.StatusNotFound},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage_HidesInternalDetail(t *testing.T) {
	err := NewInternalError("failed to query practitioners", fmt.Errorf("dial tcp: refused"))
	assert.Equal(t, "internal server error", PublicMessage(err))
	assert.Equal(t, "email is required", PublicMessage(NewValidationError("email is required")))
	assert.Contains(t, err.Error(), "dial tcp")
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewConflictError("dup"))
	assert.True(t, IsType(err, ErrorTypeConflict))
	assert.False(t, IsType(err, ErrorTypeNotFound))
}
