package providers

import (
	"context"

	"github.com/afferentology/platform/backend/internal/domain/entities"
)

// EmailSender delivers transactional email.
type EmailSender interface {
	Send(ctx context.Context, msg *entities.EmailMessage) error
}
