package repositories

import (
	"context"
	"time"

	"github.com/afferentology/platform/backend/internal/domain/entities"
)

// PractitionerRepository defines persistence for directory listings.
type PractitionerRepository interface {
	Create(ctx context.Context, practitioner *entities.Practitioner) error
	// Update writes every mutable field except status, approved_at and approved_by.
	Update(ctx context.Context, practitioner *entities.Practitioner) error
	GetByID(ctx context.Context, id string) (*entities.Practitioner, error)
	// GetByEmail returns nil, nil when no listing uses the email.
	GetByEmail(ctx context.Context, email string) (*entities.Practitioner, error)
	List(ctx context.Context, filter entities.PractitionerFilter) ([]*entities.Practitioner, error)
	// ListSearchable returns approved listings with both coordinates set, in a stable order.
	ListSearchable(ctx context.Context) ([]*entities.Practitioner, error)
	UpdateStatus(ctx context.Context, id string, status entities.PractitionerStatus, approvedAt *time.Time, approvedBy string) error
	Delete(ctx context.Context, id string) error
}
