package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/domain/providers"
	"github.com/afferentology/platform/backend/internal/domain/repositories"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
	"github.com/afferentology/platform/backend/pkg/geo"
)

// Geocoder resolves an address to coordinates, returning nil when it cannot.
type Geocoder interface {
	Geocode(ctx context.Context, addr Address) *geo.Coordinates
}

// PractitionerNotifier receives moderation events. Implementations must not fail the caller.
type PractitionerNotifier interface {
	PractitionerSubmitted(ctx context.Context, p *entities.Practitioner, isUpdate bool)
	PractitionerApproved(ctx context.Context, p *entities.Practitioner)
}

// PractitionerService handles directory intake, moderation and proximity search.
type PractitionerService struct {
	repo     repositories.PractitionerRepository
	geocoder Geocoder
	notifier PractitionerNotifier
	events   contentEvents
	now      func() time.Time
}

// NewPractitionerService creates a new practitioner service.
func NewPractitionerService(repo repositories.PractitionerRepository, geocoder Geocoder, notifier PractitionerNotifier) *PractitionerService {
	return &PractitionerService{
		repo:     repo,
		geocoder: geocoder,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetEventBus makes changes to searchable listings announce themselves.
func (s *PractitionerService) SetEventBus(bus providers.EventBus) {
	s.events.bus = bus
}

// Submit stores an application. A listing with the same email is updated in place and keeps
// its moderation status; otherwise a pending listing is created.
func (s *PractitionerService) Submit(ctx context.Context, app *entities.PractitionerApplication) (*entities.SubmitResult, error) {
	if app == nil {
		return nil, apperrors.NewValidationError("application is required")
	}
	normalizeApplication(app)
	if err := validateStruct(app); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByEmail(ctx, app.Email)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to look up practitioner", err)
	}

	p := applicationToPractitioner(app)
	if coords := s.geocode(ctx, p); coords != nil {
		p.Latitude = &coords.Latitude
		p.Longitude = &coords.Longitude
	}

	now := s.now()
	p.UpdatedAt = now
	isUpdate := existing != nil

	if isUpdate {
		s.carryModeration(p, existing)
		if err := s.repo.Update(ctx, p); err != nil {
			return nil, apperrors.NewInternalError("failed to update practitioner", err)
		}
	} else {
		p.ID = uuid.New().String()
		p.Status = entities.PractitionerStatusPending
		p.CreatedAt = now
		err := s.repo.Create(ctx, p)
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			// A concurrent submission with the same email won the insert.
			existing, err = s.repo.GetByEmail(ctx, app.Email)
			if err == nil && existing != nil {
				isUpdate = true
				s.carryModeration(p, existing)
				err = s.repo.Update(ctx, p)
			}
		}
		if err != nil {
			return nil, apperrors.NewInternalError("failed to create practitioner", err)
		}
	}

	log.Info().
		Str("practitioner_id", p.ID).
		Bool("is_update", isUpdate).
		Bool("geocoded", p.HasCoordinates()).
		Msg("Practitioner application stored")

	// Only approved listings appear in search results.
	if p.Status == entities.PractitionerStatusApproved {
		s.events.emit(ctx, entities.ContentKindPractitioner, p.ID, "", entities.ContentActionUpdated)
	}

	if s.notifier != nil {
		s.notifier.PractitionerSubmitted(ctx, p, isUpdate)
	}

	return &entities.SubmitResult{Practitioner: p, IsUpdate: isUpdate}, nil
}

func (s *PractitionerService) carryModeration(p, existing *entities.Practitioner) {
	p.ID = existing.ID
	p.Status = existing.Status
	p.ApprovedAt = existing.ApprovedAt
	p.ApprovedBy = existing.ApprovedBy
	p.CreatedAt = existing.CreatedAt
}

func (s *PractitionerService) geocode(ctx context.Context, p *entities.Practitioner) *geo.Coordinates {
	if s.geocoder == nil {
		return nil
	}
	return s.geocoder.Geocode(ctx, Address{
		Street:     p.StreetAddress,
		City:       p.City,
		Region:     p.State,
		PostalCode: p.PostalCode,
		Country:    p.Country,
	})
}

// UpdateStatus approves or rejects a listing. approved_at is set on approval and cleared otherwise.
func (s *PractitionerService) UpdateStatus(ctx context.Context, id string, status entities.PractitionerStatus, actor string) (*entities.Practitioner, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("id is required")
	}
	if status != entities.PractitionerStatusApproved && status != entities.PractitionerStatusRejected {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid status %q", status))
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	wasApproved := p.Status == entities.PractitionerStatusApproved

	var approvedAt *time.Time
	approvedBy := ""
	if status == entities.PractitionerStatusApproved {
		now := s.now()
		approvedAt = &now
		approvedBy = actor
	}

	if err := s.repo.UpdateStatus(ctx, id, status, approvedAt, approvedBy); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, err
		}
		return nil, apperrors.NewInternalError("failed to update practitioner status", err)
	}

	p.Status = status
	p.ApprovedAt = approvedAt
	p.ApprovedBy = approvedBy

	log.Info().Str("practitioner_id", id).Str("status", string(status)).Str("actor", actor).Msg("Practitioner status changed")
	s.events.emit(ctx, entities.ContentKindPractitioner, id, "", entities.ContentActionModerated)

	if status == entities.PractitionerStatusApproved && !wasApproved && s.notifier != nil {
		s.notifier.PractitionerApproved(ctx, p)
	}

	return p, nil
}

// Search returns up to limit approved, geocoded practitioners nearest to (lat, lng).
// A zero limit yields an empty list.
func (s *PractitionerService) Search(ctx context.Context, lat, lng float64, limit int) ([]*entities.PractitionerMatch, error) {
	if !(geo.Coordinates{Latitude: lat, Longitude: lng}).Valid() {
		return nil, apperrors.NewValidationError("lat/lng out of range")
	}
	if limit < 0 {
		return nil, apperrors.NewValidationError("limit must not be negative")
	}
	if limit == 0 {
		return []*entities.PractitionerMatch{}, nil
	}

	candidates, err := s.repo.ListSearchable(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load practitioners", err)
	}

	matches := make([]*entities.PractitionerMatch, 0, len(candidates))
	for _, p := range candidates {
		if p.Status != entities.PractitionerStatusApproved || !p.HasCoordinates() {
			continue
		}
		matches = append(matches, &entities.PractitionerMatch{
			Practitioner: p,
			Distance:     geo.DistanceMiles(lat, lng, *p.Latitude, *p.Longitude),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// List returns listings for moderation, newest first.
func (s *PractitionerService) List(ctx context.Context, filter entities.PractitionerFilter) ([]*entities.Practitioner, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid status %q", filter.Status))
	}
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list practitioners", err)
	}
	return list, nil
}

// Get returns one listing.
func (s *PractitionerService) Get(ctx context.Context, id string) (*entities.Practitioner, error) {
	return s.repo.GetByID(ctx, id)
}

// Delete removes a listing.
func (s *PractitionerService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("practitioner_id", id).Msg("Practitioner deleted")
	s.events.emit(ctx, entities.ContentKindPractitioner, id, "", entities.ContentActionDeleted)
	return nil
}

func normalizeApplication(app *entities.PractitionerApplication) {
	app.Email = strings.ToLower(strings.TrimSpace(app.Email))
	app.FirstName = strings.TrimSpace(app.FirstName)
	app.LastName = strings.TrimSpace(app.LastName)
	app.ClinicName = strings.TrimSpace(app.ClinicName)
	app.StreetAddress = strings.TrimSpace(app.StreetAddress)
	app.City = strings.TrimSpace(app.City)
	app.State = strings.TrimSpace(app.State)
	app.PostalCode = strings.TrimSpace(app.PostalCode)
	app.Country = strings.TrimSpace(app.Country)
	if app.Country == "" {
		app.Country = DefaultCountry
	}
}

func applicationToPractitioner(app *entities.PractitionerApplication) *entities.Practitioner {
	return &entities.Practitioner{
		FirstName:       app.FirstName,
		LastName:        app.LastName,
		Email:           app.Email,
		Phone:           strings.TrimSpace(app.Phone),
		ClinicName:      app.ClinicName,
		StreetAddress:   app.StreetAddress,
		City:            app.City,
		State:           app.State,
		PostalCode:      app.PostalCode,
		Country:         app.Country,
		Website:         strings.TrimSpace(app.Website),
		Bio:             strings.TrimSpace(app.Bio),
		YearsExperience: app.YearsExperience,
		Certifications:  splitList(app.Certifications),
		Specialties:     splitList(app.Specialties),
	}
}
