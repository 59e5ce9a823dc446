package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/domain/repositories"
	"github.com/afferentology/platform/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
)

const practitionersTable = "practitioners"

var practitionerColumns = []interface{}{
	"id", "first_name", "last_name", "email", "phone", "clinic_name",
	"street_address", "city", "state", "postal_code", "country",
	"latitude", "longitude", "website", "bio", "years_experience",
	"certifications", "specialties", "status", "approved_at", "approved_by",
	"created_at", "updated_at",
}

// PractitionerAdapter implements PractitionerRepository on Postgres.
type PractitionerAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPractitionerAdapter creates a new practitioner adapter
func NewPractitionerAdapter(client *postgres.Client) repositories.PractitionerRepository {
	return &PractitionerAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a new listing. A duplicate email surfaces as a conflict.
func (a *PractitionerAdapter) Create(ctx context.Context, p *entities.Practitioner) error {
	record := a.mutableRecord(p)
	record["id"] = p.ID
	record["status"] = string(p.Status)
	record["approved_at"] = nullTime(p.ApprovedAt)
	record["approved_by"] = nullString(p.ApprovedBy)
	record["created_at"] = p.CreatedAt

	query, args, err := a.db.Insert(practitionersTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("practitioner with email %s already exists", p.Email))
		}
		return apperrors.NewInternalError("failed to create practitioner", err)
	}
	return nil
}

// Update rewrites the profile fields and leaves moderation columns untouched.
func (a *PractitionerAdapter) Update(ctx context.Context, p *entities.Practitioner) error {
	query, args, err := a.db.Update(practitionersTable).
		Set(a.mutableRecord(p)).
		Where(goqu.Ex{"id": p.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("practitioner with email %s already exists", p.Email))
		}
		return apperrors.NewInternalError("failed to update practitioner", err)
	}
	return requireAffected(result, fmt.Sprintf("practitioner with id %s not found", p.ID))
}

func (a *PractitionerAdapter) mutableRecord(p *entities.Practitioner) goqu.Record {
	return goqu.Record{
		"first_name":       p.FirstName,
		"last_name":        p.LastName,
		"email":            p.Email,
		"phone":            nullString(p.Phone),
		"clinic_name":      p.ClinicName,
		"street_address":   p.StreetAddress,
		"city":             p.City,
		"state":            nullString(p.State),
		"postal_code":      p.PostalCode,
		"country":          p.Country,
		"latitude":         nullFloat(p.Latitude),
		"longitude":        nullFloat(p.Longitude),
		"website":          nullString(p.Website),
		"bio":              nullString(p.Bio),
		"years_experience": p.YearsExperience,
		"certifications":   pq.Array(stringsOrEmpty(p.Certifications)),
		"specialties":      pq.Array(stringsOrEmpty(p.Specialties)),
		"updated_at":       p.UpdatedAt,
	}
}

// GetByID retrieves a listing by ID
func (a *PractitionerAdapter) GetByID(ctx context.Context, id string) (*entities.Practitioner, error) {
	p, err := a.getOne(ctx, goqu.Ex{"id": id})
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("practitioner with id %s not found", id))
	}
	return p, err
}

// GetByEmail returns nil, nil when no listing uses email.
func (a *PractitionerAdapter) GetByEmail(ctx context.Context, email string) (*entities.Practitioner, error) {
	p, err := a.getOne(ctx, goqu.Ex{"email": email})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (a *PractitionerAdapter) getOne(ctx context.Context, where goqu.Ex) (*entities.Practitioner, error) {
	query, args, err := a.db.Select(practitionerColumns...).
		From(practitionersTable).
		Where(where).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	p, err := scanPractitioner(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get practitioner", err)
	}
	return p, nil
}

// List returns listings newest first, optionally filtered by status.
func (a *PractitionerAdapter) List(ctx context.Context, filter entities.PractitionerFilter) ([]*entities.Practitioner, error) {
	ds := a.db.Select(practitionerColumns...).From(practitionersTable)
	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(filter.Status)})
	}
	ds = ds.Order(goqu.I("created_at").Desc(), goqu.I("id").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}
	return a.query(ctx, ds)
}

// ListSearchable returns approved listings that have both coordinates.
func (a *PractitionerAdapter) ListSearchable(ctx context.Context) ([]*entities.Practitioner, error) {
	ds := a.db.Select(practitionerColumns...).
		From(practitionersTable).
		Where(
			goqu.Ex{"status": string(entities.PractitionerStatusApproved)},
			goqu.I("latitude").IsNotNull(),
			goqu.I("longitude").IsNotNull(),
		).
		Order(goqu.I("created_at").Asc(), goqu.I("id").Asc())
	return a.query(ctx, ds)
}

func (a *PractitionerAdapter) query(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.Practitioner, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list practitioners", err)
	}
	defer rows.Close()

	practitioners := make([]*entities.Practitioner, 0)
	for rows.Next() {
		p, err := scanPractitioner(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan practitioner", err)
		}
		practitioners = append(practitioners, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate practitioners", err)
	}
	return practitioners, nil
}

// UpdateStatus sets the moderation columns of one listing.
func (a *PractitionerAdapter) UpdateStatus(ctx context.Context, id string, status entities.PractitionerStatus, approvedAt *time.Time, approvedBy string) error {
	query, args, err := a.db.Update(practitionersTable).
		Set(goqu.Record{
			"status":      string(status),
			"approved_at": nullTime(approvedAt),
			"approved_by": nullString(approvedBy),
			"updated_at":  time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update practitioner status", err)
	}
	return requireAffected(result, fmt.Sprintf("practitioner with id %s not found", id))
}

// Delete removes a listing
func (a *PractitionerAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(practitionersTable).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete practitioner", err)
	}
	return requireAffected(result, fmt.Sprintf("practitioner with id %s not found", id))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPractitioner(row rowScanner) (*entities.Practitioner, error) {
	p := &entities.Practitioner{}
	var (
		phone, state, website, bio, approvedBy sql.NullString
		lat, lng                               sql.NullFloat64
		approvedAt                             sql.NullTime
		status                                 string
	)

	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&phone,
		&p.ClinicName,
		&p.StreetAddress,
		&p.City,
		&state,
		&p.PostalCode,
		&p.Country,
		&lat,
		&lng,
		&website,
		&bio,
		&p.YearsExperience,
		pq.Array(&p.Certifications),
		pq.Array(&p.Specialties),
		&status,
		&approvedAt,
		&approvedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Phone = phone.String
	p.State = state.String
	p.Website = website.String
	p.Bio = bio.String
	p.ApprovedBy = approvedBy.String
	p.Status = entities.PractitionerStatus(status)
	p.Latitude = floatPtr(lat)
	p.Longitude = floatPtr(lng)
	p.ApprovedAt = timePtr(approvedAt)
	p.Certifications = stringsOrEmpty(p.Certifications)
	p.Specialties = stringsOrEmpty(p.Specialties)
	return p, nil
}

func requireAffected(result sql.Result, notFound string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(notFound)
	}
	return nil
}
