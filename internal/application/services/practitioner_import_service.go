package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/domain/repositories"
	"github.com/afferentology/platform/backend/pkg/geo"
)

// ImportActor is recorded as approved_by on imported listings.
const ImportActor = "CSV Import"

// PractitionerImportService bulk-loads an existing directory export as approved listings.
type PractitionerImportService struct {
	repo     repositories.PractitionerRepository
	geocoder Geocoder
	now      func() time.Time
}

// NewPractitionerImportService creates an importer. geocoder may be nil to keep missing coordinates empty.
func NewPractitionerImportService(repo repositories.PractitionerRepository, geocoder Geocoder) *PractitionerImportService {
	return &PractitionerImportService{
		repo:     repo,
		geocoder: geocoder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type csvRow map[string]string

func (r csvRow) get(col string) string {
	return strings.TrimSpace(r[col])
}

// Import reads a CSV with a header row. Rows without an email, or whose email is already
// listed, are skipped. A failing row is reported and the import continues.
func (s *PractitionerImportService) Import(ctx context.Context, src io.Reader) (*entities.ImportReport, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}

	report := &entities.ImportReport{}
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		row := make(csvRow, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}

		imported, err := s.importRow(ctx, row)
		switch {
		case err != nil:
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("line %d (%s): %v", line, row.get("title"), err))
			log.Warn().Err(err).Int("line", line).Msg("Practitioner import row failed")
		case imported:
			report.Imported++
		default:
			report.Skipped++
		}
	}

	log.Info().Int("imported", report.Imported).Int("skipped", report.Skipped).Msg("Practitioner import finished")
	return report, nil
}

func (s *PractitionerImportService) importRow(ctx context.Context, row csvRow) (bool, error) {
	email := strings.ToLower(row.get("email"))
	if email == "" {
		return false, nil
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	first, last := splitName(row.get("title"))
	if last == "" {
		last = "N/A"
	}
	now := s.now()

	p := &entities.Practitioner{
		ID:             uuid.New().String(),
		FirstName:      first,
		LastName:       last,
		Email:          email,
		Phone:          row.get("phone"),
		ClinicName:     orDefault(row.get("description"), strings.TrimSpace(first+" "+last)+" Practice"),
		Website:        row.get("website"),
		StreetAddress:  orDefault(row.get("street"), "Not provided"),
		City:           orDefault(row.get("city"), "Unknown"),
		State:          row.get("state"),
		PostalCode:     row.get("postal_code"),
		Country:        orDefault(row.get("country"), "Unknown"),
		Bio:            row.get("description_2"),
		Certifications: []string{orDefault(row.get("categories"), "Certified")},
		Specialties:    []string{},
		Status:         entities.PractitionerStatusApproved,
		ApprovedAt:     &now,
		ApprovedBy:     ImportActor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	lat, latErr := parseCoordinate(row.get("lat"))
	lng, lngErr := parseCoordinate(row.get("lng"))
	if latErr != nil || lngErr != nil {
		return false, fmt.Errorf("invalid coordinates %q,%q", row.get("lat"), row.get("lng"))
	}
	if lat != nil && lng != nil {
		if !(geo.Coordinates{Latitude: *lat, Longitude: *lng}).Valid() {
			return false, fmt.Errorf("coordinates out of range %q,%q", row.get("lat"), row.get("lng"))
		}
		p.Latitude, p.Longitude = lat, lng
	} else if s.geocoder != nil {
		if coords := s.geocoder.Geocode(ctx, Address{
			Street:     row.get("street"),
			City:       row.get("city"),
			Region:     p.State,
			PostalCode: p.PostalCode,
			Country:    row.get("country"),
		}); coords != nil {
			p.Latitude = &coords.Latitude
			p.Longitude = &coords.Longitude
		}
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return false, err
	}
	return true, nil
}

func splitName(full string) (string, string) {
	parts := strings.Fields(strings.Trim(strings.TrimSpace(full), "\""))
	switch len(parts) {
	case 0:
		return "Unknown", "Unknown"
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func parseCoordinate(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
