package entities

import (
	"strings"
	"time"
)

// PractitionerStatus is the moderation state of a directory listing.
type PractitionerStatus string

const (
	PractitionerStatusPending  PractitionerStatus = "pending"
	PractitionerStatusApproved PractitionerStatus = "approved"
	PractitionerStatusRejected PractitionerStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s PractitionerStatus) Valid() bool {
	switch s {
	case PractitionerStatusPending, PractitionerStatusApproved, PractitionerStatusRejected:
		return true
	}
	return false
}

// Practitioner is a directory listing. Email is the natural key used to match resubmissions.
type Practitioner struct {
	ID              string             `json:"id" db:"id"`
	FirstName       string             `json:"first_name" db:"first_name"`
	LastName        string             `json:"last_name" db:"last_name"`
	Email           string             `json:"email" db:"email"`
	Phone           string             `json:"phone" db:"phone"`
	ClinicName      string             `json:"clinic_name" db:"clinic_name"`
	StreetAddress   string             `json:"street_address" db:"street_address"`
	City            string             `json:"city" db:"city"`
	State           string             `json:"state" db:"state"`
	PostalCode      string             `json:"postal_code" db:"postal_code"`
	Country         string             `json:"country" db:"country"`
	Latitude        *float64           `json:"latitude" db:"latitude"`
	Longitude       *float64           `json:"longitude" db:"longitude"`
	Website         string             `json:"website,omitempty" db:"website"`
	Bio             string             `json:"bio,omitempty" db:"bio"`
	YearsExperience int                `json:"years_experience" db:"years_experience"`
	Certifications  []string           `json:"certifications" db:"certifications"`
	Specialties     []string           `json:"specialties" db:"specialties"`
	Status          PractitionerStatus `json:"status" db:"status"`
	ApprovedAt      *time.Time         `json:"approved_at" db:"approved_at"`
	ApprovedBy      string             `json:"approved_by,omitempty" db:"approved_by"`
	CreatedAt       time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" db:"updated_at"`
}

// HasCoordinates reports whether the listing was geocoded.
func (p *Practitioner) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// FullName returns "First Last".
func (p *Practitioner) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// PractitionerApplication is the intake form payload.
type PractitionerApplication struct {
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Phone           string `json:"phone" validate:"max=50"`
	ClinicName      string `json:"clinic_name" validate:"required,max=200"`
	StreetAddress   string `json:"street_address" validate:"required,max=300"`
	City            string `json:"city" validate:"required,max=100"`
	State           string `json:"state" validate:"max=100"`
	PostalCode      string `json:"postal_code" validate:"required,max=20"`
	Country         string `json:"country" validate:"max=100"`
	Website         string `json:"website" validate:"omitempty,max=500"`
	Bio             string `json:"bio" validate:"max=5000"`
	YearsExperience int    `json:"years_experience" validate:"gte=0,lte=80"`
	// The form sends single free-text values for these.
	Certifications string `json:"certifications" validate:"max=1000"`
	Specialties    string `json:"specialties" validate:"max=1000"`
}

// PractitionerMatch is a search hit with its distance from the query point in miles.
type PractitionerMatch struct {
	*Practitioner
	Distance float64 `json:"distance"`
}

// SubmitResult is returned by an intake submission.
type SubmitResult struct {
	Practitioner *Practitioner `json:"practitioner"`
	IsUpdate     bool          `json:"isUpdate"`
}

// PractitionerFilter narrows admin listings.
type PractitionerFilter struct {
	Status PractitionerStatus
	Limit  int
	Offset int
}

// ImportReport summarises a bulk CSV import.
type ImportReport struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
