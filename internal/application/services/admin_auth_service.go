package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/afferentology/platform/backend/pkg/errors"
)

// AdminSubject is the token subject for the single admin identity.
const AdminSubject = "admin"

// ErrAdminNotConfigured is returned when no admin credential is set.
var ErrAdminNotConfigured = errors.New("admin password not configured")

// AdminAuthService checks the shared admin credential and issues session tokens.
// It is a stand-in for per-user accounts.
type AdminAuthService struct {
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewAdminAuthService builds the service from a bcrypt hash, or from a plaintext password
// that is hashed once here. With neither, Authenticate always fails.
func NewAdminAuthService(passwordHash, plaintext, jwtSecret string, ttl time.Duration) (*AdminAuthService, error) {
	s := &AdminAuthService{
		secret: []byte(jwtSecret),
		ttl:    ttl,
		now:    time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = 12 * time.Hour
	}

	switch {
	case passwordHash != "":
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("invalid admin password hash: %w", err)
		}
		s.passwordHash = []byte(passwordHash)
	case plaintext != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin password: %w", err)
		}
		s.passwordHash = hash
	}

	if s.passwordHash != nil && len(s.secret) == 0 {
		return nil, errors.New("ADMIN_JWT_SECRET is required when an admin password is set")
	}
	return s, nil
}

// Configured reports whether an admin credential exists.
func (s *AdminAuthService) Configured() bool {
	return s != nil && len(s.passwordHash) > 0
}

// Authenticate reports whether credential matches the admin password.
func (s *AdminAuthService) Authenticate(credential string) bool {
	if !s.Configured() || credential == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.passwordHash, []byte(credential)) == nil
}

// IssueToken returns a signed session token for the admin.
func (s *AdminAuthService) IssueToken() (string, time.Time, error) {
	if !s.Configured() {
		return "", time.Time{}, ErrAdminNotConfigured
	}
	now := s.now()
	exp := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   AdminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, exp, nil
}

// VerifyToken validates a session token and returns its subject.
func (s *AdminAuthService) VerifyToken(raw string) (string, error) {
	if !s.Configured() {
		return "", apperrors.NewUnauthorizedError("admin access is not configured")
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", apperrors.NewUnauthorizedError("invalid or expired token")
	}
	if claims.Subject != AdminSubject {
		return "", apperrors.NewUnauthorizedError("invalid token subject")
	}
	return claims.Subject, nil
}
