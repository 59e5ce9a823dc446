package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminAuthService_Authenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	svc, err := NewAdminAuthService(string(hash), "", "jwt-secret", time.Hour)
	require.NoError(t, err)

	assert.True(t, svc.Authenticate("correct horse"))
	assert.False(t, svc.Authenticate("wrong"))
	assert.False(t, svc.Authenticate(""))
}

func TestAdminAuthService_PlaintextFallback(t *testing.T) {
	svc, err := NewAdminAuthService("", "dev-password", "jwt-secret", 0)
	require.NoError(t, err)
	assert.True(t, svc.Configured())
	assert.True(t, svc.Authenticate("dev-password"))
}

func TestAdminAuthService_NotConfigured(t *testing.T) {
	svc, err := NewAdminAuthService("", "", "", 0)
	require.NoError(t, err)
	assert.False(t, svc.Configured())
	assert.False(t, svc.Authenticate("anything"))

	_, _, err = svc.IssueToken()
	assert.ErrorIs(t, err, ErrAdminNotConfigured)
}

func TestAdminAuthService_RequiresSecret(t *testing.T) {
	_, err := NewAdminAuthService("", "pw", "", 0)
	assert.Error(t, err)

	_, err = NewAdminAuthService("not-a-bcrypt-hash", "", "s", 0)
	assert.Error(t, err)
}

func TestAdminAuthService_Tokens(t *testing.T) {
	svc, err := NewAdminAuthService("", "pw", "jwt-secret", time.Hour)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	token, exp, err := svc.IssueToken()
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	sub, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, AdminSubject, sub)

	svc.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = svc.VerifyToken(token)
	assert.Error(t, err)

	other, err := NewAdminAuthService("", "pw", "other-secret", time.Hour)
	require.NoError(t, err)
	other.now = func() time.Time { return now }
	_, err = other.VerifyToken(token)
	assert.Error(t, err)
}
