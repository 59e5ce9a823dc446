package services_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afferentology/platform/backend/internal/application/services"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
)

func TestSocialDraftService_LinkedInDraft(t *testing.T) {
	svc := services.NewSocialDraftService("https://www.afferentology.org/")

	draft, err := svc.LinkedInDraft("Why Reflexes Matter", "Think of a NAIL in the foot.", "why-reflexes-matter")

	require.NoError(t, err)
	assert.Equal(t, "linkedin", draft.Platform)
	assert.Equal(t, "https://www.afferentology.org/blog/why-reflexes-matter", draft.Link)
	assert.True(t, strings.HasPrefix(draft.Text, "WHY REFLEXES MATTER 🔬"))
	assert.Contains(t, draft.Text, "The Nail in the Foot")
	assert.Contains(t, draft.Text, "#Afferentology #Neurology #HealthMagazine")

	plain, err := svc.LinkedInDraft("Scar tissue", "Scars can irritate.", "scar-tissue")
	require.NoError(t, err)
	assert.NotContains(t, plain.Text, "Nail in the Foot")

	_, err = svc.LinkedInDraft("", "x", "slug")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
