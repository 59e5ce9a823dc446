package services

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
)

const nailInTheFootLine = "📍 The Nail in the Foot: If you have a nail in your heel, you'll limp. Treating the hip won't fix the foot. Afferentology finds the nail."

// SocialDraftService turns a newly published article into a LinkedIn post draft.
type SocialDraftService struct {
	siteURL string
}

// NewSocialDraftService creates a draft generator linking to siteURL.
func NewSocialDraftService(siteURL string) *SocialDraftService {
	return &SocialDraftService{siteURL: strings.TrimRight(siteURL, "/")}
}

// LinkedInDraft builds the post text for an article.
func (s *SocialDraftService) LinkedInDraft(title, content, slug string) (*entities.SocialDraft, error) {
	title = strings.TrimSpace(title)
	slug = strings.TrimSpace(slug)
	if title == "" || slug == "" {
		return nil, apperrors.NewValidationError("record title and slug are required")
	}

	link := fmt.Sprintf("%s/blog/%s", s.siteURL, slug)

	var b strings.Builder
	b.WriteString(strings.ToUpper(title))
	b.WriteString(" 🔬\n\n")
	b.WriteString("Stop treating 'Hardware' (muscles) for a 'Software' (neurological) problem.\n\n")
	if strings.Contains(strings.ToLower(content), "nail") {
		b.WriteString(nailInTheFootLine)
		b.WriteString("\n\n")
	}
	b.WriteString("Read the full breakdown:\n🔗 ")
	b.WriteString(link)
	b.WriteString("\n\n#Afferentology #Neurology #HealthMagazine")

	log.Info().Str("slug", slug).Msg("Generated LinkedIn draft")
	return &entities.SocialDraft{Platform: "linkedin", Text: b.String(), Link: link}, nil
}
