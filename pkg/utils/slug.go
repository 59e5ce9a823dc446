package utils

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// MaxSlugLength bounds generated slugs, including any -N suffix.
const MaxSlugLength = 160

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9_\s-]`)
	slugSeparators = regexp.MustCompile(`[\s_-]+`)
)

// Slugify derives a URL slug from a title: lower-case, characters other than
// ASCII letters, digits, whitespace, underscore and hyphen removed, runs of
// whitespace/underscore/hyphen collapsed to one hyphen, hyphens trimmed.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugDisallowed.ReplaceAllString(s, "")
	s = slugSeparators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxSlugLength {
		s = strings.TrimRight(s[:MaxSlugLength], "-")
	}
	return s
}

// SlugExistsFunc reports whether a slug is already taken.
type SlugExistsFunc func(ctx context.Context, slug string) (bool, error)

// UniqueSlug returns base if free, otherwise base-2, base-3, ... up to maxAttempts.
func UniqueSlug(ctx context.Context, base string, exists SlugExistsFunc, maxAttempts int) (string, error) {
	if base == "" {
		return "", fmt.Errorf("empty slug")
	}
	if maxAttempts < 1 {
		maxAttempts = 50
	}

	for i := 1; i <= maxAttempts; i++ {
		candidate := base
		if i > 1 {
			suffix := fmt.Sprintf("-%d", i)
			trimmed := base
			if len(trimmed)+len(suffix) > MaxSlugLength {
				trimmed = strings.TrimRight(trimmed[:MaxSlugLength-len(suffix)], "-")
			}
			candidate = trimmed + suffix
		}

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxAttempts)
}
