package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/domain/providers"
	"github.com/afferentology/platform/backend/pkg/geo"
	"github.com/afferentology/platform/backend/pkg/retry"
)

// DefaultCountry is assumed when an application leaves country blank.
const DefaultCountry = "United States"

var countryCodes = map[string]string{
	"united kingdom": "gb",
	"uk":             "gb",
	"ireland":        "ie",
	"united states":  "us",
	"usa":            "us",
}

// CountryCode maps a country name to the region code passed to the geocoder, or "".
func CountryCode(country string) string {
	return countryCodes[strings.ToLower(strings.TrimSpace(country))]
}

// Address is a structured postal address.
type Address struct {
	Street     string
	City       string
	Region     string
	PostalCode string
	Country    string
}

// GeocodingService resolves addresses by trying progressively coarser query strings.
type GeocodingService struct {
	provider providers.GeocodingProvider
	delay    time.Duration
}

// NewGeocodingService creates a geocoder that waits delay after each failed attempt.
func NewGeocodingService(provider providers.GeocodingProvider, delay time.Duration) *GeocodingService {
	return &GeocodingService{provider: provider, delay: delay}
}

// Candidates returns the lookup strings for addr, most specific first, without duplicates.
func Candidates(addr Address) []string {
	regionPostal := joinNonEmpty(" ", addr.Region, addr.PostalCode)
	raw := []string{
		joinNonEmpty(", ", addr.Street, addr.City, regionPostal, addr.Country),
		joinNonEmpty(", ", addr.Street, addr.City, addr.PostalCode, addr.Country),
		joinNonEmpty(", ", addr.PostalCode, addr.Country),
		joinNonEmpty(", ", addr.City, addr.PostalCode, addr.Country),
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, q := range raw {
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}

// Geocode returns the coordinates of the first candidate that matches, or nil when none do.
// Lookup failures are logged, never returned: an address that cannot be resolved is not an error.
func (s *GeocodingService) Geocode(ctx context.Context, addr Address) *geo.Coordinates {
	if s == nil || s.provider == nil {
		return nil
	}

	code := CountryCode(addr.Country)
	candidates := Candidates(addr)

	for i, query := range candidates {
		matches, err := s.provider.Search(ctx, query, code)
		if err == nil && len(matches) > 0 {
			coords := geo.Coordinates{Latitude: matches[0].Latitude, Longitude: matches[0].Longitude}
			if coords.Valid() {
				log.Debug().Str("query", query).Int("attempt", i+1).Msg("Address geocoded")
				return &coords
			}
		}
		if err != nil {
			log.Warn().Err(err).Str("query", query).Msg("Geocode lookup failed")
		}

		if i < len(candidates)-1 {
			if err := retry.Sleep(ctx, s.delay); err != nil {
				return nil
			}
		}
	}

	log.Info().Str("city", addr.City).Str("postal_code", addr.PostalCode).Msg("Address could not be geocoded")
	return nil
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
