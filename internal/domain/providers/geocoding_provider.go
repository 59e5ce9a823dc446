package providers

import (
	"context"
)

// GeocodeMatch is one candidate returned by a free-text address lookup.
type GeocodeMatch struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
}

// GeocodingProvider performs a single free-text address lookup.
type GeocodingProvider interface {
	// Search returns matches for query, restricted to countryCode when non-empty.
	// No matches is an empty slice, not an error.
	Search(ctx context.Context, query, countryCode string) ([]GeocodeMatch, error)
}
