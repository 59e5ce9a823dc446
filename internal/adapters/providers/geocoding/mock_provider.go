package geocoding

import (
	"context"
	"strings"
	"sync"

	"github.com/afferentology/platform/backend/internal/domain/providers"
)

// MockProvider answers lookups from a fixed table keyed by lower-cased query.
// It records every query it receives.
type MockProvider struct {
	mu      sync.Mutex
	results map[string]providers.GeocodeMatch
	errs    map[string]error
	queries []string
}

// NewMockProvider creates an empty mock; unknown queries return no matches.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		results: make(map[string]providers.GeocodeMatch),
		errs:    make(map[string]error),
	}
}

// Add registers coordinates for a query.
func (m *MockProvider) Add(query string, lat, lng float64) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[strings.ToLower(query)] = providers.GeocodeMatch{Latitude: lat, Longitude: lng, DisplayName: query}
	return m
}

// Fail makes a query return err.
func (m *MockProvider) Fail(query string, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[strings.ToLower(query)] = err
	return m
}

// Queries returns the lookups made so far in order.
func (m *MockProvider) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

func (m *MockProvider) Search(_ context.Context, query, _ string) ([]providers.GeocodeMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	key := strings.ToLower(query)
	if err, ok := m.errs[key]; ok {
		return nil, err
	}
	if match, ok := m.results[key]; ok {
		return []providers.GeocodeMatch{match}, nil
	}
	return []providers.GeocodeMatch{}, nil
}
