package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/afferentology/platform/backend/internal/domain/providers"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleOptions configures a GoogleProvider. Zero values select defaults.
type GoogleOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Cache      providers.CacheProvider
	CacheTTL   time.Duration
}

// GoogleProvider implements providers.GeocodingProvider with the Google Geocoding API.
// It is an alternative to Nominatim for deployments that hold a Maps key.
type GoogleProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      providers.CacheProvider
	cacheTTL   int
}

// NewGoogleProvider creates a provider. A missing key fails every lookup.
func NewGoogleProvider(opts GoogleOptions) *GoogleProvider {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = googleGeocodeURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	ttl := defaultCacheTTL
	if opts.CacheTTL > 0 {
		ttl = int(opts.CacheTTL.Seconds())
	}
	return &GoogleProvider{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		cache:      opts.Cache,
		cacheTTL:   ttl,
	}
}

// Search geocodes query, restricted to countryCode when set. ZERO_RESULTS is an empty slice.
func (g *GoogleProvider) Search(ctx context.Context, query, countryCode string) ([]providers.GeocodeMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if g.apiKey == "" {
		return nil, fmt.Errorf("google maps api key is required")
	}

	cacheKey := "geocode:google:v1:" + hashKey(strings.ToLower(countryCode+"|"+query))
	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, cacheKey); err == nil && len(cached) > 0 {
			var matches []providers.GeocodeMatch
			if err := json.Unmarshal(cached, &matches); err == nil && len(matches) > 0 {
				return matches, nil
			}
		}
	}

	params := url.Values{}
	params.Set("address", query)
	if countryCode != "" {
		params.Set("components", "country:"+strings.ToUpper(countryCode))
	}
	params.Set("key", g.apiKey)

	resp, err := g.doGeocodeRequest(ctx, params)
	if err != nil {
		return nil, err
	}

	matches := make([]providers.GeocodeMatch, 0, len(resp.Results))
	for _, r := range resp.Results {
		matches = append(matches, providers.GeocodeMatch{
			Latitude:    r.Geometry.Location.Lat,
			Longitude:   r.Geometry.Location.Lng,
			DisplayName: r.FormattedAddress,
		})
	}

	if g.cache != nil && len(matches) > 0 {
		if payload, err := json.Marshal(matches); err == nil {
			_ = g.cache.Set(ctx, cacheKey, payload, g.cacheTTL)
		}
	}
	return matches, nil
}

func (g *GoogleProvider) doGeocodeRequest(ctx context.Context, params url.Values) (*googleGeocodeResponse, error) {
	reqURL := fmt.Sprintf("%s?%s", g.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("geocode request returned status %d", resp.StatusCode)
	}

	var payload googleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	switch payload.Status {
	case "OK", "ZERO_RESULTS":
		return &payload, nil
	default:
		if payload.ErrorMessage != "" {
			return nil, fmt.Errorf("geocode request failed: %s - %s", payload.Status, payload.ErrorMessage)
		}
		return nil, fmt.Errorf("geocode request failed: %s", payload.Status)
	}
}

type googleGeocodeResponse struct {
	Status       string                `json:"status"`
	ErrorMessage string                `json:"error_message,omitempty"`
	Results      []googleGeocodeResult `json:"results"`
}

type googleGeocodeResult struct {
	FormattedAddress string         `json:"formatted_address"`
	Geometry         googleGeometry `json:"geometry"`
}

type googleGeometry struct {
	Location googleLocation `json:"location"`
}

type googleLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
