package geocoding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/afferentology/platform/backend/internal/domain/providers"
)

const (
	nominatimBaseURL   = "https://nominatim.openstreetmap.org"
	defaultUserAgent   = "Afferentology Directory (afferentology.org)"
	defaultHTTPTimeout = 8 * time.Second
	defaultCacheTTL    = 60 * 60 * 24 * 30
)

// NominatimOptions configures a NominatimProvider. Zero values select defaults.
type NominatimOptions struct {
	BaseURL        string
	UserAgent      string
	HTTPClient     *http.Client
	Cache          providers.CacheProvider
	CacheTTL       time.Duration
	RequestsPerSec float64
}

// NominatimProvider implements providers.GeocodingProvider against the OpenStreetMap search API.
type NominatimProvider struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	cache      providers.CacheProvider
	cacheTTL   int
	limiter    *rate.Limiter
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimProvider creates a provider. The public instance allows one request per second.
func NewNominatimProvider(opts NominatimOptions) *NominatimProvider {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = nominatimBaseURL
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	ttl := defaultCacheTTL
	if opts.CacheTTL > 0 {
		ttl = int(opts.CacheTTL.Seconds())
	}
	limit := rate.Inf
	if opts.RequestsPerSec > 0 {
		limit = rate.Limit(opts.RequestsPerSec)
	}

	return &NominatimProvider{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
		cache:      opts.Cache,
		cacheTTL:   ttl,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Search looks up a free-text address. Only non-empty results are cached.
func (p *NominatimProvider) Search(ctx context.Context, query, countryCode string) ([]providers.GeocodeMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	cacheKey := "geocode:v1:" + hashKey(strings.ToLower(countryCode+"|"+query))
	if p.cache != nil {
		if cached, err := p.cache.Get(ctx, cacheKey); err == nil && len(cached) > 0 {
			var matches []providers.GeocodeMatch
			if err := json.Unmarshal(cached, &matches); err == nil && len(matches) > 0 {
				return matches, nil
			}
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("geocode rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", "1")
	params.Set("addressdetails", "1")
	if countryCode != "" {
		params.Set("countrycodes", countryCode)
	}

	results, err := p.doSearchRequest(ctx, params)
	if err != nil {
		return nil, err
	}

	matches := make([]providers.GeocodeMatch, 0, len(results))
	for _, r := range results {
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude %q: %w", r.Lat, err)
		}
		lon, err := strconv.ParseFloat(r.Lon, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude %q: %w", r.Lon, err)
		}
		matches = append(matches, providers.GeocodeMatch{Latitude: lat, Longitude: lon, DisplayName: r.DisplayName})
	}

	if p.cache != nil && len(matches) > 0 {
		if payload, err := json.Marshal(matches); err == nil {
			_ = p.cache.Set(ctx, cacheKey, payload, p.cacheTTL)
		}
	}

	return matches, nil
}

func (p *NominatimProvider) doSearchRequest(ctx context.Context, params url.Values) ([]nominatimResult, error) {
	reqURL := fmt.Sprintf("%s/search?%s", p.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("geocode request returned status %d", resp.StatusCode)
	}

	var payload []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	return payload, nil
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
