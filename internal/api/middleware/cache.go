package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/domain/providers"
)

// ResponseCache serves repeated anonymous GETs from a CacheProvider.
// Only 200 responses are stored.
type ResponseCache struct {
	cache      providers.CacheProvider
	ttlSeconds int
}

// NewResponseCache creates a response cache. A nil provider disables caching.
func NewResponseCache(cache providers.CacheProvider, ttlSeconds int) *ResponseCache {
	return &ResponseCache{cache: cache, ttlSeconds: ttlSeconds}
}

// Wrap caches the responses of next.
func (m *ResponseCache) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.cache == nil || r.Method != http.MethodGet || r.Header.Get("Authorization") != "" {
			next.ServeHTTP(w, r)
			return
		}

		key := cacheKey(r)
		cached, err := m.cache.Get(r.Context(), key)
		if err == nil {
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Str("path", r.URL.Path).Msg("Response cache lookup failed")
		}

		w.Header().Set("X-Cache", "MISS")
		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}
		next.ServeHTTP(recorder, r)

		if recorder.statusCode == http.StatusOK && recorder.body.Len() > 0 {
			if err := m.cache.Set(r.Context(), key, recorder.body.Bytes(), m.ttlSeconds); err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to cache response")
			}
		}
	})
}

// cacheKey keeps the path readable so writes can invalidate every variant of a route by prefix.
func cacheKey(r *http.Request) string {
	key := providers.HTTPCacheKeyPrefix(r.URL.Path) + ":"
	if r.URL.RawQuery == "" {
		return key
	}
	hash := sha256.Sum256([]byte(r.URL.RawQuery))
	return key + hex.EncodeToString(hash[:16])
}

// responseRecorder captures the response for caching
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

// WriteHeader captures the status code
func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

// Write captures the response body and writes to the client
func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
