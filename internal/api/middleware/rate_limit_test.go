package middleware_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afferentology/platform/backend/internal/api/middleware"
)

func TestIPRateLimiter_PerClient(t *testing.T) {
	limiter := middleware.NewIPRateLimiter(0.001, 2, nil)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))
}

func TestIPRateLimiter_Wrap(t *testing.T) {
	limiter := middleware.NewIPRateLimiter(0.001, 1, nil)
	handler := limiter.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest("POST", "/api/admin/verify", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestIPRateLimiter_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	limiter := middleware.NewIPRateLimiter(0.01, 1, nil)
	handler := limiter.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	allowed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest("POST", "/api/admin/verify", nil)
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code == http.StatusNoContent {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
}

func TestIPRateLimiter_KeysOnClientBehindTrustedProxy(t *testing.T) {
	proxies, err := middleware.ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	limiter := middleware.NewIPRateLimiter(0.01, 1, proxies)
	handler := limiter.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(xff string) int {
		req := httptest.NewRequest("POST", "/api/admin/verify", nil)
		req.RemoteAddr = "10.1.2.3:443"
		req.Header.Set("X-Forwarded-For", xff)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, send("198.51.100.4"))
	// A spoofed left-most entry does not change the key.
	assert.Equal(t, http.StatusTooManyRequests, send("1.2.3.4, 198.51.100.4"))
	assert.Equal(t, http.StatusNoContent, send("198.51.100.5"))
}

func TestTrustedProxies_ClientIP(t *testing.T) {
	proxies, err := middleware.ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.1 ", ""})
	require.NoError(t, err)

	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"untrusted peer ignores header", "203.0.113.9:1", "198.51.100.1", "203.0.113.9"},
		{"trusted peer without header", "192.0.2.1:1", "", "192.0.2.1"},
		{"right-most untrusted hop", "192.0.2.1:1", "6.6.6.6, 198.51.100.1, 10.0.0.5", "198.51.100.1"},
		{"all hops trusted", "10.0.0.2:1", "10.0.0.9, 10.0.0.8", "10.0.0.9"},
		{"malformed hop", "10.0.0.2:1", "198.51.100.1, not-an-ip", "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, proxies.ClientIP(req))
		})
	}

	var none *middleware.TrustedProxies
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.9:4321"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	assert.Equal(t, "192.0.2.9", none.ClientIP(req))
	assert.Equal(t, "192.0.2.9", middleware.ClientIP(req))
}

func TestParseTrustedProxies_Invalid(t *testing.T) {
	_, err := middleware.ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)

	_, err = middleware.ParseTrustedProxies([]string{"proxy.internal"})
	assert.Error(t, err)
}
