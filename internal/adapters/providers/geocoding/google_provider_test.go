package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afferentology/platform/backend/internal/adapters/cache"
)

func TestGoogleProvider_Search(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantCount int
	}{
		{
			name:      "match",
			body:      `{"status":"OK","results":[{"formatted_address":"Leeds, UK","geometry":{"location":{"lat":53.8008,"lng":-1.5491}}}]}`,
			wantCount: 1,
		},
		{
			name:      "zero results",
			body:      `{"status":"ZERO_RESULTS","results":[]}`,
			wantCount: 0,
		},
		{
			name:    "denied",
			body:    `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Leeds", r.URL.Query().Get("address"))
				assert.Equal(t, "country:GB", r.URL.Query().Get("components"))
				assert.Equal(t, "test-key", r.URL.Query().Get("key"))
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewGoogleProvider(GoogleOptions{APIKey: "test-key", BaseURL: server.URL})
			matches, err := p.Search(context.Background(), "Leeds", "gb")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, matches, tt.wantCount)
			if tt.wantCount > 0 {
				assert.InDelta(t, 53.8008, matches[0].Latitude, 1e-9)
				assert.Equal(t, "Leeds, UK", matches[0].DisplayName)
			}
		})
	}
}

func TestGoogleProvider_CachesMatches(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Leeds","geometry":{"location":{"lat":1,"lng":2}}}]}`))
	}))
	defer server.Close()

	p := NewGoogleProvider(GoogleOptions{
		APIKey:  "k",
		BaseURL: server.URL,
		Cache:   cache.NewMemoryAdapter(time.Hour, time.Hour),
	})
	for i := 0; i < 2; i++ {
		_, err := p.Search(context.Background(), "Leeds", "")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestGoogleProvider_RequiresKey(t *testing.T) {
	_, err := NewGoogleProvider(GoogleOptions{}).Search(context.Background(), "Leeds", "")
	assert.Error(t, err)
}
