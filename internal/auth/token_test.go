package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, hits *atomic.Int32, expiresIn int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
		assert.Equal(t, "client-1", r.FormValue("client_id"))
		assert.NotEmpty(t, r.FormValue("scope"))

		n := hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","expires_in":%d}`, n, expiresIn)
	}))
}

func TestTokenCacheReusesValidToken(t *testing.T) {
	var hits atomic.Int32
	srv := newTokenServer(t, &hits, 3600)
	defer srv.Close()

	cache := NewTokenCache(srv.URL, "client-1", "secret", srv.Client())

	first, err := cache.Get(context.Background(), "api://legacy/.default")
	require.NoError(t, err)
	assert.Equal(t, "token-1", first)

	second, err := cache.Get(context.Background(), "api://legacy/.default")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
}

func TestTokenCacheSeparateScopes(t *testing.T) {
	var hits atomic.Int32
	srv := newTokenServer(t, &hits, 3600)
	defer srv.Close()

	cache := NewTokenCache(srv.URL, "client-1", "secret", srv.Client())

	a, err := cache.Get(context.Background(), "api://legacy/.default")
	require.NoError(t, err)
	b, err := cache.Get(context.Background(), "api://other/.default")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, int32(2), hits.Load())
}

func TestTokenCacheRefreshesNearExpiry(t *testing.T) {
	var hits atomic.Int32
	// Expires inside the refresh margin, so every Get refetches.
	srv := newTokenServer(t, &hits, 10)
	defer srv.Close()

	cache := NewTokenCache(srv.URL, "client-1", "secret", srv.Client())

	_, err := cache.Get(context.Background(), "api://legacy/.default")
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), "api://legacy/.default")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestTokenCacheEndpointFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cache := NewTokenCache(srv.URL, "client-1", "secret", srv.Client())

	_, err := cache.Get(context.Background(), "api://legacy/.default")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_ACQUISITION_FAILED")
}

func TestCachedTokenValidity(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		token cachedToken
		valid bool
	}{
		{"fresh", cachedToken{accessToken: "t", expiresAt: now.Add(time.Hour)}, true},
		{"inside margin", cachedToken{accessToken: "t", expiresAt: now.Add(10 * time.Second)}, false},
		{"expired", cachedToken{accessToken: "t", expiresAt: now.Add(-time.Minute)}, false},
		{"zero value", cachedToken{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.token.valid(now))
		})
	}
}
