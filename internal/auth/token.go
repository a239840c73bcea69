package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	customError "github.com/navikt/helse-spokelse-sub000/pkg/errors"
)

// expiryMargin refreshes tokens slightly before they expire so a token is
// never presented within its last 30 seconds.
const expiryMargin = 30 * time.Second

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

func (t cachedToken) valid(now time.Time) bool {
	return t.accessToken != "" && now.Before(t.expiresAt.Add(-expiryMargin))
}

// TokenCache acquires client-credential bearer tokens and caches them per
// scope until near expiry. Safe for concurrent use; two callers racing to
// refresh the same scope may both hit the token endpoint, which is harmless
// duplicate work.
type TokenCache struct {
	endpoint     string
	clientID     string
	clientSecret string
	client       *http.Client

	mu     sync.RWMutex
	tokens map[string]cachedToken
}

func NewTokenCache(endpoint, clientID, clientSecret string, client *http.Client) *TokenCache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TokenCache{
		endpoint:     endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       client,
		tokens:       make(map[string]cachedToken),
	}
}

// Get returns a bearer token for the scope, refreshing lazily on expiry.
func (c *TokenCache) Get(ctx context.Context, scope string) (string, error) {
	c.mu.RLock()
	token := c.tokens[scope]
	c.mu.RUnlock()

	if token.valid(time.Now()) {
		return token.accessToken, nil
	}

	refreshed, err := c.fetch(ctx, scope)
	if err != nil {
		return "", customError.WrapTokenError(scope, err)
	}

	c.mu.Lock()
	c.tokens[scope] = refreshed
	c.mu.Unlock()

	return refreshed.accessToken, nil
}

func (c *TokenCache) fetch(ctx context.Context, scope string) (cachedToken, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("scope", scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return cachedToken{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return cachedToken{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cachedToken{}, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return cachedToken{}, err
	}
	if body.AccessToken == "" {
		return cachedToken{}, fmt.Errorf("token endpoint returned empty access_token")
	}

	return cachedToken{
		accessToken: body.AccessToken,
		expiresAt:   time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}
