package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jtrenker/redfeed/internal/cache"
)

const (
	defaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	tokenCacheKey   = "reddit:token"

	// tokenExpiryMargin keeps an about-to-expire token from being
	// served right before upstream rejects it.
	tokenExpiryMargin = 60 * time.Second
)

// authenticator performs the client-credentials exchange and caches the
// bearer token. Two concurrent requests both missing the cache will both
// re-authenticate; that race is benign and self-correcting.
type authenticator struct {
	clientID     string
	clientSecret string
	userAgent    string
	http         *http.Client
	cache        cache.Cache

	// tokenURL is a field so tests can point at an httptest server.
	tokenURL string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func newAuthenticator(clientID, clientSecret, userAgent string, client *http.Client, c cache.Cache) (*authenticator, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}
	return &authenticator{
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		http:         client,
		cache:        c,
		tokenURL:     defaultTokenURL,
	}, nil
}

// token returns a cached bearer token or performs a fresh exchange.
func (a *authenticator) token(ctx context.Context) (string, error) {
	if bs, ok := a.cache.Get(ctx, tokenCacheKey); ok {
		return string(bs), nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(a.clientID, a.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", newFetchError(resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("unmarshal token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned an empty token")
	}

	ttl := time.Duration(tr.ExpiresIn)*time.Second - tokenExpiryMargin
	if ttl > 0 {
		_ = a.cache.Set(ctx, tokenCacheKey, []byte(tr.AccessToken), ttl)
	}
	return tr.AccessToken, nil
}

// invalidate drops the cached token so the next call re-authenticates.
func (a *authenticator) invalidate(ctx context.Context) {
	_ = a.cache.Delete(ctx, tokenCacheKey)
}
