// Package transport provides CommunicationProtocol implementations, one per
// call template wire protocol.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goadesign/utcp-go/runtime/utcp"
)

// applyHTTPAuth mutates req to carry the credentials described by auth,
// fetching and caching an OAuth2 token when needed. Grounded on spec.md §9's
// OAuth2 token cache design note and the three auth_implementations/*.py
// files.
func applyHTTPAuth(ctx context.Context, req *http.Request, auth utcp.Auth) error {
	switch a := auth.(type) {
	case nil:
		return nil
	case utcp.ApiKeyAuth:
		varName := a.VarName
		if varName == "" {
			varName = "X-Api-Key"
		}
		switch a.Location {
		case utcp.APIKeyLocationQuery:
			q := req.URL.Query()
			q.Set(varName, a.APIKey)
			req.URL.RawQuery = q.Encode()
		case utcp.APIKeyLocationCookie:
			req.AddCookie(&http.Cookie{Name: varName, Value: a.APIKey})
		default:
			req.Header.Set(varName, a.APIKey)
		}
		return nil
	case utcp.BasicAuth:
		req.SetBasicAuth(a.Username, a.Password)
		return nil
	case utcp.OAuth2Auth:
		token, err := oauth2Tokens.get(ctx, a)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	default:
		return fmt.Errorf("unsupported auth type %T", auth)
	}
}

// oauth2TokenCache caches client-credentials tokens keyed by token URL,
// client ID and scope, reusing a cached token until shortly before its
// expiry.
type oauth2TokenCache struct {
	mu      sync.Mutex
	entries map[string]oauth2CacheEntry
	client  *http.Client
}

type oauth2CacheEntry struct {
	token   string
	expires time.Time
}

var oauth2Tokens = &oauth2TokenCache{
	entries: make(map[string]oauth2CacheEntry),
	client:  &http.Client{Timeout: 15 * time.Second},
}

func (c *oauth2TokenCache) get(ctx context.Context, a utcp.OAuth2Auth) (string, error) {
	key := a.TokenURL + "|" + a.ClientID + "|" + a.Scope

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && time.Now().Before(entry.expires) {
		c.mu.Unlock()
		return entry.token, nil
	}
	c.mu.Unlock()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", a.ClientID)
	form.Set("client_secret", a.ClientSecret)
	if a.Scope != "" {
		form.Set("scope", a.Scope)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oauth2 token request failed with status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("oauth2 token response missing access_token")
	}

	ttl := time.Duration(body.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	entry := oauth2CacheEntry{token: body.AccessToken, expires: time.Now().Add(ttl - 10*time.Second)}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	return body.AccessToken, nil
}
