// Package provider talks to the external bbauth identity provider: the
// authorization-code-for-token exchange and the userinfo lookup. Both calls
// are single-attempt; an authorization code is single-use on the provider
// side, so a transparent retry would only guarantee a rejection.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTimeout bounds each outbound provider call so a hung provider
// surfaces as a failure instead of holding the request open.
const DefaultTimeout = 10 * time.Second

var (
	// ErrExchangeFailed wraps any failure of the authorization-code grant.
	ErrExchangeFailed = errors.New("token exchange failed")
	// ErrUserInfoFailed wraps any failure of the userinfo lookup.
	ErrUserInfoFailed = errors.New("userinfo request failed")
)

// Config identifies this service to the bbauth provider. BaseURL is the
// provider root; the standard /oauth/authorize, /oauth/token and
// /oauth/userinfo paths hang off it.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
}

// TokenResult is the provider's token response, normalized.
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// UserInfo carries the provider's identity claims for the logged-in user.
// Subject is the provider's stable account identifier, the join key to a
// local account.
type UserInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Client performs the two outbound bbauth calls. It keeps no local state.
type Client struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewClient builds a Client from the provider configuration. A nil
// httpClient gets the default bounded-timeout client.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/oauth/authorize",
				TokenURL:  base + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: base + "/oauth/userinfo",
		httpClient:  httpClient,
	}
}

// AuthCodeURL builds the provider authorization URL carrying the state and
// the S256 code challenge.
func (c *Client) AuthCodeURL(state, codeChallenge string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange performs the authorization-code grant with the PKCE verifier
// attached. Single attempt, no retry.
func (c *Client) Exchange(ctx context.Context, code, codeVerifier string) (*TokenResult, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("provider: %w: %w", ErrExchangeFailed, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("provider: %w: empty access token", ErrExchangeFailed)
	}
	return &TokenResult{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}, nil
}

// FetchUserInfo fetches the subject identifier and profile claims using the
// access token as a bearer credential.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("provider: %w: %w", ErrUserInfoFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider: %w: %w", ErrUserInfoFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider: %w: unexpected status %d", ErrUserInfoFailed, resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("provider: %w: decode body: %w", ErrUserInfoFailed, err)
	}
	if info.Subject == "" {
		return nil, fmt.Errorf("provider: %w: missing sub claim", ErrUserInfoFailed)
	}
	return &info, nil
}
