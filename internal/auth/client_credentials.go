// Package auth obtains bearer tokens for the France Travail partner APIs.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amishk599/jobmarket/internal/model"
)

const (
	DefaultTokenURL = "https://entreprise.francetravail.fr/connexion/oauth2/access_token?realm=%2Fpartenaire"
	DefaultScope    = "api_offresdemploiv2 o2dsoffre"
)

// ErrAuth marks a failed token exchange. A run cannot continue without a token.
var ErrAuth = errors.New("authentication failed")

// Grant is a token issued by the identity endpoint.
type Grant struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// Lifetime returns how long the grant is valid for.
func (g *Grant) Lifetime() time.Duration {
	return time.Duration(g.ExpiresIn) * time.Second
}

// ClientCredentials performs the OAuth2 client-credentials exchange. It does
// not cache: every call to Token requests a new token.
type ClientCredentials struct {
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	client       *http.Client
}

// NewClientCredentials creates an authenticator for the given identity endpoint.
func NewClientCredentials(tokenURL, clientID, clientSecret, scope string, client *http.Client) *ClientCredentials {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if scope == "" {
		scope = DefaultScope
	}
	return &ClientCredentials{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        scope,
		client:       client,
	}
}

// Token returns a fresh access token.
func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	g, err := c.Obtain(ctx)
	if err != nil {
		return "", err
	}
	return g.AccessToken, nil
}

// Obtain exchanges the client credentials for a Grant. Any non-200 answer is
// returned as an ErrAuth wrapping a *model.HTTPError.
func (c *ClientCredentials) Obtain(ctx context.Context) (*Grant, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("scope", c.scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: building token request: %w", ErrAuth, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: token request: %w", ErrAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %w", ErrAuth, &model.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		})
	}

	var g Grant
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil {
		return nil, fmt.Errorf("%w: decoding token response: %w", ErrAuth, err)
	}
	if g.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access_token in response", ErrAuth)
	}
	return &g, nil
}
