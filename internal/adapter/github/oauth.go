package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	oauth2github "golang.org/x/oauth2/github"
)

// OAuthClient runs the GitHub web application flow for one OAuth app.
type OAuthClient struct {
	config     *oauth2.Config
	httpClient *http.Client
}

type OAuthOption func(*OAuthClient)

// WithOAuthEndpoint replaces github.com's authorize and token URLs.
func WithOAuthEndpoint(endpoint oauth2.Endpoint) OAuthOption {
	return func(c *OAuthClient) { c.config.Endpoint = endpoint }
}

func WithOAuthHTTPClient(client *http.Client) OAuthOption {
	return func(c *OAuthClient) { c.httpClient = client }
}

func NewOAuthClient(clientID, clientSecret string, opts ...OAuthOption) *OAuthClient {
	c := &OAuthClient{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2github.Endpoint,
		},
		httpClient: &http.Client{Timeout: httpCallTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthURL is where the browser is sent to authorize the app. state comes back
// unchanged on the callback.
func (c *OAuthClient) AuthURL(state string) string {
	return c.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token.
func (c *OAuthClient) Exchange(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", errors.New("missing authorization code")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("github token exchange failed: %w", err)
	}
	return token.AccessToken, nil
}
