package oidc

import (
	"context"

	"github.com/sitejournal/api/internal/models"
	"golang.org/x/oauth2"
)

// Client wraps the OAuth2 authorization code flow for one provider.
type Client struct {
	config *oauth2.Config
}

// NewClient builds an OAuth2 client from the stored OIDC config. Public
// clients carry no secret.
func NewClient(oidcConfig *models.OIDCConfig) *Client {
	clientSecret := ""
	if oidcConfig.ClientSecret != nil {
		clientSecret = *oidcConfig.ClientSecret
	}

	return &Client{config: &oauth2.Config{
		ClientID:     oidcConfig.ClientID,
		ClientSecret: clientSecret,
		RedirectURL:  oidcConfig.RedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  endpointFromIssuer(oidcConfig.Issuer, "oauth2/authorize"),
			TokenURL: endpointFromIssuer(oidcConfig.Issuer, "oauth2/token"),
		},
	}}
}

// ExchangeCode exchanges an authorization code for tokens
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.config.Exchange(ctx, code)
}

// AuthCodeURL returns the authorization URL
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state)
}
