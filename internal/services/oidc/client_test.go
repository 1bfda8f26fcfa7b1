package oidc

import (
	"strings"
	"testing"

	"github.com/sitejournal/api/internal/models"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		oidcConfig *models.OIDCConfig
		validate   func(*testing.T, *Client)
	}{
		{
			name: "with client secret",
			oidcConfig: &models.OIDCConfig{
				ClientID:     "journal-backend",
				ClientSecret: stringPtr("test-secret"),
				RedirectURI:  "http://localhost:3000/callback",
				Issuer:       "https://auth.example.com",
			},
			validate: func(t *testing.T, client *Client) {
				if client.config.ClientID != "journal-backend" {
					t.Errorf("Expected ClientID 'journal-backend', got '%s'", client.config.ClientID)
				}
				if client.config.ClientSecret != "test-secret" {
					t.Errorf("Expected ClientSecret 'test-secret', got '%s'", client.config.ClientSecret)
				}
				if client.config.RedirectURL != "http://localhost:3000/callback" {
					t.Errorf("Expected RedirectURL 'http://localhost:3000/callback', got '%s'", client.config.RedirectURL)
				}
			},
		},
		{
			name: "public client without secret",
			oidcConfig: &models.OIDCConfig{
				ClientID:    "journal-app",
				RedirectURI: "http://localhost:3000/callback",
				Issuer:      "https://auth.example.com",
			},
			validate: func(t *testing.T, client *Client) {
				if client.config.ClientSecret != "" {
					t.Errorf("Expected empty ClientSecret for public client, got '%s'", client.config.ClientSecret)
				}
			},
		},
		{
			name: "trailing slash on issuer does not double up",
			oidcConfig: &models.OIDCConfig{
				ClientID:    "journal-app",
				RedirectURI: "http://localhost:3000/callback",
				Issuer:      "https://auth.example.com/",
			},
			validate: func(t *testing.T, client *Client) {
				if client.config.Endpoint.AuthURL != "https://auth.example.com/oauth2/authorize" {
					t.Errorf("Unexpected AuthURL: %s", client.config.Endpoint.AuthURL)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := NewClient(tt.oidcConfig)
			if client == nil || client.config == nil {
				t.Fatal("Client or OAuth2 config is nil")
			}

			if tt.validate != nil {
				tt.validate(t, client)
			}
		})
	}
}

func TestClient_AuthCodeURL(t *testing.T) {
	t.Parallel()

	config := &models.OIDCConfig{
		ClientID:    "journal-app",
		RedirectURI: "http://localhost:3000/callback",
		Issuer:      "https://auth.example.com",
	}

	client := NewClient(config)
	url := client.AuthCodeURL("test-state-123")

	if !strings.HasPrefix(url, "https://auth.example.com/oauth2/authorize") {
		t.Errorf("AuthCodeURL does not point at the authorize endpoint: %s", url)
	}
	if !strings.Contains(url, "state=test-state-123") {
		t.Errorf("AuthCodeURL missing state parameter: %s", url)
	}
}

func stringPtr(s string) *string {
	return &s
}
