package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sitejournal/api/internal/database"
	"github.com/spf13/cobra"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test OIDC configuration",
		Long:  "Test OIDC provider configuration by validating endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				return fmt.Errorf("--provider is required")
			}

			return withOIDCRepo(func(ctx context.Context, repo *database.OIDCConfigRepository) error {
				config, err := repo.GetByProvider(ctx, provider)
				if err != nil {
					return fmt.Errorf("failed to get OIDC config: %w", err)
				}

				fmt.Printf("Testing OIDC configuration for provider: %s\n", provider)
				fmt.Printf("Issuer: %s\n", config.Issuer)

				client := &http.Client{Timeout: 10 * time.Second}

				discoveryURL := config.Issuer + "/.well-known/openid-configuration"
				fmt.Printf("\nTesting discovery endpoint: %s\n", discoveryURL)
				if err := checkEndpoint(client, discoveryURL); err != nil {
					return fmt.Errorf("discovery endpoint: %w", err)
				}
				fmt.Println("✓ Discovery endpoint is accessible")

				if config.JWKSUrl != nil {
					fmt.Printf("\nTesting JWKS endpoint: %s\n", *config.JWKSUrl)
					if err := checkEndpoint(client, *config.JWKSUrl); err != nil {
						return fmt.Errorf("JWKS endpoint: %w", err)
					}
					fmt.Println("✓ JWKS endpoint is accessible")
				}

				fmt.Println("\n✓ OIDC configuration test passed")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider name to test (required)")

	return cmd
}

func checkEndpoint(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("returned status %d", resp.StatusCode)
	}
	return nil
}
