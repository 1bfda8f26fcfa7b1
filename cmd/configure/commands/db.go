package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/sitejournal/api/internal/database"
)

// withOIDCRepo opens the database and hands the OIDC config repository to fn.
// Only DATABASE_URL is read; the CLI must work without the server's queue and
// cache configured.
func withOIDCRepo(fn func(ctx context.Context, repo *database.OIDCConfigRepository) error) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	db, err := database.New(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	return fn(context.Background(), database.NewOIDCConfigRepository(db))
}
