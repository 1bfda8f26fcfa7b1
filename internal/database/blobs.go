package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// BlobRepository stores photo binaries in the photo_blobs table. The service
// has no external object store; image volumes are modest and keeping blobs in
// Postgres gives them the same durability and backup story as the records
// that reference them.
type BlobRepository struct {
	db *DB
}

// NewBlobRepository creates a new blob repository
func NewBlobRepository(db *DB) *BlobRepository {
	return &BlobRepository{db: db}
}

// Upload stores content under the given key and returns the key. Re-uploads
// of the same key overwrite, which makes derivative generation retryable.
func (r *BlobRepository) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	query := `
		INSERT INTO photo_blobs (key, content, content_type, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET content = EXCLUDED.content, content_type = EXCLUDED.content_type
	`

	if _, err := r.db.ExecContext(ctx, query, key, data, contentType, time.Now()); err != nil {
		return "", fmt.Errorf("failed to upload blob: %w", err)
	}

	return key, nil
}

// Download retrieves the content stored under the given key.
func (r *BlobRepository) Download(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT content FROM photo_blobs WHERE key = $1`

	var content []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("blob not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download blob: %w", err)
	}

	return content, nil
}

// ContentType retrieves the stored content type for a key.
func (r *BlobRepository) ContentType(ctx context.Context, key string) (string, error) {
	query := `SELECT content_type FROM photo_blobs WHERE key = $1`

	var contentType string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&contentType)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("blob not found: %w", err)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get blob content type: %w", err)
	}

	return contentType, nil
}
