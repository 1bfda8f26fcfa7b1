package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ArtifactDateRepository reads creation timestamps across all artifact kinds.
type ArtifactDateRepository struct {
	db *DB
}

// NewArtifactDateRepository creates a new artifact date repository
func NewArtifactDateRepository(db *DB) *ArtifactDateRepository {
	return &ArtifactDateRepository{db: db}
}

// ListCreatedAtByUser returns the creation timestamps of every photo, note
// and summary the user owns. Rows with a NULL created_at are excluded at the
// query level rather than defaulted.
func (r *ArtifactDateRepository) ListCreatedAtByUser(ctx context.Context, userID uuid.UUID) ([]time.Time, error) {
	query := `
		SELECT created_at FROM photos WHERE user_id = $1 AND created_at IS NOT NULL
		UNION ALL
		SELECT created_at FROM notes WHERE user_id = $1 AND created_at IS NOT NULL
		UNION ALL
		SELECT created_at FROM summaries WHERE user_id = $1 AND created_at IS NOT NULL
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifact dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("failed to scan artifact date: %w", err)
		}
		out = append(out, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read artifact date rows: %w", err)
	}
	return out, nil
}
