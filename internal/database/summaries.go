package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sitejournal/api/internal/models"
)

// SummaryRepository handles summary database operations
type SummaryRepository struct {
	db *DB
}

// NewSummaryRepository creates a new summary repository
func NewSummaryRepository(db *DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// Create inserts a generated summary record
func (r *SummaryRepository) Create(ctx context.Context, summary *models.Summary) error {
	query := `
		INSERT INTO summaries (id, user_id, title, summary_text, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		summary.ID,
		summary.UserID,
		summary.Title,
		summary.SummaryText,
		time.Now(),
	).Scan(&summary.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create summary: %w", err)
	}

	return nil
}

// GetByUserInRange retrieves a user's summaries created within [from, to],
// newest first.
func (r *SummaryRepository) GetByUserInRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.Summary, error) {
	query := `
		SELECT id, user_id, title, summary_text, created_at
		FROM summaries
		WHERE user_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get summaries in range: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Summary
	for rows.Next() {
		summary := &models.Summary{}
		var createdAt sql.NullTime

		err := rows.Scan(
			&summary.ID,
			&summary.UserID,
			&summary.Title,
			&summary.SummaryText,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		if createdAt.Valid {
			summary.CreatedAt = createdAt.Time
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read summary rows: %w", err)
	}
	return out, nil
}
