package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sitejournal/api/internal/models"
)

// NoteRepository handles note database operations
type NoteRepository struct {
	db *DB
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(db *DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create inserts a committed note record
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	query := `
		INSERT INTO notes (id, user_id, title, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		note.ID,
		note.UserID,
		note.Title,
		note.Content,
		time.Now(),
	).Scan(&note.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	return nil
}

// GetByIDs retrieves notes by ID for one user, preserving the order of the
// requested IDs.
func (r *NoteRepository) GetByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*models.Note, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, user_id, title, content, created_at
		FROM notes
		WHERE user_id = $1 AND id = ANY($2)
	`

	rows, err := r.db.QueryContext(ctx, query, userID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get notes by ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[uuid.UUID]*models.Note, len(ids))
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		byID[note.ID] = note
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read note rows: %w", err)
	}

	out := make([]*models.Note, 0, len(byID))
	for _, id := range ids {
		if note, ok := byID[id]; ok {
			out = append(out, note)
		}
	}
	return out, nil
}

// GetByUserInRange retrieves a user's notes created within [from, to],
// oldest first.
func (r *NoteRepository) GetByUserInRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.Note, error) {
	query := `
		SELECT id, user_id, title, content, created_at
		FROM notes
		WHERE user_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get notes in range: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read note rows: %w", err)
	}
	return out, nil
}

func scanNote(rows *sql.Rows) (*models.Note, error) {
	note := &models.Note{}
	var createdAt sql.NullTime

	err := rows.Scan(
		&note.ID,
		&note.UserID,
		&note.Title,
		&note.Content,
		&createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan note: %w", err)
	}

	if createdAt.Valid {
		note.CreatedAt = createdAt.Time
	}

	return note, nil
}
