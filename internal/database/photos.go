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

// PhotoRepository handles photo database operations. Photos are append-only;
// there is no update or delete.
type PhotoRepository struct {
	db *DB
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create inserts a committed photo record
func (r *PhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	query := `
		INSERT INTO photos (id, user_id, content_key, title, note, anchor_x, anchor_y, labels, location_lat, location_lon, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`

	var anchorX, anchorY, lat, lon sql.NullFloat64
	if photo.Anchor != nil {
		anchorX = sql.NullFloat64{Float64: photo.Anchor.X, Valid: true}
		anchorY = sql.NullFloat64{Float64: photo.Anchor.Y, Valid: true}
	}
	if photo.Location != nil {
		lat = sql.NullFloat64{Float64: photo.Location.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: photo.Location.Lon, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		photo.ID,
		photo.UserID,
		photo.ContentKey,
		photo.Title,
		photo.Note,
		anchorX,
		anchorY,
		pq.Array(photo.Labels),
		lat,
		lon,
		time.Now(),
	).Scan(&photo.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create photo: %w", err)
	}

	return nil
}

// GetByIDs retrieves photos by ID for one user, preserving the order of the
// requested IDs. IDs that do not exist or belong to another user are simply
// absent from the result.
func (r *PhotoRepository) GetByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*models.Photo, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, user_id, content_key, title, note, anchor_x, anchor_y, labels, location_lat, location_lon, created_at
		FROM photos
		WHERE user_id = $1 AND id = ANY($2)
	`

	rows, err := r.db.QueryContext(ctx, query, userID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get photos by ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[uuid.UUID]*models.Photo, len(ids))
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		byID[photo.ID] = photo
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read photo rows: %w", err)
	}

	out := make([]*models.Photo, 0, len(byID))
	for _, id := range ids {
		if photo, ok := byID[id]; ok {
			out = append(out, photo)
		}
	}
	return out, nil
}

// GetByUserInRange retrieves a user's photos created within [from, to],
// oldest first.
func (r *PhotoRepository) GetByUserInRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.Photo, error) {
	query := `
		SELECT id, user_id, content_key, title, note, anchor_x, anchor_y, labels, location_lat, location_lon, created_at
		FROM photos
		WHERE user_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get photos in range: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read photo rows: %w", err)
	}
	return out, nil
}

func scanPhoto(rows *sql.Rows) (*models.Photo, error) {
	photo := &models.Photo{}
	var anchorX, anchorY, lat, lon sql.NullFloat64
	var createdAt sql.NullTime

	err := rows.Scan(
		&photo.ID,
		&photo.UserID,
		&photo.ContentKey,
		&photo.Title,
		&photo.Note,
		&anchorX,
		&anchorY,
		pq.Array(&photo.Labels),
		&lat,
		&lon,
		&createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan photo: %w", err)
	}

	if anchorX.Valid && anchorY.Valid {
		photo.Anchor = &models.Anchor{X: anchorX.Float64, Y: anchorY.Float64}
	}
	if lat.Valid && lon.Valid {
		photo.Location = &models.Geolocation{Lat: lat.Float64, Lon: lon.Float64}
	}
	if createdAt.Valid {
		photo.CreatedAt = createdAt.Time
	}

	return photo, nil
}
