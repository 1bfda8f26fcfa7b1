package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sitejournal/api/internal/capture"
	"github.com/sitejournal/api/internal/models"
	"github.com/sitejournal/api/internal/report"
	"github.com/sitejournal/api/internal/retrieve"
)

// UserRepositoryInterface defines the interface for user repository
// operations. It enables mock implementations in handler and middleware
// tests.
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
}

// BlobRepositoryInterface defines the interface for blob storage operations
type BlobRepositoryInterface interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
}

// ArtifactStore bundles the per-table repositories behind the write and read
// surfaces the domain packages consume.
type ArtifactStore struct {
	Photos    *PhotoRepository
	Notes     *NoteRepository
	Summaries *SummaryRepository
	Dates     *ArtifactDateRepository
}

// NewArtifactStore creates repositories for all artifact tables.
func NewArtifactStore(db *DB) *ArtifactStore {
	return &ArtifactStore{
		Photos:    NewPhotoRepository(db),
		Notes:     NewNoteRepository(db),
		Summaries: NewSummaryRepository(db),
		Dates:     NewArtifactDateRepository(db),
	}
}

// InsertPhoto persists a committed photo.
func (s *ArtifactStore) InsertPhoto(ctx context.Context, photo *models.Photo) error {
	return s.Photos.Create(ctx, photo)
}

// InsertNote persists a committed note.
func (s *ArtifactStore) InsertNote(ctx context.Context, note *models.Note) error {
	return s.Notes.Create(ctx, note)
}

// InsertSummary persists a generated summary.
func (s *ArtifactStore) InsertSummary(ctx context.Context, summary *models.Summary) error {
	return s.Summaries.Create(ctx, summary)
}

// PhotosByIDs returns the user's photos for the given IDs, in the order the
// IDs were given. Unknown or foreign IDs are silently absent.
func (s *ArtifactStore) PhotosByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*models.Photo, error) {
	return s.Photos.GetByIDs(ctx, userID, ids)
}

// NotesByIDs returns the user's notes for the given IDs, in the order the IDs
// were given.
func (s *ArtifactStore) NotesByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*models.Note, error) {
	return s.Notes.GetByIDs(ctx, userID, ids)
}

// ForUser returns a view of the store scoped to one user's artifacts.
func (s *ArtifactStore) ForUser(userID uuid.UUID) *UserArtifacts {
	return &UserArtifacts{store: s, userID: userID}
}

// UserArtifacts is a read view over a single user's records.
type UserArtifacts struct {
	store  *ArtifactStore
	userID uuid.UUID
}

// ListCreatedAt returns the user's artifact creation timestamps across all
// kinds.
func (u *UserArtifacts) ListCreatedAt(ctx context.Context) ([]time.Time, error) {
	return u.store.Dates.ListCreatedAtByUser(ctx, u.userID)
}

// PhotosInRange returns the user's photos created within [from, to].
func (u *UserArtifacts) PhotosInRange(ctx context.Context, from, to time.Time) ([]*models.Photo, error) {
	return u.store.Photos.GetByUserInRange(ctx, u.userID, from, to)
}

// NotesInRange returns the user's notes created within [from, to].
func (u *UserArtifacts) NotesInRange(ctx context.Context, from, to time.Time) ([]*models.Note, error) {
	return u.store.Notes.GetByUserInRange(ctx, u.userID, from, to)
}

// SummariesInRange returns the user's summaries created within [from, to],
// newest first.
func (u *UserArtifacts) SummariesInRange(ctx context.Context, from, to time.Time) ([]*models.Summary, error) {
	return u.store.Summaries.GetByUserInRange(ctx, u.userID, from, to)
}

// Ensure concrete types satisfy the surfaces the domain packages consume
var (
	_ capture.ArtifactWriter    = (*ArtifactStore)(nil)
	_ report.SummaryWriter      = (*ArtifactStore)(nil)
	_ retrieve.ArtifactReader   = (*UserArtifacts)(nil)
	_ capture.BlobUploader      = (*BlobRepository)(nil)
	_ retrieve.BlobDownloader   = (*BlobRepository)(nil)
	_ UserRepositoryInterface   = (*UserRepository)(nil)
	_ BlobRepositoryInterface   = (*BlobRepository)(nil)
)
