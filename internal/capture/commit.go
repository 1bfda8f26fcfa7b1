package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sitejournal/api/internal/models"
	"go.uber.org/zap"
)

// ErrNoUser is returned when commit is attempted without an authenticated
// user. Surfaced distinctly from storage errors so callers can redirect to
// re-authentication instead of retrying.
var ErrNoUser = errors.New("capture: no authenticated user")

// Transcoder compresses or re-encodes raw image bytes before upload.
type Transcoder interface {
	Transcode(ctx context.Context, data []byte, contentType string) ([]byte, string, error)
}

// BlobUploader stores binary content and returns the storage key it was
// written under.
type BlobUploader interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// ArtifactWriter persists committed artifacts. Inserts are append-only.
type ArtifactWriter interface {
	InsertPhoto(ctx context.Context, photo *models.Photo) error
	InsertNote(ctx context.Context, note *models.Note) error
}

// Locator yields the device location, when one is available. Implementations
// may fail freely; location is never required for a commit to succeed.
type Locator interface {
	Current(ctx context.Context) (*models.Geolocation, error)
}

// DerivativeEnqueuer schedules post-commit processing (preview generation)
// for a stored photo. Enqueue failures are logged and swallowed.
type DerivativeEnqueuer interface {
	EnqueueDerivative(ctx context.Context, photo *models.Photo) error
}

// Committer runs the terminal wizard step: transcode, upload, insert. It owns
// no session state; callers pass the session in and get the terminal session
// back.
type Committer struct {
	transcoder  Transcoder
	blobs       BlobUploader
	artifacts   ArtifactWriter
	locator     Locator
	derivatives DerivativeEnqueuer
	logger      *zap.Logger
}

// CommitterOption configures optional collaborators.
type CommitterOption func(*Committer)

// WithLocator attaches a best-effort location source.
func WithLocator(l Locator) CommitterOption {
	return func(c *Committer) { c.locator = l }
}

// WithDerivativeEnqueuer attaches a best-effort post-commit job queue.
func WithDerivativeEnqueuer(e DerivativeEnqueuer) CommitterOption {
	return func(c *Committer) { c.derivatives = e }
}

// NewCommitter creates a committer. Transcoder, uploader and writer are
// required; location and derivative queueing are optional.
func NewCommitter(t Transcoder, b BlobUploader, a ArtifactWriter, logger *zap.Logger, opts ...CommitterOption) *Committer {
	c := &Committer{
		transcoder: t,
		blobs:      b,
		artifacts:  a,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CommitPhoto runs the photo commit pipeline for a session sitting on the
// note step. On success the returned session is Done and the persisted photo
// is returned; on any pipeline failure the session is Failed with Err set to
// the underlying cause, and the same cause is returned. The commit is never
// retried here; re-offering the commit or discarding the session is the
// caller's decision.
func (c *Committer) CommitPhoto(ctx context.Context, user *models.User, s Session, image []byte, contentType string) (Session, *models.Photo, error) {
	if s.Flow != FlowPhoto {
		return s, nil, ErrInvalidEvent
	}
	s, err := Transition(s, Advance{})
	if err != nil {
		return s, nil, err
	}
	if user == nil {
		return fail(s, ErrNoUser), nil, ErrNoUser
	}

	data, uploadType, err := c.transcoder.Transcode(ctx, image, contentType)
	if err != nil {
		err = fmt.Errorf("transcode image: %w", err)
		return fail(s, err), nil, err
	}

	id := uuid.New()
	path := fmt.Sprintf("%s/%s.jpg", user.ID, id)
	key, err := c.blobs.Upload(ctx, path, data, uploadType)
	if err != nil {
		err = fmt.Errorf("upload photo content: %w", err)
		return fail(s, err), nil, err
	}

	photo := &models.Photo{
		ID:         id,
		UserID:     user.ID,
		ContentKey: key,
		Anchor:     s.Anchor,
		Labels:     s.LabelList(),
		Location:   c.locate(ctx, user),
	}
	if s.Title != "" {
		title := s.Title
		photo.Title = &title
	}
	if s.Note != "" {
		note := s.Note
		photo.Note = &note
	}

	if err := c.artifacts.InsertPhoto(ctx, photo); err != nil {
		err = fmt.Errorf("insert photo: %w", err)
		return fail(s, err), nil, err
	}

	c.enqueueDerivative(ctx, photo)

	s.Stage = StageDone
	return s, photo, nil
}

// CommitNote runs the note commit for a session sitting on the content step.
func (c *Committer) CommitNote(ctx context.Context, user *models.User, s Session) (Session, *models.Note, error) {
	if s.Flow != FlowNote {
		return s, nil, ErrInvalidEvent
	}
	s, err := Transition(s, Advance{})
	if err != nil {
		return s, nil, err
	}
	if user == nil {
		return fail(s, ErrNoUser), nil, ErrNoUser
	}

	note := &models.Note{
		ID:      uuid.New(),
		UserID:  user.ID,
		Title:   s.Title,
		Content: s.Content,
	}
	if err := c.artifacts.InsertNote(ctx, note); err != nil {
		err = fmt.Errorf("insert note: %w", err)
		return fail(s, err), nil, err
	}

	s.Stage = StageDone
	return s, note, nil
}

type reportedLocationKey struct{}

// WithReportedLocation attaches a client-reported capture location to the
// context. A reported location takes precedence over the committer's locator.
func WithReportedLocation(ctx context.Context, loc models.Geolocation) context.Context {
	return context.WithValue(ctx, reportedLocationKey{}, loc)
}

// ReportedLocation returns the client-reported capture location, if any.
func ReportedLocation(ctx context.Context) *models.Geolocation {
	loc, ok := ctx.Value(reportedLocationKey{}).(models.Geolocation)
	if !ok {
		return nil
	}
	return &loc
}

// locate prefers a client-reported location, then asks the optional location
// source with a short deadline. Any failure simply omits the field.
func (c *Committer) locate(ctx context.Context, user *models.User) *models.Geolocation {
	if loc := ReportedLocation(ctx); loc != nil {
		return loc
	}
	if c.locator == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	loc, err := c.locator.Current(ctx)
	if err != nil {
		c.logger.Debug("geolocation_unavailable",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return nil
	}
	return loc
}

func (c *Committer) enqueueDerivative(ctx context.Context, photo *models.Photo) {
	if c.derivatives == nil {
		return
	}
	if err := c.derivatives.EnqueueDerivative(ctx, photo); err != nil {
		c.logger.Warn("failed_to_enqueue_photo_derivative",
			zap.String("photo_id", photo.ID.String()),
			zap.Error(err),
		)
	}
}

func fail(s Session, err error) Session {
	s.Stage = StageFailed
	s.Err = err
	return s
}
