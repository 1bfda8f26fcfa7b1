// Package retrieve groups persisted artifacts into UTC calendar days and
// resolves photo binary content for display.
package retrieve

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sitejournal/api/internal/models"
	"go.uber.org/zap"
)

// DayFormat is the wire format for calendar days.
const DayFormat = "2006-01-02"

// DefaultResolveWorkers bounds concurrent photo content downloads per page.
// The source flow fanned out one download per photo with no cap; a fixed pool
// keeps a large day from exhausting connections.
const DefaultResolveWorkers = 4

// ArtifactReader is the read side of the artifact store.
type ArtifactReader interface {
	// ListCreatedAt returns creation timestamps across all artifact kinds.
	// Rows without a timestamp are excluded at the query level.
	ListCreatedAt(ctx context.Context) ([]time.Time, error)
	PhotosInRange(ctx context.Context, from, to time.Time) ([]*models.Photo, error)
	NotesInRange(ctx context.Context, from, to time.Time) ([]*models.Note, error)
	SummariesInRange(ctx context.Context, from, to time.Time) ([]*models.Summary, error)
}

// BlobDownloader resolves a content key into raw bytes.
type BlobDownloader interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// PhotoWithContent pairs a photo row with its resolved binary content.
// Content is nil when resolution failed; the record itself is always kept.
type PhotoWithContent struct {
	*models.Photo
	Content []byte `json:"content,omitempty"`
}

// DayBucket is everything recorded on one UTC calendar day.
type DayBucket struct {
	Day       string              `json:"day"`
	Photos    []PhotoWithContent  `json:"photos"`
	Notes     []*models.Note      `json:"notes"`
	Summaries []*models.Summary   `json:"summaries"`
}

// Aggregator implements day listing and per-day retrieval.
type Aggregator struct {
	reader  ArtifactReader
	blobs   BlobDownloader
	logger  *zap.Logger
	workers int
}

// NewAggregator creates an aggregator with the default resolution pool size.
func NewAggregator(reader ArtifactReader, blobs BlobDownloader, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		reader:  reader,
		blobs:   blobs,
		logger:  logger,
		workers: DefaultResolveWorkers,
	}
}

// SetResolveWorkers overrides the content resolution pool size.
func (a *Aggregator) SetResolveWorkers(n int) {
	if n > 0 {
		a.workers = n
	}
}

// ListAvailableDates returns the distinct UTC calendar days that have at
// least one artifact, newest first. Records without a creation timestamp are
// excluded rather than counted as today.
func (a *Aggregator) ListAvailableDates(ctx context.Context) ([]string, error) {
	stamps, err := a.reader.ListCreatedAt(ctx)
	if err != nil {
		return nil, fmt.Errorf("list artifact dates: %w", err)
	}

	days := make(map[string]time.Time, len(stamps))
	for _, ts := range stamps {
		if ts.IsZero() {
			continue
		}
		utc := ts.UTC()
		day := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
		days[day.Format(DayFormat)] = day
	}

	ordered := make([]time.Time, 0, len(days))
	for _, day := range days {
		ordered = append(ordered, day)
	}
	// Sort on the date value, not the formatted string.
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].After(ordered[j]) })

	out := make([]string, len(ordered))
	for i, day := range ordered {
		out[i] = day.Format(DayFormat)
	}
	return out, nil
}

// DayRange returns the inclusive UTC range covering one calendar day:
// [00:00:00.000, 23:59:59.999].
func DayRange(day string) (from, to time.Time, err error) {
	from, err = time.ParseInLocation(DayFormat, day, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid day %q: %w", day, err)
	}
	to = from.Add(24*time.Hour - time.Millisecond)
	return from, to, nil
}

// FetchDay returns all artifacts created on the given UTC calendar day.
// Photo content is resolved per record on a bounded pool; a failed download
// leaves that record's content absent instead of dropping the record or
// failing the page. Photo order matches the base query result regardless of
// resolution completion order. Summaries are ordered newest first by the
// store.
func (a *Aggregator) FetchDay(ctx context.Context, day string) (*DayBucket, error) {
	from, to, err := DayRange(day)
	if err != nil {
		return nil, err
	}

	photos, err := a.reader.PhotosInRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("query photos: %w", err)
	}
	notes, err := a.reader.NotesInRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	summaries, err := a.reader.SummariesInRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}

	return &DayBucket{
		Day:       day,
		Photos:    a.resolveContent(ctx, photos),
		Notes:     notes,
		Summaries: summaries,
	}, nil
}

func (a *Aggregator) resolveContent(ctx context.Context, photos []*models.Photo) []PhotoWithContent {
	out := make([]PhotoWithContent, len(photos))
	sem := make(chan struct{}, a.workers)
	var wg sync.WaitGroup

	for i, photo := range photos {
		out[i].Photo = photo

		wg.Add(1)
		go func(i int, photo *models.Photo) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			data, err := a.blobs.Download(ctx, photo.ContentKey)
			if err != nil {
				a.logger.Warn("photo_content_resolution_failed",
					zap.String("photo_id", photo.ID.String()),
					zap.String("content_key", photo.ContentKey),
					zap.Error(err),
				)
				return
			}
			out[i].Content = data
		}(i, photo)
	}

	wg.Wait()
	return out
}
