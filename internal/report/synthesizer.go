// Package report turns a user's selection of photos and notes into a
// persisted daily report summary.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sitejournal/api/internal/models"
	"go.uber.org/zap"
)

// FallbackSummary is persisted verbatim when the language model cannot
// produce a summary. A degraded report is still a report; the selection the
// user made is not lost.
const FallbackSummary = "Summary could not be generated."

// TitlePrefix starts every generated report title; the wall-clock time of
// generation is appended.
const TitlePrefix = "Site Report "

// titleTimeFormat renders the local wall-clock time in the report title.
const titleTimeFormat = "1/2/2006, 3:04:05 PM"

// ErrNoUser is returned when synthesis is attempted without an authenticated
// user.
var ErrNoUser = errors.New("report: no authenticated user")

// Summarizer produces a prose summary from plain selection text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// SummaryWriter persists generated summaries.
type SummaryWriter interface {
	InsertSummary(ctx context.Context, summary *models.Summary) error
}

// Synthesizer extracts text from a selection, summarizes it, and persists the
// result.
type Synthesizer struct {
	summarizer Summarizer
	writer     SummaryWriter
	logger     *zap.Logger
	now        func() time.Time
}

// NewSynthesizer creates a synthesizer using the local wall clock for report
// titles.
func NewSynthesizer(summarizer Summarizer, writer SummaryWriter, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		summarizer: summarizer,
		writer:     writer,
		logger:     logger,
		now:        time.Now,
	}
}

// SelectionText extracts the report input from a selection, preserving the
// selection order. A photo contributes its note, falling back to its title;
// a photo with neither is skipped. A note contributes its content, falling
// back to its title. Fragments are joined with single newlines.
func SelectionText(photos []*models.Photo, notes []*models.Note) string {
	fragments := make([]string, 0, len(photos)+len(notes))
	for _, p := range photos {
		switch {
		case p.Note != nil && *p.Note != "":
			fragments = append(fragments, *p.Note)
		case p.Title != nil && *p.Title != "":
			fragments = append(fragments, *p.Title)
		}
	}
	for _, n := range notes {
		switch {
		case n.Content != "":
			fragments = append(fragments, n.Content)
		case n.Title != "":
			fragments = append(fragments, n.Title)
		}
	}
	return strings.Join(fragments, "\n")
}

// Synthesize summarizes the selection and persists the result for the user.
// A summarization failure degrades to FallbackSummary and still persists; a
// persistence failure is returned as an error. The two failure modes are
// deliberately asymmetric.
func (s *Synthesizer) Synthesize(ctx context.Context, user *models.User, photos []*models.Photo, notes []*models.Note) (*models.Summary, error) {
	if user == nil {
		return nil, ErrNoUser
	}

	text := SelectionText(photos, notes)

	summaryText, err := s.summarizer.Summarize(ctx, text)
	if err != nil {
		s.logger.Warn("summary_generation_failed",
			zap.String("user_id", user.ID.String()),
			zap.Int("photo_count", len(photos)),
			zap.Int("note_count", len(notes)),
			zap.Error(err),
		)
		summaryText = FallbackSummary
	}

	summary := &models.Summary{
		ID:          uuid.New(),
		UserID:      user.ID,
		Title:       TitlePrefix + s.now().Format(titleTimeFormat),
		SummaryText: summaryText,
	}
	if err := s.writer.InsertSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("insert summary: %w", err)
	}
	return summary, nil
}
