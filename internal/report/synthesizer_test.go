package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sitejournal/api/internal/models"
	"go.uber.org/zap"
)

type fakeSummarizer struct {
	gotText string
	out     string
	err     error
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string) (string, error) {
	f.gotText = text
	return f.out, f.err
}

type fakeSummaryWriter struct {
	saved []*models.Summary
	err   error
}

func (f *fakeSummaryWriter) InsertSummary(_ context.Context, s *models.Summary) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, s)
	return nil
}

func strptr(s string) *string { return &s }

func reportUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "pm@example.com"}
}

func TestSelectionText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		photos []*models.Photo
		notes  []*models.Note
		want   string
	}{
		{
			name: "photo note preferred over title",
			photos: []*models.Photo{
				{Note: strptr("rebar placed"), Title: strptr("ignored")},
			},
			want: "rebar placed",
		},
		{
			name: "photo falls back to title",
			photos: []*models.Photo{
				{Title: strptr("east footing")},
			},
			want: "east footing",
		},
		{
			name: "photo with neither is skipped",
			photos: []*models.Photo{
				{},
				{Note: strptr("B")},
			},
			want: "B",
		},
		{
			name: "note content preferred over title",
			notes: []*models.Note{
				{Title: "Day 3", Content: "delivery delayed"},
			},
			want: "delivery delayed",
		},
		{
			name: "note falls back to title",
			notes: []*models.Note{
				{Title: "Day 3"},
			},
			want: "Day 3",
		},
		{
			name: "fragments joined with single newlines in order",
			photos: []*models.Photo{
				{Note: strptr("A")},
			},
			notes: []*models.Note{
				{Content: "B"},
			},
			want: "A\nB",
		},
		{
			name: "empty selection yields empty text",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := SelectionText(tt.photos, tt.notes); got != tt.want {
				t.Errorf("SelectionText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSynthesizePersistsModelOutput(t *testing.T) {
	t.Parallel()

	sum := &fakeSummarizer{out: "Concrete pour completed on schedule."}
	writer := &fakeSummaryWriter{}
	s := NewSynthesizer(sum, writer, zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, 6, 1, 14, 30, 5, 0, time.UTC) }

	user := reportUser()
	got, err := s.Synthesize(context.Background(), user,
		[]*models.Photo{{Note: strptr("pour done")}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(writer.saved) != 1 {
		t.Fatalf("saved %d summaries, want 1", len(writer.saved))
	}
	if got.SummaryText != "Concrete pour completed on schedule." {
		t.Errorf("summary text = %q", got.SummaryText)
	}
	if got.UserID != user.ID {
		t.Errorf("user id = %s", got.UserID)
	}
	if sum.gotText != "pour done" {
		t.Errorf("model input = %q", sum.gotText)
	}
	if !strings.HasPrefix(got.Title, "Site Report ") {
		t.Errorf("title = %q, want Site Report prefix", got.Title)
	}
	if !strings.Contains(got.Title, "2:30:05 PM") {
		t.Errorf("title = %q, want wall-clock time appended", got.Title)
	}
}

func TestSynthesizeFallsBackOnModelFailure(t *testing.T) {
	t.Parallel()

	sum := &fakeSummarizer{err: errors.New("rate limited")}
	writer := &fakeSummaryWriter{}
	s := NewSynthesizer(sum, writer, zap.NewNop())

	got, err := s.Synthesize(context.Background(), reportUser(), nil,
		[]*models.Note{{Content: "x"}})
	if err != nil {
		t.Fatalf("model failure surfaced as error: %v", err)
	}
	if got.SummaryText != FallbackSummary {
		t.Errorf("summary text = %q, want fallback", got.SummaryText)
	}
	if len(writer.saved) != 1 {
		t.Errorf("fallback summary not persisted")
	}
}

func TestSynthesizePersistFailureIsAnError(t *testing.T) {
	t.Parallel()

	boom := errors.New("insert failed")
	s := NewSynthesizer(&fakeSummarizer{out: "ok"}, &fakeSummaryWriter{err: boom}, zap.NewNop())

	if _, err := s.Synthesize(context.Background(), reportUser(), nil, nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want persistence error", err)
	}
}

func TestSynthesizeEmptySelectionStillCompletes(t *testing.T) {
	t.Parallel()

	sum := &fakeSummarizer{out: "Nothing to report."}
	writer := &fakeSummaryWriter{}
	s := NewSynthesizer(sum, writer, zap.NewNop())

	got, err := s.Synthesize(context.Background(), reportUser(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sum.gotText != "" {
		t.Errorf("model input = %q, want empty", sum.gotText)
	}
	if len(writer.saved) != 1 || got == nil {
		t.Error("summary not persisted for empty selection")
	}
}

func TestSynthesizeWithoutUser(t *testing.T) {
	t.Parallel()

	writer := &fakeSummaryWriter{}
	s := NewSynthesizer(&fakeSummarizer{}, writer, zap.NewNop())

	if _, err := s.Synthesize(context.Background(), nil, nil, nil); !errors.Is(err, ErrNoUser) {
		t.Fatalf("err = %v, want ErrNoUser", err)
	}
	if len(writer.saved) != 0 {
		t.Error("summary persisted without a user")
	}
}
