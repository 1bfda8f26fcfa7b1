package retrieve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sitejournal/api/internal/models"
	"go.uber.org/zap"
)

type fakeReader struct {
	stamps    []time.Time
	stampsErr error

	photos    []*models.Photo
	photosErr error
	notes     []*models.Note
	summaries []*models.Summary

	gotFrom, gotTo time.Time
}

func (f *fakeReader) ListCreatedAt(context.Context) ([]time.Time, error) {
	return f.stamps, f.stampsErr
}

func (f *fakeReader) PhotosInRange(_ context.Context, from, to time.Time) ([]*models.Photo, error) {
	f.gotFrom, f.gotTo = from, to
	return f.photos, f.photosErr
}

func (f *fakeReader) NotesInRange(_ context.Context, _, _ time.Time) ([]*models.Note, error) {
	return f.notes, nil
}

func (f *fakeReader) SummariesInRange(_ context.Context, _, _ time.Time) ([]*models.Summary, error) {
	return f.summaries, nil
}

// fakeBlobs returns the key back as content, failing for keys in failKeys.
type fakeBlobs struct {
	mu       sync.Mutex
	failKeys map[string]bool

	inFlight    int
	maxInFlight int
	delay       time.Duration
}

func (f *fakeBlobs) Download(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if f.failKeys[key] {
		return nil, errors.New("object not found")
	}
	return []byte(key), nil
}

func photoWithKey(key string, created time.Time) *models.Photo {
	return &models.Photo{ID: uuid.New(), UserID: uuid.New(), ContentKey: key, CreatedAt: created}
}

func TestListAvailableDatesGroupsByUTCDay(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{stamps: []time.Time{
		time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 1, 23, 59, 59, 0, time.UTC),
		time.Date(2025, 6, 2, 0, 0, 1, 0, time.UTC),
	}}
	agg := NewAggregator(reader, &fakeBlobs{}, zap.NewNop())

	got, err := agg.ListAvailableDates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2025-06-02", "2025-06-01"}
	if len(got) != len(want) {
		t.Fatalf("dates = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dates[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestListAvailableDatesSkipsMissingTimestamps(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{stamps: []time.Time{
		{},
		time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
	}}
	agg := NewAggregator(reader, &fakeBlobs{}, zap.NewNop())

	got, err := agg.ListAvailableDates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "2025-03-14" {
		t.Errorf("dates = %v, want [2025-03-14]", got)
	}
}

func TestListAvailableDatesUsesUTCNotLocal(t *testing.T) {
	t.Parallel()

	// 2025-06-01T23:30-03:00 is 2025-06-02T02:30 UTC.
	loc := time.FixedZone("UTC-3", -3*60*60)
	reader := &fakeReader{stamps: []time.Time{
		time.Date(2025, 6, 1, 23, 30, 0, 0, loc),
	}}
	agg := NewAggregator(reader, &fakeBlobs{}, zap.NewNop())

	got, err := agg.ListAvailableDates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "2025-06-02" {
		t.Errorf("dates = %v, want [2025-06-02]", got)
	}
}

func TestDayRange(t *testing.T) {
	t.Parallel()

	from, to, err := DayRange("2025-06-01")
	if err != nil {
		t.Fatal(err)
	}
	if !from.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v", from)
	}
	if !to.Equal(time.Date(2025, 6, 1, 23, 59, 59, 999_000_000, time.UTC)) {
		t.Errorf("to = %v", to)
	}

	if _, _, err := DayRange("June 1st"); err == nil {
		t.Error("malformed day accepted")
	}
}

func TestFetchDayQueriesFullDayRange(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{}
	agg := NewAggregator(reader, &fakeBlobs{}, zap.NewNop())

	if _, err := agg.FetchDay(context.Background(), "2025-06-01"); err != nil {
		t.Fatal(err)
	}
	if reader.gotFrom.Hour() != 0 || reader.gotFrom.Day() != 1 {
		t.Errorf("query from = %v", reader.gotFrom)
	}
	if reader.gotTo.Hour() != 23 || reader.gotTo.Second() != 59 {
		t.Errorf("query to = %v", reader.gotTo)
	}
}

func TestFetchDayToleratesFailedDownloads(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	reader := &fakeReader{photos: []*models.Photo{
		photoWithKey("a.jpg", created),
		photoWithKey("missing.jpg", created),
		photoWithKey("c.jpg", created),
	}}
	blobs := &fakeBlobs{failKeys: map[string]bool{"missing.jpg": true}}
	agg := NewAggregator(reader, blobs, zap.NewNop())

	bucket, err := agg.FetchDay(context.Background(), "2025-06-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(bucket.Photos) != 3 {
		t.Fatalf("photos = %d, want all 3 records kept", len(bucket.Photos))
	}
	if string(bucket.Photos[0].Content) != "a.jpg" {
		t.Errorf("photo 0 content = %q", bucket.Photos[0].Content)
	}
	if bucket.Photos[1].Content != nil {
		t.Errorf("failed download content = %q, want absent", bucket.Photos[1].Content)
	}
	if string(bucket.Photos[2].Content) != "c.jpg" {
		t.Errorf("photo 2 content = %q", bucket.Photos[2].Content)
	}
}

func TestFetchDayPreservesQueryOrder(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	var photos []*models.Photo
	for i := 0; i < 20; i++ {
		photos = append(photos, photoWithKey(fmt.Sprintf("p%02d.jpg", i), created))
	}
	reader := &fakeReader{photos: photos}
	agg := NewAggregator(reader, &fakeBlobs{delay: time.Millisecond}, zap.NewNop())

	bucket, err := agg.FetchDay(context.Background(), "2025-06-01")
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range bucket.Photos {
		want := fmt.Sprintf("p%02d.jpg", i)
		if p.ContentKey != want {
			t.Fatalf("photos[%d] = %s, want %s", i, p.ContentKey, want)
		}
		if string(p.Content) != want {
			t.Fatalf("photos[%d] content = %q, want %q", i, p.Content, want)
		}
	}
}

func TestFetchDayBoundsDownloadConcurrency(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	var photos []*models.Photo
	for i := 0; i < 16; i++ {
		photos = append(photos, photoWithKey(fmt.Sprintf("p%d.jpg", i), created))
	}
	reader := &fakeReader{photos: photos}
	blobs := &fakeBlobs{delay: 5 * time.Millisecond}
	agg := NewAggregator(reader, blobs, zap.NewNop())
	agg.SetResolveWorkers(2)

	if _, err := agg.FetchDay(context.Background(), "2025-06-01"); err != nil {
		t.Fatal(err)
	}
	if blobs.maxInFlight > 2 {
		t.Errorf("max concurrent downloads = %d, want <= 2", blobs.maxInFlight)
	}
}

func TestFetchDayFailsOnBaseQueryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	reader := &fakeReader{photosErr: boom}
	agg := NewAggregator(reader, &fakeBlobs{}, zap.NewNop())

	if _, err := agg.FetchDay(context.Background(), "2025-06-01"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped base query error", err)
	}
}

func TestListAvailableDatesPropagatesStoreError(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	agg := NewAggregator(&fakeReader{stampsErr: boom}, &fakeBlobs{}, zap.NewNop())

	if _, err := agg.ListAvailableDates(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
