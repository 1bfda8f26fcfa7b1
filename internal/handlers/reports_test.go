package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sitejournal/api/internal/middleware"
	"github.com/sitejournal/api/internal/models"
)

type fakeSelection struct {
	photos       []*models.Photo
	notes        []*models.Note
	photosErr    error
	notesErr     error
	photoIDsSeen []uuid.UUID
	noteIDsSeen  []uuid.UUID
}

func (f *fakeSelection) PhotosByIDs(_ context.Context, _ uuid.UUID, ids []uuid.UUID) ([]*models.Photo, error) {
	f.photoIDsSeen = ids
	return f.photos, f.photosErr
}

func (f *fakeSelection) NotesByIDs(_ context.Context, _ uuid.UUID, ids []uuid.UUID) ([]*models.Note, error) {
	f.noteIDsSeen = ids
	return f.notes, f.notesErr
}

type fakeSynthesizer struct {
	summary *models.Summary
	err     error
	photos  []*models.Photo
	notes   []*models.Note
	called  bool
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, user *models.User, photos []*models.Photo, notes []*models.Note) (*models.Summary, error) {
	f.called = true
	f.photos = photos
	f.notes = notes
	if f.err != nil {
		return nil, f.err
	}
	if f.summary != nil {
		return f.summary, nil
	}
	return &models.Summary{ID: uuid.New(), UserID: user.ID, Title: "Site Report"}, nil
}

func reportRequest(t *testing.T, selection SelectionReader, synth ReportSynthesizer, body any, user *models.User) *httptest.ResponseRecorder {
	t.Helper()

	handler := NewReportHandler(selection, synth)
	router := mux.NewRouter()
	handler.RegisterRoutes(router.PathPrefix("/api/v1/reports").Subrouter())

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/reports", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(middleware.SetUserInContext(req.Context(), user))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGenerateReport(t *testing.T) {
	t.Parallel()

	t.Run("resolves selection in request order", func(t *testing.T) {
		t.Parallel()

		p1, p2 := uuid.New(), uuid.New()
		n1 := uuid.New()
		selection := &fakeSelection{
			photos: []*models.Photo{{ID: p1}, {ID: p2}},
			notes:  []*models.Note{{ID: n1}},
		}
		synth := &fakeSynthesizer{}

		req := GenerateReportRequest{
			PhotoIDs: []string{p1.String(), p2.String()},
			NoteIDs:  []string{n1.String()},
		}
		rec := reportRequest(t, selection, synth, req, testUser())
		if rec.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		if len(selection.photoIDsSeen) != 2 || selection.photoIDsSeen[0] != p1 || selection.photoIDsSeen[1] != p2 {
			t.Errorf("Expected photo IDs in request order, got %v", selection.photoIDsSeen)
		}
		if len(synth.photos) != 2 || len(synth.notes) != 1 {
			t.Errorf("Expected resolved selection to reach synthesizer, got %d photos %d notes", len(synth.photos), len(synth.notes))
		}
	})

	t.Run("empty selection still generates a report", func(t *testing.T) {
		t.Parallel()

		selection := &fakeSelection{}
		synth := &fakeSynthesizer{}
		rec := reportRequest(t, selection, synth, GenerateReportRequest{}, testUser())
		if rec.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !synth.called {
			t.Error("Expected synthesizer to run for an empty selection")
		}
		if selection.photoIDsSeen != nil || selection.noteIDsSeen != nil {
			t.Error("Expected no store lookups for an empty selection")
		}
	})

	t.Run("rejects invalid photo ID", func(t *testing.T) {
		t.Parallel()

		req := GenerateReportRequest{PhotoIDs: []string{"not-a-uuid"}}
		rec := reportRequest(t, &fakeSelection{}, &fakeSynthesizer{}, req, testUser())
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", rec.Code)
		}
	})

	t.Run("rejects oversized selection", func(t *testing.T) {
		t.Parallel()

		ids := make([]string, MaxReportSelection+1)
		for i := range ids {
			ids[i] = uuid.New().String()
		}
		rec := reportRequest(t, &fakeSelection{}, &fakeSynthesizer{}, GenerateReportRequest{PhotoIDs: ids}, testUser())
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", rec.Code)
		}
	})

	t.Run("rejects missing user", func(t *testing.T) {
		t.Parallel()

		rec := reportRequest(t, &fakeSelection{}, &fakeSynthesizer{}, GenerateReportRequest{}, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", rec.Code)
		}
	})

	t.Run("selection load failure returns 500", func(t *testing.T) {
		t.Parallel()

		selection := &fakeSelection{photosErr: errors.New("db down")}
		req := GenerateReportRequest{PhotoIDs: []string{uuid.New().String()}}
		rec := reportRequest(t, selection, &fakeSynthesizer{}, req, testUser())
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", rec.Code)
		}
	})

	t.Run("synthesis failure returns 500", func(t *testing.T) {
		t.Parallel()

		synth := &fakeSynthesizer{err: errors.New("insert failed")}
		rec := reportRequest(t, &fakeSelection{}, synth, GenerateReportRequest{}, testUser())
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", rec.Code)
		}
	})
}
