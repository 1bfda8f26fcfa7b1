package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sitejournal/api/internal/middleware"
	"github.com/sitejournal/api/internal/models"
	"github.com/sitejournal/api/internal/validation"
)

// MaxReportSelection caps how many artifacts one report may draw from.
const MaxReportSelection = 200

// SelectionReader resolves a report selection into full records, preserving
// the order the IDs were given in.
type SelectionReader interface {
	PhotosByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*models.Photo, error)
	NotesByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*models.Note, error)
}

// ReportSynthesizer turns a selection into a persisted summary.
type ReportSynthesizer interface {
	Synthesize(ctx context.Context, user *models.User, photos []*models.Photo, notes []*models.Note) (*models.Summary, error)
}

// ReportHandler handles report generation requests
type ReportHandler struct {
	selection   SelectionReader
	synthesizer ReportSynthesizer
}

// NewReportHandler creates a new report handler
func NewReportHandler(selection SelectionReader, synthesizer ReportSynthesizer) *ReportHandler {
	return &ReportHandler{selection: selection, synthesizer: synthesizer}
}

// RegisterRoutes registers report routes on the given router
// The router should already have the /reports prefix
func (h *ReportHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GenerateReport).Methods("POST")
}

// GenerateReportRequest represents a report generation request
type GenerateReportRequest struct {
	PhotoIDs []string `json:"photo_ids" validate:"max=200,dive,uuid"`
	NoteIDs  []string `json:"note_ids" validate:"max=200,dive,uuid"`
}

// GenerateReport synthesizes a report summary from a selection of photos and
// notes. IDs that do not exist or belong to another user are skipped rather
// than rejected; an empty selection still produces a report.
func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req GenerateReportRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	photoIDs, err := parseUUIDs(req.PhotoIDs)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid photo ID")
		return
	}
	noteIDs, err := parseUUIDs(req.NoteIDs)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid note ID")
		return
	}

	ctx := r.Context()

	var photos []*models.Photo
	if len(photoIDs) > 0 {
		photos, err = h.selection.PhotosByIDs(ctx, user.ID, photoIDs)
		if err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load selected photos")
			return
		}
	}

	var notes []*models.Note
	if len(noteIDs) > 0 {
		notes, err = h.selection.NotesByIDs(ctx, user.ID, noteIDs)
		if err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load selected notes")
			return
		}
	}

	summary, err := h.synthesizer.Synthesize(ctx, user, photos, notes)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to generate report")
		return
	}

	respondJSON(w, http.StatusCreated, summary)
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
