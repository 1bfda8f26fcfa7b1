package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sitejournal/api/internal/capture"
	"github.com/sitejournal/api/internal/middleware"
	"github.com/sitejournal/api/internal/models"
	"github.com/sitejournal/api/internal/validation"
)

const (
	// MaxTitleLength is the maximum length for photo and note titles
	MaxTitleLength = 500
	// MaxNoteTextLength is the maximum length for photo notes and note bodies
	MaxNoteTextLength = 10000
	// MaxLabelsPerPhoto is the maximum number of labels on one photo
	MaxLabelsPerPhoto = 20
)

// Committer runs the terminal step of a capture flow.
type Committer interface {
	CommitPhoto(ctx context.Context, user *models.User, s capture.Session, image []byte, contentType string) (capture.Session, *models.Photo, error)
	CommitNote(ctx context.Context, user *models.User, s capture.Session) (capture.Session, *models.Note, error)
}

// CaptureHandler handles photo and note capture requests. Each request drives
// a full wizard session from start to commit; the session never outlives the
// request.
type CaptureHandler struct {
	committer Committer
}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler(committer Committer) *CaptureHandler {
	return &CaptureHandler{committer: committer}
}

// RegisterRoutes registers capture routes on the given router
// The router should already have the /captures prefix
func (h *CaptureHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/photo", h.CapturePhoto).Methods("POST")
	r.HandleFunc("/note", h.CaptureNote).Methods("POST")
}

// AnchorTapRequest is a raw floorplan tap in viewport coordinates.
type AnchorTapRequest struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	ViewportW float64 `json:"viewport_w" validate:"required,gt=0"`
	ViewportH float64 `json:"viewport_h" validate:"required,gt=0"`
}

// GeolocationRequest is a client-reported capture location.
type GeolocationRequest struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lon float64 `json:"lon" validate:"min=-180,max=180"`
}

// CapturePhotoRequest represents a photo capture request
type CapturePhotoRequest struct {
	Image       string              `json:"image" validate:"required"`
	ContentType string              `json:"content_type"`
	AnchorTap   *AnchorTapRequest   `json:"anchor_tap,omitempty"`
	Labels      []string            `json:"labels,omitempty" validate:"max=20"`
	Title       string              `json:"title,omitempty" validate:"max=500"`
	Note        string              `json:"note,omitempty" validate:"max=10000"`
	Location    *GeolocationRequest `json:"location,omitempty"`
}

// CaptureNoteRequest represents a note capture request
type CaptureNoteRequest struct {
	Title   string `json:"title" validate:"required,max=500"`
	Content string `json:"content" validate:"required,max=10000"`
}

// CapturePhoto commits a photo capture. The request carries everything the
// wizard collects step by step; the handler replays it through the same
// transition function the interactive flow uses, so the step guards apply
// identically.
func (h *CaptureHandler) CapturePhoto(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CapturePhotoRequest
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

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Image must be base64 encoded")
		return
	}
	if len(image) == 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Image is empty")
		return
	}

	for _, label := range req.Labels {
		if err := validation.ValidateLabel(label); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
	}

	session, err := h.buildPhotoSession(req)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	ctx := r.Context()
	if req.Location != nil {
		ctx = capture.WithReportedLocation(ctx, models.Geolocation{Lat: req.Location.Lat, Lon: req.Location.Lon})
	}
	_, photo, err := h.committer.CommitPhoto(ctx, user, session, image, req.ContentType)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to commit photo")
		return
	}

	respondJSON(w, http.StatusCreated, photo)
}

// buildPhotoSession replays the request through the wizard transitions up to
// the note step, where the commit pipeline takes over.
func (h *CaptureHandler) buildPhotoSession(req CapturePhotoRequest) (capture.Session, error) {
	s := capture.NewPhotoSession("inline")

	s, err := capture.Transition(s, capture.Advance{})
	if err != nil {
		return s, err
	}
	if req.AnchorTap != nil {
		s, err = capture.Transition(s, capture.PlaceTap{
			X:         req.AnchorTap.X,
			Y:         req.AnchorTap.Y,
			ViewportW: req.AnchorTap.ViewportW,
			ViewportH: req.AnchorTap.ViewportH,
		})
		if err != nil {
			return s, err
		}
	}
	s, err = capture.Transition(s, capture.Advance{})
	if err != nil {
		return s, err
	}
	for _, label := range req.Labels {
		s, err = capture.Transition(s, capture.ToggleLabel{Label: label})
		if err != nil {
			return s, err
		}
	}
	s, err = capture.Transition(s, capture.Advance{})
	if err != nil {
		return s, err
	}
	if title := validation.SanitizeText(req.Title); title != "" {
		s, err = capture.Transition(s, capture.SetTitle{Text: title})
		if err != nil {
			return s, err
		}
	}
	if note := validation.SanitizeText(req.Note); note != "" {
		s, err = capture.Transition(s, capture.SetNote{Text: note})
		if err != nil {
			return s, err
		}
	}
	return s, nil
}

// CaptureNote commits a note capture
func (h *CaptureHandler) CaptureNote(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CaptureNoteRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	req.Title = validation.SanitizeText(req.Title)
	req.Content = validation.SanitizeText(req.Content)

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

	s := capture.NewNoteSession()
	s, err := capture.Transition(s, capture.SetTitle{Text: req.Title})
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	s, err = capture.Transition(s, capture.Advance{})
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required")
		return
	}
	s, err = capture.Transition(s, capture.SetContent{Text: req.Content})
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	ctx := r.Context()
	_, note, err := h.committer.CommitNote(ctx, user, s)
	if err != nil {
		if errors.Is(err, capture.ErrEmptyField) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Content is required")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to commit note")
		return
	}

	respondJSON(w, http.StatusCreated, note)
}
