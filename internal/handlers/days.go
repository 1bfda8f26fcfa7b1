package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sitejournal/api/internal/middleware"
	"github.com/sitejournal/api/internal/retrieve"
	"github.com/sitejournal/api/internal/validation"
)

// DayAggregator lists and fetches one user's journal days.
type DayAggregator interface {
	ListAvailableDates(ctx context.Context) ([]string, error)
	FetchDay(ctx context.Context, day string) (*retrieve.DayBucket, error)
}

// AggregatorFactory builds a day aggregator scoped to one user.
type AggregatorFactory func(userID uuid.UUID) DayAggregator

// DayHandler handles day-bucketed retrieval requests
type DayHandler struct {
	aggregatorFor AggregatorFactory
}

// NewDayHandler creates a new day handler
func NewDayHandler(factory AggregatorFactory) *DayHandler {
	return &DayHandler{aggregatorFor: factory}
}

// RegisterRoutes registers day routes on the given router
// The router should already have the /days prefix
func (h *DayHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListDays).Methods("GET")
	r.HandleFunc("/{date}", h.GetDay).Methods("GET")
}

// ListDaysResponse represents the response for listing available days
type ListDaysResponse struct {
	Days []string `json:"days"`
}

// ListDays lists the calendar days that have at least one artifact, newest
// first
func (h *DayHandler) ListDays(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	days, err := h.aggregatorFor(user.ID).ListAvailableDates(ctx)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to list days")
		return
	}
	if days == nil {
		days = []string{}
	}

	respondJSON(w, http.StatusOK, ListDaysResponse{Days: days})
}

// GetDay returns all artifacts recorded on one calendar day. Photo content is
// inlined base64; a photo whose content could not be resolved is returned
// without it.
func (h *DayHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	date := vars["date"]
	if err := validation.ValidateDay(date); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	ctx := r.Context()
	bucket, err := h.aggregatorFor(user.ID).FetchDay(ctx, date)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve day")
		return
	}

	respondJSON(w, http.StatusOK, bucket)
}
