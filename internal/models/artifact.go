package models

import (
	"time"

	"github.com/google/uuid"
)

// ArtifactKind identifies the three persisted record kinds.
type ArtifactKind string

const (
	ArtifactKindPhoto   ArtifactKind = "photo"
	ArtifactKindNote    ArtifactKind = "note"
	ArtifactKindSummary ArtifactKind = "summary"
)

// Anchor is a fractional floorplan coordinate. Both components are in [0,1],
// independent of any viewport's zoom or pan state.
type Anchor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Geolocation is a best-effort capture location.
type Geolocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Photo is a committed site photo. ContentKey references the stored binary;
// Anchor is nil when the user skipped floorplan placement. Photos are
// append-only: there is no update or delete path.
type Photo struct {
	ID         uuid.UUID    `json:"id"`
	UserID     uuid.UUID    `json:"user_id"`
	ContentKey string       `json:"content_key"`
	Title      *string      `json:"title,omitempty"`
	Note       *string      `json:"note,omitempty"`
	Anchor     *Anchor      `json:"anchor,omitempty"`
	Labels     []string     `json:"labels"`
	Location   *Geolocation `json:"location,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Note is a free-standing text note.
type Note struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is an AI-generated progress report. It does not record which
// artifacts fed it; the selection is consumed at synthesis time and discarded.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	SummaryText string    `json:"summary_text"`
	CreatedAt   time.Time `json:"created_at"`
}
