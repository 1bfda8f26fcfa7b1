// Package capture implements the multi-step wizard that turns a raw photo or
// note into a committed artifact. The wizard is a plain state value with a
// pure transition function, so the flow is testable without any HTTP or UI
// harness; I/O happens only in the Committer.
package capture

import (
	"errors"
	"sort"

	"github.com/sitejournal/api/internal/models"
	"github.com/sitejournal/api/internal/plan"
)

// Stage is the wizard's current step.
type Stage string

const (
	StagePhoto      Stage = "photo"
	StageAnchor     Stage = "anchor"
	StageLabels     Stage = "labels"
	StageNote       Stage = "note"
	StageTitle      Stage = "title"
	StageContent    Stage = "content"
	StageCommitting Stage = "committing"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
	StageCancelled  Stage = "cancelled"
)

// Flow selects which wizard shape a session follows.
type Flow string

const (
	// FlowPhoto walks photo -> anchor -> labels -> note -> committing.
	FlowPhoto Flow = "photo"
	// FlowNote walks title -> content -> committing, bypassing the
	// photo-specific steps entirely.
	FlowNote Flow = "note"
)

var (
	// ErrNoImage is returned when advancing past the photo step without an
	// image handle.
	ErrNoImage = errors.New("capture: no image handle")
	// ErrEmptyField is returned when advancing past a required text step
	// with nothing entered.
	ErrEmptyField = errors.New("capture: required field is empty")
	// ErrInvalidEvent is returned for events that have no meaning in the
	// session's current stage.
	ErrInvalidEvent = errors.New("capture: event not valid in current stage")
	// ErrCommitInProgress is returned for cancel or mutation attempts once
	// the commit pipeline has started. A running commit is allowed to
	// finish or fail; it cannot be interrupted.
	ErrCommitInProgress = errors.New("capture: commit in progress")
	// ErrSessionClosed is returned for events against a terminal session.
	ErrSessionClosed = errors.New("capture: session already closed")
)

// Session is the transient staging state for one artifact. It is owned by a
// single in-flight flow, mutated only through Transition, and discarded after
// commit or cancel. It is never persisted.
type Session struct {
	Flow     Flow
	Stage    Stage
	ImageRef string
	Anchor   *models.Anchor
	Labels   map[string]struct{}
	Title    string
	Note     string
	Content  string

	// Err holds the commit failure cause when Stage is StageFailed.
	Err error
}

// NewPhotoSession starts a photo capture from an already obtained local image
// handle. Obtaining the handle (camera, library, permissions) is the caller's
// concern.
func NewPhotoSession(imageRef string) Session {
	return Session{
		Flow:     FlowPhoto,
		Stage:    StagePhoto,
		ImageRef: imageRef,
		Labels:   map[string]struct{}{},
	}
}

// NewNoteSession starts a note-only capture.
func NewNoteSession() Session {
	return Session{Flow: FlowNote, Stage: StageTitle}
}

// LabelList returns the toggled labels in sorted order. Insertion order is
// irrelevant to the committed artifact; sorting keeps output deterministic.
func (s Session) LabelList() []string {
	if len(s.Labels) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.Labels))
	for l := range s.Labels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Closed reports whether the session reached a terminal stage.
func (s Session) Closed() bool {
	switch s.Stage {
	case StageDone, StageFailed, StageCancelled:
		return true
	}
	return false
}

// Event is a wizard input. The concrete types below form a closed union.
type Event interface{ isEvent() }

// Advance moves to the next step of the flow.
type Advance struct{}

// Back returns to the previous step. It is a no-op guard error on the first
// step rather than a wraparound.
type Back struct{}

// PlaceTap records a floorplan tap in image-local coordinates. Each tap
// overwrites the previous anchor: last tap wins, there is no multi-anchor
// support.
type PlaceTap struct {
	X, Y                 float64
	ViewportW, ViewportH float64
}

// ToggleLabel flips membership of a label in the session's label set.
type ToggleLabel struct{ Label string }

// SetTitle replaces the title text (note flow, or optional photo title).
type SetTitle struct{ Text string }

// SetNote replaces the photo note text.
type SetNote struct{ Text string }

// SetContent replaces the note body (note flow).
type SetContent struct{ Text string }

// Cancel discards the session. Permitted from any stage except Committing.
type Cancel struct{}

func (Advance) isEvent()     {}
func (Back) isEvent()        {}
func (PlaceTap) isEvent()    {}
func (ToggleLabel) isEvent() {}
func (SetTitle) isEvent()    {}
func (SetNote) isEvent()     {}
func (SetContent) isEvent()  {}
func (Cancel) isEvent()      {}

// Transition applies one event to a session and returns the resulting
// session. It is pure: the input session is not mutated, and no I/O happens.
// Invalid events return the unchanged session along with the guard error.
func Transition(s Session, ev Event) (Session, error) {
	if s.Stage == StageCommitting {
		return s, ErrCommitInProgress
	}
	if s.Closed() && !isCancelOfFailed(s, ev) {
		return s, ErrSessionClosed
	}

	switch ev := ev.(type) {
	case Cancel:
		s.Stage = StageCancelled
		return s, nil

	case Advance:
		return advance(s)

	case Back:
		return back(s)

	case PlaceTap:
		if s.Stage != StageAnchor {
			return s, ErrInvalidEvent
		}
		a := plan.Normalize(ev.X, ev.Y, ev.ViewportW, ev.ViewportH)
		s.Anchor = &a
		return s, nil

	case ToggleLabel:
		if s.Stage != StageLabels || ev.Label == "" {
			return s, ErrInvalidEvent
		}
		labels := make(map[string]struct{}, len(s.Labels)+1)
		for l := range s.Labels {
			labels[l] = struct{}{}
		}
		if _, ok := labels[ev.Label]; ok {
			delete(labels, ev.Label)
		} else {
			labels[ev.Label] = struct{}{}
		}
		s.Labels = labels
		return s, nil

	case SetTitle:
		if s.Stage != StageTitle && !(s.Flow == FlowPhoto && s.Stage == StageNote) {
			return s, ErrInvalidEvent
		}
		s.Title = ev.Text
		return s, nil

	case SetNote:
		if s.Stage != StageNote {
			return s, ErrInvalidEvent
		}
		s.Note = ev.Text
		return s, nil

	case SetContent:
		if s.Stage != StageContent {
			return s, ErrInvalidEvent
		}
		s.Content = ev.Text
		return s, nil
	}

	return s, ErrInvalidEvent
}

// isCancelOfFailed allows discarding a failed session; Done stays closed.
func isCancelOfFailed(s Session, ev Event) bool {
	_, isCancel := ev.(Cancel)
	return isCancel && s.Stage == StageFailed
}

func advance(s Session) (Session, error) {
	switch s.Stage {
	case StagePhoto:
		if s.ImageRef == "" {
			return s, ErrNoImage
		}
		s.Stage = StageAnchor
	case StageAnchor:
		// Anchor is optional: advancing with no tap placed is fine.
		s.Stage = StageLabels
	case StageLabels:
		s.Stage = StageNote
	case StageNote:
		// Note may be empty.
		s.Stage = StageCommitting
	case StageTitle:
		if s.Title == "" {
			return s, ErrEmptyField
		}
		s.Stage = StageContent
	case StageContent:
		if s.Content == "" {
			return s, ErrEmptyField
		}
		s.Stage = StageCommitting
	default:
		return s, ErrInvalidEvent
	}
	return s, nil
}

func back(s Session) (Session, error) {
	switch s.Stage {
	case StageAnchor:
		s.Stage = StagePhoto
	case StageLabels:
		s.Stage = StageAnchor
	case StageNote:
		s.Stage = StageLabels
	case StageContent:
		s.Stage = StageTitle
	default:
		return s, ErrInvalidEvent
	}
	return s, nil
}
