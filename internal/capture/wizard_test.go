package capture

import (
	"errors"
	"testing"
)

func TestPhotoFlowTransitions(t *testing.T) {
	t.Parallel()

	s := NewPhotoSession("file:///tmp/img-1.jpg")
	if s.Stage != StagePhoto {
		t.Fatalf("new photo session stage = %s, want %s", s.Stage, StagePhoto)
	}

	steps := []Stage{StageAnchor, StageLabels, StageNote}
	for _, want := range steps {
		var err error
		s, err = Transition(s, Advance{})
		if err != nil {
			t.Fatalf("advance to %s: %v", want, err)
		}
		if s.Stage != want {
			t.Fatalf("stage = %s, want %s", s.Stage, want)
		}
	}

	// Back walks the same path in reverse.
	s, err := Transition(s, Back{})
	if err != nil || s.Stage != StageLabels {
		t.Fatalf("back from note: stage=%s err=%v", s.Stage, err)
	}
}

func TestAdvanceWithoutImageBlocked(t *testing.T) {
	t.Parallel()

	s := NewPhotoSession("")
	next, err := Transition(s, Advance{})
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("err = %v, want ErrNoImage", err)
	}
	if next.Stage != StagePhoto {
		t.Errorf("blocked advance changed stage to %s", next.Stage)
	}
}

func TestLastTapWins(t *testing.T) {
	t.Parallel()

	s := NewPhotoSession("img")
	s, _ = Transition(s, Advance{})

	s, err := Transition(s, PlaceTap{X: 10, Y: 10, ViewportW: 100, ViewportH: 100})
	if err != nil {
		t.Fatal(err)
	}
	s, err = Transition(s, PlaceTap{X: 50, Y: 25, ViewportW: 100, ViewportH: 100})
	if err != nil {
		t.Fatal(err)
	}

	if s.Anchor == nil {
		t.Fatal("anchor not set")
	}
	if s.Anchor.X != 0.5 || s.Anchor.Y != 0.25 {
		t.Errorf("anchor = %+v, want {0.5 0.25}", *s.Anchor)
	}
}

func TestAnchorIsOptional(t *testing.T) {
	t.Parallel()

	s := NewPhotoSession("img")
	s, _ = Transition(s, Advance{})
	s, err := Transition(s, Advance{})
	if err != nil {
		t.Fatalf("advancing without a tap should be allowed: %v", err)
	}
	if s.Stage != StageLabels || s.Anchor != nil {
		t.Errorf("stage=%s anchor=%v", s.Stage, s.Anchor)
	}
}

func TestToggleLabelIsIdempotentSetMembership(t *testing.T) {
	t.Parallel()

	s := NewPhotoSession("img")
	s, _ = Transition(s, Advance{})
	s, _ = Transition(s, Advance{})

	for _, l := range []string{"kitchen", "electrical", "kitchen"} {
		var err error
		s, err = Transition(s, ToggleLabel{Label: l})
		if err != nil {
			t.Fatal(err)
		}
	}

	got := s.LabelList()
	if len(got) != 1 || got[0] != "electrical" {
		t.Errorf("labels = %v, want [electrical]", got)
	}
}

func TestTransitionIsPure(t *testing.T) {
	t.Parallel()

	s := NewPhotoSession("img")
	s, _ = Transition(s, Advance{})
	s, _ = Transition(s, Advance{})
	s, _ = Transition(s, ToggleLabel{Label: "framing"})

	// Toggling on a copy must not leak into the original's label set.
	copied, _ := Transition(s, ToggleLabel{Label: "roofing"})
	if len(s.Labels) != 1 {
		t.Errorf("original session mutated: labels = %v", s.LabelList())
	}
	if len(copied.Labels) != 2 {
		t.Errorf("copy labels = %v, want two entries", copied.LabelList())
	}
}

func TestCancelAllowedOutsideCommitting(t *testing.T) {
	t.Parallel()

	stages := []struct {
		name  string
		setup func() Session
	}{
		{"photo", func() Session { return NewPhotoSession("img") }},
		{"anchor", func() Session {
			s := NewPhotoSession("img")
			s, _ = Transition(s, Advance{})
			return s
		}},
		{"note flow title", func() Session { return NewNoteSession() }},
	}

	for _, tt := range stages {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := Transition(tt.setup(), Cancel{})
			if err != nil {
				t.Fatalf("cancel: %v", err)
			}
			if s.Stage != StageCancelled {
				t.Errorf("stage = %s, want cancelled", s.Stage)
			}
		})
	}
}

func TestCancelDuringCommitRejected(t *testing.T) {
	t.Parallel()

	s := NewPhotoSession("img")
	s.Stage = StageCommitting
	_, err := Transition(s, Cancel{})
	if !errors.Is(err, ErrCommitInProgress) {
		t.Errorf("err = %v, want ErrCommitInProgress", err)
	}
}

func TestNoteFlowRequiresTitleAndContent(t *testing.T) {
	t.Parallel()

	s := NewNoteSession()
	if _, err := Transition(s, Advance{}); !errors.Is(err, ErrEmptyField) {
		t.Fatalf("empty title advance err = %v, want ErrEmptyField", err)
	}

	s, _ = Transition(s, SetTitle{Text: "Day 12"})
	s, err := Transition(s, Advance{})
	if err != nil || s.Stage != StageContent {
		t.Fatalf("advance with title: stage=%s err=%v", s.Stage, err)
	}

	if _, err := Transition(s, Advance{}); !errors.Is(err, ErrEmptyField) {
		t.Fatalf("empty content advance err = %v, want ErrEmptyField", err)
	}
}

func TestEventsRejectedInWrongStage(t *testing.T) {
	t.Parallel()

	s := NewPhotoSession("img")

	tests := []struct {
		name string
		ev   Event
	}{
		{"tap before anchor step", PlaceTap{X: 1, Y: 1, ViewportW: 2, ViewportH: 2}},
		{"label before labels step", ToggleLabel{Label: "x"}},
		{"note before note step", SetNote{Text: "x"}},
		{"content in photo flow", SetContent{Text: "x"}},
		{"back on first step", Back{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Transition(s, tt.ev); err == nil {
				t.Error("expected guard error, got nil")
			}
		})
	}
}

func TestTerminalSessionsStayClosed(t *testing.T) {
	t.Parallel()

	s := NewPhotoSession("img")
	s.Stage = StageDone
	if _, err := Transition(s, Advance{}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("advance on done session err = %v, want ErrSessionClosed", err)
	}

	// A failed session may still be discarded.
	s.Stage = StageFailed
	next, err := Transition(s, Cancel{})
	if err != nil || next.Stage != StageCancelled {
		t.Errorf("cancel of failed session: stage=%s err=%v", next.Stage, err)
	}
}
