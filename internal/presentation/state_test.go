package presentation

import (
	"testing"

	"github.com/pkoster/pairchoice/internal/models"
)

func TestStateStartsOnInstructions(t *testing.T) {
	s := NewState("pick the cuter animal")

	snap := s.Snapshot()
	if snap.View != ViewInstructions {
		t.Errorf("view = %s, want %s", snap.View, ViewInstructions)
	}
	if snap.Instructions != "pick the cuter animal" {
		t.Errorf("instructions = %q", snap.Instructions)
	}
	if snap.Trial != nil {
		t.Error("instructions view must not carry a trial")
	}
}

func TestRenderTrialAndClear(t *testing.T) {
	s := NewState("hi")

	s.RenderTrial(models.TrialSpec{StimulusA: "puppy", StimulusB: "kitten"},
		models.Layout{Left: "kitten", Right: "puppy"})

	snap := s.Snapshot()
	if snap.View != ViewTrial {
		t.Fatalf("view = %s, want %s", snap.View, ViewTrial)
	}
	if snap.Trial == nil || snap.Trial.Left != "kitten" || snap.Trial.Right != "puppy" {
		t.Errorf("trial = %+v, want kitten/puppy", snap.Trial)
	}

	s.Clear()
	snap = s.Snapshot()
	if snap.View != ViewBlank {
		t.Errorf("view after Clear = %s, want %s", snap.View, ViewBlank)
	}
	if snap.Trial != nil {
		t.Error("cleared view must not carry a trial")
	}
}

func TestRenderDone(t *testing.T) {
	s := NewState("hi")
	s.RenderTrial(models.TrialSpec{}, models.Layout{Left: "a", Right: "b"})
	s.Render(ViewDone)

	snap := s.Snapshot()
	if snap.View != ViewDone {
		t.Errorf("view = %s, want %s", snap.View, ViewDone)
	}
	if snap.Trial != nil {
		t.Error("done view must not carry a trial")
	}
	if snap.Instructions != "" {
		t.Error("done view must not carry instructions")
	}
}
