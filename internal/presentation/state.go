// Package presentation holds the view snapshot the browser front-end polls.
// The sequencer mutates it through the Renderer interface; the HTTP server
// serves it read-only.
package presentation

import (
	"sync"

	"github.com/pkoster/pairchoice/internal/models"
)

// Views the front-end can be asked to display.
const (
	ViewInstructions = "instructions"
	ViewTrial        = "trial"
	ViewBlank        = "blank"
	ViewDone         = "done"
)

// TrialView is the rendered side assignment of the current trial.
type TrialView struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Snapshot is what GET /view returns.
type Snapshot struct {
	View         string     `json:"view"`
	Instructions string     `json:"instructions,omitempty"`
	Trial        *TrialView `json:"trial,omitempty"`
}

// State is the concrete renderer.
type State struct {
	mu           sync.Mutex
	view         string
	instructions string
	trial        *TrialView
}

// NewState starts on the instructions view.
func NewState(instructions string) *State {
	return &State{view: ViewInstructions, instructions: instructions}
}

// Render switches to a named view with no trial content.
func (s *State) Render(view string) {
	s.mu.Lock()
	s.view = view
	s.trial = nil
	s.mu.Unlock()
}

// RenderTrial displays the trial's stimuli at their assigned sides.
func (s *State) RenderTrial(_ models.TrialSpec, layout models.Layout) {
	s.mu.Lock()
	s.view = ViewTrial
	s.trial = &TrialView{Left: layout.Left, Right: layout.Right}
	s.mu.Unlock()
}

// Clear blanks the presentation area between trials.
func (s *State) Clear() {
	s.mu.Lock()
	s.view = ViewBlank
	s.trial = nil
	s.mu.Unlock()
}

// Snapshot returns the current view for the front-end.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{View: s.view}
	if s.view == ViewInstructions {
		snap.Instructions = s.instructions
	}
	if s.trial != nil {
		trial := *s.trial
		snap.Trial = &trial
	}
	return snap
}
