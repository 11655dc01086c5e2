package sequencer

import (
	"testing"
	"time"

	"github.com/pkoster/pairchoice/internal/clock"
	"github.com/pkoster/pairchoice/internal/models"
)

// fakeScheduler queues deferred callbacks so tests fire them explicitly.
type fakeScheduler struct {
	tasks []func()
}

func (f *fakeScheduler) schedule(_ time.Duration, fn func()) {
	f.tasks = append(f.tasks, fn)
}

func (f *fakeScheduler) fire(t *testing.T) {
	t.Helper()
	if len(f.tasks) == 0 {
		t.Fatal("no scheduled task to fire")
	}
	task := f.tasks[0]
	f.tasks = f.tasks[1:]
	task()
}

type fakeRenderer struct {
	views  []string
	trials []models.Layout
	clears int
}

func (r *fakeRenderer) Render(view string) { r.views = append(r.views, view) }
func (r *fakeRenderer) RenderTrial(_ models.TrialSpec, layout models.Layout) {
	r.trials = append(r.trials, layout)
}
func (r *fakeRenderer) Clear() { r.clears++ }

type harness struct {
	seq       *Sequencer
	scheduler *fakeScheduler
	renderer  *fakeRenderer
	now       *time.Time
	finishes  int
	submits   [][]models.ResponseRecord
}

func setupSequencer(t *testing.T, queue []models.TrialSpec) *harness {
	t.Helper()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	h := &harness{
		scheduler: &fakeScheduler{},
		renderer:  &fakeRenderer{},
		now:       &base,
	}

	seq, err := New(Options{
		Queue:    queue,
		Clock:    clock.New(func() time.Time { return *h.now }),
		Renderer: h.renderer,
		ChooseLayout: func(spec models.TrialSpec) models.Layout {
			return models.Layout{Left: spec.StimulusA, Right: spec.StimulusB}
		},
		Schedule: h.scheduler.schedule,
		OnFinish: func() { h.finishes++ },
		Submit: func(trials []models.ResponseRecord) {
			h.submits = append(h.submits, trials)
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	h.seq = seq
	return h
}

func (h *harness) advanceClock(d time.Duration) {
	*h.now = h.now.Add(d)
}

func TestNewValidatesOptions(t *testing.T) {
	base := time.Now()
	c := clock.New(func() time.Time { return base })
	renderer := &fakeRenderer{}
	layout := func(spec models.TrialSpec) models.Layout { return models.Layout{} }
	submit := func([]models.ResponseRecord) {}

	tests := []struct {
		name string
		opts Options
	}{
		{"missing clock", Options{Renderer: renderer, ChooseLayout: layout, Submit: submit}},
		{"missing renderer", Options{Clock: c, ChooseLayout: layout, Submit: submit}},
		{"missing layout chooser", Options{Clock: c, Renderer: renderer, Submit: submit}},
		{"missing submit", Options{Clock: c, Renderer: renderer, ChooseLayout: layout}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); err == nil {
				t.Error("expected constructor error")
			}
		})
	}
}

func TestFullRunSubmitsOnce(t *testing.T) {
	queue := []models.TrialSpec{
		{StimulusA: "a1", StimulusB: "b1"},
		{StimulusA: "a2", StimulusB: "b2"},
		{StimulusA: "a3", StimulusB: "b3"},
	}
	h := setupSequencer(t, queue)

	if err := h.seq.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if got, want := h.seq.Remaining(), 2-i; got != want {
			t.Errorf("trial %d: Remaining() = %d, want %d", i+1, got, want)
		}
		if h.seq.State() != StatePresenting {
			t.Fatalf("trial %d: state = %s, want presenting", i+1, h.seq.State())
		}
		h.scheduler.fire(t) // settle delay
		if h.seq.State() != StateAwaitingResponse {
			t.Fatalf("trial %d: state = %s, want awaiting_response", i+1, h.seq.State())
		}
		h.advanceClock(300 * time.Millisecond)
		h.seq.HandleSelection(models.SideLeft)
		if h.seq.State() != StateRecording && i < 2 {
			t.Fatalf("trial %d: state = %s, want recording", i+1, h.seq.State())
		}
		h.scheduler.fire(t) // blank delay
	}

	if h.seq.State() != StateFinished {
		t.Fatalf("state = %s, want finished", h.seq.State())
	}
	if h.finishes != 1 {
		t.Errorf("OnFinish ran %d times, want 1", h.finishes)
	}
	if len(h.renderer.views) != 1 || h.renderer.views[0] != DoneView {
		t.Errorf("terminal views = %v, want [%s]", h.renderer.views, DoneView)
	}

	results := h.seq.Results()
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, rec := range results {
		if rec.ReactionMS != 300 {
			t.Errorf("result %d: reaction = %dms, want 300", i, rec.ReactionMS)
		}
		if rec.RespondedMS-rec.PresentedMS != rec.ReactionMS {
			t.Errorf("result %d: reaction time does not match timestamps", i)
		}
	}

	// Submission fires once, after the final delay.
	if len(h.submits) != 0 {
		t.Fatal("submit ran before the final delay")
	}
	h.scheduler.fire(t)
	if len(h.submits) != 1 {
		t.Fatalf("submit ran %d times, want 1", len(h.submits))
	}
	if len(h.submits[0]) != 3 {
		t.Errorf("submitted %d trials, want 3", len(h.submits[0]))
	}

	// Advancing after Finished is a no-op: no new tasks, no second submit.
	h.seq.Advance()
	h.seq.Advance()
	if len(h.scheduler.tasks) != 0 {
		t.Error("Advance() after Finished scheduled work")
	}
	if len(h.submits) != 1 || h.finishes != 1 {
		t.Error("Advance() after Finished repeated finalization")
	}
}

func TestSelectionDuringSettleIsIgnored(t *testing.T) {
	h := setupSequencer(t, []models.TrialSpec{{StimulusA: "a", StimulusB: "b"}})

	if err := h.seq.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// Settle delay has not fired yet.
	h.seq.HandleSelection(models.SideLeft)
	if got := len(h.seq.Results()); got != 0 {
		t.Fatalf("selection before settle produced %d results, want 0", got)
	}

	h.scheduler.fire(t)
	h.seq.HandleSelection(models.SideLeft)
	if got := len(h.seq.Results()); got != 1 {
		t.Fatalf("selection after settle produced %d results, want 1", got)
	}
}

func TestSelectionRecordsChosenStimulus(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	scheduler := &fakeScheduler{}
	renderer := &fakeRenderer{}
	var submitted []models.ResponseRecord

	seq, err := New(Options{
		Queue:    []models.TrialSpec{{StimulusA: "puppy", StimulusB: "kitten"}},
		Clock:    clock.New(func() time.Time { return base }),
		Renderer: renderer,
		ChooseLayout: func(models.TrialSpec) models.Layout {
			return models.Layout{Left: "puppy", Right: "kitten"}
		},
		Schedule: scheduler.schedule,
		Submit:   func(trials []models.ResponseRecord) { submitted = trials },
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := seq.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	scheduler.fire(t) // settle
	seq.HandleSelection(models.SideLeft)

	results := seq.Results()
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	rec := results[0]
	if rec.Chosen != "puppy" {
		t.Errorf("Chosen = %s, want puppy", rec.Chosen)
	}
	if rec.Side != models.SideLeft {
		t.Errorf("Side = %s, want left", rec.Side)
	}
	if rec.Left != "puppy" || rec.Right != "kitten" {
		t.Errorf("layout recorded as %s/%s, want puppy/kitten", rec.Left, rec.Right)
	}

	scheduler.fire(t) // blank → finish
	scheduler.fire(t) // submit delay
	if len(submitted) != 1 {
		t.Errorf("submitted %d trials, want 1", len(submitted))
	}
}

func TestInvalidSideIgnored(t *testing.T) {
	h := setupSequencer(t, []models.TrialSpec{{StimulusA: "a", StimulusB: "b"}})

	if err := h.seq.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	h.scheduler.fire(t) // settle

	h.seq.HandleSelection(models.Side("middle"))
	if got := len(h.seq.Results()); got != 0 {
		t.Errorf("invalid side produced %d results, want 0", got)
	}
	if h.seq.State() != StateAwaitingResponse {
		t.Errorf("state = %s, want awaiting_response", h.seq.State())
	}
}

func TestEmptyQueueFinishesImmediately(t *testing.T) {
	h := setupSequencer(t, nil)

	if err := h.seq.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if h.seq.State() != StateFinished {
		t.Fatalf("state = %s, want finished", h.seq.State())
	}
	h.scheduler.fire(t) // submit delay
	if len(h.submits) != 1 || len(h.submits[0]) != 0 {
		t.Errorf("expected one empty submission, got %v", h.submits)
	}
}

func TestStartTwiceFails(t *testing.T) {
	h := setupSequencer(t, []models.TrialSpec{{StimulusA: "a", StimulusB: "b"}})

	if err := h.seq.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := h.seq.Start(); err == nil {
		t.Error("second Start() must fail")
	}
}

func TestAdvanceWithTrialInFlightIsIgnored(t *testing.T) {
	h := setupSequencer(t, []models.TrialSpec{{StimulusA: "a", StimulusB: "b"}})

	if err := h.seq.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// During the settle window the trial must not be skippable.
	h.seq.Advance()
	if h.seq.State() != StatePresenting {
		t.Fatalf("state = %s, want presenting", h.seq.State())
	}

	h.scheduler.fire(t) // settle
	h.seq.Advance()
	if h.seq.State() != StateAwaitingResponse {
		t.Fatalf("state = %s, want awaiting_response", h.seq.State())
	}

	// The trial is still live and ends with a record.
	h.seq.HandleSelection(models.SideLeft)
	h.scheduler.fire(t) // blank → finish
	if got := len(h.seq.Results()); got != 1 {
		t.Errorf("got %d results, want 1: a trial was abandoned", got)
	}
}

func TestSelectionBetweenTrialsIsIgnored(t *testing.T) {
	h := setupSequencer(t, []models.TrialSpec{
		{StimulusA: "a1", StimulusB: "b1"},
		{StimulusA: "a2", StimulusB: "b2"},
	})

	if err := h.seq.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	h.scheduler.fire(t) // settle for trial 1
	h.seq.HandleSelection(models.SideRight)
	h.scheduler.fire(t) // blank → trial 2 presented, settle queued

	// Trial 2 is still in its settle window; a selection now belongs to no
	// accepted-input state and must not produce a second record.
	h.seq.HandleSelection(models.SideLeft)
	if got := len(h.seq.Results()); got != 1 {
		t.Errorf("got %d results, want 1", got)
	}
	if h.seq.State() != StatePresenting {
		t.Errorf("state = %s, want presenting", h.seq.State())
	}
}
