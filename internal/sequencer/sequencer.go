// Package sequencer owns the trial queue and the per-trial lifecycle. It is
// the only producer of the result log.
package sequencer

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pkoster/pairchoice/internal/clock"
	"github.com/pkoster/pairchoice/internal/models"
)

// State is the sequencer's position in the trial lifecycle.
type State int

const (
	StateIdle State = iota
	StatePresenting
	StateAwaitingResponse
	StateRecording
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePresenting:
		return "presenting"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateRecording:
		return "recording"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// DoneView is the terminal view shown when the queue is exhausted.
const DoneView = "done"

// Renderer is the presentation collaborator the sequencer drives.
type Renderer interface {
	Render(view string)
	RenderTrial(spec models.TrialSpec, layout models.Layout)
	Clear()
}

// ScheduleFunc runs fn once after d. The default wraps time.AfterFunc;
// tests inject a manual scheduler.
type ScheduleFunc func(d time.Duration, fn func())

func defaultSchedule(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// Default suspension delays.
const (
	DefaultSettleDelay = 500 * time.Millisecond
	DefaultBlankDelay  = 500 * time.Millisecond
	DefaultSubmitDelay = 1500 * time.Millisecond
)

// Options configure a sequencer.
type Options struct {
	Queue        []models.TrialSpec
	Clock        *clock.Clock
	Renderer     Renderer
	ChooseLayout func(models.TrialSpec) models.Layout
	Schedule     ScheduleFunc
	// Delays left zero take the package defaults. Config-sourced delays
	// are validated as positive before they reach here.
	SettleDelay time.Duration
	BlankDelay  time.Duration
	SubmitDelay time.Duration
	// OnFinish runs as soon as the terminal state is entered, before the
	// submit delay. The session uses it to stop telemetry sampling.
	OnFinish func()
	// Submit receives the completed result log after the submit delay.
	Submit func(trials []models.ResponseRecord)
	Logger *slog.Logger
}

type activeTrial struct {
	spec        models.TrialSpec
	layout      models.Layout
	presentedAt int64
	seq         uint64
}

// Sequencer advances through the trial queue:
// Idle → Presenting → AwaitingResponse → Recording → (Presenting | Finished).
// Timer callbacks carry the trial sequence number they were scheduled for,
// so a stale callback never moves the machine.
type Sequencer struct {
	clock        *clock.Clock
	renderer     Renderer
	chooseLayout func(models.TrialSpec) models.Layout
	schedule     ScheduleFunc
	settleDelay  time.Duration
	blankDelay   time.Duration
	submitDelay  time.Duration
	onFinish     func()
	submit       func([]models.ResponseRecord)
	log          *slog.Logger

	mu      sync.Mutex
	state   State
	queue   []models.TrialSpec
	results []models.ResponseRecord
	current activeTrial
	seqno   uint64
}

// New validates options and returns an idle sequencer.
func New(opts Options) (*Sequencer, error) {
	if opts.Clock == nil {
		return nil, errors.New("clock is required")
	}
	if opts.Renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if opts.ChooseLayout == nil {
		return nil, errors.New("layout chooser is required")
	}
	if opts.Submit == nil {
		return nil, errors.New("submit callback is required")
	}
	schedule := opts.Schedule
	if schedule == nil {
		schedule = defaultSchedule
	}
	settle := opts.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	blank := opts.BlankDelay
	if blank <= 0 {
		blank = DefaultBlankDelay
	}
	submitDelay := opts.SubmitDelay
	if submitDelay <= 0 {
		submitDelay = DefaultSubmitDelay
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	queue := make([]models.TrialSpec, len(opts.Queue))
	copy(queue, opts.Queue)

	return &Sequencer{
		clock:        opts.Clock,
		renderer:     opts.Renderer,
		chooseLayout: opts.ChooseLayout,
		schedule:     schedule,
		settleDelay:  settle,
		blankDelay:   blank,
		submitDelay:  submitDelay,
		onFinish:     opts.OnFinish,
		submit:       opts.Submit,
		log:          log,
		state:        StateIdle,
		queue:        queue,
	}, nil
}

// Start presents the first queued trial. It may be called once.
func (s *Sequencer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return errors.New("sequencer already started")
	}
	s.advanceLocked()
	return nil
}

// Advance moves to the next trial, or to the terminal state when the queue
// is empty. It only acts between trials: with a trial in flight
// (Presenting or AwaitingResponse) the call is dropped, so a trial can
// never be abandoned without a response record. Calling it after Finished
// is a no-op.
func (s *Sequencer) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StatePresenting || s.state == StateAwaitingResponse {
		s.log.Debug("advance ignored", "state", s.state.String())
		return
	}
	s.advanceLocked()
}

func (s *Sequencer) advanceLocked() {
	if s.state == StateFinished {
		return
	}
	if len(s.queue) == 0 {
		s.finishLocked()
		return
	}

	spec := s.queue[0]
	s.queue = s.queue[1:]
	layout := s.chooseLayout(spec)
	s.seqno++
	s.current = activeTrial{spec: spec, layout: layout, seq: s.seqno}
	s.state = StatePresenting
	s.renderer.RenderTrial(spec, layout)
	s.log.Debug("trial presented",
		"trial", s.seqno,
		"left", layout.Left,
		"right", layout.Right,
		"remaining", len(s.queue))

	seq := s.seqno
	s.schedule(s.settleDelay, func() { s.settle(seq) })
}

// settle records the presentation timestamp and begins accepting input.
// Responses arriving before this fires are ignored by HandleSelection.
func (s *Sequencer) settle(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePresenting || s.current.seq != seq {
		return
	}
	s.current.presentedAt = s.clock.ElapsedMS()
	s.state = StateAwaitingResponse
}

// HandleSelection records the subject's choice. Selections with no active
// trial, after Finished, or during the settle delay are dropped.
func (s *Sequencer) HandleSelection(side models.Side) {
	if !side.Valid() {
		s.log.Debug("selection with invalid side ignored", "side", string(side))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingResponse {
		s.log.Debug("selection ignored", "state", s.state.String())
		return
	}

	responded := s.clock.ElapsedMS()
	record := models.ResponseRecord{
		StimulusA:   s.current.spec.StimulusA,
		StimulusB:   s.current.spec.StimulusB,
		Left:        s.current.layout.Left,
		Right:       s.current.layout.Right,
		Side:        side,
		Chosen:      s.current.layout.At(side),
		PresentedMS: s.current.presentedAt,
		RespondedMS: responded,
		ReactionMS:  responded - s.current.presentedAt,
	}
	s.results = append(s.results, record)
	s.state = StateRecording
	s.renderer.Clear()
	s.log.Debug("response recorded",
		"trial", s.current.seq,
		"chosen", record.Chosen,
		"reaction_ms", record.ReactionMS)

	seq := s.current.seq
	s.schedule(s.blankDelay, func() { s.afterBlank(seq) })
}

func (s *Sequencer) afterBlank(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording || s.current.seq != seq {
		return
	}
	s.advanceLocked()
}

func (s *Sequencer) finishLocked() {
	s.state = StateFinished
	if s.onFinish != nil {
		s.onFinish()
	}
	s.renderer.Render(DoneView)
	s.log.Info("experiment finished", "trials", len(s.results))

	trials := make([]models.ResponseRecord, len(s.results))
	copy(trials, s.results)
	s.schedule(s.submitDelay, func() { s.submit(trials) })
}

// State returns the current lifecycle state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Remaining returns the number of trials still queued.
func (s *Sequencer) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Results returns a copy of the result log in completion order.
func (s *Sequencer) Results() []models.ResponseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ResponseRecord, len(s.results))
	copy(out, s.results)
	return out
}
