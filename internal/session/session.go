// Package session ties the clock, randomizer, telemetry logger, and trial
// sequencer into one explicit context with a start/finalize lifecycle.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkoster/pairchoice/internal/clock"
	"github.com/pkoster/pairchoice/internal/models"
	"github.com/pkoster/pairchoice/internal/randomizer"
	"github.com/pkoster/pairchoice/internal/sequencer"
	"github.com/pkoster/pairchoice/internal/telemetry"
)

// Submitter hands the accumulated data to the crowdsourcing endpoint.
// Fire-and-forget; the session never inspects an outcome.
type Submitter interface {
	Submit(payload models.Payload)
}

// Options configure a session.
type Options struct {
	Trials      []models.TrialSpec
	Clock       *clock.Clock
	Telemetry   *telemetry.Logger
	Renderer    sequencer.Renderer
	Randomizer  *randomizer.Randomizer
	Submitter   Submitter
	Schedule    sequencer.ScheduleFunc
	SettleDelay time.Duration
	BlankDelay  time.Duration
	SubmitDelay time.Duration
	Logger      *slog.Logger
}

// Session owns one subject's run through the experiment.
type Session struct {
	id        uuid.UUID
	clock     *clock.Clock
	telemetry *telemetry.Logger
	submitter Submitter
	seq       *sequencer.Sequencer
	total     int
	log       *slog.Logger

	mu      sync.Mutex
	started bool
}

// New wires the sequencer's finalize hooks to telemetry shutdown and
// payload assembly.
func New(opts Options) (*Session, error) {
	if opts.Clock == nil {
		return nil, errors.New("clock is required")
	}
	if opts.Telemetry == nil {
		return nil, errors.New("telemetry logger is required")
	}
	if opts.Randomizer == nil {
		return nil, errors.New("randomizer is required")
	}
	if opts.Submitter == nil {
		return nil, errors.New("submitter is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Session{
		id:        uuid.New(),
		clock:     opts.Clock,
		telemetry: opts.Telemetry,
		submitter: opts.Submitter,
		total:     len(opts.Trials),
		log:       log,
	}

	seq, err := sequencer.New(sequencer.Options{
		Queue:        opts.Trials,
		Clock:        opts.Clock,
		Renderer:     opts.Renderer,
		ChooseLayout: opts.Randomizer.ChooseLayout,
		Schedule:     opts.Schedule,
		SettleDelay:  opts.SettleDelay,
		BlankDelay:   opts.BlankDelay,
		SubmitDelay:  opts.SubmitDelay,
		OnFinish:     opts.Telemetry.Stop,
		Submit:       s.submit,
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}
	s.seq = seq
	return s, nil
}

// ID returns the session identifier stamped on the submission payload.
func (s *Session) ID() string {
	return s.id.String()
}

// Start begins telemetry sampling and presents the first trial. It runs
// when the front-end signals the subject is ready, which can be long after
// the process came up, so the session clock is re-anchored here. Repeated
// calls fail without disturbing the running session.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("session already started")
	}
	s.started = true
	s.mu.Unlock()

	s.clock.Restart()
	if err := s.telemetry.Start(); err != nil {
		return err
	}
	if err := s.seq.Start(); err != nil {
		return err
	}
	s.log.Info("session started", "session", s.ID(), "trials", s.total)
	return nil
}

// HandleSelection forwards a subject choice to the sequencer.
func (s *Session) HandleSelection(side models.Side) {
	s.seq.HandleSelection(side)
}

// HandleInput dispatches a batch of raw input events to the telemetry
// logger. Malformed events are dropped, not surfaced. Returns the number
// of events accepted.
func (s *Session) HandleInput(batch models.InputBatch) int {
	accepted := 0
	for _, e := range batch.Events {
		if err := e.Validate(); err != nil {
			s.log.Debug("input event dropped", "error", err)
			continue
		}
		switch e.Kind {
		case models.InputMove:
			s.telemetry.TrackPointer(e.X, e.Y)
		case models.InputClick:
			s.telemetry.RecordClick(e.X, e.Y)
		case models.InputKeyUp:
			s.telemetry.RecordKeyUp(e.Key)
		}
		accepted++
	}
	return accepted
}

// State exposes the sequencer state for diagnostics.
func (s *Session) State() sequencer.State {
	return s.seq.State()
}

// Results returns a copy of the completed trial records.
func (s *Session) Results() []models.ResponseRecord {
	return s.seq.Results()
}

func (s *Session) submit(trials []models.ResponseRecord) {
	payload := models.Payload{
		SessionID:   s.ID(),
		StartTimeMS: s.clock.StartMS(),
		Trials:      trials,
		Events:      s.telemetry.Events(),
	}
	s.submitter.Submit(payload)
}
