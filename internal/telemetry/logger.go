// Package telemetry passively records pointer position, clicks, and key-ups
// on a fixed sampling interval, independent of trial state.
package telemetry

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pkoster/pairchoice/internal/clock"
	"github.com/pkoster/pairchoice/internal/models"
)

// TickerFactory produces the sampling tick channel and a release func.
// Injectable so tests can drive sampling deterministically.
type TickerFactory func(time.Duration) (<-chan time.Time, func())

func defaultTicker(interval time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(interval)
	return t.C, t.Stop
}

// Viewport describes the presentation area used to map raw pointer
// coordinates into its local space.
type Viewport struct {
	OffsetX float64
	OffsetY float64
	Width   float64
	Height  float64
}

// Normalize offsets a raw coordinate pair by the viewport origin and scales
// it by the viewport size. Degenerate dimensions pass coordinates through.
func (v Viewport) Normalize(x, y float64) (float64, float64) {
	x -= v.OffsetX
	y -= v.OffsetY
	if v.Width > 0 {
		x /= v.Width
	}
	if v.Height > 0 {
		y /= v.Height
	}
	return x, y
}

// Options configure the telemetry logger.
type Options struct {
	Interval time.Duration
	Clock    *clock.Clock
	Viewport Viewport
	Logger   *slog.Logger
	Ticker   TickerFactory
}

// Logger appends telemetry events to an ordered in-memory log. It is the
// only producer of that log; the sequencer never touches it.
type Logger struct {
	interval time.Duration
	clock    *clock.Clock
	viewport Viewport
	log      *slog.Logger
	ticker   TickerFactory

	mu      sync.Mutex
	events  []models.TelemetryEvent
	lastX   float64
	lastY   float64
	running bool
	stopped bool

	done   chan struct{}
	exited chan struct{}
	cancel func()
}

// New validates options and returns a logger ready to start.
func New(opts Options) (*Logger, error) {
	if opts.Interval <= 0 {
		return nil, errors.New("sampling interval must be positive")
	}
	if opts.Clock == nil {
		return nil, errors.New("clock is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	ticker := opts.Ticker
	if ticker == nil {
		ticker = defaultTicker
	}
	return &Logger{
		interval: opts.Interval,
		clock:    opts.Clock,
		viewport: opts.Viewport,
		log:      log,
		ticker:   ticker,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}, nil
}

// Start begins periodic position sampling. It may be called once.
func (l *Logger) Start() error {
	l.mu.Lock()
	if l.running || l.stopped {
		l.mu.Unlock()
		return errors.New("telemetry logger already started")
	}
	l.running = true
	l.mu.Unlock()

	ticks, cancel := l.ticker(l.interval)
	l.cancel = cancel

	go func() {
		defer close(l.exited)
		for {
			select {
			case <-l.done:
				return
			case <-ticks:
				l.sample()
			}
		}
	}()

	l.log.Debug("telemetry sampling started", "interval", l.interval)
	return nil
}

// Stop cancels sampling. Safe to call more than once; only the first call
// has effect, and it returns after the sampling goroutine has exited.
func (l *Logger) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	wasRunning := l.running
	l.running = false
	l.mu.Unlock()

	if !wasRunning {
		return
	}
	close(l.done)
	<-l.exited
	if l.cancel != nil {
		l.cancel()
	}
	l.log.Debug("telemetry sampling stopped", "events", l.Count())
}

// TrackPointer updates the last-known pointer position without logging an
// event; the periodic sampler picks it up on the next tick.
func (l *Logger) TrackPointer(x, y float64) {
	nx, ny := l.viewport.Normalize(x, y)
	l.mu.Lock()
	l.lastX, l.lastY = nx, ny
	l.mu.Unlock()
}

// RecordClick logs a click event at the normalized coordinates.
func (l *Logger) RecordClick(x, y float64) {
	nx, ny := l.viewport.Normalize(x, y)
	ts := l.clock.ElapsedMS()
	l.mu.Lock()
	l.lastX, l.lastY = nx, ny
	l.events = append(l.events, models.TelemetryEvent{
		TSMS: ts,
		Kind: models.KindClick,
		X:    nx,
		Y:    ny,
	})
	l.mu.Unlock()
}

// RecordKeyUp logs a key-up event.
func (l *Logger) RecordKeyUp(key string) {
	ts := l.clock.ElapsedMS()
	l.mu.Lock()
	l.events = append(l.events, models.TelemetryEvent{
		TSMS: ts,
		Kind: models.KindKeyUp,
		Key:  key,
	})
	l.mu.Unlock()
}

// Events returns a copy of the event log in append order.
func (l *Logger) Events() []models.TelemetryEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.TelemetryEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Count returns the number of logged events.
func (l *Logger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func (l *Logger) sample() {
	ts := l.clock.ElapsedMS()
	l.mu.Lock()
	l.events = append(l.events, models.TelemetryEvent{
		TSMS: ts,
		Kind: models.KindPosition,
		X:    l.lastX,
		Y:    l.lastY,
	})
	l.mu.Unlock()
}
