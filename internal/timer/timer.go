// Package timer implements the focus/break countdown.
//
// An Engine owns at most one countdown goroutine. Every Start bumps a
// generation counter, so ticks delivered by a superseded loop are
// dropped even if they race with the new one.
package timer

import (
	"context"
	"sync"
	"time"
)

// Phase is one half of the pomodoro cycle.
type Phase string

const (
	PhaseFocus Phase = "focus"
	PhaseBreak Phase = "break"
)

// Other returns the phase that follows p.
func (p Phase) Other() Phase {
	if p == PhaseFocus {
		return PhaseBreak
	}
	return PhaseFocus
}

const (
	DefaultFocus = 25 * time.Minute
	DefaultBreak = 5 * time.Minute
)

// Completion is emitted once each time a phase counts down to zero.
type Completion struct {
	Finished Phase     `json:"finished"`
	Next     Phase     `json:"next"`
	At       time.Time `json:"at"`
}

// Notifier receives phase completions. It is called without the
// engine lock held and may block briefly.
type Notifier interface {
	PhaseCompleted(ctx context.Context, c Completion)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, c Completion)

func (f NotifierFunc) PhaseCompleted(ctx context.Context, c Completion) { f(ctx, c) }

// TickSource starts a one-second ticker and returns its channel and a
// stop function.
type TickSource func() (<-chan time.Time, func())

func secondTicker() (<-chan time.Time, func()) {
	t := time.NewTicker(time.Second)
	return t.C, t.Stop
}

// Snapshot is the observable state of the timer.
type Snapshot struct {
	Phase          Phase       `json:"phase"`
	Remaining      int         `json:"remaining"` // seconds
	Duration       int         `json:"duration"`  // seconds of the current phase
	Active         bool        `json:"active"`
	Progress       int         `json:"progress"` // 0-100
	LastCompletion *Completion `json:"lastCompletion,omitempty"`
	// Completions counts phase ends since the engine was created.
	Completions uint64 `json:"completions"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithDurations overrides the focus and break lengths. Values below one
// second are ignored.
func WithDurations(focus, brk time.Duration) Option {
	return func(e *Engine) {
		if focus >= time.Second {
			e.focus = int(focus / time.Second)
		}
		if brk >= time.Second {
			e.brk = int(brk / time.Second)
		}
	}
}

// WithTickSource replaces the wall-clock ticker.
func WithTickSource(src TickSource) Option {
	return func(e *Engine) { e.ticks = src }
}

// WithNotifier sets the completion receiver.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock overrides time.Now for completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is a pomodoro countdown. It is safe for concurrent use.
type Engine struct {
	mu        sync.Mutex
	focus     int
	brk       int
	phase     Phase
	remaining int
	active    bool
	last      *Completion
	count     uint64
	unseen    bool // a completion not yet handed out by Observe
	gen       uint64
	stop      context.CancelFunc

	ticks    TickSource
	notifier Notifier
	now      func() time.Time
}

// New returns a paused engine at the start of a focus phase.
func New(opts ...Option) *Engine {
	e := &Engine{
		focus: int(DefaultFocus / time.Second),
		brk:   int(DefaultBreak / time.Second),
		phase: PhaseFocus,
		ticks: secondTicker,
		now:   time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	e.remaining = e.duration(e.phase)
	return e
}

func (e *Engine) duration(p Phase) int {
	if p == PhaseBreak {
		return e.brk
	}
	return e.focus
}

// Start activates the countdown. A running loop is replaced.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startLocked()
}

func (e *Engine) startLocked() {
	e.haltLocked()
	e.active = true
	e.gen++
	gen := e.gen

	ctx, cancel := context.WithCancel(context.Background())
	e.stop = cancel
	ch, stopTicker := e.ticks()
	go e.loop(ctx, gen, ch, stopTicker)
}

func (e *Engine) loop(ctx context.Context, gen uint64, ch <-chan time.Time, stopTicker func()) {
	defer stopTicker()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			e.tick(gen, true)
		}
	}
}

// haltLocked cancels the running loop, if any, and marks the timer
// paused.
func (e *Engine) haltLocked() {
	if e.stop != nil {
		e.stop()
		e.stop = nil
	}
	e.active = false
}

// Pause stops the countdown keeping phase and remaining time.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.haltLocked()
}

// Toggle starts a paused timer or pauses a running one.
func (e *Engine) Toggle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active {
		e.haltLocked()
		return
	}
	e.startLocked()
}

// Tick advances an active timer by one second. It is what the
// countdown loop calls and is exported for driving the engine by hand.
func (e *Engine) Tick() {
	e.tick(0, false)
}

func (e *Engine) tick(gen uint64, checkGen bool) {
	e.mu.Lock()
	if !e.active || (checkGen && gen != e.gen) {
		e.mu.Unlock()
		return
	}
	if e.remaining > 0 {
		e.remaining--
	}
	if e.remaining > 0 {
		e.mu.Unlock()
		return
	}

	c := Completion{Finished: e.phase, Next: e.phase.Other(), At: e.now()}
	e.switchLocked()
	e.last = &c
	e.count++
	e.unseen = true
	n := e.notifier
	e.mu.Unlock()

	if n != nil {
		n.PhaseCompleted(context.Background(), c)
	}
}

// switchLocked moves to the other phase with a full duration and
// leaves the timer paused.
func (e *Engine) switchLocked() {
	e.haltLocked()
	e.phase = e.phase.Other()
	e.remaining = e.duration(e.phase)
}

// Skip moves to the other phase without emitting a completion.
func (e *Engine) Skip() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.switchLocked()
}

// Reset refills the current phase and pauses.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.haltLocked()
	e.remaining = e.duration(e.phase)
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Observe returns the current state and reports whether a completion
// happened since the previous Observe. Each completion is reported once.
func (e *Engine) Observe() (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fresh := e.unseen
	e.unseen = false
	return e.snapshotLocked(), fresh
}

func (e *Engine) snapshotLocked() Snapshot {
	total := e.duration(e.phase)
	s := Snapshot{
		Phase:       e.phase,
		Remaining:   e.remaining,
		Duration:    total,
		Active:      e.active,
		Completions: e.count,
	}
	if total > 0 {
		s.Progress = (total - e.remaining) * 100 / total
	}
	if e.last != nil {
		c := *e.last
		s.LastCompletion = &c
	}
	return s
}

// Close stops the countdown loop. The engine stays usable.
func (e *Engine) Close() {
	e.Pause()
}
