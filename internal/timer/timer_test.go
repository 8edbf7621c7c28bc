package timer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/sloth-organize-bfa/internal/timer"
)

type recorder struct {
	mu   sync.Mutex
	seen []timer.Completion
}

func (r *recorder) PhaseCompleted(_ context.Context, c timer.Completion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, c)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

// silentTicks never fires; tests drive the engine through Tick.
func silentTicks() (<-chan time.Time, func()) {
	return nil, func() {}
}

func newManual(rec *recorder, opts ...timer.Option) *timer.Engine {
	base := []timer.Option{timer.WithTickSource(silentTicks), timer.WithNotifier(rec)}
	return timer.New(append(base, opts...)...)
}

func TestNew_Defaults(t *testing.T) {
	e := newManual(&recorder{})
	s := e.Snapshot()

	assert.Equal(t, timer.PhaseFocus, s.Phase)
	assert.Equal(t, 1500, s.Remaining)
	assert.False(t, s.Active)
	assert.Zero(t, s.Progress)
}

func TestFullFocusPhase_EmitsOneCompletion(t *testing.T) {
	rec := &recorder{}
	e := newManual(rec)
	e.Start()

	for i := 0; i < 1500; i++ {
		e.Tick()
	}

	s := e.Snapshot()
	assert.Equal(t, timer.PhaseBreak, s.Phase)
	assert.Equal(t, 300, s.Remaining)
	assert.False(t, s.Active)
	require.Equal(t, 1, rec.count())
	assert.Equal(t, timer.PhaseFocus, rec.seen[0].Finished)
	require.NotNil(t, s.LastCompletion)
	assert.Equal(t, timer.PhaseBreak, s.LastCompletion.Next)

	// Paused after completion: further ticks change nothing.
	e.Tick()
	assert.Equal(t, 300, e.Snapshot().Remaining)
	assert.Equal(t, 1, rec.count())
}

func TestObserve_ReportsEachCompletionOnce(t *testing.T) {
	e := newManual(&recorder{}, timer.WithDurations(2*time.Second, time.Second))

	_, fresh := e.Observe()
	assert.False(t, fresh)

	e.Start()
	e.Tick()
	e.Tick()

	s, fresh := e.Observe()
	assert.True(t, fresh)
	assert.EqualValues(t, 1, s.Completions)

	s, fresh = e.Observe()
	assert.False(t, fresh)
	assert.EqualValues(t, 1, s.Completions)

	e.Reset()
	e.Skip()
	_, fresh = e.Observe()
	assert.False(t, fresh)

	e.Start()
	e.Tick()
	e.Tick()
	s, fresh = e.Observe()
	assert.True(t, fresh)
	assert.EqualValues(t, 2, s.Completions)
}

func TestTick_IgnoredWhilePaused(t *testing.T) {
	e := newManual(&recorder{})
	e.Tick()
	assert.Equal(t, 1500, e.Snapshot().Remaining)

	e.Start()
	e.Tick()
	e.Pause()
	e.Tick()
	s := e.Snapshot()
	assert.Equal(t, 1499, s.Remaining)
	assert.Equal(t, timer.PhaseFocus, s.Phase)
}

func TestToggle(t *testing.T) {
	e := newManual(&recorder{})
	e.Toggle()
	assert.True(t, e.Snapshot().Active)
	e.Toggle()
	assert.False(t, e.Snapshot().Active)
}

func TestSkip_NoCompletion(t *testing.T) {
	rec := &recorder{}
	e := newManual(rec, timer.WithDurations(10*time.Second, 4*time.Second))
	e.Start()
	e.Tick()
	e.Skip()

	s := e.Snapshot()
	assert.Equal(t, timer.PhaseBreak, s.Phase)
	assert.Equal(t, 4, s.Remaining)
	assert.False(t, s.Active)
	assert.Zero(t, rec.count())
}

func TestReset_KeepsPhase(t *testing.T) {
	e := newManual(&recorder{}, timer.WithDurations(10*time.Second, 4*time.Second))
	e.Skip()
	e.Start()
	e.Tick()
	e.Tick()
	assert.Equal(t, 50, e.Snapshot().Progress)

	e.Reset()
	s := e.Snapshot()
	assert.Equal(t, timer.PhaseBreak, s.Phase)
	assert.Equal(t, 4, s.Remaining)
	assert.False(t, s.Active)
}

func TestStart_ReplacesRunningLoop(t *testing.T) {
	var mu sync.Mutex
	var chans []chan time.Time
	src := func() (<-chan time.Time, func()) {
		ch := make(chan time.Time)
		mu.Lock()
		chans = append(chans, ch)
		mu.Unlock()
		return ch, func() {}
	}
	e := timer.New(timer.WithTickSource(src), timer.WithDurations(5*time.Second, time.Second))

	e.Start()
	e.Start()

	mu.Lock()
	require.Len(t, chans, 2)
	live := chans[1]
	mu.Unlock()

	live <- time.Now()
	assert.Eventually(t, func() bool { return e.Snapshot().Remaining == 4 }, time.Second, 5*time.Millisecond)

	// A tick from the superseded loop, if it is still read at all, is dropped.
	select {
	case chans[0] <- time.Now():
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, 4, e.Snapshot().Remaining)
	e.Close()
}
