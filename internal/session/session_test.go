package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/observability"
	"github.com/boddenberg/sloth-organize-bfa/internal/session"
	"github.com/boddenberg/sloth-organize-bfa/internal/timer"
)

// --- Fakes ---

type memRecords struct {
	mu   sync.Mutex
	recs map[string]domain.SessionRecord
}

func (m *memRecords) Load(_ context.Context, id string) *domain.SessionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	if !ok {
		return nil
	}
	return &r
}

func (m *memRecords) Save(_ context.Context, r domain.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[r.User.ID] = r
	return nil
}

func (m *memRecords) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, id)
	return nil
}

type memTasks struct{ data map[string][]domain.Task }

func (m *memTasks) Load(_ context.Context, id string) []domain.Task { return m.data[id] }
func (m *memTasks) Save(_ context.Context, id string, ts []domain.Task) error {
	m.data[id] = ts
	return nil
}

type memSettings struct{}

func (memSettings) Load(context.Context, string) domain.Settings     { return domain.DefaultSettings() }
func (memSettings) Save(context.Context, string, domain.Settings) error { return nil }

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func silentTicks() (<-chan time.Time, func()) { return nil, func() {} }

func newManager(t *testing.T, clk *clock, records *memRecords, repo *memTasks) *session.Manager {
	t.Helper()
	m := session.NewManager(session.Config{
		TTL:      time.Minute,
		Records:  records,
		Tasks:    repo,
		Settings: memSettings{},
		NewTimer: func(*session.Context) *timer.Engine { return timer.New(timer.WithTickSource(silentTicks)) },
		Location: time.UTC,
		Now:      clk.now,
		Metrics:  observability.NewMetrics(),
		Logger:   zap.NewNop(),
	})
	t.Cleanup(m.Shutdown)
	return m
}

var ana = domain.User{ID: "u1", Name: "Ana", Email: "ana@example.com"}

// --- Tests ---

func TestOpenAndGet(t *testing.T) {
	clk := &clock{t: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)}
	records := &memRecords{recs: map[string]domain.SessionRecord{}}
	repo := &memTasks{data: map[string][]domain.Task{"u1": {{ID: "t1", Title: "Ler"}}}}
	m := newManager(t, clk, records, repo)

	opened, err := m.Open(context.Background(), ana)
	require.NoError(t, err)
	assert.Equal(t, 1, opened.Tasks.Len())
	assert.True(t, opened.Settings().SoundEnabled)
	require.NotNil(t, records.Load(context.Background(), "u1"))

	got, err := m.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Same(t, opened, got)
}

func TestGet_WithoutSessionIsUnauthorized(t *testing.T) {
	clk := &clock{t: time.Now()}
	m := newManager(t, clk, &memRecords{recs: map[string]domain.SessionRecord{}}, &memTasks{data: map[string][]domain.Task{}})

	_, err := m.Get(context.Background(), "nobody")
	var unauth *domain.ErrUnauthorized
	assert.ErrorAs(t, err, &unauth)
}

func TestGet_RestoresFromRecordAfterIdleEviction(t *testing.T) {
	clk := &clock{t: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)}
	records := &memRecords{recs: map[string]domain.SessionRecord{}}
	repo := &memTasks{data: map[string][]domain.Task{}}
	m := newManager(t, clk, records, repo)

	first, err := m.Open(context.Background(), ana)
	require.NoError(t, err)
	first.Timer.Start()

	clk.advance(2 * time.Minute)
	m.Sweep()
	assert.Zero(t, m.Active())
	assert.False(t, first.Timer.Snapshot().Active, "evicted context must stop its timer")

	restored, err := m.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotSame(t, first, restored)
	assert.Equal(t, ana, restored.User)
}

func TestClose(t *testing.T) {
	clk := &clock{t: time.Now()}
	records := &memRecords{recs: map[string]domain.SessionRecord{}}
	m := newManager(t, clk, records, &memTasks{data: map[string][]domain.Task{}})

	c, err := m.Open(context.Background(), ana)
	require.NoError(t, err)
	c.Timer.Start()

	require.NoError(t, m.Close(context.Background(), "u1"))
	assert.False(t, c.Timer.Snapshot().Active)
	assert.Nil(t, records.Load(context.Background(), "u1"))

	_, err = m.Get(context.Background(), "u1")
	assert.Error(t, err)
}

func TestContext_SettingsAndDo(t *testing.T) {
	clk := &clock{t: time.Now()}
	m := newManager(t, clk, &memRecords{recs: map[string]domain.SessionRecord{}}, &memTasks{data: map[string][]domain.Task{}})
	c, err := m.Open(context.Background(), ana)
	require.NoError(t, err)

	c.SetSettings(domain.Settings{NotificationsEnabled: true})
	assert.True(t, c.Settings().NotificationsEnabled)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Do(func() error {
				_, err := c.Tasks.Add(domain.NewTask{Title: "x"})
				return err
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, c.Tasks.Len())
}
