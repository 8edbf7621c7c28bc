package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/observability"
	"github.com/boddenberg/sloth-organize-bfa/internal/session"
)

// --- In-memory repositories ---

type memUsers struct {
	mu   sync.Mutex
	rows map[string]domain.StoredUser
}

func newMemUsers() *memUsers { return &memUsers{rows: make(map[string]domain.StoredUser)} }

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.StoredUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[email]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memUsers) Insert(_ context.Context, u domain.StoredUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[u.Email] = u
	return nil
}

func (m *memUsers) IDs(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.rows))
	for _, u := range m.rows {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

type memTasks struct {
	mu      sync.Mutex
	lists   map[string][]domain.Task
	saves   int
	saveErr error
}

func newMemTasks() *memTasks { return &memTasks{lists: make(map[string][]domain.Task)} }

func (m *memTasks) Load(_ context.Context, userID string) []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists[userID]
}

func (m *memTasks) Save(_ context.Context, userID string, tasks []domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.lists[userID] = tasks
	return nil
}

func (m *memTasks) saved(userID string) []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists[userID]
}

type memSettings struct {
	mu   sync.Mutex
	rows map[string]domain.Settings
}

func newMemSettings() *memSettings { return &memSettings{rows: make(map[string]domain.Settings)} }

func (m *memSettings) Load(_ context.Context, userID string) domain.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.rows[userID]; ok {
		return s
	}
	return domain.DefaultSettings()
}

func (m *memSettings) Save(_ context.Context, userID string, s domain.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[userID] = s
	return nil
}

type memSessions struct {
	mu   sync.Mutex
	rows map[string]domain.SessionRecord
}

func newMemSessions() *memSessions { return &memSessions{rows: make(map[string]domain.SessionRecord)} }

func (m *memSessions) Load(_ context.Context, userID string) *domain.SessionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[userID]
	if !ok {
		return nil
	}
	return &rec
}

func (m *memSessions) Save(_ context.Context, rec domain.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[rec.User.ID] = rec
	return nil
}

func (m *memSessions) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, userID)
	return nil
}

// --- Session fixture ---

type sessionFixture struct {
	manager  *session.Manager
	tasks    *memTasks
	settings *memSettings
	records  *memSessions
}

var fixtureNow = time.Date(2024, time.May, 10, 9, 0, 0, 0, time.UTC)

func newSessionFixture(t *testing.T, factory session.TimerFactory) *sessionFixture {
	t.Helper()
	f := &sessionFixture{tasks: newMemTasks(), settings: newMemSettings(), records: newMemSessions()}
	f.manager = session.NewManager(session.Config{
		TTL:      time.Hour,
		Records:  f.records,
		Tasks:    f.tasks,
		Settings: f.settings,
		NewTimer: factory,
		Location: time.UTC,
		Now:      func() time.Time { return fixtureNow },
		Metrics:  observability.NewMetrics(),
		Logger:   zap.NewNop(),
	})
	t.Cleanup(f.manager.Shutdown)
	return f
}

func (f *sessionFixture) open(t *testing.T, userID string, seed ...domain.Task) *session.Context {
	t.Helper()
	if len(seed) > 0 {
		f.tasks.lists[userID] = seed
	}
	c, err := f.manager.Open(context.Background(), domain.User{ID: userID, Name: "Preguiça", Email: userID + "@sloth.dev"})
	require.NoError(t, err)
	return c
}
