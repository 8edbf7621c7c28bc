// Package session owns the per-user application context: the signed-in
// user, their settings, task store and timer. Contexts are created on
// login, restored from the stored session record after a restart, and
// torn down on logout or after an idle TTL.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/cache"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/observability"
	"github.com/boddenberg/sloth-organize-bfa/internal/port"
	"github.com/boddenberg/sloth-organize-bfa/internal/tasks"
	"github.com/boddenberg/sloth-organize-bfa/internal/timer"
)

const cacheName = "session"

// Context is one user's live state. Tasks must only be touched inside
// Do; the timer is safe for concurrent use on its own.
type Context struct {
	User      domain.User
	StartedAt time.Time
	Tasks     *tasks.Store
	Timer     *timer.Engine

	mu         sync.Mutex
	settingsMu sync.RWMutex
	settings   domain.Settings
}

// Do runs fn while holding the context lock.
func (c *Context) Do(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn()
}

// Settings returns the current preferences.
func (c *Context) Settings() domain.Settings {
	c.settingsMu.RLock()
	defer c.settingsMu.RUnlock()
	return c.settings
}

// SetSettings replaces the preferences.
func (c *Context) SetSettings(s domain.Settings) {
	c.settingsMu.Lock()
	defer c.settingsMu.Unlock()
	c.settings = s
}

// TimerFactory builds the timer engine for a new context.
type TimerFactory func(c *Context) *timer.Engine

// Manager creates, caches and tears down contexts.
type Manager struct {
	cache    *cache.InMemory[*Context]
	records  port.SessionRepository
	tasks    port.TaskRepository
	settings port.SettingsRepository
	newTimer TimerFactory
	taskOpts []tasks.Option
	now      func() time.Time
	metrics  *observability.Metrics
	logger   *zap.Logger

	loadMu sync.Mutex
}

// Config carries the Manager collaborators.
type Config struct {
	TTL      time.Duration
	Records  port.SessionRepository
	Tasks    port.TaskRepository
	Settings port.SettingsRepository
	NewTimer TimerFactory
	Location *time.Location
	Now      func() time.Time
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewManager creates a session manager. Evicted contexts have their
// timer stopped.
func NewManager(cfg Config) *Manager {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	m := &Manager{
		records:  cfg.Records,
		tasks:    cfg.Tasks,
		settings: cfg.Settings,
		newTimer: cfg.NewTimer,
		taskOpts: []tasks.Option{tasks.WithLocation(cfg.Location), tasks.WithClock(cfg.Now)},
		now:      cfg.Now,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
	m.cache = cache.New[*Context](cfg.TTL,
		cache.WithOnEvict[*Context](m.teardown),
		cache.WithClock[*Context](cfg.Now),
	)
	return m
}

func (m *Manager) teardown(userID string, c *Context) {
	c.Timer.Close()
	m.logger.Debug("session context released", zap.String("user_id", userID))
}

func (m *Manager) build(ctx context.Context, user domain.User, startedAt time.Time) *Context {
	c := &Context{
		User:      user,
		StartedAt: startedAt,
		Tasks:     tasks.New(m.tasks.Load(ctx, user.ID), m.taskOpts...),
		settings:  m.settings.Load(ctx, user.ID),
	}
	if m.newTimer != nil {
		c.Timer = m.newTimer(c)
	} else {
		c.Timer = timer.New()
	}
	return c
}

// Open starts a session for user, replacing any previous context.
func (m *Manager) Open(ctx context.Context, user domain.User) (*Context, error) {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	rec := domain.SessionRecord{User: user, StartedAt: m.now()}
	if err := m.records.Save(ctx, rec); err != nil {
		return nil, err
	}
	m.cache.Delete(user.ID)
	c := m.build(ctx, user, rec.StartedAt)
	m.cache.Set(user.ID, c)

	m.logger.Info("session opened", zap.String("user_id", user.ID))
	return c, nil
}

// Get returns the live context for userID, restoring it from the
// stored session record when it is not in memory. A user without a
// session gets ErrUnauthorized.
func (m *Manager) Get(ctx context.Context, userID string) (*Context, error) {
	if c, ok := m.cache.Get(userID); ok {
		m.metrics.IncrCacheHit(cacheName)
		return c, nil
	}
	m.metrics.IncrCacheMiss(cacheName)

	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	if c, ok := m.cache.Get(userID); ok {
		return c, nil
	}

	rec := m.records.Load(ctx, userID)
	if rec == nil {
		return nil, &domain.ErrUnauthorized{Message: "Sessão encerrada"}
	}
	c := m.build(ctx, rec.User, rec.StartedAt)
	m.cache.Set(userID, c)

	m.logger.Info("session restored", zap.String("user_id", userID))
	return c, nil
}

// Close ends the session: the stored record is removed and the context
// is released.
func (m *Manager) Close(ctx context.Context, userID string) error {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	err := m.records.Delete(ctx, userID)
	m.cache.Delete(userID)
	if err != nil {
		return err
	}
	m.logger.Info("session closed", zap.String("user_id", userID))
	return nil
}

// Active returns the number of contexts held in memory.
func (m *Manager) Active() int {
	return m.cache.Len()
}

// Sweep releases idle contexts now.
func (m *Manager) Sweep() {
	m.cache.Sweep()
}

// Shutdown releases every context.
func (m *Manager) Shutdown() {
	m.cache.Close()
}
