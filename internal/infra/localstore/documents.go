package localstore

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/port"
)

// TaskCollection persists each user's ordered task list.
type TaskCollection struct {
	kv     port.KeyValueStore
	logger *zap.Logger
}

// NewTaskCollection creates the local task store.
func NewTaskCollection(kv port.KeyValueStore, logger *zap.Logger) *TaskCollection {
	return &TaskCollection{kv: kv, logger: logger}
}

// Load returns the stored list, or an empty one when absent or corrupt.
func (c *TaskCollection) Load(ctx context.Context, userID string) []domain.Task {
	tasks, _ := loadOrEmpty[[]domain.Task](ctx, c.kv, c.logger, TasksPrefix+userID)
	for i := range tasks {
		if tasks[i].Subtasks == nil {
			tasks[i].Subtasks = []domain.Subtask{}
		}
	}
	return tasks
}

// Save replaces the stored list.
func (c *TaskCollection) Save(ctx context.Context, userID string, tasks []domain.Task) error {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return saveJSON(ctx, c.kv, TasksPrefix+userID, tasks)
}

// SettingsCollection persists per-user preferences.
type SettingsCollection struct {
	kv     port.KeyValueStore
	logger *zap.Logger
}

// NewSettingsCollection creates the local settings store.
func NewSettingsCollection(kv port.KeyValueStore, logger *zap.Logger) *SettingsCollection {
	return &SettingsCollection{kv: kv, logger: logger}
}

// Load returns the stored settings, or the defaults.
func (c *SettingsCollection) Load(ctx context.Context, userID string) domain.Settings {
	s, ok := loadOrEmpty[domain.Settings](ctx, c.kv, c.logger, SettingsPrefix+userID)
	if !ok {
		return domain.DefaultSettings()
	}
	return s
}

// Save replaces the stored settings.
func (c *SettingsCollection) Save(ctx context.Context, userID string, s domain.Settings) error {
	return saveJSON(ctx, c.kv, SettingsPrefix+userID, s)
}

// UserDirectory is the global registered-users table.
type UserDirectory struct {
	kv     port.KeyValueStore
	logger *zap.Logger
	mu     sync.Mutex
}

// NewUserDirectory creates the local users table.
func NewUserDirectory(kv port.KeyValueStore, logger *zap.Logger) *UserDirectory {
	return &UserDirectory{kv: kv, logger: logger}
}

// FindByEmail looks a user up case-insensitively.
func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*domain.StoredUser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	users, _, err := loadJSON[[]domain.StoredUser](ctx, d.kv, d.logger, UsersKey)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			u := users[i]
			return &u, nil
		}
	}
	return nil, nil
}

// Insert adds u, rejecting an e-mail that is already registered.
func (d *UserDirectory) Insert(ctx context.Context, u domain.StoredUser) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	users, _, err := loadJSON[[]domain.StoredUser](ctx, d.kv, d.logger, UsersKey)
	if err != nil {
		return err
	}
	for _, existing := range users {
		if strings.EqualFold(existing.Email, u.Email) {
			return &domain.ErrConflict{Message: "e-mail já cadastrado"}
		}
	}
	return saveJSON(ctx, d.kv, UsersKey, append(users, u))
}

// IDs lists the ids of every registered user.
func (d *UserDirectory) IDs(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	users, _, err := loadJSON[[]domain.StoredUser](ctx, d.kv, d.logger, UsersKey)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// SessionRecords mirrors active sessions so a restart can restore them.
type SessionRecords struct {
	kv     port.KeyValueStore
	logger *zap.Logger
}

// NewSessionRecords creates the local session mirror.
func NewSessionRecords(kv port.KeyValueStore, logger *zap.Logger) *SessionRecords {
	return &SessionRecords{kv: kv, logger: logger}
}

// Load returns the record for userID, or nil.
func (s *SessionRecords) Load(ctx context.Context, userID string) *domain.SessionRecord {
	rec, ok := loadOrEmpty[domain.SessionRecord](ctx, s.kv, s.logger, SessionPrefix+userID)
	if !ok {
		return nil
	}
	return &rec
}

// Save writes the record.
func (s *SessionRecords) Save(ctx context.Context, rec domain.SessionRecord) error {
	return saveJSON(ctx, s.kv, SessionPrefix+rec.User.ID, rec)
}

// Delete removes the record for userID.
func (s *SessionRecords) Delete(ctx context.Context, userID string) error {
	return s.kv.Delete(ctx, SessionPrefix+userID)
}
