package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/port"
	"github.com/boddenberg/sloth-organize-bfa/internal/session"
)

// SettingsService reads and stores per-user preferences.
type SettingsService struct {
	repo   port.SettingsRepository
	logger *zap.Logger
}

// NewSettingsService creates a settings service.
func NewSettingsService(repo port.SettingsRepository, logger *zap.Logger) *SettingsService {
	return &SettingsService{repo: repo, logger: logger}
}

// Get returns the session's settings.
func (s *SettingsService) Get(c *session.Context) domain.Settings {
	return c.Settings()
}

// Update merges p into the settings. The session copy changes even when
// the local write fails.
func (s *SettingsService) Update(ctx context.Context, c *session.Context, p domain.SettingsPatch) domain.Settings {
	var in domain.Settings
	_ = c.Do(func() error {
		in = p.Apply(c.Settings())
		c.SetSettings(in)
		return nil
	})
	if err := s.repo.Save(ctx, c.User.ID, in); err != nil {
		s.logger.Warn("settings not persisted", zap.String("user_id", c.User.ID), zap.Error(err))
	}
	return in
}
