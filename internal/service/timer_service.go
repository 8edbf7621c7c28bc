package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/notify"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/observability"
	"github.com/boddenberg/sloth-organize-bfa/internal/session"
	"github.com/boddenberg/sloth-organize-bfa/internal/timer"
)

const pushTimeout = 5 * time.Second

// TimerAction is a control command for the focus timer.
type TimerAction string

const (
	TimerStart  TimerAction = "start"
	TimerPause  TimerAction = "pause"
	TimerToggle TimerAction = "toggle"
	TimerSkip   TimerAction = "skip"
	TimerReset  TimerAction = "reset"
)

// TimerView is the timer state plus what the client should do about the
// last completion. PlaySound is true on the first view after a phase
// ends and false afterwards.
type TimerView struct {
	timer.Snapshot
	PlaySound bool `json:"playSound"`
}

// TimerService builds each session's timer and routes its completions.
type TimerService struct {
	focus   time.Duration
	brk     time.Duration
	pusher  notify.Pusher
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewTimerService creates a timer service. A nil pusher disables push
// notifications.
func NewTimerService(focus, brk time.Duration, pusher notify.Pusher, metrics *observability.Metrics, logger *zap.Logger) *TimerService {
	if pusher == nil {
		pusher = notify.Noop{}
	}
	return &TimerService{focus: focus, brk: brk, pusher: pusher, metrics: metrics, logger: logger}
}

// NewEngine is the session.TimerFactory for the app.
func (s *TimerService) NewEngine(c *session.Context) *timer.Engine {
	return timer.New(
		timer.WithDurations(s.focus, s.brk),
		timer.WithNotifier(s.notifierFor(c)),
	)
}

func (s *TimerService) notifierFor(c *session.Context) timer.Notifier {
	return timer.NotifierFunc(func(ctx context.Context, done timer.Completion) {
		s.metrics.IncrTimerCompletion(string(done.Finished))
		s.logger.Info("timer phase completed",
			zap.String("user_id", c.User.ID),
			zap.String("finished", string(done.Finished)),
			zap.String("next", string(done.Next)),
		)

		settings := c.Settings()
		if !settings.NotificationsEnabled || settings.TelegramChatID == nil {
			return
		}
		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		defer cancel()
		if err := s.pusher.Push(pushCtx, *settings.TelegramChatID, s.completionText(done)); err != nil {
			s.logger.Debug("completion push skipped", zap.String("user_id", c.User.ID), zap.Error(err))
		}
	})
}

func (s *TimerService) completionText(done timer.Completion) string {
	if done.Finished == timer.PhaseFocus {
		return fmt.Sprintf("⏰ <b>Foco concluído!</b> Hora de uma pausa de %d min.", int(s.brk.Minutes()))
	}
	return fmt.Sprintf("☕ <b>Pausa encerrada.</b> Bora focar por %d min!", int(s.focus.Minutes()))
}

// View returns the timer state of a session.
func (s *TimerService) View(c *session.Context) TimerView {
	snap, fresh := c.Timer.Observe()
	return TimerView{
		Snapshot:  snap,
		PlaySound: fresh && c.Settings().SoundEnabled,
	}
}

// Command applies a control action and returns the new state.
func (s *TimerService) Command(c *session.Context, action TimerAction) (TimerView, error) {
	switch action {
	case TimerStart:
		c.Timer.Start()
	case TimerPause:
		c.Timer.Pause()
	case TimerToggle:
		c.Timer.Toggle()
	case TimerSkip:
		c.Timer.Skip()
	case TimerReset:
		c.Timer.Reset()
	default:
		return TimerView{}, &domain.ErrValidation{Field: "action", Message: "must be start, pause, toggle, skip or reset"}
	}
	return s.View(c), nil
}
