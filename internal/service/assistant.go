package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/observability"
	"github.com/boddenberg/sloth-organize-bfa/internal/port"
	"github.com/boddenberg/sloth-organize-bfa/internal/session"
)

var tracer = otel.Tracer("service/assistant")

// Assistant feeds a session's tasks to the AI gateway. It never changes
// the task list; suggestions are applied by explicit follow-up calls.
type Assistant struct {
	ai      *AIGateway
	cache   port.Cache[*domain.SubtasksResult]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAssistant creates the assistant service. Subtask suggestions are
// cached by title and description.
func NewAssistant(ai *AIGateway, cache port.Cache[*domain.SubtasksResult], metrics *observability.Metrics, logger *zap.Logger) *Assistant {
	return &Assistant{ai: ai, cache: cache, metrics: metrics, logger: logger}
}

func (a *Assistant) openTasks(c *session.Context) []domain.Task {
	var open []domain.Task
	_ = c.Do(func() error {
		open = c.Tasks.Open()
		return nil
	})
	return open
}

// Prioritize ranks the open tasks for the reported mood.
func (a *Assistant) Prioritize(ctx context.Context, c *session.Context, req domain.PrioritizeRequest) (*domain.PrioritizedTaskResult, error) {
	ctx, span := tracer.Start(ctx, "Assistant.Prioritize")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", c.User.ID), attribute.String("mood", string(req.Mood)))

	return a.ai.Prioritize(ctx, req, a.openTasks(c))
}

// TimeBox picks open tasks that fit the free minutes.
func (a *Assistant) TimeBox(ctx context.Context, c *session.Context, req domain.TimeBoxRequest) (*domain.TimeBoxResult, error) {
	ctx, span := tracer.Start(ctx, "Assistant.TimeBox")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", c.User.ID), attribute.Int("minutes", req.Minutes))

	return a.ai.SuggestTimeBox(ctx, req, a.openTasks(c))
}

// Subtasks suggests detailed subtasks without touching any task.
func (a *Assistant) Subtasks(ctx context.Context, req domain.SubtasksRequest) (*domain.SubtasksResult, error) {
	ctx, span := tracer.Start(ctx, "Assistant.Subtasks")
	defer span.End()

	key := subtasksKey(req)
	if cached, ok := a.cache.Get(key); ok {
		a.metrics.IncrCacheHit("subtasks")
		return cached, nil
	}
	a.metrics.IncrCacheMiss("subtasks")

	res, err := a.ai.GenerateSubtasks(ctx, req)
	if err != nil {
		return nil, err
	}
	a.cache.Set(key, res)
	return res, nil
}

func subtasksKey(req domain.SubtasksRequest) string {
	h := sha256.Sum256([]byte(req.Title + "\x00" + req.Description))
	return "subtasks:" + hex.EncodeToString(h[:])
}

// Coach starts a coaching conversation about one of the user's tasks.
func (a *Assistant) Coach(ctx context.Context, c *session.Context, req domain.CoachRequest) (*domain.CoachResult, error) {
	ctx, span := tracer.Start(ctx, "Assistant.Coach")
	defer span.End()
	span.SetAttributes(attribute.String("task.id", req.TaskID))

	var task domain.Task
	if err := c.Do(func() (err error) {
		task, err = c.Tasks.Get(req.TaskID)
		return err
	}); err != nil {
		return nil, err
	}
	return a.ai.Coach(ctx, task, req.Note)
}

// Insights analyses the user's most recent completions.
func (a *Assistant) Insights(ctx context.Context, c *session.Context) (*domain.EmotionalInsightsResult, error) {
	ctx, span := tracer.Start(ctx, "Assistant.Insights")
	defer span.End()

	var done []domain.Task
	_ = c.Do(func() error {
		done = c.Tasks.RecentlyCompleted(insightWindow)
		return nil
	})
	span.SetAttributes(attribute.Int("completed", len(done)))

	return a.ai.Insights(ctx, done)
}

// Voice structures a recorded command. The client confirms it and then
// creates the task through POST /v1/tasks/from-voice.
func (a *Assistant) Voice(ctx context.Context, req domain.VoiceRequest) (*domain.VoiceCommandResult, error) {
	ctx, span := tracer.Start(ctx, "Assistant.Voice")
	defer span.End()

	res, err := a.ai.Voice(ctx, req)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("voice command structured",
		zap.String("tipo", res.Tipo),
		zap.Bool("needs_confirmation", res.NecessitaConfirmacao),
	)
	return res, nil
}
