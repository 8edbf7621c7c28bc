package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/port"
	"github.com/boddenberg/sloth-organize-bfa/internal/session"
)

var taskTracer = otel.Tracer("service/tasks")

// TaskService applies task operations to a session's store and
// persists the whole list after every change.
type TaskService struct {
	repo   port.TaskRepository
	ai     *AIGateway
	logger *zap.Logger
}

// NewTaskService creates a task service.
func NewTaskService(repo port.TaskRepository, ai *AIGateway, logger *zap.Logger) *TaskService {
	return &TaskService{repo: repo, ai: ai, logger: logger}
}

// mutate runs fn under the session lock and saves the list when fn
// succeeds. A failed save is logged; the in-memory list stays current.
func (s *TaskService) mutate(ctx context.Context, c *session.Context, op string, fn func() error) error {
	return c.Do(func() error {
		if err := fn(); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, c.User.ID, c.Tasks.All()); err != nil {
			s.logger.Warn("task list not persisted",
				zap.String("user_id", c.User.ID),
				zap.String("op", op),
				zap.Error(err),
			)
		}
		return nil
	})
}

// List returns one view of the tasks.
func (s *TaskService) List(c *session.Context, filter domain.TaskFilter, category string) ([]domain.Task, error) {
	if !filter.Valid() {
		return nil, &domain.ErrValidation{Field: "filter", Message: "must be all, active, scheduled or completed"}
	}
	var out []domain.Task
	_ = c.Do(func() error {
		out = c.Tasks.Filter(filter, category)
		return nil
	})
	return out, nil
}

// Summary returns progress counters and the category list.
func (s *TaskService) Summary(c *session.Context) domain.TaskSummary {
	var out domain.TaskSummary
	_ = c.Do(func() error {
		out = domain.TaskSummary{TaskStats: c.Tasks.Stats(), Categories: c.Tasks.Categories()}
		return nil
	})
	return out
}

func (s *TaskService) Create(ctx context.Context, c *session.Context, in domain.NewTask) (*domain.Task, error) {
	var out domain.Task
	err := s.mutate(ctx, c, "create", func() (err error) {
		out, err = c.Tasks.Add(in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("task created", zap.String("user_id", c.User.ID), zap.String("task_id", out.ID))
	return &out, nil
}

// CreateFromVoice adds the task described by a confirmed voice command.
func (s *TaskService) CreateFromVoice(ctx context.Context, c *session.Context, v domain.VoiceCommandResult) (*domain.Task, error) {
	var out domain.Task
	err := s.mutate(ctx, c, "create_from_voice", func() (err error) {
		out, err = c.Tasks.AddFromVoice(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *TaskService) Update(ctx context.Context, c *session.Context, id string, p domain.TaskPatch) (*domain.Task, error) {
	var out domain.Task
	err := s.mutate(ctx, c, "update", func() (err error) {
		out, err = c.Tasks.Update(id, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *TaskService) Toggle(ctx context.Context, c *session.Context, id string, feeling domain.Feeling) (*domain.Task, error) {
	var out domain.Task
	err := s.mutate(ctx, c, "toggle", func() (err error) {
		out, err = c.Tasks.Toggle(id, feeling)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *TaskService) Delete(ctx context.Context, c *session.Context, id string) error {
	return s.mutate(ctx, c, "delete", func() error {
		return c.Tasks.Delete(id)
	})
}

func (s *TaskService) Snooze(ctx context.Context, c *session.Context, id string) (*domain.Task, error) {
	var out domain.Task
	err := s.mutate(ctx, c, "snooze", func() (err error) {
		out, err = c.Tasks.Snooze(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *TaskService) AddSubtask(ctx context.Context, c *session.Context, id, title string) (*domain.Task, error) {
	var out domain.Task
	err := s.mutate(ctx, c, "add_subtask", func() error {
		if _, err := c.Tasks.AddSubtask(id, title); err != nil {
			return err
		}
		var err error
		out, err = c.Tasks.Get(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *TaskService) ToggleSubtask(ctx context.Context, c *session.Context, id, subtaskID string) (*domain.Task, error) {
	var out domain.Task
	err := s.mutate(ctx, c, "toggle_subtask", func() (err error) {
		out, err = c.Tasks.ToggleSubtask(id, subtaskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *TaskService) DeleteSubtask(ctx context.Context, c *session.Context, id, subtaskID string) (*domain.Task, error) {
	var out domain.Task
	err := s.mutate(ctx, c, "delete_subtask", func() (err error) {
		out, err = c.Tasks.DeleteSubtask(id, subtaskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Reorder moves the given ids to the top and returns the new order.
func (s *TaskService) Reorder(ctx context.Context, c *session.Context, ids []string) ([]domain.Task, error) {
	var out []domain.Task
	err := s.mutate(ctx, c, "reorder", func() error {
		c.Tasks.Reorder(ids)
		out = c.Tasks.All()
		return nil
	})
	return out, err
}

// ClearCompleted removes completed tasks and reports how many.
func (s *TaskService) ClearCompleted(ctx context.Context, c *session.Context) (int, error) {
	var n int
	err := s.mutate(ctx, c, "clear_completed", func() error {
		n = c.Tasks.ClearCompleted()
		return nil
	})
	return n, err
}

// Reset removes every task.
func (s *TaskService) Reset(ctx context.Context, c *session.Context) error {
	err := s.mutate(ctx, c, "reset", func() error {
		c.Tasks.Reset()
		return nil
	})
	if err == nil {
		s.logger.Info("task list reset", zap.String("user_id", c.User.ID))
	}
	return err
}

// Enhance asks the AI service to improve a task and merges the result.
// The session lock is released while the model runs; a task deleted in
// the meantime yields ErrNotFound.
func (s *TaskService) Enhance(ctx context.Context, c *session.Context, id string, strategy domain.EnhanceStrategy) (*domain.Task, error) {
	ctx, span := taskTracer.Start(ctx, "TaskService.Enhance")
	defer span.End()
	if strategy == "" {
		strategy = domain.EnhanceSubtasks
	}
	if strategy != domain.EnhanceSubtasks && strategy != domain.EnhanceFull {
		return nil, &domain.ErrValidation{Field: "strategy", Message: "must be subtasks or full"}
	}
	span.SetAttributes(attribute.String("task.id", id), attribute.String("enhance.strategy", string(strategy)))

	var task domain.Task
	if err := c.Do(func() (err error) {
		task, err = c.Tasks.Get(id)
		return err
	}); err != nil {
		return nil, err
	}

	var out domain.Task
	switch strategy {
	case domain.EnhanceSubtasks:
		res, err := s.ai.GenerateSubtasks(ctx, domain.SubtasksRequest{Title: task.Title, Description: task.Description})
		if err != nil {
			return nil, err
		}
		err = s.mutate(ctx, c, "enhance", func() (err error) {
			out, err = c.Tasks.MergeSubtasks(id, res.Subtasks, res.Notes)
			return err
		})
		if err != nil {
			return nil, err
		}
	case domain.EnhanceFull:
		res, err := s.ai.Enhance(ctx, task.Title)
		if err != nil {
			return nil, err
		}
		err = s.mutate(ctx, c, "enhance", func() (err error) {
			out, err = c.Tasks.ApplyEnhancement(id, *res)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return &out, nil
}
