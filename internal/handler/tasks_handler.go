package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/service"
)

// ============================================================
// 3. Tarefas
// ============================================================

func listTasksHandler(svc *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		tasks, err := svc.List(SessionFromContext(r.Context()), domain.TaskFilter(q.Get("filter")), q.Get("category"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Task]{Data: tasks, Total: len(tasks)})
	}
}

func taskStatsHandler(svc *service.TaskService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Summary(SessionFromContext(r.Context())))
	}
}

func createTaskHandler(svc *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tasks")
		defer span.End()

		var req domain.NewTask
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		task, err := svc.Create(ctx, SessionFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, task)
	}
}

func createTaskFromVoiceHandler(svc *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tasks/from-voice")
		defer span.End()

		var req domain.VoiceCommandResult
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		task, err := svc.CreateFromVoice(ctx, SessionFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, task)
	}
}

func resetTasksHandler(svc *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/tasks")
		defer span.End()

		if err := svc.Reset(ctx, SessionFromContext(ctx)); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reorderTasksHandler(svc *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tasks/reorder")
		defer span.End()

		var req domain.ReorderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		tasks, err := svc.Reorder(ctx, SessionFromContext(ctx), req.IDs)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Task]{Data: tasks, Total: len(tasks)})
	}
}

func clearCompletedHandler(svc *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tasks/clear-completed")
		defer span.End()

		n, err := svc.ClearCompleted(ctx, SessionFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"removed": n})
	}
}

// ============================================================
// 3b. Uma tarefa
// ============================================================

func updateTaskHandler(svc *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/tasks/{taskId}")
		defer span.End()

		id := chi.URLParam(r, "taskId")
		span.SetAttributes(attribute.String("task.id", id))

		var patch domain.TaskPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		task, err := svc.Update(ctx, SessionFromContext(ctx), id, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

func deleteTaskHandler(svc *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/tasks/{taskId}")
		defer span.End()

		if err := svc.Delete(ctx, SessionFromContext(ctx), chi.URLParam(r, "taskId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toggleTaskHandler(svc *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tasks/{taskId}/toggle")
		defer span.End()

		var req domain.ToggleRequest
		if err := decodeOptionalJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		task, err := svc.Toggle(ctx, SessionFromContext(ctx), chi.URLParam(r, "taskId"), req.Feeling)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

func snoozeTaskHandler(svc *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tasks/{taskId}/snooze")
		defer span.End()

		task, err := svc.Snooze(ctx, SessionFromContext(ctx), chi.URLParam(r, "taskId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

func enhanceTaskHandler(svc *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tasks/{taskId}/enhance")
		defer span.End()

		var req domain.EnhanceRequest
		if err := decodeOptionalJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		task, err := svc.Enhance(ctx, SessionFromContext(ctx), chi.URLParam(r, "taskId"), req.Strategy)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

// ============================================================
// 3c. Subtarefas
// ============================================================

func addSubtaskHandler(svc *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tasks/{taskId}/subtasks")
		defer span.End()

		var req domain.SubtaskRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		task, err := svc.AddSubtask(ctx, SessionFromContext(ctx), chi.URLParam(r, "taskId"), req.Title)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, task)
	}
}

func toggleSubtaskHandler(svc *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tasks/{taskId}/subtasks/{subtaskId}/toggle")
		defer span.End()

		task, err := svc.ToggleSubtask(ctx, SessionFromContext(ctx), chi.URLParam(r, "taskId"), chi.URLParam(r, "subtaskId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

func deleteSubtaskHandler(svc *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/tasks/{taskId}/subtasks/{subtaskId}")
		defer span.End()

		task, err := svc.DeleteSubtask(ctx, SessionFromContext(ctx), chi.URLParam(r, "taskId"), chi.URLParam(r, "subtaskId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}
