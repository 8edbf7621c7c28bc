package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/service"
)

// ============================================================
// 5. Pomodoro
// ============================================================

func getTimerHandler(svc *service.TimerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.View(SessionFromContext(r.Context())))
	}
}

func timerCommandHandler(svc *service.TimerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action := service.TimerAction(chi.URLParam(r, "action"))
		view, err := svc.Command(SessionFromContext(r.Context()), action)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
