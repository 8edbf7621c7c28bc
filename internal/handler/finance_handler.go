package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/service"
)

// ============================================================
// 4. Finanças
// ============================================================

func listTransactionsHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/finance/transactions")
		defer span.End()

		q := r.URL.Query()
		year, err := intParam(q.Get("year"), "year", time.Now().Year())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		month, err := intParam(q.Get("month"), "month", 0)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("year", year), attribute.Int("month", month))

		txs, err := svc.List(ctx, UserIDFromContext(ctx), year, month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if txs == nil {
			txs = []domain.FinancialTransaction{}
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.FinancialTransaction]{Data: txs, Total: len(txs)})
	}
}

func addTransactionHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/finance/transactions")
		defer span.End()

		var req domain.TransactionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		tx, err := svc.Add(ctx, UserIDFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	}
}

func updateTransactionHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/finance/transactions/{txId}")
		defer span.End()

		var req domain.TransactionPatchRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		txID := chi.URLParam(r, "txId")
		if err := svc.Update(ctx, UserIDFromContext(ctx), txID, req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Transação atualizada", ID: txID})
	}
}

func deleteTransactionHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/finance/transactions/{txId}")
		defer span.End()

		if err := svc.Delete(ctx, UserIDFromContext(ctx), chi.URLParam(r, "txId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func monthViewHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/finance/months/{year}/{month}")
		defer span.End()

		year, err := intParam(chi.URLParam(r, "year"), "year", 0)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		month, err := intParam(chi.URLParam(r, "month"), "month", 0)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		view, err := svc.MonthView(ctx, UserIDFromContext(ctx), year, month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func yearViewHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/finance/years/{year}")
		defer span.End()

		year, err := intParam(chi.URLParam(r, "year"), "year", 0)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		agg, err := svc.AggregateYear(ctx, UserIDFromContext(ctx), year)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, agg)
	}
}

// ============================================================
// 🛠 Dev Tools
// ============================================================

func seedFinanceHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/finance/seed")
		defer span.End()

		res, err := svc.Seed(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
