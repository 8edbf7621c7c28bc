package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
)

// ============================================================
// Shared helper functions
// ============================================================

// maxBodyBytes leaves room for a base64 voice recording.
const maxBodyBytes = 16 << 20

type errorResponse struct {
	Error     string                  `json:"error"`
	Field     string                  `json:"field,omitempty"`
	Fields    []domain.FieldViolation `json:"fields,omitempty"`
	Available *bool                   `json:"available,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a required JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decode(w, r, v, false)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be absent.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decode(w, r, v, true)
}

func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return nil
	}
	return &domain.ErrValidation{Field: "body", Message: "invalid request body"}
}

// intParam parses an integer from a path or query value. Empty yields def.
func intParam(raw, field string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ErrValidation{Field: field, Message: "must be an integer"}
	}
	return n, nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var unauthorized *domain.ErrUnauthorized
	var conflict *domain.ErrConflict
	var unavailable *domain.ErrUnavailable
	var circuitOpen *domain.ErrCircuitOpen
	var external *domain.ErrExternalService
	var schema *domain.ErrSchemaViolation
	unavailableFlag := false

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Message, Field: validation.Field})
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &schema):
		logger.Warn("AI reply rejected", zap.String("operation", schema.Operation), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "resposta da IA fora do formato esperado", Fields: schema.Fields})
	case errors.As(err, &unavailable):
		logger.Debug("service unavailable", zap.String("service", unavailable.Service))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Available: &unavailableFlag})
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Available: &unavailableFlag})
	case errors.As(err, &external):
		logger.Error("external service error", zap.String("service", external.Service), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "serviço externo indisponível", Available: &unavailableFlag})
	case errors.Is(err, context.DeadlineExceeded):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, "tempo esgotado")
	case errors.Is(err, context.Canceled):
		logger.Debug("request cancelled by client")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
