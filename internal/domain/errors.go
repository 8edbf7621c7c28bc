package domain

import (
	"fmt"
	"strings"
)

// Error types for consistent error handling across the BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict indicates a resource already exists (e.g. duplicate e-mail).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrUnavailable indicates an optional collaborator is not configured,
// such as the AI service without an API key.
type ErrUnavailable struct {
	Service string
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("%s unavailable", e.Service)
}

// FieldViolation is one schema mismatch in an AI reply.
type FieldViolation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ErrSchemaViolation indicates the AI service returned JSON that does
// not match the requested shape.
type ErrSchemaViolation struct {
	Operation string
	Fields    []FieldViolation
	Err       error
}

func (e *ErrSchemaViolation) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("schema violation [%s]: %v", e.Operation, e.Err)
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+":"+f.Rule)
	}
	return fmt.Sprintf("schema violation [%s]: %s", e.Operation, strings.Join(parts, ", "))
}

func (e *ErrSchemaViolation) Unwrap() error {
	return e.Err
}
