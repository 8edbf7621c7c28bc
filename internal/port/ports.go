// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
)

// KeyValueStore is the local string-keyed blob store every collection
// is serialized into.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// FinanceStore persists financial transactions for one user at a time.
// Implemented by the local collection, the Supabase adapter and the
// fallback composition of both.
type FinanceStore interface {
	AddTransaction(ctx context.Context, userID string, tx *domain.FinancialTransaction) error
	UpdateTransaction(ctx context.Context, userID, txID string, patch domain.TransactionPatch) error
	DeleteTransaction(ctx context.Context, userID, txID string) error
	ListTransactions(ctx context.Context, userID string, r domain.TimeRange) ([]domain.FinancialTransaction, error)
}

// GenerationRequest is one structured-output call to the AI service.
type GenerationRequest struct {
	Operation         string
	SystemInstruction string
	Prompt            string
	// Schema is the response schema sent to the model, already in the
	// provider's JSON form.
	Schema map[string]any
	// Audio is optional inline media (base64 payload and MIME type).
	AudioBase64 string
	AudioMIME   string
}

// TextGenerator calls a generative model and returns the raw JSON text
// of its first candidate.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, req GenerationRequest) ([]byte, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// UserStore is the registered-users table.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*domain.StoredUser, error)
	Insert(ctx context.Context, u domain.StoredUser) error
	IDs(ctx context.Context) ([]string, error)
}

// TaskRepository persists a user's task list as a whole.
type TaskRepository interface {
	Load(ctx context.Context, userID string) []domain.Task
	Save(ctx context.Context, userID string, tasks []domain.Task) error
}

// SettingsRepository persists per-user preferences.
type SettingsRepository interface {
	Load(ctx context.Context, userID string) domain.Settings
	Save(ctx context.Context, userID string, s domain.Settings) error
}

// SessionRepository mirrors active sessions.
type SessionRepository interface {
	Load(ctx context.Context, userID string) *domain.SessionRecord
	Save(ctx context.Context, rec domain.SessionRecord) error
	Delete(ctx context.Context, userID string) error
}
