// Package persistence composes the remote and local finance stores.
package persistence

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/observability"
	"github.com/boddenberg/sloth-organize-bfa/internal/port"
)

// Fallback tries the remote store first and repeats the same operation
// on the local store when the remote fails. A remote success never
// touches the local store.
type Fallback struct {
	remote  port.FinanceStore
	local   port.FinanceStore
	loc     *time.Location
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewFallback composes remote over local.
func NewFallback(remote, local port.FinanceStore, loc *time.Location, metrics *observability.Metrics, logger *zap.Logger) *Fallback {
	if loc == nil {
		loc = time.Local
	}
	return &Fallback{remote: remote, local: local, loc: loc, metrics: metrics, logger: logger}
}

func (f *Fallback) degraded(op, userID string, err error) {
	f.logger.Warn("remote finance store failed, using local",
		zap.String("op", op),
		zap.String("user_id", userID),
		zap.Error(err),
	)
	if f.metrics != nil {
		f.metrics.IncrStoreFallback(op)
	}
}

// AddTransaction implements port.FinanceStore.
func (f *Fallback) AddTransaction(ctx context.Context, userID string, tx *domain.FinancialTransaction) error {
	err := f.remote.AddTransaction(ctx, userID, tx)
	if err == nil {
		return nil
	}
	f.degraded("add", userID, err)
	return f.local.AddTransaction(ctx, userID, tx)
}

// UpdateTransaction implements port.FinanceStore.
func (f *Fallback) UpdateTransaction(ctx context.Context, userID, txID string, patch domain.TransactionPatch) error {
	err := f.remote.UpdateTransaction(ctx, userID, txID, patch)
	if err == nil {
		return nil
	}
	f.degraded("update", userID, err)
	return f.local.UpdateTransaction(ctx, userID, txID, patch)
}

// DeleteTransaction implements port.FinanceStore.
func (f *Fallback) DeleteTransaction(ctx context.Context, userID, txID string) error {
	err := f.remote.DeleteTransaction(ctx, userID, txID)
	if err == nil {
		return nil
	}
	f.degraded("delete", userID, err)
	return f.local.DeleteTransaction(ctx, userID, txID)
}

// ListTransactions implements port.FinanceStore.
func (f *Fallback) ListTransactions(ctx context.Context, userID string, r domain.TimeRange) ([]domain.FinancialTransaction, error) {
	txs, err := f.remote.ListTransactions(ctx, userID, r)
	if err == nil {
		return txs, nil
	}
	f.degraded("list", userID, err)
	return f.local.ListTransactions(ctx, userID, r)
}

// GetTransactionsByMonth lists one calendar month (1-12) in the
// store's time zone.
func (f *Fallback) GetTransactionsByMonth(ctx context.Context, userID string, year, month int) ([]domain.FinancialTransaction, error) {
	return f.ListTransactions(ctx, userID, domain.MonthRange(year, time.Month(month), f.loc))
}

// NewFinanceStore picks the persistence strategy once. With no remote
// the local store is returned unchanged.
func NewFinanceStore(local, remote port.FinanceStore, loc *time.Location, metrics *observability.Metrics, logger *zap.Logger) port.FinanceStore {
	if remote == nil {
		return local
	}
	return NewFallback(remote, local, loc, metrics, logger)
}
