package localstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/port"
)

// FinanceCollection keeps each user's transactions as one JSON array
// under FinancePrefix+userID. Every write replaces the whole array.
type FinanceCollection struct {
	kv     port.KeyValueStore
	logger *zap.Logger
	mu     sync.Mutex // serializes read-modify-write cycles
}

// NewFinanceCollection creates the local finance store.
func NewFinanceCollection(kv port.KeyValueStore, logger *zap.Logger) *FinanceCollection {
	return &FinanceCollection{kv: kv, logger: logger}
}

func (c *FinanceCollection) load(ctx context.Context, userID string) ([]domain.FinancialTransaction, error) {
	txs, _, err := loadJSON[[]domain.FinancialTransaction](ctx, c.kv, c.logger, FinancePrefix+userID)
	return txs, err
}

func (c *FinanceCollection) loadOrEmpty(ctx context.Context, userID string) []domain.FinancialTransaction {
	txs, _ := loadOrEmpty[[]domain.FinancialTransaction](ctx, c.kv, c.logger, FinancePrefix+userID)
	return txs
}

func (c *FinanceCollection) save(ctx context.Context, userID string, txs []domain.FinancialTransaction) error {
	if txs == nil {
		txs = []domain.FinancialTransaction{}
	}
	return saveJSON(ctx, c.kv, FinancePrefix+userID, txs)
}

// AddTransaction appends tx, assigning an id when it has none.
func (c *FinanceCollection) AddTransaction(ctx context.Context, userID string, tx *domain.FinancialTransaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	txs, err := c.load(ctx, userID)
	if err != nil {
		return err
	}
	return c.save(ctx, userID, append(txs, *tx))
}

// UpdateTransaction merges patch into the matching transaction. An
// unknown id leaves the collection unchanged.
func (c *FinanceCollection) UpdateTransaction(ctx context.Context, userID, txID string, patch domain.TransactionPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	txs, err := c.load(ctx, userID)
	if err != nil {
		return err
	}
	for i := range txs {
		if txs[i].ID == txID {
			txs[i] = patch.Apply(txs[i])
		}
	}
	return c.save(ctx, userID, txs)
}

// DeleteTransaction removes the matching transaction, if any.
func (c *FinanceCollection) DeleteTransaction(ctx context.Context, userID, txID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	txs, err := c.load(ctx, userID)
	if err != nil {
		return err
	}
	kept := txs[:0]
	for _, t := range txs {
		if t.ID != txID {
			kept = append(kept, t)
		}
	}
	return c.save(ctx, userID, kept)
}

// ListTransactions returns the transactions inside r, newest first.
func (c *FinanceCollection) ListTransactions(ctx context.Context, userID string, r domain.TimeRange) ([]domain.FinancialTransaction, error) {
	c.mu.Lock()
	txs := c.loadOrEmpty(ctx, userID)
	c.mu.Unlock()

	out := make([]domain.FinancialTransaction, 0, len(txs))
	for _, t := range txs {
		if r.Contains(t.Date) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// All returns the user's whole collection in stored order.
func (c *FinanceCollection) All(ctx context.Context, userID string) []domain.FinancialTransaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadOrEmpty(ctx, userID)
}

// ReplaceAll overwrites the user's collection.
func (c *FinanceCollection) ReplaceAll(ctx context.Context, userID string, txs []domain.FinancialTransaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(ctx, userID, txs)
}

// UserIDs lists every user that has a finance collection.
func (c *FinanceCollection) UserIDs(ctx context.Context) ([]string, error) {
	keys, err := c.kv.Keys(ctx, FinancePrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k[len(FinancePrefix):])
	}
	return ids, nil
}
