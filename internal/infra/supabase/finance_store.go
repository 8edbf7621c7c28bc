package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/resilience"
)

const financesTable = "finances"

// financeRow maps the finances table columns.
type financeRow struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	Type         string             `json:"type"`
	Amount       int64              `json:"amount"`
	Currency     string             `json:"currency"`
	Description  string             `json:"description"`
	Category     string             `json:"category"`
	Date         time.Time          `json:"date"`
	Recurring    *domain.Recurrence `json:"recurring"`
	RecurrenceOf *string            `json:"recurrence_of"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    *time.Time         `json:"updated_at"`
}

func toRow(userID string, tx *domain.FinancialTransaction) financeRow {
	row := financeRow{
		ID:          tx.ID,
		UserID:      userID,
		Type:        string(tx.Type),
		Amount:      tx.Amount,
		Currency:    tx.Currency,
		Description: tx.Description,
		Category:    tx.Category,
		Date:        tx.Date.UTC(),
		Recurring:   tx.Recurring,
		CreatedAt:   tx.CreatedAt.UTC(),
		UpdatedAt:   tx.UpdatedAt,
	}
	if tx.RecurrenceOf != "" {
		row.RecurrenceOf = &tx.RecurrenceOf
	}
	return row
}

func (r financeRow) toDomain() domain.FinancialTransaction {
	tx := domain.FinancialTransaction{
		ID:          r.ID,
		Type:        domain.FlowType(r.Type),
		Amount:      r.Amount,
		Currency:    r.Currency,
		Description: r.Description,
		Category:    r.Category,
		Date:        r.Date,
		Recurring:   r.Recurring,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.RecurrenceOf != nil {
		tx.RecurrenceOf = *r.RecurrenceOf
	}
	return tx
}

// patchBody builds the PATCH document from the non-nil fields.
func patchBody(p domain.TransactionPatch) map[string]any {
	data := map[string]any{}
	if p.Type != nil {
		data["type"] = string(*p.Type)
	}
	if p.Amount != nil {
		data["amount"] = *p.Amount
	}
	if p.Description != nil {
		data["description"] = *p.Description
	}
	if p.Category != nil {
		data["category"] = *p.Category
	}
	if p.Date != nil {
		data["date"] = p.Date.UTC().Format(time.RFC3339Nano)
	}
	if p.Recurring != nil {
		data["recurring"] = p.Recurring
	}
	if p.UpdatedAt != nil {
		data["updated_at"] = p.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return data
}

func rowFilter(userID, txID string) string {
	q := url.Values{}
	q.Set("id", "eq."+txID)
	q.Set("user_id", "eq."+userID)
	return financesTable + "?" + q.Encode()
}

// AddTransaction inserts tx, assigning an id when it has none.
func (c *Client) AddTransaction(ctx context.Context, userID string, tx *domain.FinancialTransaction) error {
	ctx, span := tracer.Start(ctx, "Supabase.AddTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	row := toRow(userID, tx)

	err := resilience.Execute(ctx, c.cb, c.cfg, func() error {
		_, err := c.do(ctx, http.MethodPost, financesTable, row, "return=minimal")
		return err
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/finances", Err: err}
	}
	return nil
}

// UpdateTransaction patches the row matching txID and userID.
func (c *Client) UpdateTransaction(ctx context.Context, userID, txID string, patch domain.TransactionPatch) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("tx.id", txID))

	data := patchBody(patch)
	if len(data) == 0 {
		return nil
	}

	err := resilience.Execute(ctx, c.cb, c.cfg, func() error {
		_, err := c.do(ctx, http.MethodPatch, rowFilter(userID, txID), data, "return=minimal")
		return err
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/finances", Err: err}
	}
	return nil
}

// DeleteTransaction removes the row matching txID and userID.
func (c *Client) DeleteTransaction(ctx context.Context, userID, txID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("tx.id", txID))

	err := resilience.Execute(ctx, c.cb, c.cfg, func() error {
		_, err := c.do(ctx, http.MethodDelete, rowFilter(userID, txID), nil, "")
		return err
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/finances", Err: err}
	}
	return nil
}

// ListTransactions returns the user's rows inside r, newest first.
func (c *Client) ListTransactions(ctx context.Context, userID string, r domain.TimeRange) ([]domain.FinancialTransaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Add("date", "gte."+r.From.UTC().Format(time.RFC3339Nano))
	q.Add("date", "lte."+r.To.UTC().Format(time.RFC3339Nano))
	q.Set("order", "date.desc")
	path := financesTable + "?" + q.Encode()

	var txs []domain.FinancialTransaction
	err := resilience.Execute(ctx, c.cb, c.cfg, func() error {
		body, err := c.do(ctx, http.MethodGet, path, nil, "")
		if err != nil {
			return err
		}

		var rows []financeRow
		if len(body) > 0 {
			if err := json.Unmarshal(body, &rows); err != nil {
				return resilience.Permanent(fmt.Errorf("failed to decode finances: %w", err))
			}
		}

		txs = make([]domain.FinancialTransaction, 0, len(rows))
		for _, row := range rows {
			txs = append(txs, row.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/finances", Err: err}
	}
	return txs, nil
}
