package supabase_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/resilience"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/supabase"
)

func newClient(t *testing.T, h http.HandlerFunc) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}
	return supabase.NewClient(srv.Client(), srv.URL, "anon", "service", resilience.NewCircuitBreaker("supabase-test", nil), cfg, zap.NewNop())
}

func TestAddTransaction_PostsRowWithHeaders(t *testing.T) {
	var got map[string]any
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/finances", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusCreated)
	})

	tx := &domain.FinancialTransaction{Type: domain.Outflow, Amount: 5000, Currency: "BRL", Category: "Food",
		Date: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, client.AddTransaction(context.Background(), "u1", tx))

	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, tx.ID, got["id"])
	assert.Equal(t, "u1", got["user_id"])
	assert.Equal(t, "outflow", got["type"])
	assert.EqualValues(t, 5000, got["amount"])
}

func TestListTransactions_QueryAndDecode(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "eq.u1", q.Get("user_id"))
		assert.Equal(t, []string{"gte.2026-01-01T00:00:00Z", "lte.2026-01-31T23:59:59.999999999Z"}, q["date"])
		assert.Equal(t, "date.desc", q.Get("order"))
		_, _ = w.Write([]byte(`[
			{"id":"b","user_id":"u1","type":"inflow","amount":20000,"currency":"BRL","description":"","category":"",
			 "date":"2026-01-15T00:00:00+00:00","recurring":null,"recurrence_of":null,"created_at":"2026-01-15T00:00:00+00:00"},
			{"id":"a","user_id":"u1","type":"outflow","amount":5000,"currency":"BRL","description":"","category":"Food",
			 "date":"2026-01-10T00:00:00+00:00","recurring":{"interval":"monthly"},"recurrence_of":"tpl","created_at":"2026-01-10T00:00:00+00:00"}
		]`))
	})

	txs, err := client.ListTransactions(context.Background(), "u1", domain.MonthRange(2026, time.January, time.UTC))
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "b", txs[0].ID)
	assert.Equal(t, domain.Inflow, txs[0].Type)
	assert.Equal(t, "tpl", txs[1].RecurrenceOf)
	require.NotNil(t, txs[1].Recurring)
	assert.Equal(t, domain.RecurMonthly, txs[1].Recurring.Interval)
}

func TestUpdateTransaction_FiltersByIDAndUser(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.tx1", r.URL.Query().Get("id"))
		assert.Equal(t, "eq.u1", r.URL.Query().Get("user_id"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"amount": float64(99)}, body)
		w.WriteHeader(http.StatusNoContent)
	})

	amount := int64(99)
	require.NoError(t, client.UpdateTransaction(context.Background(), "u1", "tx1", domain.TransactionPatch{Amount: &amount}))
}

func TestDeleteTransaction_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteTransaction(context.Background(), "u1", "tx1"))
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientErrors_AreNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid api key"}`))
	})

	err := client.DeleteTransaction(context.Background(), "u1", "tx1")
	var ext *domain.ErrExternalService
	require.ErrorAs(t, err, &ext)
	assert.EqualValues(t, 1, calls.Load())
}
