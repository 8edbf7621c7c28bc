package service_test

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/money"
	"github.com/boddenberg/sloth-organize-bfa/internal/service"
)

// --- Fakes ---

type memFinanceStore struct {
	mu      sync.Mutex
	byUser  map[string][]domain.FinancialTransaction
	listErr error
}

func newMemFinanceStore() *memFinanceStore {
	return &memFinanceStore{byUser: make(map[string][]domain.FinancialTransaction)}
}

func (m *memFinanceStore) AddTransaction(_ context.Context, userID string, tx *domain.FinancialTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[userID] = append(m.byUser[userID], *tx)
	return nil
}

func (m *memFinanceStore) UpdateTransaction(_ context.Context, userID, txID string, patch domain.TransactionPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, tx := range m.byUser[userID] {
		if tx.ID == txID {
			m.byUser[userID][i] = patch.Apply(tx)
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "transaction", ID: txID}
}

func (m *memFinanceStore) DeleteTransaction(_ context.Context, userID, txID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txs := m.byUser[userID]
	for i, tx := range txs {
		if tx.ID == txID {
			m.byUser[userID] = append(txs[:i], txs[i+1:]...)
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "transaction", ID: txID}
}

func (m *memFinanceStore) ListTransactions(_ context.Context, userID string, r domain.TimeRange) ([]domain.FinancialTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.FinancialTransaction
	for _, tx := range m.byUser[userID] {
		if r.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

type staticUsers []string

func (s staticUsers) FindByEmail(context.Context, string) (*domain.StoredUser, error) { return nil, nil }
func (s staticUsers) Insert(context.Context, domain.StoredUser) error               { return nil }
func (s staticUsers) IDs(context.Context) ([]string, error)                         { return s, nil }

func newFinance(store *memFinanceStore, now time.Time, users ...string) *service.FinanceService {
	return service.NewFinanceService(store, staticUsers(users), time.UTC, zap.NewNop()).
		WithClock(func() time.Time { return now }).
		WithRand(rand.New(rand.NewSource(7)))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// --- Tests ---

func TestFinanceAdd_Defaults(t *testing.T) {
	now := day(2024, time.March, 5)
	store := newMemFinanceStore()
	svc := newFinance(store, now)

	tx, err := svc.Add(context.Background(), "u1", domain.TransactionRequest{
		Type:        domain.Outflow,
		Amount:      money.Amount(1999),
		Currency:    " brl ",
		Description: " Mercado ",
		Category:    "Alimentação",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, "BRL", tx.Currency)
	assert.Equal(t, "Mercado", tx.Description)
	assert.Equal(t, now, tx.Date)
	assert.Equal(t, now, tx.CreatedAt)
	assert.Len(t, store.byUser["u1"], 1)
}

func TestFinanceAdd_Validation(t *testing.T) {
	svc := newFinance(newMemFinanceStore(), day(2024, time.March, 5))

	cases := map[string]domain.TransactionRequest{
		"type":               {Type: "sideways", Amount: 10},
		"recurring.interval": {Type: domain.Inflow, Amount: 10, Recurring: &domain.Recurrence{Interval: "daily"}},
		"currency":           {Type: domain.Inflow, Amount: 10, Currency: "REAL"},
	}
	for field, req := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := svc.Add(context.Background(), "u1", req)
			var verr *domain.ErrValidation
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, field, verr.Field)
		})
	}
}

func TestFinanceUpdate_StampsUpdatedAt(t *testing.T) {
	now := day(2024, time.March, 5)
	store := newMemFinanceStore()
	svc := newFinance(store, now)

	tx, err := svc.Add(context.Background(), "u1", domain.TransactionRequest{Type: domain.Outflow, Amount: 100})
	require.NoError(t, err)

	amount := money.Amount(250)
	require.NoError(t, svc.Update(context.Background(), "u1", tx.ID, domain.TransactionPatchRequest{Amount: &amount}))

	got := store.byUser["u1"][0]
	assert.Equal(t, int64(250), got.Amount)
	require.NotNil(t, got.UpdatedAt)
	assert.Equal(t, now, *got.UpdatedAt)

	err = svc.Update(context.Background(), "u1", "missing", domain.TransactionPatchRequest{Amount: &amount})
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))
}

func TestFinanceMonthView(t *testing.T) {
	store := newMemFinanceStore()
	svc := newFinance(store, day(2024, time.February, 1))
	ctx := context.Background()

	jan10, jan15, feb1 := day(2024, time.January, 10), day(2024, time.January, 15), day(2024, time.February, 1)
	_, err := svc.Add(ctx, "u1", domain.TransactionRequest{Type: domain.Outflow, Amount: 5000, Category: "Food", Date: &jan10})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "u1", domain.TransactionRequest{Type: domain.Inflow, Amount: 20000, Date: &jan15})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "u1", domain.TransactionRequest{Type: domain.Inflow, Amount: 999, Date: &feb1})
	require.NoError(t, err)

	view, err := svc.MonthView(ctx, "u1", 2024, 1)
	require.NoError(t, err)

	assert.Len(t, view.Transactions, 2)
	assert.Equal(t, domain.MonthlyAggregation{
		Income:            20000,
		Expense:           5000,
		Balance:           15000,
		ByCategory:        map[string]int64{"Food": 5000},
		TransactionsCount: 2,
	}, view.Aggregation)
}

func TestFinanceMonthView_EmptyAndErrors(t *testing.T) {
	store := newMemFinanceStore()
	svc := newFinance(store, day(2024, time.February, 1))

	view, err := svc.MonthView(context.Background(), "u1", 2024, 6)
	require.NoError(t, err)
	assert.NotNil(t, view.Transactions)
	assert.Empty(t, view.Transactions)

	_, err = svc.MonthView(context.Background(), "u1", 2024, 13)
	var verr *domain.ErrValidation
	assert.True(t, errors.As(err, &verr))

	store.listErr = errors.New("disk gone")
	_, err = svc.MonthView(context.Background(), "u1", 2024, 6)
	assert.Error(t, err)
}

func TestFinanceAggregateYear(t *testing.T) {
	store := newMemFinanceStore()
	svc := newFinance(store, day(2024, time.December, 31))
	ctx := context.Background()

	mar, jul := day(2024, time.March, 3), day(2024, time.July, 9)
	_, err := svc.Add(ctx, "u1", domain.TransactionRequest{Type: domain.Inflow, Amount: 1000, Date: &mar})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "u1", domain.TransactionRequest{Type: domain.Outflow, Amount: 400, Date: &jul})
	require.NoError(t, err)

	agg, err := svc.AggregateYear(ctx, "u1", 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), agg.TotalIncome)
	assert.Equal(t, int64(400), agg.TotalExpense)
	assert.Equal(t, 3, agg.BestMonth)
	assert.Equal(t, 7, agg.WorstMonth)
	assert.True(t, agg.DistinctExtremes)
}

func TestFinanceList_WholeYear(t *testing.T) {
	store := newMemFinanceStore()
	svc := newFinance(store, day(2024, time.December, 31))
	ctx := context.Background()

	for _, d := range []time.Time{day(2023, time.December, 31), day(2024, time.January, 1), day(2024, time.November, 30)} {
		d := d
		_, err := svc.Add(ctx, "u1", domain.TransactionRequest{Type: domain.Inflow, Amount: 1, Date: &d})
		require.NoError(t, err)
	}

	txs, err := svc.List(ctx, "u1", 2024, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestFinanceSeed(t *testing.T) {
	now := day(2024, time.March, 20)
	store := newMemFinanceStore()
	svc := newFinance(store, now)

	res, err := svc.Seed(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 50, res.Created)

	oldest := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for _, tx := range store.byUser["u1"] {
		assert.False(t, tx.Date.Before(oldest), tx.Date)
		assert.True(t, tx.Date.Before(now.AddDate(0, 1, 0)))
		assert.Equal(t, "BRL", tx.Currency)
		if tx.Type == domain.Inflow {
			assert.GreaterOrEqual(t, tx.Amount, int64(1000))
			assert.Less(t, tx.Amount, int64(21000))
		} else {
			assert.Less(t, tx.Amount, int64(6000))
		}
	}

	again, err := svc.Seed(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, again.Created)
	assert.Len(t, store.byUser["u1"], 50)
}

func TestMaterializeRecurring_MonthlyClampedAndIdempotent(t *testing.T) {
	store := newMemFinanceStore()
	now := day(2024, time.April, 15)
	svc := newFinance(store, now, "u1")
	ctx := context.Background()

	start := day(2024, time.January, 31)
	tpl, err := svc.Add(ctx, "u1", domain.TransactionRequest{
		Type: domain.Outflow, Amount: 12000, Category: "Moradia", Date: &start,
		Recurring: &domain.Recurrence{Interval: domain.RecurMonthly},
	})
	require.NoError(t, err)

	n, err := svc.MaterializeRecurring(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var dates []time.Time
	for _, tx := range store.byUser["u1"] {
		if tx.RecurrenceOf == tpl.ID {
			dates = append(dates, tx.Date)
			assert.Nil(t, tx.Recurring)
			assert.Equal(t, int64(12000), tx.Amount)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	assert.Equal(t, []time.Time{day(2024, time.February, 29), day(2024, time.March, 31)}, dates)

	n, err = svc.MaterializeRecurring(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMaterializeRecurring_RespectsUntil(t *testing.T) {
	store := newMemFinanceStore()
	svc := newFinance(store, day(2024, time.March, 1), "u1", "u2")
	ctx := context.Background()

	start := day(2024, time.January, 1)
	until := day(2024, time.January, 20)
	_, err := svc.Add(ctx, "u2", domain.TransactionRequest{
		Type: domain.Inflow, Amount: 500, Date: &start,
		Recurring: &domain.Recurrence{Interval: domain.RecurWeekly, Until: &until},
	})
	require.NoError(t, err)

	n, err := svc.MaterializeRecurring(ctx)
	require.NoError(t, err)
	// Jan 8 and Jan 15; Jan 22 is past the end of the series.
	assert.Equal(t, 2, n)
	assert.Empty(t, store.byUser["u1"])
}

func TestMaterializeRecurring_OldTemplateCatchesUpAcrossRuns(t *testing.T) {
	store := newMemFinanceStore()
	now := day(2024, time.March, 1)
	svc := newFinance(store, now, "u1")
	ctx := context.Background()

	// 5173 days separate the two dates: exactly 739 weekly steps.
	start := day(2010, time.January, 1)
	tpl, err := svc.Add(ctx, "u1", domain.TransactionRequest{
		Type: domain.Outflow, Amount: 900, Date: &start,
		Recurring: &domain.Recurrence{Interval: domain.RecurWeekly},
	})
	require.NoError(t, err)

	first, err := svc.MaterializeRecurring(ctx)
	require.NoError(t, err)
	assert.Equal(t, 400, first)

	second, err := svc.MaterializeRecurring(ctx)
	require.NoError(t, err)
	assert.Equal(t, 339, second)

	third, err := svc.MaterializeRecurring(ctx)
	require.NoError(t, err)
	assert.Zero(t, third)

	var latest time.Time
	seen := make(map[int64]bool)
	for _, tx := range store.byUser["u1"] {
		if tx.RecurrenceOf != tpl.ID {
			continue
		}
		assert.False(t, seen[tx.Date.Unix()], "duplicate occurrence %s", tx.Date)
		seen[tx.Date.Unix()] = true
		if tx.Date.After(latest) {
			latest = tx.Date
		}
	}
	assert.Len(t, seen, 739)
	assert.Equal(t, now, latest)
}
