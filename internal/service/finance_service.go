package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/sloth-organize-bfa/internal/aggregate"
	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/port"
)

var financeTracer = otel.Tracer("service/finance")

// maxOccurrencesPerRun bounds how many copies one template may produce
// in a single materialization pass. Older gaps are filled first and the
// rest is picked up by later passes.
const maxOccurrencesPerRun = 400

// FinanceService validates transactions, hands them to the store and
// derives monthly and yearly views.
type FinanceService struct {
	store  port.FinanceStore
	users  port.UserStore
	loc    *time.Location
	now    func() time.Time
	rng    *rand.Rand
	logger *zap.Logger
}

// NewFinanceService creates a finance service.
func NewFinanceService(store port.FinanceStore, users port.UserStore, loc *time.Location, logger *zap.Logger) *FinanceService {
	if loc == nil {
		loc = time.Local
	}
	return &FinanceService{
		store:  store,
		users:  users,
		loc:    loc,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

// WithClock overrides time.Now, for tests.
func (s *FinanceService) WithClock(now func() time.Time) *FinanceService {
	s.now = now
	return s
}

// WithRand overrides the seed generator, for tests.
func (s *FinanceService) WithRand(r *rand.Rand) *FinanceService {
	s.rng = r
	return s
}

func validateRecurrence(r *domain.Recurrence) error {
	if r == nil {
		return nil
	}
	if !r.Interval.Valid() {
		return &domain.ErrValidation{Field: "recurring.interval", Message: "must be weekly, monthly or yearly"}
	}
	return nil
}

func validPeriod(year, month int) error {
	if year < 1970 || year > 9999 {
		return &domain.ErrValidation{Field: "year", Message: "out of range"}
	}
	if month < 0 || month > 12 {
		return &domain.ErrValidation{Field: "month", Message: "must be between 1 and 12"}
	}
	return nil
}

// ============================================================
// CRUD
// ============================================================

// Add records a new transaction. Currency defaults to BRL and date to now.
func (s *FinanceService) Add(ctx context.Context, userID string, req domain.TransactionRequest) (*domain.FinancialTransaction, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.Add")
	defer span.End()

	if !req.Type.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be inflow or outflow"}
	}
	if err := validateRecurrence(req.Recurring); err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	if len(currency) != 3 {
		return nil, &domain.ErrValidation{Field: "currency", Message: "must be a 3-letter code"}
	}

	now := s.now()
	date := now
	if req.Date != nil {
		date = *req.Date
	}
	tx := &domain.FinancialTransaction{
		ID:          uuid.NewString(),
		Type:        req.Type,
		Amount:      int64(req.Amount),
		Currency:    currency,
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Date:        date,
		Recurring:   req.Recurring,
		CreatedAt:   now,
	}
	if err := s.store.AddTransaction(ctx, userID, tx); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("tx.id", tx.ID))
	s.logger.Info("transaction added",
		zap.String("user_id", userID),
		zap.String("tx_id", tx.ID),
		zap.String("type", string(tx.Type)),
		zap.Int64("amount", tx.Amount),
	)
	return tx, nil
}

// Update merges req into the transaction and stamps UpdatedAt.
func (s *FinanceService) Update(ctx context.Context, userID, txID string, req domain.TransactionPatchRequest) error {
	ctx, span := financeTracer.Start(ctx, "FinanceService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("tx.id", txID))

	if req.Type != nil && !req.Type.Valid() {
		return &domain.ErrValidation{Field: "type", Message: "must be inflow or outflow"}
	}
	if err := validateRecurrence(req.Recurring); err != nil {
		return err
	}
	return s.store.UpdateTransaction(ctx, userID, txID, req.Patch(s.now()))
}

// Delete removes a transaction.
func (s *FinanceService) Delete(ctx context.Context, userID, txID string) error {
	ctx, span := financeTracer.Start(ctx, "FinanceService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("tx.id", txID))

	return s.store.DeleteTransaction(ctx, userID, txID)
}

// List returns the transactions of a month, or of the whole year when
// month is 0, newest first.
func (s *FinanceService) List(ctx context.Context, userID string, year, month int) ([]domain.FinancialTransaction, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.List")
	defer span.End()

	if err := validPeriod(year, month); err != nil {
		return nil, err
	}
	r := domain.YearRange(year, s.loc)
	if month > 0 {
		r = domain.MonthRange(year, time.Month(month), s.loc)
	}
	return s.store.ListTransactions(ctx, userID, r)
}

// ============================================================
// Views
// ============================================================

// MonthView loads a month's transactions and its aggregation in
// parallel.
func (s *FinanceService) MonthView(ctx context.Context, userID string, year, month int) (*domain.MonthView, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.MonthView")
	defer span.End()

	if month == 0 {
		return nil, &domain.ErrValidation{Field: "month", Message: "must be between 1 and 12"}
	}
	if err := validPeriod(year, month); err != nil {
		return nil, err
	}

	view := &domain.MonthView{Year: year, Month: month}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.List(gctx, userID, year, month)
		if err != nil {
			return fmt.Errorf("list month: %w", err)
		}
		view.Transactions = txs
		return nil
	})
	g.Go(func() error {
		agg, err := s.AggregateMonth(gctx, userID, year, month)
		if err != nil {
			return err
		}
		view.Aggregation = *agg
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if view.Transactions == nil {
		view.Transactions = []domain.FinancialTransaction{}
	}
	return view, nil
}

// AggregateMonth totals one month.
func (s *FinanceService) AggregateMonth(ctx context.Context, userID string, year, month int) (*domain.MonthlyAggregation, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.AggregateMonth")
	defer span.End()

	txs, err := s.store.ListTransactions(ctx, userID, domain.MonthRange(year, time.Month(month), s.loc))
	if err != nil {
		return nil, fmt.Errorf("aggregate month: %w", err)
	}
	agg := aggregate.Month(txs, year, month, s.loc)
	return &agg, nil
}

// AggregateYear totals a year month by month.
func (s *FinanceService) AggregateYear(ctx context.Context, userID string, year int) (*domain.YearlyAggregation, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.AggregateYear")
	defer span.End()

	if err := validPeriod(year, 0); err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx, userID, domain.YearRange(year, s.loc))
	if err != nil {
		return nil, fmt.Errorf("aggregate year: %w", err)
	}
	agg := aggregate.Year(txs, year, s.loc)
	return &agg, nil
}

// ============================================================
// Dev Tools
// ============================================================

var seedCategories = []string{"Alimentação", "Transporte", "Lazer", "Saúde", "Trabalho", "Educação"}

const seedCount = 50

// Seed fills an empty ledger with 50 random transactions spread over
// the current and two previous months. A ledger with any data is left
// alone.
func (s *FinanceService) Seed(ctx context.Context, userID string) (*domain.SeedResult, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.Seed")
	defer span.End()

	existing, err := s.store.ListTransactions(ctx, userID, domain.AllTime)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return &domain.SeedResult{Message: "dados já existentes, nada foi criado"}, nil
	}

	now := s.now().In(s.loc)
	created := 0
	for i := 0; i < seedCount; i++ {
		inflow := s.rng.Float64() > 0.7
		monthsBack := s.rng.Intn(3)
		day := s.rng.Intn(28) + 1
		date := time.Date(now.Year(), now.Month()-time.Month(monthsBack), day, 12, 0, 0, 0, s.loc)

		tx := &domain.FinancialTransaction{
			ID:        uuid.NewString(),
			Currency:  domain.DefaultCurrency,
			Category:  seedCategories[s.rng.Intn(len(seedCategories))],
			Date:      date,
			CreatedAt: now,
		}
		if inflow {
			tx.Type = domain.Inflow
			tx.Amount = int64(s.rng.Intn(20000) + 1000)
			tx.Description = fmt.Sprintf("Recebimento %d", i)
		} else {
			tx.Type = domain.Outflow
			tx.Amount = int64(s.rng.Intn(5000) + 1000)
			tx.Description = fmt.Sprintf("Gasto %d", i)
		}
		if err := s.store.AddTransaction(ctx, userID, tx); err != nil {
			return nil, err
		}
		created++
	}

	s.logger.Info("DEV: finance ledger seeded", zap.String("user_id", userID), zap.Int("created", created))
	return &domain.SeedResult{Created: created, Message: fmt.Sprintf("%d transações criadas", created)}, nil
}

// ============================================================
// Recurring transactions
// ============================================================

// MaterializeRecurring creates the due occurrences of every recurring
// template of every user and returns how many copies were added. One
// user's failure does not stop the others.
func (s *FinanceService) MaterializeRecurring(ctx context.Context) (int, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.MaterializeRecurring")
	defer span.End()

	ids, err := s.users.IDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	total := 0
	for _, userID := range ids {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := s.materializeUser(ctx, userID)
		total += n
		if err != nil {
			s.logger.Warn("recurring materialization failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	span.SetAttributes(attribute.Int("created", total))
	if total > 0 {
		s.logger.Info("recurring transactions materialized", zap.Int("created", total), zap.Int("users", len(ids)))
	}
	return total, nil
}

func (s *FinanceService) materializeUser(ctx context.Context, userID string) (int, error) {
	txs, err := s.store.ListTransactions(ctx, userID, domain.AllTime)
	if err != nil {
		return 0, err
	}

	have := make(map[string]map[int64]bool)
	for _, tx := range txs {
		if tx.RecurrenceOf == "" {
			continue
		}
		if have[tx.RecurrenceOf] == nil {
			have[tx.RecurrenceOf] = make(map[int64]bool)
		}
		have[tx.RecurrenceOf][tx.Date.Unix()] = true
	}

	now := s.now()
	created := 0
	for _, tpl := range txs {
		if tpl.Recurring == nil || tpl.RecurrenceOf != "" {
			continue
		}
		for _, date := range missingOccurrences(tpl, now, have[tpl.ID]) {
			occ := &domain.FinancialTransaction{
				ID:           uuid.NewString(),
				Type:         tpl.Type,
				Amount:       tpl.Amount,
				Currency:     tpl.Currency,
				Description:  tpl.Description,
				Category:     tpl.Category,
				Date:         date,
				RecurrenceOf: tpl.ID,
				CreatedAt:    now,
			}
			if err := s.store.AddTransaction(ctx, userID, occ); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

// missingOccurrences lists the repetitions of tpl after its own date
// that are due by now, inside the series end and not in have (keyed by
// Unix date). At most maxOccurrencesPerRun dates are returned.
func missingOccurrences(tpl domain.FinancialTransaction, now time.Time, have map[int64]bool) []time.Time {
	var out []time.Time
	for n := 1; len(out) < maxOccurrencesPerRun; n++ {
		d := tpl.Recurring.Interval.Occurrence(tpl.Date, n)
		if d.After(now) {
			break
		}
		if tpl.Recurring.Until != nil && d.After(*tpl.Recurring.Until) {
			break
		}
		if !have[d.Unix()] {
			out = append(out, d)
		}
	}
	return out
}
