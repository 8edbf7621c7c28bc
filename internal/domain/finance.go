package domain

import (
	"time"

	"github.com/boddenberg/sloth-organize-bfa/internal/money"
)

// ============================================================
// Finance
// ============================================================

// FlowType carries the direction of a cash movement.
// Amounts are never negative; the sign lives here.
type FlowType string

const (
	Inflow  FlowType = "inflow"
	Outflow FlowType = "outflow"
)

// Valid reports whether f is inflow or outflow.
func (f FlowType) Valid() bool {
	return f == Inflow || f == Outflow
}

// DefaultCurrency is assumed when a transaction names none.
const DefaultCurrency = "BRL"

// SuggestedCategories is the fixed list offered by the transaction form.
var SuggestedCategories = []string{
	"Alimentação", "Transporte", "Moradia", "Lazer", "Saúde",
	"Educação", "Salário", "Freelance", "Investimentos", "Outros",
}

// RecurrenceInterval is how often a recurring transaction repeats.
type RecurrenceInterval string

const (
	RecurWeekly  RecurrenceInterval = "weekly"
	RecurMonthly RecurrenceInterval = "monthly"
	RecurYearly  RecurrenceInterval = "yearly"
)

// Valid reports whether r is a known interval.
func (r RecurrenceInterval) Valid() bool {
	return r == RecurWeekly || r == RecurMonthly || r == RecurYearly
}

// Occurrence returns the n-th repetition after start. Monthly and
// yearly steps clamp to the last day of a shorter month, so a series
// starting on Jan 31 falls on Feb 28/29, Mar 31, Apr 30 and so on.
func (r RecurrenceInterval) Occurrence(start time.Time, n int) time.Time {
	switch r {
	case RecurWeekly:
		return start.AddDate(0, 0, 7*n)
	case RecurYearly:
		return addMonthsClamped(start, 12*n)
	default:
		return addMonthsClamped(start, n)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Recurrence describes a repeating transaction.
type Recurrence struct {
	Interval RecurrenceInterval `json:"interval" validate:"required,oneof=weekly monthly yearly"`
	Until    *time.Time         `json:"until,omitempty"`
}

// FinancialTransaction is a single money movement.
type FinancialTransaction struct {
	ID          string      `json:"id"`
	Type        FlowType    `json:"type"`
	Amount      int64       `json:"amount"` // cents, >= 0
	Currency    string      `json:"currency"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Date        time.Time   `json:"date"`
	Recurring   *Recurrence `json:"recurring,omitempty"`
	// RecurrenceOf links a materialized occurrence to its template.
	RecurrenceOf string     `json:"recurrenceOf,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// TransactionPatch is a partial update of a transaction.
type TransactionPatch struct {
	Type        *FlowType   `json:"type,omitempty"`
	Amount      *int64      `json:"amount,omitempty"`
	Description *string     `json:"description,omitempty"`
	Category    *string     `json:"category,omitempty"`
	Date        *time.Time  `json:"date,omitempty"`
	Recurring   *Recurrence `json:"recurring,omitempty"`
	UpdatedAt   *time.Time  `json:"updatedAt,omitempty"`
}

// Apply merges the non-nil fields of p into tx.
func (p TransactionPatch) Apply(tx FinancialTransaction) FinancialTransaction {
	if p.Type != nil {
		tx.Type = *p.Type
	}
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Description != nil {
		tx.Description = *p.Description
	}
	if p.Category != nil {
		tx.Category = *p.Category
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	if p.Recurring != nil {
		r := *p.Recurring
		tx.Recurring = &r
	}
	if p.UpdatedAt != nil {
		u := *p.UpdatedAt
		tx.UpdatedAt = &u
	}
	return tx
}

// TimeRange is an inclusive [From, To] interval.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t lies within the inclusive range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// MonthRange returns the first and last instant of a calendar month in loc.
func MonthRange(year int, month time.Month, loc *time.Location) TimeRange {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return TimeRange{From: start, To: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

// YearRange returns the first and last instant of a calendar year in loc.
func YearRange(year int, loc *time.Location) TimeRange {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return TimeRange{From: start, To: start.AddDate(1, 0, 0).Add(-time.Nanosecond)}
}

// MonthlyAggregation is derived on every query and never persisted.
type MonthlyAggregation struct {
	Income            int64            `json:"income"`
	Expense           int64            `json:"expense"`
	Balance           int64            `json:"balance"`
	ByCategory        map[string]int64 `json:"byCategory"`
	TransactionsCount int              `json:"transactionsCount"`
}

// MonthSummary is one of the twelve rows of a yearly aggregation.
type MonthSummary struct {
	Month   int   `json:"month"` // 1-12
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Balance int64 `json:"balance"`
}

// YearlyAggregation summarizes a calendar year month by month.
type YearlyAggregation struct {
	Months       [12]MonthSummary `json:"months"`
	TotalIncome  int64            `json:"totalIncome"`
	TotalExpense int64            `json:"totalExpense"`
	BestMonth    int              `json:"bestMonth"`
	WorstMonth   int              `json:"worstMonth"`
	// DistinctExtremes is false when every month has the same balance,
	// in which case BestMonth and WorstMonth carry no information.
	DistinctExtremes bool `json:"distinctExtremes"`
}

// MonthView is what the monthly finance screen renders.
type MonthView struct {
	Year         int                    `json:"year"`
	Month        int                    `json:"month"`
	Transactions []FinancialTransaction `json:"transactions"`
	Aggregation  MonthlyAggregation     `json:"aggregation"`
}

// AllTime is the widest range a store can be asked for.
var AllTime = TimeRange{
	From: time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC),
	To:   time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC),
}

// TransactionRequest is the body of POST /v1/finance/transactions.
// Amount accepts integer cents or a masked string such as "1.234,56".
type TransactionRequest struct {
	Type        FlowType     `json:"type"`
	Amount      money.Amount `json:"amount"`
	Currency    string       `json:"currency,omitempty"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Date        *time.Time   `json:"date,omitempty"`
	Recurring   *Recurrence  `json:"recurring,omitempty"`
}

// TransactionPatchRequest is the body of PATCH /v1/finance/transactions/{id}.
type TransactionPatchRequest struct {
	Type        *FlowType     `json:"type,omitempty"`
	Amount      *money.Amount `json:"amount,omitempty"`
	Description *string       `json:"description,omitempty"`
	Category    *string       `json:"category,omitempty"`
	Date        *time.Time    `json:"date,omitempty"`
	Recurring   *Recurrence   `json:"recurring,omitempty"`
}

// Patch converts the request into a store patch stamped with now.
func (r TransactionPatchRequest) Patch(now time.Time) TransactionPatch {
	p := TransactionPatch{
		Type:        r.Type,
		Description: r.Description,
		Category:    r.Category,
		Date:        r.Date,
		Recurring:   r.Recurring,
		UpdatedAt:   &now,
	}
	if r.Amount != nil {
		cents := int64(*r.Amount)
		p.Amount = &cents
	}
	return p
}

// SeedResult reports what POST /v1/finance/seed did.
type SeedResult struct {
	Created int    `json:"created"`
	Message string `json:"message"`
}
