// Package aggregate derives monthly and yearly finance summaries from a
// list of transactions. Nothing here is persisted.
package aggregate

import (
	"time"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
)

// Month summarizes the transactions dated inside the given calendar
// month of loc. month is 1-12.
func Month(txs []domain.FinancialTransaction, year, month int, loc *time.Location) domain.MonthlyAggregation {
	r := domain.MonthRange(year, time.Month(month), loc)
	agg := domain.MonthlyAggregation{ByCategory: map[string]int64{}}

	for _, t := range txs {
		if !r.Contains(t.Date) {
			continue
		}
		agg.TransactionsCount++
		if t.Type == domain.Inflow {
			agg.Income += t.Amount
		} else {
			agg.Expense += t.Amount
		}
		if t.Category != "" {
			agg.ByCategory[t.Category] += t.Amount
		}
	}
	agg.Balance = agg.Income - agg.Expense
	return agg
}

// Year buckets the transactions of year by month in loc and picks the
// best and worst months by balance. Ties go to the earliest month for
// best and the latest month for worst.
func Year(txs []domain.FinancialTransaction, year int, loc *time.Location) domain.YearlyAggregation {
	var agg domain.YearlyAggregation
	for i := range agg.Months {
		agg.Months[i].Month = i + 1
	}

	r := domain.YearRange(year, loc)
	for _, t := range txs {
		if !r.Contains(t.Date) {
			continue
		}
		m := &agg.Months[t.Date.In(loc).Month()-1]
		if t.Type == domain.Inflow {
			m.Income += t.Amount
		} else {
			m.Expense += t.Amount
		}
	}

	best, worst := 0, 0
	for i := range agg.Months {
		m := &agg.Months[i]
		m.Balance = m.Income - m.Expense
		agg.TotalIncome += m.Income
		agg.TotalExpense += m.Expense

		if m.Balance > agg.Months[best].Balance {
			best = i
		}
		if m.Balance <= agg.Months[worst].Balance {
			worst = i
		}
	}

	agg.BestMonth = best + 1
	agg.WorstMonth = worst + 1
	agg.DistinctExtremes = agg.Months[best].Balance != agg.Months[worst].Balance
	return agg
}
