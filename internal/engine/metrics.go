package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"finquery/internal/core"
	"finquery/internal/store"
)

// Metric functions. Each is total over its domain: an empty matching
// set yields value 0 and count 0, never an error. All of them delegate
// to the store's single aggregate, so the filter semantics live in
// exactly one place per backend.

// CategoryTotal sums expenses for a category filter.
func CategoryTotal(ctx context.Context, q store.Querier, f core.Filter) (core.MetricResult, error) {
	return q.Aggregate(ctx, f)
}

// MerchantTotal sums expenses for a merchant filter.
func MerchantTotal(ctx context.Context, q store.Querier, f core.Filter) (core.MetricResult, error) {
	return q.Aggregate(ctx, f)
}

// SourceTotal sums expenses for a source filter.
func SourceTotal(ctx context.Context, q store.Querier, f core.Filter) (core.MetricResult, error) {
	return q.Aggregate(ctx, f)
}

// MonthlyExpenseTotal is the headline metric of the monthly summary:
// expenses over the month, with the same filter the evidence uses.
func MonthlyExpenseTotal(ctx context.Context, q store.Querier, f core.Filter) (core.MetricResult, error) {
	return q.Aggregate(ctx, f)
}

// MonthlyTotals carries the extra numbers the monthly summary reports
// beyond its headline expense total.
type MonthlyTotals struct {
	Expense core.MetricResult
	Income  decimal.Decimal
	Net     decimal.Decimal
	Count   int // every transaction of the month, both kinds
}

// ComputeMonthlyTotals aggregates expense, income, and net for the
// month of the given filter. The expense leg reuses the filter as-is.
func ComputeMonthlyTotals(ctx context.Context, q store.Querier, f core.Filter) (MonthlyTotals, error) {
	expense, err := q.Aggregate(ctx, f)
	if err != nil {
		return MonthlyTotals{}, err
	}

	incomeFilter := f
	incomeFilter.Kind = core.Income
	income, err := q.Aggregate(ctx, incomeFilter)
	if err != nil {
		return MonthlyTotals{}, err
	}

	allFilter := f
	allFilter.Kind = ""
	all, err := q.Aggregate(ctx, allFilter)
	if err != nil {
		return MonthlyTotals{}, err
	}

	return MonthlyTotals{
		Expense: expense,
		Income:  income.Value,
		Net:     all.Value,
		Count:   all.Count,
	}, nil
}
