package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"finquery/internal/core"
	"finquery/internal/store"
)

// DefaultTopMerchants is how many merchants the summary ranks when the
// caller doesn't say.
const DefaultTopMerchants = 5

type (
	// MonthlySummary is the full report for one month: totals plus
	// breakdowns, all computed from the same store snapshot.
	MonthlySummary struct {
		Month        string         `json:"month"`
		Totals       SummaryTotals  `json:"totals"`
		ByCategory   []BreakdownRow `json:"by_category"`
		TopMerchants []MerchantRow  `json:"top_merchants"`
		BySource     []BreakdownRow `json:"by_source"`
	}

	SummaryTotals struct {
		ExpenseTotal     decimal.Decimal `json:"expense_total"`
		IncomeTotal      decimal.Decimal `json:"income_total"`
		NetTotal         decimal.Decimal `json:"net_total"`
		TransactionCount int             `json:"transaction_count"`
	}

	BreakdownRow struct {
		Name         string          `json:"name"`
		ExpenseTotal decimal.Decimal `json:"expense_total"`
	}

	MerchantRow struct {
		Where        string          `json:"where"`
		ExpenseTotal decimal.Decimal `json:"expense_total"`
		Count        int             `json:"count"`
	}
)

// Summarize builds the monthly report. Breakdowns cover expenses only,
// ordered by total descending.
func (e *Engine) Summarize(ctx context.Context, month string, topK int) (MonthlySummary, error) {
	if err := core.ValidateMonth(month); err != nil {
		return MonthlySummary{}, err
	}
	if topK <= 0 {
		topK = DefaultTopMerchants
	}

	f := core.Filter{Month: month, Kind: core.Expense}

	view, err := e.store.View(ctx)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("open dataset view: %w", err)
	}
	defer view.Close()

	totals, err := ComputeMonthlyTotals(ctx, view, f)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("monthly totals: %w", err)
	}

	byCategory, err := view.GroupTotals(ctx, f, store.ByCategory)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("category breakdown: %w", err)
	}
	byMerchant, err := view.GroupTotals(ctx, f, store.ByMerchant)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("merchant breakdown: %w", err)
	}
	bySource, err := view.GroupTotals(ctx, f, store.BySource)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("source breakdown: %w", err)
	}

	summary := MonthlySummary{
		Month: month,
		Totals: SummaryTotals{
			ExpenseTotal:     totals.Expense.Value,
			IncomeTotal:      totals.Income,
			NetTotal:         totals.Net,
			TransactionCount: totals.Count,
		},
		ByCategory:   breakdownRows(byCategory),
		BySource:     breakdownRows(bySource),
		TopMerchants: []MerchantRow{},
	}

	if len(byMerchant) > topK {
		byMerchant = byMerchant[:topK]
	}
	for _, g := range byMerchant {
		summary.TopMerchants = append(summary.TopMerchants, MerchantRow{
			Where:        g.Key,
			ExpenseTotal: g.Total.Value,
			Count:        g.Total.Count,
		})
	}

	return summary, nil
}

func breakdownRows(groups []store.GroupTotal) []BreakdownRow {
	rows := make([]BreakdownRow, len(groups))
	for i, g := range groups {
		rows[i] = BreakdownRow{Name: g.Key, ExpenseTotal: g.Total.Value}
	}
	return rows
}
