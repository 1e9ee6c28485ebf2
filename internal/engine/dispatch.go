package engine

import (
	"context"
	"fmt"

	"finquery/internal/core"
	"finquery/internal/store"
)

// Month policies decide what happens when a question resolves an
// entity but no time period.
const (
	// MonthClarify asks for the month (default).
	MonthClarify MonthPolicy = "clarify"
	// MonthAll answers over the full dataset with an empty month filter.
	MonthAll MonthPolicy = "all"
)

type (
	MonthPolicy string

	// MetricFunc is one deterministic metric: a pure function of the
	// store snapshot and the filter.
	MetricFunc func(ctx context.Context, q store.Querier, f core.Filter) (core.MetricResult, error)

	// Clarification identifies exactly which slot is missing instead of
	// guessing a default. This is the anti-hallucination path: the
	// dispatcher never fills a structured parameter on its own.
	Clarification struct {
		Missing  string
		Question string
	}

	// Dispatch is a validated routing decision: the metric to run and
	// the single Filter value that will drive both the metric and the
	// evidence selection.
	Dispatch struct {
		Intent     core.Intent
		FuncName   string
		Metric     MetricFunc
		Filter     core.Filter
		EntityName string
	}

	// Dispatcher maps intents to metric functions and validates the
	// required slots before any computation happens.
	Dispatcher struct {
		monthPolicy MonthPolicy
	}
)

func (p MonthPolicy) IsValid() bool {
	return p == MonthClarify || p == MonthAll
}

// dispatchEntry binds an intent to its metric and the slot it needs
// besides the month. The table is static: one function per intent.
type dispatchEntry struct {
	funcName string
	metric   MetricFunc
	bind     func(d *Dispatcher, e Entities, f *core.Filter) *Clarification
}

var dispatchTable = map[core.Intent]dispatchEntry{
	core.IntentMonthlySummary: {
		funcName: "monthly_totals",
		metric:   MonthlyExpenseTotal,
		bind: func(d *Dispatcher, e Entities, f *core.Filter) *Clarification {
			return nil
		},
	},
	core.IntentCategoryTotal: {
		funcName: "category_total",
		metric:   CategoryTotal,
		bind: func(d *Dispatcher, e Entities, f *core.Filter) *Clarification {
			m, ok := e.BestCategory()
			if !ok || !m.Known {
				return &Clarification{
					Missing:  "category",
					Question: "Which category are you interested in? (e.g., Food, Travel, Essentials)",
				}
			}
			f.Category = m.Value
			return nil
		},
	},
	core.IntentMerchantTotal: {
		funcName: "merchant_total",
		metric:   MerchantTotal,
		bind: func(d *Dispatcher, e Entities, f *core.Filter) *Clarification {
			m, ok := e.BestMerchant()
			if !ok {
				return &Clarification{
					Missing:  "merchant",
					Question: "Which merchant or store are you asking about? (e.g., 'at Target' or 'Uber')",
				}
			}
			if !m.Known {
				return &Clarification{
					Missing:  "merchant",
					Question: fmt.Sprintf("I couldn't find %q in your data. Which merchant or store are you asking about?", m.Value),
				}
			}
			f.Merchant = m.Value
			return nil
		},
	},
	core.IntentSourceTotal: {
		funcName: "source_total",
		metric:   SourceTotal,
		bind: func(d *Dispatcher, e Entities, f *core.Filter) *Clarification {
			m, ok := e.BestSource()
			if !ok || !m.Known {
				return &Clarification{
					Missing:  "source",
					Question: "Which source are you interested in? Please specify the payment source.",
				}
			}
			f.Source = m.Value
			return nil
		},
	},
}

func NewDispatcher(policy MonthPolicy) *Dispatcher {
	if !policy.IsValid() {
		policy = MonthClarify
	}
	return &Dispatcher{monthPolicy: policy}
}

// Dispatch validates the slots the intent requires and produces either
// a ready-to-run Dispatch or a Clarification. Pure routing: no store
// access, no side effects.
func (d *Dispatcher) Dispatch(intent core.Intent, e Entities) (*Dispatch, *Clarification) {
	if intent == core.IntentClarification {
		return nil, &Clarification{
			Missing: "intent",
			Question: "I can answer monthly summaries and category, merchant, or source totals. " +
				"Please include a month (YYYY-MM) and a category, merchant, or source.",
		}
	}

	entry, ok := dispatchTable[intent]
	if !ok {
		return nil, &Clarification{
			Missing:  "intent",
			Question: "I don't recognize that kind of question. Please ask about a monthly summary or a category, merchant, or source total.",
		}
	}

	// Totals answer spending questions; income shows up only in the
	// monthly summary numbers.
	f := core.Filter{Month: e.Month, Kind: core.Expense}

	if e.Month == "" {
		// The summary intent always needs a month; entity totals follow
		// the configured policy.
		if intent == core.IntentMonthlySummary || d.monthPolicy == MonthClarify {
			return nil, &Clarification{
				Missing:  "month",
				Question: "Please specify a month in YYYY-MM format (e.g., 2025-05).",
			}
		}
	}

	if c := entry.bind(d, e, &f); c != nil {
		return nil, c
	}

	disp := &Dispatch{
		Intent:   intent,
		FuncName: entry.funcName,
		Metric:   entry.metric,
		Filter:   f,
	}
	switch intent {
	case core.IntentCategoryTotal:
		disp.EntityName = f.Category
	case core.IntentMerchantTotal:
		disp.EntityName = f.Merchant
	case core.IntentSourceTotal:
		disp.EntityName = f.Source
	}
	return disp, nil
}
