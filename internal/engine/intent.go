package engine

import "finquery/internal/core"

// Rule is one row of the intent priority table.
type Rule struct {
	Name   string
	Intent core.Intent
	When   func(Entities) bool
}

// Rules is the fixed priority table, evaluated top-down with first
// match winning. The order is the design: category is the most
// specific dimension, so it wins when a question names several
// entities at once. The table itself is the unit under test.
var Rules = []Rule{
	{
		Name:   "category entity present",
		Intent: core.IntentCategoryTotal,
		When:   func(e Entities) bool { _, ok := e.BestCategory(); return ok },
	},
	{
		Name:   "merchant entity present",
		Intent: core.IntentMerchantTotal,
		When:   func(e Entities) bool { _, ok := e.BestMerchant(); return ok },
	},
	{
		Name:   "source entity present",
		Intent: core.IntentSourceTotal,
		When:   func(e Entities) bool { _, ok := e.BestSource(); return ok },
	},
	{
		Name:   "month only",
		Intent: core.IntentMonthlySummary,
		When:   func(e Entities) bool { return e.Month != "" },
	},
	{
		Name:   "nothing resolvable",
		Intent: core.IntentClarification,
		When:   func(Entities) bool { return true },
	},
}

// ResolveIntent walks the priority table and returns the first
// matching intent. The final rule always matches, so every input
// classifies.
func ResolveIntent(e Entities) core.Intent {
	for _, r := range Rules {
		if r.When(e) {
			return r.Intent
		}
	}
	return core.IntentClarification
}
