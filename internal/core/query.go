package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	IntentMonthlySummary Intent = "monthly_summary"
	IntentCategoryTotal  Intent = "category_total"
	IntentMerchantTotal  Intent = "merchant_total"
	IntentSourceTotal    Intent = "source_total"
	IntentClarification  Intent = "clarification_needed"
)

type (
	// Intent is the closed-set classification of what a question asks for.
	Intent string

	// MetricResult is the output of one metric function: a pure function
	// of the store snapshot and the filter it carries.
	MetricResult struct {
		Value   decimal.Decimal
		Count   int
		Filters Filter
	}

	// EvidenceRow is one transaction justifying a computed answer, in
	// the wire shape of the query response.
	EvidenceRow struct {
		TransactionID string          `json:"transaction_id"`
		Date          string          `json:"date"`
		Where         string          `json:"where"`
		What          string          `json:"what"`
		Amount        decimal.Decimal `json:"amount"`
		Category      string          `json:"category"`
		Source        string          `json:"source"`
	}

	// Trace records how an answer was derived. Strictly an audit record:
	// nothing in it is computed, only collected.
	Trace struct {
		Intent                Intent   `json:"intent"`
		ResolvedMonth         string   `json:"resolved_month"`
		CalledFunctions       []string `json:"called_functions"`
		FiltersUsed           Filter   `json:"filters_used"`
		EvidenceCountReturned int      `json:"evidence_count_returned"`
	}

	// Response is the terminal result of one query. Exactly one of
	// FinalAnswer and ClarifyingQuestion is set.
	Response struct {
		FinalAnswer        *string                    `json:"final_answer"`
		ClarifyingQuestion *string                    `json:"clarifying_question"`
		Numbers            map[string]decimal.Decimal `json:"numbers,omitempty"`
		Evidence           []EvidenceRow              `json:"evidence"`
		Trace              Trace                      `json:"trace"`
	}
)

func (i Intent) String() string { return string(i) }

// EvidenceRowOf converts a transaction into its response shape.
func EvidenceRowOf(t Transaction) EvidenceRow {
	return EvidenceRow{
		TransactionID: t.ID,
		Date:          t.Date.Format("2006-01-02"),
		Where:         t.Merchant,
		What:          t.What,
		Amount:        t.Amount,
		Category:      t.Category,
		Source:        t.Source,
	}
}

// FormatAmount renders an amount as a dollar string with thousands
// separators, e.g. "$1,234.56". Used only for templated answer text;
// numeric fields always carry the decimal value itself.
func FormatAmount(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	out := "$" + b.String() + "." + fracPart
	if neg {
		return "-" + out
	}
	return out
}
