package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense Kind = "expense"
	Income  Kind = "income"
)

type (
	// Kind splits transactions by sign: positive amounts are expenses,
	// negative amounts are income/settlements.
	Kind string

	// Transaction is an immutable row of the active dataset. Rows are
	// created only by ingestion and replaced wholesale, never mutated.
	Transaction struct {
		ID        string
		IngestID  string
		Date      time.Time
		YearMonth string // "YYYY-MM", derived from Date
		Amount    decimal.Decimal
		Merchant  string // "Where?" CSV column
		What      string // "What?" CSV column
		Category  string
		Source    string
	}

	// Filter is the shared constraint set. The same Filter value drives
	// both metric computation and evidence retrieval for a request; the
	// single Match predicate below is the only place filter semantics
	// are defined.
	Filter struct {
		Month    string `json:"month,omitempty"`
		Category string `json:"category,omitempty"`
		Merchant string `json:"merchant,omitempty"`
		Source   string `json:"source,omitempty"`
		Kind     Kind   `json:"kind,omitempty"`
	}

	// Vocabulary is the distinct set of entity values present in the
	// active dataset, used for entity extraction.
	Vocabulary struct {
		Categories []string
		Merchants  []string
		Sources    []string
	}
)

var (
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

func (k Kind) IsValid() bool {
	return k == Expense || k == Income
}

// KindOf classifies an amount by sign. Zero counts as expense so the
// expense/income split covers every row.
func KindOf(amount decimal.Decimal) Kind {
	if amount.IsNegative() {
		return Income
	}
	return Expense
}

// Match reports whether t satisfies every non-empty field of f. Fields
// combine with logical AND; month matches the calendar month of the
// transaction date, every other field is exact equality.
func (f Filter) Match(t Transaction) bool {
	if f.Month != "" && t.YearMonth != f.Month {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Merchant != "" && t.Merchant != f.Merchant {
		return false
	}
	if f.Source != "" && t.Source != f.Source {
		return false
	}
	if f.Kind != "" && KindOf(t.Amount) != f.Kind {
		return false
	}
	return true
}
