package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func tx(month, category, merchant, source, amount string) Transaction {
	date, _ := time.Parse("2006-01", month)
	return Transaction{
		ID:        "t-" + category + "-" + merchant,
		Date:      date,
		YearMonth: month,
		Amount:    decimal.RequireFromString(amount),
		Merchant:  merchant,
		Category:  category,
		Source:    source,
	}
}

func TestFilterMatch(t *testing.T) {
	food := tx("2025-06", "Food", "Trader Joe's", "Amex", "12.40")
	refund := tx("2025-06", "Travel", "Delta", "Visa", "-80.00")

	tests := []struct {
		name   string
		filter Filter
		txn    Transaction
		want   bool
	}{
		{name: "empty filter matches everything", filter: Filter{}, txn: food, want: true},
		{name: "month match", filter: Filter{Month: "2025-06"}, txn: food, want: true},
		{name: "month mismatch", filter: Filter{Month: "2025-07"}, txn: food, want: false},
		{name: "category match", filter: Filter{Category: "Food"}, txn: food, want: true},
		{name: "category is case sensitive", filter: Filter{Category: "food"}, txn: food, want: false},
		{name: "merchant match", filter: Filter{Merchant: "Trader Joe's"}, txn: food, want: true},
		{name: "source mismatch", filter: Filter{Source: "Visa"}, txn: food, want: false},
		{name: "expense kind on positive amount", filter: Filter{Kind: Expense}, txn: food, want: true},
		{name: "expense kind excludes income", filter: Filter{Kind: Expense}, txn: refund, want: false},
		{name: "income kind on negative amount", filter: Filter{Kind: Income}, txn: refund, want: true},
		{
			name:   "all fields combine with AND",
			filter: Filter{Month: "2025-06", Category: "Food", Merchant: "Trader Joe's", Source: "Amex", Kind: Expense},
			txn:    food,
			want:   true,
		},
		{
			name:   "one mismatching field rejects",
			filter: Filter{Month: "2025-06", Category: "Food", Source: "Visa"},
			txn:    food,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.txn); got != tt.want {
				t.Errorf("Match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(decimal.RequireFromString("5.00")) != Expense {
		t.Error("positive amount should be expense")
	}
	if KindOf(decimal.RequireFromString("-5.00")) != Income {
		t.Error("negative amount should be income")
	}
	if KindOf(decimal.Zero) != Expense {
		t.Error("zero amount should classify as expense")
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "59.87", want: "$59.87"},
		{input: "0", want: "$0.00"},
		{input: "1234.5", want: "$1,234.50"},
		{input: "1234567.89", want: "$1,234,567.89"},
		{input: "-10", want: "-$10.00"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := FormatAmount(decimal.RequireFromString(tt.input))
			if got != tt.want {
				t.Errorf("FormatAmount(%s) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
