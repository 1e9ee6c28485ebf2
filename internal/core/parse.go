package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayout matches the export format of the source CSV, e.g. "Sat, 24 Jun 2025".
const dateLayout = "Mon, 2 Jan 2006"

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ParseAmount parses a monetary string into a two-decimal amount.
// Accepts "$6.15", "6.15", "-$10.00" and "$1,234.56". The sign is
// preserved as given: positive means expense, negative means income.
func ParseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}

	cleaned := strings.NewReplacer("$", "", ",", "").Replace(value)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: %q contains no numeric value", ErrInvalidAmount, value)
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q (expected e.g. '$6.15' or '-10.00')", ErrInvalidAmount, value)
	}
	return amount.Round(2), nil
}

// ParseDate parses a date in the "Sat, 24 Jun 2025" format.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidDate)
	}

	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (expected e.g. 'Sat, 24 Jun 2025')", ErrInvalidDate, value)
	}
	return t, nil
}

// MonthOf derives the "YYYY-MM" key of a date.
func MonthOf(t time.Time) string {
	return t.Format("2006-01")
}

// ValidateMonth checks the "YYYY-MM" format with a month between 01 and 12.
func ValidateMonth(month string) error {
	if !monthPattern.MatchString(month) {
		return fmt.Errorf("%w: %q (expected 'YYYY-MM', e.g. '2025-05')", ErrInvalidMonth, month)
	}
	m, err := strconv.Atoi(month[5:])
	if err != nil || m < 1 || m > 12 {
		return fmt.Errorf("%w: %q (month must be between 01 and 12)", ErrInvalidMonth, month)
	}
	return nil
}
