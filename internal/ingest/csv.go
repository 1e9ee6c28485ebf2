// Package ingest parses transaction CSV exports into the normalized
// form the store accepts. A parse failure on any row aborts the whole
// ingest so a replace never happens with partial data.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"finquery/internal/core"
)

// RequiredColumns is the exact header the CSV export carries, in any
// order but case sensitive.
var RequiredColumns = []string{"Date", "Amount", "Where?", "What?", "Category", "Source"}

// SignConventionNote documents the amount convention of the source data.
const SignConventionNote = "Sign convention: expenses are positive numbers, income/settlements are negative numbers."

// Result summarizes a completed parse.
type Result struct {
	IngestID       string    `json:"ingest_id"`
	RowCount       int       `json:"row_count"`
	DateRange      DateRange `json:"date_range"`
	CategoriesSeen []string  `json:"categories_seen"`
	SourcesSeen    []string  `json:"sources_seen"`
	Notes          string    `json:"notes"`
}

type DateRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// Parse reads a CSV stream and normalizes every row into a Transaction.
// Errors carry the 1-based data row number for debugging.
func Parse(r io.Reader) ([]core.Transaction, *Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty CSV: missing header row")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read CSV header: %w", err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, nil, err
	}

	ingestID := uuid.NewString()
	result := &Result{IngestID: ingestID, Notes: SignConventionNote}

	var (
		txns       []core.Transaction
		categories = map[string]struct{}{}
		sources    = map[string]struct{}{}
	)

	for rowNum := 1; ; rowNum++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: read CSV record: %w", rowNum, err)
		}

		t, err := normalizeRow(record, index, ingestID)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		txns = append(txns, t)

		if t.Category != "" {
			if _, seen := categories[t.Category]; !seen {
				categories[t.Category] = struct{}{}
				result.CategoriesSeen = append(result.CategoriesSeen, t.Category)
			}
		}
		if t.Source != "" {
			if _, seen := sources[t.Source]; !seen {
				sources[t.Source] = struct{}{}
				result.SourcesSeen = append(result.SourcesSeen, t.Source)
			}
		}

		d := t.Date.Format("2006-01-02")
		if result.DateRange.Min == "" || d < result.DateRange.Min {
			result.DateRange.Min = d
		}
		if d > result.DateRange.Max {
			result.DateRange.Max = d
		}
	}

	result.RowCount = len(txns)
	return txns, result, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns %v (found %v; required, case sensitive: %v)",
			missing, header, RequiredColumns)
	}
	return index, nil
}

func normalizeRow(record []string, index map[string]int, ingestID string) (core.Transaction, error) {
	field := func(name string) string {
		i := index[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, err := core.ParseDate(field("Date"))
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(field("Amount"))
	if err != nil {
		return core.Transaction{}, err
	}

	return core.Transaction{
		ID:        uuid.NewString(),
		IngestID:  ingestID,
		Date:      date,
		YearMonth: core.MonthOf(date),
		Amount:    amount,
		Merchant:  field("Where?"),
		What:      field("What?"),
		Category:  field("Category"),
		Source:    field("Source"),
	}, nil
}
