package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finquery/internal/core"
)

func txn(id, date, category, merchant, source, amount string) core.Transaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		ID:        id,
		Date:      d,
		YearMonth: core.MonthOf(d),
		Amount:    decimal.RequireFromString(amount),
		Merchant:  merchant,
		What:      "test row " + id,
		Category:  category,
		Source:    source,
	}
}

func juneDataset() []core.Transaction {
	return []core.Transaction{
		txn("a1", "2025-06-02", "Food", "Trader Joe's", "Amex", "10.00"),
		txn("a2", "2025-06-05", "Food", "Safeway", "Visa", "20.50"),
		txn("a3", "2025-06-09", "Travel", "Delta", "Amex", "250.00"),
		txn("a4", "2025-06-12", "Food", "Safeway", "Amex", "4.25"),
		txn("a5", "2025-06-20", "Food", "Trader Joe's", "Visa", "-3.00"),
		txn("a6", "2025-07-01", "Food", "Safeway", "Visa", "9.99"),
	}
}

func seededStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	if err := s.Replace(context.Background(), "ingest-1", juneDataset()); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	return s
}

func TestMemoryStoreAggregateAndSelectShareFilterSemantics(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	f := core.Filter{Month: "2025-06", Category: "Food", Kind: core.Expense}

	result, err := s.Aggregate(ctx, f)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if want := "34.75"; result.Value.String() != want {
		t.Errorf("Aggregate value = %s, want %s", result.Value, want)
	}
	if result.Count != 3 {
		t.Errorf("Aggregate count = %d, want 3", result.Count)
	}

	rows, err := s.Select(ctx, f, -1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != result.Count {
		t.Fatalf("Select returned %d rows, aggregate count is %d", len(rows), result.Count)
	}

	// Consistency invariant: evidence sums to the reported value exactly.
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Amount)
	}
	if !sum.Equal(result.Value) {
		t.Errorf("sum of selected rows = %s, aggregate value = %s", sum, result.Value)
	}
}

func TestMemoryStoreSelectOrderAndLimit(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	rows, err := s.Select(ctx, core.Filter{Month: "2025-06"}, -1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("Select returned %d rows, want 5", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Date.After(rows[i-1].Date) {
			t.Errorf("rows not ordered by date descending at index %d", i)
		}
	}
	if rows[0].ID != "a5" {
		t.Errorf("most recent row = %s, want a5", rows[0].ID)
	}

	limited, err := s.Select(ctx, core.Filter{Month: "2025-06"}, 2)
	if err != nil {
		t.Fatalf("Select limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited Select returned %d rows, want 2", len(limited))
	}
}

func TestMemoryStoreEmptyMatchIsZeroNotError(t *testing.T) {
	s := seededStore(t)

	result, err := s.Aggregate(context.Background(), core.Filter{Month: "2024-01"})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !result.Value.IsZero() || result.Count != 0 {
		t.Errorf("empty match = (%s, %d), want (0, 0)", result.Value, result.Count)
	}
}

func TestMemoryStoreVocabulary(t *testing.T) {
	s := seededStore(t)

	vocab, err := s.Vocabulary(context.Background())
	if err != nil {
		t.Fatalf("Vocabulary: %v", err)
	}

	wantCategories := []string{"Food", "Travel"}
	if len(vocab.Categories) != len(wantCategories) {
		t.Fatalf("categories = %v, want %v", vocab.Categories, wantCategories)
	}
	for i, c := range wantCategories {
		if vocab.Categories[i] != c {
			t.Errorf("categories[%d] = %s, want %s", i, vocab.Categories[i], c)
		}
	}
	if len(vocab.Merchants) != 3 {
		t.Errorf("merchants = %v, want 3 distinct", vocab.Merchants)
	}
	if len(vocab.Sources) != 2 {
		t.Errorf("sources = %v, want 2 distinct", vocab.Sources)
	}
}

func TestMemoryStoreGroupTotals(t *testing.T) {
	s := seededStore(t)

	groups, err := s.GroupTotals(context.Background(), core.Filter{Month: "2025-06", Kind: core.Expense}, ByCategory)
	if err != nil {
		t.Fatalf("GroupTotals: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if groups[0].Key != "Travel" || groups[0].Total.Value.String() != "250" {
		t.Errorf("top group = %s %s, want Travel 250", groups[0].Key, groups[0].Total.Value)
	}
	if groups[1].Key != "Food" || groups[1].Total.Value.String() != "34.75" {
		t.Errorf("second group = %s %s, want Food 34.75", groups[1].Key, groups[1].Total.Value)
	}
}

// A view opened before a replace keeps serving the snapshot it pinned
// for every kind of read, so a multi-read request stays consistent.
func TestMemoryStoreViewPinsSnapshot(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	view, err := s.View(ctx)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	defer view.Close()

	if err := s.Replace(ctx, "ingest-2", nil); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	f := core.Filter{Month: "2025-06", Category: "Food", Kind: core.Expense}
	result, err := view.Aggregate(ctx, f)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if result.Value.String() != "34.75" || result.Count != 3 {
		t.Errorf("pinned aggregate = (%s, %d), want (34.75, 3)", result.Value, result.Count)
	}

	rows, err := view.Select(ctx, f, -1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("pinned select = %d rows, want 3", len(rows))
	}

	vocab, err := view.Vocabulary(ctx)
	if err != nil {
		t.Fatalf("Vocabulary: %v", err)
	}
	if len(vocab.Categories) != 2 {
		t.Errorf("pinned vocabulary = %v, want the seeded categories", vocab.Categories)
	}

	// A fresh read outside the view sees the replacement.
	after, err := s.Aggregate(ctx, f)
	if err != nil {
		t.Fatalf("Aggregate after replace: %v", err)
	}
	if !after.Value.IsZero() || after.Count != 0 {
		t.Errorf("store aggregate = (%s, %d), want (0, 0)", after.Value, after.Count)
	}
}

// Readers must observe the fully-old or fully-new dataset during a
// replace, never a mix.
func TestMemoryStoreReplaceAtomicity(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	old := []core.Transaction{
		txn("o1", "2025-05-01", "Food", "A", "Amex", "1.00"),
		txn("o2", "2025-05-02", "Food", "A", "Amex", "1.00"),
	}
	next := []core.Transaction{
		txn("n1", "2025-05-03", "Food", "B", "Visa", "5.00"),
		txn("n2", "2025-05-04", "Food", "B", "Visa", "5.00"),
		txn("n3", "2025-05-05", "Food", "B", "Visa", "5.00"),
	}
	if err := s.Replace(ctx, "old", old); err != nil {
		t.Fatalf("Replace old: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan string, 256)
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				r, err := s.Aggregate(ctx, core.Filter{Month: "2025-05"})
				if err != nil {
					t.Errorf("Aggregate: %v", err)
					return
				}
				select {
				case results <- r.Value.String():
				default:
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		if err := s.Replace(ctx, "next", next); err != nil {
			t.Fatalf("Replace next: %v", err)
		}
		if err := s.Replace(ctx, "old", old); err != nil {
			t.Fatalf("Replace old: %v", err)
		}
	}
	close(stop)
	wg.Wait()
	close(results)

	for v := range results {
		if v != "2" && v != "15" {
			t.Fatalf("observed mixed dataset total %s, want 2 or 15", v)
		}
	}
}
