package store

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"finquery/internal/core"
)

// MemoryStore keeps the active dataset as an immutable snapshot behind
// an atomic pointer. Replace builds a complete new snapshot and
// publishes it with a single store, so in-flight queries keep reading
// the snapshot they pinned and never see a half-replaced dataset.
type MemoryStore struct {
	current atomic.Pointer[snapshot]
}

type snapshot struct {
	ingestID string
	rows     []core.Transaction // sorted by date desc, id asc
	vocab    core.Vocabulary
}

// snapshotView pins one snapshot; every read goes against it, so a
// replace landing mid-request cannot change what the request sees.
type snapshotView struct {
	snap *snapshot
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.current.Store(buildSnapshot("", nil))
	return s
}

func buildSnapshot(ingestID string, rows []core.Transaction) *snapshot {
	sorted := make([]core.Transaction, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].ID < sorted[j].ID
	})

	return &snapshot{
		ingestID: ingestID,
		rows:     sorted,
		vocab: core.Vocabulary{
			Categories: distinct(sorted, func(t core.Transaction) string { return t.Category }),
			Merchants:  distinct(sorted, func(t core.Transaction) string { return t.Merchant }),
			Sources:    distinct(sorted, func(t core.Transaction) string { return t.Source }),
		},
	}
}

func distinct(rows []core.Transaction, field func(core.Transaction) string) []string {
	seen := make(map[string]struct{})
	var values []string
	for _, t := range rows {
		v := field(t)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// Replace publishes a new snapshot. The old one stays valid for
// readers that already pinned it.
func (s *MemoryStore) Replace(ctx context.Context, ingestID string, rows []core.Transaction) error {
	next := buildSnapshot(ingestID, rows)
	s.current.Store(next)
	slog.InfoContext(ctx, "Dataset replaced",
		"ingest_id", ingestID,
		"rows", len(next.rows))
	return nil
}

// View pins the current snapshot for the duration of a request.
func (s *MemoryStore) View(ctx context.Context) (View, error) {
	return &snapshotView{snap: s.current.Load()}, nil
}

// Standalone reads pin a fresh snapshot per call.

func (s *MemoryStore) Aggregate(ctx context.Context, f core.Filter) (core.MetricResult, error) {
	return (&snapshotView{snap: s.current.Load()}).Aggregate(ctx, f)
}

func (s *MemoryStore) Select(ctx context.Context, f core.Filter, limit int) ([]core.Transaction, error) {
	return (&snapshotView{snap: s.current.Load()}).Select(ctx, f, limit)
}

func (s *MemoryStore) GroupTotals(ctx context.Context, f core.Filter, by Dimension) ([]GroupTotal, error) {
	return (&snapshotView{snap: s.current.Load()}).GroupTotals(ctx, f, by)
}

func (s *MemoryStore) Vocabulary(ctx context.Context) (core.Vocabulary, error) {
	return s.current.Load().vocab, nil
}

func (s *MemoryStore) Close() error { return nil }

func (v *snapshotView) Aggregate(ctx context.Context, f core.Filter) (core.MetricResult, error) {
	sum := decimal.Zero
	count := 0
	for _, t := range v.snap.rows {
		if !f.Match(t) {
			continue
		}
		sum = sum.Add(t.Amount)
		count++
	}

	return core.MetricResult{Value: sum.Round(2), Count: count, Filters: f}, nil
}

func (v *snapshotView) Select(ctx context.Context, f core.Filter, limit int) ([]core.Transaction, error) {
	var rows []core.Transaction
	for _, t := range v.snap.rows {
		if !f.Match(t) {
			continue
		}
		rows = append(rows, t)
		if limit >= 0 && len(rows) == limit {
			break
		}
	}
	return rows, nil
}

func (v *snapshotView) GroupTotals(ctx context.Context, f core.Filter, by Dimension) ([]GroupTotal, error) {
	key := func(t core.Transaction) string {
		switch by {
		case ByCategory:
			return t.Category
		case ByMerchant:
			return t.Merchant
		case BySource:
			return t.Source
		}
		return ""
	}

	sums := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, t := range v.snap.rows {
		if !f.Match(t) {
			continue
		}
		k := key(t)
		if k == "" {
			continue
		}
		sums[k] = sums[k].Add(t.Amount)
		counts[k]++
	}

	groups := make([]GroupTotal, 0, len(sums))
	for k, sum := range sums {
		groups = append(groups, GroupTotal{
			Key:   k,
			Total: core.MetricResult{Value: sum.Round(2), Count: counts[k], Filters: f},
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].Total.Value.Equal(groups[j].Total.Value) {
			return groups[i].Total.Value.GreaterThan(groups[j].Total.Value)
		}
		return groups[i].Key < groups[j].Key
	})
	return groups, nil
}

func (v *snapshotView) Vocabulary(ctx context.Context) (core.Vocabulary, error) {
	return v.snap.vocab, nil
}

func (v *snapshotView) Close() error { return nil }
