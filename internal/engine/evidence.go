package engine

import (
	"context"

	"finquery/internal/core"
	"finquery/internal/store"
)

// SelectEvidence retrieves the rows justifying a metric result. It
// takes the identical Filter value the metric ran with; the store's
// shared predicate guarantees both see the same rows. Ordering is date
// descending with id as tie-break, truncated to limit. The truncation
// never affects the metric's value or count, which reflect the full
// matching set.
func SelectEvidence(ctx context.Context, q store.Querier, f core.Filter, limit int) ([]core.EvidenceRow, error) {
	txns, err := q.Select(ctx, f, limit)
	if err != nil {
		return nil, err
	}

	rows := make([]core.EvidenceRow, len(txns))
	for i, t := range txns {
		rows[i] = core.EvidenceRowOf(t)
	}
	return rows, nil
}
