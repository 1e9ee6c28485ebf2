package store

import (
	"context"
	"errors"

	"finquery/internal/core"
)

// Dimensions a grouped total can be computed over.
const (
	ByCategory Dimension = "category"
	ByMerchant Dimension = "merchant"
	BySource   Dimension = "source"
)

// ErrUnavailable is returned when the datastore cannot serve a request.
// It propagates to the caller as a retryable failure; the engine never
// retries on its own.
var ErrUnavailable = errors.New("store unavailable")

type (
	Dimension string

	// GroupTotal is one row of a grouped aggregation, ordered by total
	// descending with the key as tie-break.
	GroupTotal struct {
		Key   string
		Total core.MetricResult
	}

	// Querier answers read queries against the active dataset. Both the
	// aggregate and the row selection for one request must be driven by
	// the same Filter value.
	Querier interface {
		// Aggregate sums the amounts of every matching row. An empty
		// match yields value 0 and count 0, not an error.
		Aggregate(ctx context.Context, f core.Filter) (core.MetricResult, error)

		// Select returns matching rows ordered by date descending, id
		// ascending, truncated to limit. limit < 0 means no truncation.
		Select(ctx context.Context, f core.Filter, limit int) ([]core.Transaction, error)

		// GroupTotals aggregates matching rows per distinct value of the
		// given dimension. Rows with an empty dimension value are skipped.
		GroupTotals(ctx context.Context, f core.Filter, by Dimension) ([]GroupTotal, error)
	}

	// VocabularyReader exposes the distinct entity values of the active
	// dataset for entity extraction.
	VocabularyReader interface {
		Vocabulary(ctx context.Context) (core.Vocabulary, error)
	}

	// View is a consistent read view pinned to one dataset snapshot.
	// Every read through a View observes the same dataset even when a
	// replace-ingestion lands mid-request. Close releases the view.
	View interface {
		Querier
		VocabularyReader
		Close() error
	}

	// Viewer opens a View per request. A request performs all of its
	// reads through one View so its answer never mixes datasets.
	Viewer interface {
		View(ctx context.Context) (View, error)
	}

	// Replacer substitutes the entire active dataset. The swap must be
	// atomic: concurrent readers observe the fully-old or fully-new
	// dataset, never a partially-cleared state.
	Replacer interface {
		Replace(ctx context.Context, ingestID string, rows []core.Transaction) error
	}

	// Store is the full datastore contract consumed by the engine and
	// the ingestion handler.
	Store interface {
		Querier
		VocabularyReader
		Viewer
		Replacer
		Close() error
	}
)
