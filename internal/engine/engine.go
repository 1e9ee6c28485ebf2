// Package engine implements the deterministic query pipeline: entity
// extraction, intent resolution, metric dispatch, evidence selection,
// and response assembly. No generative step touches a number; every
// figure in a response is computed from the store snapshot and one
// shared Filter value.
package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"finquery/internal/core"
	applog "finquery/internal/log"
	"finquery/internal/store"
)

// DefaultEvidenceLimit caps returned evidence rows when the caller
// doesn't ask for a specific limit.
const DefaultEvidenceLimit = 20

type (
	// Request is one query against the active dataset. Month, when set,
	// overrides any month parsed from the question text.
	Request struct {
		Question      string
		Month         string
		LimitEvidence int
	}

	// Engine wires the pipeline components around a store. Stateless
	// per request: concurrent queries need no coordination. Each request
	// opens one store view, so all of its reads observe the same
	// dataset snapshot.
	Engine struct {
		store      store.Viewer
		dispatcher *Dispatcher
		log        *applog.Logger
	}

	Options struct {
		MonthPolicy MonthPolicy
		Logger      *applog.Logger
	}
)

func New(st store.Viewer, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Component: "engine"})
	}
	return &Engine{
		store:      st,
		dispatcher: NewDispatcher(opts.MonthPolicy),
		log:        logger,
	}
}

// Query runs the full pipeline for one request. Linguistic anomalies
// (no intent, missing slot, unknown entity) terminate in a
// clarification response; only store failures return an error.
func (e *Engine) Query(ctx context.Context, req Request) (core.Response, error) {
	limit := req.LimitEvidence
	if limit <= 0 {
		limit = DefaultEvidenceLimit
	}

	if req.Month != "" {
		if err := core.ValidateMonth(req.Month); err != nil {
			return clarificationResponse(NewTraceBuilder().Intent(core.IntentClarification),
				fmt.Sprintf("Invalid month %q. Please use YYYY-MM format (e.g., 2025-05).", req.Month)), nil
		}
	}

	view, err := e.store.View(ctx)
	if err != nil {
		return core.Response{}, fmt.Errorf("open dataset view: %w", err)
	}
	defer view.Close()

	vocab, err := view.Vocabulary(ctx)
	if err != nil {
		return core.Response{}, fmt.Errorf("read vocabulary: %w", err)
	}

	entities := ResolveEntities(req.Question, vocab)
	if req.Month != "" {
		// Explicit parameter always wins over text extraction.
		entities.Month = req.Month
	}

	intent := ResolveIntent(entities)
	trace := NewTraceBuilder().Intent(intent).Month(entities.Month)

	trace.Called("dispatch_intent")
	dispatch, clar := e.dispatcher.Dispatch(intent, entities)
	if clar != nil {
		e.log.DebugContext(ctx, "Query needs clarification",
			"intent", intent,
			"missing", clar.Missing)
		return clarificationResponse(trace, clar.Question), nil
	}

	trace.Filters(dispatch.Filter)

	// Metric and evidence run concurrently off the same Filter value
	// against the same pinned view; the shared predicate keeps them
	// consistent by construction.
	var (
		result   core.MetricResult
		totals   MonthlyTotals
		evidence []core.EvidenceRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if dispatch.Intent == core.IntentMonthlySummary {
			totals, err = ComputeMonthlyTotals(gctx, view, dispatch.Filter)
			result = totals.Expense
			return err
		}
		result, err = dispatch.Metric(gctx, view, dispatch.Filter)
		return err
	})
	g.Go(func() error {
		var err error
		evidence, err = SelectEvidence(gctx, view, dispatch.Filter, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Response{}, fmt.Errorf("compute %s: %w", dispatch.FuncName, err)
	}

	trace.Called(dispatch.FuncName).Called("select_evidence").EvidenceCount(len(evidence))

	resp := assemble(dispatch, result, totals, evidence, trace)
	e.log.InfoContext(ctx, "Query answered",
		"intent", dispatch.Intent,
		"month", dispatch.Filter.Month,
		"value", result.Value.String(),
		"count", result.Count,
		"evidence_returned", len(evidence))
	return resp, nil
}

func clarificationResponse(trace *TraceBuilder, question string) core.Response {
	return core.Response{
		ClarifyingQuestion: &question,
		Evidence:           []core.EvidenceRow{},
		Trace:              trace.EvidenceCount(0).Build(),
	}
}

// assemble composes the final response strictly from already-computed
// values. The sentence is a template; it never introduces a figure
// that isn't in the numbers map.
func assemble(d *Dispatch, result core.MetricResult, totals MonthlyTotals, evidence []core.EvidenceRow, trace *TraceBuilder) core.Response {
	if evidence == nil {
		evidence = []core.EvidenceRow{}
	}

	var answer string
	numbers := map[string]decimal.Decimal{}

	if d.Intent == core.IntentMonthlySummary {
		numbers["expense_total"] = totals.Expense.Value
		numbers["income_total"] = totals.Income
		numbers["net_total"] = totals.Net
		numbers["transaction_count"] = decimal.NewFromInt(int64(totals.Count))
		answer = fmt.Sprintf("In %s, you spent %s across %d transactions. Net total: %s.",
			d.Filter.Month, core.FormatAmount(totals.Expense.Value), totals.Count, core.FormatAmount(totals.Net))
	} else {
		numbers["total"] = result.Value
		numbers["count"] = decimal.NewFromInt(int64(result.Count))
		phrase := spendPhrase(d.Intent, d.EntityName)
		if d.Filter.Month != "" {
			answer = fmt.Sprintf("You spent %s %s in %s across %d transactions.",
				core.FormatAmount(result.Value), phrase, d.Filter.Month, result.Count)
		} else {
			answer = fmt.Sprintf("You spent %s %s across %d transactions (all time).",
				core.FormatAmount(result.Value), phrase, result.Count)
		}
	}

	return core.Response{
		FinalAnswer: &answer,
		Numbers:     numbers,
		Evidence:    evidence,
		Trace:       trace.Build(),
	}
}

func spendPhrase(intent core.Intent, entity string) string {
	switch intent {
	case core.IntentCategoryTotal:
		return "on " + entity
	case core.IntentMerchantTotal:
		return "at " + entity
	case core.IntentSourceTotal:
		return "using " + entity
	}
	return ""
}
