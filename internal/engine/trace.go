package engine

import "finquery/internal/core"

// TraceBuilder assembles the audit record of one query. Strictly a
// recorder: it computes nothing.
type TraceBuilder struct {
	trace core.Trace
}

func NewTraceBuilder() *TraceBuilder {
	return &TraceBuilder{trace: core.Trace{CalledFunctions: []string{}}}
}

func (b *TraceBuilder) Intent(i core.Intent) *TraceBuilder {
	b.trace.Intent = i
	return b
}

func (b *TraceBuilder) Month(month string) *TraceBuilder {
	b.trace.ResolvedMonth = month
	return b
}

func (b *TraceBuilder) Filters(f core.Filter) *TraceBuilder {
	b.trace.FiltersUsed = f
	return b
}

// Called appends a function name in invocation order.
func (b *TraceBuilder) Called(name string) *TraceBuilder {
	b.trace.CalledFunctions = append(b.trace.CalledFunctions, name)
	return b
}

func (b *TraceBuilder) EvidenceCount(n int) *TraceBuilder {
	b.trace.EvidenceCountReturned = n
	return b
}

func (b *TraceBuilder) Build() core.Trace {
	return b.trace
}
