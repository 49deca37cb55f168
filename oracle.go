package codedoc

import "context"

// AnalysisRequest is the input to one oracle call.
type AnalysisRequest struct {
	Unit    *Unit
	Context *ContextSet

	// PromptTemplate overrides the oracle's default prompt shape when
	// non-empty. Templates receive the unit and context via text/template.
	PromptTemplate string
}

// Analysis is the oracle's raw output for one unit.
type Analysis struct {
	// Explanation is the natural-language documentation text.
	Explanation string

	// References holds IDs of other units the explanation mentions,
	// extracted by the oracle client from known symbols.
	References []string
}

// Oracle is the external LLM inference capability. The core never constructs
// the transport itself; an Oracle is injected. Implementations classify
// failures via error codes: ETIMEOUT and EUNAVAILABLE are retryable,
// EINVALID (e.g. rejected input) is terminal.
type Oracle interface {
	Analyze(ctx context.Context, req *AnalysisRequest) (*Analysis, error)
}
