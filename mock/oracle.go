// Package mock provides mock implementations of codedoc interfaces for
// testing.
package mock

import (
	"context"

	"github.com/fwojciec/codedoc"
)

var _ codedoc.Oracle = (*Oracle)(nil)

// Oracle is a mock implementation of codedoc.Oracle.
type Oracle struct {
	AnalyzeFn func(ctx context.Context, req *codedoc.AnalysisRequest) (*codedoc.Analysis, error)
}

func (o *Oracle) Analyze(ctx context.Context, req *codedoc.AnalysisRequest) (*codedoc.Analysis, error) {
	return o.AnalyzeFn(ctx, req)
}
