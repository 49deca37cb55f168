package mock

import (
	"context"

	"github.com/fwojciec/codedoc"
)

var _ codedoc.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of codedoc.Extractor.
type Extractor struct {
	ExtractFn func(ctx context.Context, projectRoot string) (*codedoc.Tree, error)
}

func (e *Extractor) Extract(ctx context.Context, projectRoot string) (*codedoc.Tree, error) {
	return e.ExtractFn(ctx, projectRoot)
}
