package mock

import (
	"context"
	"time"

	"github.com/fwojciec/codedoc"
)

var _ codedoc.ResultCache = (*ResultCache)(nil)

// ResultCache is a mock implementation of codedoc.ResultCache.
type ResultCache struct {
	GetFn   func(ctx context.Context, fp codedoc.Fingerprint) (*codedoc.AnalysisResult, error)
	PutFn   func(ctx context.Context, result *codedoc.AnalysisResult) error
	ListFn  func(ctx context.Context, limit int) ([]*codedoc.AnalysisResult, error)
	PruneFn func(ctx context.Context, before time.Time) (int, error)
}

func (c *ResultCache) Get(ctx context.Context, fp codedoc.Fingerprint) (*codedoc.AnalysisResult, error) {
	return c.GetFn(ctx, fp)
}

func (c *ResultCache) Put(ctx context.Context, result *codedoc.AnalysisResult) error {
	return c.PutFn(ctx, result)
}

func (c *ResultCache) List(ctx context.Context, limit int) ([]*codedoc.AnalysisResult, error) {
	return c.ListFn(ctx, limit)
}

func (c *ResultCache) Prune(ctx context.Context, before time.Time) (int, error) {
	return c.PruneFn(ctx, before)
}
