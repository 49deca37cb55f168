package mock

import (
	"context"

	"github.com/fwojciec/codedoc"
)

var _ codedoc.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is a mock implementation of codedoc.DocumentStore.
type DocumentStore struct {
	SaveFn   func(ctx context.Context, doc *codedoc.Document) error
	CommitFn func() error
	AbortFn  func() error
}

func (s *DocumentStore) Save(ctx context.Context, doc *codedoc.Document) error {
	return s.SaveFn(ctx, doc)
}

func (s *DocumentStore) Commit() error {
	return s.CommitFn()
}

func (s *DocumentStore) Abort() error {
	return s.AbortFn()
}
