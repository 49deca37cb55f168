package slog_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/fwojciec/codedoc"
	"github.com/fwojciec/codedoc/mock"
	codeslog "github.com/fwojciec/codedoc/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAnalysisRequest() *codedoc.AnalysisRequest {
	return &codedoc.AnalysisRequest{
		Unit: &codedoc.Unit{
			ID:   "main.go#0",
			Kind: codedoc.KindFunction,
			Path: "main.go",
		},
		Context: &codedoc.ContextSet{
			UnitID:   "main.go#0",
			Snippets: []codedoc.ContextSnippet{{UnitID: "a.go#0", Text: "0123456789"}},
		},
	}
}

func TestLoggingOracle_Analyze(t *testing.T) {
	t.Parallel()

	t.Run("logs unit, context size and duration", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Oracle{
			AnalyzeFn: func(ctx context.Context, req *codedoc.AnalysisRequest) (*codedoc.Analysis, error) {
				return &codedoc.Analysis{Explanation: "explained"}, nil
			},
		}

		oracle := codeslog.NewLoggingOracle(inner, logger)
		analysis, err := oracle.Analyze(context.Background(), testAnalysisRequest())

		require.NoError(t, err)
		assert.Equal(t, "explained", analysis.Explanation)
		output := buf.String()
		assert.Contains(t, output, "oracle analyze")
		assert.Contains(t, output, "unit=main.go#0")
		assert.Contains(t, output, "context_bytes=10")
		assert.Contains(t, output, "duration=")
	})

	t.Run("logs error with code on failure", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Oracle{
			AnalyzeFn: func(ctx context.Context, req *codedoc.AnalysisRequest) (*codedoc.Analysis, error) {
				return nil, codedoc.Errorf(codedoc.EUNAVAILABLE, "server down")
			},
		}

		oracle := codeslog.NewLoggingOracle(inner, logger)
		_, err := oracle.Analyze(context.Background(), testAnalysisRequest())

		require.Error(t, err)
		output := buf.String()
		assert.Contains(t, output, "level=ERROR")
		assert.Contains(t, output, "code=unavailable")
	})
}
