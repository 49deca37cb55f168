package slog_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/fwojciec/codedoc"
	"github.com/fwojciec/codedoc/mock"
	codeslog "github.com/fwojciec/codedoc/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingResultCache_Get(t *testing.T) {
	t.Parallel()

	t.Run("logs hits at debug level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		inner := &mock.ResultCache{
			GetFn: func(ctx context.Context, fp codedoc.Fingerprint) (*codedoc.AnalysisResult, error) {
				return &codedoc.AnalysisResult{UnitID: "main.go#0", Fingerprint: fp}, nil
			},
		}

		cache := codeslog.NewLoggingResultCache(inner, logger)
		_, err := cache.Get(context.Background(), "abc123")

		require.NoError(t, err)
		output := buf.String()
		assert.Contains(t, output, "cache hit")
		assert.Contains(t, output, "fingerprint=abc123")
	})

	t.Run("logs misses at debug level without error noise", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		inner := &mock.ResultCache{
			GetFn: func(ctx context.Context, fp codedoc.Fingerprint) (*codedoc.AnalysisResult, error) {
				return nil, codedoc.Errorf(codedoc.ENOTFOUND, "no cached result")
			},
		}

		cache := codeslog.NewLoggingResultCache(inner, logger)
		_, err := cache.Get(context.Background(), "abc123")

		require.Error(t, err)
		output := buf.String()
		assert.Contains(t, output, "cache miss")
		assert.NotContains(t, output, "level=ERROR")
	})
}

func TestLoggingResultCache_Prune(t *testing.T) {
	t.Parallel()

	t.Run("logs removed count", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.ResultCache{
			PruneFn: func(ctx context.Context, before time.Time) (int, error) {
				return 7, nil
			},
		}

		cache := codeslog.NewLoggingResultCache(inner, logger)
		n, err := cache.Prune(context.Background(), time.Now())

		require.NoError(t, err)
		assert.Equal(t, 7, n)
		output := buf.String()
		assert.Contains(t, output, "cache prune")
		assert.Contains(t, output, "removed=7")
	})
}
