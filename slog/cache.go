package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/codedoc"
)

// Ensure LoggingResultCache implements codedoc.ResultCache.
var _ codedoc.ResultCache = (*LoggingResultCache)(nil)

// LoggingResultCache wraps a ResultCache with debug logging for hits and
// misses and info logging for writes and prunes. Misses are an expected part
// of a run, so they never log above debug.
type LoggingResultCache struct {
	next   codedoc.ResultCache
	logger *slog.Logger
}

// NewLoggingResultCache creates a new LoggingResultCache.
func NewLoggingResultCache(next codedoc.ResultCache, logger *slog.Logger) *LoggingResultCache {
	return &LoggingResultCache{next: next, logger: logger}
}

// Get delegates to the wrapped cache and logs the outcome.
func (c *LoggingResultCache) Get(ctx context.Context, fp codedoc.Fingerprint) (*codedoc.AnalysisResult, error) {
	result, err := c.next.Get(ctx, fp)
	switch {
	case err == nil:
		c.logger.Debug("cache hit", "fingerprint", string(fp), "unit", result.UnitID)
	case codedoc.ErrorCode(err) == codedoc.ENOTFOUND:
		c.logger.Debug("cache miss", "fingerprint", string(fp))
	default:
		c.logger.Error("cache get", "fingerprint", string(fp), "err", err)
	}
	return result, err
}

// Put delegates to the wrapped cache and logs the write.
func (c *LoggingResultCache) Put(ctx context.Context, result *codedoc.AnalysisResult) error {
	err := c.next.Put(ctx, result)
	if err != nil {
		c.logger.Error("cache put", "fingerprint", string(result.Fingerprint), "unit", result.UnitID, "err", err)
		return err
	}
	c.logger.Debug("cache put", "fingerprint", string(result.Fingerprint), "unit", result.UnitID)
	return nil
}

// List delegates to the wrapped cache.
func (c *LoggingResultCache) List(ctx context.Context, limit int) ([]*codedoc.AnalysisResult, error) {
	return c.next.List(ctx, limit)
}

// Prune delegates to the wrapped cache and logs the count removed.
func (c *LoggingResultCache) Prune(ctx context.Context, before time.Time) (int, error) {
	begin := time.Now()
	n, err := c.next.Prune(ctx, before)
	if err != nil {
		c.logger.Error("cache prune", "before", before, "err", err)
		return 0, err
	}
	c.logger.Info("cache prune", "before", before, "removed", n, "duration", time.Since(begin))
	return n, nil
}
