// Package slog provides logging decorators for the oracle and cache
// boundaries, built on the standard structured logger.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/codedoc"
)

// Ensure LoggingOracle implements codedoc.Oracle.
var _ codedoc.Oracle = (*LoggingOracle)(nil)

// LoggingOracle wraps an Oracle with per-call logging of unit, context size,
// outcome and duration.
type LoggingOracle struct {
	next   codedoc.Oracle
	logger *slog.Logger
}

// NewLoggingOracle creates a new LoggingOracle.
func NewLoggingOracle(next codedoc.Oracle, logger *slog.Logger) *LoggingOracle {
	return &LoggingOracle{next: next, logger: logger}
}

// Analyze delegates to the wrapped oracle and logs the call.
func (o *LoggingOracle) Analyze(ctx context.Context, req *codedoc.AnalysisRequest) (*codedoc.Analysis, error) {
	begin := time.Now()
	analysis, err := o.next.Analyze(ctx, req)

	attrs := []any{"duration", time.Since(begin)}
	if req != nil && req.Unit != nil {
		attrs = append(attrs, "unit", req.Unit.ID)
	}
	if req != nil && req.Context != nil {
		attrs = append(attrs, "context_bytes", req.Context.Size())
	}
	if err != nil {
		attrs = append(attrs, "err", err, "code", codedoc.ErrorCode(err))
		o.logger.Error("oracle analyze", attrs...)
		return nil, err
	}
	attrs = append(attrs, "explanation_bytes", len(analysis.Explanation), "refs", len(analysis.References))
	o.logger.Info("oracle analyze", attrs...)
	return analysis, nil
}
