package analyze

import (
	"context"
	"time"

	"github.com/fwojciec/codedoc"
)

// AttemptFunc is the signature for a single analysis attempt.
type AttemptFunc func(ctx context.Context) (*codedoc.Analysis, error)

// DefaultRetryDelays returns the backoff delays between attempts: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// retryFn is called before each retry with the upcoming attempt number and
// the error that triggered it.
type retryFn func(attempt int, err error)

// withRetry runs attempt with bounded exponential backoff. Only retryable
// errors (ETIMEOUT, EUNAVAILABLE) are retried; terminal errors return
// immediately. The attempt ceiling is len(delays)+1.
func withRetry(ctx context.Context, attempt AttemptFunc, delays []time.Duration, onRetry retryFn) (*codedoc.Analysis, int, error) {
	maxAttempts := len(delays) + 1

	var lastErr error
	for n := 0; n < maxAttempts; n++ {
		analysis, err := attempt(ctx)
		if err == nil {
			return analysis, n + 1, nil
		}
		lastErr = err

		if !codedoc.IsRetryable(err) || n >= maxAttempts-1 {
			return nil, n + 1, err
		}

		if onRetry != nil {
			onRetry(n+2, err)
		}

		select {
		case <-ctx.Done():
			return nil, n + 1, ctx.Err()
		case <-time.After(delays[n]):
		}
	}

	return nil, maxAttempts, lastErr
}
