package analyze

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// EndpointLimiter rate limits oracle requests per endpoint using token
// buckets. The model server is typically a single local process; the limiter
// bounds the request rate it sees independently of the worker pool width.
type EndpointLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
}

// NewEndpointLimiter creates a limiter allowing rps requests per second per
// endpoint, with a burst of 1.
func NewEndpointLimiter(rps float64) *EndpointLimiter {
	return &EndpointLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
	}
}

// Wait blocks until the rate limit allows a request to the endpoint.
// Returns an error if the context is canceled before the wait completes.
func (l *EndpointLimiter) Wait(ctx context.Context, endpoint string) error {
	l.mu.Lock()
	limiter, ok := l.limiters[endpoint]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.rps), 1)
		l.limiters[endpoint] = limiter
	}
	l.mu.Unlock()

	return limiter.Wait(ctx)
}
