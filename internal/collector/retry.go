package collector

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryPolicy bounds the attempts made for one logical fetch.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	// Timeouts holds the per-attempt timeout; the last entry is reused.
	Timeouts []time.Duration
}

// DefaultRetry makes two attempts, 15s then 20s, two seconds apart.
var DefaultRetry = RetryPolicy{
	Attempts: 2,
	Backoff:  2 * time.Second,
	Timeouts: []time.Duration{15 * time.Second, 20 * time.Second},
}

func (p RetryPolicy) timeout(attempt int) time.Duration {
	if len(p.Timeouts) == 0 {
		return 0
	}
	if attempt < len(p.Timeouts) {
		return p.Timeouts[attempt]
	}
	return p.Timeouts[len(p.Timeouts)-1]
}

// Do runs fn until it succeeds, returns a non-transient error, or the
// attempts are used up. Only *TransportError values marked Temporary are
// retried.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		attemptCtx := ctx
		cancel := func() {}
		if d := p.timeout(i); d > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, d)
		}
		lastErr = fn(attemptCtx)
		cancel()
		if lastErr == nil {
			return nil
		}

		var te *TransportError
		if !errors.As(lastErr, &te) || !te.Temporary() || i == attempts-1 {
			break
		}
		log.Warn().Err(lastErr).Str("op", op).
			Int("attempt", i+1).Int("of", attempts).
			Dur("backoff", p.Backoff).Msg("upstream call failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff):
		}
	}
	return lastErr
}
