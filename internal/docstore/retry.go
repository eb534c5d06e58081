package docstore

import (
	"context"
	"time"

	"jsonorder/internal/storage"
)

// backoff returns the delay before retry attempt n (n >= 1).
func (p RetryPolicy) backoff(n int) time.Duration {
	delay := p.BaseDelay * time.Duration(1<<uint(n-1))
	if p.MaxDelay > 0 && (delay > p.MaxDelay || delay <= 0) {
		delay = p.MaxDelay
	}
	return delay
}

// withRetry runs fn until it succeeds, fails with a non-transient error, or
// the retry budget runs out. fn receives the zero-based attempt number.
func (a *Adapter) withRetry(ctx context.Context, op, id string, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= a.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := a.retry.backoff(attempt)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			a.logger.Debug("Retrying after transient failure",
				"op", op,
				"id", id,
				"attempt", attempt+1,
				"delay", delay,
			)
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}
		if !storage.IsTransient(err) {
			return err
		}
		lastErr = err
	}

	a.logger.Warn("Giving up after transient failures",
		"op", op,
		"id", id,
		"attempts", a.retry.MaxRetries+1,
		"error", lastErr,
	)
	return lastErr
}
