package journal

import (
	"context"
	"time"
)

const maxRetryDelay = 5 * time.Second

// retryWrite calls fn until it succeeds, retrying at most maxRetries times
// with a doubling delay capped at maxRetryDelay.
func retryWrite(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func() error) error {
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	err := fn()
	for attempt, delay := 0, baseDelay; err != nil && attempt < maxRetries; attempt++ {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
		err = fn()
	}
	return err
}
