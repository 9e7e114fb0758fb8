package introspect

import (
	"context"
	"fmt"
	"time"
)

// maxRetryDelay caps the exponential backoff between attempts.
const maxRetryDelay = 5 * time.Second

// Retry runs fn up to attempts times, doubling the wait between tries
// starting from baseDelay. It retries only while shouldRetry reports the
// error as transient; any other error returns immediately. The wait
// honors ctx cancellation.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, shouldRetry func(error) bool, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := baseDelay
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || attempt >= attempts || !shouldRetry(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry wait: %w", ctx.Err())
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxRetryDelay {
			backoff = maxRetryDelay
		}
	}
}
