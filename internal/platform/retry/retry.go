// Package retry is the single retry combinator shared by the lookup client,
// the slug publisher and the merge conflict path.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/knowledge-backend/internal/platform/httpx"
)

// Policy describes a bounded retry loop.
type Policy struct {
	// MaxAttempts counts the first call. Values < 1 mean a single attempt.
	MaxAttempts int
	// Backoff returns the wait after the given failed attempt (1-based).
	// Nil means no wait.
	Backoff func(attempt int) time.Duration
	// Retryable decides whether err is worth another attempt. Nil retries everything.
	Retryable func(err error) bool
	// Sleep waits d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// DelayHinter lets an error override the policy backoff, e.g. Retry-After.
type DelayHinter interface {
	RetryDelay() time.Duration
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsExhausted reports whether err came out of a spent retry budget.
func IsExhausted(err error) bool {
	var ex *ExhaustedError
	return errors.As(err, &ex)
}

// Do runs fn until it succeeds, returns a non-retryable error, or the budget
// is spent. Non-retryable errors are returned unchanged.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		var hint DelayHinter
		if errors.As(err, &hint) {
			if d := hint.RetryDelay(); d > 0 {
				wait = d
			}
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}
		if wait > 0 {
			if err := sleep(ctx, wait); err != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
		}
	}
	return &ExhaustedError{Attempts: maxAttempts, Err: lastErr}
}

// Exponential doubles base per failed attempt up to max, with +/-20% jitter.
func Exponential(base, max time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		if base <= 0 {
			return 0
		}
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if max > 0 && d >= max {
				d = max
				break
			}
		}
		return httpx.JitterSleep(d)
	}
}

// NoDelay retries immediately.
func NoDelay(int) time.Duration { return 0 }

func timerSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
