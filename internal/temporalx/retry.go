package temporalx

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

// Retry runs op with jittered exponential backoff between base and max
// until it succeeds, returns a backoff.Permanent error, ctx ends, or
// maxWait elapses. maxWait <= 0 tries exactly once.
func Retry[T any](ctx context.Context, log *logger.Logger, what string, base, max, maxWait time.Duration, op func() (T, error)) (T, error) {
	if log == nil {
		log = logger.Nop()
	}
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = base
	if max > 0 {
		eb.MaxInterval = max
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(eb),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn(what+" failed, retrying", "error", err, "retry_in", next)
		}),
	}
	if maxWait > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(maxWait))
	} else {
		opts = append(opts, backoff.WithMaxTries(1))
	}
	return backoff.Retry(ctx, op, opts...)
}
