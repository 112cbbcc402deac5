package directory

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/housing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RetryPolicy bounds the exponential backoff applied to store reads
type RetryPolicy struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns three attempts starting at 50ms
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

// BackOff returns a fresh schedule for one read, stopped when ctx is done
func (p RetryPolicy) BackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0

	retries := uint64(0)
	if p.MaxAttempts > 1 {
		retries = p.MaxAttempts - 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)
}

// read runs fn, retrying transport failures. Domain errors (not found,
// conflict, validation) are returned on the first attempt.
func read[T any](ctx context.Context, o *options, what string, fn func(context.Context) (T, error)) (T, error) {
	op := func() (T, error) {
		v, err := fn(ctx)
		if err != nil && !shared.IsTransport(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	notify := func(err error, wait time.Duration) {
		o.logger.Debug("Retrying store read",
			zap.String("read", what),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	return backoff.RetryNotifyWithData(op, o.retry.BackOff(ctx), notify)
}
