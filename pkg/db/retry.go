package db

import (
	"context"
	"errors"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"

	"github.com/alexisbeaulieu97/netlib/pkg/logging"
)

const (
	// DefaultMaxRetries is the number of re-runs after the first attempt.
	DefaultMaxRetries       = 20
	DefaultRetryInterval    = 100 * time.Millisecond
	DefaultMaxRetryInterval = 10 * time.Second
)

// RetryOptions configures a Retrier.
type RetryOptions struct {
	MaxRetries       int
	RetryInterval    time.Duration
	IncRetryInterval bool
	MaxRetryInterval time.Duration
	Clock            clock.Clock
	Logger           logging.Logger
	Observer         RetryObserver
}

// RetryObserver is told about every retry a Retrier schedules.
type RetryObserver interface {
	ObserveRetry(attempt int)
}

// DefaultRetryOptions returns exponential backoff with jitter from 100ms up
// to 10s over at most 20 retries.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries:       DefaultMaxRetries,
		RetryInterval:    DefaultRetryInterval,
		IncRetryInterval: true,
		MaxRetryInterval: DefaultMaxRetryInterval,
	}
}

// Retrier re-runs operations that fail with retriable database errors.
type Retrier struct {
	opts   RetryOptions
	logger logging.Logger
}

// NewRetrier fills unset options with defaults.
func NewRetrier(opts RetryOptions) *Retrier {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	if opts.MaxRetryInterval < opts.RetryInterval {
		opts.MaxRetryInterval = opts.RetryInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	return &Retrier{
		opts:   opts,
		logger: logging.OrNoOp(opts.Logger).With("component", "db"),
	}
}

// Retry calls fn until it succeeds, fails with a non-retriable error, the
// retries are used up, or ctx is done. The returned error is the last error of
// fn with any *RetryRequest wrapper removed.
func (r *Retrier) Retry(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	backoff := func(delay time.Duration, _ int) time.Duration { return delay }
	if r.opts.IncRetryInterval {
		backoff = retry.ExpBackoff(r.opts.RetryInterval, r.opts.MaxRetryInterval, 2, true)
	}

	var last error
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			last = fn(ctx)
			return last
		},
		IsFatalError: func(err error) bool {
			return !IsRetriable(err)
		},
		NotifyFunc: func(err error, attempt int) {
			r.logger.Debug(ctx, "retrying database operation", "attempt", attempt, "error", err)
			if r.opts.Observer != nil {
				r.opts.Observer.ObserveRetry(attempt)
			}
		},
		Attempts:    r.opts.MaxRetries + 1,
		Delay:       r.opts.RetryInterval,
		MaxDelay:    r.opts.MaxRetryInterval,
		BackoffFunc: backoff,
		Clock:       r.opts.Clock,
		Stop:        ctx.Done(),
	})
	if err == nil {
		return nil
	}

	// retry.Call traces fatal errors; hand back what fn returned.
	if last == nil {
		last = err
	}
	last = unwrapRetryRequest(last)
	if retry.IsAttemptsExceeded(err) {
		r.logger.Warn(ctx, "database retries exhausted", "attempts", r.opts.MaxRetries+1, "error", last)
	}
	if ctxErr := ctx.Err(); ctxErr != nil && retry.IsRetryStopped(err) {
		return errors.Join(ctxErr, last)
	}
	return last
}

func unwrapRetryRequest(err error) error {
	if request, ok := err.(*RetryRequest); ok && request.Err != nil {
		return request.Err
	}
	return err
}
