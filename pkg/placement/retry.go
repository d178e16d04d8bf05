package placement

import (
	"context"

	"github.com/juju/retry"
)

// retryConflicts runs fn again while it fails with a generation conflict.
// fn must re-read the generation on every call.
func (c *Client) retryConflicts(ctx context.Context, op string, fn func() error) error {
	var last error
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			last = fn()
			return last
		},
		IsFatalError: func(err error) bool {
			return !IsGenerationConflict(err)
		},
		NotifyFunc: func(err error, attempt int) {
			c.logger.Info(ctx, "resource provider generation conflict, retrying", "operation", op, "attempt", attempt)
		},
		Attempts: c.conflictRetries + 1,
		Delay:    c.conflictDelay,
		Clock:    c.clock,
		Stop:     ctx.Done(),
	})
	if err == nil {
		return nil
	}
	if last == nil {
		return err
	}
	return last
}
