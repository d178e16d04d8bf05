// Package rpc wraps an RPC transport with adaptive per-method timeouts.
//
// A method that times out has its timeout doubled, up to a ceiling, and the
// caller sleeps for a random jitter before the error is returned, so a fleet
// of agents does not retry an overloaded server in lockstep.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/juju/clock"

	"github.com/alexisbeaulieu97/netlib/pkg/logging"
)

// ErrTimeout may be returned by a Caller to report a transport level timeout.
var ErrTimeout = errors.New("rpc timeout")

// Caller is the underlying transport.
type Caller interface {
	// Call invokes method and decodes the response into reply. It must return
	// when ctx is done.
	Call(ctx context.Context, method string, args, reply interface{}) error
}

// CallerFunc adapts a function to Caller.
type CallerFunc func(ctx context.Context, method string, args, reply interface{}) error

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context, method string, args, reply interface{}) error {
	return f(ctx, method, args, reply)
}

// TimeoutObserver is told about every timed out call.
type TimeoutObserver interface {
	IncRPCTimeout(method string)
}

// TimeoutError reports a call that did not complete within its timeout.
type TimeoutError struct {
	Method  string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout in RPC method %s after %s", e.Method, e.Timeout)
}

// Unwrap exposes the transport error.
func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// Is matches ErrTimeout and context.DeadlineExceeded.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout || target == context.DeadlineExceeded
}

// Options configures a BackingOffClient.
type Options struct {
	// Namespace scopes method names in the timeout table.
	Namespace string
	// Timeouts defaults to the process-wide table.
	Timeouts *Timeouts
	Clock    clock.Clock
	Logger   logging.Logger
	Observer TimeoutObserver
	// Jitter returns the wait before a timeout is reported, in [0, limit).
	// Defaults to a uniform random duration.
	Jitter func(limit time.Duration) time.Duration
}

// BackingOffClient calls methods through a Caller with adaptive timeouts.
type BackingOffClient struct {
	caller    Caller
	namespace string
	timeouts  *Timeouts
	clock     clock.Clock
	logger    logging.Logger
	observer  TimeoutObserver
	jitter    func(time.Duration) time.Duration
}

// NewBackingOffClient wraps caller.
func NewBackingOffClient(caller Caller, opts Options) *BackingOffClient {
	c := &BackingOffClient{
		caller:    caller,
		namespace: opts.Namespace,
		timeouts:  opts.Timeouts,
		clock:     opts.Clock,
		logger:    logging.OrNoOp(opts.Logger).With("component", "rpc"),
		observer:  opts.Observer,
		jitter:    opts.Jitter,
	}
	if c.timeouts == nil {
		c.timeouts = DefaultTimeouts()
	}
	if c.clock == nil {
		c.clock = clock.WallClock
	}
	if c.jitter == nil {
		c.jitter = uniformJitter
	}
	return c
}

// ScopedMethod returns the key method is tracked under in the timeout table.
func (c *BackingOffClient) ScopedMethod(method string) string {
	if c.namespace == "" {
		return method
	}
	return c.namespace + "." + method
}

// Timeout returns the current timeout for method.
func (c *BackingOffClient) Timeout(method string) time.Duration {
	return c.timeouts.Get(c.ScopedMethod(method))
}

// SetMaxTimeout changes the ceiling of the client's timeout table.
func (c *BackingOffClient) SetMaxTimeout(ceiling time.Duration) {
	c.timeouts.SetMaxTimeout(ceiling)
}

// Reset forgets the learned timeouts of the client's table.
func (c *BackingOffClient) Reset() {
	c.timeouts.Reset()
}

// Call invokes method with the current timeout. On timeout the method's
// timeout is doubled (bounded by the table maximum), the client sleeps for a
// jitter, and a *TimeoutError is returned.
func (c *BackingOffClient) Call(ctx context.Context, method string, args, reply interface{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	scoped := c.ScopedMethod(method)
	timeout := c.timeouts.Get(scoped)

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	err := c.caller.Call(callCtx, method, args, reply)
	cancel()
	if err == nil || !isTimeout(err) {
		return err
	}
	if ctx.Err() != nil {
		// The caller gave up; this is not a server side timeout.
		return err
	}

	if c.observer != nil {
		c.observer.IncRPCTimeout(scoped)
	}
	wait := c.jitter(min(timeout, c.timeouts.Default()))
	c.logger.Error(ctx, "timeout in RPC method, waiting before next attempt; if the server is not down consider increasing the response timeout",
		"method", scoped, "timeout", timeout.String(), "wait", wait.String())

	if increased, next := c.timeouts.Increase(scoped, timeout); increased {
		c.logger.Warn(ctx, "increasing timeout for RPC method", "method", scoped, "timeout", next.String())
	}

	if wait > 0 {
		select {
		case <-c.clock.After(wait):
		case <-ctx.Done():
		}
	}
	return &TimeoutError{Method: scoped, Timeout: timeout, Err: err}
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout)
}

func uniformJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return rand.N(limit)
}
