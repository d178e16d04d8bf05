package rpc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordedJitter struct {
	mu     sync.Mutex
	limits []time.Duration
}

func (r *recordedJitter) jitter(limit time.Duration) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits = append(r.limits, limit)
	return 0
}

type countingObserver struct {
	mu      sync.Mutex
	methods []string
}

func (o *countingObserver) IncRPCTimeout(method string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.methods = append(o.methods, method)
}

func timingOut() Caller {
	return CallerFunc(func(context.Context, string, interface{}, interface{}) error {
		return ErrTimeout
	})
}

func TestTimeoutDoublesUpToCeiling(t *testing.T) {
	t.Parallel()

	jitter := &recordedJitter{}
	observer := &countingObserver{}
	client := NewBackingOffClient(timingOut(), Options{
		Namespace: "l3_agent",
		Timeouts:  NewTimeouts(time.Second, 0),
		Jitter:    jitter.jitter,
		Observer:  observer,
	})

	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for _, next := range want {
		err := client.Call(context.Background(), "sync_routers", nil, nil)
		var timeoutErr *TimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		require.Equal(t, "l3_agent.sync_routers", timeoutErr.Method)
		require.ErrorIs(t, err, ErrTimeout)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, next, client.Timeout("sync_routers"))
	}

	for _, limit := range jitter.limits {
		require.Equal(t, time.Second, limit, "jitter is bounded by the default timeout")
	}
	require.Len(t, observer.methods, len(want))
}

func TestTimeoutsAreScopedPerMethod(t *testing.T) {
	t.Parallel()

	timeouts := NewTimeouts(time.Second, 0)
	jitter := &recordedJitter{}
	agent := NewBackingOffClient(timingOut(), Options{Namespace: "agent", Timeouts: timeouts, Jitter: jitter.jitter})
	other := NewBackingOffClient(timingOut(), Options{Timeouts: timeouts, Jitter: jitter.jitter})

	require.Error(t, agent.Call(context.Background(), "report_state", nil, nil))
	require.Equal(t, 2*time.Second, agent.Timeout("report_state"))
	require.Equal(t, time.Second, agent.Timeout("get_devices"))
	require.Equal(t, time.Second, other.Timeout("report_state"))

	shared := NewBackingOffClient(timingOut(), Options{Namespace: "agent", Timeouts: timeouts})
	require.Equal(t, 2*time.Second, shared.Timeout("report_state"), "clients sharing a table share learned timeouts")
}

func TestSuccessfulCallKeepsTimeoutAndPassesResults(t *testing.T) {
	t.Parallel()

	var deadline time.Time
	caller := CallerFunc(func(ctx context.Context, method string, args, reply interface{}) error {
		deadline, _ = ctx.Deadline()
		*(reply.(*string)) = method + ":" + args.(string)
		return nil
	})
	client := NewBackingOffClient(caller, Options{Timeouts: NewTimeouts(time.Minute, 0)})

	var reply string
	start := time.Now()
	require.NoError(t, client.Call(context.Background(), "echo", "hi", &reply))
	require.Equal(t, "echo:hi", reply)
	require.WithinDuration(t, start.Add(time.Minute), deadline, 5*time.Second)
	require.Equal(t, time.Minute, client.Timeout("echo"))
}

func TestNonTimeoutErrorsPassThrough(t *testing.T) {
	t.Parallel()

	boom := errors.New("remote error")
	client := NewBackingOffClient(CallerFunc(func(context.Context, string, interface{}, interface{}) error {
		return boom
	}), Options{Timeouts: NewTimeouts(time.Second, 0)})

	require.Same(t, boom, client.Call(context.Background(), "m", nil, nil))
	require.Equal(t, time.Second, client.Timeout("m"))
}

func TestDeadlineExceededIsATimeout(t *testing.T) {
	t.Parallel()

	blocking := CallerFunc(func(ctx context.Context, _ string, _, _ interface{}) error {
		<-ctx.Done()
		return ctx.Err()
	})
	client := NewBackingOffClient(blocking, Options{
		Timeouts: NewTimeouts(10*time.Millisecond, 0),
		Jitter:   func(time.Duration) time.Duration { return 0 },
	})

	var timeoutErr *TimeoutError
	require.ErrorAs(t, client.Call(context.Background(), "slow", nil, nil), &timeoutErr)
	require.Equal(t, 10*time.Millisecond, timeoutErr.Timeout)
	require.Equal(t, 20*time.Millisecond, client.Timeout("slow"))
}

func TestCallerCancellationIsNotATimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := NewBackingOffClient(CallerFunc(func(ctx context.Context, _ string, _, _ interface{}) error {
		return ErrTimeout
	}), Options{Timeouts: NewTimeouts(time.Second, 0)})

	err := client.Call(ctx, "m", nil, nil)
	var timeoutErr *TimeoutError
	require.False(t, errors.As(err, &timeoutErr))
	require.Equal(t, time.Second, client.Timeout("m"))
}

func TestJitterSleepUsesClock(t *testing.T) {
	t.Parallel()

	client := NewBackingOffClient(timingOut(), Options{
		Timeouts: NewTimeouts(time.Second, 0),
		Jitter:   func(time.Duration) time.Duration { return 20 * time.Millisecond },
	})

	start := time.Now()
	require.Error(t, client.Call(context.Background(), "m", nil, nil))
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSetMaxTimeoutAndReset(t *testing.T) {
	t.Parallel()

	timeouts := NewTimeouts(time.Second, 0)
	require.Equal(t, 10*time.Second, timeouts.Max())

	client := NewBackingOffClient(timingOut(), Options{Timeouts: timeouts, Jitter: func(time.Duration) time.Duration { return 0 }})
	for i := 0; i < 3; i++ {
		require.Error(t, client.Call(context.Background(), "m", nil, nil))
	}
	require.Equal(t, 8*time.Second, client.Timeout("m"))

	client.SetMaxTimeout(3 * time.Second)
	require.Equal(t, 3*time.Second, client.Timeout("m"))
	require.Error(t, client.Call(context.Background(), "m", nil, nil))
	require.Equal(t, 3*time.Second, client.Timeout("m"))

	timeouts.SetMaxTimeout(time.Millisecond)
	require.Equal(t, time.Second, timeouts.Max(), "the ceiling never drops below the default")

	timeouts.Set("n", time.Hour)
	require.Equal(t, time.Second, timeouts.Get("n"))

	client.Reset()
	require.Equal(t, time.Second, client.Timeout("m"))
}

func TestDefaultTimeoutsTable(t *testing.T) {
	prev := SetDefaultTimeouts(nil)
	t.Cleanup(func() { SetDefaultTimeouts(prev) })

	table := DefaultTimeouts()
	require.Equal(t, DefaultResponseTimeout, table.Default())
	require.Equal(t, DefaultResponseTimeout*MaxTimeoutFactor, table.Max())

	client := NewBackingOffClient(timingOut(), Options{})
	require.Equal(t, DefaultResponseTimeout, client.Timeout("m"))
	require.Same(t, table, DefaultTimeouts())
}
