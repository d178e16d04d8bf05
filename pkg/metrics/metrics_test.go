package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/netlib/pkg/callbacks"
)

func TestManagerDispatchIsCounted(t *testing.T) {
	t.Parallel()

	m := New("")
	manager := callbacks.NewManager(callbacks.Options{Metrics: m})
	manager.Subscribe(callbacks.NamedCallback("fails", func(context.Context, callbacks.Resource, callbacks.Event, interface{}, callbacks.Payload) error {
		return errors.New("nope")
	}), callbacks.Port, callbacks.AfterCreate, callbacks.PriorityDefault)
	manager.Subscribe(callbacks.NamedCallback("ok", func(context.Context, callbacks.Resource, callbacks.Event, interface{}, callbacks.Payload) error {
		return nil
	}), callbacks.Port, callbacks.AfterCreate, callbacks.PriorityLate)

	require.NoError(t, manager.Notify(context.Background(), callbacks.Port, callbacks.AfterCreate, nil, nil))
	require.NoError(t, manager.Notify(context.Background(), callbacks.Port, callbacks.AfterCreate, nil, nil))

	require.Equal(t, 2.0, testutil.ToFloat64(m.dispatchTotal.WithLabelValues("port", "after_create")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.dispatchFailuresTotal.WithLabelValues("port", "after_create")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.subscriptions))

	manager.Clear()
	require.Equal(t, 0.0, testutil.ToFloat64(m.subscriptions))
}

func TestOtherCollectors(t *testing.T) {
	t.Parallel()

	m := New("test")
	m.ObserveRetry(1)
	m.ObserveRetry(2)
	m.IncRPCTimeout("sync_routers")
	m.ObservePlacementRequest("GET", 200, 10*time.Millisecond)
	m.ObservePlacementRequest("PUT", 409, time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.dbRetriesTotal))
	require.Equal(t, 1.0, testutil.ToFloat64(m.rpcTimeoutsTotal.WithLabelValues("sync_routers")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.placementRequestsTotal.WithLabelValues("PUT", "409")))
	require.Equal(t, 2, testutil.CollectAndCount(m.placementRequestSeconds))
}

func TestHandlerServesRegistry(t *testing.T) {
	t.Parallel()

	m := New("netlib")
	m.SetSubscriptions(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "netlib_callbacks_subscriptions 3")
}

func TestNilMetricsIsNoOp(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveDispatch(callbacks.Port, callbacks.AfterCreate, 1, 1, time.Second)
	m.SetSubscriptions(1)
	m.ObserveRetry(1)
	m.IncRPCTimeout("x")
	m.ObservePlacementRequest("GET", 200, time.Second)
	require.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
