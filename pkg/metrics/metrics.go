// Package metrics exposes Prometheus collectors for callback dispatch,
// database retries, RPC timeouts, and placement requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alexisbeaulieu97/netlib/pkg/callbacks"
	"github.com/alexisbeaulieu97/netlib/pkg/db"
	"github.com/alexisbeaulieu97/netlib/pkg/placement"
	"github.com/alexisbeaulieu97/netlib/pkg/rpc"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "netlib"

var dispatchBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Metrics collects Prometheus counters and histograms for the library.
// A nil *Metrics is a valid no-op collector.
type Metrics struct {
	registry                *prometheus.Registry
	dispatchTotal           *prometheus.CounterVec
	dispatchFailuresTotal   *prometheus.CounterVec
	dispatchDurationSeconds *prometheus.HistogramVec
	subscriptions           prometheus.Gauge
	dbRetriesTotal          prometheus.Counter
	rpcTimeoutsTotal        *prometheus.CounterVec
	placementRequestsTotal  *prometheus.CounterVec
	placementRequestSeconds *prometheus.HistogramVec
}

var (
	_ callbacks.Metrics         = (*Metrics)(nil)
	_ db.RetryObserver          = (*Metrics)(nil)
	_ rpc.TimeoutObserver       = (*Metrics)(nil)
	_ placement.RequestObserver = (*Metrics)(nil)
)

// New constructs a private registry and registers all collectors. An empty
// namespace selects DefaultNamespace.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	registry := prometheus.NewRegistry()

	dispatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "callbacks",
			Name:      "dispatch_total",
			Help:      "Total number of notify loops run per resource and event.",
		},
		[]string{"resource", "event"},
	)
	dispatchFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "callbacks",
			Name:      "failures_total",
			Help:      "Total number of subscriber failures per resource and event.",
		},
		[]string{"resource", "event"},
	)
	dispatchDurationSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "callbacks",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent running the subscribers of one notify loop.",
			Buckets:   dispatchBuckets,
		},
		[]string{"resource", "event"},
	)
	subscriptions := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "callbacks",
			Name:      "subscriptions",
			Help:      "Number of (callback, resource, event) subscriptions.",
		},
	)
	dbRetriesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "retries_total",
			Help:      "Total number of database operation retries.",
		},
	)
	rpcTimeoutsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "timeouts_total",
			Help:      "Total number of RPC calls that timed out per method.",
		},
		[]string{"method"},
	)
	placementRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "placement",
			Name:      "requests_total",
			Help:      "Total number of placement API requests per method and status code.",
		},
		[]string{"method", "code"},
	)
	placementRequestSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "placement",
			Name:      "request_duration_seconds",
			Help:      "Placement API request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	registry.MustRegister(
		dispatchTotal,
		dispatchFailuresTotal,
		dispatchDurationSeconds,
		subscriptions,
		dbRetriesTotal,
		rpcTimeoutsTotal,
		placementRequestsTotal,
		placementRequestSeconds,
	)

	return &Metrics{
		registry:                registry,
		dispatchTotal:           dispatchTotal,
		dispatchFailuresTotal:   dispatchFailuresTotal,
		dispatchDurationSeconds: dispatchDurationSeconds,
		subscriptions:           subscriptions,
		dbRetriesTotal:          dbRetriesTotal,
		rpcTimeoutsTotal:        rpcTimeoutsTotal,
		placementRequestsTotal:  placementRequestsTotal,
		placementRequestSeconds: placementRequestSeconds,
	}
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler that serves the metrics registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveDispatch(resource callbacks.Resource, event callbacks.Event, subscribers, failures int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{string(resource), string(event)}
	m.dispatchTotal.WithLabelValues(labels...).Inc()
	if failures > 0 {
		m.dispatchFailuresTotal.WithLabelValues(labels...).Add(float64(failures))
	}
	if seconds := duration.Seconds(); seconds >= 0 {
		m.dispatchDurationSeconds.WithLabelValues(labels...).Observe(seconds)
	}
}

func (m *Metrics) SetSubscriptions(count int) {
	if m == nil {
		return
	}
	m.subscriptions.Set(float64(count))
}

func (m *Metrics) ObserveRetry(int) {
	if m == nil {
		return
	}
	m.dbRetriesTotal.Inc()
}

func (m *Metrics) IncRPCTimeout(method string) {
	if m == nil {
		return
	}
	m.rpcTimeoutsTotal.WithLabelValues(method).Inc()
}

func (m *Metrics) ObservePlacementRequest(method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.placementRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	if seconds := duration.Seconds(); seconds >= 0 {
		m.placementRequestSeconds.WithLabelValues(method).Observe(seconds)
	}
}
