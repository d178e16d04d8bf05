package callbacks

import "time"

// Metrics receives dispatch observations. pkg/metrics provides a Prometheus
// implementation; Managers default to discarding them.
type Metrics interface {
	// ObserveDispatch is called once per notify loop.
	ObserveDispatch(resource Resource, event Event, subscribers, failures int, duration time.Duration)
	// SetSubscriptions reports the number of (callback, resource, event) subscriptions.
	SetSubscriptions(count int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveDispatch(Resource, Event, int, int, time.Duration) {}

func (noopMetrics) SetSubscriptions(int) {}
