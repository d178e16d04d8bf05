package callbacks

import (
	"context"
	"sync"
)

var (
	defaultMu      sync.Mutex
	defaultManager *Manager
)

// DefaultManager returns the process-wide Manager, creating it on first use.
func DefaultManager() *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultManager == nil {
		defaultManager = NewManager(Options{})
	}
	return defaultManager
}

// SetDefaultManager replaces the process-wide Manager and returns the previous
// one, which may be nil. A nil m makes the next DefaultManager call build a
// fresh Manager. Host composition roots call it once at startup; tests use it
// to install a fixture:
//
//	prev := callbacks.SetDefaultManager(callbacks.NewManager(callbacks.Options{}))
//	t.Cleanup(func() { callbacks.SetDefaultManager(prev) })
func SetDefaultManager(m *Manager) *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultManager
	defaultManager = m
	return prev
}

// Subscribe subscribes callback on the default Manager.
func Subscribe(callback Callback, resource Resource, event Event, priority int) {
	DefaultManager().Subscribe(callback, resource, event, priority)
}

// Unsubscribe unsubscribes callback on the default Manager.
func Unsubscribe(callback Callback, resource Resource, event Event) error {
	return DefaultManager().Unsubscribe(callback, resource, event)
}

// UnsubscribeByResource unsubscribes callback from resource on the default Manager.
func UnsubscribeByResource(callback Callback, resource Resource) {
	DefaultManager().UnsubscribeByResource(callback, resource)
}

// UnsubscribeAll unsubscribes callback everywhere on the default Manager.
func UnsubscribeAll(callback Callback) {
	DefaultManager().UnsubscribeAll(callback)
}

// Publish publishes on the default Manager.
func Publish(ctx context.Context, resource Resource, event Event, trigger interface{}, payload Payload) error {
	return DefaultManager().Publish(ctx, resource, event, trigger, payload)
}

// Notify notifies on the default Manager.
func Notify(ctx context.Context, resource Resource, event Event, trigger interface{}, payload Payload) error {
	return DefaultManager().Notify(ctx, resource, event, trigger, payload)
}

// Clear clears the default Manager.
func Clear() {
	DefaultManager().Clear()
}
