package callbacks

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/alexisbeaulieu97/netlib/pkg/db"
	"github.com/alexisbeaulieu97/netlib/pkg/logging"
)

// Options configures a Manager.
type Options struct {
	Logger  logging.Logger
	Metrics Metrics
}

// Manager owns a subscription table and dispatches notifications.
//
// The table maps resource -> event -> priority groups sorted ascending. The
// reverse index maps callback -> resource -> events and always agrees with the
// table. Dispatch snapshots the subscribers under the read lock and invokes
// them with no lock held, so subscribers may subscribe and unsubscribe while
// being notified; such changes apply to later dispatches only.
type Manager struct {
	mu            sync.RWMutex
	callbacks     map[Resource]map[Event][]*priorityGroup
	index         map[CallbackID]map[Resource]map[Event]struct{}
	wired         map[wiredKey]struct{}
	subscriptions int

	logger  logging.Logger
	metrics Metrics
}

// priorityGroup holds the subscribers of one (resource, event) at one
// priority, in registration order.
type priorityGroup struct {
	priority  int
	callbacks []Callback
}

// NewManager creates an empty Manager.
func NewManager(opts Options) *Manager {
	m := &Manager{
		logger:  logging.OrNoOp(opts.Logger).With("component", "callbacks"),
		metrics: opts.Metrics,
	}
	if m.metrics == nil {
		m.metrics = noopMetrics{}
	}
	m.reset()
	return m
}

func (m *Manager) reset() {
	m.callbacks = make(map[Resource]map[Event][]*priorityGroup)
	m.index = make(map[CallbackID]map[Resource]map[Event]struct{})
	m.wired = make(map[wiredKey]struct{})
	m.subscriptions = 0
}

// Subscribe registers callback for (resource, event) at priority. It is
// idempotent: when the callback is already subscribed to the pair, at any
// priority, the call changes nothing.
func (m *Manager) Subscribe(callback Callback, resource Resource, event Event, priority int) {
	ctx := context.Background()
	if callback.fn == nil {
		m.logger.Warn(ctx, "ignoring subscription without a function", "callback", callback.id.String(), "resource", resource, "event", event)
		return
	}

	m.mu.Lock()
	if _, ok := m.index[callback.id][resource][event]; ok {
		m.mu.Unlock()
		m.logger.Debug(ctx, "callback already subscribed", "callback", callback.id.String(), "resource", resource, "event", event)
		return
	}

	events, ok := m.callbacks[resource]
	if !ok {
		events = make(map[Event][]*priorityGroup)
		m.callbacks[resource] = events
	}
	events[event] = insertCallback(events[event], callback, priority)

	resources, ok := m.index[callback.id]
	if !ok {
		resources = make(map[Resource]map[Event]struct{})
		m.index[callback.id] = resources
	}
	subscribed, ok := resources[resource]
	if !ok {
		subscribed = make(map[Event]struct{})
		resources[resource] = subscribed
	}
	subscribed[event] = struct{}{}
	m.subscriptions++
	count := m.subscriptions
	m.mu.Unlock()

	m.metrics.SetSubscriptions(count)
	m.logger.Debug(ctx, "subscribed", "callback", callback.id.String(), "resource", resource, "event", event, "priority", priority)
}

// insertCallback adds callback to the group for priority, keeping groups sorted.
func insertCallback(groups []*priorityGroup, callback Callback, priority int) []*priorityGroup {
	i := sort.Search(len(groups), func(i int) bool {
		return groups[i].priority >= priority
	})
	if i < len(groups) && groups[i].priority == priority {
		groups[i].callbacks = append(groups[i].callbacks, callback)
		return groups
	}
	group := &priorityGroup{priority: priority, callbacks: []Callback{callback}}
	return slices.Insert(groups, i, group)
}

// Unsubscribe removes callback from (resource, event). Unknown callbacks are
// ignored; a known callback with an empty resource or event yields an
// *InvalidError. Removing every event of a resource is UnsubscribeByResource.
func (m *Manager) Unsubscribe(callback Callback, resource Resource, event Event) error {
	ctx := context.Background()

	m.mu.Lock()
	resources, ok := m.index[callback.id]
	if !ok {
		m.mu.Unlock()
		m.logger.Debug(ctx, "callback not found", "callback", callback.id.String())
		return nil
	}
	if resource == "" || event == "" {
		m.mu.Unlock()
		return &InvalidError{Element: "resource,event", Value: string(resource) + "," + string(event)}
	}

	if _, subscribed := resources[resource][event]; subscribed {
		m.removeLocked(callback.id, resource, event)
		delete(resources[resource], event)
		m.pruneIndexLocked(callback.id, resource)
	}
	count := m.subscriptions
	m.mu.Unlock()

	m.metrics.SetSubscriptions(count)
	return nil
}

// UnsubscribeByResource removes callback from every event of resource.
func (m *Manager) UnsubscribeByResource(callback Callback, resource Resource) {
	m.mu.Lock()
	if events, ok := m.index[callback.id][resource]; ok {
		for event := range events {
			m.removeLocked(callback.id, resource, event)
		}
		delete(m.index[callback.id], resource)
		m.pruneIndexLocked(callback.id, resource)
	}
	count := m.subscriptions
	m.mu.Unlock()

	m.metrics.SetSubscriptions(count)
}

// UnsubscribeAll removes callback from every (resource, event) pair.
func (m *Manager) UnsubscribeAll(callback Callback) {
	m.mu.Lock()
	for resource, events := range m.index[callback.id] {
		for event := range events {
			m.removeLocked(callback.id, resource, event)
		}
	}
	delete(m.index, callback.id)
	count := m.subscriptions
	m.mu.Unlock()

	m.metrics.SetSubscriptions(count)
}

// removeLocked drops id from the forward table for (resource, event) and
// prunes empty groups, events, and resources. The caller updates the index.
func (m *Manager) removeLocked(id CallbackID, resource Resource, event Event) {
	events := m.callbacks[resource]
	groups := events[event]
	for gi, group := range groups {
		ci := slices.IndexFunc(group.callbacks, func(cb Callback) bool { return cb.id == id })
		if ci < 0 {
			continue
		}
		group.callbacks = slices.Delete(group.callbacks, ci, ci+1)
		m.subscriptions--
		if len(group.callbacks) == 0 {
			groups = slices.Delete(groups, gi, gi+1)
		}
		break
	}
	if len(groups) == 0 {
		delete(events, event)
	} else {
		events[event] = groups
	}
	if len(events) == 0 {
		delete(m.callbacks, resource)
	}
}

func (m *Manager) pruneIndexLocked(id CallbackID, resource Resource) {
	resources := m.index[id]
	if events, ok := resources[resource]; ok && len(events) == 0 {
		delete(resources, resource)
	}
	if len(resources) == 0 {
		delete(m.index, id)
	}
}

// Publish notifies the subscribers of (resource, event). payload must be nil
// or a member of the EventPayload family, otherwise an *InvalidError is
// returned and nobody is notified.
func (m *Manager) Publish(ctx context.Context, resource Resource, event Event, trigger interface{}, payload Payload) error {
	if err := checkPayload(payload); err != nil {
		return err
	}
	return m.Notify(ctx, resource, event, trigger, payload)
}

// Notify runs the subscribers of (resource, event) and applies the failure
// policy of the event's phase. It accepts any Payload, including Kwargs.
//
// The returned error is a *CallbackFailure, or a *db.RetryRequest wrapping it
// when one of the subscriber errors is a retriable database error.
func (m *Manager) Notify(ctx context.Context, resource Resource, event Event, trigger interface{}, payload Payload) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return db.ReraiseAsRetryRequest(m.notify(ctx, resource, event, trigger, payload))
}

func (m *Manager) notify(ctx context.Context, resource Resource, event Event, trigger interface{}, payload Payload) error {
	errs := m.notifyLoop(ctx, resource, event, trigger, payload)
	if len(errs) == 0 {
		return nil
	}
	switch Classify(event) {
	case PhaseBefore:
		// Abort subscribers' own failures are logged by the loop and dropped.
		m.notifyLoop(ctx, resource, event.AbortEvent(), trigger, payload)
		return newFailure(errs)
	case PhasePrecommit:
		return newFailure(errs)
	default:
		return nil
	}
}

// notifyLoop invokes every subscriber exactly once and returns their failures.
func (m *Manager) notifyLoop(ctx context.Context, resource Resource, event Event, trigger interface{}, payload Payload) []*NotificationError {
	callbacks := m.snapshot(resource, event)
	if len(callbacks) == 0 {
		return nil
	}

	ids := make([]string, len(callbacks))
	for i, cb := range callbacks {
		ids[i] = cb.id.String()
	}
	m.logger.Debug(ctx, "notify callbacks", "callbacks", ids, "resource", resource, "event", event)

	start := time.Now()
	cancellable := event.IsCancellable()
	var errs []*NotificationError
	for _, cb := range callbacks {
		err := invoke(ctx, cb, resource, event, trigger, payload)
		if err == nil {
			continue
		}
		if cancellable {
			m.logger.Debug(ctx, "callback raised", "callback", cb.id.String(), "resource", resource, "event", event, "error", err)
		} else {
			m.logger.Error(ctx, "error during notification", "callback", cb.id.String(), "resource", resource, "event", event, "error", err)
		}
		errs = append(errs, &NotificationError{CallbackID: cb.id, Err: err})
	}
	m.metrics.ObserveDispatch(resource, event, len(callbacks), len(errs), time.Since(start))
	return errs
}

func invoke(ctx context.Context, cb Callback, resource Resource, event Event, trigger interface{}, payload Payload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return cb.fn(ctx, resource, event, trigger, payload)
}

// snapshot flattens the priority groups of (resource, event) into a new slice.
func (m *Manager) snapshot(resource Resource, event Event) []Callback {
	m.mu.RLock()
	defer m.mu.RUnlock()

	groups := m.callbacks[resource][event]
	size := 0
	for _, group := range groups {
		size += len(group.callbacks)
	}
	callbacks := make([]Callback, 0, size)
	for _, group := range groups {
		callbacks = append(callbacks, group.callbacks...)
	}
	return callbacks
}

// Subscriptions returns the IDs subscribed to (resource, event) in dispatch order.
func (m *Manager) Subscriptions(resource Resource, event Event) []CallbackID {
	callbacks := m.snapshot(resource, event)
	ids := make([]CallbackID, len(callbacks))
	for i, cb := range callbacks {
		ids[i] = cb.id
	}
	return ids
}

// IsSubscribed reports whether callback is subscribed to (resource, event).
func (m *Manager) IsSubscribed(callback Callback, resource Resource, event Event) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.index[callback.id][resource][event]
	return ok
}

// Clear drops every subscription and the receiver wiring record.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.reset()
	m.mu.Unlock()

	m.metrics.SetSubscriptions(0)
}

// wiredKey identifies one receiver table wired to one instance.
type wiredKey struct {
	table    interface{}
	instance interface{}
}

// markWired records instance as wired by table and reports whether the pair
// was new.
func (m *Manager) markWired(table, instance interface{}) bool {
	key := wiredKey{table: table, instance: instance}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.wired[key]; ok {
		return false
	}
	m.wired[key] = struct{}{}
	return true
}
