package callbacks

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Method is a method expression usable as a receiver, e.g. (*Agent).handlePort.
type Method[T any] func(T, context.Context, Resource, Event, interface{}, Payload) error

// Receivers is a type-level table of methods to subscribe for each instance
// of T. Declare it once per type and wire every new instance explicitly:
//
//	var agentReceivers = callbacks.NewReceivers[*Agent]().
//		Receives(callbacks.Port, []callbacks.Event{callbacks.AfterCreate}, callbacks.PriorityDefault, (*Agent).handlePort)
//
//	func NewAgent(m *callbacks.Manager) (*Agent, error) {
//		a := &Agent{}
//		return a, agentReceivers.Wire(m, a)
//	}
type Receivers[T comparable] struct {
	mu    sync.RWMutex
	table []receiver[T]
	err   error
}

type receiver[T comparable] struct {
	name     string
	resource Resource
	events   []Event
	priority int
	method   Method[T]
}

// NewReceivers returns an empty table.
func NewReceivers[T comparable]() *Receivers[T] {
	return &Receivers[T]{}
}

// Receives records that method handles events of resource. An empty events
// list, an empty event name, or a nil method is a declaration error reported
// by Err and Wire.
func (r *Receivers[T]) Receives(resource Resource, events []Event, priority int, method Method[T]) *Receivers[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := funcName(method)
	switch {
	case method == nil:
		r.err = errors.Join(r.err, fmt.Errorf("receiver for %s: method is nil", resource))
		return r
	case len(events) == 0:
		r.err = errors.Join(r.err, fmt.Errorf("receiver %s: events must be a non-empty list", name))
		return r
	}
	for _, event := range events {
		if event == "" {
			r.err = errors.Join(r.err, fmt.Errorf("receiver %s: empty event name", name))
			return r
		}
	}

	r.table = append(r.table, receiver[T]{
		name:     name,
		resource: resource,
		events:   append([]Event(nil), events...),
		priority: priority,
		method:   method,
	})
	return r
}

// Err returns the accumulated declaration errors.
func (r *Receivers[T]) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Wire subscribes every recorded method, bound to instance, on m (the default
// Manager when m is nil). Each instance is wired by a table at most once per
// Manager; later calls are no-ops until the Manager is cleared. Other tables
// wire the same instance independently.
func (r *Receivers[T]) Wire(m *Manager, instance T) error {
	if m == nil {
		m = DefaultManager()
	}

	r.mu.RLock()
	table := append([]receiver[T](nil), r.table...)
	err := r.err
	r.mu.RUnlock()

	if err != nil {
		return err
	}
	if !m.markWired(r, instance) {
		return nil
	}

	for _, entry := range table {
		method := entry.method
		callback := Callback{
			id: CallbackID{Name: entry.name, Receiver: instance},
			fn: func(ctx context.Context, resource Resource, event Event, trigger interface{}, payload Payload) error {
				return method(instance, ctx, resource, event, trigger, payload)
			},
		}
		for _, event := range entry.events {
			m.Subscribe(callback, entry.resource, event, entry.priority)
		}
	}
	return nil
}
