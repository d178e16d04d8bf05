package callbacks

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// Func is a subscriber. trigger identifies the publisher for introspection
// only. A non-nil error marks the delivery as failed; see Classify for how the
// failure is handled.
type Func func(ctx context.Context, resource Resource, event Event, trigger interface{}, payload Payload) error

// CallbackID identifies a subscriber for subscribe/unsubscribe purposes. Two
// callbacks with equal IDs are the same subscriber.
type CallbackID struct {
	// Name is the fully qualified function name.
	Name string
	// Receiver is the bound instance for method subscribers, nil otherwise.
	Receiver interface{}
}

func (id CallbackID) String() string {
	if id.Receiver == nil {
		return id.Name
	}
	v := reflect.ValueOf(id.Receiver)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("%s-%#x", id.Name, v.Pointer())
	default:
		return fmt.Sprintf("%s-%v", id.Name, id.Receiver)
	}
}

// Callback pairs a subscriber function with its identity.
type Callback struct {
	id CallbackID
	fn Func
}

// NewCallback identifies fn by its runtime function name. Use it for plain
// functions; every closure created from one function literal shares a name,
// so distinct closures need NamedCallback or MethodCallback.
func NewCallback(fn Func) Callback {
	return Callback{id: CallbackID{Name: funcName(fn)}, fn: fn}
}

// NamedCallback identifies fn by the supplied name.
func NamedCallback(name string, fn Func) Callback {
	return Callback{id: CallbackID{Name: name}, fn: fn}
}

// MethodCallback identifies fn, usually a method value such as agent.handlePort,
// by its function name plus the receiver instance. Method values of one
// instance collapse to one subscriber while other instances stay distinct.
// receiver must be comparable; pass a pointer.
func MethodCallback(receiver interface{}, fn Func) Callback {
	if receiver != nil && !reflect.TypeOf(receiver).Comparable() {
		panic(fmt.Sprintf("callbacks: receiver of type %T is not comparable", receiver))
	}
	return Callback{id: CallbackID{Name: funcName(fn), Receiver: receiver}, fn: fn}
}

// ID returns the identity of the callback.
func (c Callback) ID() CallbackID {
	return c.id
}

func (c Callback) String() string {
	return c.id.String()
}

func funcName(fn interface{}) string {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return "<nil>"
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "<unknown>"
	}
	return strings.TrimSuffix(f.Name(), "-fm")
}
