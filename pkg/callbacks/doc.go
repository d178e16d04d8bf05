// Package callbacks implements the in-process resource event registry.
//
// Publishers announce lifecycle phases (events) of entities (resources) and
// every subscriber registered for the (resource, event) pair is invoked
// synchronously, in ascending priority order, on the publisher's goroutine.
//
// The event name prefix decides what happens when subscribers fail:
//
//	before_*     the matching abort_* event is notified, then a *CallbackFailure is returned
//	precommit_*  a *CallbackFailure is returned immediately
//	anything     failures are logged only
//
// A *CallbackFailure whose inner errors are retriable database errors is
// returned as a *db.RetryRequest instead, so that the caller's retry decorator
// re-runs the whole operation.
//
// A Manager is an ordinary value owned by the host's composition root.
// DefaultManager and the package level functions provide the conventional one
// instance per process.
package callbacks
