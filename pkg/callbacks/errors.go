package callbacks

import (
	"errors"
	"fmt"
	"strings"

	neterrors "github.com/alexisbeaulieu97/netlib/pkg/errors"
)

// InvalidError reports caller misuse of the registry. It matches
// neterrors.ErrInvalid.
type InvalidError struct {
	Element string
	Value   interface{}
}

func (e *InvalidError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("the value '%v' for %s is not valid", e.Value, e.Element)
}

// Is reports InvalidError as an Invalid input error.
func (e *InvalidError) Is(target error) bool {
	return target == neterrors.ErrInvalid
}

// NotificationError pairs a subscriber with the error it returned.
type NotificationError struct {
	CallbackID CallbackID
	Err        error
}

func (e *NotificationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("callback %s failed with %q", e.CallbackID, e.Err)
}

// Unwrap exposes the subscriber's error.
func (e *NotificationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PanicError records a subscriber panic recovered by the dispatch loop.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("callback panicked: %v", e.Value)
}

// CallbackFailure aggregates the failures of one dispatch. Errors usually holds
// *NotificationError values; legacy callers may wrap arbitrary errors.
type CallbackFailure struct {
	Errors []error
}

// NewCallbackFailure wraps errs, dropping nil entries.
func NewCallbackFailure(errs ...error) *CallbackFailure {
	kept := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	return &CallbackFailure{Errors: kept}
}

func (e *CallbackFailure) Error() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		parts = append(parts, err.Error())
	}
	return "callback failure: " + strings.Join(parts, ", ")
}

// Unwrap exposes every aggregated error to errors.Is and errors.As.
func (e *CallbackFailure) Unwrap() []error {
	if e == nil {
		return nil
	}
	return e.Errors
}

// InnerErrors returns the original subscriber errors, with NotificationError
// wrappers removed.
func (e *CallbackFailure) InnerErrors() []error {
	if e == nil {
		return nil
	}
	inner := make([]error, 0, len(e.Errors))
	for _, err := range e.Errors {
		var notification *NotificationError
		if errors.As(err, &notification) {
			inner = append(inner, notification.Err)
			continue
		}
		inner = append(inner, err)
	}
	return inner
}

func newFailure(errs []*NotificationError) *CallbackFailure {
	wrapped := make([]error, len(errs))
	for i, err := range errs {
		wrapped[i] = err
	}
	return &CallbackFailure{Errors: wrapped}
}
