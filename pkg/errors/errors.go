package errors

import (
	"fmt"
)

// ParseError represents a configuration parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports ParseError as an Invalid input error.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalid
}

// ValidationError captures an attribute or configuration value that failed a check.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports ValidationError as an Invalid input error.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// MultipleErrors groups several independent failures, for example one per
// worker in a fan-out.
type MultipleErrors struct {
	Message string
	Errors  []error
}

// NewMultipleErrors returns nil when errs holds no non-nil error.
func NewMultipleErrors(message string, errs ...error) error {
	kept := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return &MultipleErrors{Message: message, Errors: kept}
}

func (e *MultipleErrors) Error() string {
	if e == nil {
		return ""
	}
	message := e.Message
	if message == "" {
		message = "multiple errors"
	}
	return fmt.Sprintf("%s: %v", message, e.Errors)
}

// Unwrap exposes every inner error to errors.Is and errors.As.
func (e *MultipleErrors) Unwrap() []error {
	if e == nil {
		return nil
	}
	return e.Errors
}
