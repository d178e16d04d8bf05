package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure category shared by every netlib consumer. API
// layers map codes to transport status codes with HTTPStatus.
type Code string

const (
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeInvalid            Code = "INVALID"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeInUse              Code = "IN_USE"
	CodeNotAuthorized      Code = "NOT_AUTHORIZED"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeNotSupported       Code = "NOT_SUPPORTED"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// HTTPStatus returns the status code conventionally used for the category.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeBadRequest, CodeInvalid:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInUse:
		return http.StatusConflict
	case CodeNotAuthorized:
		return http.StatusForbidden
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeNotSupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is comparisons. They match any *Error with the same code.
var (
	ErrBadRequest         = &Error{Code: CodeBadRequest}
	ErrInvalid            = &Error{Code: CodeInvalid}
	ErrNotFound           = &Error{Code: CodeNotFound}
	ErrConflict           = &Error{Code: CodeConflict}
	ErrInUse              = &Error{Code: CodeInUse}
	ErrNotAuthorized      = &Error{Code: CodeNotAuthorized}
	ErrServiceUnavailable = &Error{Code: CodeServiceUnavailable}
	ErrNotSupported       = &Error{Code: CodeNotSupported}
	ErrInternal           = &Error{Code: CodeInternal}
)

// Error is a coded error enriched with contextual data.
type Error struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	message := e.Message
	if message == "" {
		message = "an unknown exception occurred"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, message)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As usage.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var coded *Error
	if e == nil || !errors.As(target, &coded) || coded == nil {
		return false
	}
	return e.Code == coded.Code
}

// WithContext clones the error with additional contextual metadata.
func (e *Error) WithContext(ctx map[string]interface{}) *Error {
	if e == nil {
		return nil
	}
	merged := make(map[string]interface{}, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Context: merged,
	}
}

// CodeOf returns the code of the first *Error in err's tree, or CodeInternal.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) && coded != nil {
		return coded.Code
	}
	if errors.Is(err, ErrInvalid) {
		return CodeInvalid
	}
	return CodeInternal
}

func newError(code Code, message string, cause error, context map[string]interface{}) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// BadRequest reports a malformed request against resource.
func BadRequest(resource, message string) *Error {
	return newError(CodeBadRequest, fmt.Sprintf("bad %s request: %s", resource, message), nil, map[string]interface{}{
		"resource": resource,
	})
}

// Invalid reports invalid input for an operation.
func Invalid(message string) *Error {
	return newError(CodeInvalid, fmt.Sprintf("invalid input for operation: %s", message), nil, nil)
}

// NotFound reports a missing object of the given kind.
func NotFound(kind, id string) *Error {
	return newError(CodeNotFound, fmt.Sprintf("%s %s could not be found", kind, id), nil, map[string]interface{}{
		"kind": kind,
		"id":   id,
	})
}

// Conflict reports a state conflict.
func Conflict(message string) *Error {
	return newError(CodeConflict, message, nil, nil)
}

// InUse reports that an object cannot be changed because something depends on it.
func InUse(kind, id string) *Error {
	return newError(CodeInUse, fmt.Sprintf("%s %s is in use", kind, id), nil, map[string]interface{}{
		"kind": kind,
		"id":   id,
	})
}

// NotAuthorized reports a policy rejection.
func NotAuthorized() *Error {
	return newError(CodeNotAuthorized, "not authorized", nil, nil)
}

// ServiceUnavailable reports a dependency that cannot currently serve requests.
func ServiceUnavailable(message string) *Error {
	return newError(CodeServiceUnavailable, message, nil, nil)
}

// NotSupported reports an operation the backend does not implement.
func NotSupported(message string) *Error {
	return newError(CodeNotSupported, message, nil, nil)
}

// Internal wraps an unexpected failure.
func Internal(message string, cause error) *Error {
	return newError(CodeInternal, message, cause, nil)
}
