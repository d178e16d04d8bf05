package placement

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	neterrors "github.com/alexisbeaulieu97/netlib/pkg/errors"
)

// ErrGenerationConflict reports a write rejected because the resource
// provider generation sent was stale.
var ErrGenerationConflict = errors.New("resource provider generation conflict")

const concurrentUpdateCode = "placement.concurrent_update"

// APIError is a non-successful placement response.
type APIError struct {
	Method string
	Path   string
	Status int
	// Code is the placement error code, such as "placement.concurrent_update".
	Code   string
	Detail string
	cause  error
}

func (e *APIError) Error() string {
	detail := e.Detail
	if detail == "" {
		detail = http.StatusText(e.Status)
	}
	return fmt.Sprintf("placement %s %s returned %d: %s", e.Method, e.Path, e.Status, detail)
}

// Unwrap returns the coded netlib error and, for stale generations,
// ErrGenerationConflict.
func (e *APIError) Unwrap() []error {
	if e.generationConflict() {
		return []error{e.cause, ErrGenerationConflict}
	}
	return []error{e.cause}
}

func (e *APIError) generationConflict() bool {
	if e.Status != http.StatusConflict {
		return false
	}
	if e.Code == concurrentUpdateCode {
		return true
	}
	// Old microversions return no error code.
	return e.Code == "" && strings.Contains(strings.ToLower(e.Detail), "generation")
}

type errorBody struct {
	Errors []struct {
		Status int    `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Code   string `json:"code"`
	} `json:"errors"`
}

func responseError(method, path string, status int, body []byte) error {
	apiErr := &APIError{Method: method, Path: path, Status: status}

	var parsed errorBody
	if json.Unmarshal(body, &parsed) == nil && len(parsed.Errors) > 0 {
		apiErr.Code = parsed.Errors[0].Code
		apiErr.Detail = parsed.Errors[0].Detail
		if apiErr.Detail == "" {
			apiErr.Detail = parsed.Errors[0].Title
		}
	} else {
		apiErr.Detail = strings.TrimSpace(string(body))
	}

	switch {
	case status == http.StatusNotFound:
		apiErr.cause = &neterrors.Error{Code: neterrors.CodeNotFound, Message: apiErr.Detail}
	case status == http.StatusConflict:
		apiErr.cause = neterrors.Conflict(apiErr.Detail)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		apiErr.cause = neterrors.NotAuthorized()
	case status >= http.StatusInternalServerError:
		apiErr.cause = neterrors.ServiceUnavailable(apiErr.Detail)
	default:
		apiErr.cause = neterrors.BadRequest("placement", apiErr.Detail)
	}
	return apiErr
}

// IsNotFound reports whether err is a 404 from placement.
func IsNotFound(err error) bool {
	return errors.Is(err, neterrors.ErrNotFound)
}

// IsGenerationConflict reports whether err is a stale generation rejection.
func IsGenerationConflict(err error) bool {
	return errors.Is(err, ErrGenerationConflict)
}
