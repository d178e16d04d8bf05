package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("unexpected token")
	err := NewParseError("netlib.yaml", 12, underlying)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "netlib.yaml", parseErr.Path)
	require.Equal(t, 12, parseErr.Line)
	require.True(t, stdErrors.Is(err, underlying))
	require.True(t, stdErrors.Is(err, ErrInvalid))
	require.Contains(t, err.Error(), "netlib.yaml:12")
}

func TestValidationErrorCarriesField(t *testing.T) {
	t.Parallel()

	err := NewValidationError("mac_address", "'zz' is not a valid MAC address", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "mac_address", validationErr.Field)
	require.Contains(t, validationErr.Message, "not a valid MAC address")
	require.True(t, stdErrors.Is(err, ErrInvalid))
	require.Equal(t, CodeInvalid, CodeOf(err))
}

func TestCodedErrorMatchesSentinelByCode(t *testing.T) {
	t.Parallel()

	err := NotFound("port", "p-1")
	require.True(t, stdErrors.Is(err, ErrNotFound))
	require.False(t, stdErrors.Is(err, ErrConflict))
	require.Equal(t, "port", err.Context["kind"])
	require.Contains(t, err.Error(), "port p-1 could not be found")

	wrapped := fmt.Errorf("lookup: %w", err)
	require.True(t, stdErrors.Is(wrapped, ErrNotFound))
	require.Equal(t, CodeNotFound, CodeOf(wrapped))
}

func TestCodedErrorUnwrapsCause(t *testing.T) {
	t.Parallel()

	cause := stdErrors.New("disk full")
	err := Internal("write failed", cause)
	require.True(t, stdErrors.Is(err, cause))
	require.True(t, stdErrors.Is(err, ErrInternal))
}

func TestWithContextMerges(t *testing.T) {
	t.Parallel()

	base := InUse("network", "n-1")
	enriched := base.WithContext(map[string]interface{}{"ports": 3})

	require.Equal(t, "network", enriched.Context["kind"])
	require.Equal(t, 3, enriched.Context["ports"])
	_, present := base.Context["ports"]
	require.False(t, present, "original context must not change")
}

func TestHTTPStatusMapping(t *testing.T) {
	t.Parallel()

	cases := map[Code]int{
		CodeBadRequest:         http.StatusBadRequest,
		CodeInvalid:            http.StatusBadRequest,
		CodeNotFound:           http.StatusNotFound,
		CodeConflict:           http.StatusConflict,
		CodeInUse:              http.StatusConflict,
		CodeNotAuthorized:      http.StatusForbidden,
		CodeServiceUnavailable: http.StatusServiceUnavailable,
		CodeNotSupported:       http.StatusNotImplemented,
		CodeInternal:           http.StatusInternalServerError,
	}
	for code, status := range cases {
		require.Equal(t, status, code.HTTPStatus(), string(code))
	}
}

func TestMultipleErrorsDropsNil(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewMultipleErrors("none", nil, nil))

	first := Conflict("generation mismatch")
	second := stdErrors.New("timeout")
	err := NewMultipleErrors("sync failed", first, nil, second)

	var multi *MultipleErrors
	require.ErrorAs(t, err, &multi)
	require.Len(t, multi.Errors, 2)
	require.True(t, stdErrors.Is(err, ErrConflict))
	require.True(t, stdErrors.Is(err, second))
}
