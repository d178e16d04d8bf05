package db

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Driver independent error classes. Translate wraps driver errors so that
// errors.Is matches both the class and the original error.
var (
	ErrDeadlock       = errors.New("database deadlock")
	ErrStaleData      = errors.New("stale data")
	ErrConnection     = errors.New("database connection error")
	ErrDuplicateEntry = errors.New("duplicate entry")
)

var retriable = []error{ErrDeadlock, ErrStaleData, ErrConnection, ErrDuplicateEntry}

// RetryRequest asks the retry decorator around the current operation to run
// it again from the start.
type RetryRequest struct {
	Err error
}

func (e *RetryRequest) Error() string {
	if e == nil || e.Err == nil {
		return "retry request"
	}
	return "retry request: " + e.Err.Error()
}

// Unwrap exposes the error that caused the request.
func (e *RetryRequest) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Translate wraps err with the error class of the driver failure it contains.
// Errors that are already classified, or that do not come from the driver, are
// returned unchanged.
func Translate(err error) error {
	if err == nil || isClassified(err) {
		return err
	}
	if class := classify(err); class != nil {
		return fmt.Errorf("%w: %w", class, err)
	}
	return err
}

// IsRetriable reports whether err, or any error nested in it, is a retry
// request or a transient database failure.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	return isClassified(err) || classify(err) != nil
}

// ReraiseAsRetryRequest converts a retriable error into a *RetryRequest and
// returns every other error, including nil, unchanged.
func ReraiseAsRetryRequest(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*RetryRequest); ok {
		return err
	}
	if IsRetriable(err) {
		return &RetryRequest{Err: err}
	}
	return err
}

func isClassified(err error) bool {
	var request *RetryRequest
	if errors.As(err, &request) {
		return true
	}
	for _, class := range retriable {
		if errors.Is(err, class) {
			return true
		}
	}
	return false
}

func classify(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		switch code & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return ErrDeadlock
		case sqlite3.SQLITE_CONSTRAINT:
			if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
				code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
				strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed") {
				return ErrDuplicateEntry
			}
		case sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CANTOPEN:
			return ErrConnection
		}
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return ErrConnection
	}
	return nil
}
