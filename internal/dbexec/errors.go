package dbexec

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Execution error classes. An ExecutionError wraps exactly one of them.
var (
	// ErrUnsupportedOperation means the store cannot express a construct.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrLockTimeout means a lock could not be acquired in time. It is the
	// only retryable class.
	ErrLockTimeout = errors.New("lock timeout")
	// ErrCardinality means a single-row read found zero or several rows.
	ErrCardinality = errors.New("cardinality violation")
	// ErrTransientStore means the connection to the store failed.
	ErrTransientStore = errors.New("transient store failure")
)

// ExecutionError reports a failure while rendering or running a query.
// Construct names the implicated part of the query when one is known.
type ExecutionError struct {
	Err       error
	Construct string
	Cause     error
}

func (e *ExecutionError) Error() string {
	msg := e.Err.Error()
	if e.Construct != "" {
		msg += " at " + e.Construct
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the class and the driver cause to errors.Is/As.
func (e *ExecutionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// Unsupported builds an ErrUnsupportedOperation for construct.
func Unsupported(construct, format string, args ...any) *ExecutionError {
	return &ExecutionError{
		Err:       ErrUnsupportedOperation,
		Construct: construct,
		Cause:     fmt.Errorf(format, args...),
	}
}

// CardinalityError reports that a single-row read returned n rows.
func CardinalityError(construct string, n int) *ExecutionError {
	var cause error
	if n == 0 {
		cause = errors.New("query returned no rows")
	} else {
		cause = fmt.Errorf("query returned more than one row (at least %d)", n)
	}
	return &ExecutionError{Err: ErrCardinality, Construct: construct, Cause: cause}
}

// IsRetryable reports whether err may succeed when the caller retries its
// transaction. Only lock timeouts qualify.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}

// Class returns the sentinel class of err, or nil when err is not an
// execution error.
func Class(err error) error {
	for _, class := range []error{ErrLockTimeout, ErrUnsupportedOperation, ErrCardinality, ErrTransientStore} {
		if errors.Is(err, class) {
			return class
		}
	}
	return nil
}

// Classify maps a driver error onto the execution taxonomy. Errors that do
// not belong to any class, including context cancellation, are returned
// unchanged.
func Classify(err error, construct string) error {
	if err == nil {
		return nil
	}
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if class := classOf(err); class != nil {
		return &ExecutionError{Err: class, Construct: construct, Cause: err}
	}
	return err
}

func classOf(err error) error {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return ErrTransientStore
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1205, 3572:
			return ErrLockTimeout
		case 1064, 1235, 1305, 3636:
			return ErrUnsupportedOperation
		case 2006, 2013:
			return ErrTransientStore
		}
		return nil
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return ErrLockTimeout
		case sqlite3.ErrError:
			// SQLite reports missing tables and columns under the same code,
			// so only the parser's rejections count as unsupported.
			msg := liteErr.Error()
			if strings.Contains(msg, "no such function") || strings.Contains(msg, "syntax error") {
				return ErrUnsupportedOperation
			}
		}
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "55P03" || pqErr.Code == "40P01":
			return ErrLockTimeout
		case pqErr.Code == "42601" || pqErr.Code == "0A000" || pqErr.Code == "42883":
			return ErrUnsupportedOperation
		case pqErr.Code.Class() == "08":
			return ErrTransientStore
		}
	}
	return nil
}
