package criteria

import (
	"errors"
	"fmt"
)

// Build error classes. Every BuildError wraps exactly one of these, so callers
// can match with errors.Is. Build errors are programming mistakes in query
// assembly and are never retried.
var (
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrUnboundSource        = errors.New("unbound source")
	ErrCteShape             = errors.New("cte shape mismatch")
	ErrHavingWithoutGroupBy = errors.New("having without group by")
	ErrInvalidLockTarget    = errors.New("invalid lock target")
	ErrMissingJoinCondition = errors.New("missing join condition")
	ErrUnknownAttribute     = errors.New("unknown attribute")
	ErrUnknownEntity        = errors.New("unknown entity")
	ErrInvalidFetch         = errors.New("invalid fetch")
	ErrDerivedAlias         = errors.New("derived table alias")
	ErrInvalidSelection     = errors.New("invalid selection")
)

// BuildError reports a query-assembly problem together with the construct
// (source alias, expression or CTE name) it was detected on.
type BuildError struct {
	Err       error
	Construct string
	Message   string
}

func (e *BuildError) Error() string {
	if e.Construct == "" {
		return fmt.Sprintf("%s: %s", e.Err, e.Message)
	}
	return fmt.Sprintf("%s at %s: %s", e.Err, e.Construct, e.Message)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func buildError(class error, construct string, format string, args ...any) *BuildError {
	return &BuildError{
		Err:       class,
		Construct: construct,
		Message:   fmt.Sprintf(format, args...),
	}
}

// Check reports the first build error recorded on expr or any of its operands.
// Subqueries referenced by expr are validated in full.
func Check(expr Expression) error {
	var errs []error
	walk(expr, func(e Expression) {
		if err := e.buildErr(); err != nil {
			errs = append(errs, err)
		}
	}, func(q *Query) {
		if err := q.Validate(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}
