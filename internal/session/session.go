// Package session executes criteria queries against a store. A Session is
// bound to one executor, normally a transaction the caller owns, and one SQL
// dialect. It renders each query, runs it, and materializes the rows into
// tuples addressable by the expression and source handles of the query.
//
// The session never begins, commits or rolls back transactions. Locks taken
// with criteria.LockForUpdate last until the caller ends its transaction.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/dbexec"
	"sqlcriteria/internal/logging"
	"sqlcriteria/internal/observability"
	"sqlcriteria/internal/planner"
)

// Session runs criteria queries through one executor.
type Session struct {
	exec    dbexec.QueryExecutor
	dialect *planner.Dialect
	logger  *logging.Logger
	metrics *observability.QueryMetrics
	tracer  trace.Tracer
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for statement logs.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records statement metrics on m.
func WithMetrics(m *observability.QueryMetrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithTracer overrides the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Session) { s.tracer = tracer }
}

// New returns a session that runs queries through exec using dialect.
func New(exec dbexec.QueryExecutor, dialect *planner.Dialect, opts ...Option) *Session {
	s := &Session{exec: exec, dialect: dialect, logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dialect returns the dialect queries are rendered for.
func (s *Session) Dialect() *planner.Dialect { return s.dialect }

// Render validates and renders q without executing it.
func (s *Session) Render(q *criteria.Query) (*planner.Plan, error) {
	return planner.Render(q, s.dialect)
}

// List runs q and returns every row. When the query fetches a one-to-many
// association, rows repeating the same parent are collapsed into one.
func (s *Session) List(ctx context.Context, q *criteria.Query) ([]*ResultRow, error) {
	ex, err := s.start(ctx, q, "list")
	if err != nil {
		return nil, err
	}
	rows, read, err := ex.readAll()
	ex.finish(read, err)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Single runs q and returns its only row. Zero rows or more than one row is
// a cardinality error.
func (s *Session) Single(ctx context.Context, q *criteria.Query) (*ResultRow, error) {
	ex, err := s.start(ctx, q, "single")
	if err != nil {
		return nil, err
	}
	rows, read, err := ex.readAll()
	if err == nil && len(rows) != 1 {
		err = dbexec.CardinalityError(ex.construct, len(rows))
	}
	ex.finish(read, err)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

// Stream runs q and returns a forward-only cursor over its rows. The caller
// must Close the stream; the cursor is released exactly once, either when
// the rows are exhausted or on the first Close.
func (s *Session) Stream(ctx context.Context, q *criteria.Query) (*Stream, error) {
	ex, err := s.start(ctx, q, "stream")
	if err != nil {
		return nil, err
	}
	st := &Stream{ex: ex}
	s.metrics.StreamOpened(ex.ctx)
	st.rows = dbexec.ReleaseOnce(ex.rows, st.release)
	return st, nil
}

// execution is one statement in flight.
type execution struct {
	session   *Session
	ctx       context.Context
	mode      string
	construct string
	plan      *planner.Plan
	rows      dbexec.Rows
	span      trace.Span
	logger    *logging.Logger
	start     time.Time
}

func (s *Session) start(ctx context.Context, q *criteria.Query, mode string) (*execution, error) {
	plan, err := planner.Render(q, s.dialect)
	if err != nil {
		s.logger.Debug("query rejected", slog.String("mode", mode), slog.String("error", err.Error()))
		s.metrics.RecordStatement(ctx, mode, s.dialect.Name, 0, 0, errorClass(err))
		return nil, err
	}

	id := uuid.NewString()
	ctx = logging.WithStatementIDContext(ctx, id)
	ctx, span := startSpan(ctx, s.tracer, "criteria."+mode,
		attribute.String("db.system", s.dialect.Name),
		attribute.String("criteria.statement_id", id),
		attribute.Int("criteria.args", len(plan.Query.Args)),
	)
	ex := &execution{
		session:   s,
		ctx:       ctx,
		mode:      mode,
		construct: q.Describe().String(),
		plan:      plan,
		span:      span,
		logger:    s.logger.WithStatementID(id),
		start:     time.Now(),
	}
	ex.logger.Debug("executing statement",
		slog.String("mode", mode),
		slog.String("sql", plan.Query.SQL),
		slog.Int("args", len(plan.Query.Args)),
	)

	rows, err := s.exec.QueryContext(ctx, plan.Query.SQL, plan.Query.Args...)
	if err != nil {
		err = dbexec.Classify(err, ex.construct)
		ex.finish(0, err)
		return nil, err
	}
	ex.rows = rows
	return ex, nil
}

func (ex *execution) readAll() ([]*ResultRow, int64, error) {
	defer ex.rows.Close()

	var c *collapser
	if ex.plan.Collapse {
		c = newCollapser()
	}
	out := make([]*ResultRow, 0)
	var read int64
	for ex.rows.Next() {
		values, err := scanRow(ex.rows, ex.plan)
		if err != nil {
			return nil, read, err
		}
		read++
		row := buildRow(ex.plan, values)
		if c != nil {
			c.add(row)
			continue
		}
		out = append(out, row)
	}
	if err := ex.rows.Err(); err != nil {
		return nil, read, dbexec.Classify(err, ex.construct)
	}
	if c != nil {
		ex.session.metrics.RecordCollapsed(ex.ctx, c.merged)
		out = c.rows
	}
	return out, read, nil
}

func (ex *execution) finish(rows int64, err error) {
	duration := time.Since(ex.start)
	finishSpan(ex.span, rows, err)
	ex.session.metrics.RecordStatement(ex.ctx, ex.mode, ex.session.dialect.Name, duration, rows, errorClass(err))
	if err != nil {
		ex.logger.Warn("statement failed",
			slog.String("mode", ex.mode),
			slog.String("error", err.Error()),
			slog.Bool("retryable", dbexec.IsRetryable(err)),
		)
		return
	}
	ex.logger.Debug("statement finished",
		slog.String("mode", ex.mode),
		slog.Int64("rows", rows),
		slog.Duration("duration", duration),
	)
}

// errorClass names the class of err for metrics.
func errorClass(err error) string {
	if err == nil {
		return ""
	}
	var be *criteria.BuildError
	if errors.As(err, &be) {
		return "build"
	}
	switch dbexec.Class(err) {
	case dbexec.ErrLockTimeout:
		return "lock_timeout"
	case dbexec.ErrUnsupportedOperation:
		return "unsupported"
	case dbexec.ErrCardinality:
		return "cardinality"
	case dbexec.ErrTransientStore:
		return "transient"
	}
	return "other"
}
