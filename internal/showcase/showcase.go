// Package showcase is a catalog of example queries over the sales model,
// grouped into named sections. The runner executes them through a session
// bound to the caller's executor and logs every result row.
package showcase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/dbexec"
	"sqlcriteria/internal/logging"
	"sqlcriteria/internal/mapping"
	"sqlcriteria/internal/planner"
	"sqlcriteria/internal/session"
)

// Example builds one query.
type Example struct {
	ID    string
	Title string
	Build func(reg *mapping.Registry) *criteria.Query
	// Nested names fetched collections whose members are logged under each
	// row, as "Entity.association" of a selected source.
	Nested []string
}

// Section is a named group of examples.
type Section struct {
	Name     string
	Title    string
	Examples []Example
}

var catalog = []Section{
	basicSection,
	selectSection,
	fromSection,
	whereSection,
	otherSection,
	withSection,
	derivedSection,
	functionSection,
}

// Catalog returns every section in run order.
func Catalog() []Section {
	return append([]Section(nil), catalog...)
}

// Names lists the section names in run order.
func Names() []string {
	names := make([]string, len(catalog))
	for i, s := range catalog {
		names[i] = s.Name
	}
	return names
}

// Lookup returns the named sections in the given order. No names selects the
// whole catalog.
func Lookup(names ...string) ([]Section, error) {
	if len(names) == 0 {
		return Catalog(), nil
	}
	out := make([]Section, 0, len(names))
	for _, name := range names {
		found := false
		for _, s := range catalog {
			if s.Name == name {
				out = append(out, s)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown section %q (known: %s)", name, strings.Join(Names(), ", "))
		}
	}
	return out, nil
}

// Result is the outcome of one example.
type Result struct {
	Section string
	Example Example
	Query   *criteria.Query
	Rows    []*session.ResultRow
	// Skipped holds the reason an example was not run on this store.
	Skipped error
}

// Runner executes catalog examples.
type Runner struct {
	registry *mapping.Registry
	logger   *logging.Logger
	stream   bool
	options  []session.Option
}

// NewRunner returns a runner over reg. With stream set, rows are read through
// a cursor instead of a list.
func NewRunner(reg *mapping.Registry, logger *logging.Logger, stream bool, opts ...session.Option) *Runner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{registry: reg, logger: logger, stream: stream, options: opts}
}

// Run executes sections through exec, normally the caller's transaction.
// Examples the store cannot express are logged and skipped; any other error
// stops the run.
func (r *Runner) Run(ctx context.Context, exec dbexec.QueryExecutor, dialect *planner.Dialect, sections []Section) ([]Result, error) {
	opts := append([]session.Option{session.WithLogger(r.logger)}, r.options...)
	s := session.New(exec, dialect, opts...)

	var results []Result
	for _, section := range sections {
		r.logger.Info(section.Title, slog.String("section", section.Name))
		for _, ex := range section.Examples {
			log := r.logger.WithFields(slog.String("example", ex.ID))
			log.Info(ex.Title)

			q := ex.Build(r.registry)
			rows, err := r.execute(ctx, s, q)
			if errors.Is(err, dbexec.ErrUnsupportedOperation) {
				log.Warn("skipped on this store", slog.String("dialect", dialect.Name), slog.String("reason", err.Error()))
				results = append(results, Result{Section: section.Name, Example: ex, Query: q, Skipped: err})
				continue
			}
			if err != nil {
				return results, fmt.Errorf("%s %s: %w", ex.ID, ex.Title, err)
			}
			for _, row := range rows {
				logRow(log, q, row, ex.Nested)
			}
			results = append(results, Result{Section: section.Name, Example: ex, Query: q, Rows: rows})
		}
	}
	return results, nil
}

func (r *Runner) execute(ctx context.Context, s *session.Session, q *criteria.Query) ([]*session.ResultRow, error) {
	if !r.stream {
		return s.List(ctx, q)
	}
	st, err := s.Stream(ctx, q)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	var rows []*session.ResultRow
	for st.Next() {
		rows = append(rows, st.Row())
	}
	return rows, st.Err()
}

func logRow(log *logging.Logger, q *criteria.Query, row *session.ResultRow, nested []string) {
	log.Info("row", slog.String("values", row.String()))
	for _, path := range nested {
		entity, association, ok := strings.Cut(path, ".")
		if !ok {
			continue
		}
		for _, src := range q.Sources() {
			if src.Entity() == nil || src.Entity().Name != entity {
				continue
			}
			parent, err := row.Entity(src)
			if err != nil || parent == nil {
				continue
			}
			for _, member := range parent.Collection(association) {
				log.Info("    "+association, slog.String("values", member.String()))
			}
		}
	}
}

// Rendered is the SQL of one example for one dialect.
type Rendered struct {
	Section string
	Example Example
	SQL     string
	Args    []interface{}
	Err     error
}

// Render renders sections for dialect without executing them. Render errors
// are reported per example.
func Render(reg *mapping.Registry, dialect *planner.Dialect, sections []Section) []Rendered {
	var out []Rendered
	for _, section := range sections {
		for _, ex := range section.Examples {
			r := Rendered{Section: section.Name, Example: ex}
			plan, err := planner.Render(ex.Build(reg), dialect)
			if err != nil {
				r.Err = err
			} else {
				r.SQL, r.Args = plan.Query.SQL, plan.Query.Args
			}
			out = append(out, r)
		}
	}
	return out
}
