package session

import (
	"errors"
	"fmt"
	"strings"

	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/planner"
)

// ErrNotSelected is returned when a row is asked for an expression or source
// that is not part of the query's select list.
var ErrNotSelected = errors.New("not selected")

// ResultRow is one tuple of a query result. Items are addressed by the
// expression or source handle used to build the query, or by position.
type ResultRow struct {
	plan  *planner.Plan
	items []any
}

// Len is the number of select-list items.
func (r *ResultRow) Len() int { return len(r.items) }

// At returns item i: a scalar value, or an *Entity for whole-entity items.
func (r *ResultRow) At(i int) any { return r.items[i] }

// Values returns the items in select-list order.
func (r *ResultRow) Values() []any { return append([]any(nil), r.items...) }

// Get returns the value of a selected expression. Lookup is by handle
// identity; a path also matches a selected path on the same source and
// attribute, and an attribute of a selected entity.
func (r *ResultRow) Get(e criteria.Expression) (any, error) {
	for i, item := range r.plan.Items {
		if item.Expr == nil {
			continue
		}
		if item.Expr == e || criteria.Unalias(item.Expr) == e {
			return r.items[i], nil
		}
	}
	path, ok := e.(*criteria.PathExpr)
	if !ok {
		return nil, fmt.Errorf("session: %s: %w", e, ErrNotSelected)
	}
	for i, item := range r.plan.Items {
		if item.Expr != nil {
			if p, ok := criteria.Unalias(item.Expr).(*criteria.PathExpr); ok && p.SameColumn(path) {
				return r.items[i], nil
			}
			continue
		}
		if item.Entity.Source == path.Source {
			ent, _ := r.items[i].(*Entity)
			if ent == nil {
				return nil, nil
			}
			if ent.Has(path.Attribute) {
				return ent.Get(path.Attribute), nil
			}
		}
	}
	return nil, fmt.Errorf("session: %s: %w", e, ErrNotSelected)
}

// Entity returns the entity materialized for a selected source. It is nil
// when an outer join left the source unmatched.
func (r *ResultRow) Entity(src *criteria.Source) (*Entity, error) {
	for i, item := range r.plan.Items {
		if item.Entity != nil && item.Entity.Source == src {
			ent, _ := r.items[i].(*Entity)
			return ent, nil
		}
	}
	return nil, fmt.Errorf("session: source %s: %w", src.Alias(), ErrNotSelected)
}

func (r *ResultRow) String() string {
	parts := make([]string, len(r.items))
	for i, v := range r.items {
		parts[i] = fmt.Sprint(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Value returns a selected expression converted to T. NULL yields the zero
// value of T.
func Value[T any](r *ResultRow, e criteria.Expression) (T, error) {
	var zero T
	v, err := r.Get(e)
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("session: %s holds %T, not %T", e, v, zero)
	}
	return t, nil
}
