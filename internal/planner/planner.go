// Package planner renders validated criteria queries into parameterized SQL
// for a specific store dialect. Rendering is deterministic: the same query and
// dialect always produce the same statement, with joins emitted in source
// registration order.
package planner

import (
	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/sqltype"
)

// SQLQuery represents a planned SQL statement with bound args.
type SQLQuery struct {
	SQL  string
	Args []interface{}
}

// FieldColumn locates one attribute of an entity in the result row.
type FieldColumn struct {
	Attribute string
	Kind      sqltype.Kind
	Index     int
}

// EntityColumns is the slice of result columns that materializes one entity
// source.
type EntityColumns struct {
	Source *criteria.Source
	Fields []FieldColumn
	// PK is the position in Fields of the primary key attribute.
	PK int
}

// KeyIndex returns the result column holding the primary key.
func (e *EntityColumns) KeyIndex() int { return e.Fields[e.PK].Index }

// Item is the layout of one select-list item: a single column for a scalar
// expression or a run of columns for an entity.
type Item struct {
	Expr   criteria.Expression
	Index  int
	Entity *EntityColumns
}

// Plan is a rendered statement together with the layout needed to read its
// rows back.
type Plan struct {
	Query SQLQuery
	// Kinds holds the kind of every result column.
	Kinds []sqltype.Kind
	Items []Item
	// Fetches holds the fetched sources in registration order. Each one is
	// attached to the entity of its parent source.
	Fetches []*EntityColumns
	// Collapse is set when a collection fetch fans parent rows out, so rows
	// sharing the same parent keys must be merged.
	Collapse bool
}

// Render validates q and renders it for d.
func Render(q *criteria.Query, d *Dialect) (*Plan, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if len(q.Selections()) == 0 {
		return nil, &criteria.BuildError{
			Err:       criteria.ErrInvalidSelection,
			Construct: "select",
			Message:   "query selects nothing and has no single root to select implicitly",
		}
	}

	r := &renderer{d: d}
	plan := &Plan{}
	builder, err := r.selectStatement(q, plan)
	if err != nil {
		return nil, err
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	// Nested statements render with question marks; the dialect's format is
	// applied once to the whole statement.
	if query, err = d.placeholder.ReplacePlaceholders(query); err != nil {
		return nil, err
	}
	plan.Query = SQLQuery{SQL: query, Args: args}
	return plan, nil
}
