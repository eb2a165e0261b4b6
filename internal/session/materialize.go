package session

import (
	"fmt"
	"strings"

	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/dbexec"
	"sqlcriteria/internal/mapping"
	"sqlcriteria/internal/planner"
	"sqlcriteria/internal/sqltype"
)

// scanRow reads the current row and normalizes every column to its kind.
func scanRow(rows dbexec.Rows, plan *planner.Plan) ([]any, error) {
	values := make([]any, len(plan.Kinds))
	valuePtrs := make([]any, len(plan.Kinds))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return nil, err
	}
	for i, kind := range plan.Kinds {
		v, err := sqltype.Normalize(kind, values[i])
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i+1, err)
		}
		values[i] = v
	}
	return values, nil
}

// buildRow turns normalized column values into a result row, attaching fetched
// associations to their parent entities.
func buildRow(plan *planner.Plan, values []any) *ResultRow {
	row := &ResultRow{plan: plan, items: make([]any, len(plan.Items))}
	bySource := make(map[*criteria.Source]*Entity)
	for i, item := range plan.Items {
		if item.Entity == nil {
			row.items[i] = values[item.Index]
			continue
		}
		ent := buildEntity(item.Entity, values)
		if ent != nil {
			row.items[i] = ent
		}
		if _, ok := bySource[item.Entity.Source]; !ok {
			bySource[item.Entity.Source] = ent
		}
	}

	for _, ec := range plan.Fetches {
		parent := bySource[ec.Source.Parent()]
		child := buildEntity(ec, values)
		if parent != nil {
			assoc := ec.Source.Association()
			if assoc.Kind == mapping.ManyToOne {
				parent.setRef(assoc.Name, child)
			} else {
				child = parent.addMember(assoc.Name, child)
			}
		}
		bySource[ec.Source] = child
	}
	return row
}

// buildEntity returns nil when the primary key column is NULL, which is how an
// unmatched outer join shows up.
func buildEntity(ec *planner.EntityColumns, values []any) *Entity {
	if values[ec.KeyIndex()] == nil {
		return nil
	}
	ent := newEntity(ec.Source.Entity())
	for _, f := range ec.Fields {
		ent.set(f.Attribute, values[f.Index])
	}
	return ent
}

// rowKey identifies a result row by its scalar values and the primary keys of
// its entities. Rows with equal keys differ only in fetched associations.
func rowKey(row *ResultRow) string {
	var b strings.Builder
	for _, v := range row.items {
		if ent, ok := v.(*Entity); ok {
			b.WriteString("entity:" + idKey(ent.ID()))
		} else {
			b.WriteString(idKey(v))
		}
		b.WriteByte('|')
	}
	return b.String()
}

// mergeRow folds the fetched associations of src into dst.
func mergeRow(dst, src *ResultRow) {
	for i, v := range src.items {
		if ent, ok := v.(*Entity); ok {
			if target, ok := dst.items[i].(*Entity); ok {
				target.merge(ent)
			}
		}
	}
}

// collapser merges rows that repeat the same parent because of a one-to-many
// fetch, keeping the order in which parents first appear.
type collapser struct {
	rows  []*ResultRow
	index map[string]*ResultRow
	// merged counts rows folded into an earlier one.
	merged int64
}

func newCollapser() *collapser {
	return &collapser{index: make(map[string]*ResultRow)}
}

// add returns true when row starts a new result row.
func (c *collapser) add(row *ResultRow) bool {
	key := rowKey(row)
	if existing, ok := c.index[key]; ok {
		mergeRow(existing, row)
		c.merged++
		return false
	}
	c.index[key] = row
	c.rows = append(c.rows, row)
	return true
}
