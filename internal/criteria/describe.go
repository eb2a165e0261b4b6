package criteria

import (
	"strconv"
	"strings"
)

// Description is the structural shape of a query: what it selects, where the
// rows come from and how they are filtered, grouped and ordered. It is
// independent of any dialect and stable across calls for the same query.
type Description struct {
	Ctes       []string
	Selections []string
	Sources    []string
	Where      string
	GroupBy    []string
	Having     string
	OrderBy    []string
	Distinct   bool
	Lock       LockMode
	Limit      string
	Offset     string
}

// Arity is the number of select-list items.
func (d Description) Arity() int { return len(d.Selections) }

func (d Description) String() string {
	var b strings.Builder
	if len(d.Ctes) > 0 {
		b.WriteString("with[" + strings.Join(d.Ctes, "; ") + "] ")
	}
	b.WriteString("select")
	if d.Distinct {
		b.WriteString(" distinct")
	}
	b.WriteString("[" + strings.Join(d.Selections, ", ") + "]")
	b.WriteString(" from[" + strings.Join(d.Sources, ", ") + "]")
	if d.Where != "" {
		b.WriteString(" where[" + d.Where + "]")
	}
	if len(d.GroupBy) > 0 {
		b.WriteString(" group[" + strings.Join(d.GroupBy, ", ") + "]")
	}
	if d.Having != "" {
		b.WriteString(" having[" + d.Having + "]")
	}
	if len(d.OrderBy) > 0 {
		b.WriteString(" order[" + strings.Join(d.OrderBy, ", ") + "]")
	}
	if d.Limit != "" {
		b.WriteString(" limit[" + d.Limit + "]")
	}
	if d.Offset != "" {
		b.WriteString(" offset[" + d.Offset + "]")
	}
	if d.Lock != LockNone {
		b.WriteString(" lock[" + d.Lock.String() + "]")
	}
	return b.String()
}

// Describe returns the structural description of q.
func (q *Query) Describe() Description {
	d := Description{Distinct: q.distinct, Lock: q.lock}
	for _, cte := range q.ctes {
		d.Ctes = append(d.Ctes, cte.String())
	}
	for _, sel := range q.Selections() {
		d.Selections = append(d.Selections, sel.String())
	}
	for _, s := range q.sources {
		d.Sources = append(d.Sources, s.String())
	}
	if p := q.Restriction(); p != nil {
		d.Where = p.String()
	}
	for _, e := range q.groupBy {
		d.GroupBy = append(d.GroupBy, e.String())
	}
	if p := q.GroupRestriction(); p != nil {
		d.Having = p.String()
	}
	for _, o := range q.orderBy {
		dir := "asc"
		if o.Desc {
			dir = "desc"
		}
		d.OrderBy = append(d.OrderBy, o.Expr.String()+" "+dir)
	}
	if n, ok := q.LimitValue(); ok {
		d.Limit = strconv.FormatUint(n, 10)
	}
	if n, ok := q.OffsetValue(); ok {
		d.Offset = strconv.FormatUint(n, 10)
	}
	return d
}
