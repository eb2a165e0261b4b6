package planner

import (
	"strconv"

	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/dbexec"
	"sqlcriteria/internal/mapping"

	sq "github.com/Masterminds/squirrel"
)

// selectStatement renders the top-level query and fills in the plan layout.
func (r *renderer) selectStatement(q *criteria.Query, plan *Plan) (sq.SelectBuilder, error) {
	b := sq.Select()
	col := 0
	for _, sel := range q.Selections() {
		if sel.Source != nil {
			ec := r.entityColumns(sel.Source, &col, plan)
			b = r.appendEntityColumns(b, ec)
			plan.Items = append(plan.Items, Item{Entity: ec})
			continue
		}
		f, err := r.selectItem(sel.Expr)
		if err != nil {
			return b, err
		}
		b = b.Column(f)
		plan.Kinds = append(plan.Kinds, sel.Expr.Kind())
		plan.Items = append(plan.Items, Item{Expr: sel.Expr, Index: col})
		col++
	}
	for _, s := range q.Fetches() {
		ec := r.entityColumns(s, &col, plan)
		b = r.appendEntityColumns(b, ec)
		plan.Fetches = append(plan.Fetches, ec)
		if a := s.Association(); a != nil && a.Kind == mapping.OneToMany {
			plan.Collapse = true
		}
	}

	orders := q.Orders()
	if plan.Collapse {
		orders = collapseOrders(orders, plan)
	}
	return r.body(b, q, orders)
}

// collapseOrders adds the primary key of every materialized entity to the
// query's orderings so the rows of one parent are adjacent. Owner keys go in
// ahead of the first ordering that reads a fetched source; an owner key the
// query orders by later keeps its direction and moves up.
func collapseOrders(orders []criteria.Order, plan *Plan) []criteria.Order {
	fetched := make(map[*criteria.Source]bool)
	for _, ec := range plan.Fetches {
		fetched[ec.Source] = true
	}
	requested := make(map[criteria.Expression]criteria.Order)
	for _, o := range orders {
		e := criteria.Unalias(o.Expr)
		if _, ok := requested[e]; !ok {
			requested[e] = o
		}
	}

	var out []criteria.Order
	emitted := make(map[criteria.Expression]bool)
	key := func(ec *EntityColumns) {
		id := ec.Source.ID()
		if emitted[id] {
			return
		}
		emitted[id] = true
		o := criteria.Asc(id)
		if prev, ok := requested[id]; ok {
			o.Desc = prev.Desc
		}
		out = append(out, o)
	}
	owners := func() {
		for _, item := range plan.Items {
			if item.Entity != nil {
				key(item.Entity)
			}
		}
	}

	ownersDone := false
	for _, o := range orders {
		e := criteria.Unalias(o.Expr)
		if emitted[e] {
			continue
		}
		if !ownersDone && readsAny(e, fetched) {
			owners()
			ownersDone = true
		}
		emitted[e] = true
		out = append(out, o)
	}
	if !ownersDone {
		owners()
	}
	for _, ec := range plan.Fetches {
		key(ec)
	}
	return out
}

func readsAny(e criteria.Expression, sources map[*criteria.Source]bool) bool {
	for _, s := range criteria.SourcesOf(e) {
		if sources[s] {
			return true
		}
	}
	return false
}

func (r *renderer) entityColumns(s *criteria.Source, col *int, plan *Plan) *EntityColumns {
	ec := &EntityColumns{Source: s}
	for _, e := range s.Fields() {
		path := e.(*criteria.PathExpr)
		if path.Attribute == s.Entity().PrimaryKey {
			ec.PK = len(ec.Fields)
		}
		ec.Fields = append(ec.Fields, FieldColumn{Attribute: path.Attribute, Kind: path.Kind(), Index: *col})
		plan.Kinds = append(plan.Kinds, path.Kind())
		*col++
	}
	return ec
}

func (r *renderer) appendEntityColumns(b sq.SelectBuilder, ec *EntityColumns) sq.SelectBuilder {
	for _, e := range ec.Source.Fields() {
		path := e.(*criteria.PathExpr)
		b = b.Column(raw(r.column(path.Source.Alias(), path.Column)))
	}
	return b
}

func (r *renderer) selectItem(e criteria.Expression) (fragment, error) {
	if a, ok := e.(*criteria.AliasExpr); ok {
		inner, err := r.expr(a.Expr)
		if err != nil {
			return fragment{}, err
		}
		return compose(inner, " AS "+r.d.quoteIdent(a.Alias)), nil
	}
	return r.expr(e)
}

// nestedStatement renders a subquery, derived table or CTE member.
func (r *renderer) nestedStatement(q *criteria.Query, exists bool) (sq.SelectBuilder, error) {
	b := sq.Select()
	if exists {
		b = b.Column("1")
		return r.body(b, q, q.Orders())
	}
	sels := q.Selections()
	if len(sels) == 0 {
		return b, &criteria.BuildError{
			Err:       criteria.ErrInvalidSelection,
			Construct: q.Describe().String(),
			Message:   "subquery selects nothing",
		}
	}
	for _, sel := range sels {
		if sel.Source != nil {
			for _, e := range sel.Source.Fields() {
				path := e.(*criteria.PathExpr)
				b = b.Column(raw(r.column(path.Source.Alias(), path.Column)))
			}
			continue
		}
		f, err := r.selectItem(sel.Expr)
		if err != nil {
			return b, err
		}
		b = b.Column(f)
	}
	return r.body(b, q, q.Orders())
}

func (r *renderer) statement(q *criteria.Query) (fragment, error) {
	b, err := r.nestedStatement(q, false)
	if err != nil {
		return fragment{}, err
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return fragment{}, err
	}
	return fragment{sql: sql, args: args}, nil
}

// body renders everything after the select list.
func (r *renderer) body(b sq.SelectBuilder, q *criteria.Query, orders []criteria.Order) (sq.SelectBuilder, error) {
	var err error
	if b, err = r.with(b, q); err != nil {
		return b, err
	}
	if q.IsDistinct() {
		b = b.Distinct()
	}
	if b, err = r.from(b, q); err != nil {
		return b, err
	}

	if where := q.Restriction(); where != nil {
		f, err := r.pred(where)
		if err != nil {
			return b, err
		}
		b = b.Where(f)
	}

	if groups := q.GroupList(); len(groups) > 0 {
		g := &renderer{d: r.d, inline: true}
		items := make([]string, len(groups))
		for i, e := range groups {
			f, err := g.expr(e)
			if err != nil {
				return b, err
			}
			items[i] = f.sql
		}
		b = b.GroupBy(items...)
	}
	if having := q.GroupRestriction(); having != nil {
		f, err := r.pred(having)
		if err != nil {
			return b, err
		}
		b = b.Having(f)
	}

	for _, o := range orders {
		f, err := r.expr(o.Expr)
		if err != nil {
			return b, err
		}
		if o.Desc {
			f = compose(f, " DESC")
		}
		b = b.OrderByClause(f)
	}

	limit, hasLimit := q.LimitValue()
	offset, hasOffset := q.OffsetValue()
	if hasLimit {
		b = b.Limit(limit)
	}
	if hasOffset {
		if !hasLimit && r.d.offsetLimit != "" {
			b = b.Suffix("LIMIT " + r.d.offsetLimit + " OFFSET " + strconv.FormatUint(offset, 10))
		} else {
			b = b.Offset(offset)
		}
	}

	if q.LockMode() == criteria.LockForUpdate {
		if r.d.forUpdate == nil {
			return b, dbexec.Unsupported("for update", "%s has no row locks", r.d.Name)
		}
		b = b.Suffix(r.d.forUpdate(q.Selections()[0].Source.Alias()))
	}
	return b, nil
}

func (r *renderer) with(b sq.SelectBuilder, q *criteria.Query) (sq.SelectBuilder, error) {
	ctes := q.Ctes()
	if len(ctes) == 0 {
		return b, nil
	}
	recursive := false
	defs := make([]fragment, 0, len(ctes))
	for _, cte := range ctes {
		body, err := r.statement(cte.Base)
		if err != nil {
			return b, err
		}
		if cte.Step != nil {
			step, err := r.statement(cte.Step)
			if err != nil {
				return b, err
			}
			body = compose(body, " UNION ALL ", step)
		}
		recursive = recursive || cte.Recursive

		names := cte.ColumnNames()
		cols := make([]fragment, len(names))
		for i, name := range names {
			cols[i] = raw(r.d.quoteIdent(name))
		}
		defs = append(defs, compose(r.d.quoteIdent(cte.Name)+"(", joinFragments(cols, ", "), ") AS (", body, ")"))
	}
	prefix := "WITH "
	if recursive {
		prefix = "WITH RECURSIVE "
	}
	return b.PrefixExpr(compose(prefix, joinFragments(defs, ", "))), nil
}

// from renders the sources in registration order. The first root, derived
// table or CTE instance is the FROM item; later ones are cross joined.
func (r *renderer) from(b sq.SelectBuilder, q *criteria.Query) (sq.SelectBuilder, error) {
	first := true
	for _, s := range q.Sources() {
		switch s.Kind() {
		case criteria.RootSource, criteria.CteSource:
			ref := r.tableRef(s)
			if first {
				b = b.From(ref)
			} else {
				b = b.JoinClause(raw("CROSS JOIN " + ref))
			}
			first = false
		case criteria.DerivedSource:
			sub, err := r.nestedStatement(s.Derived(), false)
			if err != nil {
				return b, err
			}
			if first {
				b = b.FromSelect(sub, r.d.quoteIdent(s.Alias()))
			} else {
				sql, args, err := sub.ToSql()
				if err != nil {
					return b, err
				}
				b = b.JoinClause(fragment{sql: "CROSS JOIN (" + sql + ") AS " + r.d.quoteIdent(s.Alias()), args: args})
			}
			first = false
		case criteria.JoinSource, criteria.FetchSource:
			f, err := r.join(s)
			if err != nil {
				return b, err
			}
			b = b.JoinClause(f)
		}
	}
	return b, nil
}

func (r *renderer) tableRef(s *criteria.Source) string {
	if s.Kind() == criteria.CteSource {
		return r.d.quoteIdent(s.Cte().Name) + " " + r.d.quoteIdent(s.Alias())
	}
	return r.d.quoteIdent(s.Entity().Table) + " " + r.d.quoteIdent(s.Alias())
}

func (r *renderer) join(s *criteria.Source) (fragment, error) {
	keyword := "INNER JOIN "
	if s.JoinType() == criteria.LeftJoin {
		keyword = "LEFT JOIN "
	}
	var conds []fragment
	for _, jc := range s.JoinColumns() {
		conds = append(conds, raw("("+r.column(s.Parent().Alias(), jc.Local)+" = "+r.column(s.Alias(), jc.Remote)+")"))
	}
	if on := s.On(); on != nil {
		f, err := r.pred(on)
		if err != nil {
			return fragment{}, err
		}
		conds = append(conds, f)
	}
	if len(conds) == 0 {
		conds = append(conds, raw("(1=1)"))
	}
	return compose(keyword+r.tableRef(s)+" ON ", joinFragments(conds, " AND ")), nil
}
