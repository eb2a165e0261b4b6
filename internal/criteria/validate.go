package criteria

import (
	"errors"
)

// Validate checks the whole query tree and returns every build error found,
// joined. Subqueries, derived tables and CTE members are validated too.
func (q *Query) Validate() error {
	v := &validator{seen: make(map[string]bool), visited: make(map[*Query]bool)}
	v.query(q)
	return errors.Join(v.errs...)
}

type validator struct {
	errs    []error
	seen    map[string]bool
	visited map[*Query]bool
}

func (v *validator) add(err error) {
	if err == nil {
		return
	}
	key := err.Error()
	if v.seen[key] {
		return
	}
	v.seen[key] = true
	v.errs = append(v.errs, err)
}

func (v *validator) query(q *Query) {
	if q == nil || v.visited[q] {
		return
	}
	v.visited[q] = true

	for _, err := range q.errs {
		v.add(err)
	}
	for _, cte := range q.ctes {
		v.query(cte.Base)
		v.query(cte.Step)
	}
	for _, s := range q.sources {
		if s.on != nil {
			v.expr(q, s.on)
		}
		if s.derived != nil {
			v.query(s.derived)
		}
	}
	for _, sel := range q.selections {
		if sel.Expr != nil {
			v.expr(q, sel.Expr)
		}
	}
	for _, p := range q.where {
		v.expr(q, p)
	}
	for _, e := range q.groupBy {
		v.expr(q, e)
	}
	for _, p := range q.having {
		v.expr(q, p)
	}
	for _, o := range q.orderBy {
		v.expr(q, o.Expr)
	}

	if len(q.having) > 0 && len(q.groupBy) == 0 {
		v.add(buildError(ErrHavingWithoutGroupBy, q.GroupRestriction().String(), "having requires a group by"))
	}
	v.lock(q)
	v.fetches(q)
}

func (v *validator) expr(q *Query, e Expression) {
	walk(e, func(n Expression) {
		v.add(n.buildErr())
		switch x := n.(type) {
		case *PathExpr:
			if !q.sees(x.Source) {
				v.add(buildError(ErrUnboundSource, x.String(), "source %s is not visible from this query", x.Source.alias))
			}
		case *SubqueryExpr:
			v.scalar(x.Query, x.String())
		case *InPred:
			if x.Subquery != nil {
				v.scalar(x.Subquery, x.String())
			}
		}
	}, v.query)
}

// scalar checks that a subquery used as a value selects exactly one column.
func (v *validator) scalar(sub *Query, construct string) {
	if len(sub.selections) != 1 || sub.selections[0].Expr == nil {
		v.add(buildError(ErrInvalidSelection, construct, "subquery used as a value must select exactly one expression"))
	}
}

func (v *validator) lock(q *Query) {
	if q.lock != LockForUpdate {
		return
	}
	sels := q.Selections()
	if len(sels) != 1 || sels[0].Source == nil || sels[0].Source.kind != RootSource {
		v.add(buildError(ErrInvalidLockTarget, "for update", "locking requires a single root entity in the select list"))
	}
}

// fetches checks that every fetch hangs, directly or through other fetches,
// from an entity in the select list.
func (v *validator) fetches(q *Query) {
	selected := make(map[*Source]bool)
	for _, sel := range q.Selections() {
		if sel.Source != nil {
			selected[sel.Source] = true
		}
	}
	for _, s := range q.sources {
		if !s.fetched {
			continue
		}
		owner := s.owner()
		if !selected[owner] {
			v.add(buildError(ErrInvalidFetch, s.alias, "fetch owner %s is not selected as an entity", owner.alias))
		}
	}
}
