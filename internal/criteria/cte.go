package criteria

import (
	"strings"

	"sqlcriteria/internal/sqltype"
)

// CteDefinition is a named common table expression registered on a query.
// A recursive definition is rendered as base UNION ALL step; the store
// iterates the step until it yields no new rows.
type CteDefinition struct {
	Name      string
	Base      *Query
	Step      *Query
	Recursive bool
	columns   []Column
	owner     *Query
}

// Columns returns the column names and kinds taken from the base aliases.
func (c *CteDefinition) Columns() []Column { return c.columns }

// ColumnNames returns the column names in select order.
func (c *CteDefinition) ColumnNames() []string {
	names := make([]string, len(c.columns))
	for i, col := range c.columns {
		names[i] = col.Name
	}
	return names
}

func (c *CteDefinition) String() string {
	s := c.Name + "(" + strings.Join(c.ColumnNames(), ", ") + ") as " + c.Base.Describe().String()
	if c.Step != nil {
		s += " union all " + c.Step.Describe().String()
	}
	return s
}

// With registers a non-recursive CTE. Every select item of body must be aliased.
func (q *Query) With(name string, body *Query) *CteDefinition {
	cte := &CteDefinition{Name: name, Base: body, owner: q}
	q.addCte(cte)
	return cte
}

// WithRecursiveUnionAll registers a recursive CTE. step receives the CTE as a
// source of a fresh query (self.Query()) and returns the recursive member,
// normally that same query. Its select list must match the base in arity and
// kinds, and it may reference no CTE other than its own.
func (q *Query) WithRecursiveUnionAll(name string, base *Query, step func(self *Source) *Query) *CteDefinition {
	cte := &CteDefinition{Name: name, Base: base, Recursive: true, owner: q}
	if !q.addCte(cte) {
		return cte
	}

	// The step is a separate SELECT that cannot correlate, so it gets its own
	// alias scope.
	stepQuery := &Query{registry: q.registry, scope: newAliasScope(), detached: true}
	self := stepQuery.register(&Source{
		kind:    CteSource,
		alias:   stepQuery.entityAlias(name),
		cte:     cte,
		columns: cte.columns,
	})
	if step != nil {
		cte.Step = step(self)
	}
	if cte.Step == nil {
		q.fail(buildError(ErrCteShape, name, "recursive cte needs a step query"))
		return cte
	}
	cte.Step.detached = true
	if err := cte.checkStep(); err != nil {
		q.fail(err)
	}
	return cte
}

func (q *Query) addCte(cte *CteDefinition) bool {
	if cte.Name == "" || !isIdentifier(cte.Name) {
		q.fail(buildError(ErrCteShape, cte.Name, "cte name must be a plain identifier"))
		return false
	}
	if !q.scope.reserve(cte.Name) {
		q.fail(buildError(ErrCteShape, cte.Name, "name is already in use"))
		return false
	}
	if cte.Base == nil {
		q.fail(buildError(ErrCteShape, cte.Name, "cte needs a base query"))
		return false
	}
	cte.Base.detached = true
	cols, err := aliasedColumns(cte.Base, cte.Name)
	if err != nil {
		q.fail(buildError(ErrCteShape, cte.Name, "%s", err.(*BuildError).Message))
		return false
	}
	cte.columns = cols
	if references(cte.Base, cte) {
		q.fail(buildError(ErrCteShape, cte.Name, "base query must not reference the cte itself"))
	}
	q.ctes = append(q.ctes, cte)
	return true
}

func (c *CteDefinition) checkStep() error {
	step := c.Step
	if !references(step, c) {
		return buildError(ErrCteShape, c.Name, "step query does not reference the cte")
	}
	for _, s := range step.sources {
		if s.kind == CteSource && s.cte != c {
			return buildError(ErrCteShape, c.Name, "step query references another cte %s", s.cte.Name)
		}
	}
	if len(step.selections) != len(c.columns) {
		return buildError(ErrCteShape, c.Name, "step selects %d columns, base selects %d",
			len(step.selections), len(c.columns))
	}
	for i, sel := range step.selections {
		if sel.Expr == nil {
			return buildError(ErrCteShape, c.Name, "step select item %d is an entity", i+1)
		}
		if !sqltype.Comparable(c.columns[i].Kind, sel.Expr.Kind()) {
			return buildError(ErrCteShape, c.Name, "step column %d is %s, base column %s is %s",
				i+1, sel.Expr.Kind(), c.columns[i].Name, c.columns[i].Kind)
		}
	}
	return nil
}

func references(q *Query, c *CteDefinition) bool {
	for _, s := range q.sources {
		if s.kind == CteSource && s.cte == c {
			return true
		}
	}
	return false
}

// FromCte registers an instance of a CTE as a source. The same CTE may be
// registered several times; every instance is an independent cross-joined
// row source. An empty alias is derived from the CTE name.
func (q *Query) FromCte(cte *CteDefinition, alias string) *Source {
	s := &Source{kind: CteSource, cte: cte, alias: alias}
	if cte == nil {
		q.fail(buildError(ErrUnboundSource, alias, "cte is nil"))
		return q.register(s)
	}
	s.columns = cte.columns
	if !q.visibleCte(cte) {
		q.fail(buildError(ErrUnboundSource, cte.Name, "cte is not registered on this query or an enclosing one"))
	}
	switch {
	case alias == "":
		s.alias = q.entityAlias(cte.Name)
	case !q.scope.reserve(alias):
		q.fail(buildError(ErrDerivedAlias, alias, "alias is already in use"))
	}
	return q.register(s)
}

func (q *Query) visibleCte(cte *CteDefinition) bool {
	for cur := q; cur != nil; cur = cur.parent {
		if cte.owner == cur {
			return true
		}
	}
	return false
}
