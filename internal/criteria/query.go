package criteria

import (
	"sqlcriteria/internal/mapping"
	"sqlcriteria/internal/sqltype"
)

// LockMode selects pessimistic locking for the rows read by a query.
type LockMode int

const (
	LockNone LockMode = iota
	LockForUpdate
)

func (m LockMode) String() string {
	if m == LockForUpdate {
		return "for_update"
	}
	return "none"
}

// Order is one ORDER BY item.
type Order struct {
	Expr Expression
	Desc bool
}

// Asc orders by expr ascending.
func Asc(expr Expression) Order { return Order{Expr: expr} }

// Desc orders by expr descending.
func Desc(expr Expression) Order { return Order{Expr: expr, Desc: true} }

// Selection is one select-list item: either a scalar expression or a whole
// entity source.
type Selection struct {
	Expr   Expression
	Source *Source
}

// IsEntity reports whether the item materializes a whole entity.
func (s Selection) IsEntity() bool { return s.Source != nil }

func (s Selection) String() string {
	if s.Source != nil {
		return "entity(" + s.Source.alias + ")"
	}
	return s.Expr.String()
}

// Query is the aggregate root of one statement. The builder methods mutate
// the query in place and return it for chaining; errors found while building
// are recorded and reported together by Validate.
type Query struct {
	registry *mapping.Registry
	parent   *Query
	// detached queries (derived tables, CTE members) cannot see the sources
	// of enclosing queries.
	detached bool
	scope    *aliasScope

	sources    []*Source
	selections []Selection
	where      []Predicate
	groupBy    []Expression
	having     []Predicate
	orderBy    []Order
	lock       LockMode
	distinct   bool
	limit      *uint64
	offset     *uint64
	ctes       []*CteDefinition

	errs []error
}

// NewQuery starts a top-level query over the entities of reg.
func NewQuery(reg *mapping.Registry) *Query {
	return &Query{registry: reg, scope: newAliasScope()}
}

// Subquery returns a nested query correlated with q: its expressions may
// reference q's sources, never the reverse.
func (q *Query) Subquery() *Query {
	return &Query{registry: q.registry, parent: q, scope: q.scope}
}

func (q *Query) Registry() *mapping.Registry { return q.registry }

// Parent returns the enclosing query of a subquery.
func (q *Query) Parent() *Query { return q.parent }

func (q *Query) fail(err error) {
	q.errs = append(q.errs, err)
}

// sees reports whether expressions of q may reference src.
func (q *Query) sees(src *Source) bool {
	for cur := q; cur != nil; cur = cur.parent {
		if src.query == cur {
			return true
		}
		if cur.detached {
			return false
		}
	}
	return false
}

func (q *Query) register(s *Source) *Source {
	s.query = q
	q.sources = append(q.sources, s)
	return s
}

func (q *Query) entityAlias(name string) string {
	return q.scope.next(q.registry.Namer().Alias(name))
}

// From registers a root for the named entity. Later roots are cross joined.
func (q *Query) From(entity string) *Source {
	e, err := q.registry.Entity(entity)
	if err != nil {
		q.fail(buildError(ErrUnknownEntity, entity, "entity is not mapped"))
		return q.register(&Source{kind: RootSource, alias: q.scope.next("t"), entity: &mapping.Entity{Name: entity}})
	}
	return q.register(&Source{kind: RootSource, alias: q.entityAlias(e.Name), entity: e})
}

// Join joins target to parent. When target names an association of parent the
// ON condition comes from the mapping and conditions are AND-ed to it.
// Otherwise target must name an entity and at least one condition is
// required.
func (q *Query) Join(parent *Source, target string, jt JoinType, conditions ...JoinCondition) *Source {
	if parent == nil || parent.query != q {
		q.fail(buildError(ErrUnboundSource, target, "join parent is not registered in this query"))
	}

	s := &Source{kind: JoinSource, parent: parent, joinType: jt}
	var assoc *mapping.Association
	if parent != nil && parent.entity != nil {
		assoc, _ = parent.entity.Association(target)
	}

	switch {
	case assoc != nil:
		targetEntity, cols, err := q.registry.Lookup(parent.entity.Name, target)
		if err != nil {
			q.fail(buildError(ErrUnknownAttribute, parent.alias+"."+target, "%v", err))
			targetEntity = &mapping.Entity{Name: assoc.Target}
		}
		s.entity, s.assoc, s.joinCols = targetEntity, assoc, cols
	default:
		targetEntity, err := q.registry.Entity(target)
		if err != nil {
			construct := target
			if parent != nil {
				construct = parent.alias + "." + target
			}
			q.fail(buildError(ErrUnknownAttribute, construct, "neither an association nor a mapped entity"))
			targetEntity = &mapping.Entity{Name: target}
		} else if len(conditions) == 0 {
			q.fail(buildError(ErrMissingJoinCondition, target, "join to an unrelated entity needs an on condition"))
		}
		s.entity = targetEntity
	}

	s.alias = q.entityAlias(s.entity.Name)
	q.register(s)
	q.applyConditions(s, conditions)
	return s
}

func (q *Query) applyConditions(s *Source, conditions []JoinCondition) {
	var preds []Predicate
	for _, cond := range conditions {
		if cond == nil {
			continue
		}
		if p := cond(s); p != nil {
			preds = append(preds, p)
		}
	}
	if len(preds) > 0 {
		s.on = And(preds...)
	}
}

// Fetch eagerly loads association onto parent's materialized entity. Fetching
// a path that an earlier join or fetch already covers reuses that source.
func (q *Query) Fetch(parent *Source, association string, jt JoinType) *Source {
	if parent == nil || parent.query != q {
		q.fail(buildError(ErrUnboundSource, association, "fetch parent is not registered in this query"))
		return q.register(&Source{kind: FetchSource, alias: q.scope.next("f"), parent: parent, fetched: true,
			entity: &mapping.Entity{Name: association}})
	}
	for _, s := range q.sources {
		if s.parent == parent && s.assoc != nil && s.assoc.Name == association &&
			(s.kind == JoinSource || s.kind == FetchSource) {
			s.fetched = true
			return s
		}
	}

	s := &Source{kind: FetchSource, parent: parent, joinType: jt, fetched: true}
	if parent.entity == nil || (parent.kind != RootSource && parent.kind != JoinSource && parent.kind != FetchSource) {
		q.fail(buildError(ErrInvalidFetch, parent.alias+"."+association, "only entity sources can fetch associations"))
		s.entity = &mapping.Entity{Name: association}
	} else if target, cols, err := q.registry.Lookup(parent.entity.Name, association); err != nil {
		q.fail(buildError(ErrUnknownAttribute, parent.alias+"."+association, "%v", err))
		s.entity = &mapping.Entity{Name: association}
	} else {
		s.entity, s.joinCols = target, cols
		s.assoc, _ = parent.entity.Association(association)
	}
	s.alias = q.entityAlias(s.entity.Name)
	return q.register(s)
}

// FromSubquery uses sub as a derived table. Every select item of sub must be
// aliased with As; the aliases become the columns of the returned source.
// sub must be fully built before it is registered.
func (q *Query) FromSubquery(sub *Query, alias string) *Source {
	s := &Source{kind: DerivedSource, derived: sub, alias: alias}
	if alias == "" {
		q.fail(buildError(ErrDerivedAlias, "derived", "derived table needs an alias"))
		s.alias = q.scope.next("d")
	} else if !q.scope.reserve(alias) {
		q.fail(buildError(ErrDerivedAlias, alias, "alias is already in use"))
	}
	sub.detached = true

	cols, err := aliasedColumns(sub, s.alias)
	if err != nil {
		q.fail(err)
	}
	s.columns = cols
	return q.register(s)
}

// aliasedColumns derives the column list of a derived table or CTE member.
func aliasedColumns(sub *Query, construct string) ([]Column, error) {
	if len(sub.selections) == 0 {
		return nil, buildError(ErrDerivedAlias, construct, "subquery selects nothing")
	}
	cols := make([]Column, 0, len(sub.selections))
	seen := make(map[string]bool, len(sub.selections))
	for i, sel := range sub.selections {
		a, ok := sel.Expr.(*AliasExpr)
		if !ok {
			return nil, buildError(ErrDerivedAlias, construct, "select item %d (%s) has no alias", i+1, sel)
		}
		if seen[a.Alias] {
			return nil, buildError(ErrDerivedAlias, construct, "duplicate column alias %q", a.Alias)
		}
		seen[a.Alias] = true
		cols = append(cols, Column{Name: a.Alias, Kind: a.Kind()})
	}
	return cols, nil
}

// Select appends scalar items to the select list.
func (q *Query) Select(exprs ...Expression) *Query {
	for _, e := range exprs {
		q.selections = append(q.selections, Selection{Expr: e})
	}
	return q
}

// SelectEntity appends a whole-entity item. src must be an entity source of q.
func (q *Query) SelectEntity(src *Source) *Query {
	switch {
	case src == nil || src.query != q:
		q.fail(buildError(ErrUnboundSource, "select", "selected source is not registered in this query"))
	case src.entity == nil:
		q.fail(buildError(ErrInvalidSelection, src.alias, "%s sources cannot be selected as entities", src.kind))
	}
	q.selections = append(q.selections, Selection{Source: src})
	return q
}

// Where adds predicates. All predicates of a query are AND-ed.
func (q *Query) Where(preds ...Predicate) *Query {
	for _, p := range preds {
		if p != nil {
			q.where = append(q.where, p)
		}
	}
	return q
}

// GroupBy appends grouping expressions.
func (q *Query) GroupBy(exprs ...Expression) *Query {
	q.groupBy = append(q.groupBy, exprs...)
	return q
}

// GroupByEntity groups by every mapped column of an entity source.
func (q *Query) GroupByEntity(src *Source) *Query {
	if src == nil || src.entity == nil {
		q.fail(buildError(ErrInvalidSelection, "group by", "only entity sources can be grouped as a whole"))
		return q
	}
	q.groupBy = append(q.groupBy, src.Fields()...)
	return q
}

// Having adds group predicates. It requires a non-empty group by, checked by
// Validate.
func (q *Query) Having(preds ...Predicate) *Query {
	for _, p := range preds {
		if p != nil {
			q.having = append(q.having, p)
		}
	}
	return q
}

// OrderBy appends ordering items.
func (q *Query) OrderBy(orders ...Order) *Query {
	q.orderBy = append(q.orderBy, orders...)
	return q
}

// Lock sets the lock mode. The lock lasts until the caller's transaction ends.
func (q *Query) Lock(mode LockMode) *Query {
	q.lock = mode
	return q
}

// Distinct removes duplicate rows.
func (q *Query) Distinct() *Query {
	q.distinct = true
	return q
}

// Limit caps the number of rows.
func (q *Query) Limit(n uint64) *Query {
	q.limit = &n
	return q
}

// Offset skips rows.
func (q *Query) Offset(n uint64) *Query {
	q.offset = &n
	return q
}

// Sources returns the registered sources in registration order.
func (q *Query) Sources() []*Source { return q.sources }

// Roots returns the root sources in registration order.
func (q *Query) Roots() []*Source {
	var roots []*Source
	for _, s := range q.sources {
		if s.kind == RootSource {
			roots = append(roots, s)
		}
	}
	return roots
}

// Selections returns the select list. A query with an empty select list and a
// single root implicitly selects that root.
func (q *Query) Selections() []Selection {
	if len(q.selections) > 0 {
		return q.selections
	}
	if roots := q.Roots(); len(roots) == 1 && len(q.derivedAndCteSources()) == 0 {
		return []Selection{{Source: roots[0]}}
	}
	return nil
}

func (q *Query) derivedAndCteSources() []*Source {
	var out []*Source
	for _, s := range q.sources {
		if s.kind == DerivedSource || s.kind == CteSource {
			out = append(out, s)
		}
	}
	return out
}

// Restriction returns the conjunction of all where predicates, or nil.
func (q *Query) Restriction() Predicate {
	if len(q.where) == 0 {
		return nil
	}
	return And(q.where...)
}

// GroupList returns the group-by expressions.
func (q *Query) GroupList() []Expression { return q.groupBy }

// GroupRestriction returns the conjunction of all having predicates, or nil.
func (q *Query) GroupRestriction() Predicate {
	if len(q.having) == 0 {
		return nil
	}
	return And(q.having...)
}

func (q *Query) Orders() []Order { return q.orderBy }

func (q *Query) LockMode() LockMode { return q.lock }

func (q *Query) IsDistinct() bool { return q.distinct }

// LimitValue returns the row limit, if one is set.
func (q *Query) LimitValue() (uint64, bool) {
	if q.limit == nil {
		return 0, false
	}
	return *q.limit, true
}

// OffsetValue returns the row offset, if one is set.
func (q *Query) OffsetValue() (uint64, bool) {
	if q.offset == nil {
		return 0, false
	}
	return *q.offset, true
}

// Ctes returns the CTE definitions registered on q.
func (q *Query) Ctes() []*CteDefinition { return q.ctes }

// Fetches returns the fetched sources in registration order.
func (q *Query) Fetches() []*Source {
	var out []*Source
	for _, s := range q.sources {
		if s.fetched {
			out = append(out, s)
		}
	}
	return out
}

// scalarKind is the kind of a single-item select list, or Unknown.
func (q *Query) scalarKind() sqltype.Kind {
	if len(q.selections) == 1 && q.selections[0].Expr != nil {
		return q.selections[0].Expr.Kind()
	}
	return sqltype.Unknown
}
