package criteria

import (
	"fmt"

	"sqlcriteria/internal/mapping"
	"sqlcriteria/internal/sqltype"
)

// SourceKind distinguishes the ways rows enter a query.
type SourceKind int

const (
	RootSource SourceKind = iota + 1
	JoinSource
	FetchSource
	DerivedSource
	CteSource
)

func (k SourceKind) String() string {
	switch k {
	case RootSource:
		return "root"
	case JoinSource:
		return "join"
	case FetchSource:
		return "fetch"
	case DerivedSource:
		return "derived"
	case CteSource:
		return "cte"
	default:
		return "unknown"
	}
}

// JoinType selects inner or left outer join semantics.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
)

func (t JoinType) String() string {
	if t == LeftJoin {
		return "left"
	}
	return "inner"
}

// Column is a named, typed column exposed by a derived table or CTE.
type Column struct {
	Name string
	Kind sqltype.Kind
}

// JoinCondition builds an extra ON predicate once the joined source exists.
type JoinCondition func(joined *Source) Predicate

// Source is a handle on a row source registered in exactly one Query. Its
// identity is stable for the lifetime of that query.
type Source struct {
	kind     SourceKind
	query    *Query
	alias    string
	entity   *mapping.Entity
	parent   *Source
	assoc    *mapping.Association
	joinType JoinType
	joinCols []mapping.JoinColumn
	on       Predicate
	fetched  bool
	derived  *Query
	cte      *CteDefinition
	columns  []Column
	paths    map[string]*PathExpr
}

func (s *Source) Kind() SourceKind { return s.kind }
func (s *Source) Alias() string { return s.alias }
func (s *Source) Query() *Query { return s.query }
func (s *Source) Entity() *mapping.Entity { return s.entity }
func (s *Source) Parent() *Source { return s.parent }
func (s *Source) Association() *mapping.Association { return s.assoc }
func (s *Source) JoinType() JoinType { return s.joinType }
func (s *Source) JoinColumns() []mapping.JoinColumn { return s.joinCols }
func (s *Source) On() Predicate { return s.on }
func (s *Source) Derived() *Query { return s.derived }
func (s *Source) Cte() *CteDefinition { return s.cte }

// Fetched reports whether the source is folded into its parent's entity.
// A plain join becomes fetched when a later Fetch reuses it.
func (s *Source) Fetched() bool { return s.fetched }

// Columns returns the columns of a derived table or CTE source.
func (s *Source) Columns() []Column { return s.columns }

// Get returns the path expression for attr. Entity sources accept field names,
// many-to-one association names (their join column) and "assoc.<target pk>".
// Derived and CTE sources accept their column aliases. Repeated calls return
// the same expression.
func (s *Source) Get(attr string) Expression {
	if p, ok := s.paths[attr]; ok {
		return p
	}
	column, kind, err := s.resolve(attr)
	p := &PathExpr{node: node{kind: kind}, Source: s, Attribute: attr, Column: column}
	if err != nil {
		p.err = err
		return p
	}
	if s.paths == nil {
		s.paths = make(map[string]*PathExpr)
	}
	s.paths[attr] = p
	return p
}

func (s *Source) resolve(attr string) (string, sqltype.Kind, error) {
	if s.entity == nil {
		for _, c := range s.columns {
			if c.Name == attr {
				return c.Name, c.Kind, nil
			}
		}
		return "", sqltype.Unknown, buildError(ErrUnknownAttribute, s.alias+"."+attr,
			"%s source %s has no column %q", s.kind, s.alias, attr)
	}
	if f, ok := s.entity.Field(attr); ok {
		return f.Column, f.Kind, nil
	}
	name, nested := attr, ""
	for i := range attr {
		if attr[i] == '.' {
			name, nested = attr[:i], attr[i+1:]
			break
		}
	}
	if a, ok := s.entity.Association(name); ok && a.Kind == mapping.ManyToOne {
		target, err := s.query.registry.Entity(a.Target)
		if err == nil && (nested == "" || nested == target.PrimaryKey) {
			return a.JoinColumn, target.PrimaryKeyField().Kind, nil
		}
	}
	return "", sqltype.Unknown, buildError(ErrUnknownAttribute, s.alias+"."+attr,
		"entity %s has no attribute %q", s.entity.Name, attr)
}

// Fields returns the path of every mapped column of an entity source in
// mapping order: fields first, then many-to-one join columns.
func (s *Source) Fields() []Expression {
	if s.entity == nil {
		out := make([]Expression, 0, len(s.columns))
		for _, c := range s.columns {
			out = append(out, s.Get(c.Name))
		}
		return out
	}
	out := make([]Expression, 0, len(s.entity.Fields)+len(s.entity.Associations))
	for _, f := range s.entity.Fields {
		out = append(out, s.Get(f.Name))
	}
	for _, a := range s.entity.Associations {
		if a.Kind == mapping.ManyToOne {
			out = append(out, s.Get(a.Name))
		}
	}
	return out
}

// ID returns the primary key path of an entity source.
func (s *Source) ID() Expression {
	if s.entity == nil {
		return s.Get("id")
	}
	return s.Get(s.entity.PrimaryKey)
}

func (s *Source) String() string {
	switch s.kind {
	case RootSource:
		return s.entity.Name + " " + s.alias
	case JoinSource, FetchSource:
		target := s.entity.Name
		if s.assoc != nil {
			target = s.parent.alias + "." + s.assoc.Name
		}
		out := fmt.Sprintf("%s %s %s %s", s.joinType, s.kind, target, s.alias)
		if s.fetched && s.kind == JoinSource {
			out += " fetched"
		}
		if s.on != nil {
			out += " on " + s.on.String()
		}
		return out
	case DerivedSource:
		return "derived(" + s.derived.Describe().String() + ") " + s.alias
	case CteSource:
		return "cte " + s.cte.Name + " " + s.alias
	default:
		return s.alias
	}
}

// owner walks up fetched parents to the source whose entity the fetch graph
// hangs from.
func (s *Source) owner() *Source {
	cur := s
	for cur.fetched && cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// aliasScope hands out unique aliases across a query tree.
type aliasScope struct {
	used map[string]bool
}

func newAliasScope() *aliasScope {
	return &aliasScope{used: make(map[string]bool)}
}

func (a *aliasScope) next(base string) string {
	if !a.used[base] {
		a.used[base] = true
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", base, n)
		if !a.used[candidate] {
			a.used[candidate] = true
			return candidate
		}
	}
}

func (a *aliasScope) reserve(alias string) bool {
	if a.used[alias] {
		return false
	}
	a.used[alias] = true
	return true
}
