// Package criteria builds type-checked query trees: expressions, predicates,
// sources and queries. Nodes are immutable values created by constructor
// functions; a Query records the sources it owns and validates the whole tree
// before it is rendered.
//
// Node fields are exported so renderers can inspect them. They must be
// treated as read-only.
package criteria

import (
	"fmt"
	"strings"
	"time"

	"sqlcriteria/internal/sqltype"
)

// Expression is a typed scalar node. The same Expression value is the key used
// to read its column back from a result row, so identity matters.
type Expression interface {
	Kind() sqltype.Kind
	String() string
	buildErr() error
}

type node struct {
	kind sqltype.Kind
	err  error
}

func (n *node) Kind() sqltype.Kind { return n.kind }

func (n *node) buildErr() error { return n.err }

// LiteralExpr is a constant value. A nil Value renders as NULL.
type LiteralExpr struct {
	node
	Value any
}

// Literal wraps a Go value. The kind is inferred from the value type.
func Literal(v any) Expression {
	return &LiteralExpr{node: node{kind: sqltype.KindOf(v)}, Value: v}
}

// Null returns a typed NULL literal.
func Null(kind sqltype.Kind) Expression {
	return &LiteralExpr{node: node{kind: kind}}
}

func (e *LiteralExpr) String() string {
	switch v := e.Value.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// PathExpr references a column of a registered source. For many-to-one
// associations the column is the join column and the kind is the target's
// primary key kind.
type PathExpr struct {
	node
	Source    *Source
	Attribute string
	Column    string
}

func (e *PathExpr) String() string {
	return e.Source.Alias() + "." + e.Attribute
}

// SameColumn reports whether two paths address the same column of the same source.
func (e *PathExpr) SameColumn(other *PathExpr) bool {
	return other != nil && e.Source == other.Source && e.Column == other.Column
}

// ArithOp is an arithmetic operator.
type ArithOp string

const (
	OpAdd ArithOp = "+"
	OpSub ArithOp = "-"
	OpMul ArithOp = "*"
	OpDiv ArithOp = "/"
	OpMod ArithOp = "%"
	OpNeg ArithOp = "neg"
)

// ArithExpr is a binary arithmetic operation, or unary negation when Op is OpNeg.
type ArithExpr struct {
	node
	Op    ArithOp
	Left  Expression
	Right Expression
}

func (e *ArithExpr) String() string {
	if e.Op == OpNeg {
		return "-(" + e.Left.String() + ")"
	}
	return "(" + e.Left.String() + " " + string(e.Op) + " " + e.Right.String() + ")"
}

func arith(op ArithOp, left, right Expression) Expression {
	kind, ok := sqltype.Arithmetic(left.Kind(), right.Kind())
	e := &ArithExpr{node: node{kind: kind}, Op: op, Left: left, Right: right}
	if !ok {
		e.err = buildError(ErrTypeMismatch, e.String(), "operator %s is not defined for %s and %s",
			op, left.Kind(), right.Kind())
	}
	return e
}

// Sum returns left + right.
func Sum(left, right Expression) Expression { return arith(OpAdd, left, right) }

// Diff returns left - right.
func Diff(left, right Expression) Expression { return arith(OpSub, left, right) }

// Prod returns left * right.
func Prod(left, right Expression) Expression { return arith(OpMul, left, right) }

// Quot returns left / right. Integer division semantics are the store's.
func Quot(left, right Expression) Expression { return arith(OpDiv, left, right) }

// Mod returns the remainder of left / right.
func Mod(left, right Expression) Expression {
	e := arith(OpMod, left, right).(*ArithExpr)
	if e.err == nil && (!intLike(left.Kind()) || !intLike(right.Kind())) {
		e.err = buildError(ErrTypeMismatch, e.String(), "mod requires integer operands")
	}
	return e
}

// Neg returns -operand.
func Neg(operand Expression) Expression {
	e := &ArithExpr{node: node{kind: operand.Kind()}, Op: OpNeg, Left: operand}
	if k := operand.Kind(); k != sqltype.Unknown && !k.Numeric() {
		e.err = buildError(ErrTypeMismatch, e.String(), "cannot negate %s", k)
	}
	return e
}

func intLike(k sqltype.Kind) bool {
	return k == sqltype.Integer || k == sqltype.Unknown
}

// AliasExpr names a select item. Derived tables and CTEs expose their columns
// under these names.
type AliasExpr struct {
	node
	Expr  Expression
	Alias string
}

// As names expr. The alias is quoted when rendered.
func As(expr Expression, alias string) Expression {
	e := &AliasExpr{node: node{kind: expr.Kind()}, Expr: expr, Alias: alias}
	if alias == "" {
		e.err = buildError(ErrDerivedAlias, expr.String(), "alias must not be empty")
	}
	return e
}

func (e *AliasExpr) String() string {
	return e.Expr.String() + " as " + e.Alias
}

// CastExpr converts a value to another kind.
type CastExpr struct {
	node
	Expr Expression
}

// Cast converts expr to kind.
func Cast(expr Expression, kind sqltype.Kind) Expression {
	e := &CastExpr{node: node{kind: kind}, Expr: expr}
	if kind == sqltype.Unknown {
		e.err = buildError(ErrTypeMismatch, expr.String(), "cast target kind is unknown")
	}
	return e
}

func (e *CastExpr) String() string {
	return "cast(" + e.Expr.String() + " as " + e.kind.String() + ")"
}

// SubqueryExpr is a scalar subquery: exactly one select item, at most one row.
type SubqueryExpr struct {
	node
	Query *Query
}

// ScalarSubquery uses q as a value. q should come from Query.Subquery so it
// can correlate with the enclosing query.
func ScalarSubquery(q *Query) Expression {
	return &SubqueryExpr{node: node{kind: q.scalarKind()}, Query: q}
}

func (e *SubqueryExpr) String() string {
	return "(" + e.Query.Describe().String() + ")"
}

// AggregateExpr is an aggregate function over a group.
type AggregateExpr struct {
	node
	Func     string
	Arg      Expression
	Distinct bool
}

func aggregate(fn string, arg Expression, distinct bool, kind sqltype.Kind) *AggregateExpr {
	return &AggregateExpr{node: node{kind: kind}, Func: fn, Arg: arg, Distinct: distinct}
}

func (e *AggregateExpr) String() string {
	arg := "*"
	if e.Arg != nil {
		arg = e.Arg.String()
	}
	if e.Distinct {
		arg = "distinct " + arg
	}
	return e.Func + "(" + arg + ")"
}

// SumOf aggregates the sum of a numeric expression.
func SumOf(expr Expression) Expression {
	kind := expr.Kind()
	e := aggregate("sum", expr, false, kind)
	if kind != sqltype.Unknown && !kind.Numeric() {
		e.err = buildError(ErrTypeMismatch, e.String(), "sum requires a numeric operand, got %s", kind)
	}
	return e
}

// Avg aggregates the average of a numeric expression.
func Avg(expr Expression) Expression {
	e := aggregate("avg", expr, false, sqltype.Float)
	if k := expr.Kind(); k != sqltype.Unknown && !k.Numeric() {
		e.err = buildError(ErrTypeMismatch, e.String(), "avg requires a numeric operand, got %s", k)
	}
	return e
}

// Count counts non-null values of expr, or rows when expr is nil.
func Count(expr Expression) Expression {
	return aggregate("count", expr, false, sqltype.Integer)
}

// CountDistinct counts distinct non-null values of expr.
func CountDistinct(expr Expression) Expression {
	return aggregate("count", expr, true, sqltype.Integer)
}

// Min aggregates the minimum value.
func Min(expr Expression) Expression {
	return aggregate("min", expr, false, expr.Kind())
}

// Max aggregates the maximum value.
func Max(expr Expression) Expression {
	return aggregate("max", expr, false, expr.Kind())
}

// IsAggregate reports whether e is an aggregate call.
func IsAggregate(e Expression) bool {
	_, ok := e.(*AggregateExpr)
	return ok
}

// Unalias strips any alias wrappers from e.
func Unalias(e Expression) Expression {
	for {
		a, ok := e.(*AliasExpr)
		if !ok {
			return e
		}
		e = a.Expr
	}
}

// SourcesOf lists the sources whose columns e reads directly. Subqueries are
// not searched.
func SourcesOf(e Expression) []*Source {
	var out []*Source
	seen := make(map[*Source]bool)
	walk(e, func(e Expression) {
		if p, ok := e.(*PathExpr); ok && !seen[p.Source] {
			seen[p.Source] = true
			out = append(out, p.Source)
		}
	}, nil)
	return out
}

// walk visits e and every operand below it. Subqueries are passed to onQuery
// instead of being descended into.
func walk(e Expression, onExpr func(Expression), onQuery func(*Query)) {
	if e == nil {
		return
	}
	onExpr(e)
	switch n := e.(type) {
	case *ArithExpr:
		walk(n.Left, onExpr, onQuery)
		walk(n.Right, onExpr, onQuery)
	case *AliasExpr:
		walk(n.Expr, onExpr, onQuery)
	case *CastExpr:
		walk(n.Expr, onExpr, onQuery)
	case *AggregateExpr:
		walk(n.Arg, onExpr, onQuery)
	case *FuncExpr:
		for _, arg := range n.Args {
			walk(arg, onExpr, onQuery)
		}
	case *CaseExpr:
		walk(n.Operand, onExpr, onQuery)
		for _, w := range n.Whens {
			walk(w.Cond, onExpr, onQuery)
			walk(w.Result, onExpr, onQuery)
		}
		walk(n.Else, onExpr, onQuery)
	case *SubqueryExpr:
		if onQuery != nil {
			onQuery(n.Query)
		}
	case *ComparisonPred:
		walk(n.Left, onExpr, onQuery)
		walk(n.Right, onExpr, onQuery)
	case *BetweenPred:
		walk(n.Expr, onExpr, onQuery)
		walk(n.Low, onExpr, onQuery)
		walk(n.High, onExpr, onQuery)
	case *LikePred:
		walk(n.Expr, onExpr, onQuery)
		walk(n.Pattern, onExpr, onQuery)
	case *InPred:
		walk(n.Expr, onExpr, onQuery)
		for _, v := range n.Values {
			walk(v, onExpr, onQuery)
		}
		if n.Subquery != nil && onQuery != nil {
			onQuery(n.Subquery)
		}
	case *NullPred:
		walk(n.Expr, onExpr, onQuery)
	case *ExistsPred:
		if onQuery != nil {
			onQuery(n.Subquery)
		}
	case *JunctionPred:
		for _, p := range n.Preds {
			walk(p, onExpr, onQuery)
		}
	case *NotPred:
		walk(n.Pred, onExpr, onQuery)
	case *BoolPred:
		walk(n.Expr, onExpr, onQuery)
	}
}

func describeList(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
