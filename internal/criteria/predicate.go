package criteria

import (
	"strings"

	"sqlcriteria/internal/sqltype"
)

// Predicate is a boolean-valued Expression.
type Predicate interface {
	Expression
	predicate()
}

type predNode struct {
	node
}

func (predNode) predicate() {}

func newPredNode() predNode {
	return predNode{node: node{kind: sqltype.Bool}}
}

// value wraps plain Go values as literals so predicates accept both
// expressions and constants on the right-hand side.
func value(v any) Expression {
	if e, ok := v.(Expression); ok {
		return e
	}
	return Literal(v)
}

// CompareOp is a comparison operator.
type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "<>"
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
)

// ComparisonPred compares two values.
type ComparisonPred struct {
	predNode
	Op    CompareOp
	Left  Expression
	Right Expression
}

func (p *ComparisonPred) String() string {
	return "(" + p.Left.String() + " " + string(p.Op) + " " + p.Right.String() + ")"
}

func compare(op CompareOp, left Expression, right any) Predicate {
	r := value(right)
	p := &ComparisonPred{predNode: newPredNode(), Op: op, Left: left, Right: r}
	if !sqltype.Comparable(left.Kind(), r.Kind()) {
		p.err = buildError(ErrTypeMismatch, p.String(), "cannot compare %s with %s", left.Kind(), r.Kind())
	}
	return p
}

// Equal, NotEqual and the ordering comparisons accept an Expression or a plain
// value on the right.
func Equal(left Expression, right any) Predicate { return compare(OpEq, left, right) }
func NotEqual(left Expression, right any) Predicate { return compare(OpNe, left, right) }
func GreaterThan(left Expression, right any) Predicate { return compare(OpGt, left, right) }
func GreaterOrEqual(left Expression, right any) Predicate { return compare(OpGe, left, right) }
func LessThan(left Expression, right any) Predicate { return compare(OpLt, left, right) }
func LessOrEqual(left Expression, right any) Predicate { return compare(OpLe, left, right) }

// BetweenPred tests low <= expr <= high.
type BetweenPred struct {
	predNode
	Expr Expression
	Low  Expression
	High Expression
}

func (p *BetweenPred) String() string {
	return "between(" + p.Expr.String() + ", " + p.Low.String() + ", " + p.High.String() + ")"
}

// Between tests low <= expr <= high.
func Between(expr Expression, low, high any) Predicate {
	p := &BetweenPred{predNode: newPredNode(), Expr: expr, Low: value(low), High: value(high)}
	for _, bound := range []Expression{p.Low, p.High} {
		if !sqltype.Comparable(expr.Kind(), bound.Kind()) {
			p.err = buildError(ErrTypeMismatch, p.String(), "cannot compare %s with %s", expr.Kind(), bound.Kind())
			break
		}
	}
	return p
}

// LikePred matches a string against a pattern. Escape is zero when no escape
// character is declared.
type LikePred struct {
	predNode
	Expr    Expression
	Pattern Expression
	Escape  rune
	Negated bool
}

func (p *LikePred) String() string {
	op := "like"
	if p.Negated {
		op = "not like"
	}
	s := "(" + p.Expr.String() + " " + op + " " + p.Pattern.String()
	if p.Escape != 0 {
		s += " escape " + string(p.Escape)
	}
	return s + ")"
}

// WithEscape returns a copy of p that declares escape as the LIKE escape character.
func (p *LikePred) WithEscape(escape rune) *LikePred {
	cp := *p
	cp.Escape = escape
	if escape == '\'' && cp.err == nil {
		cp.err = buildError(ErrTypeMismatch, cp.String(), "quote cannot be used as escape character")
	}
	return &cp
}

func like(expr Expression, pattern any, negated bool) *LikePred {
	pat := value(pattern)
	p := &LikePred{predNode: newPredNode(), Expr: expr, Pattern: pat, Negated: negated}
	for _, e := range []Expression{expr, pat} {
		if k := e.Kind(); k != sqltype.Unknown && !k.Textual() {
			p.err = buildError(ErrTypeMismatch, p.String(), "like operands must be strings, got %s", k)
			break
		}
	}
	return p
}

// Like matches expr against a pattern with % and _ wildcards.
func Like(expr Expression, pattern any) *LikePred { return like(expr, pattern, false) }

// NotLike is the negation of Like.
func NotLike(expr Expression, pattern any) *LikePred { return like(expr, pattern, true) }

// InPred tests membership in a literal set or in the rows of a subquery.
type InPred struct {
	predNode
	Expr     Expression
	Values   []Expression
	Subquery *Query
	Negated  bool
}

func (p *InPred) String() string {
	op := "in"
	if p.Negated {
		op = "not in"
	}
	var list string
	if p.Subquery != nil {
		list = p.Subquery.Describe().String()
	} else {
		list = describeList(p.Values)
	}
	return "(" + p.Expr.String() + " " + op + " (" + list + "))"
}

func in(expr Expression, negated bool, values []any) Predicate {
	p := &InPred{predNode: newPredNode(), Expr: expr, Negated: negated}
	for _, v := range values {
		p.Values = append(p.Values, value(v))
	}
	if len(p.Values) == 0 {
		p.err = buildError(ErrTypeMismatch, p.String(), "in needs at least one value")
		return p
	}
	for _, v := range p.Values {
		if !sqltype.Comparable(expr.Kind(), v.Kind()) {
			p.err = buildError(ErrTypeMismatch, p.String(), "cannot compare %s with %s", expr.Kind(), v.Kind())
			break
		}
	}
	return p
}

// In tests whether expr equals one of values.
func In(expr Expression, values ...any) Predicate { return in(expr, false, values) }

// NotIn is the negation of In.
func NotIn(expr Expression, values ...any) Predicate { return in(expr, true, values) }

func inSubquery(expr Expression, sub *Query, negated bool) Predicate {
	p := &InPred{predNode: newPredNode(), Expr: expr, Subquery: sub, Negated: negated}
	if k := sub.scalarKind(); !sqltype.Comparable(expr.Kind(), k) {
		p.err = buildError(ErrTypeMismatch, p.String(), "cannot compare %s with subquery of %s", expr.Kind(), k)
	}
	return p
}

// InSubquery tests whether expr is among the values selected by sub.
func InSubquery(expr Expression, sub *Query) Predicate { return inSubquery(expr, sub, false) }

// NotInSubquery is the negation of InSubquery.
func NotInSubquery(expr Expression, sub *Query) Predicate { return inSubquery(expr, sub, true) }

// NullPred tests for NULL.
type NullPred struct {
	predNode
	Expr    Expression
	Negated bool
}

func (p *NullPred) String() string {
	if p.Negated {
		return "(" + p.Expr.String() + " is not null)"
	}
	return "(" + p.Expr.String() + " is null)"
}

// IsNull tests whether expr is NULL.
func IsNull(expr Expression) Predicate {
	return &NullPred{predNode: newPredNode(), Expr: expr}
}

// IsNotNull tests whether expr is not NULL.
func IsNotNull(expr Expression) Predicate {
	return &NullPred{predNode: newPredNode(), Expr: expr, Negated: true}
}

// ExistsPred tests whether a (usually correlated) subquery yields any row.
type ExistsPred struct {
	predNode
	Subquery *Query
	Negated  bool
}

func (p *ExistsPred) String() string {
	op := "exists"
	if p.Negated {
		op = "not exists"
	}
	return op + "(" + p.Subquery.Describe().String() + ")"
}

// Exists tests whether sub yields at least one row.
func Exists(sub *Query) Predicate {
	return &ExistsPred{predNode: newPredNode(), Subquery: sub}
}

// NotExists tests whether sub yields no rows.
func NotExists(sub *Query) Predicate {
	return &ExistsPred{predNode: newPredNode(), Subquery: sub, Negated: true}
}

// JunctionOp joins predicates.
type JunctionOp string

const (
	OpAnd JunctionOp = "and"
	OpOr  JunctionOp = "or"
)

// JunctionPred is an n-ary AND or OR. An empty AND is true and an empty OR is
// false.
type JunctionPred struct {
	predNode
	Op    JunctionOp
	Preds []Predicate
}

func (p *JunctionPred) String() string {
	parts := make([]string, len(p.Preds))
	for i, pred := range p.Preds {
		parts[i] = pred.String()
	}
	return string(p.Op) + "(" + strings.Join(parts, ", ") + ")"
}

func junction(op JunctionOp, preds []Predicate) Predicate {
	flat := make([]Predicate, 0, len(preds))
	for _, pred := range preds {
		if pred == nil {
			continue
		}
		if j, ok := pred.(*JunctionPred); ok && j.Op == op {
			flat = append(flat, j.Preds...)
			continue
		}
		flat = append(flat, pred)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &JunctionPred{predNode: newPredNode(), Op: op, Preds: flat}
}

// And conjoins preds, flattening nested conjunctions.
func And(preds ...Predicate) Predicate { return junction(OpAnd, preds) }

// Or disjoins preds, flattening nested disjunctions.
func Or(preds ...Predicate) Predicate { return junction(OpOr, preds) }

// NotPred negates a predicate.
type NotPred struct {
	predNode
	Pred Predicate
}

func (p *NotPred) String() string {
	return "not(" + p.Pred.String() + ")"
}

// Not wraps pred. Negating a double negation unwraps it again, so a chain of
// Not calls never nests more than two layers deep.
func Not(pred Predicate) Predicate {
	if outer, ok := pred.(*NotPred); ok {
		if inner, ok := outer.Pred.(*NotPred); ok {
			return inner
		}
	}
	return &NotPred{predNode: newPredNode(), Pred: pred}
}

// BoolPred uses a boolean expression as a predicate.
type BoolPred struct {
	predNode
	Expr Expression
}

func (p *BoolPred) String() string {
	return "is_true(" + p.Expr.String() + ")"
}

// IsTrue turns a boolean expression into a predicate.
func IsTrue(expr Expression) Predicate {
	if p, ok := expr.(Predicate); ok {
		return p
	}
	p := &BoolPred{predNode: newPredNode(), Expr: expr}
	if k := expr.Kind(); k != sqltype.Unknown && k != sqltype.Bool {
		p.err = buildError(ErrTypeMismatch, p.String(), "expected a boolean, got %s", k)
	}
	return p
}

// Depth returns the number of NotPred layers wrapped directly around a
// non-negated predicate.
func Depth(pred Predicate) int {
	n := 0
	for {
		np, ok := pred.(*NotPred)
		if !ok {
			return n
		}
		n++
		pred = np.Pred
	}
}
