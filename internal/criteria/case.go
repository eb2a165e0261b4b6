package criteria

import (
	"strings"

	"sqlcriteria/internal/sqltype"
)

// CaseExpr is a completed CASE expression. Operand is nil for a searched
// CASE; for a simple CASE each When.Cond is the value compared with Operand.
type CaseExpr struct {
	node
	Operand Expression
	Whens   []When
	Else    Expression
}

// When is one branch of a CASE expression.
type When struct {
	Cond   Expression
	Result Expression
}

func (e *CaseExpr) String() string {
	var b strings.Builder
	b.WriteString("case")
	if e.Operand != nil {
		b.WriteString(" " + e.Operand.String())
	}
	for _, w := range e.Whens {
		b.WriteString(" when " + w.Cond.String() + " then " + w.Result.String())
	}
	b.WriteString(" else " + e.Else.String() + " end")
	return b.String()
}

// CaseBuilder accumulates CASE branches. It is not an Expression: only
// Otherwise completes it, so a CASE without a default branch cannot be used.
type CaseBuilder struct {
	operand Expression
	whens   []When
	kind    sqltype.Kind
	err     error
}

// SimpleCase starts a CASE that compares operand with each When value.
func SimpleCase(operand Expression) *CaseBuilder {
	return &CaseBuilder{operand: operand}
}

// SearchedCase starts a CASE whose branches are predicates.
func SearchedCase() *CaseBuilder {
	return &CaseBuilder{}
}

// When adds a branch. For a simple CASE cond is a value comparable with the
// operand; for a searched CASE it must be a Predicate.
func (b *CaseBuilder) When(cond, result Expression) *CaseBuilder {
	next := &CaseBuilder{
		operand: b.operand,
		whens:   append(append([]When(nil), b.whens...), When{Cond: cond, Result: result}),
		kind:    b.kind,
		err:     b.err,
	}
	if next.err != nil {
		return next
	}
	if b.operand != nil {
		if !sqltype.Comparable(b.operand.Kind(), cond.Kind()) {
			next.err = buildError(ErrTypeMismatch, cond.String(), "case operand %s is not comparable with %s",
				b.operand.Kind(), cond.Kind())
			return next
		}
	} else if _, ok := cond.(Predicate); !ok {
		next.err = buildError(ErrTypeMismatch, cond.String(), "searched case branch must be a predicate")
		return next
	}
	next.kind, next.err = widenBranch(next.kind, len(b.whens) == 0, result)
	return next
}

// Otherwise completes the CASE with its default branch.
func (b *CaseBuilder) Otherwise(result Expression) Expression {
	e := &CaseExpr{Operand: b.operand, Whens: b.whens, Else: result}
	e.err = b.err
	kind, err := widenBranch(b.kind, len(b.whens) == 0, result)
	if e.err == nil {
		e.err = err
	}
	if e.err == nil && len(b.whens) == 0 {
		e.err = buildError(ErrTypeMismatch, e.String(), "case needs at least one when branch")
	}
	e.kind = kind
	return e
}

func widenBranch(kind sqltype.Kind, first bool, result Expression) (sqltype.Kind, error) {
	if first {
		return result.Kind(), nil
	}
	widened, ok := sqltype.Widest(kind, result.Kind())
	if !ok {
		return kind, buildError(ErrTypeMismatch, result.String(), "case branch of kind %s does not match %s",
			result.Kind(), kind)
	}
	return widened, nil
}
