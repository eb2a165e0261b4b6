package planner

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/dbexec"
	"sqlcriteria/internal/sqltype"
)

type renderer struct {
	d *Dialect
	// inline renders literals as SQL text instead of placeholders. GROUP BY
	// items are rendered this way because the statement builder takes them
	// as plain strings.
	inline bool
}

func (r *renderer) column(alias, column string) string {
	return r.d.quoteIdent(alias) + "." + r.d.quoteIdent(column)
}

func (r *renderer) expr(e criteria.Expression) (fragment, error) {
	if p, ok := e.(criteria.Predicate); ok {
		return r.pred(p)
	}
	switch n := e.(type) {
	case *criteria.LiteralExpr:
		return r.literal(n)
	case *criteria.PathExpr:
		return raw(r.column(n.Source.Alias(), n.Column)), nil
	case *criteria.AliasExpr:
		return r.expr(n.Expr)
	case *criteria.ArithExpr:
		left, err := r.expr(n.Left)
		if err != nil {
			return fragment{}, err
		}
		if n.Op == criteria.OpNeg {
			return compose("(-", left, ")"), nil
		}
		right, err := r.expr(n.Right)
		if err != nil {
			return fragment{}, err
		}
		return compose("(", left, " "+string(n.Op)+" ", right, ")"), nil
	case *criteria.CastExpr:
		target, ok := r.d.castTypes[n.Kind()]
		if !ok {
			return fragment{}, dbexec.Unsupported(n.String(), "%s cannot cast to %s", r.d.Name, n.Kind())
		}
		inner, err := r.expr(n.Expr)
		if err != nil {
			return fragment{}, err
		}
		return compose("CAST(", inner, " AS "+target+")"), nil
	case *criteria.SubqueryExpr:
		return r.subquery(n.Query, false)
	case *criteria.AggregateExpr:
		return r.aggregate(n)
	case *criteria.FuncExpr:
		return r.function(n)
	case *criteria.CaseExpr:
		return r.caseExpr(n)
	}
	return fragment{}, fmt.Errorf("planner: cannot render expression %T", e)
}

func (r *renderer) exprs(list []criteria.Expression) ([]fragment, error) {
	out := make([]fragment, len(list))
	for i, e := range list {
		f, err := r.expr(e)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func (r *renderer) literal(n *criteria.LiteralExpr) (fragment, error) {
	switch v := n.Value.(type) {
	case nil:
		return raw("NULL"), nil
	case bool:
		if v {
			return raw("TRUE"), nil
		}
		return raw("FALSE"), nil
	case int:
		return raw(strconv.FormatInt(int64(v), 10)), nil
	case int8:
		return raw(strconv.FormatInt(int64(v), 10)), nil
	case int16:
		return raw(strconv.FormatInt(int64(v), 10)), nil
	case int32:
		return raw(strconv.FormatInt(int64(v), 10)), nil
	case int64:
		return raw(strconv.FormatInt(v, 10)), nil
	case uint:
		return raw(strconv.FormatUint(uint64(v), 10)), nil
	case uint8:
		return raw(strconv.FormatUint(uint64(v), 10)), nil
	case uint16:
		return raw(strconv.FormatUint(uint64(v), 10)), nil
	case uint32:
		return raw(strconv.FormatUint(uint64(v), 10)), nil
	case uint64:
		return raw(strconv.FormatUint(v, 10)), nil
	case float32:
		return r.float(float64(v))
	case float64:
		return r.float(v)
	case time.Duration:
		if v%time.Second == 0 {
			return raw(strconv.FormatInt(int64(v/time.Second), 10)), nil
		}
		return r.float(v.Seconds())
	case string:
		if r.inline {
			return r.cast(raw(r.d.inlineString(v)), sqltype.String), nil
		}
		return r.bind(v, sqltype.String), nil
	case time.Time:
		if r.inline {
			bound := r.d.BindTime(v)
			if s, ok := bound.(string); ok {
				return raw(r.d.inlineString(s)), nil
			}
			return r.cast(raw(r.d.inlineString(v.Format("2006-01-02 15:04:05.999999"))), sqltype.Timestamp), nil
		}
		return r.bind(r.d.BindTime(v), sqltype.Timestamp), nil
	case []byte:
		if r.inline {
			return fragment{}, dbexec.Unsupported(n.String(), "binary literals cannot be grouped on")
		}
		return r.bind(v, sqltype.Bytes), nil
	}
	return fragment{}, dbexec.Unsupported(n.String(), "literal of type %T", n.Value)
}

// float renders finite values inline with a decimal point or exponent so the
// store does not read them as integers. NaN and infinities are bound.
func (r *renderer) float(v float64) (fragment, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		if r.inline {
			return fragment{}, dbexec.Unsupported(fmt.Sprint(v), "non-finite values cannot be grouped on")
		}
		return r.bind(v, sqltype.Float), nil
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return raw(s), nil
}

func (r *renderer) bind(v interface{}, kind sqltype.Kind) fragment {
	return r.cast(bound("?", v), kind)
}

func (r *renderer) cast(f fragment, kind sqltype.Kind) fragment {
	if target, ok := r.d.bindCasts[kind]; ok {
		return compose("CAST(", f, " AS "+target+")")
	}
	return f
}

func (r *renderer) aggregate(n *criteria.AggregateExpr) (fragment, error) {
	fn := strings.ToUpper(n.Func)
	if n.Arg == nil {
		return raw(fn + "(*)"), nil
	}
	arg, err := r.expr(n.Arg)
	if err != nil {
		return fragment{}, err
	}
	if n.Distinct {
		return compose(fn+"(DISTINCT ", arg, ")"), nil
	}
	return compose(fn+"(", arg, ")"), nil
}

func (r *renderer) function(n *criteria.FuncExpr) (fragment, error) {
	args, err := r.exprs(n.Args)
	if err != nil {
		return fragment{}, err
	}
	if n.Verbatim {
		return compose(n.Name+"(", joinFragments(args, ", "), ")"), nil
	}

	switch n.Name {
	case "duration", "duration_by_unit":
		secs, ok := criteria.TemporalUnit(n.Option).Seconds()
		if !ok || len(args) != 1 {
			return fragment{}, dbexec.Unsupported(n.String(), "%s has no fixed length", n.Option)
		}
		if n.Name == "duration" {
			return compose("(", args[0], " * "+strconv.FormatInt(secs, 10)+")"), nil
		}
		return compose("(", args[0], " / "+strconv.FormatInt(secs, 10)+".0)"), nil
	}

	key := n.Name
	if n.Option != "" {
		key += ":" + n.Option
	}
	render, ok := r.d.functions[key]
	if !ok {
		return fragment{}, dbexec.Unsupported(n.String(), "%s has no rendering for %s", r.d.Name, key)
	}
	out, err := render(args)
	if errors.Is(err, errNoRendering) {
		return fragment{}, dbexec.Unsupported(n.String(), "%s has no rendering for %s", r.d.Name, key)
	}
	return out, err
}

func (r *renderer) caseExpr(n *criteria.CaseExpr) (fragment, error) {
	parts := []interface{}{"CASE"}
	if n.Operand != nil {
		op, err := r.expr(n.Operand)
		if err != nil {
			return fragment{}, err
		}
		parts = append(parts, " ", op)
	}
	for _, w := range n.Whens {
		cond, err := r.expr(w.Cond)
		if err != nil {
			return fragment{}, err
		}
		result, err := r.expr(w.Result)
		if err != nil {
			return fragment{}, err
		}
		parts = append(parts, " WHEN ", cond, " THEN ", result)
	}
	els, err := r.expr(n.Else)
	if err != nil {
		return fragment{}, err
	}
	parts = append(parts, " ELSE ", els, " END")
	return compose(parts...), nil
}

func (r *renderer) pred(p criteria.Predicate) (fragment, error) {
	switch n := p.(type) {
	case *criteria.ComparisonPred:
		left, err := r.expr(n.Left)
		if err != nil {
			return fragment{}, err
		}
		right, err := r.expr(n.Right)
		if err != nil {
			return fragment{}, err
		}
		return compose("(", left, " "+string(n.Op)+" ", right, ")"), nil
	case *criteria.BetweenPred:
		parts, err := r.exprs([]criteria.Expression{n.Expr, n.Low, n.High})
		if err != nil {
			return fragment{}, err
		}
		return compose("(", parts[0], " BETWEEN ", parts[1], " AND ", parts[2], ")"), nil
	case *criteria.LikePred:
		return r.like(n)
	case *criteria.InPred:
		return r.in(n)
	case *criteria.NullPred:
		x, err := r.expr(n.Expr)
		if err != nil {
			return fragment{}, err
		}
		if n.Negated {
			return compose("(", x, " IS NOT NULL)"), nil
		}
		return compose("(", x, " IS NULL)"), nil
	case *criteria.ExistsPred:
		sub, err := r.subquery(n.Subquery, true)
		if err != nil {
			return fragment{}, err
		}
		if n.Negated {
			return compose("NOT EXISTS ", sub), nil
		}
		return compose("EXISTS ", sub), nil
	case *criteria.JunctionPred:
		if len(n.Preds) == 0 {
			if n.Op == criteria.OpAnd {
				return raw("(1=1)"), nil
			}
			return raw("(1=0)"), nil
		}
		parts := make([]fragment, len(n.Preds))
		for i, child := range n.Preds {
			f, err := r.pred(child)
			if err != nil {
				return fragment{}, err
			}
			parts[i] = f
		}
		sep := " AND "
		if n.Op == criteria.OpOr {
			sep = " OR "
		}
		return compose("(", joinFragments(parts, sep), ")"), nil
	case *criteria.NotPred:
		inner, err := r.pred(n.Pred)
		if err != nil {
			return fragment{}, err
		}
		return compose("NOT (", inner, ")"), nil
	case *criteria.BoolPred:
		x, err := r.expr(n.Expr)
		if err != nil {
			return fragment{}, err
		}
		return compose("(", x, ")"), nil
	}
	return fragment{}, fmt.Errorf("planner: cannot render predicate %T", p)
}

func (r *renderer) like(n *criteria.LikePred) (fragment, error) {
	x, err := r.expr(n.Expr)
	if err != nil {
		return fragment{}, err
	}
	pattern, err := r.expr(n.Pattern)
	if err != nil {
		return fragment{}, err
	}
	op := " LIKE "
	if n.Negated {
		op = " NOT LIKE "
	}
	parts := []interface{}{"(", x, op, pattern}
	if n.Escape != 0 {
		if n.Escape == '?' {
			return fragment{}, dbexec.Unsupported(n.String(), "? cannot be used as escape character")
		}
		parts = append(parts, " ESCAPE "+r.d.quoteString(string(n.Escape)))
	}
	parts = append(parts, ")")
	return compose(parts...), nil
}

func (r *renderer) in(n *criteria.InPred) (fragment, error) {
	x, err := r.expr(n.Expr)
	if err != nil {
		return fragment{}, err
	}
	op := " IN "
	if n.Negated {
		op = " NOT IN "
	}
	if n.Subquery != nil {
		sub, err := r.subquery(n.Subquery, false)
		if err != nil {
			return fragment{}, err
		}
		return compose("(", x, op, sub, ")"), nil
	}
	values, err := r.exprs(n.Values)
	if err != nil {
		return fragment{}, err
	}
	return compose("(", x, op+"(", joinFragments(values, ", "), "))"), nil
}

// subquery renders a nested SELECT in parentheses. Existence tests select a
// constant instead of the subquery's select list.
func (r *renderer) subquery(q *criteria.Query, exists bool) (fragment, error) {
	builder, err := r.nestedStatement(q, exists)
	if err != nil {
		return fragment{}, err
	}
	sql, args, err := builder.ToSql()
	if err != nil {
		return fragment{}, err
	}
	return fragment{sql: "(" + sql + ")", args: args}, nil
}
