package criteria

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlcriteria/internal/sqltype"
)

func TestArithmetic_KindPromotion(t *testing.T) {
	tests := []struct {
		name string
		expr Expression
		want sqltype.Kind
	}{
		{"int plus int", Sum(Literal(1), Literal(2)), sqltype.Integer},
		{"int times float", Prod(Literal(2), Literal(1.5)), sqltype.Float},
		{"duration plus int", Sum(Literal(time.Second), Literal(3)), sqltype.Duration},
		{"null operand", Diff(Null(sqltype.Unknown), Literal(1.0)), sqltype.Float},
		{"negation", Neg(Literal(4)), sqltype.Integer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, Check(tt.expr))
			assert.Equal(t, tt.want, tt.expr.Kind())
		})
	}
}

func TestArithmetic_TypeMismatch(t *testing.T) {
	tests := []struct {
		name string
		expr Expression
	}{
		{"string plus int", Sum(Literal("a"), Literal(1))},
		{"bool times int", Prod(Literal(true), Literal(2))},
		{"float modulo", Mod(Literal(1.5), Literal(2))},
		{"negated string", Neg(Literal("x"))},
		{"nested mismatch", Sum(Literal(1), Quot(Literal("a"), Literal(2)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.expr)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTypeMismatch)

			var be *BuildError
			require.True(t, errors.As(err, &be))
			assert.NotEmpty(t, be.Construct)
		})
	}
}

func TestFunctions_TypeChecks(t *testing.T) {
	ok := []Expression{
		Upper(Literal("a")),
		Concat(Literal("a"), Literal("b"), Literal("c")),
		Substring(Literal("abcdef"), Literal(2), nil),
		Round(Literal(2.345), Literal(2)),
		Power(Literal(2), Literal(10)),
		Trim(TrimLeading, Literal("x"), Literal("xxabc")),
		Extract(Year, CurrentTimestamp()),
		TruncateTime(Month, CurrentDate()),
		AddDuration(CurrentTimestamp(), Duration(Literal(3), Day)),
		DurationByUnit(DurationBetween(CurrentTimestamp(), CurrentTimestamp()), Hour),
		DurationScaled(Duration(Literal(1), Hour), Literal(2)),
		Coalesce(Null(sqltype.Unknown), Literal(1), Literal(2.5)),
		Function("json_extract", sqltype.String, Literal("{}"), Literal("$.a")),
	}
	for _, e := range ok {
		assert.NoError(t, Check(e), e.String())
	}

	bad := []Expression{
		Upper(Literal(1)),
		Sqrt(Literal("nine")),
		Round(Literal(1.5), Literal(1.5)),
		Trim(TrimBoth, Literal("ab"), Literal("abc")),
		Extract(Week, CurrentTimestamp()),
		Duration(Literal(1), Month),
		AddDuration(Literal(1), Duration(Literal(1), Day)),
		DurationSum(Literal(time.Hour), Literal("x")),
		Coalesce(Literal(1), Literal("one")),
		Length(CurrentDate()),
	}
	for _, e := range bad {
		assert.ErrorIs(t, Check(e), ErrTypeMismatch, e.String())
	}

	assert.ErrorIs(t, Check(Function("drop table", sqltype.Unknown)), ErrUnknownAttribute)
}

func TestCoalesce_WidensKind(t *testing.T) {
	e := Coalesce(Literal(1), Literal(2.5))
	assert.Equal(t, sqltype.Float, e.Kind())
}

func TestCase_Searched(t *testing.T) {
	x := Literal(5)
	c := SearchedCase().
		When(LessThan(x, 3), Literal("small")).
		When(LessThan(x, 10), Literal("medium")).
		Otherwise(Literal("large"))

	require.NoError(t, Check(c))
	assert.Equal(t, sqltype.String, c.Kind())
	assert.Equal(t, `case when (5 < 3) then "small" when (5 < 10) then "medium" else "large" end`, c.String())
}

func TestCase_Simple(t *testing.T) {
	c := SimpleCase(Literal("NEW")).
		When(Literal("NEW"), Literal(1)).
		When(Literal("SHIPPED"), Literal(2.0)).
		Otherwise(Literal(0))

	require.NoError(t, Check(c))
	assert.Equal(t, sqltype.Float, c.Kind())
}

func TestCase_Errors(t *testing.T) {
	// Branch results of different families.
	c := SearchedCase().When(IsNull(Literal(1)), Literal(1)).Otherwise(Literal("x"))
	assert.ErrorIs(t, Check(c), ErrTypeMismatch)

	// A searched case needs predicates.
	c = SearchedCase().When(Literal(1), Literal(1)).Otherwise(Literal(2))
	assert.ErrorIs(t, Check(c), ErrTypeMismatch)

	// A simple case compares the operand with each value.
	c = SimpleCase(Literal(1)).When(Literal("one"), Literal(1)).Otherwise(Literal(2))
	assert.ErrorIs(t, Check(c), ErrTypeMismatch)

	c = SearchedCase().Otherwise(Literal(2))
	assert.ErrorIs(t, Check(c), ErrTypeMismatch)
}

func TestCase_BuilderIsPersistent(t *testing.T) {
	base := SimpleCase(Literal(1)).When(Literal(1), Literal("one"))
	a := base.When(Literal(2), Literal("two")).Otherwise(Literal("many"))
	b := base.Otherwise(Literal("other"))

	assert.Len(t, a.(*CaseExpr).Whens, 2)
	assert.Len(t, b.(*CaseExpr).Whens, 1)
}

func TestAggregates(t *testing.T) {
	assert.Equal(t, sqltype.Integer, Count(nil).Kind())
	assert.Equal(t, "count(*)", Count(nil).String())
	assert.Equal(t, "count(distinct 1)", CountDistinct(Literal(1)).String())
	assert.Equal(t, sqltype.Float, Avg(Literal(1)).Kind())
	assert.ErrorIs(t, Check(SumOf(Literal("a"))), ErrTypeMismatch)
	assert.True(t, IsAggregate(Max(Literal(1))))
	assert.False(t, IsAggregate(Abs(Literal(1))))
}

func TestUnalias(t *testing.T) {
	inner := Literal(1)
	aliased := As(As(inner, "a"), "b")
	assert.Same(t, inner, Unalias(aliased))
	assert.ErrorIs(t, Check(As(inner, "")), ErrDerivedAlias)
}
