package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// digits registers the 0..9 sequence on q.
func digits(q *Query) *CteDefinition {
	base := NewQuery(q.Registry()).Select(As(Literal(0), "n"))
	return q.WithRecursiveUnionAll("digits", base, func(self *Source) *Query {
		return self.Query().
			Select(As(Sum(self.Get("n"), Literal(1)), "n")).
			Where(Between(self.Get("n"), 0, 8))
	})
}

func TestRecursiveCte_Shape(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	cte := digits(q)
	d := q.FromCte(cte, "d")
	q.Select(d.Get("n")).OrderBy(Asc(d.Get("n")))

	require.NoError(t, q.Validate())
	assert.True(t, cte.Recursive)
	assert.Equal(t, []string{"n"}, cte.ColumnNames())
	require.NotNil(t, cte.Step)
	assert.Len(t, q.Ctes(), 1)
	assert.Equal(t, CteSource, cte.Step.Sources()[0].Kind())
}

func TestRecursiveCte_DigitComposition(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	cte := digits(q)
	units := q.FromCte(cte, "units")
	tens := q.FromCte(cte, "tens")
	hundreds := q.FromCte(cte, "hundreds")
	value := Sum(units.Get("n"), Sum(Prod(Literal(10), tens.Get("n")), Prod(Literal(100), hundreds.Get("n"))))
	q.Select(value).OrderBy(Asc(value))

	require.NoError(t, q.Validate())
	assert.Len(t, q.Sources(), 3)
	assert.NotSame(t, units.Get("n"), tens.Get("n"))
}

func TestRecursiveCte_Errors(t *testing.T) {
	reg := newSalesRegistry(t)

	tests := []struct {
		name  string
		build func(q *Query)
		want  error
	}{
		{
			name: "arity mismatch",
			build: func(q *Query) {
				base := NewQuery(reg).Select(As(Literal(0), "n"))
				q.WithRecursiveUnionAll("seq", base, func(self *Source) *Query {
					return self.Query().Select(As(Sum(self.Get("n"), Literal(1)), "n"), As(Literal(1), "m"))
				})
			},
			want: ErrCteShape,
		},
		{
			name: "kind mismatch",
			build: func(q *Query) {
				base := NewQuery(reg).Select(As(Literal(0), "n"))
				q.WithRecursiveUnionAll("seq", base, func(self *Source) *Query {
					return self.Query().Select(As(Literal("x"), "n"))
				})
			},
			want: ErrCteShape,
		},
		{
			name: "step ignores self",
			build: func(q *Query) {
				base := NewQuery(reg).Select(As(Literal(0), "n"))
				q.WithRecursiveUnionAll("seq", base, func(self *Source) *Query {
					return NewQuery(reg).Select(As(Literal(1), "n"))
				})
			},
			want: ErrCteShape,
		},
		{
			name: "step references another cte",
			build: func(q *Query) {
				other := digits(q)
				base := NewQuery(reg).Select(As(Literal(0), "n"))
				q.WithRecursiveUnionAll("seq", base, func(self *Source) *Query {
					step := self.Query()
					o := step.register(&Source{kind: CteSource, alias: "o", cte: other, columns: other.columns})
					return step.Select(As(Sum(self.Get("n"), o.Get("n")), "n"))
				})
			},
			want: ErrCteShape,
		},
		{
			name: "base items need aliases",
			build: func(q *Query) {
				base := NewQuery(reg).Select(Literal(0))
				q.WithRecursiveUnionAll("seq", base, func(self *Source) *Query { return self.Query() })
			},
			want: ErrCteShape,
		},
		{
			name: "nil step",
			build: func(q *Query) {
				base := NewQuery(reg).Select(As(Literal(0), "n"))
				q.WithRecursiveUnionAll("seq", base, func(self *Source) *Query { return nil })
			},
			want: ErrCteShape,
		},
		{
			name: "duplicate name",
			build: func(q *Query) {
				digits(q)
				digits(q)
			},
			want: ErrCteShape,
		},
		{
			name: "cte of another query",
			build: func(q *Query) {
				other := NewQuery(reg)
				q.FromCte(digits(other), "d")
			},
			want: ErrUnboundSource,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuery(reg)
			tt.build(q)
			assert.ErrorIs(t, q.Validate(), tt.want)
		})
	}
}

func TestWith_NonRecursive(t *testing.T) {
	reg := newSalesRegistry(t)
	q := NewQuery(reg)

	body := NewQuery(reg)
	so := body.From("SalesOrder")
	body.Select(As(so.Get("id"), "order_id"), As(so.Get("status"), "status")).
		Where(Equal(so.Get("status"), "NEW"))
	cte := q.With("new_orders", body)

	n := q.FromCte(cte, "")
	q.Select(n.Get("order_id"))

	require.NoError(t, q.Validate())
	assert.False(t, cte.Recursive)
	assert.Equal(t, "no", n.Alias())
	assert.Equal(t, []Column{{Name: "order_id", Kind: so.Get("id").Kind()}, {Name: "status", Kind: so.Get("status").Kind()}}, n.Columns())
}

func TestSubquerySeesEnclosingCte(t *testing.T) {
	reg := newSalesRegistry(t)
	q := NewQuery(reg)
	cte := digits(q)
	sub := q.Subquery()
	d := sub.FromCte(cte, "d")
	sub.Select(Max(d.Get("n")))

	c := q.From("Customer")
	q.Select(c.Get("id"), ScalarSubquery(sub))
	require.NoError(t, q.Validate())
}
