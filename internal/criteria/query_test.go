package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlcriteria/internal/sqltype"
)

func TestFrom_ImplicitSelection(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	c := q.From("Customer")

	require.NoError(t, q.Validate())
	sels := q.Selections()
	require.Len(t, sels, 1)
	assert.Same(t, c, sels[0].Source)
	assert.Equal(t, "c", c.Alias())

	// Two roots are a cross join with no implicit selection.
	q.From("Product")
	assert.Empty(t, q.Selections())
}

func TestFrom_UnknownEntity(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	q.From("Invoice")
	assert.ErrorIs(t, q.Validate(), ErrUnknownEntity)
}

func TestGet_StablePaths(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	so := q.From("SalesOrder")

	assert.Same(t, so.Get("status"), so.Get("status"))
	assert.Equal(t, sqltype.Enum, so.Get("status").Kind())

	fk := so.Get("customer").(*PathExpr)
	assert.Equal(t, "customer_id", fk.Column)
	assert.Equal(t, sqltype.Integer, fk.Kind())
	assert.True(t, fk.SameColumn(so.Get("customer.id").(*PathExpr)))

	assert.ErrorIs(t, Check(so.Get("nope")), ErrUnknownAttribute)
	assert.ErrorIs(t, Check(so.Get("item")), ErrUnknownAttribute, "one-to-many has no column")
}

func TestJoin_DerivesConditionFromMapping(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	c := q.From("Customer")
	so := q.Join(c, "salesOrder", InnerJoin)
	soi := q.Join(so, "item", LeftJoin)
	p := q.Join(soi, "product", LeftJoin, func(p *Source) Predicate {
		return GreaterThan(p.Get("unitPrice"), 100)
	})
	q.Select(c.Get("firstName"), so.Get("status"), p.Get("name"))

	require.NoError(t, q.Validate())
	assert.Equal(t, "so", so.Alias())
	assert.Equal(t, "soi", soi.Alias())
	assert.Equal(t, "id", so.JoinColumns()[0].Local)
	assert.Equal(t, "customer_id", so.JoinColumns()[0].Remote)
	assert.Nil(t, so.On())
	assert.NotNil(t, p.On())
	assert.Equal(t, []*Source{c, so, soi, p}, q.Sources())
}

func TestJoin_UnrelatedEntityNeedsCondition(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	so := q.From("SalesOrder")
	q.Join(so, "SalesOrderHistory", LeftJoin)
	assert.ErrorIs(t, q.Validate(), ErrMissingJoinCondition)

	q = NewQuery(newSalesRegistry(t))
	so = q.From("SalesOrder")
	h := q.Join(so, "SalesOrderHistory", LeftJoin, func(h *Source) Predicate {
		return Equal(h.Get("id"), so.Get("id"))
	})
	q.Select(so.Get("id"), h.Get("status"))
	require.NoError(t, q.Validate())
	assert.Nil(t, h.Association())

	q = NewQuery(newSalesRegistry(t))
	so = q.From("SalesOrder")
	q.Join(so, "nothing", InnerJoin)
	assert.ErrorIs(t, q.Validate(), ErrUnknownAttribute)
}

func TestAliases_UniqueAcrossSubqueries(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	so := q.From("SalesOrder")
	sub := q.Subquery()
	so2 := sub.From("SalesOrder")
	h := sub.From("SalesOrderHistory")
	q.Join(so, "SalesOrderHistory", LeftJoin, func(j *Source) Predicate {
		return Equal(j.Get("id"), so.Get("id"))
	})

	assert.Equal(t, "so", so.Alias())
	assert.Equal(t, "so_2", so2.Alias())
	assert.Equal(t, "soh", h.Alias())
	assert.Equal(t, "soh_2", q.Sources()[1].Alias())
}

func TestFetch_DeduplicatesEarlierJoin(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	so := q.From("SalesOrder")
	join := q.Join(so, "item", LeftJoin)
	fetch := q.Fetch(so, "item", InnerJoin)

	assert.Same(t, join, fetch)
	assert.True(t, join.Fetched())
	assert.Equal(t, LeftJoin, join.JoinType(), "earlier join type is kept")
	assert.Len(t, q.Sources(), 2)

	again := q.Fetch(so, "item", LeftJoin)
	assert.Same(t, join, again)
	require.NoError(t, q.Validate())
}

func TestFetch_OwnerMustBeSelected(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	so := q.From("SalesOrder")
	soi := q.Fetch(so, "item", LeftJoin)
	q.Fetch(soi, "product", LeftJoin)
	require.NoError(t, q.Validate(), "implicit root selection owns the fetch chain")

	q = NewQuery(newSalesRegistry(t))
	so = q.From("SalesOrder")
	q.Fetch(so, "item", LeftJoin)
	q.Select(so.Get("id"))
	assert.ErrorIs(t, q.Validate(), ErrInvalidFetch)

	q = NewQuery(newSalesRegistry(t))
	so = q.From("SalesOrder")
	q.Fetch(so, "nope", LeftJoin)
	assert.ErrorIs(t, q.Validate(), ErrUnknownAttribute)
}

func TestHaving_RequiresGroupBy(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	soi := q.From("SalesOrderItem")
	q.Select(soi.Get("salesOrder"), SumOf(soi.Get("quantity")))
	q.Having(GreaterThan(Count(nil), 1))
	assert.ErrorIs(t, q.Validate(), ErrHavingWithoutGroupBy)

	q.GroupBy(soi.Get("salesOrder"))
	assert.NoError(t, q.Validate(), "having may use an aggregate that is not selected")
}

func TestGroupByEntity_ExpandsMappedColumns(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	so := q.From("SalesOrder")
	soi := q.Join(so, "item", InnerJoin)
	q.SelectEntity(so).Select(SumOf(soi.Get("quantity")))
	q.GroupByEntity(so)

	require.NoError(t, q.Validate())
	var cols []string
	for _, e := range q.GroupList() {
		cols = append(cols, e.(*PathExpr).Column)
	}
	assert.Equal(t, []string{"id", "status", "customer_id"}, cols)
}

func TestLock_RequiresSingleRootEntity(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	q.From("SalesOrder")
	q.Lock(LockForUpdate)
	require.NoError(t, q.Validate())

	q = NewQuery(newSalesRegistry(t))
	so := q.From("SalesOrder")
	q.Select(so.Get("id")).Lock(LockForUpdate)
	assert.ErrorIs(t, q.Validate(), ErrInvalidLockTarget)

	q = NewQuery(newSalesRegistry(t))
	so = q.From("SalesOrder")
	c := q.Join(so, "customer", InnerJoin)
	q.SelectEntity(so).SelectEntity(c).Lock(LockForUpdate)
	assert.ErrorIs(t, q.Validate(), ErrInvalidLockTarget)
}

func TestSubquery_CorrelationIsOneWay(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	c := q.From("Customer")
	sub := q.Subquery()
	so := sub.From("SalesOrder")
	sub.Where(Equal(so.Get("customer"), c.Get("id")))
	q.Where(Exists(sub))
	require.NoError(t, q.Validate())

	// The parent cannot see the subquery's sources.
	q.Where(Equal(so.Get("status"), "NEW"))
	err := q.Validate()
	assert.ErrorIs(t, err, ErrUnboundSource)

	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "so.status", be.Construct)
}

func TestSubquery_ScalarNeedsOneColumn(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	c := q.From("Customer")
	sub := q.Subquery()
	so := sub.From("SalesOrder")
	sub.Select(Count(nil), Max(so.Get("id")))
	q.Select(c.Get("id"), ScalarSubquery(sub))
	assert.ErrorIs(t, q.Validate(), ErrInvalidSelection)
}

func TestSelectEntity_RejectsDerived(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	sub := q.Subquery()
	so := sub.From("SalesOrder")
	sub.Select(As(so.Get("id"), "order_id"))
	d := q.FromSubquery(sub, "latest")
	q.SelectEntity(d)
	assert.ErrorIs(t, q.Validate(), ErrInvalidSelection)
}

func TestFromSubquery_Aliases(t *testing.T) {
	q := NewQuery(newSalesRegistry(t))
	sub := q.Subquery()
	h := sub.From("SalesOrderHistory")
	sub.Select(As(h.Get("id"), "order_id"), As(Max(h.Get("createdAt")), "latest"))
	sub.GroupBy(h.Get("id"))
	d := q.FromSubquery(sub, "hist")
	q.Select(d.Get("order_id"), d.Get("latest"))

	require.NoError(t, q.Validate())
	assert.Equal(t, []Column{{Name: "order_id", Kind: sqltype.Integer}, {Name: "latest", Kind: sqltype.Timestamp}}, d.Columns())
	assert.ErrorIs(t, Check(d.Get("missing")), ErrUnknownAttribute)

	// Derived tables do not see the enclosing query.
	q = NewQuery(newSalesRegistry(t))
	so := q.From("SalesOrder")
	sub = q.Subquery()
	h = sub.From("SalesOrderHistory")
	sub.Select(As(h.Get("id"), "order_id")).Where(Equal(h.Get("id"), so.Get("id")))
	q.FromSubquery(sub, "hist")
	assert.ErrorIs(t, q.Validate(), ErrUnboundSource)

	tests := []struct {
		name  string
		build func(sub *Query, h *Source)
		alias string
	}{
		{"missing alias on item", func(sub *Query, h *Source) { sub.Select(h.Get("id")) }, "x"},
		{"duplicate alias", func(sub *Query, h *Source) { sub.Select(As(h.Get("id"), "a"), As(h.Get("seq"), "a")) }, "x"},
		{"empty table alias", func(sub *Query, h *Source) { sub.Select(As(h.Get("id"), "a")) }, ""},
		{"nothing selected", func(sub *Query, h *Source) {}, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuery(newSalesRegistry(t))
			sub := q.Subquery()
			tt.build(sub, sub.From("SalesOrderHistory"))
			q.FromSubquery(sub, tt.alias)
			assert.ErrorIs(t, q.Validate(), ErrDerivedAlias)
		})
	}
}

func TestDescribe_Deterministic(t *testing.T) {
	build := func() Description {
		q := NewQuery(newSalesRegistry(t))
		c := q.From("Customer")
		so := q.Join(c, "salesOrder", LeftJoin)
		q.Select(c.Get("firstName"), Count(so.Get("id"))).
			Where(Like(c.Get("lastName"), "LAST%"), Not(IsNull(c.Get("firstName")))).
			GroupBy(c.Get("firstName")).
			Having(GreaterOrEqual(Count(so.Get("id")), 1)).
			OrderBy(Desc(c.Get("firstName"))).
			Limit(10)
		return q.Describe()
	}

	first, second := build(), build()
	assert.Equal(t, first, second)
	assert.Equal(t, 2, first.Arity())
	assert.Equal(t,
		`select[c.firstName, count(so.id)] from[Customer c, left join c.salesOrder so] `+
			`where[and((c.lastName like "LAST%"), not((c.firstName is null)))] group[c.firstName] `+
			`having[(count(so.id) >= 1)] order[c.firstName desc] limit[10]`,
		first.String())
}
