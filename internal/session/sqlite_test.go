package session

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/dbexec"
	"sqlcriteria/internal/mapping"
	"sqlcriteria/internal/planner"
	"sqlcriteria/internal/salesmodel"
	"sqlcriteria/internal/schema"
)

// openSalesStore creates the sales tables in a private in-memory SQLite
// database and loads the sample data.
func openSalesStore(t *testing.T) (*Session, *mapping.Registry) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlx.Open(planner.DriverSQLite, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	reg := newRegistry(t)
	d := planner.SQLite()
	stmts, err := schema.CreateTables(reg, d)
	require.NoError(t, err)
	for _, stmt := range stmts {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}
	require.NoError(t, salesmodel.Seed(ctx, db, reg, d.BindTime))

	return New(dbexec.NewStandardExecutor(db.DB), d), reg
}

func digits(q *criteria.Query, reg *mapping.Registry) *criteria.CteDefinition {
	base := criteria.NewQuery(reg).Select(criteria.As(criteria.Literal(0), "n"))
	return q.WithRecursiveUnionAll("digits", base, func(self *criteria.Source) *criteria.Query {
		return self.Query().
			Select(criteria.As(criteria.Sum(self.Get("n"), criteria.Literal(1)), "n")).
			Where(criteria.LessThan(self.Get("n"), 9))
	})
}

func TestSQLite_RecursiveDigits(t *testing.T) {
	s, reg := openSalesStore(t)

	q := criteria.NewQuery(reg)
	d := q.FromCte(digits(q, reg), "d")
	n := d.Get("n")
	q.Select(n).OrderBy(criteria.Asc(n))

	rows, err := s.List(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 10)
	for i, row := range rows {
		v, err := Value[int64](row, n)
		require.NoError(t, err)
		assert.Equal(t, int64(i), v)
	}
}

func TestSQLite_DigitComposition(t *testing.T) {
	s, reg := openSalesStore(t)

	q := criteria.NewQuery(reg)
	cte := digits(q, reg)
	units := q.FromCte(cte, "u")
	tens := q.FromCte(cte, "t")
	hundreds := q.FromCte(cte, "h")
	n := criteria.Sum(units.Get("n"),
		criteria.Sum(criteria.Prod(criteria.Literal(10), tens.Get("n")), criteria.Prod(criteria.Literal(100), hundreds.Get("n"))))
	q.Select(n).OrderBy(criteria.Asc(n))

	st, err := s.Stream(context.Background(), q)
	require.NoError(t, err)
	defer st.Close()

	var want int64
	for st.Next() {
		v, err := Value[int64](st.Row(), n)
		require.NoError(t, err)
		require.Equal(t, want, v)
		want++
	}
	require.NoError(t, st.Err())
	assert.Equal(t, int64(1000), want)
}

func TestSQLite_FetchCollectionSizes(t *testing.T) {
	s, reg := openSalesStore(t)
	ctx := context.Background()

	t.Run("order items", func(t *testing.T) {
		q := criteria.NewQuery(reg)
		so := q.From("SalesOrder")
		q.Fetch(so, "item", criteria.LeftJoin)

		rows, err := s.List(ctx, q)
		require.NoError(t, err)
		got := map[any]int{}
		for _, row := range rows {
			ent, err := row.Entity(so)
			require.NoError(t, err)
			require.True(t, ent.Fetched("item"))
			got[ent.ID()] = len(ent.Collection("item"))
		}
		assert.Equal(t, map[any]int{int64(1): 0, int64(2): 0, int64(3): 2, int64(4): 3}, got)
	})

	t.Run("product items", func(t *testing.T) {
		q := criteria.NewQuery(reg)
		p := q.From("Product")
		q.Fetch(p, "salesOrderItem", criteria.LeftJoin)

		st, err := s.Stream(ctx, q)
		require.NoError(t, err)
		defer st.Close()
		var sizes []int
		for st.Next() {
			ent, err := st.Row().Entity(p)
			require.NoError(t, err)
			sizes = append(sizes, len(ent.Collection("salesOrderItem")))
		}
		require.NoError(t, st.Err())
		assert.Equal(t, []int{2, 2, 1}, sizes)
	})
}

func TestSQLite_FetchOrderedByChildColumn(t *testing.T) {
	s, reg := openSalesStore(t)
	ctx := context.Background()

	build := func() (*criteria.Query, *criteria.Source) {
		q := criteria.NewQuery(reg)
		so := q.From("SalesOrder")
		soi := q.Fetch(so, "item", criteria.InnerJoin)
		q.OrderBy(criteria.Asc(soi.Get("product")), criteria.Asc(soi.ID()))
		return q, so
	}

	q, so := build()
	rows, err := s.List(ctx, q)
	require.NoError(t, err)
	var listed []any
	for _, row := range rows {
		ent, err := row.Entity(so)
		require.NoError(t, err)
		listed = append(listed, ent.ID())
	}

	q, so = build()
	st, err := s.Stream(ctx, q)
	require.NoError(t, err)
	defer st.Close()
	var streamed []any
	var sizes []int
	for st.Next() {
		ent, err := st.Row().Entity(so)
		require.NoError(t, err)
		streamed = append(streamed, ent.ID())
		sizes = append(sizes, len(ent.Collection("item")))
	}
	require.NoError(t, st.Err())

	assert.Equal(t, []any{int64(3), int64(4)}, listed)
	assert.Equal(t, listed, streamed)
	assert.Equal(t, []int{2, 3}, sizes)
}

func TestSQLite_NestedFetch(t *testing.T) {
	s, reg := openSalesStore(t)

	q := criteria.NewQuery(reg)
	c := q.From("Customer")
	so := q.Fetch(c, "salesOrder", criteria.LeftJoin)
	q.Fetch(so, "item", criteria.LeftJoin)
	q.Where(criteria.Equal(c.ID(), 1))

	row, err := s.Single(context.Background(), q)
	require.NoError(t, err)
	customer, err := row.Entity(c)
	require.NoError(t, err)

	orders := customer.Collection("salesOrder")
	require.Len(t, orders, 2)
	assert.Equal(t, int64(1), orders[0].ID())
	assert.True(t, orders[0].Fetched("item"))
	assert.Empty(t, orders[0].Collection("item"))
	assert.Equal(t, int64(3), orders[1].ID())
	require.Len(t, orders[1].Collection("item"), 2)
	assert.Equal(t, "SHIPPED", orders[1].Get("status"))

	type item struct {
		ID        int64
		UnitPrice string
		Quantity  int64
	}
	type order struct {
		ID     int64
		Status string
		Items  []item `criteria:"item"`
	}
	var out struct {
		FirstName string
		Orders    []order `criteria:"salesOrder"`
	}
	require.NoError(t, customer.Decode(&out))
	assert.Equal(t, "FIRST_01", out.FirstName)
	require.Len(t, out.Orders, 2)
	assert.Equal(t, []item{{ID: 1, UnitPrice: "100", Quantity: 10}, {ID: 2, UnitPrice: "1000", Quantity: 20}}, out.Orders[1].Items)
}

func TestSQLite_FetchManyToOne(t *testing.T) {
	s, reg := openSalesStore(t)

	q := criteria.NewQuery(reg)
	soi := q.From("SalesOrderItem")
	q.Fetch(soi, "product", criteria.InnerJoin)
	q.Where(criteria.Equal(soi.Get("quantity"), 3))

	row, err := s.Single(context.Background(), q)
	require.NoError(t, err)
	ent, err := row.Entity(soi)
	require.NoError(t, err)
	product := ent.Ref("product")
	require.NotNil(t, product)
	assert.Equal(t, "PROD_03", product.Get("name"))
	assert.Equal(t, int64(3), ent.Get("product"))
}

func TestSQLite_TimestampsAndAggregates(t *testing.T) {
	s, reg := openSalesStore(t)
	ctx := context.Background()

	q := criteria.NewQuery(reg)
	soh := q.From("SalesOrderHistory")
	latest := criteria.Max(soh.Get("createdAt"))
	q.Select(soh.Get("id"), criteria.Count(nil), latest).
		Where(criteria.GreaterOrEqual(soh.Get("createdAt"), salesmodel.HistoryStart.Add(5*time.Minute))).
		GroupBy(soh.Get("id")).
		OrderBy(criteria.Asc(soh.Get("id")))

	rows, err := s.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []any{int64(3), int64(2), salesmodel.HistoryStart.Add(6 * time.Minute)}, rows[0].Values())
	assert.Equal(t, []any{int64(4), int64(3), salesmodel.HistoryStart.Add(9 * time.Minute)}, rows[1].Values())
}

func TestSQLite_CorrelatedSubquery(t *testing.T) {
	s, reg := openSalesStore(t)

	q := criteria.NewQuery(reg)
	so := q.From("SalesOrder")
	sub := q.Subquery()
	soi := sub.From("SalesOrderItem")
	sub.Where(criteria.Equal(soi.Get("salesOrder"), so.ID()))
	q.Select(so.ID()).Where(criteria.NotExists(sub)).OrderBy(criteria.Asc(so.ID()))

	rows, err := s.List(context.Background(), q)
	require.NoError(t, err)
	var ids []any
	for _, row := range rows {
		ids = append(ids, row.At(0))
	}
	assert.Equal(t, []any{int64(1), int64(2)}, ids)
}

func TestSQLite_SingleOnMissingRow(t *testing.T) {
	s, reg := openSalesStore(t)

	q := criteria.NewQuery(reg)
	c := q.From("Customer")
	q.Where(criteria.Equal(c.Get("lastName"), "LAST_99"))

	_, err := s.Single(context.Background(), q)
	assert.ErrorIs(t, err, dbexec.ErrCardinality)
}
