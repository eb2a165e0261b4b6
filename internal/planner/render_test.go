package planner

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/dbexec"
	"sqlcriteria/internal/mapping"
	"sqlcriteria/internal/salesmodel"
	"sqlcriteria/internal/sqltype"
)

func newRegistry(t *testing.T) *mapping.Registry {
	t.Helper()
	reg, err := salesmodel.Registry()
	require.NoError(t, err)
	return reg
}

func render(t *testing.T, q *criteria.Query, d *Dialect) *Plan {
	t.Helper()
	plan, err := Render(q, d)
	require.NoError(t, err)
	return plan
}

// selectItem renders expr as the only item over a Customer root and returns
// the rendered item.
func selectItem(t *testing.T, d *Dialect, build func(c *criteria.Source) criteria.Expression) (string, []interface{}) {
	t.Helper()
	q := criteria.NewQuery(newRegistry(t))
	c := q.From("Customer")
	q.Select(build(c))
	plan := render(t, q, d)
	from := " FROM " + d.QuoteIdentifier("customer") + " " + d.QuoteIdentifier("c")
	require.True(t, strings.HasPrefix(plan.Query.SQL, "SELECT "), plan.Query.SQL)
	require.True(t, strings.HasSuffix(plan.Query.SQL, from), plan.Query.SQL)
	return strings.TrimSuffix(strings.TrimPrefix(plan.Query.SQL, "SELECT "), from), plan.Query.Args
}

func TestRender_ImplicitRootSelection(t *testing.T) {
	q := criteria.NewQuery(newRegistry(t))
	c := q.From("Customer")
	q.Where(criteria.Equal(c.Get("firstName"), "FIRST_01")).OrderBy(criteria.Asc(c.ID()))

	tests := []struct {
		dialect *Dialect
		sql     string
	}{
		{SQLite(), `SELECT "c"."id", "c"."first_name", "c"."last_name" FROM "customer" "c" WHERE ("c"."first_name" = ?) ORDER BY "c"."id"`},
		{MySQL(), "SELECT `c`.`id`, `c`.`first_name`, `c`.`last_name` FROM `customer` `c` WHERE (`c`.`first_name` = ?) ORDER BY `c`.`id`"},
		{Postgres(), `SELECT "c"."id", "c"."first_name", "c"."last_name" FROM "customer" "c" WHERE ("c"."first_name" = CAST($1 AS TEXT)) ORDER BY "c"."id"`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.Name, func(t *testing.T) {
			plan := render(t, q, tt.dialect)
			assert.Equal(t, tt.sql, plan.Query.SQL)
			assert.Equal(t, []interface{}{"FIRST_01"}, plan.Query.Args)

			require.Len(t, plan.Items, 1)
			ec := plan.Items[0].Entity
			require.NotNil(t, ec)
			assert.Same(t, c, ec.Source)
			assert.Equal(t, 0, ec.KeyIndex())
			assert.Equal(t, []sqltype.Kind{sqltype.Integer, sqltype.String, sqltype.String}, plan.Kinds)
			assert.False(t, plan.Collapse)
		})
	}
}

func TestRender_FetchCollection(t *testing.T) {
	q := criteria.NewQuery(newRegistry(t))
	c := q.From("Customer")
	so := q.Fetch(c, "salesOrder", criteria.LeftJoin)
	q.Where(criteria.Equal(c.ID(), 1))

	plan := render(t, q, SQLite())
	assert.Equal(t,
		`SELECT "c"."id", "c"."first_name", "c"."last_name", "so"."id", "so"."status", "so"."customer_id" `+
			`FROM "customer" "c" LEFT JOIN "sales_order" "so" ON ("c"."id" = "so"."customer_id") `+
			`WHERE ("c"."id" = 1) ORDER BY "c"."id", "so"."id"`,
		plan.Query.SQL)
	assert.Empty(t, plan.Query.Args)

	assert.True(t, plan.Collapse)
	require.Len(t, plan.Fetches, 1)
	fetch := plan.Fetches[0]
	assert.Same(t, so, fetch.Source)
	assert.Equal(t, 3, fetch.KeyIndex())
	attrs := make([]string, len(fetch.Fields))
	for i, f := range fetch.Fields {
		attrs[i] = f.Attribute
	}
	assert.Equal(t, []string{"id", "status", "customer"}, attrs)
	assert.Len(t, plan.Kinds, 6)
}

func TestRender_RecursiveCte(t *testing.T) {
	reg := newRegistry(t)
	q := criteria.NewQuery(reg)
	base := criteria.NewQuery(reg).Select(criteria.As(criteria.Literal(0), "n"))
	cte := q.WithRecursiveUnionAll("digits", base, func(self *criteria.Source) *criteria.Query {
		return self.Query().
			Select(criteria.As(criteria.Sum(self.Get("n"), criteria.Literal(1)), "n")).
			Where(criteria.Between(self.Get("n"), 0, 8))
	})
	d := q.FromCte(cte, "d")
	q.Select(d.Get("n")).OrderBy(criteria.Asc(d.Get("n")))

	plan := render(t, q, SQLite())
	assert.Equal(t,
		`WITH RECURSIVE "digits"("n") AS (SELECT 0 AS "n" UNION ALL `+
			`SELECT ("d"."n" + 1) AS "n" FROM "digits" "d" WHERE ("d"."n" BETWEEN 0 AND 8)) `+
			`SELECT "d"."n" FROM "digits" "d" ORDER BY "d"."n"`,
		plan.Query.SQL)
	assert.Equal(t, []sqltype.Kind{sqltype.Integer}, plan.Kinds)
}

func TestRender_DigitCompositionCrossJoins(t *testing.T) {
	reg := newRegistry(t)
	q := criteria.NewQuery(reg)
	base := criteria.NewQuery(reg).Select(criteria.As(criteria.Literal(0), "n"))
	cte := q.WithRecursiveUnionAll("digits", base, func(self *criteria.Source) *criteria.Query {
		return self.Query().
			Select(criteria.As(criteria.Sum(self.Get("n"), criteria.Literal(1)), "n")).
			Where(criteria.LessThan(self.Get("n"), 9))
	})
	units := q.FromCte(cte, "u")
	tens := q.FromCte(cte, "t")
	q.Select(criteria.Sum(units.Get("n"), criteria.Prod(criteria.Literal(10), tens.Get("n"))))

	plan := render(t, q, MySQL())
	assert.True(t, strings.HasSuffix(plan.Query.SQL,
		"SELECT (`u`.`n` + (10 * `t`.`n`)) FROM `digits` `u` CROSS JOIN `digits` `t`"), plan.Query.SQL)
}

func TestRender_GroupByHaving(t *testing.T) {
	q := criteria.NewQuery(newRegistry(t))
	so := q.From("SalesOrder")
	c := q.Join(so, "customer", criteria.InnerJoin)
	q.Select(c.Get("lastName"), criteria.Count(nil)).
		GroupBy(c.Get("lastName")).
		Having(criteria.GreaterThan(criteria.Count(nil), 1))

	plan := render(t, q, MySQL())
	assert.Equal(t,
		"SELECT `c`.`last_name`, COUNT(*) FROM `sales_order` `so` "+
			"INNER JOIN `customer` `c` ON (`so`.`customer_id` = `c`.`id`) "+
			"GROUP BY `c`.`last_name` HAVING (COUNT(*) > 1)",
		plan.Query.SQL)
}

func TestRender_GroupByInlinesLiterals(t *testing.T) {
	q := criteria.NewQuery(newRegistry(t))
	c := q.From("Customer")
	label := criteria.Concat(c.Get("firstName"), criteria.Literal("-"))
	q.Select(label, criteria.Count(nil)).GroupBy(label).Where(criteria.NotEqual(c.Get("lastName"), "x"))

	plan := render(t, q, MySQL())
	assert.Contains(t, plan.Query.SQL, "GROUP BY CONCAT(`c`.`first_name`, '-')")
	assert.Equal(t, []interface{}{"-", "x"}, plan.Query.Args)

	plan = render(t, q, Postgres())
	assert.Contains(t, plan.Query.SQL, `GROUP BY ("c"."first_name" || CAST('-' AS TEXT))`)
	assert.Contains(t, plan.Query.SQL, `SELECT ("c"."first_name" || CAST($1 AS TEXT)), COUNT(*)`)
}

func TestRender_GroupByInlinedQuestionMark(t *testing.T) {
	q := criteria.NewQuery(newRegistry(t))
	c := q.From("Customer")
	label := criteria.Concat(c.Get("firstName"), criteria.Literal("?"))
	q.Select(label).GroupBy(label)

	plan := render(t, q, Postgres())
	assert.Equal(t,
		`SELECT ("c"."first_name" || CAST($1 AS TEXT)) FROM "customer" "c" `+
			`GROUP BY ("c"."first_name" || CAST('?' AS TEXT))`,
		plan.Query.SQL)
	assert.Equal(t, []interface{}{"?"}, plan.Query.Args)

	plan = render(t, q, MySQL())
	assert.Contains(t, plan.Query.SQL, "GROUP BY CONCAT(`c`.`first_name`, '?')")
	assert.Equal(t, []interface{}{"?"}, plan.Query.Args)
}

func TestRender_Lock(t *testing.T) {
	q := criteria.NewQuery(newRegistry(t))
	c := q.From("Customer")
	q.Where(criteria.Equal(c.ID(), 1)).Lock(criteria.LockForUpdate)

	plan := render(t, q, MySQL())
	assert.True(t, strings.HasSuffix(plan.Query.SQL, "WHERE (`c`.`id` = 1) FOR UPDATE"), plan.Query.SQL)

	plan = render(t, q, Postgres())
	assert.True(t, strings.HasSuffix(plan.Query.SQL, `WHERE ("c"."id" = 1) FOR UPDATE OF "c"`), plan.Query.SQL)

	_, err := Render(q, SQLite())
	assert.ErrorIs(t, err, dbexec.ErrUnsupportedOperation)
	assert.False(t, dbexec.IsRetryable(err))
}

func TestRender_CorrelatedExists(t *testing.T) {
	q := criteria.NewQuery(newRegistry(t))
	c := q.From("Customer")
	sub := q.Subquery()
	so := sub.From("SalesOrder")
	sub.Where(criteria.Equal(so.Get("customer"), c.ID()))
	q.Where(criteria.Exists(sub))

	plan := render(t, q, SQLite())
	assert.Equal(t,
		`SELECT "c"."id", "c"."first_name", "c"."last_name" FROM "customer" "c" `+
			`WHERE EXISTS (SELECT 1 FROM "sales_order" "so" WHERE ("so"."customer_id" = "c"."id"))`,
		plan.Query.SQL)
}

func TestRender_DerivedTable(t *testing.T) {
	reg := newRegistry(t)
	sub := criteria.NewQuery(reg)
	soh := sub.From("SalesOrderHistory")
	sub.Select(criteria.As(soh.Get("id"), "order_id"), criteria.As(criteria.Max(soh.Get("seq")), "last_seq")).
		GroupBy(soh.Get("id"))

	q := criteria.NewQuery(reg)
	latest := q.FromSubquery(sub, "latest")
	q.Select(latest.Get("order_id"), latest.Get("last_seq"))

	plan := render(t, q, SQLite())
	assert.Equal(t,
		`SELECT "latest"."order_id", "latest"."last_seq" FROM (SELECT "soh"."id" AS "order_id", `+
			`MAX("soh"."seq") AS "last_seq" FROM "sales_order_history" "soh" GROUP BY "soh"."id") AS "latest"`,
		plan.Query.SQL)
}

func TestRender_CrossJoinedRoots(t *testing.T) {
	q := criteria.NewQuery(newRegistry(t))
	c := q.From("Customer")
	p := q.From("Product")
	q.Select(c.ID(), p.ID()).Distinct()

	plan := render(t, q, SQLite())
	assert.Equal(t, `SELECT DISTINCT "c"."id", "p"."id" FROM "customer" "c" CROSS JOIN "product" "p"`, plan.Query.SQL)
}

func TestRender_LimitOffset(t *testing.T) {
	q := criteria.NewQuery(newRegistry(t))
	c := q.From("Customer")
	q.Select(c.ID()).Offset(5)

	assert.True(t, strings.HasSuffix(render(t, q, SQLite()).Query.SQL, " LIMIT -1 OFFSET 5"))
	assert.True(t, strings.HasSuffix(render(t, q, MySQL()).Query.SQL, " LIMIT 18446744073709551615 OFFSET 5"))
	assert.True(t, strings.HasSuffix(render(t, q, Postgres()).Query.SQL, `FROM "customer" "c" OFFSET 5`))

	q.Limit(10)
	assert.True(t, strings.HasSuffix(render(t, q, SQLite()).Query.SQL, " LIMIT 10 OFFSET 5"))
}

func TestRender_PredicateShapes(t *testing.T) {
	q := criteria.NewQuery(newRegistry(t))
	c := q.From("Customer")
	q.Select(c.ID()).Where(
		criteria.Or(),
		criteria.Not(criteria.IsNull(c.Get("lastName"))),
		criteria.In(c.ID(), 1, 2),
		criteria.NotLike(c.Get("firstName"), "F%"),
	)

	plan := render(t, q, SQLite())
	assert.Equal(t,
		`SELECT "c"."id" FROM "customer" "c" WHERE ((1=0) AND NOT (("c"."last_name" IS NULL)) `+
			`AND ("c"."id" IN (1, 2)) AND ("c"."first_name" NOT LIKE ?))`,
		plan.Query.SQL)
	assert.Equal(t, []interface{}{"F%"}, plan.Query.Args)
}

func TestRender_LikeEscape(t *testing.T) {
	item, args := selectItem(t, MySQL(), func(c *criteria.Source) criteria.Expression {
		return criteria.Like(c.Get("firstName"), `50\%`).WithEscape('\\')
	})
	assert.Equal(t, "(`c`.`first_name` LIKE ? ESCAPE '\\\\')", item)
	assert.Equal(t, []interface{}{`50\%`}, args)

	item, _ = selectItem(t, SQLite(), func(c *criteria.Source) criteria.Expression {
		return criteria.Like(c.Get("firstName"), "50!%").WithEscape('!')
	})
	assert.Equal(t, `("c"."first_name" LIKE ? ESCAPE '!')`, item)

	q := criteria.NewQuery(newRegistry(t))
	c := q.From("Customer")
	q.Select(criteria.Like(c.Get("firstName"), "a").WithEscape('?'))
	_, err := Render(q, SQLite())
	assert.ErrorIs(t, err, dbexec.ErrUnsupportedOperation)
}

func TestRender_Literals(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name  string
		value interface{}
		sql   string
		args  []interface{}
	}{
		{"integer", 42, "42", nil},
		{"whole float", 2.0, "2.0", nil},
		{"float", 1.5, "1.5", nil},
		{"duration", 90 * time.Second, "90", nil},
		{"fractional duration", 1500 * time.Millisecond, "1.5", nil},
		{"bool", true, "TRUE", nil},
		{"string", "x", "?", []interface{}{"x"}},
		{"time", at, "?", []interface{}{"2024-01-02 03:04:05"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, args := selectItem(t, SQLite(), func(*criteria.Source) criteria.Expression {
				return criteria.Literal(tt.value)
			})
			assert.Equal(t, tt.sql, item)
			if tt.args == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.args, args)
			}
		})
	}

	item, args := selectItem(t, Postgres(), func(*criteria.Source) criteria.Expression {
		return criteria.Literal(at)
	})
	assert.Equal(t, "CAST($1 AS TIMESTAMP)", item)
	assert.Equal(t, []interface{}{at}, args)

	item, _ = selectItem(t, SQLite(), func(*criteria.Source) criteria.Expression {
		return criteria.Null(sqltype.Integer)
	})
	assert.Equal(t, "NULL", item)
}

func TestRender_ArgsFollowTextOrder(t *testing.T) {
	q := criteria.NewQuery(newRegistry(t))
	c := q.From("Customer")
	q.Select(criteria.Concat(c.Get("firstName"), criteria.Literal(" "), c.Get("lastName"))).
		Where(criteria.Equal(c.Get("firstName"), "A"), criteria.Equal(c.Get("lastName"), "B"))

	plan := render(t, q, Postgres())
	assert.Equal(t,
		`SELECT ("c"."first_name" || CAST($1 AS TEXT) || "c"."last_name") FROM "customer" "c" `+
			`WHERE (("c"."first_name" = CAST($2 AS TEXT)) AND ("c"."last_name" = CAST($3 AS TEXT)))`,
		plan.Query.SQL)
	assert.Equal(t, []interface{}{" ", "A", "B"}, plan.Query.Args)
}

func TestRender_FetchOrderKeepsParentsAdjacent(t *testing.T) {
	tests := []struct {
		name   string
		orders func(so, soi *criteria.Source) []criteria.Order
		want   string
	}{
		{
			name: "child column first",
			orders: func(so, soi *criteria.Source) []criteria.Order {
				return []criteria.Order{criteria.Asc(soi.Get("product")), criteria.Asc(soi.ID())}
			},
			want: `ORDER BY "so"."id", "soi"."product_id", "soi"."id"`,
		},
		{
			name: "parent column then child column",
			orders: func(so, soi *criteria.Source) []criteria.Order {
				return []criteria.Order{criteria.Asc(so.Get("status")), criteria.Desc(soi.Get("quantity"))}
			},
			want: `ORDER BY "so"."status", "so"."id", "soi"."quantity" DESC, "soi"."id"`,
		},
		{
			name: "parent key requested later",
			orders: func(so, soi *criteria.Source) []criteria.Order {
				return []criteria.Order{criteria.Asc(soi.Get("quantity")), criteria.Desc(so.ID())}
			},
			want: `ORDER BY "so"."id" DESC, "soi"."quantity", "soi"."id"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := criteria.NewQuery(newRegistry(t))
			so := q.From("SalesOrder")
			soi := q.Fetch(so, "item", criteria.InnerJoin)
			q.OrderBy(tt.orders(so, soi)...)

			plan := render(t, q, SQLite())
			assert.True(t, strings.HasSuffix(plan.Query.SQL, tt.want), plan.Query.SQL)
		})
	}
}

func TestRender_Deterministic(t *testing.T) {
	q := criteria.NewQuery(newRegistry(t))
	so := q.From("SalesOrder")
	c := q.Fetch(so, "customer", criteria.InnerJoin)
	soi := q.Fetch(so, "item", criteria.LeftJoin)
	q.Where(criteria.In(so.Get("status"), "NEW", "SHIPPED"), criteria.IsNotNull(c.Get("lastName")))
	q.OrderBy(criteria.Desc(so.ID()))
	_ = soi

	for _, d := range []*Dialect{MySQL(), SQLite(), Postgres()} {
		first := render(t, q, d)
		second := render(t, q, d)
		assert.Equal(t, first.Query, second.Query, d.Name)
	}
}

func TestRender_BuildErrorsSurface(t *testing.T) {
	q := criteria.NewQuery(newRegistry(t))
	c := q.From("Customer")
	q.Select(c.Get("missing"))

	_, err := Render(q, SQLite())
	assert.ErrorIs(t, err, criteria.ErrUnknownAttribute)

	q = criteria.NewQuery(newRegistry(t))
	q.From("Customer")
	q.From("Product")
	_, err = Render(q, SQLite())
	assert.ErrorIs(t, err, criteria.ErrInvalidSelection)
}

func TestDialectFor(t *testing.T) {
	for _, name := range DriverNames() {
		d, err := DialectFor(name)
		require.NoError(t, err)
		assert.Equal(t, name, d.Name)
	}
	_, err := DialectFor("oracle")
	assert.Error(t, err)
}
