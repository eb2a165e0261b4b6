package showcase

import (
	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/mapping"
	"sqlcriteria/internal/sqltype"
)

var selectSection = Section{
	Name:  "select",
	Title: "2. The select list",
	Examples: []Example{
		{
			ID:    "2.1",
			Title: "select columns",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				c := q.From("Customer")
				return q.Select(c.ID(), c.Get("firstName"), c.Get("lastName")).
					OrderBy(criteria.Asc(c.ID()))
			},
		},
		{
			ID:    "2.2",
			Title: "select constants",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				c := q.From("Customer")
				return q.Select(
					criteria.Literal(true),
					criteria.Literal(123),
					criteria.Literal(1.5),
					criteria.Literal("abc"),
					criteria.Null(sqltype.String),
				).Where(criteria.Equal(c.ID(), 1))
			},
		},
		{
			ID:    "2.3",
			Title: "arithmetic",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				soi := q.From("SalesOrderItem")
				qty := soi.Get("quantity")
				return q.Select(
					soi.ID(),
					criteria.Sum(qty, criteria.Literal(1)),
					criteria.Diff(qty, criteria.Literal(1)),
					criteria.Prod(soi.Get("unitPrice"), qty),
					criteria.Quot(qty, criteria.Literal(2)),
					criteria.Mod(qty, criteria.Literal(3)),
					criteria.Neg(qty),
				).OrderBy(criteria.Asc(soi.ID()))
			},
		},
		{
			ID:    "2.4",
			Title: "numeric functions",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				soi := q.From("SalesOrderItem")
				qty := soi.Get("quantity")
				return q.Select(
					soi.ID(),
					criteria.Abs(criteria.Neg(qty)),
					criteria.Sign(criteria.Diff(qty, criteria.Literal(2))),
					criteria.Round(criteria.Quot(soi.Get("unitPrice"), criteria.Literal(3)), criteria.Literal(2)),
					criteria.Coalesce(criteria.Null(sqltype.Integer), qty),
					criteria.Cast(qty, sqltype.String),
				).OrderBy(criteria.Asc(soi.ID()))
			},
		},
		{
			ID:    "2.5",
			Title: "string functions",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				c := q.From("Customer")
				first, last := c.Get("firstName"), c.Get("lastName")
				return q.Select(
					criteria.Concat(first, criteria.Literal(" "), last),
					criteria.Substring(first, criteria.Literal(1), criteria.Literal(5)),
					criteria.Trim(criteria.TrimBoth, criteria.Literal("_"), criteria.Concat(criteria.Literal("_"), last, criteria.Literal("_"))),
					criteria.Lower(first),
					criteria.Upper(criteria.Lower(last)),
					criteria.Length(first),
					criteria.Locate(criteria.Literal("_"), first),
				).OrderBy(criteria.Asc(c.ID()))
			},
		},
		{
			ID:    "2.6",
			Title: "date and time functions",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				soh := q.From("SalesOrderHistory")
				created := soh.Get("createdAt")
				return q.Select(
					soh.Get("seq"),
					created,
					criteria.Extract(criteria.Year, created),
					criteria.Extract(criteria.Minute, created),
					criteria.TruncateTime(criteria.Hour, created),
					criteria.AddDuration(created, criteria.Duration(criteria.Literal(30), criteria.Minute)),
				).Where(criteria.LessOrEqual(soh.Get("seq"), 3)).
					OrderBy(criteria.Asc(soh.Get("seq")))
			},
		},
		{
			ID:    "2.7",
			Title: "simple case",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				status := so.Get("status")
				label := criteria.SimpleCase(status).
					When(criteria.Literal("NEW"), criteria.Literal("received")).
					When(criteria.Literal("SHIPPED"), criteria.Literal("done")).
					Otherwise(criteria.Literal("in progress"))
				return q.Select(so.ID(), status, label).OrderBy(criteria.Asc(so.ID()))
			},
		},
		{
			ID:    "2.8",
			Title: "searched case",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				status := so.Get("status")
				stage := criteria.SearchedCase().
					When(criteria.Equal(status, "NEW"), criteria.Literal(1)).
					When(criteria.In(status, "APPROVED", "PREPARING"), criteria.Literal(2)).
					Otherwise(criteria.Literal(3))
				return q.Select(so.ID(), status, stage).OrderBy(criteria.Asc(so.ID()))
			},
		},
		{
			ID:    "2.9",
			Title: "aggregate (sum of line amounts per order)",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				soi := q.Join(so, "item", criteria.InnerJoin)
				amount := criteria.SumOf(criteria.Prod(soi.Get("unitPrice"), soi.Get("quantity")))
				return q.Select(so.ID(), so.Get("status"), amount).
					GroupBy(so.ID(), so.Get("status")).
					OrderBy(criteria.Asc(so.ID()))
			},
		},
	},
}
