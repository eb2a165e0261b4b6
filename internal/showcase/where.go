package showcase

import (
	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/mapping"
)

// latestHistory restricts soh to the newest history row of each order.
func latestHistory(q *criteria.Query, soh *criteria.Source) criteria.Predicate {
	sub := q.Subquery()
	newer := sub.From("SalesOrderHistory")
	sub.Where(
		criteria.Equal(newer.Get("id"), soh.Get("id")),
		criteria.GreaterThan(newer.Get("seq"), soh.Get("seq")),
	)
	return criteria.NotExists(sub)
}

var whereSection = Section{
	Name:  "where",
	Title: "4. Restrictions",
	Examples: []Example{
		{
			ID:    "4.1",
			Title: "single condition",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				return q.Where(criteria.Equal(so.Get("status"), "SHIPPED"))
			},
		},
		{
			ID:    "4.2",
			Title: "conditions combined with and",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				soi := q.From("SalesOrderItem")
				return q.Where(
					criteria.GreaterOrEqual(soi.Get("quantity"), 2),
					criteria.LessThan(soi.Get("unitPrice"), 10000),
				).OrderBy(criteria.Asc(soi.ID()))
			},
		},
		{
			ID:    "4.3",
			Title: "or nested in and",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				status := so.Get("status")
				return q.Where(criteria.And(
					criteria.Equal(so.Get("customer"), 2),
					criteria.Or(criteria.Equal(status, "NEW"), criteria.Equal(status, "PREPARING")),
				)).OrderBy(criteria.Asc(so.ID()))
			},
		},
		{
			ID:    "4.4",
			Title: "negation",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				return q.Where(criteria.Not(criteria.Equal(so.Get("status"), "NEW"))).
					OrderBy(criteria.Asc(so.ID()))
			},
		},
		{
			ID:    "4.5",
			Title: "like and not like",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				p := q.From("Product")
				name := p.Get("name")
				return q.Select(p.ID(), name).
					Where(criteria.Like(name, "PROD%"), criteria.NotLike(name, "%3")).
					OrderBy(criteria.Asc(p.ID()))
			},
		},
		{
			ID:    "4.6",
			Title: "in and not in",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				return q.Select(so.ID(), so.Get("status")).
					Where(
						criteria.In(so.Get("status"), "NEW", "APPROVED", "SHIPPED"),
						criteria.NotIn(so.ID(), 2),
					).
					OrderBy(criteria.Asc(so.ID()))
			},
		},
		{
			ID:    "4.7",
			Title: "in subquery",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				c := q.From("Customer")
				sub := q.Subquery()
				so := sub.From("SalesOrder")
				sub.Select(so.Get("customer")).Where(criteria.Equal(so.Get("status"), "SHIPPED"))
				return q.Where(criteria.InSubquery(c.ID(), sub))
			},
		},
		{
			ID:    "4.8",
			Title: "is null on an outer joined column",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				soi := q.Join(so, "item", criteria.LeftJoin)
				return q.Select(so.ID(), so.Get("status")).
					Where(criteria.IsNull(soi.ID())).
					OrderBy(criteria.Asc(so.ID()))
			},
		},
		{
			ID:    "4.9",
			Title: "is not null on an outer joined column",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				soi := q.Join(so, "item", criteria.LeftJoin)
				return q.Select(so.ID(), soi.ID()).
					Where(criteria.IsNotNull(soi.ID())).
					OrderBy(criteria.Asc(so.ID()), criteria.Asc(soi.ID()))
			},
		},
		{
			ID:    "4.10",
			Title: "between",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				soi := q.From("SalesOrderItem")
				return q.Select(soi.ID(), soi.Get("quantity")).
					Where(criteria.Between(soi.Get("quantity"), 2, 10)).
					OrderBy(criteria.Asc(soi.ID()))
			},
		},
		{
			ID:    "4.11",
			Title: "exists",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				sub := q.Subquery()
				soi := sub.From("SalesOrderItem")
				sub.Where(criteria.Equal(soi.Get("salesOrder"), so.ID()))
				return q.Where(criteria.Exists(sub)).OrderBy(criteria.Asc(so.ID()))
			},
		},
		{
			ID:    "4.12",
			Title: "not exists",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				sub := q.Subquery()
				soi := sub.From("SalesOrderItem")
				sub.Where(criteria.Equal(soi.Get("salesOrder"), so.ID()))
				return q.Where(criteria.NotExists(sub)).OrderBy(criteria.Asc(so.ID()))
			},
		},
		{
			ID:    "4.13",
			Title: "latest history row per order",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				soh := q.From("SalesOrderHistory")
				return q.Select(soh.Get("id"), soh.Get("status"), soh.Get("createdAt")).
					Where(latestHistory(q, soh)).
					OrderBy(criteria.Asc(soh.Get("id")))
			},
		},
		{
			ID:    "4.14",
			Title: "compare with a scalar subquery",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				p := q.From("Product")
				sub := q.Subquery()
				all := sub.From("Product")
				sub.Select(criteria.Avg(all.Get("unitPrice")))
				return q.Select(p.Get("name"), p.Get("unitPrice")).
					Where(criteria.GreaterThan(p.Get("unitPrice"), criteria.ScalarSubquery(sub))).
					OrderBy(criteria.Asc(p.ID()))
			},
		},
	},
}
