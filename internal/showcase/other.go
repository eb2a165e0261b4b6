package showcase

import (
	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/mapping"
)

var otherSection = Section{
	Name:  "other",
	Title: "5. Grouping, ordering, paging and locks",
	Examples: []Example{
		{
			ID:    "5.1",
			Title: "group by a column",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				customer := so.Get("customer")
				return q.Select(customer, criteria.Count(nil)).
					GroupBy(customer).
					OrderBy(criteria.Asc(customer))
			},
		},
		{
			ID:    "5.2",
			Title: "group by an entity",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				c := q.From("Customer")
				so := q.Join(c, "salesOrder", criteria.InnerJoin)
				return q.SelectEntity(c).Select(criteria.Count(so.ID())).
					GroupByEntity(c).
					OrderBy(criteria.Asc(c.ID()))
			},
		},
		{
			ID:    "5.3",
			Title: "having",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				soi := q.Join(so, "item", criteria.InnerJoin)
				amount := criteria.SumOf(criteria.Prod(soi.Get("unitPrice"), soi.Get("quantity")))
				return q.Select(so.ID(), amount).
					GroupBy(so.ID()).
					Having(criteria.GreaterThan(amount, 20000)).
					OrderBy(criteria.Asc(so.ID()))
			},
		},
		{
			ID:    "5.4",
			Title: "order by an aggregate, descending",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				p := q.From("Product")
				soi := q.Join(p, "salesOrderItem", criteria.LeftJoin)
				total := criteria.Coalesce(criteria.SumOf(soi.Get("quantity")), criteria.Literal(0))
				return q.Select(p.Get("name"), criteria.As(total, "total_quantity")).
					GroupBy(p.ID(), p.Get("name")).
					OrderBy(criteria.Desc(total), criteria.Asc(p.ID()))
			},
		},
		{
			ID:    "5.5",
			Title: "distinct",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				soh := q.From("SalesOrderHistory")
				status := soh.Get("status")
				return q.Select(status).Distinct().OrderBy(criteria.Asc(status))
			},
		},
		{
			ID:    "5.6",
			Title: "limit",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				soh := q.From("SalesOrderHistory")
				return q.OrderBy(criteria.Desc(soh.Get("createdAt"))).Limit(3)
			},
		},
		{
			ID:    "5.7",
			Title: "limit and offset",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				soh := q.From("SalesOrderHistory")
				return q.OrderBy(criteria.Asc(soh.ID())).Limit(3).Offset(4)
			},
		},
		{
			ID:    "5.8",
			Title: "offset only",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				soh := q.From("SalesOrderHistory")
				return q.OrderBy(criteria.Asc(soh.ID())).Offset(8)
			},
		},
		{
			ID:    "5.9",
			Title: "lock the selected rows",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				return q.Where(criteria.Equal(so.ID(), 3)).Lock(criteria.LockForUpdate)
			},
		},
	},
}
