package showcase

import (
	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/mapping"
)

var fromSection = Section{
	Name:  "from",
	Title: "3. Sources and joins",
	Examples: []Example{
		{
			ID:    "3.1",
			Title: "single table",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				return q.OrderBy(criteria.Asc(so.ID()))
			},
		},
		{
			ID:    "3.2",
			Title: "fetch a many-to-one association",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				q.Fetch(so, "customer", criteria.InnerJoin)
				return q.OrderBy(criteria.Asc(so.ID()))
			},
		},
		{
			ID:    "3.3",
			Title: "fetch a one-to-many association (inner join)",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				q.Fetch(so, "item", criteria.InnerJoin)
				return q
			},
			Nested: []string{"SalesOrder.item"},
		},
		{
			ID:    "3.4",
			Title: "fetch a one-to-many association (left join)",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				q.Fetch(so, "item", criteria.LeftJoin)
				return q
			},
			Nested: []string{"SalesOrder.item"},
		},
		{
			ID:    "3.5",
			Title: "fetch one-to-many then many-to-one",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				soi := q.Fetch(so, "item", criteria.InnerJoin)
				q.Fetch(soi, "product", criteria.InnerJoin)
				return q
			},
			Nested: []string{"SalesOrder.item"},
		},
		{
			ID:    "3.6",
			Title: "join one-to-many (inner join)",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				soi := q.Join(so, "item", criteria.InnerJoin)
				return q.SelectEntity(so).SelectEntity(soi).
					OrderBy(criteria.Asc(so.ID()), criteria.Asc(soi.ID()))
			},
		},
		{
			ID:    "3.7",
			Title: "join one-to-many (left join)",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				soi := q.Join(so, "item", criteria.LeftJoin)
				return q.SelectEntity(so).SelectEntity(soi).
					OrderBy(criteria.Asc(so.ID()), criteria.Asc(soi.ID()))
			},
		},
		{
			ID:    "3.8",
			Title: "join one-to-many then many-to-one",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				soi := q.Join(so, "item", criteria.InnerJoin)
				p := q.Join(soi, "product", criteria.InnerJoin)
				return q.SelectEntity(so).SelectEntity(soi).SelectEntity(p).
					OrderBy(criteria.Asc(so.ID()), criteria.Asc(soi.ID()))
			},
		},
		{
			ID:    "3.9",
			Title: "several roots (cross join)",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				c := q.From("Customer")
				p := q.From("Product")
				return q.Select(c.Get("lastName"), p.Get("name")).
					OrderBy(criteria.Asc(c.ID()), criteria.Asc(p.ID()))
			},
		},
		{
			ID:    "3.10",
			Title: "left join an unrelated entity on a correlated exists",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				p := q.Join(so, "Product", criteria.LeftJoin, func(joined *criteria.Source) criteria.Predicate {
					sub := q.Subquery()
					soi := sub.From("SalesOrderItem")
					sub.Where(
						criteria.Equal(soi.Get("salesOrder"), so.ID()),
						criteria.Equal(soi.Get("product"), joined.ID()),
					)
					return criteria.Exists(sub)
				})
				return q.SelectEntity(so).SelectEntity(p).
					OrderBy(criteria.Asc(so.ID()), criteria.Asc(p.ID()))
			},
		},
	},
}
