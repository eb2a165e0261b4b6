package showcase

import (
	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/mapping"
)

var basicSection = Section{
	Name:  "basic",
	Title: "1. Basic usage",
	Examples: []Example{
		{
			ID:    "1.1",
			Title: "read one entity",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				c := q.From("Customer")
				return q.Where(criteria.Equal(c.ID(), 1))
			},
		},
		{
			ID:    "1.2",
			Title: "read columns as a tuple",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				c := q.From("Customer")
				return q.Select(c.ID(), c.Get("firstName"), c.Get("lastName")).
					Where(criteria.Equal(c.ID(), 1))
			},
		},
		{
			ID:    "1.3",
			Title: "fetch a one-to-many association in one statement (parent driven)",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				q.Fetch(so, "item", criteria.InnerJoin)
				return q.Where(criteria.Equal(so.Get("customer"), 1))
			},
			Nested: []string{"SalesOrder.item"},
		},
		{
			ID:    "1.4",
			Title: "fetch a many-to-one association in one statement (child driven)",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				soi := q.From("SalesOrderItem")
				so := q.Fetch(soi, "salesOrder", criteria.InnerJoin)
				return q.Where(criteria.Equal(so.Get("customer"), 1)).
					OrderBy(criteria.Asc(soi.ID()))
			},
		},
		{
			ID:    "1.5",
			Title: "join and select both entities (parent driven)",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				so := q.From("SalesOrder")
				soi := q.Join(so, "item", criteria.InnerJoin)
				return q.SelectEntity(so).SelectEntity(soi).
					Where(criteria.Equal(so.Get("customer"), 1)).
					OrderBy(criteria.Asc(so.ID()), criteria.Asc(soi.ID()))
			},
		},
		{
			ID:    "1.6",
			Title: "join and select both entities (child driven)",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				soi := q.From("SalesOrderItem")
				so := q.Join(soi, "salesOrder", criteria.InnerJoin)
				return q.SelectEntity(soi).SelectEntity(so).
					Where(criteria.Equal(so.Get("customer"), 1)).
					OrderBy(criteria.Asc(soi.ID()))
			},
		},
		{
			ID:    "1.7",
			Title: "read every customer in key order",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				c := q.From("Customer")
				return q.OrderBy(criteria.Asc(c.ID()))
			},
		},
	},
}
