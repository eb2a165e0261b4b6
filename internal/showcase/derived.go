package showcase

import (
	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/mapping"
)

// latestHistoryTable selects the newest history row of each order with
// aliased columns, for use as a derived table.
func latestHistoryTable(reg *mapping.Registry) *criteria.Query {
	sub := criteria.NewQuery(reg)
	soh := sub.From("SalesOrderHistory")
	return sub.Select(
		criteria.As(soh.Get("seq"), "soh_seq"),
		criteria.As(soh.Get("id"), "soh_id"),
		criteria.As(soh.Get("status"), "soh_status"),
		criteria.As(soh.Get("createdAt"), "soh_created_at"),
	).Where(latestHistory(sub, soh))
}

var derivedSection = Section{
	Name:  "derived",
	Title: "7. Derived tables",
	Examples: []Example{
		{
			ID:    "7.1",
			Title: "derived table on its own",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				h := q.FromSubquery(latestHistoryTable(reg), "h")
				return q.Select(h.Get("soh_id"), h.Get("soh_status"), h.Get("soh_created_at")).
					OrderBy(criteria.Asc(h.Get("soh_id")))
			},
		},
		{
			ID:    "7.2",
			Title: "derived table related to an entity through the where clause",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				h := q.FromSubquery(latestHistoryTable(reg), "h")
				so := q.From("SalesOrder")
				return q.Select(so.ID(), so.Get("status"), h.Get("soh_seq"), h.Get("soh_created_at")).
					Where(criteria.Equal(so.ID(), h.Get("soh_id"))).
					OrderBy(criteria.Asc(so.ID()))
			},
		},
		{
			ID:    "7.3",
			Title: "entity joined to a derived table of aggregates",
			Build: func(reg *mapping.Registry) *criteria.Query {
				sub := criteria.NewQuery(reg)
				soi := sub.From("SalesOrderItem")
				order := soi.Get("salesOrder")
				sub.Select(
					criteria.As(order, "order_id"),
					criteria.As(criteria.Count(nil), "item_count"),
					criteria.As(criteria.SumOf(soi.Get("quantity")), "total_quantity"),
				).GroupBy(order)

				q := criteria.NewQuery(reg)
				totals := q.FromSubquery(sub, "t")
				so := q.Join(totals, "SalesOrder", criteria.InnerJoin, func(so *criteria.Source) criteria.Predicate {
					return criteria.Equal(so.ID(), totals.Get("order_id"))
				})
				return q.SelectEntity(so).Select(totals.Get("item_count"), totals.Get("total_quantity")).
					OrderBy(criteria.Asc(so.ID()))
			},
		},
	},
}
