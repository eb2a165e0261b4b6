package showcase

import (
	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/mapping"
)

// digits registers a recursive CTE producing n = 0..9 on q.
func digits(q *criteria.Query) *criteria.CteDefinition {
	base := criteria.NewQuery(q.Registry()).Select(criteria.As(criteria.Literal(0), "n"))
	return q.WithRecursiveUnionAll("digits", base, func(self *criteria.Source) *criteria.Query {
		return self.Query().
			Select(criteria.As(criteria.Sum(self.Get("n"), criteria.Literal(1)), "n")).
			Where(criteria.LessThan(self.Get("n"), 9))
	})
}

// composeDigits cross joins places instances of the digits CTE and returns
// the decimal number they spell, least significant instance first.
func composeDigits(q *criteria.Query, places int) criteria.Expression {
	cte := digits(q)
	var n criteria.Expression
	weight := 1
	for i := 0; i < places; i++ {
		d := q.FromCte(cte, "")
		var term criteria.Expression = d.Get("n")
		if weight > 1 {
			term = criteria.Prod(criteria.Literal(weight), term)
		}
		if n == nil {
			n = term
		} else {
			n = criteria.Sum(n, term)
		}
		weight *= 10
	}
	return n
}

func numbers(places int) func(reg *mapping.Registry) *criteria.Query {
	return func(reg *mapping.Registry) *criteria.Query {
		q := criteria.NewQuery(reg)
		n := composeDigits(q, places)
		return q.Select(n).OrderBy(criteria.Asc(n))
	}
}

var withSection = Section{
	Name:  "with",
	Title: "6. Common table expressions",
	Examples: []Example{
		{ID: "6.1", Title: "recursive cte: 0 to 9", Build: numbers(1)},
		{ID: "6.2", Title: "recursive cte: 0 to 99", Build: numbers(2)},
		{ID: "6.3", Title: "recursive cte: 0 to 999", Build: numbers(3)},
		{
			ID:    "6.4",
			Title: "recursive cte: 0 to 9999, summarized",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				n := composeDigits(q, 4)
				return q.Select(criteria.Count(nil), criteria.Min(n), criteria.Max(n), criteria.SumOf(n))
			},
		},
		{
			ID:    "6.5",
			Title: "non-recursive cte",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				body := criteria.NewQuery(reg)
				so := body.From("SalesOrder")
				body.Select(
					criteria.As(so.ID(), "order_id"),
					criteria.As(so.Get("customer"), "customer_id"),
				).Where(criteria.NotEqual(so.Get("status"), "SHIPPED"))
				open := q.FromCte(q.With("open_orders", body), "oo")
				c := q.Join(open, "Customer", criteria.InnerJoin, func(c *criteria.Source) criteria.Predicate {
					return criteria.Equal(c.ID(), open.Get("customer_id"))
				})
				return q.Select(open.Get("order_id"), c.Get("lastName")).
					OrderBy(criteria.Asc(open.Get("order_id")))
			},
		},
	},
}
