package showcase

import (
	"sqlcriteria/internal/criteria"
	"sqlcriteria/internal/mapping"
	"sqlcriteria/internal/sqltype"
)

var functionSection = Section{
	Name:  "function",
	Title: "8. Function catalog",
	Examples: []Example{
		{
			ID:    "8.1",
			Title: "exponents and roots",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				soi := q.From("SalesOrderItem")
				qty := soi.Get("quantity")
				return q.Select(
					qty,
					criteria.Sqrt(qty),
					criteria.Power(qty, criteria.Literal(2)),
					criteria.Exp(criteria.Literal(1)),
					criteria.Ln(qty),
					criteria.Log10(qty),
					criteria.Log(criteria.Literal(2), qty),
				).OrderBy(criteria.Asc(soi.ID()))
			},
		},
		{
			ID:    "8.2",
			Title: "rounding",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				soi := q.From("SalesOrderItem")
				third := criteria.Quot(soi.Get("unitPrice"), criteria.Literal(3))
				return q.Select(
					third,
					criteria.Ceiling(third),
					criteria.Floor(third),
					criteria.Round(third, criteria.Literal(1)),
					criteria.Truncate(third, criteria.Literal(1)),
				).OrderBy(criteria.Asc(soi.ID()))
			},
		},
		{
			ID:    "8.3",
			Title: "trigonometry",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				c := q.From("Customer")
				half := criteria.Quot(criteria.Pi(), criteria.Literal(2))
				return q.Select(
					criteria.Sin(half),
					criteria.Cos(criteria.Literal(0)),
					criteria.Atan2(criteria.Literal(1), criteria.Literal(1)),
					criteria.Tanh(criteria.Literal(0)),
					criteria.Degrees(criteria.Pi()),
				).Where(criteria.Equal(c.ID(), 1))
			},
		},
		{
			ID:    "8.4",
			Title: "more string functions",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				p := q.From("Product")
				name := p.Get("name")
				return q.Select(
					name,
					criteria.Left(name, criteria.Literal(4)),
					criteria.Right(name, criteria.Literal(2)),
					criteria.Replace(name, criteria.Literal("PROD"), criteria.Literal("ITEM")),
					criteria.Overlay(name, criteria.Literal("-"), criteria.Literal(5), criteria.Literal(1)),
					criteria.Repeat(criteria.Literal("*"), p.ID()),
				).OrderBy(criteria.Asc(p.ID()))
			},
		},
		{
			ID:    "8.5",
			Title: "padding",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				p := q.From("Product")
				price := criteria.Cast(p.Get("unitPrice"), sqltype.String)
				return q.Select(
					criteria.Pad(criteria.PadLeading, price, criteria.Literal(10), criteria.Literal(".")),
					criteria.Pad(criteria.PadTrailing, p.Get("name"), criteria.Literal(10), criteria.Literal("_")),
				).OrderBy(criteria.Asc(p.ID()))
			},
		},
		{
			ID:    "8.6",
			Title: "timestamp arithmetic",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				soh := q.From("SalesOrderHistory")
				created := soh.Get("createdAt")
				return q.Select(
					created,
					criteria.TruncateTime(criteria.Day, created),
					criteria.TruncateTime(criteria.Month, created),
					criteria.SubtractDuration(created, criteria.Duration(criteria.Literal(1), criteria.Week)),
					criteria.AddDuration(created, criteria.Duration(criteria.Literal(2), criteria.Hour)),
				).Where(criteria.Equal(soh.Get("id"), 4)).
					OrderBy(criteria.Asc(soh.Get("seq")))
			},
		},
		{
			ID:    "8.7",
			Title: "elapsed time per order",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				soh := q.From("SalesOrderHistory")
				created := soh.Get("createdAt")
				elapsed := criteria.DurationBetween(criteria.Min(created), criteria.Max(created))
				return q.Select(
					soh.Get("id"),
					criteria.Count(nil),
					elapsed,
					criteria.DurationByUnit(elapsed, criteria.Minute),
				).GroupBy(soh.Get("id")).
					OrderBy(criteria.Asc(soh.Get("id")))
			},
		},
		{
			ID:    "8.8",
			Title: "current timestamp",
			Build: func(reg *mapping.Registry) *criteria.Query {
				q := criteria.NewQuery(reg)
				c := q.From("Customer")
				return q.Select(criteria.CurrentTimestamp()).Where(criteria.Equal(c.ID(), 1))
			},
		},
	},
}
