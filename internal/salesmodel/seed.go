package salesmodel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"sqlcriteria/internal/mapping"
)

// Row is one seed row keyed by attribute name. Many-to-one associations are
// keyed by association name and hold the target's primary key.
type Row map[string]any

// Fixture is the sample data set: customers, products, four orders with
// zero, zero, two and three items, and one history row per status step.
type Fixture struct {
	Entity string
	Rows   []Row
}

// HistoryStart is the creation time of the first history row. Each later row
// is one minute newer.
var HistoryStart = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

// Fixtures returns the seed data in insertion order.
func Fixtures() []Fixture {
	orders := []struct {
		customer int64
		statuses []string
		items    [][2]int64 // product, quantity
	}{
		{1, Statuses[:1], nil},
		{2, Statuses[:2], nil},
		{1, Statuses[:4], [][2]int64{{1, 10}, {2, 20}}},
		{2, Statuses[:3], [][2]int64{{1, 1}, {2, 2}, {3, 3}}},
	}
	prices := map[int64]string{1: "100", 2: "1000", 3: "10000"}

	var salesOrders, items, history []Row
	var itemID, seq int64
	for i, o := range orders {
		orderID := int64(i + 1)
		salesOrders = append(salesOrders, Row{"id": orderID, "status": o.statuses[len(o.statuses)-1], "customer": o.customer})
		for _, status := range o.statuses {
			seq++
			history = append(history, Row{
				"seq":       seq,
				"id":        orderID,
				"status":    status,
				"createdAt": HistoryStart.Add(time.Duration(seq-1) * time.Minute),
				"customer":  o.customer,
			})
		}
		for _, it := range o.items {
			itemID++
			items = append(items, Row{
				"id":         itemID,
				"unitPrice":  prices[it[0]],
				"quantity":   it[1],
				"salesOrder": orderID,
				"product":    it[0],
			})
		}
	}

	return []Fixture{
		{Entity: "Customer", Rows: []Row{
			{"id": int64(1), "firstName": "FIRST_01", "lastName": "LAST_01"},
			{"id": int64(2), "firstName": "FIRST_02", "lastName": "LAST_02"},
		}},
		{Entity: "Product", Rows: []Row{
			{"id": int64(1), "name": "PROD_01", "unitPrice": prices[1]},
			{"id": int64(2), "name": "PROD_02", "unitPrice": prices[2]},
			{"id": int64(3), "name": "PROD_03", "unitPrice": prices[3]},
		}},
		{Entity: "SalesOrder", Rows: salesOrders},
		{Entity: "SalesOrderItem", Rows: items},
		{Entity: "SalesOrderHistory", Rows: history},
	}
}

// Seed inserts the fixtures through db. bindTime converts timestamps to the
// value the store expects; it should be the bind function of the dialect the
// queries are rendered with, so stored and bound times compare equal.
func Seed(ctx context.Context, db sqlx.ExtContext, reg *mapping.Registry, bindTime func(time.Time) any) error {
	for _, fx := range Fixtures() {
		e, err := reg.Entity(fx.Entity)
		if err != nil {
			return err
		}
		for _, row := range fx.Rows {
			stmt, args, err := insert(e, row, bindTime)
			if err != nil {
				return err
			}
			if _, err := sqlx.NamedExecContext(ctx, db, stmt, args); err != nil {
				return fmt.Errorf("seed %s: %w", e.Name, err)
			}
		}
	}
	return nil
}

func insert(e *mapping.Entity, row Row, bindTime func(time.Time) any) (string, map[string]any, error) {
	var cols, params []string
	args := make(map[string]any, len(row))
	add := func(column string, v any) {
		if t, ok := v.(time.Time); ok && bindTime != nil {
			v = bindTime(t)
		}
		cols = append(cols, column)
		params = append(params, ":"+column)
		args[column] = v
	}
	for _, f := range e.Fields {
		if v, ok := row[f.Name]; ok {
			add(f.Column, v)
		}
	}
	for _, a := range e.Associations {
		if a.Kind != mapping.ManyToOne {
			continue
		}
		if v, ok := row[a.Name]; ok {
			add(a.JoinColumn, v)
		}
	}
	if len(cols) != len(row) {
		return "", nil, fmt.Errorf("seed %s: row has unmapped attributes", e.Name)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", e.Table, strings.Join(cols, ", "), strings.Join(params, ", ")), args, nil
}
