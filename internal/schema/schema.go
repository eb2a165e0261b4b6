// Package schema generates CREATE TABLE statements for a mapping so the demo
// and the tests can build a store from scratch. It is not a migration tool.
package schema

import (
	"fmt"
	"strings"

	"sqlcriteria/internal/mapping"
	"sqlcriteria/internal/planner"
	"sqlcriteria/internal/sqltype"
)

// CreateTables returns one CREATE TABLE statement per entity, ordered so that
// every table comes after the tables its foreign keys reference.
func CreateTables(reg *mapping.Registry, d *planner.Dialect) ([]string, error) {
	ordered, err := dependencyOrder(reg)
	if err != nil {
		return nil, err
	}
	stmts := make([]string, 0, len(ordered))
	for _, e := range ordered {
		stmt, err := createTable(reg, d, e)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// DropTables returns DROP TABLE statements in reverse dependency order.
func DropTables(reg *mapping.Registry, d *planner.Dialect) ([]string, error) {
	ordered, err := dependencyOrder(reg)
	if err != nil {
		return nil, err
	}
	stmts := make([]string, 0, len(ordered))
	for i := len(ordered) - 1; i >= 0; i-- {
		stmts = append(stmts, "DROP TABLE IF EXISTS "+d.QuoteIdentifier(ordered[i].Table))
	}
	return stmts, nil
}

func createTable(reg *mapping.Registry, d *planner.Dialect, e *mapping.Entity) (string, error) {
	q := d.QuoteIdentifier
	var defs []string
	for _, f := range e.Fields {
		colType, err := columnType(d, f)
		if err != nil {
			return "", fmt.Errorf("entity %s: %w", e.Name, err)
		}
		def := q(f.Column) + " " + colType
		switch {
		case f.Name == e.PrimaryKey:
			def += " NOT NULL PRIMARY KEY"
		case !f.Nullable:
			def += " NOT NULL"
		}
		if f.Kind == sqltype.Enum && d.Name != planner.DriverMySQL && len(f.EnumValues) > 0 {
			def += " CHECK (" + q(f.Column) + " IN (" + quoteAll(d, f.EnumValues) + "))"
		}
		defs = append(defs, def)
	}

	var keys []string
	for _, a := range e.Associations {
		if a.Kind != mapping.ManyToOne {
			continue
		}
		target, err := reg.Entity(a.Target)
		if err != nil {
			return "", err
		}
		colType, err := columnType(d, *target.PrimaryKeyField())
		if err != nil {
			return "", fmt.Errorf("entity %s: %w", e.Name, err)
		}
		def := q(a.JoinColumn) + " " + colType
		if !a.Optional {
			def += " NOT NULL"
		}
		defs = append(defs, def)
		keys = append(keys, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			q(a.JoinColumn), q(target.Table), q(target.PrimaryKeyField().Column)))
	}
	defs = append(defs, keys...)

	return "CREATE TABLE " + q(e.Table) + " (\n  " + strings.Join(defs, ",\n  ") + "\n)", nil
}

func columnType(d *planner.Dialect, f mapping.Field) (string, error) {
	switch d.Name {
	case planner.DriverMySQL:
		switch f.Kind {
		case sqltype.Enum:
			if len(f.EnumValues) == 0 {
				return "VARCHAR(64)", nil
			}
			return "ENUM(" + quoteAll(d, f.EnumValues) + ")", nil
		case sqltype.Timestamp:
			return "DATETIME(6)", nil
		case sqltype.Bool:
			return "BOOLEAN", nil
		case sqltype.Duration:
			return "BIGINT", nil
		}
		return strings.ToUpper(f.SQLType), nil
	case planner.DriverSQLite:
		switch f.Kind {
		case sqltype.Integer, sqltype.Bool, sqltype.Duration:
			return "INTEGER", nil
		case sqltype.Float:
			return "REAL", nil
		case sqltype.Decimal:
			return "NUMERIC", nil
		case sqltype.Bytes:
			return "BLOB", nil
		default:
			return "TEXT", nil
		}
	case planner.DriverPostgres:
		switch f.Kind {
		case sqltype.Integer, sqltype.Duration:
			return "BIGINT", nil
		case sqltype.Float:
			return "DOUBLE PRECISION", nil
		case sqltype.Decimal:
			return strings.ToUpper(f.SQLType), nil
		case sqltype.Bool:
			return "BOOLEAN", nil
		case sqltype.Bytes:
			return "BYTEA", nil
		case sqltype.Date:
			return "DATE", nil
		case sqltype.Time:
			return "TIME", nil
		case sqltype.Timestamp:
			return "TIMESTAMP", nil
		case sqltype.Enum:
			return "VARCHAR(64)", nil
		default:
			return "TEXT", nil
		}
	}
	return "", fmt.Errorf("no column types for dialect %s", d.Name)
}

func quoteAll(d *planner.Dialect, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = d.QuoteString(v)
	}
	return strings.Join(quoted, ", ")
}

// dependencyOrder sorts entities so that many-to-one targets come first.
// Ties keep mapping order.
func dependencyOrder(reg *mapping.Registry) ([]*mapping.Entity, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int)
	var out []*mapping.Entity
	var visit func(e *mapping.Entity) error
	visit = func(e *mapping.Entity) error {
		switch state[e.Name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("foreign keys of %s form a cycle", e.Name)
		}
		state[e.Name] = visiting
		for _, a := range e.Associations {
			if a.Kind != mapping.ManyToOne || a.Target == e.Name {
				continue
			}
			target, err := reg.Entity(a.Target)
			if err != nil {
				return err
			}
			if err := visit(target); err != nil {
				return err
			}
		}
		state[e.Name] = done
		out = append(out, e)
		return nil
	}
	for _, e := range reg.Entities() {
		if err := visit(e); err != nil {
			return nil, err
		}
	}
	return out, nil
}
