package mapping

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sqlcriteria/internal/naming"
)

// Queryer provides query access for schema introspection.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type columnInfo struct {
	Name       string
	ColumnType string
	Nullable   bool
}

type foreignKey struct {
	Column           string
	ReferencedTable  string
	ReferencedColumn string
}

// Introspect derives a Registry from a MySQL-compatible information_schema.
// Tables become entities, columns become fields, and each single-column
// foreign key becomes a many-to-one association plus its one-to-many inverse.
func Introspect(ctx context.Context, db Queryer, databaseName string, opts ...Option) (*Registry, error) {
	ctx, span := startSpan(ctx, "mapping.introspect",
		attribute.String("db.name", databaseName),
	)
	defer span.End()

	options := registryOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	namer := options.namer
	if namer == nil {
		namer = naming.Default()
	}

	tables, err := getTables(ctx, db, databaseName)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}

	entities := make([]Entity, 0, len(tables))
	entityByTable := make(map[string]int, len(tables))
	fksByTable := make(map[string][]foreignKey, len(tables))

	for _, table := range tables {
		columns, err := getColumns(ctx, db, databaseName, table)
		if err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to get columns for %s: %w", table, err)
		}
		primaryKeys, err := getPrimaryKeys(ctx, db, databaseName, table)
		if err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to get primary keys for table %s: %w", table, err)
		}
		if len(primaryKeys) != 1 {
			slog.Default().Warn("skipping table without a single-column primary key",
				slog.String("table", table),
				slog.Int("primary_key_columns", len(primaryKeys)),
			)
			continue
		}
		fks, err := getForeignKeys(ctx, db, databaseName, table)
		if err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to get foreign keys for table %s: %w", table, err)
		}

		fkColumns := make(map[string]bool, len(fks))
		for _, fk := range fks {
			fkColumns[fk.Column] = true
		}

		entity := Entity{
			Name:  naming.ToPascalCase(namer.Singularize(table)),
			Table: table,
		}
		for _, col := range columns {
			if fkColumns[col.Name] {
				continue
			}
			field := Field{
				Name:     naming.ToCamelCase(col.Name),
				Column:   col.Name,
				SQLType:  col.ColumnType,
				Nullable: col.Nullable,
			}
			if col.Name == primaryKeys[0] {
				entity.PrimaryKey = field.Name
			}
			entity.Fields = append(entity.Fields, field)
		}
		entityByTable[table] = len(entities)
		entities = append(entities, entity)
		fksByTable[table] = fks
	}

	for _, table := range tables {
		idx, ok := entityByTable[table]
		if !ok {
			continue
		}
		for _, fk := range fksByTable[table] {
			targetIdx, ok := entityByTable[fk.ReferencedTable]
			if !ok {
				continue
			}
			owner := &entities[idx]
			target := &entities[targetIdx]

			m2o := naming.ToCamelCase(strings.TrimSuffix(fk.Column, "_id"))
			owner.Associations = append(owner.Associations, Association{
				Name:       m2o,
				Kind:       ManyToOne,
				Target:     target.Name,
				JoinColumn: fk.Column,
			})

			inverse := namer.AssociationName(owner.Name, true)
			if hasAssociation(target, inverse) {
				inverse += "By" + naming.ToPascalCase(m2o)
			}
			target.Associations = append(target.Associations, Association{
				Name:     inverse,
				Kind:     OneToMany,
				Target:   owner.Name,
				MappedBy: m2o,
			})
		}
	}

	registry, err := NewRegistry(entities, opts...)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return registry, nil
}

func hasAssociation(e *Entity, name string) bool {
	for _, a := range e.Associations {
		if a.Name == name {
			return true
		}
	}
	return false
}

func getTables(ctx context.Context, db Queryer, databaseName string) ([]string, error) {
	query := `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ?
		AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`

	rows, err := db.QueryContext(ctx, query, databaseName)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func getColumns(ctx context.Context, db Queryer, databaseName, tableName string) ([]columnInfo, error) {
	query := `
		SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`

	rows, err := db.QueryContext(ctx, query, databaseName, tableName)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var columns []columnInfo
	for rows.Next() {
		var col columnInfo
		var isNullable string
		if err := rows.Scan(&col.Name, &col.ColumnType, &isNullable); err != nil {
			return nil, err
		}
		col.Nullable = strings.EqualFold(isNullable, "YES")
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func getPrimaryKeys(ctx context.Context, db Queryer, databaseName, tableName string) ([]string, error) {
	query := `
		SELECT COLUMN_NAME
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ?
		AND TABLE_NAME = ?
		AND CONSTRAINT_NAME = 'PRIMARY'
		ORDER BY ORDINAL_POSITION
	`

	rows, err := db.QueryContext(ctx, query, databaseName, tableName)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var primaryKeys []string
	for rows.Next() {
		var columnName string
		if err := rows.Scan(&columnName); err != nil {
			return nil, err
		}
		primaryKeys = append(primaryKeys, columnName)
	}
	return primaryKeys, rows.Err()
}

func getForeignKeys(ctx context.Context, db Queryer, databaseName, tableName string) ([]foreignKey, error) {
	query := `
		SELECT COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ?
			AND TABLE_NAME = ?
			AND REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION
	`

	rows, err := db.QueryContext(ctx, query, databaseName, tableName)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var foreignKeys []foreignKey
	for rows.Next() {
		var fk foreignKey
		if err := rows.Scan(&fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return nil, err
		}
		foreignKeys = append(foreignKeys, fk)
	}
	return foreignKeys, rows.Err()
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("sqlcriteria/mapping")
	ctx, span := tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
