package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"sqlcriteria/internal/sqltype"
	"sqlcriteria/internal/sqlutil"

	sq "github.com/Masterminds/squirrel"
)

// Dialect captures what differs between stores: identifier and literal
// quoting, placeholders, function spellings, cast targets and locking.
type Dialect struct {
	// Name is the database/sql driver name of the store.
	Name string

	quoteIdent  func(string) string
	quoteString func(string) string
	placeholder sq.PlaceholderFormat

	functions map[string]renderFunc
	castTypes map[sqltype.Kind]string
	// bindCasts wraps bound parameters of a kind in a cast, for stores that
	// cannot infer parameter types from context.
	bindCasts map[sqltype.Kind]string
	// timeLayout, when set, binds times as formatted strings.
	timeLayout string
	// offsetLimit is the LIMIT spelled when only an offset is requested.
	offsetLimit string
	// forUpdate renders the lock clause for the locked alias; nil when the
	// store has no row locks.
	forUpdate func(alias string) string
}

// QuoteIdentifier quotes a table, column or alias name.
func (d *Dialect) QuoteIdentifier(name string) string { return d.quoteIdent(name) }

// QuoteString quotes a string literal.
func (d *Dialect) QuoteString(s string) string { return d.quoteString(s) }

// inlineString quotes a literal that is written into the statement text.
// Question marks are doubled for positional formats, where the placeholder
// rewrite would otherwise number them.
func (d *Dialect) inlineString(s string) string {
	quoted := d.quoteString(s)
	if d.placeholder != sq.Question {
		quoted = strings.ReplaceAll(quoted, "?", "??")
	}
	return quoted
}

// Supports reports whether the dialect has a rendering for a catalog
// function. Functions with options are keyed name:OPTION.
func (d *Dialect) Supports(function string) bool {
	_, ok := d.functions[function]
	return ok
}

func (d *Dialect) String() string { return d.Name }

// Driver names accepted by DialectFor.
const (
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var dialects = map[string]*Dialect{
	DriverMySQL:    newMySQL(),
	DriverSQLite:   newSQLite(),
	DriverPostgres: newPostgres(),
}

// MySQL returns the MySQL 8 dialect.
func MySQL() *Dialect { return dialects[DriverMySQL] }

// SQLite returns the SQLite 3 dialect.
func SQLite() *Dialect { return dialects[DriverSQLite] }

// Postgres returns the PostgreSQL dialect.
func Postgres() *Dialect { return dialects[DriverPostgres] }

// DialectFor returns the dialect for a database/sql driver name.
func DialectFor(driverName string) (*Dialect, error) {
	d, ok := dialects[driverName]
	if !ok {
		return nil, fmt.Errorf("no dialect for driver %q (known: %v)", driverName, DriverNames())
	}
	return d, nil
}

// DriverNames lists the supported driver names in sorted order.
func DriverNames() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newMySQL() *Dialect {
	return &Dialect{
		Name:        DriverMySQL,
		quoteIdent:  sqlutil.QuoteIdentifier,
		quoteString: sqlutil.QuoteStringBackslash,
		placeholder: sq.Question,
		functions:   mysqlFunctions(),
		castTypes: map[sqltype.Kind]string{
			sqltype.Bool:      "SIGNED",
			sqltype.Integer:   "SIGNED",
			sqltype.Decimal:   "DECIMAL(38,10)",
			sqltype.Float:     "DOUBLE",
			sqltype.Duration:  "DOUBLE",
			sqltype.String:    "CHAR",
			sqltype.Enum:      "CHAR",
			sqltype.Date:      "DATE",
			sqltype.Time:      "TIME",
			sqltype.Timestamp: "DATETIME",
			sqltype.Bytes:     "BINARY",
		},
		offsetLimit: "18446744073709551615",
		forUpdate:   func(string) string { return "FOR UPDATE" },
	}
}

func newSQLite() *Dialect {
	return &Dialect{
		Name:        DriverSQLite,
		quoteIdent:  sqlutil.QuoteANSIIdentifier,
		quoteString: sqlutil.QuoteString,
		placeholder: sq.Question,
		functions:   sqliteFunctions(),
		castTypes: map[sqltype.Kind]string{
			sqltype.Bool:      "INTEGER",
			sqltype.Integer:   "INTEGER",
			sqltype.Decimal:   "NUMERIC",
			sqltype.Float:     "REAL",
			sqltype.Duration:  "REAL",
			sqltype.String:    "TEXT",
			sqltype.Enum:      "TEXT",
			sqltype.Date:      "TEXT",
			sqltype.Time:      "TEXT",
			sqltype.Timestamp: "TEXT",
			sqltype.Bytes:     "BLOB",
		},
		// Date functions compare text, so times are bound in the same layout
		// datetime() produces.
		timeLayout:  "2006-01-02 15:04:05",
		offsetLimit: "-1",
	}
}

func newPostgres() *Dialect {
	return &Dialect{
		Name:        DriverPostgres,
		quoteIdent:  sqlutil.QuoteANSIIdentifier,
		quoteString: sqlutil.QuoteString,
		placeholder: sq.Dollar,
		functions:   postgresFunctions(),
		castTypes: map[sqltype.Kind]string{
			sqltype.Bool:      "BOOLEAN",
			sqltype.Integer:   "BIGINT",
			sqltype.Decimal:   "NUMERIC",
			sqltype.Float:     "DOUBLE PRECISION",
			sqltype.Duration:  "DOUBLE PRECISION",
			sqltype.String:    "TEXT",
			sqltype.Enum:      "TEXT",
			sqltype.Date:      "DATE",
			sqltype.Time:      "TIME",
			sqltype.Timestamp: "TIMESTAMP",
			sqltype.Bytes:     "BYTEA",
		},
		bindCasts: map[sqltype.Kind]string{
			sqltype.String:    "TEXT",
			sqltype.Float:     "DOUBLE PRECISION",
			sqltype.Timestamp: "TIMESTAMP",
			sqltype.Bytes:     "BYTEA",
		},
		forUpdate: func(alias string) string {
			return "FOR UPDATE OF " + sqlutil.QuoteANSIIdentifier(alias)
		},
	}
}

// BindTime converts a time into the value bound for it. Seed data should be
// written through it so stored and bound times compare consistently.
func (d *Dialect) BindTime(t time.Time) interface{} {
	if d.timeLayout != "" {
		return t.UTC().Format(d.timeLayout)
	}
	return t
}
