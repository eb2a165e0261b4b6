// Package sqltype provides a shared mapping from SQL data types to scalar kinds.
// Kinds drive build-time type checks in the criteria builder and the
// normalization of driver values when rows are materialized.
package sqltype

import (
	"strings"
	"time"
)

// Kind represents the scalar category of an expression or column.
type Kind int

const (
	// Unknown is compatible with every other kind (NULL literals, escape-hatch functions).
	Unknown Kind = iota
	// Bool represents boolean values.
	Bool
	// Integer represents integer numeric types.
	Integer
	// Decimal represents fixed-point numeric types; values are carried as strings.
	Decimal
	// Float represents floating-point numeric types.
	Float
	// String represents character data.
	String
	// Enum represents enumerated string values.
	Enum
	// Date represents calendar dates.
	Date
	// Time represents a time of day.
	Time
	// Timestamp represents date and time.
	Timestamp
	// Duration represents an elapsed time, stored as a number of seconds.
	Duration
	// Bytes represents binary data.
	Bytes
)

var kindNames = map[Kind]string{
	Unknown:   "unknown",
	Bool:      "bool",
	Integer:   "integer",
	Decimal:   "decimal",
	Float:     "float",
	String:    "string",
	Enum:      "enum",
	Date:      "date",
	Time:      "time",
	Timestamp: "timestamp",
	Duration:  "duration",
	Bytes:     "bytes",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Numeric reports whether arithmetic is defined for the kind.
func (k Kind) Numeric() bool {
	switch k {
	case Integer, Decimal, Float, Duration:
		return true
	}
	return false
}

// Textual reports whether the kind holds character data.
func (k Kind) Textual() bool {
	return k == String || k == Enum
}

// Temporal reports whether the kind is a point in time.
func (k Kind) Temporal() bool {
	return k == Date || k == Time || k == Timestamp
}

type family int

const (
	familyAny family = iota
	familyBool
	familyNumber
	familyText
	familyTemporal
	familyBytes
)

func (k Kind) family() family {
	switch {
	case k == Unknown:
		return familyAny
	case k == Bool:
		return familyBool
	case k.Numeric():
		return familyNumber
	case k.Textual():
		return familyText
	case k.Temporal():
		return familyTemporal
	default:
		return familyBytes
	}
}

// Comparable reports whether values of the two kinds may be compared or combined
// in a CASE, COALESCE or IN list. Unknown is comparable with everything.
func Comparable(a, b Kind) bool {
	fa, fb := a.family(), b.family()
	if fa == familyAny || fb == familyAny {
		return true
	}
	return fa == fb
}

// Arithmetic returns the result kind of a binary arithmetic operation, or false
// when the operands are not numeric.
func Arithmetic(a, b Kind) (Kind, bool) {
	if a == Unknown && b == Unknown {
		return Unknown, true
	}
	if a == Unknown {
		return b, b.Numeric()
	}
	if b == Unknown {
		return a, a.Numeric()
	}
	if !a.Numeric() || !b.Numeric() {
		return Unknown, false
	}
	switch {
	case a == Duration || b == Duration:
		return Duration, true
	case a == Float || b == Float:
		return Float, true
	case a == Decimal || b == Decimal:
		return Decimal, true
	default:
		return Integer, true
	}
}

// Widest returns the kind that can hold values of both kinds, used for CASE
// branches and COALESCE arguments. ok is false when the kinds are incompatible.
func Widest(a, b Kind) (Kind, bool) {
	if !Comparable(a, b) {
		return Unknown, false
	}
	if a == Unknown {
		return b, true
	}
	if b == Unknown || a == b {
		return a, true
	}
	if a.Numeric() && b.Numeric() {
		return Arithmetic(a, b)
	}
	if a.Textual() && b.Textual() {
		return String, true
	}
	if a.Temporal() && b.Temporal() {
		return Timestamp, true
	}
	return a, true
}

// MapToKind converts a SQL data type string to its scalar kind.
// The input is case-insensitive. Size specifiers like (10,2) or (255) are stripped before matching.
func MapToKind(sqlType string) Kind {
	if idx := strings.Index(sqlType, "("); idx != -1 {
		sqlType = sqlType[:idx]
	}
	normalized := strings.ToUpper(strings.TrimSpace(sqlType))
	for _, suffix := range []string{" UNSIGNED", " ZEROFILL", " SIGNED"} {
		normalized = strings.TrimSpace(strings.TrimSuffix(normalized, suffix))
	}
	switch normalized {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT",
		"INTEGER", "BIGINT", "SERIAL", "BIGSERIAL", "BIT":
		return Integer
	case "FLOAT", "DOUBLE", "REAL", "DOUBLE PRECISION":
		return Float
	case "DECIMAL", "NUMERIC":
		return Decimal
	case "BOOL", "BOOLEAN":
		return Bool
	case "CHAR", "VARCHAR", "TINYTEXT", "TEXT",
		"MEDIUMTEXT", "LONGTEXT", "CHARACTER VARYING", "JSON":
		return String
	case "ENUM":
		return Enum
	case "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB",
		"BINARY", "VARBINARY", "BYTEA":
		return Bytes
	case "DATE":
		return Date
	case "TIME":
		return Time
	case "DATETIME", "TIMESTAMP", "TIMESTAMPTZ":
		return Timestamp
	case "INTERVAL":
		return Duration
	default:
		return Unknown
	}
}

// KindOf returns the kind of a Go literal value.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return Unknown
	case bool:
		return Bool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Integer
	case float32, float64:
		return Float
	case string:
		return String
	case time.Time:
		return Timestamp
	case time.Duration:
		return Duration
	case []byte:
		return Bytes
	default:
		return Unknown
	}
}
