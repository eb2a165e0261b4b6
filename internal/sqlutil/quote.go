// Package sqlutil provides SQL utility functions shared by the dialects.
package sqlutil

import "strings"

// QuoteIdentifier quotes a SQL identifier (table name, column name, etc.)
// with backticks and escapes any backticks within the identifier.
// This is the MySQL form.
func QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, "`", "``")
	return "`" + escaped + "`"
}

// QuoteANSIIdentifier quotes an identifier with double quotes, as SQLite and
// PostgreSQL expect.
func QuoteANSIIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

// QuoteString quotes a SQL string literal with single quotes and escapes
// any single quotes within the string by doubling them.
func QuoteString(s string) string {
	escaped := strings.ReplaceAll(s, "'", "''")
	return "'" + escaped + "'"
}

// EscapeLike escapes the LIKE wildcards in s with the given escape character so
// the value matches literally.
func EscapeLike(s string, escape rune) string {
	var b strings.Builder
	for _, r := range s {
		if r == '%' || r == '_' || r == escape {
			b.WriteRune(escape)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// QuoteStringBackslash quotes a string literal for stores that treat the
// backslash as an escape character inside literals (MySQL in its default
// SQL mode).
func QuoteStringBackslash(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	return QuoteString(escaped)
}
