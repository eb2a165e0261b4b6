package mapping

import (
	"fmt"
	"strings"
)

// parseEnumValues reads the value list out of a column type such as
// enum('NEW','APPROVED'). Quotes may be escaped by doubling or with a backslash.
func parseEnumValues(columnType string) ([]string, error) {
	trimmed := strings.TrimSpace(columnType)
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "enum(") || !strings.HasSuffix(lower, ")") {
		return nil, fmt.Errorf("invalid enum definition %q", columnType)
	}

	definition := trimmed[len("enum(") : len(trimmed)-1]
	var values []string
	i := 0
	for i < len(definition) {
		for i < len(definition) && (definition[i] == ' ' || definition[i] == ',') {
			i++
		}
		if i >= len(definition) {
			break
		}
		if definition[i] != '\'' {
			return nil, fmt.Errorf("expected quote at position %d", i)
		}
		i++
		var sb strings.Builder
		closed := false
		for i < len(definition) && !closed {
			ch := definition[i]
			switch {
			case ch == '\\' && i+1 < len(definition):
				sb.WriteByte(definition[i+1])
				i += 2
			case ch == '\'' && i+1 < len(definition) && definition[i+1] == '\'':
				sb.WriteByte('\'')
				i += 2
			case ch == '\'':
				closed = true
				i++
			default:
				sb.WriteByte(ch)
				i++
			}
		}
		if !closed {
			return nil, fmt.Errorf("unterminated enum value")
		}
		values = append(values, sb.String())
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("no enum values parsed")
	}
	return values, nil
}
