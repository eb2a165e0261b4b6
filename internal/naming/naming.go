package naming

import (
	"log/slog"
	"strings"
	"unicode"
)

// Namer derives storage names from entity and attribute names.
type Namer struct {
	config Config
	logger *slog.Logger
}

// New creates a Namer with the given configuration
func New(cfg Config, logger *slog.Logger) *Namer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Namer{
		config: cfg,
		logger: logger,
	}
}

// Default returns a Namer with default configuration
func Default() *Namer {
	return New(DefaultConfig(), nil)
}

// TableName converts an entity name to its default table name (snake_case).
// Example: "SalesOrderItem" -> "sales_order_item"
func (n *Namer) TableName(entityName string) string {
	return ToSnakeCase(entityName)
}

// ColumnName converts a field name to its default column name.
// Example: "firstName" -> "first_name"
func (n *Namer) ColumnName(fieldName string) string {
	return ToSnakeCase(fieldName)
}

// JoinColumnName returns the default foreign key column for a many-to-one association.
// Example: "salesOrder" -> "sales_order_id"
func (n *Namer) JoinColumnName(associationName string) string {
	return ToSnakeCase(associationName) + "_id"
}

// AssociationName returns the default association name pointing at target.
// To-many associations use the plural form.
// Example: ("SalesOrderItem", true) -> "salesOrderItems"
func (n *Namer) AssociationName(target string, toMany bool) string {
	name := target
	if toMany {
		name = n.Pluralize(target)
	}
	return lowerFirst(name)
}

// MappedByName returns the default name of the many-to-one association on the
// child side of a one-to-many association owned by ownerEntity.
// Example: "SalesOrder" -> "salesOrder"
func (n *Namer) MappedByName(ownerEntity string) string {
	return lowerFirst(ownerEntity)
}

// Alias returns a short lower-case alias built from the initials of each word
// in the entity name.
// Example: "SalesOrderItem" -> "soi"
func (n *Namer) Alias(entityName string) string {
	var b strings.Builder
	for _, part := range splitTokens(entityName) {
		r := []rune(part)
		b.WriteRune(unicode.ToLower(r[0]))
	}
	if b.Len() == 0 {
		n.logger.Debug("empty alias derived, falling back to t", slog.String("entity", entityName))
		return "t"
	}
	return b.String()
}

// splitTokens splits camelCase, PascalCase and snake_case names into words.
func splitTokens(name string) []string {
	var tokens []string
	var current []rune
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			if len(current) > 0 {
				tokens = append(tokens, string(current))
				current = nil
			}
			continue
		case unicode.IsUpper(r) && len(current) > 0:
			prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				tokens = append(tokens, string(current))
				current = nil
			}
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		tokens = append(tokens, string(current))
	}
	return tokens
}

// ToSnakeCase converts camelCase or PascalCase to snake_case.
func ToSnakeCase(s string) string {
	tokens := splitTokens(s)
	for i, token := range tokens {
		tokens[i] = strings.ToLower(token)
	}
	return strings.Join(tokens, "_")
}

// ToPascalCase converts snake_case to PascalCase
func ToPascalCase(s string) string {
	parts := strings.Split(s, "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "")
}

// ToCamelCase converts snake_case to camelCase
func ToCamelCase(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
