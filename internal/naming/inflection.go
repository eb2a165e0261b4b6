package naming

import (
	"github.com/jinzhu/inflection"
)

// Pluralize returns the plural of a name. Compound names such as
// "SalesOrderItem" or "order_item" inflect their last word only.
func (n *Namer) Pluralize(word string) string {
	return n.inflect(word, n.config.PluralOverrides, inflection.Plural)
}

// Singularize returns the singular of a name, inflecting the last word of a
// compound name.
func (n *Namer) Singularize(word string) string {
	return n.inflect(word, n.config.SingularOverrides, inflection.Singular)
}

// inflect consults overrides for the whole name first, then for its last
// word, before falling back to fn.
func (n *Namer) inflect(word string, overrides map[string]string, fn func(string) string) string {
	if override, ok := overrides[word]; ok {
		return override
	}
	tokens := splitTokens(word)
	if len(tokens) < 2 {
		return fn(word)
	}
	last := tokens[len(tokens)-1]
	prefix := word[:len(word)-len(last)]
	if override, ok := overrides[last]; ok {
		return prefix + override
	}
	return prefix + fn(last)
}
