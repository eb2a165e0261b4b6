package naming

// Config customizes inflection. Keys are matched against a whole name first
// and then against its last word.
type Config struct {
	// PluralOverrides maps singular to plural, e.g. {"person": "people"}.
	PluralOverrides map[string]string `mapstructure:"plural_overrides" yaml:"pluralOverrides"`

	// SingularOverrides maps plural to singular, e.g. {"data": "datum"}.
	SingularOverrides map[string]string `mapstructure:"singular_overrides" yaml:"singularOverrides"`
}

// DefaultConfig has no overrides.
func DefaultConfig() Config {
	return Config{
		PluralOverrides:   map[string]string{},
		SingularOverrides: map[string]string{},
	}
}
