package config

import (
	"fmt"
	"maps"
	"net"
	"net/url"
	"os"
	"slices"
	"strings"

	"sqlcriteria/internal/naming"
	"sqlcriteria/internal/planner"
)

// ValidationError is a fatal configuration problem tied to one key.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning is a configuration issue the tool can run with.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult collects the problems found by Validate.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors reports whether any fatal problem was found.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error joins every fatal problem into one message, or returns "".
func (r *ValidationResult) Error() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func (r *ValidationResult) fail(field, hint, format string, args ...interface{}) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Hint: hint})
}

func (r *ValidationResult) warn(field, hint, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: fmt.Sprintf(format, args...), Hint: hint})
}

// oneOf fails field unless value is one of allowed. An empty value passes
// when allowEmpty is set.
func (r *ValidationResult) oneOf(field, what, value string, allowEmpty bool, allowed ...string) {
	if (allowEmpty && value == "") || slices.Contains(allowed, value) {
		return
	}
	r.fail(field, "valid values are: "+strings.Join(allowed, ", "), "invalid %s %q", what, value)
}

// KnownSections lists the showcase sections accepted by demo.sections.
var KnownSections = []string{"basic", "select", "from", "where", "other", "with", "derived", "function"}

// Validate checks every section and returns the fatal errors and warnings
// together.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}
	c.Database.validate(result)
	c.Mapping.validate(result)
	c.Demo.validate(result)
	c.Observability.validate(result)
	return result
}

func (d *DatabaseConfig) validate(r *ValidationResult) {
	if !slices.Contains([]string{planner.DriverMySQL, planner.DriverSQLite, planner.DriverPostgres}, d.Driver) {
		r.fail("database.driver", "valid values are: mysql, sqlite3, postgres", "unsupported driver %q", d.Driver)
		return
	}

	if d.Driver == planner.DriverSQLite {
		d.validateSQLite(r)
	} else {
		d.validateServer(r)
	}
	d.validatePool(r)

	name, err := d.EffectiveDatabaseName()
	switch {
	case err != nil:
		r.fail("database.dsn", "set a valid DSN for the configured driver in database.dsn/database.dsn_file", "%s", err.Error())
	case d.Driver != planner.DriverSQLite && name == "":
		r.fail("database.database", "set database.database or include a database in database.dsn", "no database selected")
	}
}

func (d *DatabaseConfig) validateSQLite(r *ValidationResult) {
	if d.TLS.Mode != "" && d.TLS.Mode != "off" {
		r.warn("database.tls.mode", "", "TLS settings are ignored by the sqlite3 driver")
	}
	inMemory := d.DSN == "" && (d.SQLitePath == "" || d.SQLitePath == ":memory:")
	if inMemory && d.Pool.MaxOpen != 1 {
		r.warn("database.pool.max_open", "the connection opener pins the pool to a single connection",
			"an in-memory sqlite3 database is private to one connection")
	}
}

func (d *DatabaseConfig) validateServer(r *ValidationResult) {
	if d.DSN == "" {
		if d.Port < 1 || d.Port > 65535 {
			r.fail("database.port", "", "port %d is out of valid range (1-65535)", d.Port)
		}
		if strings.TrimSpace(d.Host) == "" {
			r.fail("database.host", "", "host is required when no DSN is configured")
		}
	}
	d.TLS.validate(r)
}

func (d *DatabaseConfig) validatePool(r *ValidationResult) {
	negative := map[string]bool{
		"database.pool.max_open":             d.Pool.MaxOpen < 0,
		"database.pool.max_idle":             d.Pool.MaxIdle < 0,
		"database.lock_timeout":              d.LockTimeout < 0,
		"database.connection_timeout":        d.ConnectionTimeout < 0,
		"database.connection_retry_interval": d.ConnectionRetryInterval < 0,
	}
	for _, field := range slices.Sorted(maps.Keys(negative)) {
		if negative[field] {
			r.fail(field, "", "%s cannot be negative", field[strings.LastIndex(field, ".")+1:])
		}
	}

	if d.Pool.MaxOpen > 0 && d.Pool.MaxIdle > d.Pool.MaxOpen {
		r.warn("database.pool.max_idle", "idle connections will be limited to max_open", "max_idle is greater than max_open")
	}
	if d.ConnectionTimeout > 0 {
		switch {
		case d.ConnectionRetryInterval == 0:
			r.fail("database.connection_retry_interval",
				"set a retry interval such as 2s, or set connection_timeout to 0 to disable retries",
				"connection_retry_interval must be greater than 0 when connection_timeout is set")
		case d.ConnectionRetryInterval > d.ConnectionTimeout:
			r.warn("database.connection_retry_interval", "only one connection attempt will be made",
				"connection_retry_interval is greater than connection_timeout")
		}
	}
}

func (t *DatabaseTLSConfig) validate(r *ValidationResult) {
	r.oneOf("database.tls.mode", "TLS mode", t.Mode, true, "off", "skip-verify", "verify-ca", "verify-full")

	verifying := t.Mode == "verify-ca" || t.Mode == "verify-full"
	if verifying && t.CAFile == "" {
		r.fail("database.tls.ca_file", "set ca_file to specify the CA certificate",
			"CA file is required for verify-ca and verify-full modes")
	}
	if (t.CertFile == "") != (t.KeyFile == "") {
		r.fail("database.tls.cert_file", "provide both cert_file and key_file, or neither",
			"both cert_file and key_file must be specified for client certificate authentication")
	}
	if t.Mode == "skip-verify" {
		r.warn("database.tls.mode", "use verify-ca or verify-full in production",
			"skip-verify mode does not verify server certificates")
	}
}

func (m *MappingConfig) validate(r *ValidationResult) {
	if m.File != "" {
		if _, err := os.Stat(m.File); err != nil {
			r.fail("mapping.file", "leave mapping.file empty to use the built-in sales model",
				"mapping file is not readable: %v", err)
		}
	}
	validateNamingConfig(r, m.Naming)
}

func validateNamingConfig(r *ValidationResult, cfg naming.Config) {
	for field, overrides := range map[string]map[string]string{
		"mapping.naming.plural_overrides":   cfg.PluralOverrides,
		"mapping.naming.singular_overrides": cfg.SingularOverrides,
	} {
		for from, to := range overrides {
			if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
				r.fail(field, "", "override %q -> %q has an empty side", from, to)
			}
		}
	}
}

func (d *DemoConfig) validate(r *ValidationResult) {
	for _, s := range d.Sections {
		r.oneOf("demo.sections", "section", s, false, KnownSections...)
	}
	if d.Seed && !d.CreateSchema {
		r.warn("demo.seed", "", "seeding without create_schema expects the tables to exist and be empty")
	}
}

func (o *ObservabilityConfig) validate(r *ValidationResult) {
	r.oneOf("observability.logging.level", "log level", o.Logging.Level, false, "debug", "info", "warn", "error")
	r.oneOf("observability.logging.format", "log format", o.Logging.Format, false, "json", "text")

	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		r.fail("observability.trace_sample_ratio", "", "trace_sample_ratio %v is outside 0.0-1.0", o.TraceSampleRatio)
	}

	if o.MetricsListen != "" {
		if _, _, err := net.SplitHostPort(o.MetricsListen); err != nil {
			r.fail("observability.metrics_listen", "use host:port or :port", "invalid listen address %q: %v", o.MetricsListen, err)
		}
		if !o.MetricsEnabled {
			r.warn("observability.metrics_listen", "", "metrics_listen is set but metrics are disabled")
		}
	}

	o.OTLP.validate("observability.otlp", r)
	if o.Traces != nil {
		o.Traces.validate("observability.traces", r)
	}
	if o.Logs != nil {
		o.Logs.validate("observability.logs", r)
	}
}

func (o *OTLPConfig) validate(prefix string, r *ValidationResult) {
	r.oneOf(prefix+".protocol", "OTLP protocol", o.Protocol, true, "grpc", "http/protobuf")
	r.oneOf(prefix+".compression", "OTLP compression", o.Compression, true, "none", "gzip")
	if o.Protocol == "http/protobuf" && !validOTLPEndpoint(o.Endpoint) {
		r.fail(prefix+".endpoint", "use host:port or a full URL", "invalid OTLP endpoint %q for http/protobuf", o.Endpoint)
	}
}

func validOTLPEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	if !strings.Contains(endpoint, "://") {
		_, _, err := net.SplitHostPort(endpoint)
		return err == nil
	}
	parsed, err := url.Parse(endpoint)
	return err == nil && parsed.Host != ""
}
