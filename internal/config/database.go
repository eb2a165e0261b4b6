package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"sqlcriteria/internal/planner"
)

// tlsConfigName is the name used to register custom TLS configs with the MySQL driver.
const tlsConfigName = "sqlcriteria-custom"

// DataSourceName returns the DSN for the configured driver. An explicit DSN
// is used as is, apart from the MySQL parameters the executor relies on.
func (d *DatabaseConfig) DataSourceName() string {
	switch d.Driver {
	case planner.DriverSQLite:
		return d.sqliteDSN()
	case planner.DriverPostgres:
		return d.postgresDSN()
	default:
		return d.mysqlDSN()
	}
}

func (d *DatabaseConfig) mysqlDSN() string {
	var dsn string
	if d.DSN != "" {
		dsn = d.DSN
		if !strings.Contains(dsn, "parseTime") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
		if !strings.Contains(dsn, "loc=") {
			dsn += "&loc=UTC"
		}
	} else {
		dsn = fmt.Sprintf(
			"%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC",
			d.User,
			d.Password,
			net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
			d.Database,
		)
	}

	tlsParam := d.mysqlTLSParam()
	if tlsParam != "" && !strings.Contains(dsn, "tls=") {
		dsn += "&tls=" + tlsParam
	}
	return dsn
}

func (d *DatabaseConfig) postgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Database,
	}
	q := url.Values{}
	if mode := d.postgresSSLMode(); mode != "" {
		q.Set("sslmode", mode)
	}
	if d.TLS.CAFile != "" {
		q.Set("sslrootcert", d.TLS.CAFile)
	}
	if d.TLS.CertFile != "" && d.TLS.KeyFile != "" {
		q.Set("sslcert", d.TLS.CertFile)
		q.Set("sslkey", d.TLS.KeyFile)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (d *DatabaseConfig) sqliteDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	path := d.SQLitePath
	if path == "" {
		path = ":memory:"
	}
	return "file:" + path + "?_foreign_keys=on"
}

// EffectiveDatabaseName returns the database the DSN targets, for logging.
func (d *DatabaseConfig) EffectiveDatabaseName() (string, error) {
	switch d.Driver {
	case planner.DriverSQLite:
		if d.SQLitePath == "" && d.DSN == "" {
			return ":memory:", nil
		}
		if d.SQLitePath != "" {
			return d.SQLitePath, nil
		}
		return d.DSN, nil
	case planner.DriverPostgres:
		if d.DSN == "" {
			return d.Database, nil
		}
		conn, err := pq.ParseURL(d.DSN)
		if err != nil {
			return "", fmt.Errorf("database.dsn is invalid: %w", err)
		}
		for _, kv := range strings.Fields(conn) {
			if name, ok := strings.CutPrefix(kv, "dbname="); ok {
				return strings.Trim(name, "'"), nil
			}
		}
		return "", nil
	default:
		if d.DSN == "" {
			return d.Database, nil
		}
		parsed, err := mysql.ParseDSN(d.DSN)
		if err != nil {
			return "", fmt.Errorf("database.dsn is invalid: %w", err)
		}
		return parsed.DBName, nil
	}
}

// DatabaseSource names the setting EffectiveDatabaseName reads from.
func (d *DatabaseConfig) DatabaseSource() string {
	switch {
	case d.Driver == planner.DriverSQLite && d.SQLitePath != "":
		return "database.sqlite_path"
	case d.DSN != "":
		return "database.dsn"
	case d.Driver == planner.DriverSQLite:
		return "in-memory"
	default:
		return "database.database"
	}
}

// mysqlTLSParam returns the tls DSN parameter, or "" when TLS is not configured.
func (d *DatabaseConfig) mysqlTLSParam() string {
	switch d.TLS.Mode {
	case "":
		return ""
	case "off":
		return "false"
	case "skip-verify":
		return "skip-verify"
	case "verify-ca", "verify-full":
		return tlsConfigName
	default:
		return d.TLS.Mode
	}
}

func (d *DatabaseConfig) postgresSSLMode() string {
	switch d.TLS.Mode {
	case "":
		return ""
	case "off":
		return "disable"
	case "skip-verify":
		return "require"
	default:
		return d.TLS.Mode
	}
}

// RegisterTLS registers the custom TLS configuration with the MySQL driver.
// It must run before the connection is opened and is a no-op for other
// drivers and for modes that need no custom configuration.
func (d *DatabaseConfig) RegisterTLS() error {
	if d.Driver != planner.DriverMySQL {
		return nil
	}
	if d.TLS.Mode != "verify-ca" && d.TLS.Mode != "verify-full" {
		return nil
	}
	tlsCfg, err := d.buildTLSConfig()
	if err != nil {
		return fmt.Errorf("failed to build TLS config: %w", err)
	}
	if err := mysql.RegisterTLSConfig(tlsConfigName, tlsCfg); err != nil {
		return fmt.Errorf("failed to register TLS config: %w", err)
	}
	return nil
}

func (d *DatabaseConfig) buildTLSConfig() (*tls.Config, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if d.TLS.CAFile != "" {
		caCert, err := os.ReadFile(d.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file %q: %w", d.TLS.CAFile, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate from %q", d.TLS.CAFile)
		}
		tlsCfg.RootCAs = pool
	}

	if d.TLS.CertFile != "" && d.TLS.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(d.TLS.CertFile, d.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	} else if d.TLS.CertFile != "" || d.TLS.KeyFile != "" {
		return nil, fmt.Errorf("both cert_file and key_file must be specified for client certificate authentication")
	}

	if d.TLS.Mode == "verify-full" && d.TLS.ServerName != "" {
		tlsCfg.ServerName = d.TLS.ServerName
	}
	return tlsCfg, nil
}
