// Package dbconn opens the configured store with instrumentation, pool
// settings and startup retries, and hands out executors for it.
package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"sqlcriteria/internal/config"
	"sqlcriteria/internal/dbexec"
	"sqlcriteria/internal/logging"
	"sqlcriteria/internal/planner"
)

const maxRetryInterval = 30 * time.Second

// Instrumentation selects the otelsql wrapping of the driver.
type Instrumentation struct {
	Metrics      bool
	Tracing      bool
	SQLCommenter bool
}

// FromObservability derives the instrumentation switches from config.
func FromObservability(o config.ObservabilityConfig) Instrumentation {
	return Instrumentation{
		Metrics:      o.MetricsEnabled,
		Tracing:      o.TracingEnabled,
		SQLCommenter: o.SQLCommenterEnabled,
	}
}

// DB is an open, reachable store.
type DB struct {
	*sql.DB
	Driver  string
	Dialect *planner.Dialect

	lockTimeout time.Duration
	statsReg    interface{ Unregister() error }
}

// Open connects to the store described by cfg and waits for it to answer.
func Open(ctx context.Context, cfg config.DatabaseConfig, inst Instrumentation, logger *logging.Logger) (*DB, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	dialect, err := planner.DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if err := cfg.RegisterTLS(); err != nil {
		return nil, fmt.Errorf("failed to register database TLS config: %w", err)
	}

	db, statsReg, err := open(cfg, inst, logger)
	if err != nil {
		return nil, err
	}
	out := &DB{DB: db, Driver: cfg.Driver, Dialect: dialect, lockTimeout: cfg.LockTimeout, statsReg: statsReg}

	configurePool(db, cfg)

	if err := waitForDatabase(ctx, db, cfg.ConnectionTimeout, cfg.ConnectionRetryInterval, logger); err != nil {
		_ = out.Close()
		return nil, err
	}

	name, _ := cfg.EffectiveDatabaseName()
	logger.Info("connected to database",
		slog.String("driver", cfg.Driver),
		slog.String("database_effective", name),
		slog.Bool("dsn_present", cfg.DSN != ""),
		slog.Int("pool_max_open", cfg.Pool.MaxOpen),
		slog.Int("pool_max_idle", cfg.Pool.MaxIdle),
		slog.Duration("pool_max_lifetime", cfg.Pool.MaxLifetime),
		slog.Duration("lock_timeout", cfg.LockTimeout),
	)
	return out, nil
}

func open(cfg config.DatabaseConfig, inst Instrumentation, logger *logging.Logger) (*sql.DB, interface{ Unregister() error }, error) {
	dsn := cfg.DataSourceName()
	if !inst.Metrics && !inst.Tracing {
		db, err := sql.Open(cfg.Driver, dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, nil, nil
	}

	system := dbSystem(cfg.Driver)
	opts := []otelsql.Option{otelsql.WithAttributes(system)}
	if inst.Tracing {
		opts = append(opts, otelsql.WithSpanOptions(otelsql.SpanOptions{
			DisableErrSkip: true,
		}))
	}
	if inst.SQLCommenter && inst.Tracing {
		opts = append(opts, otelsql.WithSQLCommenter(true))
		logger.Info("SQLCommenter enabled - trace context will be injected into SQL queries")
	} else if inst.SQLCommenter {
		logger.Warn("SQLCommenter requires tracing to be enabled - skipping SQLCommenter")
	}

	db, err := otelsql.Open(cfg.Driver, dsn, opts...)
	if err != nil {
		return nil, nil, err
	}

	var statsReg interface{ Unregister() error }
	if inst.Metrics {
		statsReg, err = otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(system))
		if err != nil {
			logger.Warn("failed to register DB stats metrics", slog.String("error", err.Error()))
		}
	}

	logger.Info("database instrumentation enabled",
		slog.Bool("metrics", inst.Metrics),
		slog.Bool("tracing", inst.Tracing),
		slog.Bool("sqlcommenter", inst.SQLCommenter && inst.Tracing),
	)
	return db, statsReg, nil
}

func dbSystem(driver string) attribute.KeyValue {
	switch driver {
	case planner.DriverPostgres:
		return semconv.DBSystemPostgreSQL
	case planner.DriverSQLite:
		return semconv.DBSystemSqlite
	default:
		return semconv.DBSystemMySQL
	}
}

// configurePool applies the pool settings. An in-memory SQLite database lives
// on one connection, so that pool is pinned to it.
func configurePool(db *sql.DB, cfg config.DatabaseConfig) {
	if cfg.Driver == planner.DriverSQLite && cfg.DSN == "" && (cfg.SQLitePath == "" || cfg.SQLitePath == ":memory:") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return
	}
	db.SetMaxOpenConns(cfg.Pool.MaxOpen)
	db.SetMaxIdleConns(cfg.Pool.MaxIdle)
	db.SetConnMaxLifetime(cfg.Pool.MaxLifetime)
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// waitForDatabase pings until the store answers or timeout passes. A zero
// timeout tries once.
func waitForDatabase(ctx context.Context, db pinger, timeout, interval time.Duration, logger *logging.Logger) error {
	if timeout == 0 {
		return db.PingContext(ctx)
	}

	deadline := time.Now().Add(timeout)
	attempt := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempt++
		err := db.PingContext(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("database connection established", slog.Int("attempts", attempt))
			}
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("database not available after %v: %w", timeout, err)
		}

		logger.Warn("database not ready, retrying...",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", interval),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		// Exponential backoff, capped at 30s
		interval = min(interval*2, maxRetryInterval)
	}
}

// Executor returns the query executor for the pool. With a lock timeout the
// executor applies it to each connection before use.
func (d *DB) Executor() dbexec.QueryExecutor {
	setup := dbexec.LockTimeoutSetup(d.Driver, d.lockTimeout)
	if setup == "" {
		return dbexec.NewStandardExecutor(d.DB)
	}
	return dbexec.NewConnExecutor(dbexec.ConnExecutorConfig{DB: d.DB, Setup: []string{setup}})
}

// BeginTx starts a transaction and applies the lock timeout to it. The
// transaction binds named parameters in the driver's placeholder format.
func (d *DB) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := sqlx.NewDb(d.DB, d.Driver).BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	if setup := dbexec.LockTimeoutSetup(d.Driver, d.lockTimeout); setup != "" {
		if _, err := tx.ExecContext(ctx, setup); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("failed to apply %q: %w", setup, err)
		}
	}
	return tx, nil
}

// Close unregisters pool metrics and closes the pool.
func (d *DB) Close() error {
	if d.statsReg != nil {
		_ = d.statsReg.Unregister()
	}
	return d.DB.Close()
}
