package dbexec

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ConnExecutor runs every query on a dedicated connection after applying
// per-connection session settings, such as a lock wait timeout.
type ConnExecutor struct {
	db    *sql.DB
	setup []string
}

// ConnExecutorConfig controls connection setup.
type ConnExecutorConfig struct {
	DB *sql.DB
	// Setup statements run in order on the connection before each query.
	Setup []string
}

// NewConnExecutor creates an executor that applies cfg.Setup before each query.
func NewConnExecutor(cfg ConnExecutorConfig) *ConnExecutor {
	return &ConnExecutor{db: cfg.DB, setup: append([]string(nil), cfg.Setup...)}
}

func (e *ConnExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	conn, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ReleaseOnce(rows, func() { _ = conn.Close() }), nil
}

func (e *ConnExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	conn, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.ExecContext(ctx, query, args...)
}

func (e *ConnExecutor) acquire(ctx context.Context) (*sql.Conn, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	for _, stmt := range e.setup {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", stmt, err)
		}
	}
	return conn, nil
}

// LockTimeoutSetup returns the statement that bounds lock waits on a
// connection of the given driver, or "" when the driver has no such setting.
func LockTimeoutSetup(driverName string, timeout time.Duration) string {
	if timeout <= 0 {
		return ""
	}
	switch driverName {
	case "mysql":
		secs := int64(timeout / time.Second)
		if secs < 1 {
			secs = 1
		}
		return fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", secs)
	case "postgres":
		return fmt.Sprintf("SET lock_timeout = %d", timeout.Milliseconds())
	case "sqlite3":
		return fmt.Sprintf("PRAGMA busy_timeout = %d", timeout.Milliseconds())
	}
	return ""
}
