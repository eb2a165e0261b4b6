package dbconn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlcriteria/internal/config"
	"sqlcriteria/internal/dbexec"
	"sqlcriteria/internal/logging"
	"sqlcriteria/internal/planner"
)

func TestOpen_SQLiteMemory(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, config.DatabaseConfig{
		Driver:      planner.DriverSQLite,
		Pool:        config.PoolConfig{MaxOpen: 8, MaxIdle: 2},
		LockTimeout: 250 * time.Millisecond,
	}, Instrumentation{}, logging.Discard())
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, planner.SQLite(), db.Dialect)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)

	exec := db.Executor()
	require.IsType(t, &dbexec.ConnExecutor{}, exec)

	_, err = exec.ExecContext(ctx, "CREATE TABLE t (n INTEGER)")
	require.NoError(t, err)

	tx, err := db.BeginTx(ctx)
	require.NoError(t, err)
	assert.Equal(t, planner.DriverSQLite, tx.DriverName())
	_, err = sqlx.NamedExecContext(ctx, tx, "INSERT INTO t (n) VALUES (:n)", map[string]any{"n": 1})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	rows, err := exec.QueryContext(ctx, "SELECT n FROM t")
	require.NoError(t, err)
	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	assert.Equal(t, 1, n)
	require.NoError(t, rows.Close())
}

func TestOpen_Instrumented(t *testing.T) {
	db, err := Open(context.Background(), config.DatabaseConfig{Driver: planner.DriverSQLite},
		Instrumentation{Metrics: true, Tracing: true, SQLCommenter: true}, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &dbexec.StandardExecutor{}, db.Executor())
	assert.NoError(t, db.Close())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle"}, Instrumentation{}, nil)
	assert.Error(t, err)
}

func TestWaitForDatabase_RetriesUntilReachable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing()

	err = waitForDatabase(context.Background(), db, time.Second, time.Millisecond, logging.Discard())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitForDatabase_GivesUp(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 50; i++ {
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	}

	err = waitForDatabase(context.Background(), db, 20*time.Millisecond, 5*time.Millisecond, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not available after")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWaitForDatabase_ZeroTimeoutTriesOnce(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("down"))
	err = waitForDatabase(context.Background(), db, 0, time.Second, logging.Discard())
	assert.EqualError(t, err, "down")
}
