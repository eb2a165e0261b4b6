package dbexec

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRows struct {
	remaining int
	closes    int
}

func (f *fakeRows) Next() bool {
	if f.remaining == 0 {
		return false
	}
	f.remaining--
	return true
}

func (f *fakeRows) Scan(dest ...any) error { return nil }
func (f *fakeRows) Err() error             { return nil }
func (f *fakeRows) Close() error {
	f.closes++
	return nil
}

func TestReleaseOnce(t *testing.T) {
	t.Run("exhaustion releases", func(t *testing.T) {
		inner := &fakeRows{remaining: 2}
		released := 0
		rows := ReleaseOnce(inner, func() { released++ })

		for rows.Next() {
		}
		require.NoError(t, rows.Close())
		require.NoError(t, rows.Close())
		assert.False(t, rows.Next())

		assert.Equal(t, 1, released)
		assert.Equal(t, 1, inner.closes)
	})

	t.Run("abandonment releases", func(t *testing.T) {
		inner := &fakeRows{remaining: 5}
		released := 0
		rows := ReleaseOnce(inner, func() { released++ })

		require.True(t, rows.Next())
		require.NoError(t, rows.Close())
		require.NoError(t, rows.Close())

		assert.Equal(t, 1, released)
		assert.Equal(t, 1, inner.closes)
	})
}

func TestClassify(t *testing.T) {
	plain := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"mysql lock wait", &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}, ErrLockTimeout},
		{"mysql nowait", &mysql.MySQLError{Number: 3572}, ErrLockTimeout},
		{"mysql syntax", &mysql.MySQLError{Number: 1064}, ErrUnsupportedOperation},
		{"mysql missing function", &mysql.MySQLError{Number: 1305}, ErrUnsupportedOperation},
		{"mysql gone away", &mysql.MySQLError{Number: 2006}, ErrTransientStore},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, ErrLockTimeout},
		{"sqlite locked", sqlite3.Error{Code: sqlite3.ErrLocked}, ErrLockTimeout},
		{"postgres lock not available", &pq.Error{Code: "55P03"}, ErrLockTimeout},
		{"postgres deadlock", &pq.Error{Code: "40P01"}, ErrLockTimeout},
		{"postgres feature", &pq.Error{Code: "0A000"}, ErrUnsupportedOperation},
		{"postgres connection", &pq.Error{Code: "08006"}, ErrTransientStore},
		{"bad conn", driver.ErrBadConn, ErrTransientStore},
		{"wrapped bad conn", fmt.Errorf("query: %w", driver.ErrBadConn), ErrTransientStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, "c")
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)

			var ee *ExecutionError
			require.ErrorAs(t, got, &ee)
			assert.Equal(t, "c", ee.Construct)
			assert.Equal(t, tt.want == ErrLockTimeout, IsRetryable(got))
		})
	}

	assert.Same(t, plain, Classify(plain, "c"))
	assert.Equal(t, context.Canceled, Classify(context.Canceled, "c"))
	assert.Nil(t, Classify(nil, "c"))
	assert.Nil(t, Class(plain))

	already := Unsupported("truncate", "not available")
	assert.Same(t, already, Classify(already, "other"))
	assert.Equal(t, ErrUnsupportedOperation, Class(already))
}

func TestClassify_SQLiteErrors(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, "SELECT no_such_fn(1)")
	require.Error(t, err)
	assert.ErrorIs(t, Classify(err, "select"), ErrUnsupportedOperation)

	_, err = db.ExecContext(ctx, "SELEC 1")
	require.Error(t, err)
	assert.ErrorIs(t, Classify(err, "select"), ErrUnsupportedOperation)

	// Missing schema is an environment problem, not a feature gap.
	_, err = db.ExecContext(ctx, "SELECT * FROM customer")
	require.Error(t, err)
	got := Classify(err, "from[Customer c]")
	assert.NotErrorIs(t, got, ErrUnsupportedOperation)
	assert.Nil(t, Class(got))
	assert.Contains(t, got.Error(), "no such table")

	assert.Nil(t, Class(Classify(&mysql.MySQLError{Number: 1146, Message: "Table 'sales.customer' doesn't exist"}, "c")))
}

func TestCardinalityError(t *testing.T) {
	none := CardinalityError("Customer c", 0)
	many := CardinalityError("Customer c", 2)

	assert.ErrorIs(t, none, ErrCardinality)
	assert.ErrorIs(t, many, ErrCardinality)
	assert.False(t, IsRetryable(many))
	assert.Contains(t, none.Error(), "no rows")
	assert.Contains(t, many.Error(), "more than one row")
}

func TestTxExecutor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1)).RowsWillBeClosed()

	tx, err := db.Begin()
	require.NoError(t, err)

	exec := NewTxExecutor(tx)
	rows, err := exec.QueryContext(context.Background(), "SELECT 1")
	require.NoError(t, err)
	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	require.NoError(t, rows.Close())
	assert.Equal(t, 1, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnExecutor_AppliesSetup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	setup := LockTimeoutSetup("mysql", 3*time.Second)
	mock.ExpectExec("SET SESSION innodb_lock_wait_timeout = 3").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT n").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1).AddRow(2)).RowsWillBeClosed()

	exec := NewConnExecutor(ConnExecutorConfig{DB: db, Setup: []string{setup}})
	rows, err := exec.QueryContext(context.Background(), "SELECT n")
	require.NoError(t, err)
	count := 0
	for rows.Next() {
		count++
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, 2, count)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockTimeoutSetup(t *testing.T) {
	assert.Equal(t, "SET SESSION innodb_lock_wait_timeout = 1", LockTimeoutSetup("mysql", 200*time.Millisecond))
	assert.Equal(t, "SET lock_timeout = 1500", LockTimeoutSetup("postgres", 1500*time.Millisecond))
	assert.Equal(t, "PRAGMA busy_timeout = 250", LockTimeoutSetup("sqlite3", 250*time.Millisecond))
	assert.Equal(t, "", LockTimeoutSetup("mysql", 0))
	assert.Equal(t, "", LockTimeoutSetup("oracle", time.Second))
}
