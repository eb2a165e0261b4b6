package salesmodel

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlcriteria/internal/mapping"
)

func TestRegistry(t *testing.T) {
	reg, err := Registry()
	require.NoError(t, err)

	names := make([]string, 0)
	for _, e := range reg.Entities() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Customer", "Product", "SalesOrder", "SalesOrderItem", "SalesOrderHistory"}, names)

	so, err := reg.Entity("SalesOrder")
	require.NoError(t, err)
	status, ok := so.Field("status")
	require.True(t, ok)
	assert.Equal(t, Statuses, status.EnumValues)

	history, err := reg.Entity("SalesOrderHistory")
	require.NoError(t, err)
	assert.Equal(t, "seq", history.PrimaryKey)
	assert.Equal(t, "sales_order_history", history.Table)
}

func TestFixtures(t *testing.T) {
	sizes := map[string]int{}
	for _, fx := range Fixtures() {
		sizes[fx.Entity] = len(fx.Rows)
	}
	assert.Equal(t, map[string]int{
		"Customer":          2,
		"Product":           3,
		"SalesOrder":        4,
		"SalesOrderItem":    5,
		"SalesOrderHistory": 10,
	}, sizes)

	history := Fixtures()[4].Rows
	assert.Equal(t, HistoryStart, history[0]["createdAt"])
	assert.Equal(t, HistoryStart.Add(9*time.Minute), history[9]["createdAt"])
	assert.Equal(t, "SHIPPED", history[6]["status"])
	assert.Equal(t, int64(3), history[6]["id"])
}

func newMockDB(t *testing.T, driverName string) (*sqlx.DB, sqlmock.Sqlmock, *mapping.Registry) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	reg, err := Registry()
	require.NoError(t, err)
	return sqlx.NewDb(db, driverName), mock, reg
}

func TestSeed(t *testing.T) {
	db, mock, reg := newMockDB(t, "postgres")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO customer (id, first_name, last_name) VALUES ($1, $2, $3)")).
		WithArgs(int64(1), "FIRST_01", "LAST_01").
		WillReturnResult(sqlmock.NewResult(1, 1))
	for i := 1; i < 14; i++ {
		mock.ExpectExec("INSERT INTO").WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sales_order_history (seq, id, status, created_at, customer_id) VALUES ($1, $2, $3, $4, $5)")).
		WithArgs(int64(1), int64(1), "NEW", "2025-01-01 09:00:00", int64(1)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	for i := 1; i < 10; i++ {
		mock.ExpectExec("INSERT INTO sales_order_history").WillReturnResult(sqlmock.NewResult(0, 1))
	}

	bound := 0
	bindTime := func(t time.Time) any {
		bound++
		return t.Format("2006-01-02 15:04:05")
	}
	require.NoError(t, Seed(context.Background(), db, reg, bindTime))
	assert.Equal(t, 10, bound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeed_StopsOnError(t *testing.T) {
	db, mock, reg := newMockDB(t, "sqlite3")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO customer (id, first_name, last_name) VALUES (?, ?, ?)")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO customer").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("INSERT INTO product").WillReturnError(errors.New("disk full"))

	err := Seed(context.Background(), db, reg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed Product")
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}
