package showcase

import (
	"bytes"
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlcriteria/internal/dbexec"
	"sqlcriteria/internal/logging"
	"sqlcriteria/internal/mapping"
	"sqlcriteria/internal/planner"
	"sqlcriteria/internal/salesmodel"
	"sqlcriteria/internal/schema"
)

func newRegistry(t *testing.T) *mapping.Registry {
	t.Helper()
	reg, err := salesmodel.Registry()
	require.NoError(t, err)
	return reg
}

// openStore creates and seeds an in-memory SQLite database.
func openStore(t *testing.T, reg *mapping.Registry) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := sqlx.Open(planner.DriverSQLite, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	d := planner.SQLite()
	stmts, err := schema.CreateTables(reg, d)
	require.NoError(t, err)
	for _, stmt := range stmts {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}
	require.NoError(t, salesmodel.Seed(ctx, db, reg, d.BindTime))
	return db
}

// wantRows is the row count of every example the seed data makes
// deterministic on SQLite.
var wantRows = map[string]int{
	"1.1": 1, "1.2": 1, "1.3": 1, "1.4": 2, "1.5": 2, "1.6": 2, "1.7": 2,
	"2.1": 2, "2.2": 1, "2.3": 5, "2.4": 5, "2.5": 2, "2.6": 3, "2.7": 4, "2.8": 4, "2.9": 2,
	"3.1": 4, "3.2": 4, "3.3": 2, "3.4": 4, "3.5": 2, "3.6": 5, "3.7": 7, "3.8": 5, "3.9": 6, "3.10": 7,
	"4.1": 1, "4.2": 3, "4.3": 1, "4.4": 3, "4.5": 2, "4.6": 2, "4.7": 1, "4.8": 2, "4.9": 5,
	"4.10": 3, "4.11": 2, "4.12": 2, "4.13": 4, "4.14": 1,
	"5.1": 2, "5.2": 2, "5.3": 2, "5.4": 3, "5.5": 4, "5.6": 3, "5.7": 3, "5.8": 2,
	"6.1": 10, "6.2": 100, "6.3": 1000, "6.4": 1, "6.5": 3,
	"7.1": 4, "7.2": 4, "7.3": 2,
	"8.4": 3, "8.6": 3, "8.7": 4, "8.8": 1,
}

// sqliteSkips lists the examples SQLite cannot express.
func sqliteSkips() map[string]bool {
	skips := map[string]bool{"5.9": true, "8.2": true, "8.5": true}
	if !planner.SQLite().Supports("sqrt") {
		skips["8.1"] = true
		skips["8.3"] = true
	}
	return skips
}

func TestRun_SQLiteCatalog(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	db := openStore(t, reg)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	var out bytes.Buffer
	logger := logging.NewLogger(logging.Config{Level: "info", Output: &out})
	results, err := NewRunner(reg, logger, false).Run(ctx, dbexec.NewTxExecutor(tx), planner.SQLite(), Catalog())
	require.NoError(t, err)

	skips := sqliteSkips()
	total := 0
	for _, s := range Catalog() {
		total += len(s.Examples)
	}
	require.Len(t, results, total)

	for _, r := range results {
		id := r.Example.ID
		if skips[id] {
			assert.ErrorIs(t, r.Skipped, dbexec.ErrUnsupportedOperation, id)
			continue
		}
		require.NoError(t, r.Skipped, id)
		if want, ok := wantRows[id]; ok {
			assert.Len(t, r.Rows, want, "%s %s", id, r.Example.Title)
		}
	}

	logged := out.String()
	assert.Contains(t, logged, "section=basic")
	assert.Contains(t, logged, "example=1.3")
	assert.Contains(t, logged, "skipped on this store")
	assert.Contains(t, logged, "item")
}

func TestRun_FetchedCollections(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	db := openStore(t, reg)

	sections, err := Lookup("from")
	require.NoError(t, err)
	results, err := NewRunner(reg, nil, false).Run(ctx, dbexec.NewStandardExecutor(db.DB), planner.SQLite(), sections)
	require.NoError(t, err)

	byID := make(map[string]Result)
	for _, r := range results {
		byID[r.Example.ID] = r
	}

	// Left fetch keeps the orders without items, with empty collections.
	left := byID["3.4"]
	root := left.Query.Sources()[0]
	sizes := make(map[any]int)
	for _, row := range left.Rows {
		e, err := row.Entity(root)
		require.NoError(t, err)
		sizes[e.ID()] = len(e.Collection("item"))
	}
	assert.Equal(t, map[any]int{int64(1): 0, int64(2): 0, int64(3): 2, int64(4): 3}, sizes)

	inner := byID["3.3"]
	require.Len(t, inner.Rows, 2)
	for _, row := range inner.Rows {
		e, err := row.Entity(inner.Query.Sources()[0])
		require.NoError(t, err)
		assert.True(t, e.Fetched("item"))
		assert.NotEmpty(t, e.Collection("item"))
	}
}

func TestRun_StreamMatchesList(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	db := openStore(t, reg)
	exec := dbexec.NewStandardExecutor(db.DB)

	sections, err := Lookup("basic", "with", "derived")
	require.NoError(t, err)

	listed, err := NewRunner(reg, nil, false).Run(ctx, exec, planner.SQLite(), sections)
	require.NoError(t, err)
	streamed, err := NewRunner(reg, nil, true).Run(ctx, exec, planner.SQLite(), sections)
	require.NoError(t, err)

	require.Len(t, streamed, len(listed))
	for i := range listed {
		require.Equal(t, listed[i].Example.ID, streamed[i].Example.ID)
		require.Len(t, streamed[i].Rows, len(listed[i].Rows), listed[i].Example.ID)
		for j := range listed[i].Rows {
			assert.Equal(t, listed[i].Rows[j].Values(), streamed[i].Rows[j].Values(), listed[i].Example.ID)
		}
	}
}

func TestRun_StopsOnExecutionError(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	db, err := sqlx.Open(planner.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	sections, err := Lookup("basic")
	require.NoError(t, err)
	results, err := NewRunner(reg, nil, false).Run(ctx, dbexec.NewStandardExecutor(db.DB), planner.SQLite(), sections)
	require.Error(t, err)
	assert.NotErrorIs(t, err, dbexec.ErrUnsupportedOperation)
	assert.Contains(t, err.Error(), "1.1 read one entity")
	assert.Contains(t, err.Error(), "no such table")
	assert.Empty(t, results)
}

func TestRender_AllDialects(t *testing.T) {
	reg := newRegistry(t)
	skips := sqliteSkips()

	for _, d := range []*planner.Dialect{planner.MySQL(), planner.Postgres(), planner.SQLite()} {
		t.Run(d.Name, func(t *testing.T) {
			for _, r := range Render(reg, d, Catalog()) {
				if d.Name == planner.SQLite().Name && skips[r.Example.ID] {
					assert.ErrorIs(t, r.Err, dbexec.ErrUnsupportedOperation, r.Example.ID)
					continue
				}
				require.NoError(t, r.Err, r.Example.ID)
				assert.NotEmpty(t, r.SQL, r.Example.ID)
			}
		})
	}
}

func TestRender_RecursiveCte(t *testing.T) {
	reg := newRegistry(t)
	sections, err := Lookup("with")
	require.NoError(t, err)

	rendered := Render(reg, planner.Postgres(), sections)
	require.NotEmpty(t, rendered)
	assert.Contains(t, rendered[0].SQL, "WITH RECURSIVE ")
	assert.Contains(t, rendered[0].SQL, "UNION ALL")
}

func TestLookup(t *testing.T) {
	all, err := Lookup()
	require.NoError(t, err)
	assert.Len(t, all, len(Names()))

	got, err := Lookup("where", "basic")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "where", got[0].Name)
	assert.Equal(t, "basic", got[1].Name)

	_, err = Lookup("basic", "joins")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown section "joins"`)
}

func TestCatalog_UniqueExampleIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range Catalog() {
		require.NotEmpty(t, s.Examples, s.Name)
		for _, ex := range s.Examples {
			assert.False(t, seen[ex.ID], "duplicate example %s", ex.ID)
			seen[ex.ID] = true
		}
	}
}
