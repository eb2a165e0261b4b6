package demoapp

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"sqlcriteria/internal/dbexec"
	"sqlcriteria/internal/salesmodel"
	"sqlcriteria/internal/schema"
	"sqlcriteria/internal/session"
	"sqlcriteria/internal/showcase"
)

// RunShowcase runs sections inside one transaction. With demo.create_schema
// the mapped tables are dropped and recreated first, with demo.seed the
// sample data is loaded. The transaction is rolled back unless demo.commit
// is set. MySQL commits DDL implicitly and ends the transaction with it, so
// a create_schema run on MySQL keeps its tables and seed data.
func (a *App) RunShowcase(ctx context.Context, sections []showcase.Section) ([]showcase.Result, error) {
	a.stateMu.Lock()
	initialized, db, reg := a.initialized, a.db, a.registry
	a.stateMu.Unlock()
	if !initialized {
		return nil, fmt.Errorf("app is not initialized")
	}

	tx, err := db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin demo transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			a.logger.Warn("rollback failed", slog.String("error", err.Error()))
		} else {
			a.logger.Info("rolled back demo transaction")
		}
	}()

	if a.cfg.Demo.CreateSchema {
		if err := a.createSchema(ctx, tx.Tx); err != nil {
			return nil, err
		}
	}
	if a.cfg.Demo.Seed {
		if err := salesmodel.Seed(ctx, tx, reg, db.Dialect.BindTime); err != nil {
			return nil, fmt.Errorf("failed to seed sample data: %w", err)
		}
		a.logger.Info("loaded sample data")
	}

	opts := []session.Option{session.WithMetrics(a.queryMetrics)}
	if t := tracer(a.cfg); t != nil {
		opts = append(opts, session.WithTracer(t))
	}
	runner := showcase.NewRunner(reg, a.logger, a.cfg.Demo.Stream, opts...)
	results, err := runner.Run(ctx, dbexec.NewTxExecutor(tx.Tx), db.Dialect, sections)
	if err != nil {
		return results, err
	}

	skipped := 0
	for _, r := range results {
		if r.Skipped != nil {
			skipped++
		}
	}
	a.logger.Info("showcase finished",
		slog.Int("examples", len(results)),
		slog.Int("skipped", skipped),
		slog.String("dialect", db.Dialect.Name),
	)

	if a.cfg.Demo.Commit {
		if err := tx.Commit(); err != nil {
			return results, fmt.Errorf("failed to commit demo transaction: %w", err)
		}
		committed = true
		a.logger.Info("committed demo transaction")
	}
	return results, nil
}

func (a *App) createSchema(ctx context.Context, tx *sql.Tx) error {
	drops, err := schema.DropTables(a.registry, a.db.Dialect)
	if err != nil {
		return err
	}
	creates, err := schema.CreateTables(a.registry, a.db.Dialect)
	if err != nil {
		return err
	}
	for _, stmt := range append(drops, creates...) {
		a.logger.Debug("schema", slog.String("sql", stmt))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	a.logger.Info("created schema", slog.Int("tables", len(creates)))
	return nil
}

// WaitForStop keeps the metrics endpoint up until a signal arrives or the
// endpoint fails. Without an endpoint it returns at once.
func (a *App) WaitForStop(stop <-chan os.Signal) (reason string, err error) {
	a.stateMu.Lock()
	serverErrors := a.metricsErrors
	a.stateMu.Unlock()

	if serverErrors == nil {
		return "no_endpoint", nil
	}
	if stop == nil {
		return "", fmt.Errorf("stop channel is nil")
	}

	a.logger.Info("serving metrics until interrupted")
	select {
	case err := <-serverErrors:
		return "server_error", err
	case sig := <-stop:
		a.logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		return "signal", nil
	}
}
