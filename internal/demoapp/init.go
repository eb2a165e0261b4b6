package demoapp

import (
	"context"
	"fmt"
	"log/slog"

	"sqlcriteria/internal/dbconn"
)

// Init loads the mapping, starts the configured telemetry, connects to the
// store and, when an address is configured, serves /metrics. It is
// idempotent; a failed Init releases whatever it acquired.
func (a *App) Init(ctx context.Context) error {
	a.stateMu.Lock()
	if a.initialized {
		a.stateMu.Unlock()
		return nil
	}
	a.stateMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	cleanup := cleanupStack{}
	success := false
	defer func() {
		if !success {
			cleanup.run(context.Background(), a.logger)
		}
	}()

	if a.loggerProvider != nil {
		cleanup.push("logger provider", func(shutdownCtx context.Context) error {
			return a.loggerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	meterProvider, queryMetrics, err := initMetrics(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry metrics: %w", err)
	}
	if meterProvider != nil {
		cleanup.push("meter provider", func(shutdownCtx context.Context) error {
			return meterProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	tracerProvider, err := initTracing(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry tracing: %w", err)
	}
	if tracerProvider != nil {
		cleanup.push("tracer provider", func(shutdownCtx context.Context) error {
			return tracerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	registry, err := LoadRegistry(a.cfg, a.logger)
	if err != nil {
		return err
	}

	a.logger.Info("connecting to database",
		slog.String("driver", a.cfg.Database.Driver),
		slog.String("host", a.cfg.Database.Host),
		slog.Int("port", a.cfg.Database.Port),
		slog.String("database_effective", a.effectiveDatabase),
		slog.String("database_source", a.databaseSource),
		slog.Bool("dsn_present", a.cfg.Database.DSN != ""),
	)

	db, err := dbconn.Open(ctx, a.cfg.Database, dbconn.FromObservability(a.cfg.Observability), a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	cleanup.push("database", func(_ context.Context) error {
		return db.Close()
	})

	var metricsErrors chan error
	srv := buildMetricsServer(a.cfg, a.logger, db, meterProvider)
	if srv != nil {
		metricsErrors = startMetricsServer(a.logger, srv)
		cleanup.push("metrics endpoint", func(shutdownCtx context.Context) error {
			return srv.Shutdown(shutdownCtx)
		})
	}

	a.stateMu.Lock()
	a.meterProvider = meterProvider
	a.queryMetrics = queryMetrics
	a.tracerProvider = tracerProvider
	a.registry = registry
	a.db = db
	a.metricsSrv = srv
	a.metricsErrors = metricsErrors
	a.cleanup = cleanup
	a.initialized = true
	a.stateMu.Unlock()

	success = true
	return nil
}
