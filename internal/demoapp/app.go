// Package demoapp wires configuration, observability and the store together
// for the showcase runner and owns their lifecycle.
package demoapp

import (
	"fmt"
	"net/http"
	"sync"

	"sqlcriteria/internal/config"
	"sqlcriteria/internal/dbconn"
	"sqlcriteria/internal/logging"
	"sqlcriteria/internal/mapping"
	"sqlcriteria/internal/observability"
)

// App owns the runtime resources of one demo invocation.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	loggerProvider *observability.LoggerProvider
	meterProvider  *observability.MeterProvider
	queryMetrics   *observability.QueryMetrics
	tracerProvider *observability.TracerProvider

	effectiveDatabase string
	databaseSource    string

	registry *mapping.Registry
	db       *dbconn.DB

	metricsSrv    *http.Server
	metricsErrors chan error

	cleanup cleanupStack

	stateMu     sync.Mutex
	initialized bool

	shutdownOnce sync.Once
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	effectiveDatabase, err := cfg.Database.EffectiveDatabaseName()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve effective database configuration: %w", err)
	}

	return &App{
		cfg:               cfg,
		logger:            logger,
		effectiveDatabase: effectiveDatabase,
		databaseSource:    cfg.Database.DatabaseSource(),
	}, nil
}

// AttachLoggerProvider registers an optional logger provider for shutdown cleanup.
func (a *App) AttachLoggerProvider(provider *observability.LoggerProvider) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.loggerProvider = provider
}

// Registry returns the entity mapping loaded by Init.
func (a *App) Registry() *mapping.Registry {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.registry
}

// DB returns the store opened by Init.
func (a *App) DB() *dbconn.DB {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.db
}
