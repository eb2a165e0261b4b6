package demoapp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"sqlcriteria/internal/config"
	"sqlcriteria/internal/dbconn"
	"sqlcriteria/internal/logging"
	"sqlcriteria/internal/mapping"
	"sqlcriteria/internal/naming"
	"sqlcriteria/internal/observability"
	"sqlcriteria/internal/salesmodel"
)

const (
	healthCheckTimeout = 2 * time.Second
	tracerName         = "sqlcriteria"
)

// InitLogger builds the process logger and, when log export is enabled, the
// OTLP logger provider behind it. The logger becomes the slog default.
func InitLogger(cfg *config.Config) (*logging.Logger, *observability.LoggerProvider, error) {
	loggerCfg := logging.Config{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
	}
	logger := logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)

	if !cfg.Observability.Logging.ExportsEnabled {
		return logger, nil, nil
	}

	logsConfig := cfg.Observability.GetLogsConfig()
	logger.Info("initializing OpenTelemetry logging",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("service_version", cfg.Observability.ServiceVersion),
		slog.String("environment", cfg.Observability.Environment),
		slog.String("otlp_endpoint", logsConfig.Endpoint),
		slog.String("otlp_protocol", logsConfig.Protocol),
		slog.Bool("insecure", logsConfig.Insecure),
	)

	loggerProvider, err := observability.InitLoggerProvider(telemetryConfig(cfg, logsConfig))
	if err != nil {
		return nil, nil, err
	}

	logger.Info("OpenTelemetry logging initialized successfully")

	loggerCfg.LoggerProvider = loggerProvider.Provider()
	logger = logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)

	return logger, loggerProvider, nil
}

func telemetryConfig(cfg *config.Config, otlp config.OTLPConfig) observability.Config {
	return observability.Config{
		ServiceName:      cfg.Observability.ServiceName,
		ServiceVersion:   cfg.Observability.ServiceVersion,
		Environment:      cfg.Observability.Environment,
		TraceSampleRatio: cfg.Observability.TraceSampleRatio,
		OTLP: observability.OTLPExporterConfig{
			Endpoint:          otlp.Endpoint,
			Protocol:          otlp.Protocol,
			Insecure:          otlp.Insecure,
			TLSCertFile:       otlp.TLSCertFile,
			TLSClientCertFile: otlp.TLSClientCertFile,
			TLSClientKeyFile:  otlp.TLSClientKeyFile,
			Headers:           otlp.Headers,
			Timeout:           otlp.Timeout,
			Compression:       otlp.Compression,
		},
	}
}

func initMetrics(cfg *config.Config, logger *logging.Logger) (*observability.MeterProvider, *observability.QueryMetrics, error) {
	if !cfg.Observability.MetricsEnabled {
		return nil, nil, nil
	}

	logger.Info("initializing OpenTelemetry metrics",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("service_version", cfg.Observability.ServiceVersion),
		slog.String("environment", cfg.Observability.Environment),
	)

	meterProvider, err := observability.InitMeterProvider(telemetryConfig(cfg, config.OTLPConfig{}))
	if err != nil {
		return nil, nil, err
	}

	queryMetrics, err := observability.InitMetrics(logger.Logger)
	if err != nil {
		_ = meterProvider.Shutdown(context.Background(), logger.Logger)
		return nil, nil, err
	}
	return meterProvider, queryMetrics, nil
}

func initTracing(cfg *config.Config, logger *logging.Logger) (*observability.TracerProvider, error) {
	if !cfg.Observability.TracingEnabled {
		return nil, nil
	}

	tracesConfig := cfg.Observability.GetTracesConfig()
	logger.Info("initializing OpenTelemetry tracing",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("otlp_endpoint", tracesConfig.Endpoint),
		slog.String("otlp_protocol", tracesConfig.Protocol),
		slog.Float64("sample_ratio", cfg.Observability.TraceSampleRatio),
	)

	tracerProvider, err := observability.InitTracerProvider(telemetryConfig(cfg, tracesConfig))
	if err != nil {
		return nil, err
	}

	logger.Info("OpenTelemetry tracing initialized successfully")
	return tracerProvider, nil
}

// tracer returns the statement tracer, or nil when tracing is off.
func tracer(cfg *config.Config) trace.Tracer {
	if !cfg.Observability.TracingEnabled {
		return nil
	}
	return otel.Tracer(tracerName)
}

// LoadRegistry builds the entity mapping: the configured YAML file, or the
// built-in sales model when none is set.
func LoadRegistry(cfg *config.Config, logger *logging.Logger) (*mapping.Registry, error) {
	opts := []mapping.Option{
		mapping.WithNamer(naming.New(cfg.Mapping.Naming, logger.Logger)),
		mapping.WithLogger(logger.Logger),
	}

	if cfg.Mapping.File == "" {
		reg, err := salesmodel.Registry(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load built-in mapping: %w", err)
		}
		return reg, nil
	}

	f, err := os.Open(cfg.Mapping.File)
	if err != nil {
		return nil, fmt.Errorf("failed to open mapping file: %w", err)
	}
	defer f.Close()

	reg, err := mapping.LoadYAML(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping %s: %w", cfg.Mapping.File, err)
	}
	logger.Info("loaded entity mapping",
		slog.String("file", cfg.Mapping.File),
		slog.Int("entities", len(reg.Entities())),
	)
	return reg, nil
}

// buildMetricsServer returns the /metrics and /health endpoint, or nil when
// no listen address is configured or metrics are off.
func buildMetricsServer(cfg *config.Config, logger *logging.Logger, db *dbconn.DB, meterProvider *observability.MeterProvider) *http.Server {
	if cfg.Observability.MetricsListen == "" || meterProvider == nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler(db, healthCheckTimeout, logger))
	logger.Info("metrics endpoint enabled", slog.String("path", "/metrics"))

	return &http.Server{
		Addr:              cfg.Observability.MetricsListen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func startMetricsServer(logger *logging.Logger, srv *http.Server) chan error {
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("metrics endpoint starting", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("metrics endpoint failed: %w", err)
		}
	}()
	return serverErrors
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// healthHandler reports whether the store answers a ping.
func healthHandler(db pinger, timeout time.Duration, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			logger.Error("health check failed",
				slog.String("error", err.Error()),
				slog.String("check", "database"),
			)
			w.WriteHeader(http.StatusServiceUnavailable)
			// Generic message so driver errors do not leak.
			_, _ = fmt.Fprint(w, `{"status":"unhealthy","database":"failed"}`)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, `{"status":"healthy","database":"ok"}`)
	}
}
