package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of every sqlcriteria instrument.
const MeterName = "sqlcriteria"

// QueryMetrics holds the instruments recorded around query execution.
type QueryMetrics struct {
	statementDuration metric.Float64Histogram
	statementCounter  metric.Int64Counter
	errorCounter      metric.Int64Counter
	rowsReturned      metric.Int64Histogram
	entitiesCollapsed metric.Int64Counter
	openStreams       metric.Int64UpDownCounter
}

// InitQueryMetrics creates the query instruments on the global meter provider.
func InitQueryMetrics() (*QueryMetrics, error) {
	return NewQueryMetrics(otel.Meter(MeterName))
}

// NewQueryMetrics creates the query instruments on meter.
func NewQueryMetrics(meter metric.Meter) (*QueryMetrics, error) {
	statementDuration, err := meter.Float64Histogram(
		"criteria.statement.duration",
		metric.WithDescription("Duration of criteria statements in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create statement duration histogram: %w", err)
	}

	statementCounter, err := meter.Int64Counter(
		"criteria.statements.total",
		metric.WithDescription("Total number of executed criteria statements"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create statement counter: %w", err)
	}

	errorCounter, err := meter.Int64Counter(
		"criteria.errors.total",
		metric.WithDescription("Total number of failed criteria statements by error class"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}

	rowsReturned, err := meter.Int64Histogram(
		"criteria.rows.returned",
		metric.WithDescription("Number of rows read per statement"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rows histogram: %w", err)
	}

	entitiesCollapsed, err := meter.Int64Counter(
		"criteria.fetch.collapsed_rows",
		metric.WithDescription("Number of joined rows folded into an earlier entity by fetch collapse"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collapsed rows counter: %w", err)
	}

	openStreams, err := meter.Int64UpDownCounter(
		"criteria.streams.open",
		metric.WithDescription("Number of result streams holding a cursor"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create open streams counter: %w", err)
	}

	return &QueryMetrics{
		statementDuration: statementDuration,
		statementCounter:  statementCounter,
		errorCounter:      errorCounter,
		rowsReturned:      rowsReturned,
		entitiesCollapsed: entitiesCollapsed,
		openStreams:       openStreams,
	}, nil
}

// RecordStatement records one executed statement. errorClass is empty on success.
func (m *QueryMetrics) RecordStatement(ctx context.Context, mode, dialect string, duration time.Duration, rows int64, errorClass string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("mode", mode),
		attribute.String("dialect", dialect),
		attribute.Bool("has_error", errorClass != ""),
	}
	m.statementDuration.Record(ctx, float64(duration.Microseconds())/1000, metric.WithAttributes(attrs...))
	m.statementCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	if errorClass != "" {
		m.errorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("dialect", dialect),
			attribute.String("error_class", errorClass),
		))
		return
	}
	m.rowsReturned.Record(ctx, rows, metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordCollapsed counts joined rows merged into an already materialized entity.
func (m *QueryMetrics) RecordCollapsed(ctx context.Context, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.entitiesCollapsed.Add(ctx, count)
}

// StreamOpened marks a cursor as held by a stream.
func (m *QueryMetrics) StreamOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.openStreams.Add(ctx, 1)
}

// StreamClosed releases the mark taken by StreamOpened.
func (m *QueryMetrics) StreamClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.openStreams.Add(ctx, -1)
}

// InitMetrics initializes the query metrics and logs that they are ready.
func InitMetrics(logger *slog.Logger) (*QueryMetrics, error) {
	metrics, err := InitQueryMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize query metrics: %w", err)
	}

	logger.Info("query metrics initialized")
	return metrics, nil
}
