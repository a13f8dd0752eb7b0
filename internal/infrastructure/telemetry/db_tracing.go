// Package telemetry provides OpenTelemetry integration for distributed tracing.
package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls the otelgorm integration.
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL includes query parameters in spans. Leave off outside
	// development: call records carry phone numbers and message bodies.
	LogFullSQL bool
	// SlowQueryThresh marks spans slower than this (default 200ms).
	SlowQueryThresh time.Duration
	// DBSystem names the backing database (default "postgresql").
	DBSystem string
	// WithoutVariables strips bind variables from recorded SQL.
	WithoutVariables bool
}

// DefaultDBTracingConfig is disabled and parameter-free SQL.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:          false,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

// DBTracingPlugin layers slow-query and error annotations on top of the
// spans otelgorm creates.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin builds the tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// RegisterOtelGorm installs otelgorm on the GORM DB plus the timing
// callbacks that feed slow-query detection.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := p.registerTimingCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)

	return nil
}

// registerTimingCallbacks stamps a start time before each operation and
// annotates the active span after it. The after callbacks run once
// otelgorm has opened the span, so annotations land on the query span.
func (p *DBTracingPlugin) registerTimingCallbacks(db *gorm.DB) error {
	var regErr error
	reg := func(err error) {
		if err != nil && regErr == nil {
			regErr = err
		}
	}

	before := p.stampStartTime
	after := p.annotateSpan

	reg(db.Callback().Create().Before("gorm:create").Register("otel_timing:before_create", before))
	reg(db.Callback().Create().After("gorm:create").Register("otel_slow_query:create", after))
	reg(db.Callback().Query().Before("gorm:query").Register("otel_timing:before_query", before))
	reg(db.Callback().Query().After("gorm:query").Register("otel_slow_query:query", after))
	reg(db.Callback().Update().Before("gorm:update").Register("otel_timing:before_update", before))
	reg(db.Callback().Update().After("gorm:update").Register("otel_slow_query:update", after))
	reg(db.Callback().Delete().Before("gorm:delete").Register("otel_timing:before_delete", before))
	reg(db.Callback().Delete().After("gorm:delete").Register("otel_slow_query:delete", after))
	reg(db.Callback().Row().Before("gorm:row").Register("otel_timing:before_row", before))
	reg(db.Callback().Row().After("gorm:row").Register("otel_slow_query:row", after))
	reg(db.Callback().Raw().Before("gorm:raw").Register("otel_timing:before_raw", before))
	reg(db.Callback().Raw().After("gorm:raw").Register("otel_slow_query:raw", after))

	return regErr
}

func (p *DBTracingPlugin) stampStartTime(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// annotateSpan adds table and row-count attributes, records errors, and
// flags slow queries on the span otelgorm opened for this statement.
func (p *DBTracingPlugin) annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	// ErrRecordNotFound is a normal lookup miss, not a span error.
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	startTime, ok := ctx.Value(queryStartTimeKey).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(startTime)
	if elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
