package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type callRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Number    string `gorm:"size:32"`
	CreatedAt time.Time
}

func openTracingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&callRecord{}))
	return db
}

func newSpanRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

func spanAttributes(span sdktrace.ReadOnlySpan) map[string]interface{} {
	attrs := make(map[string]interface{})
	for _, attr := range span.Attributes() {
		attrs[string(attr.Key)] = attr.Value.AsInterface()
	}
	return attrs
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
	// Call records carry subscriber numbers; SQL must stay parameter-free
	// unless someone opts in.
	assert.False(t, cfg.LogFullSQL)
	assert.True(t, cfg.WithoutVariables)
}

func TestRegisterOtelGorm(t *testing.T) {
	t.Run("disabled config registers nothing", func(t *testing.T) {
		plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
		assert.NoError(t, plugin.RegisterOtelGorm(openTracingTestDB(t)))
	})

	t.Run("enabled config installs plugin and callbacks", func(t *testing.T) {
		cfg := DefaultDBTracingConfig()
		cfg.Enabled = true
		cfg.DBSystem = "sqlite"

		plugin := NewDBTracingPlugin(cfg, zap.NewNop())
		assert.NoError(t, plugin.RegisterOtelGorm(openTracingTestDB(t)))
	})

	t.Run("full SQL keeps query variables", func(t *testing.T) {
		cfg := DefaultDBTracingConfig()
		cfg.Enabled = true
		cfg.LogFullSQL = true
		cfg.WithoutVariables = false
		cfg.DBSystem = "sqlite"

		plugin := NewDBTracingPlugin(cfg, zap.NewNop())
		assert.NoError(t, plugin.RegisterOtelGorm(openTracingTestDB(t)))
	})

	t.Run("double registration fails on duplicate callbacks", func(t *testing.T) {
		cfg := DefaultDBTracingConfig()
		cfg.Enabled = true
		cfg.DBSystem = "sqlite"

		db := openTracingTestDB(t)
		plugin := NewDBTracingPlugin(cfg, zap.NewNop())
		require.NoError(t, plugin.RegisterOtelGorm(db))
		assert.Error(t, plugin.RegisterOtelGorm(db))
	})
}

func TestStampStartTime(t *testing.T) {
	db := openTracingTestDB(t)
	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())

	tx := db.WithContext(context.Background())
	plugin.stampStartTime(tx)

	start, ok := tx.Statement.Context.Value(queryStartTimeKey).(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), start, time.Second)
}

func TestAnnotateSpan(t *testing.T) {
	newPlugin := func(thresh time.Duration) *DBTracingPlugin {
		cfg := DefaultDBTracingConfig()
		cfg.Enabled = true
		cfg.SlowQueryThresh = thresh
		return NewDBTracingPlugin(cfg, zap.NewNop())
	}

	t.Run("records rows affected and table", func(t *testing.T) {
		db := openTracingTestDB(t)
		tp, recorder := newSpanRecorder(t)
		plugin := newPlugin(200 * time.Millisecond)

		ctx, span := tp.Tracer("test").Start(context.Background(), "create-calls")
		result := db.WithContext(ctx).Create(&[]callRecord{
			{Number: "+995 555 100 200"},
			{Number: "+995 555 100 201"},
		})
		require.NoError(t, result.Error)

		plugin.annotateSpan(result)
		span.End()

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		attrs := spanAttributes(spans[0])
		assert.Equal(t, int64(2), attrs["db.rows_affected"])
		assert.Equal(t, "call_records", attrs["db.sql.table"])
	})

	t.Run("record not found is not a span error", func(t *testing.T) {
		db := openTracingTestDB(t)
		tp, recorder := newSpanRecorder(t)
		plugin := newPlugin(200 * time.Millisecond)

		ctx, span := tp.Tracer("test").Start(context.Background(), "lookup-miss")
		var rec callRecord
		result := db.WithContext(ctx).First(&rec, 99999)
		require.ErrorIs(t, result.Error, gorm.ErrRecordNotFound)

		plugin.annotateSpan(result)
		span.End()

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.NotEqual(t, codes.Error, spans[0].Status().Code)
	})

	t.Run("real errors mark the span", func(t *testing.T) {
		db := openTracingTestDB(t)
		tp, recorder := newSpanRecorder(t)
		plugin := newPlugin(200 * time.Millisecond)

		ctx, span := tp.Tracer("test").Start(context.Background(), "bad-table")
		var out []map[string]interface{}
		result := db.WithContext(ctx).Table("no_such_table").Find(&out)
		require.Error(t, result.Error)

		plugin.annotateSpan(result)
		span.End()

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
	})

	t.Run("slow queries get attributes and an event", func(t *testing.T) {
		db := openTracingTestDB(t)
		tp, recorder := newSpanRecorder(t)
		plugin := newPlugin(time.Millisecond)

		ctx, span := tp.Tracer("test").Start(context.Background(), "slow-query")
		// Backdate the stamp so the elapsed time is deterministic.
		ctx = context.WithValue(ctx, queryStartTimeKey, time.Now().Add(-time.Second))

		tx := db.WithContext(ctx)
		plugin.annotateSpan(tx)
		span.End()

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		attrs := spanAttributes(spans[0])
		assert.Equal(t, true, attrs["db.slow_query"])
		assert.GreaterOrEqual(t, attrs["db.query_duration_ms"], int64(1000))

		var warned bool
		for _, event := range spans[0].Events() {
			if event.Name == "slow_query_warning" {
				warned = true
			}
		}
		assert.True(t, warned)
	})

	t.Run("no active span is a no-op", func(t *testing.T) {
		db := openTracingTestDB(t)
		plugin := newPlugin(200 * time.Millisecond)

		tx := db.WithContext(context.Background())
		assert.NotPanics(t, func() { plugin.annotateSpan(tx) })
	})
}

func TestTimingCallbacks_EndToEnd(t *testing.T) {
	db := openTracingTestDB(t)
	tp, recorder := newSpanRecorder(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBSystem = "sqlite"
	plugin := NewDBTracingPlugin(cfg, zap.NewNop())
	require.NoError(t, plugin.registerTimingCallbacks(db))

	ctx, span := tp.Tracer("test").Start(context.Background(), "traced-create")
	result := db.WithContext(ctx).Create(&callRecord{Number: "+995 555 100 300"})
	require.NoError(t, result.Error)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttributes(spans[0])
	assert.Equal(t, int64(1), attrs["db.rows_affected"])
	assert.Equal(t, "call_records", attrs["db.sql.table"])
}
