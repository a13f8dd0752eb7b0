// Package telemetry provides OpenTelemetry integration for database metrics collection.
package telemetry

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig controls query and connection pool instrumentation.
type DBMetricsConfig struct {
	Enabled bool
	// SlowQueryThreshold marks queries slower than this as slow (default 200ms).
	SlowQueryThreshold time.Duration
	// PoolStatsInterval is how often pool gauges are sampled (default 15s).
	PoolStatsInterval time.Duration
}

// DefaultDBMetricsConfig enables collection with a 200ms slow threshold
// and 15s pool sampling.
func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{
		Enabled:            true,
		SlowQueryThreshold: 200 * time.Millisecond,
		PoolStatsInterval:  15 * time.Second,
	}
}

// DBMetrics owns the database metric instruments and the pool sampling
// goroutine.
type DBMetrics struct {
	poolConnections    *Gauge
	poolConnectionsMax *Gauge
	queryTotal         *Counter
	queryDuration      *Histogram
	slowQueryTotal     *Counter

	config   DBMetricsConfig
	logger   *zap.Logger
	sqlDB    *sql.DB
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopOnce sync.Once
}

// NewDBMetrics builds the instrument set on the given meter.
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold == 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.PoolStatsInterval == 0 {
		cfg.PoolStatsInterval = 15 * time.Second
	}

	m := &DBMetrics{
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	var err error
	if m.poolConnections, err = NewGauge(meter,
		"db_pool_connections", "Number of connections in the pool by state", "{connection}"); err != nil {
		return nil, err
	}
	if m.poolConnectionsMax, err = NewGauge(meter,
		"db_pool_connections_max", "Maximum number of connections in the pool", "{connection}"); err != nil {
		return nil, err
	}
	if m.queryTotal, err = NewCounter(meter,
		"db_query_total", "Total number of database queries by operation type", "{query}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency distribution in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.slowQueryTotal, err = NewCounter(meter,
		"db_slow_query_total", "Total number of slow database queries (>200ms by default)", "{query}"); err != nil {
		return nil, err
	}

	return m, nil
}

// SetSQLDB wires the sql.DB whose pool will be sampled. Must happen
// before StartPoolStatsCollection.
func (m *DBMetrics) SetSQLDB(sqlDB *sql.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sqlDB = sqlDB
}

// StartPoolStatsCollection samples pool gauges on a ticker until Stop or
// context cancellation.
func (m *DBMetrics) StartPoolStatsCollection(ctx context.Context) {
	m.mu.RLock()
	sqlDB := m.sqlDB
	m.mu.RUnlock()

	if sqlDB == nil {
		m.logger.Warn("Cannot start pool stats collection: sqlDB not set")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.config.PoolStatsInterval)
		defer ticker.Stop()

		m.collectPoolStats(ctx)
		for {
			select {
			case <-ticker.C:
				m.collectPoolStats(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	m.logger.Info("Started database connection pool stats collection",
		zap.Duration("interval", m.config.PoolStatsInterval),
	)
}

func (m *DBMetrics) collectPoolStats(ctx context.Context) {
	m.mu.RLock()
	sqlDB := m.sqlDB
	m.mu.RUnlock()

	if sqlDB == nil {
		return
	}

	stats := sqlDB.Stats()

	// Idle + InUse = OpenConnections. WaitCount is cumulative rather
	// than a current state, so it is not sampled here.
	m.poolConnectionsMax.Record(ctx, int64(stats.MaxOpenConnections))
	m.poolConnections.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolConnections.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolConnections.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// Stop terminates pool sampling. Safe to call more than once.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
		m.logger.Debug("Database metrics stopped")
	})
}

// RecordQuery records count, latency, and the slow-query counter for one
// completed statement.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation string, table string, duration time.Duration, err error) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "UNKNOWN"
	}

	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, duration, AttrDBOperation.String(operation))

	if duration > m.config.SlowQueryThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

type dbMetricsContextKey string

const dbMetricsStartTimeKey dbMetricsContextKey = "db_metrics_start_time"

// DBMetricsPlugin hooks GORM callbacks to time every statement.
type DBMetricsPlugin struct {
	metrics *DBMetrics
	logger  *zap.Logger
}

// NewDBMetricsPlugin builds the GORM plugin around a DBMetrics instance.
func NewDBMetricsPlugin(metrics *DBMetrics, logger *zap.Logger) *DBMetricsPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBMetricsPlugin{metrics: metrics, logger: logger}
}

// Name returns the plugin name.
func (p *DBMetricsPlugin) Name() string {
	return "db_metrics"
}

// Initialize registers before/after callbacks on every GORM operation.
// Row and Raw statements carry no operation type, so it is sniffed from
// the SQL text after the fact.
func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	stamp := func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, dbMetricsStartTimeKey, time.Now())
	}
	record := func(operation string) func(*gorm.DB) {
		return func(db *gorm.DB) {
			op := operation
			if op == "" {
				op = detectOperationType(db.Statement.SQL.String())
			}
			p.recordMetrics(db, op)
		}
	}

	var regErr error
	reg := func(err error) {
		if err != nil && regErr == nil {
			regErr = err
		}
	}

	reg(db.Callback().Create().Before("gorm:create").Register("db_metrics:before_create", stamp))
	reg(db.Callback().Create().After("gorm:create").Register("db_metrics:after_create", record("INSERT")))
	reg(db.Callback().Query().Before("gorm:query").Register("db_metrics:before_query", stamp))
	reg(db.Callback().Query().After("gorm:query").Register("db_metrics:after_query", record("SELECT")))
	reg(db.Callback().Update().Before("gorm:update").Register("db_metrics:before_update", stamp))
	reg(db.Callback().Update().After("gorm:update").Register("db_metrics:after_update", record("UPDATE")))
	reg(db.Callback().Delete().Before("gorm:delete").Register("db_metrics:before_delete", stamp))
	reg(db.Callback().Delete().After("gorm:delete").Register("db_metrics:after_delete", record("DELETE")))
	reg(db.Callback().Row().Before("gorm:row").Register("db_metrics:before_row", stamp))
	reg(db.Callback().Row().After("gorm:row").Register("db_metrics:after_row", record("")))
	reg(db.Callback().Raw().Before("gorm:raw").Register("db_metrics:before_raw", stamp))
	reg(db.Callback().Raw().After("gorm:raw").Register("db_metrics:after_raw", record("")))

	if regErr != nil {
		return regErr
	}

	p.logger.Info("Database metrics plugin initialized")
	return nil
}

func (p *DBMetricsPlugin) recordMetrics(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}

	var duration time.Duration
	if startTime, ok := ctx.Value(dbMetricsStartTimeKey).(time.Time); ok {
		duration = time.Since(startTime)
	}

	p.metrics.RecordQuery(ctx, operation, db.Statement.Table, duration, db.Error)
}

func detectOperationType(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))

	switch {
	case strings.HasPrefix(sql, "SELECT"):
		return "SELECT"
	case strings.HasPrefix(sql, "INSERT"):
		return "INSERT"
	case strings.HasPrefix(sql, "UPDATE"):
		return "UPDATE"
	case strings.HasPrefix(sql, "DELETE"):
		return "DELETE"
	default:
		return "OTHER"
	}
}

// RegisterDBMetrics wires query metrics and pool sampling onto a GORM DB.
// The returned DBMetrics is nil when collection is disabled; callers
// should Stop it on shutdown otherwise.
func RegisterDBMetrics(db *gorm.DB, meterProvider *MeterProvider, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if !cfg.Enabled {
		logger.Debug("Database metrics disabled, skipping registration")
		return nil, nil
	}
	if meterProvider == nil || !meterProvider.IsEnabled() {
		logger.Debug("MeterProvider not available, skipping database metrics")
		return nil, nil
	}

	metrics, err := NewDBMetrics(meterProvider.Meter("db.client"), cfg, logger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	metrics.SetSQLDB(sqlDB)

	if err := db.Use(NewDBMetricsPlugin(metrics, logger)); err != nil {
		return nil, err
	}

	logger.Info("Database metrics registered",
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
		zap.Duration("pool_stats_interval", cfg.PoolStatsInterval),
	)

	return metrics, nil
}
