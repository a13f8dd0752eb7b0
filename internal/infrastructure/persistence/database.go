package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/echodesk/backend/internal/infrastructure/config"
	applogger "github.com/echodesk/backend/internal/infrastructure/logger"
	"github.com/echodesk/backend/internal/infrastructure/persistence/tenant"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database wraps the GORM connection shared by all repositories.
type Database struct {
	DB *gorm.DB
}

// NewDatabase connects with SQL logging silenced; use
// NewDatabaseWithLogger to see queries.
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	return open(cfg, gormlogger.Default.LogMode(gormlogger.Silent))
}

// NewDatabaseWithLogger connects with SQL log lines routed through the
// structured zap logger at the given GORM level.
func NewDatabaseWithLogger(cfg *config.DatabaseConfig, log *zap.Logger, logLevel gormlogger.LogLevel) (*Database, error) {
	return open(cfg, applogger.NewGormLogger(log, logLevel))
}

func open(cfg *config.DatabaseConfig, gormLogger gormlogger.Interface) (*Database, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	d := &Database{DB: db}
	sqlDB, err := d.sqlHandle()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return d, nil
}

func (d *Database) sqlHandle() (*sql.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB, nil
}

// Close closes the connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.sqlHandle()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the connection is alive.
func (d *Database) Ping() error {
	sqlDB, err := d.sqlHandle()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Stats snapshots the connection pool for health and metrics endpoints.
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.sqlHandle()
	if err != nil {
		return ConnectionStats{}, err
	}

	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}, nil
}

// ConnectionStats is a point-in-time view of the connection pool.
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
	MaxIdleClosed      int64
	MaxIdleTimeClosed  int64
	MaxLifetimeClosed  int64
}

// Transaction runs fn inside a database transaction.
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.DB.Transaction(fn)
}

// WithTenant returns a handle scoped to one tenant. An empty tenant ID
// is a programming error and panics rather than leaking rows.
func (d *Database) WithTenant(tenantID string) *gorm.DB {
	if tenantID == "" {
		panic("WithTenant called with empty tenant ID - this is a programming error")
	}
	return d.DB.Scopes(tenant.TenantScopeString(tenantID))
}
