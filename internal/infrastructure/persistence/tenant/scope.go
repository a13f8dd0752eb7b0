// Package tenant provides multi-tenant database scoping for GORM.
//
// Every tenant-owned table carries a tenant_id column, and this package
// keeps queries from crossing tenants: TenantDB pulls the tenant out of
// the request context and stamps WHERE tenant_id = ? onto each statement,
// while the callback variant does the same at the GORM callback level.
//
//	db := tenant.NewTenantDB(gormDB)
//	db.WithContext(ctx).Find(&calls) // WHERE tenant_id = 'xxx' is added
package tenant

import (
	"context"
	"errors"

	"github.com/echodesk/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when tenant_id is required but not found
var ErrTenantIDRequired = errors.New("tenant_id is required but not found in context")

// ErrInvalidTenantID is returned when tenant_id format is invalid
var ErrInvalidTenantID = errors.New("invalid tenant_id format")

// TenantScope restricts a query to one tenant.
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return TenantScopeString(tenantID.String())
}

// TenantScopeString is TenantScope for an already-stringified tenant ID.
func TenantScopeString(tenantID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// TenantDB wraps a GORM handle so every statement derived from it is
// scoped to the caller's tenant.
type TenantDB struct {
	db           *gorm.DB
	tenantColumn string
	required     bool
}

// Config controls TenantDB behavior.
type Config struct {
	// TenantColumn is the tenant ID column name (default "tenant_id").
	TenantColumn string
	// Required makes statements without a tenant fail rather than run
	// unfiltered.
	Required bool
}

// DefaultConfig requires a tenant on the standard tenant_id column.
func DefaultConfig() Config {
	return Config{
		TenantColumn: "tenant_id",
		Required:     true,
	}
}

// NewTenantDB wraps db with the default configuration.
func NewTenantDB(db *gorm.DB) *TenantDB {
	return NewTenantDBWithConfig(db, DefaultConfig())
}

// NewTenantDBWithConfig wraps db with explicit configuration.
func NewTenantDBWithConfig(db *gorm.DB, cfg Config) *TenantDB {
	if cfg.TenantColumn == "" {
		cfg.TenantColumn = "tenant_id"
	}
	return &TenantDB{
		db:           db,
		tenantColumn: cfg.TenantColumn,
		required:     cfg.Required,
	}
}

// DB exposes the raw handle with no tenant scoping. Callers take on the
// isolation responsibility themselves.
func (t *TenantDB) DB() *gorm.DB {
	return t.db
}

// WithContext returns a handle scoped to the tenant carried in ctx. When
// the tenant is missing and required, or malformed, the returned handle
// errors on execution instead of running unfiltered.
func (t *TenantDB) WithContext(ctx context.Context) *gorm.DB {
	return t.scoped(t.db.WithContext(ctx), logger.GetTenantID(ctx))
}

// WithTenant returns a handle scoped to an explicit tenant ID.
func (t *TenantDB) WithTenant(tenantID uuid.UUID) *gorm.DB {
	if tenantID == uuid.Nil {
		return t.scoped(t.db, "")
	}
	return t.db.Scopes(TenantScope(tenantID))
}

// WithTenantString is WithTenant for a stringified tenant ID.
func (t *TenantDB) WithTenantString(tenantID string) *gorm.DB {
	return t.scoped(t.db, tenantID)
}

// scoped applies the tenant predicate, or poisons the handle when the
// tenant is missing-but-required or not a UUID.
func (t *TenantDB) scoped(db *gorm.DB, tenantID string) *gorm.DB {
	if tenantID == "" {
		if t.required {
			_ = db.AddError(ErrTenantIDRequired)
		}
		return db
	}
	if _, err := uuid.Parse(tenantID); err != nil {
		_ = db.AddError(ErrInvalidTenantID)
		return db
	}
	return db.Scopes(TenantScopeString(tenantID))
}

// ForTenant combines a context and an explicit tenant ID.
func (t *TenantDB) ForTenant(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	return t.db.WithContext(ctx).Scopes(TenantScope(tenantID))
}

// Transaction runs fn inside a transaction whose handle carries the
// tenant scope from ctx.
func (t *TenantDB) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tenantID := logger.GetTenantID(ctx)
	if tenantID == "" && t.required {
		return ErrTenantIDRequired
	}

	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tenantID != "" {
			tx = tx.Scopes(TenantScopeString(tenantID))
		}
		return fn(tx)
	})
}

// Unscoped returns the raw handle. Reserved for system-level operations
// and migrations that genuinely span tenants.
func (t *TenantDB) Unscoped() *gorm.DB {
	return t.db
}

// SetRequired returns a copy with the required flag changed.
func (t *TenantDB) SetRequired(required bool) *TenantDB {
	return &TenantDB{
		db:           t.db,
		tenantColumn: t.tenantColumn,
		required:     required,
	}
}
