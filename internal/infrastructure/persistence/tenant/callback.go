package tenant

import (
	"strings"

	"github.com/echodesk/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantCallback injects a tenant_id predicate into queries, updates and
// deletes through GORM callbacks. Creates are left alone: the application
// sets tenant_id explicitly when it builds the row.
type TenantCallback struct {
	tenantColumn string
	required     bool
}

// NewTenantCallback builds a callback handler filtering on tenantColumn
// (tenant_id when empty). When required is true, statements without a
// tenant in context fail instead of running unfiltered.
func NewTenantCallback(tenantColumn string, required bool) *TenantCallback {
	if tenantColumn == "" {
		tenantColumn = "tenant_id"
	}
	return &TenantCallback{
		tenantColumn: tenantColumn,
		required:     required,
	}
}

// RegisterCallbacks hooks the tenant filter into db's callback chains.
func (tc *TenantCallback) RegisterCallbacks(db *gorm.DB) {
	_ = db.Callback().Query().Before("gorm:query").Register("tenant:before_query", tc.filter)
	_ = db.Callback().Update().Before("gorm:update").Register("tenant:before_update", tc.filter)
	_ = db.Callback().Delete().Before("gorm:delete").Register("tenant:before_delete", tc.filter)
	_ = db.Callback().Row().Before("gorm:row").Register("tenant:before_row", tc.filter)
}

func (tc *TenantCallback) filter(db *gorm.DB) {
	if db.Statement.Context == nil || db.Statement.Unscoped {
		return
	}
	if tc.hasTenantCondition(db) {
		return
	}

	tenantID := logger.GetTenantID(db.Statement.Context)
	if tenantID == "" {
		if tc.required {
			_ = db.AddError(ErrTenantIDRequired)
		}
		return
	}
	if _, err := uuid.Parse(tenantID); err != nil {
		_ = db.AddError(ErrInvalidTenantID)
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: tc.tenantColumn},
				Value:  tenantID,
			},
		},
	})
}

// hasTenantCondition reports whether the statement already constrains the
// tenant column, so the callback does not stack a second predicate.
func (tc *TenantCallback) hasTenantCondition(db *gorm.DB) bool {
	if whereClause, ok := db.Statement.Clauses["WHERE"]; ok {
		if where, ok := whereClause.Expression.(clause.Where); ok {
			for _, expr := range where.Exprs {
				if tc.mentionsTenantColumn(expr) {
					return true
				}
			}
		}
	}

	// Raw SQL built ahead of the callback is checked textually.
	return strings.Contains(db.Statement.SQL.String(), tc.tenantColumn)
}

func (tc *TenantCallback) mentionsTenantColumn(expr clause.Expression) bool {
	column := func(c any) bool {
		col, ok := c.(clause.Column)
		return ok && col.Name == tc.tenantColumn
	}

	switch e := expr.(type) {
	case clause.Eq:
		return column(e.Column)
	case clause.IN:
		return column(e.Column)
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if tc.mentionsTenantColumn(cond) {
				return true
			}
		}
	case clause.OrConditions:
		for _, cond := range e.Exprs {
			if tc.mentionsTenantColumn(cond) {
				return true
			}
		}
	}
	return false
}

// EnableAutoTenantFilter registers tenant_id filtering callbacks on db.
func EnableAutoTenantFilter(db *gorm.DB, required bool) {
	NewTenantCallback("tenant_id", required).RegisterCallbacks(db)
}

// DisableAutoTenantFilter unregisters the callbacks. Intended for tests;
// production databases keep the filter for their whole lifetime.
func DisableAutoTenantFilter(db *gorm.DB) {
	_ = db.Callback().Query().Remove("tenant:before_query")
	_ = db.Callback().Update().Remove("tenant:before_update")
	_ = db.Callback().Delete().Remove("tenant:before_delete")
	_ = db.Callback().Row().Remove("tenant:before_row")
}
