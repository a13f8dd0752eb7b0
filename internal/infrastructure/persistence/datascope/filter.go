// Package datascope provides row-level permission filtering for GORM queries.
//
// A role grants each resource one of three visibility levels:
//   - ALL: every row in the tenant
//   - SELF: rows created by or assigned to the current user
//   - CUSTOM: rows matching an explicit value list (e.g. specific agents)
//
// Usage:
//
//	filter := datascope.NewFilter(ctx, roles)
//	filter.Apply(db, "call").Find(&calls) // WHERE handled_by = ? for SELF
package datascope

import (
	"context"

	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DataScopeContextKey is the context key type for data scope values.
type DataScopeContextKey string

// ScopesKey is the context key holding the merged per-resource scopes.
const ScopesKey DataScopeContextKey = "data_scopes"

// Filter restricts GORM queries to the rows the current user may see.
type Filter struct {
	ctx        context.Context
	userID     uuid.UUID
	dataScopes map[string]identity.DataScope
}

// NewFilter merges the scopes of the given roles into a filter. When
// several roles cover one resource the broadest level wins.
func NewFilter(ctx context.Context, roles []identity.Role) *Filter {
	return &Filter{
		ctx:        ctx,
		userID:     contextUserID(ctx),
		dataScopes: mergeRoleScopes(roles),
	}
}

// NewFilterFromContext rebuilds a filter from scopes previously stored
// with WithDataScopes.
func NewFilterFromContext(ctx context.Context) *Filter {
	dataScopes, ok := ctx.Value(ScopesKey).(map[string]identity.DataScope)
	if !ok {
		dataScopes = make(map[string]identity.DataScope)
	}
	return &Filter{
		ctx:        ctx,
		userID:     contextUserID(ctx),
		dataScopes: dataScopes,
	}
}

func contextUserID(ctx context.Context) uuid.UUID {
	id, _ := uuid.Parse(logger.GetUserID(ctx))
	return id
}

func mergeRoleScopes(roles []identity.Role) map[string]identity.DataScope {
	merged := make(map[string]identity.DataScope)
	for _, role := range roles {
		if !role.IsEnabled {
			continue
		}
		for _, ds := range role.DataScopes {
			if existing, ok := merged[ds.Resource]; !ok || compareScopeLevel(ds.ScopeType, existing.ScopeType) > 0 {
				merged[ds.Resource] = ds
			}
		}
	}
	return merged
}

// WithDataScopes stores the merged role scopes in ctx so later layers
// can rebuild the filter without the roles.
func WithDataScopes(ctx context.Context, roles []identity.Role) context.Context {
	return context.WithValue(ctx, ScopesKey, mergeRoleScopes(roles))
}

// Apply adds the scope predicate for resource to db. Resources without a
// configured scope pass through unfiltered.
func (f *Filter) Apply(db *gorm.DB, resource string) *gorm.DB {
	ds, exists := f.dataScopes[resource]
	if !exists {
		return db
	}

	switch ds.ScopeType {
	case identity.DataScopeSelf:
		return f.applySelf(db, ds, resource)
	case identity.DataScopeCustom:
		return f.applyCustom(db, ds, resource)
	default:
		// ALL, or an unrecognized level, filters nothing.
		return db
	}
}

func (f *Filter) applySelf(db *gorm.DB, ds identity.DataScope, resource string) *gorm.DB {
	if f.userID == uuid.Nil {
		// An anonymous caller with SELF scope sees nothing.
		return db.Where("1 = 0")
	}
	return db.Where(f.scopeColumn(ds, resource)+" = ?", f.userID)
}

func (f *Filter) applyCustom(db *gorm.DB, ds identity.DataScope, resource string) *gorm.DB {
	if len(ds.ScopeValues) == 0 {
		return db.Where("1 = 0")
	}
	return db.Where(f.scopeColumn(ds, resource)+" IN ?", ds.ScopeValues)
}

// scopeColumn resolves the column a scope filters on, falling back to
// created_by. Only whitelisted column names survive, since the value
// ends up in SQL text.
func (f *Filter) scopeColumn(ds identity.DataScope, resource string) string {
	field := ds.ScopeField
	if field == "" {
		field = f.getDefaultScopeField(resource)
	}
	if field == "" || !allowedScopeFields[field] {
		return "created_by"
	}
	return field
}

func (f *Filter) getDefaultScopeField(resource string) string {
	return assignmentScopedResources[resource]
}

// ApplyToQuery wraps Apply as a GORM scope function.
func (f *Filter) ApplyToQuery(resource string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return f.Apply(db, resource)
	}
}

// GetScopeType returns the visibility level granted for resource.
func (f *Filter) GetScopeType(resource string) identity.DataScopeType {
	if ds, exists := f.dataScopes[resource]; exists {
		return ds.ScopeType
	}
	return identity.DataScopeAll
}

// HasScope reports whether a scope is configured for resource.
func (f *Filter) HasScope(resource string) bool {
	_, exists := f.dataScopes[resource]
	return exists
}

// GetUserID returns the user the filter is scoped to.
func (f *Filter) GetUserID() uuid.UUID {
	return f.userID
}

// CanAccessAll reports whether the user sees every row for resource.
func (f *Filter) CanAccessAll(resource string) bool {
	ds, exists := f.dataScopes[resource]
	return !exists || ds.ScopeType == identity.DataScopeAll
}

// IsOwner reports whether the current user created the record.
func (f *Filter) IsOwner(createdBy *uuid.UUID) bool {
	if createdBy == nil || f.userID == uuid.Nil {
		return false
	}
	return *createdBy == f.userID
}

// ScopeFunc is a GORM scope function type
type ScopeFunc func(*gorm.DB) *gorm.DB

// DataScopeScopeFromContext builds a GORM scope from the scopes stored
// in ctx by WithDataScopes.
func DataScopeScopeFromContext(ctx context.Context, resource string) ScopeFunc {
	return NewFilterFromContext(ctx).ApplyToQuery(resource)
}

// compareScopeLevel orders scope types by breadth: positive when a grants
// more access than b, negative when less, zero when equal.
func compareScopeLevel(a, b identity.DataScopeType) int {
	return scopeLevel(a) - scopeLevel(b)
}

func scopeLevel(t identity.DataScopeType) int {
	switch t {
	case identity.DataScopeAll:
		return 100
	case identity.DataScopeCustom:
		return 40
	case identity.DataScopeSelf:
		return 10
	default:
		return 0
	}
}

// MergeScopes merges scope lists, keeping the broadest level per resource.
func MergeScopes(scopesList ...[]identity.DataScope) map[string]identity.DataScope {
	merged := make(map[string]identity.DataScope)
	for _, scopes := range scopesList {
		for _, ds := range scopes {
			if existing, ok := merged[ds.Resource]; !ok || compareScopeLevel(ds.ScopeType, existing.ScopeType) > 0 {
				merged[ds.Resource] = ds
			}
		}
	}
	return merged
}

// assignmentScopedResources maps resources scoped by an assignment column
// rather than created_by. Calls belong to the agent that handled them,
// tickets to the agent they are assigned to.
var assignmentScopedResources = map[string]string{
	"call":      "handled_by",
	"recording": "created_by",
	"ticket":    "assigned_to",
}

// allowedScopeFields whitelists the column names scope filters may
// reference in SQL.
var allowedScopeFields = map[string]bool{
	"created_by":  true,
	"handled_by":  true,
	"assigned_to": true,
	"column_id":   true,
	"client_id":   true,
}
