// Package middleware provides HTTP middleware for the application.
package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/infrastructure/persistence/datascope"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys for the row-level access data loaded by DataScopeMiddleware.
const (
	DataScopeFilterKey = "data_scope_filter"
	UserRolesKey       = "user_roles"
)

// DataScopeMiddlewareConfig configures which requests get row-level
// scope loading and where the roles come from.
type DataScopeMiddlewareConfig struct {
	RoleRepository   identity.RoleRepository
	SkipPaths        []string
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

// DefaultDataScopeConfig skips health probes, the login endpoints that
// run before any identity exists, and the docs surface.
func DefaultDataScopeConfig(roleRepo identity.RoleRepository) DataScopeMiddlewareConfig {
	return DataScopeMiddlewareConfig{
		RoleRepository: roleRepo,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/metrics",
			"/api/v1/health",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
		},
		SkipPathPrefixes: []string{
			"/swagger",
			"/api-docs",
		},
	}
}

// DataScopeMiddleware loads the caller's roles and their row-level scopes
// into the request. It must run after JWT authentication, which supplies
// the role IDs.
func DataScopeMiddleware(roleRepo identity.RoleRepository) gin.HandlerFunc {
	return DataScopeMiddlewareWithConfig(DefaultDataScopeConfig(roleRepo))
}

// DataScopeMiddlewareWithConfig is DataScopeMiddleware with explicit config.
func DataScopeMiddlewareWithConfig(cfg DataScopeMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.skips(c.Request.URL.Path) {
			c.Next()
			return
		}

		roleIDs := parseRoleIDs(GetJWTRoleIDs(c))
		if len(roleIDs) == 0 {
			// No roles means no scope restrictions to enforce.
			c.Next()
			return
		}

		tenantID, err := uuid.Parse(GetJWTTenantID(c))
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("Invalid tenant ID in JWT",
					zap.String("tenant_id", GetJWTTenantID(c)),
					zap.Error(err))
			}
			c.Next()
			return
		}

		ctx := c.Request.Context()
		roles, err := cfg.loadTenantRoles(c, roleIDs, tenantID)
		if err != nil {
			// Scope loading is advisory here. A repository outage must
			// not turn every request into a 500.
			c.Next()
			return
		}

		c.Set(UserRolesKey, roles)
		c.Set(DataScopeFilterKey, datascope.NewFilter(ctx, roles))
		c.Request = c.Request.WithContext(datascope.WithDataScopes(ctx, roles))

		if cfg.Logger != nil {
			cfg.Logger.Debug("Data scopes loaded",
				zap.Int("role_count", len(roles)),
				zap.String("user_id", GetJWTUserID(c)))
		}

		c.Next()
	}
}

func (cfg DataScopeMiddlewareConfig) skips(path string) bool {
	if slices.Contains(cfg.SkipPaths, path) {
		return true
	}
	return slices.ContainsFunc(cfg.SkipPathPrefixes, func(prefix string) bool {
		return strings.HasPrefix(path, prefix)
	})
}

// parseRoleIDs drops malformed entries rather than failing the request.
func parseRoleIDs(raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// loadTenantRoles fetches the roles and hydrates their permissions and
// scopes, discarding any role that belongs to a different tenant than
// the token claims.
func (cfg DataScopeMiddlewareConfig) loadTenantRoles(c *gin.Context, roleIDs []uuid.UUID, tenantID uuid.UUID) ([]identity.Role, error) {
	ctx := c.Request.Context()
	found, err := cfg.RoleRepository.FindByIDs(ctx, roleIDs)
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Error("Failed to load roles for data scope",
				zap.Error(err),
				zap.String("tenant_id", tenantID.String()))
		}
		return nil, err
	}

	roles := make([]identity.Role, 0, len(found))
	for _, role := range found {
		if role == nil || role.TenantID != tenantID {
			continue
		}
		if err := cfg.RoleRepository.LoadPermissionsAndDataScopes(ctx, role); err != nil && cfg.Logger != nil {
			cfg.Logger.Warn("Failed to load data scopes for role",
				zap.Error(err),
				zap.String("role_id", role.ID.String()))
		}
		roles = append(roles, *role)
	}
	return roles, nil
}

// GetDataScopeFilter returns the filter stored by DataScopeMiddleware,
// or nil when the request carried no scoped roles.
func GetDataScopeFilter(c *gin.Context) *datascope.Filter {
	if v, ok := c.Get(DataScopeFilterKey); ok {
		if f, ok := v.(*datascope.Filter); ok {
			return f
		}
	}
	return nil
}

// GetUserRoles returns the caller's tenant roles loaded by DataScopeMiddleware.
func GetUserRoles(c *gin.Context) []identity.Role {
	if v, ok := c.Get(UserRolesKey); ok {
		if r, ok := v.([]identity.Role); ok {
			return r
		}
	}
	return nil
}

// RequireDataScope guards a route behind a minimum scope level for a
// resource, for endpoints like exports that only make sense with broad
// visibility.
func RequireDataScope(resource string, minScopeType identity.DataScopeType, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := GetDataScopeFilter(c)
		if filter == nil {
			// No filter loaded means the caller is unrestricted.
			c.Next()
			return
		}

		actual := filter.GetScopeType(resource)
		if !meetsMinimumScope(actual, minScopeType) {
			if logger != nil {
				logger.Warn("Insufficient data scope",
					zap.String("resource", resource),
					zap.String("required", string(minScopeType)),
					zap.String("actual", string(actual)),
					zap.String("user_id", GetJWTUserID(c)))
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INSUFFICIENT_DATA_SCOPE",
					"message": "You don't have sufficient data access for this operation",
				},
			})
			return
		}

		c.Next()
	}
}

func meetsMinimumScope(actual, min identity.DataScopeType) bool {
	return scopeRank(actual) >= scopeRank(min)
}

// scopeRank orders scope types from narrowest to broadest.
func scopeRank(t identity.DataScopeType) int {
	switch t {
	case identity.DataScopeSelf:
		return 1
	case identity.DataScopeCustom:
		return 2
	case identity.DataScopeAll:
		return 3
	default:
		return 0
	}
}
