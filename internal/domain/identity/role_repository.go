package identity

import (
	"context"

	"github.com/google/uuid"
)

// RoleFilter narrows role queries. Keyword matches against code and
// name; nil pointer fields mean "don't filter".
type RoleFilter struct {
	Keyword      string
	IsEnabled    *bool
	IsSystemRole *bool

	Page  int
	Limit int
}

// Offset converts page-based pagination to a row offset.
func (f RoleFilter) Offset() int {
	if f.Page <= 0 || f.Limit <= 0 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// RoleRepository persists roles together with their permissions and
// data scopes. Permissions and data scopes live in child tables and are
// loaded on demand; Save* methods replace the full child set.
type RoleRepository interface {
	Create(ctx context.Context, role *Role) error
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, id uuid.UUID) error

	FindByID(ctx context.Context, id uuid.UUID) (*Role, error)
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Role, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Role, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter *RoleFilter) ([]*Role, error)
	FindSystemRoles(ctx context.Context, tenantID uuid.UUID) ([]*Role, error)
	Count(ctx context.Context, tenantID uuid.UUID, filter *RoleFilter) (int64, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)

	SavePermissions(ctx context.Context, role *Role) error
	LoadPermissions(ctx context.Context, role *Role) error
	SaveDataScopes(ctx context.Context, role *Role) error
	LoadDataScopes(ctx context.Context, role *Role) error
	LoadPermissionsAndDataScopes(ctx context.Context, role *Role) error

	// Role-to-user lookups guard deletion: a role still assigned to
	// users must not be removed.
	FindUsersWithRole(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error)
	CountUsersWithRole(ctx context.Context, roleID uuid.UUID) (int64, error)

	// GetAllPermissionCodes returns the distinct permission codes in
	// use across a tenant's roles.
	GetAllPermissionCodes(ctx context.Context, tenantID uuid.UUID) ([]string, error)
}
