package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRoleRepository implements identity.RoleRepository on GORM.
type GormRoleRepository struct {
	db *gorm.DB
}

// NewGormRoleRepository creates a new GormRoleRepository
func NewGormRoleRepository(db *gorm.DB) *GormRoleRepository {
	return &GormRoleRepository{db: db}
}

func (r *GormRoleRepository) Create(ctx context.Context, role *identity.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *GormRoleRepository) Update(ctx context.Context, role *identity.Role) error {
	result := r.db.WithContext(ctx).Save(role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes the role together with its permission and scope rows.
func (r *GormRoleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&identity.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&identity.RoleDataScope{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&identity.Role{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *GormRoleRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Role, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByCode matches the code case-insensitively within the tenant.
func (r *GormRoleRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*identity.Role, error) {
	return r.findOne(r.db.WithContext(ctx).
		Where("tenant_id = ? AND UPPER(code) = ?", tenantID, strings.ToUpper(code)))
}

func (r *GormRoleRepository) findOne(query *gorm.DB) (*identity.Role, error) {
	var role identity.Role
	if err := query.First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (r *GormRoleRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter *identity.RoleFilter) ([]*identity.Role, error) {
	query := r.filtered(ctx, tenantID, filter).Order("sort_order ASC, name ASC")
	if filter != nil && filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset())
	}

	var roles []*identity.Role
	if err := query.Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *GormRoleRepository) Count(ctx context.Context, tenantID uuid.UUID, filter *identity.RoleFilter) (int64, error) {
	var count int64
	if err := r.filtered(ctx, tenantID, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormRoleRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	return r.exists(r.db.WithContext(ctx).
		Model(&identity.Role{}).
		Where("tenant_id = ? AND UPPER(code) = ?", tenantID, strings.ToUpper(code)))
}

func (r *GormRoleRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(r.db.WithContext(ctx).
		Model(&identity.Role{}).
		Where("id = ?", id))
}

func (r *GormRoleRepository) exists(query *gorm.DB) (bool, error) {
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRoleRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*identity.Role, error) {
	if len(ids) == 0 {
		return []*identity.Role{}, nil
	}

	var roles []*identity.Role
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *GormRoleRepository) FindSystemRoles(ctx context.Context, tenantID uuid.UUID) ([]*identity.Role, error) {
	var roles []*identity.Role
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_system_role = ?", tenantID, true).
		Order("sort_order ASC, name ASC").
		Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// SavePermissions replaces the role's permission rows with the current
// in-memory set.
func (r *GormRoleRepository) SavePermissions(ctx context.Context, role *identity.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", role.ID).Delete(&identity.RolePermission{}).Error; err != nil {
			return err
		}
		rows := permissionRows(role)
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func permissionRows(role *identity.Role) []identity.RolePermission {
	rows := make([]identity.RolePermission, len(role.Permissions))
	for i, perm := range role.Permissions {
		rows[i] = identity.RolePermission{
			RoleID:      role.ID,
			TenantID:    role.TenantID,
			Code:        perm.Code,
			Resource:    perm.Resource,
			Action:      perm.Action,
			Description: perm.Description,
			CreatedAt:   time.Now(),
		}
	}
	return rows
}

func (r *GormRoleRepository) LoadPermissions(ctx context.Context, role *identity.Role) error {
	var rows []identity.RolePermission
	if err := r.db.WithContext(ctx).Where("role_id = ?", role.ID).Find(&rows).Error; err != nil {
		return err
	}

	role.Permissions = make([]identity.Permission, len(rows))
	for i, row := range rows {
		role.Permissions[i] = identity.Permission{
			Code:        row.Code,
			Resource:    row.Resource,
			Action:      row.Action,
			Description: row.Description,
		}
	}
	return nil
}

// SaveDataScopes replaces the role's scope rows with the current
// in-memory set. Scope values are stored as a JSON array.
func (r *GormRoleRepository) SaveDataScopes(ctx context.Context, role *identity.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", role.ID).Delete(&identity.RoleDataScope{}).Error; err != nil {
			return err
		}
		rows := dataScopeRows(role)
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func dataScopeRows(role *identity.Role) []identity.RoleDataScope {
	rows := make([]identity.RoleDataScope, len(role.DataScopes))
	for i, scope := range role.DataScopes {
		values := ""
		if len(scope.ScopeValues) > 0 {
			encoded, _ := json.Marshal(scope.ScopeValues)
			values = string(encoded)
		}
		rows[i] = identity.RoleDataScope{
			RoleID:      role.ID,
			TenantID:    role.TenantID,
			Resource:    scope.Resource,
			ScopeType:   scope.ScopeType,
			ScopeValues: values,
			Description: scope.Description,
			CreatedAt:   time.Now(),
		}
	}
	return rows
}

func (r *GormRoleRepository) LoadDataScopes(ctx context.Context, role *identity.Role) error {
	var rows []identity.RoleDataScope
	if err := r.db.WithContext(ctx).Where("role_id = ?", role.ID).Find(&rows).Error; err != nil {
		return err
	}

	role.DataScopes = make([]identity.DataScope, len(rows))
	for i, row := range rows {
		var values []string
		if row.ScopeValues != "" {
			_ = json.Unmarshal([]byte(row.ScopeValues), &values)
		}
		role.DataScopes[i] = identity.DataScope{
			Resource:    row.Resource,
			ScopeType:   row.ScopeType,
			ScopeValues: values,
			Description: row.Description,
		}
	}
	return nil
}

func (r *GormRoleRepository) LoadPermissionsAndDataScopes(ctx context.Context, role *identity.Role) error {
	if err := r.LoadPermissions(ctx, role); err != nil {
		return err
	}
	return r.LoadDataScopes(ctx, role)
}

func (r *GormRoleRepository) FindUsersWithRole(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	var userIDs []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&identity.UserRole{}).
		Where("role_id = ?", roleID).
		Pluck("user_id", &userIDs).Error; err != nil {
		return nil, err
	}
	return userIDs, nil
}

func (r *GormRoleRepository) CountUsersWithRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&identity.UserRole{}).
		Where("role_id = ?", roleID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormRoleRepository) GetAllPermissionCodes(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&identity.RolePermission{}).
		Where("tenant_id = ?", tenantID).
		Distinct("code").
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// filtered builds the tenant-scoped query with the optional filter applied.
func (r *GormRoleRepository) filtered(ctx context.Context, tenantID uuid.UUID, filter *identity.RoleFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&identity.Role{}).Where("tenant_id = ?", tenantID)
	if filter == nil {
		return query
	}

	if filter.Keyword != "" {
		pattern := "%" + filter.Keyword + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ?", pattern, pattern)
	}
	if filter.IsEnabled != nil {
		query = query.Where("is_enabled = ?", *filter.IsEnabled)
	}
	if filter.IsSystemRole != nil {
		query = query.Where("is_system_role = ?", *filter.IsSystemRole)
	}
	return query
}

var _ identity.RoleRepository = (*GormRoleRepository)(nil)
