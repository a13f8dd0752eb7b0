package identity

import (
	"context"
	"time"

	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoleService manages tenant roles: the permission sets agents carry
// ("call:answer", "ticket:manage") and the data scopes that limit which
// records a role sees.
type RoleService struct {
	roleRepo identity.RoleRepository
	userRepo identity.UserRepository
	logger   *zap.Logger
}

// NewRoleService creates a new role service
func NewRoleService(
	roleRepo identity.RoleRepository,
	userRepo identity.UserRepository,
	logger *zap.Logger,
) *RoleService {
	return &RoleService{
		roleRepo: roleRepo,
		userRepo: userRepo,
		logger:   logger,
	}
}

// DataScopeInput describes one record-visibility rule on a role.
type DataScopeInput struct {
	Resource string // "call", "ticket", "client"
	Scope    string // "all", "self" or "custom"
	Field    string // column the scope filters on, e.g. "assigned_to"
	Values   []string
}

// CreateRoleInput contains input for creating a role
type CreateRoleInput struct {
	TenantID    uuid.UUID
	Code        string
	Name        string
	Description string
	Permissions []string // permission codes, e.g. "call:answer"
	DataScopes  []DataScopeInput
	SortOrder   int
}

// UpdateRoleInput contains input for updating a role
type UpdateRoleInput struct {
	ID          uuid.UUID
	Name        *string
	Description *string
	SortOrder   *int
}

// DataScopeDTO mirrors a role's record-visibility rule in responses.
type DataScopeDTO struct {
	Resource string   `json:"resource"`
	Scope    string   `json:"scope"`
	Field    string   `json:"field,omitempty"`
	Values   []string `json:"values,omitempty"`
}

// RoleDTO represents role data transfer object
type RoleDTO struct {
	ID           uuid.UUID      `json:"id"`
	TenantID     uuid.UUID      `json:"tenant_id"`
	Code         string         `json:"code"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	IsSystemRole bool           `json:"is_system_role"`
	IsEnabled    bool           `json:"is_enabled"`
	SortOrder    int            `json:"sort_order"`
	Permissions  []string       `json:"permissions"`
	DataScopes   []DataScopeDTO `json:"data_scopes"`
	UserCount    int64          `json:"user_count,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// RoleListResult represents paginated role list result
type RoleListResult struct {
	Roles      []RoleDTO `json:"roles"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

// Create creates a new role with its permissions and data scopes
func (s *RoleService) Create(ctx context.Context, input CreateRoleInput) (*RoleDTO, error) {
	s.logger.Info("Creating role",
		zap.String("code", input.Code),
		zap.String("tenant_id", input.TenantID.String()))

	exists, err := s.roleRepo.ExistsByCode(ctx, input.TenantID, input.Code)
	if err != nil {
		s.logger.Error("Failed to check role code existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check role code availability")
	}
	if exists {
		return nil, shared.NewDomainError("ROLE_CODE_EXISTS", "Role code already exists")
	}

	role, err := identity.NewRole(input.TenantID, input.Code, input.Name)
	if err != nil {
		return nil, err
	}

	if input.Description != "" {
		role.SetDescription(input.Description)
	}
	if input.SortOrder != 0 {
		role.SetSortOrder(input.SortOrder)
	}

	for _, permCode := range input.Permissions {
		if err := role.GrantPermissionByCode(permCode); err != nil {
			// A duplicate code in the request is not an error
			if domainErr, ok := err.(*shared.DomainError); ok && domainErr.Code == "PERMISSION_ALREADY_GRANTED" {
				continue
			}
			return nil, err
		}
	}

	scopes, err := buildDataScopes(input.DataScopes)
	if err != nil {
		return nil, err
	}
	if len(scopes) > 0 {
		if err := role.SetDataScopes(scopes); err != nil {
			return nil, err
		}
	}

	if err := s.roleRepo.Create(ctx, role); err != nil {
		s.logger.Error("Failed to create role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create role")
	}

	// Permissions and scopes live in join tables; if either write fails
	// the role row is rolled back so a half-built role never surfaces.
	if len(role.Permissions) > 0 {
		if err := s.roleRepo.SavePermissions(ctx, role); err != nil {
			s.logger.Error("Failed to save role permissions", zap.Error(err))
			_ = s.roleRepo.Delete(ctx, role.ID)
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save role permissions")
		}
	}
	if len(role.DataScopes) > 0 {
		if err := s.roleRepo.SaveDataScopes(ctx, role); err != nil {
			s.logger.Error("Failed to save role data scopes", zap.Error(err))
			_ = s.roleRepo.Delete(ctx, role.ID)
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save role data scopes")
		}
	}

	s.logger.Info("Role created",
		zap.String("role_id", role.ID.String()),
		zap.String("code", role.Code),
		zap.Int("permissions", len(role.Permissions)),
		zap.Int("data_scopes", len(role.DataScopes)))

	return toRoleDTO(role), nil
}

// GetByID retrieves a role by ID
func (s *RoleService) GetByID(ctx context.Context, id uuid.UUID) (*RoleDTO, error) {
	role, err := s.findRole(ctx, id)
	if err != nil {
		return nil, err
	}
	s.loadDetails(ctx, role)

	dto := toRoleDTO(role)
	s.attachUserCount(ctx, dto, role.ID)
	return dto, nil
}

// GetByCode retrieves a role by code
func (s *RoleService) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*RoleDTO, error) {
	role, err := s.roleRepo.FindByCode(ctx, tenantID, code)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("ROLE_NOT_FOUND", "Role not found")
		}
		s.logger.Error("Failed to find role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find role")
	}
	s.loadDetails(ctx, role)

	dto := toRoleDTO(role)
	s.attachUserCount(ctx, dto, role.ID)
	return dto, nil
}

// List retrieves a paginated list of roles
func (s *RoleService) List(ctx context.Context, tenantID uuid.UUID, filter *identity.RoleFilter) (*RoleListResult, error) {
	roles, err := s.roleRepo.FindAll(ctx, tenantID, filter)
	if err != nil {
		s.logger.Error("Failed to list roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list roles")
	}

	total, err := s.roleRepo.Count(ctx, tenantID, filter)
	if err != nil {
		s.logger.Error("Failed to count roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count roles")
	}

	pageSize := 20
	page := 1
	if filter != nil {
		if filter.Limit > 0 {
			pageSize = filter.Limit
		}
		if filter.Page > 0 {
			page = filter.Page
		}
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	roleDTOs := make([]RoleDTO, len(roles))
	for i, role := range roles {
		s.loadDetails(ctx, role)
		dto := toRoleDTO(role)
		s.attachUserCount(ctx, dto, role.ID)
		roleDTOs[i] = *dto
	}

	return &RoleListResult{
		Roles:      roleDTOs,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Update updates a role's name, description or ordering
func (s *RoleService) Update(ctx context.Context, input UpdateRoleInput) (*RoleDTO, error) {
	role, err := s.findRole(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if err := role.SetName(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Description != nil {
		role.SetDescription(*input.Description)
	}
	if input.SortOrder != nil {
		role.SetSortOrder(*input.SortOrder)
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		s.logger.Error("Failed to update role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update role")
	}
	s.loadDetails(ctx, role)

	s.logger.Info("Role updated", zap.String("role_id", input.ID.String()))
	return toRoleDTO(role), nil
}

// Delete deletes a custom role that no user holds
func (s *RoleService) Delete(ctx context.Context, id uuid.UUID) error {
	role, err := s.findRole(ctx, id)
	if err != nil {
		return err
	}

	if !role.CanDelete() {
		return shared.NewDomainError("CANNOT_DELETE_SYSTEM_ROLE", "System roles cannot be deleted")
	}

	userCount, err := s.roleRepo.CountUsersWithRole(ctx, id)
	if err != nil {
		s.logger.Error("Failed to count users with role", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to check role usage")
	}
	if userCount > 0 {
		return shared.NewDomainError("ROLE_IN_USE", "Cannot delete role that is assigned to users")
	}

	if err := s.roleRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete role", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete role")
	}

	s.logger.Info("Role deleted", zap.String("role_id", id.String()))
	return nil
}

// Enable enables a role
func (s *RoleService) Enable(ctx context.Context, id uuid.UUID) (*RoleDTO, error) {
	return s.setEnabled(ctx, id, true)
}

// Disable disables a role
func (s *RoleService) Disable(ctx context.Context, id uuid.UUID) (*RoleDTO, error) {
	return s.setEnabled(ctx, id, false)
}

func (s *RoleService) setEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*RoleDTO, error) {
	role, err := s.findRole(ctx, id)
	if err != nil {
		return nil, err
	}

	if enabled {
		err = role.Enable()
	} else {
		err = role.Disable()
	}
	if err != nil {
		return nil, err
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		s.logger.Error("Failed to change role state", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to change role state")
	}
	s.loadDetails(ctx, role)

	s.logger.Info("Role state changed",
		zap.String("role_id", id.String()),
		zap.Bool("enabled", enabled))
	return toRoleDTO(role), nil
}

// SetPermissions replaces the role's permission set
func (s *RoleService) SetPermissions(ctx context.Context, roleID uuid.UUID, permissionCodes []string) (*RoleDTO, error) {
	role, err := s.findRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	permissions := make([]identity.Permission, 0, len(permissionCodes))
	for _, code := range permissionCodes {
		perm, err := identity.NewPermissionFromCode(code)
		if err != nil {
			return nil, err
		}
		permissions = append(permissions, *perm)
	}

	if err := role.SetPermissions(permissions); err != nil {
		return nil, err
	}

	if err := s.roleRepo.SavePermissions(ctx, role); err != nil {
		s.logger.Error("Failed to save role permissions", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save permissions")
	}
	if err := s.roleRepo.Update(ctx, role); err != nil {
		s.logger.Error("Failed to update role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update role")
	}

	s.logger.Info("Role permissions replaced",
		zap.String("role_id", roleID.String()),
		zap.Int("permission_count", len(permissions)))

	return toRoleDTO(role), nil
}

// SetDataScopes replaces the role's record-visibility rules. An agent
// role scoped to "call"/"self" only sees calls assigned to the agent.
func (s *RoleService) SetDataScopes(ctx context.Context, roleID uuid.UUID, inputs []DataScopeInput) (*RoleDTO, error) {
	role, err := s.findRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	scopes, err := buildDataScopes(inputs)
	if err != nil {
		return nil, err
	}
	if err := role.SetDataScopes(scopes); err != nil {
		return nil, err
	}

	if err := s.roleRepo.SaveDataScopes(ctx, role); err != nil {
		s.logger.Error("Failed to save role data scopes", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save data scopes")
	}
	if err := s.roleRepo.Update(ctx, role); err != nil {
		s.logger.Error("Failed to update role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update role")
	}
	if err := s.roleRepo.LoadPermissions(ctx, role); err != nil {
		s.logger.Error("Failed to load role permissions", zap.Error(err))
	}

	s.logger.Info("Role data scopes replaced",
		zap.String("role_id", roleID.String()),
		zap.Int("scope_count", len(scopes)))

	return toRoleDTO(role), nil
}

// GetAllPermissionCodes returns all available permission codes for a tenant
func (s *RoleService) GetAllPermissionCodes(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	return s.roleRepo.GetAllPermissionCodes(ctx, tenantID)
}

// GetSystemRoles returns the built-in roles for a tenant
func (s *RoleService) GetSystemRoles(ctx context.Context, tenantID uuid.UUID) ([]RoleDTO, error) {
	roles, err := s.roleRepo.FindSystemRoles(ctx, tenantID)
	if err != nil {
		s.logger.Error("Failed to find system roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find system roles")
	}

	roleDTOs := make([]RoleDTO, len(roles))
	for i, role := range roles {
		s.loadDetails(ctx, role)
		roleDTOs[i] = *toRoleDTO(role)
	}
	return roleDTOs, nil
}

// Count returns the total number of roles for a tenant
func (s *RoleService) Count(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return s.roleRepo.Count(ctx, tenantID, nil)
}

// findRole loads a role by ID and maps repository errors to domain codes.
func (s *RoleService) findRole(ctx context.Context, id uuid.UUID) (*identity.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("ROLE_NOT_FOUND", "Role not found")
		}
		s.logger.Error("Failed to find role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find role")
	}
	return role, nil
}

// loadDetails fills in permissions and data scopes. A load failure is
// logged but does not fail the request; the role core is still usable.
func (s *RoleService) loadDetails(ctx context.Context, role *identity.Role) {
	if err := s.roleRepo.LoadPermissionsAndDataScopes(ctx, role); err != nil {
		s.logger.Error("Failed to load role details",
			zap.String("role_id", role.ID.String()),
			zap.Error(err))
	}
}

func (s *RoleService) attachUserCount(ctx context.Context, dto *RoleDTO, roleID uuid.UUID) {
	userCount, err := s.roleRepo.CountUsersWithRole(ctx, roleID)
	if err == nil {
		dto.UserCount = userCount
	}
}

func buildDataScopes(inputs []DataScopeInput) ([]identity.DataScope, error) {
	scopes := make([]identity.DataScope, 0, len(inputs))
	for _, in := range inputs {
		var ds *identity.DataScope
		var err error
		if identity.DataScopeType(in.Scope) == identity.DataScopeCustom {
			ds, err = identity.NewCustomDataScope(in.Resource, in.Values)
		} else {
			ds, err = identity.NewDataScope(in.Resource, identity.DataScopeType(in.Scope))
		}
		if err != nil {
			return nil, err
		}
		if in.Field != "" {
			ds.ScopeField = in.Field
		}
		scopes = append(scopes, *ds)
	}
	return scopes, nil
}

// toRoleDTO converts domain Role to RoleDTO
func toRoleDTO(role *identity.Role) *RoleDTO {
	permissions := make([]string, len(role.Permissions))
	for i, perm := range role.Permissions {
		permissions[i] = perm.Code
	}

	scopes := make([]DataScopeDTO, len(role.DataScopes))
	for i, ds := range role.DataScopes {
		scopes[i] = DataScopeDTO{
			Resource: ds.Resource,
			Scope:    string(ds.ScopeType),
			Field:    ds.ScopeField,
			Values:   ds.ScopeValues,
		}
	}

	return &RoleDTO{
		ID:           role.ID,
		TenantID:     role.TenantID,
		Code:         role.Code,
		Name:         role.Name,
		Description:  role.Description,
		IsSystemRole: role.IsSystemRole,
		IsEnabled:    role.IsEnabled,
		SortOrder:    role.SortOrder,
		Permissions:  permissions,
		DataScopes:   scopes,
		CreatedAt:    role.CreatedAt,
		UpdatedAt:    role.UpdatedAt,
	}
}
