package identity

import (
	"context"
	"testing"

	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRoleService(roleRepo *MockRoleRepository, userRepo *MockUserRepository) *RoleService {
	return NewRoleService(roleRepo, userRepo, zap.NewNop())
}

func TestRoleService_Create_WithPermissionsAndScopes(t *testing.T) {
	roleRepo := new(MockRoleRepository)
	userRepo := new(MockUserRepository)
	svc := newTestRoleService(roleRepo, userRepo)

	tenantID := uuid.New()

	roleRepo.On("ExistsByCode", mock.Anything, tenantID, "agent").Return(false, nil)
	roleRepo.On("Create", mock.Anything, mock.AnythingOfType("*identity.Role")).Return(nil)
	roleRepo.On("SavePermissions", mock.Anything, mock.AnythingOfType("*identity.Role")).Return(nil)
	roleRepo.On("SaveDataScopes", mock.Anything, mock.AnythingOfType("*identity.Role")).Return(nil)

	dto, err := svc.Create(context.Background(), CreateRoleInput{
		TenantID:    tenantID,
		Code:        "agent",
		Name:        "Support Agent",
		Permissions: []string{"call:answer", "ticket:read"},
		DataScopes: []DataScopeInput{
			{Resource: "call", Scope: "self", Field: "assigned_to"},
			{Resource: "ticket", Scope: "all"},
		},
	})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"call:answer", "ticket:read"}, dto.Permissions)
	require.Len(t, dto.DataScopes, 2)
	assert.Equal(t, "call", dto.DataScopes[0].Resource)
	assert.Equal(t, "self", dto.DataScopes[0].Scope)
	assert.Equal(t, "assigned_to", dto.DataScopes[0].Field)
	roleRepo.AssertExpectations(t)
}

func TestRoleService_Create_DuplicateCode(t *testing.T) {
	roleRepo := new(MockRoleRepository)
	userRepo := new(MockUserRepository)
	svc := newTestRoleService(roleRepo, userRepo)

	tenantID := uuid.New()
	roleRepo.On("ExistsByCode", mock.Anything, tenantID, "agent").Return(true, nil)

	_, err := svc.Create(context.Background(), CreateRoleInput{
		TenantID: tenantID,
		Code:     "agent",
		Name:     "Support Agent",
	})

	require.Error(t, err)
	domainErr, ok := err.(*shared.DomainError)
	require.True(t, ok)
	assert.Equal(t, "ROLE_CODE_EXISTS", domainErr.Code)
	roleRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRoleService_Create_RollsBackOnScopeFailure(t *testing.T) {
	roleRepo := new(MockRoleRepository)
	userRepo := new(MockUserRepository)
	svc := newTestRoleService(roleRepo, userRepo)

	tenantID := uuid.New()

	var createdID uuid.UUID
	roleRepo.On("ExistsByCode", mock.Anything, tenantID, "viewer").Return(false, nil)
	roleRepo.On("Create", mock.Anything, mock.AnythingOfType("*identity.Role")).
		Run(func(args mock.Arguments) {
			createdID = args.Get(1).(*identity.Role).ID
		}).Return(nil)
	roleRepo.On("SaveDataScopes", mock.Anything, mock.AnythingOfType("*identity.Role")).
		Return(assert.AnError)
	roleRepo.On("Delete", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(nil)

	_, err := svc.Create(context.Background(), CreateRoleInput{
		TenantID:   tenantID,
		Code:       "viewer",
		Name:       "Viewer",
		DataScopes: []DataScopeInput{{Resource: "ticket", Scope: "self"}},
	})

	require.Error(t, err)
	roleRepo.AssertCalled(t, "Delete", mock.Anything, createdID)
}

func TestRoleService_GetByID_LoadsScopes(t *testing.T) {
	roleRepo := new(MockRoleRepository)
	userRepo := new(MockUserRepository)
	svc := newTestRoleService(roleRepo, userRepo)

	tenantID := uuid.New()
	role, err := identity.NewRole(tenantID, "supervisor", "Supervisor")
	require.NoError(t, err)

	roleRepo.On("FindByID", mock.Anything, role.ID).Return(role, nil)
	roleRepo.On("LoadPermissionsAndDataScopes", mock.Anything, role).
		Run(func(args mock.Arguments) {
			r := args.Get(1).(*identity.Role)
			ds, dsErr := identity.NewDataScope("call", identity.DataScopeAll)
			require.NoError(t, dsErr)
			r.DataScopes = []identity.DataScope{*ds}
		}).Return(nil)
	roleRepo.On("CountUsersWithRole", mock.Anything, role.ID).Return(int64(4), nil)

	dto, err := svc.GetByID(context.Background(), role.ID)

	require.NoError(t, err)
	assert.Equal(t, int64(4), dto.UserCount)
	require.Len(t, dto.DataScopes, 1)
	assert.Equal(t, "all", dto.DataScopes[0].Scope)
}

func TestRoleService_SetDataScopes_ReplacesRules(t *testing.T) {
	roleRepo := new(MockRoleRepository)
	userRepo := new(MockUserRepository)
	svc := newTestRoleService(roleRepo, userRepo)

	tenantID := uuid.New()
	role, err := identity.NewRole(tenantID, "agent", "Support Agent")
	require.NoError(t, err)
	existing, err := identity.NewDataScope("ticket", identity.DataScopeAll)
	require.NoError(t, err)
	require.NoError(t, role.SetDataScopes([]identity.DataScope{*existing}))

	roleRepo.On("FindByID", mock.Anything, role.ID).Return(role, nil)
	roleRepo.On("SaveDataScopes", mock.Anything, role).Return(nil)
	roleRepo.On("Update", mock.Anything, role).Return(nil)
	roleRepo.On("LoadPermissions", mock.Anything, role).Return(nil)

	dto, err := svc.SetDataScopes(context.Background(), role.ID, []DataScopeInput{
		{Resource: "call", Scope: "self", Field: "assigned_to"},
	})

	require.NoError(t, err)
	require.Len(t, dto.DataScopes, 1)
	assert.Equal(t, "call", dto.DataScopes[0].Resource)
	assert.Equal(t, "self", dto.DataScopes[0].Scope)
	roleRepo.AssertExpectations(t)
}

func TestRoleService_SetDataScopes_InvalidScope(t *testing.T) {
	roleRepo := new(MockRoleRepository)
	userRepo := new(MockUserRepository)
	svc := newTestRoleService(roleRepo, userRepo)

	tenantID := uuid.New()
	role, err := identity.NewRole(tenantID, "agent", "Support Agent")
	require.NoError(t, err)

	roleRepo.On("FindByID", mock.Anything, role.ID).Return(role, nil)

	_, err = svc.SetDataScopes(context.Background(), role.ID, []DataScopeInput{
		{Resource: "call", Scope: "everything"},
	})

	require.Error(t, err)
	roleRepo.AssertNotCalled(t, "SaveDataScopes", mock.Anything, mock.Anything)
}

func TestRoleService_Delete_SystemRoleRejected(t *testing.T) {
	roleRepo := new(MockRoleRepository)
	userRepo := new(MockUserRepository)
	svc := newTestRoleService(roleRepo, userRepo)

	tenantID := uuid.New()
	role, err := identity.NewRole(tenantID, "tenant_admin", "Tenant Admin")
	require.NoError(t, err)
	role.IsSystemRole = true

	roleRepo.On("FindByID", mock.Anything, role.ID).Return(role, nil)

	err = svc.Delete(context.Background(), role.ID)

	require.Error(t, err)
	domainErr, ok := err.(*shared.DomainError)
	require.True(t, ok)
	assert.Equal(t, "CANNOT_DELETE_SYSTEM_ROLE", domainErr.Code)
}

func TestRoleService_Delete_RoleInUse(t *testing.T) {
	roleRepo := new(MockRoleRepository)
	userRepo := new(MockUserRepository)
	svc := newTestRoleService(roleRepo, userRepo)

	tenantID := uuid.New()
	role, err := identity.NewRole(tenantID, "agent", "Support Agent")
	require.NoError(t, err)

	roleRepo.On("FindByID", mock.Anything, role.ID).Return(role, nil)
	roleRepo.On("CountUsersWithRole", mock.Anything, role.ID).Return(int64(2), nil)

	err = svc.Delete(context.Background(), role.ID)

	require.Error(t, err)
	domainErr, ok := err.(*shared.DomainError)
	require.True(t, ok)
	assert.Equal(t, "ROLE_IN_USE", domainErr.Code)
	roleRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRoleService_EnableDisable(t *testing.T) {
	roleRepo := new(MockRoleRepository)
	userRepo := new(MockUserRepository)
	svc := newTestRoleService(roleRepo, userRepo)

	tenantID := uuid.New()
	role, err := identity.NewRole(tenantID, "agent", "Support Agent")
	require.NoError(t, err)

	roleRepo.On("FindByID", mock.Anything, role.ID).Return(role, nil)
	roleRepo.On("Update", mock.Anything, role).Return(nil)
	roleRepo.On("LoadPermissionsAndDataScopes", mock.Anything, role).Return(nil)

	dto, err := svc.Disable(context.Background(), role.ID)
	require.NoError(t, err)
	assert.False(t, dto.IsEnabled)

	dto, err = svc.Enable(context.Background(), role.ID)
	require.NoError(t, err)
	assert.True(t, dto.IsEnabled)
}
