package identity

import (
	"github.com/echodesk/backend/internal/domain/shared"
)

const AggregateTypeRole = "Role"

// Role domain event types
const (
	EventTypeRoleCreated           = "RoleCreated"
	EventTypeRoleUpdated           = "RoleUpdated"
	EventTypeRoleEnabled           = "RoleEnabled"
	EventTypeRoleDisabled          = "RoleDisabled"
	EventTypeRolePermissionGranted = "RolePermissionGranted"
	EventTypeRolePermissionRevoked = "RolePermissionRevoked"
	EventTypeRoleDataScopeChanged  = "RoleDataScopeChanged"
)

// roleEvent builds the shared envelope for an event about the given role.
func roleEvent(eventType string, role *Role) shared.BaseDomainEvent {
	return shared.NewBaseDomainEvent(eventType, AggregateTypeRole, role.TenantID, role.ID)
}

// RoleCreatedEvent is recorded when a new role is created.
type RoleCreatedEvent struct {
	shared.BaseDomainEvent
	Code         string `json:"code"`
	Name         string `json:"name"`
	IsSystemRole bool   `json:"is_system_role"`
}

func NewRoleCreatedEvent(role *Role) *RoleCreatedEvent {
	return &RoleCreatedEvent{
		BaseDomainEvent: roleEvent(EventTypeRoleCreated, role),
		Code:            role.Code,
		Name:            role.Name,
		IsSystemRole:    role.IsSystemRole,
	}
}

// RoleUpdatedEvent is recorded when a role's name or description changes.
type RoleUpdatedEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
	Name string `json:"name"`
}

func NewRoleUpdatedEvent(role *Role) *RoleUpdatedEvent {
	return &RoleUpdatedEvent{
		BaseDomainEvent: roleEvent(EventTypeRoleUpdated, role),
		Code:            role.Code,
		Name:            role.Name,
	}
}

// RoleEnabledEvent is recorded when a disabled role is re-enabled.
type RoleEnabledEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
}

func NewRoleEnabledEvent(role *Role) *RoleEnabledEvent {
	return &RoleEnabledEvent{
		BaseDomainEvent: roleEvent(EventTypeRoleEnabled, role),
		Code:            role.Code,
	}
}

// RoleDisabledEvent is recorded when a role is disabled.
type RoleDisabledEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
}

func NewRoleDisabledEvent(role *Role) *RoleDisabledEvent {
	return &RoleDisabledEvent{
		BaseDomainEvent: roleEvent(EventTypeRoleDisabled, role),
		Code:            role.Code,
	}
}

// RolePermissionGrantedEvent is recorded when a permission is granted.
type RolePermissionGrantedEvent struct {
	shared.BaseDomainEvent
	RoleCode           string `json:"role_code"`
	PermissionCode     string `json:"permission_code"`
	PermissionResource string `json:"permission_resource"`
	PermissionAction   string `json:"permission_action"`
}

func NewRolePermissionGrantedEvent(role *Role, perm Permission) *RolePermissionGrantedEvent {
	return &RolePermissionGrantedEvent{
		BaseDomainEvent:    roleEvent(EventTypeRolePermissionGranted, role),
		RoleCode:           role.Code,
		PermissionCode:     perm.Code,
		PermissionResource: perm.Resource,
		PermissionAction:   perm.Action,
	}
}

// RolePermissionRevokedEvent is recorded when a permission is revoked.
type RolePermissionRevokedEvent struct {
	shared.BaseDomainEvent
	RoleCode           string `json:"role_code"`
	PermissionCode     string `json:"permission_code"`
	PermissionResource string `json:"permission_resource"`
	PermissionAction   string `json:"permission_action"`
}

func NewRolePermissionRevokedEvent(role *Role, perm Permission) *RolePermissionRevokedEvent {
	return &RolePermissionRevokedEvent{
		BaseDomainEvent:    roleEvent(EventTypeRolePermissionRevoked, role),
		RoleCode:           role.Code,
		PermissionCode:     perm.Code,
		PermissionResource: perm.Resource,
		PermissionAction:   perm.Action,
	}
}

// RoleDataScopeChangedEvent is recorded when a role's data scope for a
// resource is installed or replaced.
type RoleDataScopeChangedEvent struct {
	shared.BaseDomainEvent
	RoleCode  string        `json:"role_code"`
	Resource  string        `json:"resource"`
	ScopeType DataScopeType `json:"scope_type"`
}

func NewRoleDataScopeChangedEvent(role *Role, ds DataScope) *RoleDataScopeChangedEvent {
	return &RoleDataScopeChangedEvent{
		BaseDomainEvent: roleEvent(EventTypeRoleDataScopeChanged, role),
		RoleCode:        role.Code,
		Resource:        ds.Resource,
		ScopeType:       ds.ScopeType,
	}
}
