package identity

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DataScopeType classifies how far a role's data access reaches.
type DataScopeType string

const (
	DataScopeAll    DataScopeType = "all"    // every row in the tenant
	DataScopeSelf   DataScopeType = "self"   // rows created by or assigned to the user
	DataScopeCustom DataScopeType = "custom" // rows matching explicit scope values
)

// Permission is a functional permission value object in resource:action form.
type Permission struct {
	Code        string // e.g. "call:answer"
	Resource    string // e.g. "call"
	Action      string // e.g. "answer"
	Description string
}

// NewPermission builds a Permission from a resource and an action.
func NewPermission(resource, action string) (*Permission, error) {
	if err := validatePermissionToken("resource", resource); err != nil {
		return nil, err
	}
	if err := validatePermissionToken("action", action); err != nil {
		return nil, err
	}

	resource = strings.ToLower(strings.TrimSpace(resource))
	action = strings.ToLower(strings.TrimSpace(action))

	return &Permission{
		Code:     resource + ":" + action,
		Resource: resource,
		Action:   action,
	}, nil
}

// NewPermissionFromCode parses a "resource:action" code into a Permission.
func NewPermissionFromCode(code string) (*Permission, error) {
	resource, action, ok := strings.Cut(code, ":")
	if !ok {
		return nil, shared.NewDomainError("INVALID_PERMISSION_CODE", "Permission code must be in format 'resource:action'")
	}
	return NewPermission(resource, action)
}

func (p Permission) Equals(other Permission) bool {
	return p.Code == other.Code
}

func (p Permission) IsEmpty() bool {
	return p.Code == ""
}

// DataScope is a row-level access rule for one resource.
type DataScope struct {
	Resource    string
	ScopeType   DataScopeType
	ScopeField  string   // column to filter on, e.g. "assigned_to"
	ScopeValues []string // explicit values for custom scopes
	Description string
}

// NewDataScope builds a DataScope for a resource with the given type.
func NewDataScope(resource string, scopeType DataScopeType) (*DataScope, error) {
	if err := validatePermissionToken("resource", resource); err != nil {
		return nil, err
	}
	switch scopeType {
	case DataScopeAll, DataScopeSelf, DataScopeCustom:
	default:
		return nil, shared.NewDomainError("INVALID_DATA_SCOPE_TYPE", "Invalid data scope type")
	}

	return &DataScope{
		Resource:    strings.ToLower(strings.TrimSpace(resource)),
		ScopeType:   scopeType,
		ScopeValues: make([]string, 0),
	}, nil
}

// NewCustomDataScope builds a custom scope restricted to the given values.
func NewCustomDataScope(resource string, scopeValues []string) (*DataScope, error) {
	ds, err := NewDataScope(resource, DataScopeCustom)
	if err != nil {
		return nil, err
	}
	if len(scopeValues) == 0 {
		return nil, shared.NewDomainError("INVALID_SCOPE_VALUES", "Custom data scope must have at least one scope value")
	}

	ds.ScopeValues = slices.Clone(scopeValues)
	return ds, nil
}

// NewCustomDataScopeWithField builds a custom scope filtered on a specific column.
func NewCustomDataScopeWithField(resource, scopeField string, scopeValues []string) (*DataScope, error) {
	ds, err := NewCustomDataScope(resource, scopeValues)
	if err != nil {
		return nil, err
	}

	scopeField = strings.TrimSpace(scopeField)
	if scopeField == "" {
		return nil, shared.NewDomainError("INVALID_SCOPE_FIELD", "Scope field cannot be empty for custom data scope with field")
	}

	ds.ScopeField = scopeField
	return ds, nil
}

func (ds *DataScope) SetDescription(description string) {
	ds.Description = description
}

// Equals compares all fields; scope value order matters.
func (ds DataScope) Equals(other DataScope) bool {
	return ds.Resource == other.Resource &&
		ds.ScopeType == other.ScopeType &&
		ds.ScopeField == other.ScopeField &&
		slices.Equal(ds.ScopeValues, other.ScopeValues)
}

func (ds DataScope) IsEmpty() bool {
	return ds.Resource == ""
}

// Role is the aggregate root for functional permissions and data scopes.
type Role struct {
	shared.TenantAggregateRoot
	Code         string
	Name         string
	Description  string
	IsSystemRole bool // system roles cannot be deleted
	IsEnabled    bool
	SortOrder    int
	Permissions  []Permission `gorm:"-"` // stored in a separate table
	DataScopes   []DataScope  `gorm:"-"` // stored in a separate table
}

// RolePermission is the persisted row for a role's granted permission.
type RolePermission struct {
	RoleID      uuid.UUID
	TenantID    uuid.UUID
	Code        string
	Resource    string
	Action      string
	Description string
	CreatedAt   time.Time
}

// RoleDataScope is the persisted row for a role's data scope.
type RoleDataScope struct {
	RoleID      uuid.UUID
	TenantID    uuid.UUID
	Resource    string
	ScopeType   DataScopeType
	ScopeField  string
	ScopeValues string // JSON array for custom scopes
	Description string
	CreatedAt   time.Time
}

// NewRole creates an enabled, non-system role and records the creation event.
func NewRole(tenantID uuid.UUID, code, name string) (*Role, error) {
	if err := validateRoleCode(code); err != nil {
		return nil, err
	}
	if err := validateRoleName(name); err != nil {
		return nil, err
	}

	role := &Role{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                strings.ToUpper(strings.TrimSpace(code)),
		Name:                strings.TrimSpace(name),
		IsEnabled:           true,
		Permissions:         make([]Permission, 0),
		DataScopes:          make([]DataScope, 0),
	}
	role.AddDomainEvent(NewRoleCreatedEvent(role))
	return role, nil
}

// NewSystemRole creates a role that cannot be deleted.
func NewSystemRole(tenantID uuid.UUID, code, name string) (*Role, error) {
	role, err := NewRole(tenantID, code, name)
	if err != nil {
		return nil, err
	}
	role.IsSystemRole = true
	return role, nil
}

// touch bumps the modification timestamp and the optimistic-lock version.
func (r *Role) touch() {
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}

func (r *Role) SetName(name string) error {
	if err := validateRoleName(name); err != nil {
		return err
	}
	r.Name = strings.TrimSpace(name)
	r.touch()
	return nil
}

func (r *Role) SetDescription(description string) {
	r.Description = description
	r.touch()
}

func (r *Role) SetSortOrder(order int) {
	r.SortOrder = order
	r.touch()
}

func (r *Role) Enable() error {
	if r.IsEnabled {
		return shared.NewDomainError("ALREADY_ENABLED", "Role is already enabled")
	}
	r.IsEnabled = true
	r.touch()
	r.AddDomainEvent(NewRoleEnabledEvent(r))
	return nil
}

func (r *Role) Disable() error {
	if !r.IsEnabled {
		return shared.NewDomainError("ALREADY_DISABLED", "Role is already disabled")
	}
	r.IsEnabled = false
	r.touch()
	r.AddDomainEvent(NewRoleDisabledEvent(r))
	return nil
}

// GrantPermission adds a permission; granting twice is an error.
func (r *Role) GrantPermission(perm Permission) error {
	if perm.IsEmpty() {
		return shared.NewDomainError("INVALID_PERMISSION", "Permission cannot be empty")
	}
	if r.HasPermission(perm.Code) {
		return shared.NewDomainError("PERMISSION_ALREADY_GRANTED", "Role already has this permission")
	}

	r.Permissions = append(r.Permissions, perm)
	r.touch()
	r.AddDomainEvent(NewRolePermissionGrantedEvent(r, perm))
	return nil
}

// GrantPermissionByCode parses a "resource:action" code and grants it.
func (r *Role) GrantPermissionByCode(code string) error {
	perm, err := NewPermissionFromCode(code)
	if err != nil {
		return err
	}
	return r.GrantPermission(*perm)
}

// RevokePermission removes a permission by code.
func (r *Role) RevokePermission(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_PERMISSION_CODE", "Permission code cannot be empty")
	}

	i := slices.IndexFunc(r.Permissions, func(p Permission) bool { return p.Code == code })
	if i < 0 {
		return shared.NewDomainError("PERMISSION_NOT_FOUND", "Role does not have this permission")
	}

	revoked := r.Permissions[i]
	r.Permissions = slices.Delete(r.Permissions, i, i+1)
	r.touch()
	r.AddDomainEvent(NewRolePermissionRevokedEvent(r, revoked))
	return nil
}

// SetPermissions replaces all permissions, dropping duplicates by code.
func (r *Role) SetPermissions(permissions []Permission) error {
	seen := make(map[string]bool, len(permissions))
	unique := make([]Permission, 0, len(permissions))
	for _, p := range permissions {
		if p.IsEmpty() {
			return shared.NewDomainError("INVALID_PERMISSION", "Permission cannot be empty")
		}
		if !seen[p.Code] {
			seen[p.Code] = true
			unique = append(unique, p)
		}
	}

	r.Permissions = unique
	r.touch()
	return nil
}

func (r *Role) HasPermission(code string) bool {
	return slices.ContainsFunc(r.Permissions, func(p Permission) bool { return p.Code == code })
}

func (r *Role) HasPermissionForResource(resource string) bool {
	resource = strings.ToLower(strings.TrimSpace(resource))
	return slices.ContainsFunc(r.Permissions, func(p Permission) bool { return p.Resource == resource })
}

func (r *Role) GetPermissionsForResource(resource string) []Permission {
	resource = strings.ToLower(strings.TrimSpace(resource))
	result := make([]Permission, 0)
	for _, p := range r.Permissions {
		if p.Resource == resource {
			result = append(result, p)
		}
	}
	return result
}

// SetDataScope installs the scope for its resource, replacing any existing one.
func (r *Role) SetDataScope(ds DataScope) error {
	if ds.IsEmpty() {
		return shared.NewDomainError("INVALID_DATA_SCOPE", "Data scope cannot be empty")
	}

	r.DataScopes = slices.DeleteFunc(r.DataScopes, func(s DataScope) bool { return s.Resource == ds.Resource })
	r.DataScopes = append(r.DataScopes, ds)
	r.touch()
	r.AddDomainEvent(NewRoleDataScopeChangedEvent(r, ds))
	return nil
}

// RemoveDataScope drops the scope for a resource.
func (r *Role) RemoveDataScope(resource string) error {
	resource = strings.ToLower(strings.TrimSpace(resource))

	before := len(r.DataScopes)
	r.DataScopes = slices.DeleteFunc(r.DataScopes, func(s DataScope) bool { return s.Resource == resource })
	if len(r.DataScopes) == before {
		return shared.NewDomainError("DATA_SCOPE_NOT_FOUND", "Role does not have data scope for this resource")
	}

	r.touch()
	return nil
}

// SetDataScopes replaces all scopes; the first scope per resource wins.
func (r *Role) SetDataScopes(scopes []DataScope) error {
	seen := make(map[string]bool, len(scopes))
	unique := make([]DataScope, 0, len(scopes))
	for _, s := range scopes {
		if s.IsEmpty() {
			return shared.NewDomainError("INVALID_DATA_SCOPE", "Data scope cannot be empty")
		}
		if !seen[s.Resource] {
			seen[s.Resource] = true
			unique = append(unique, s)
		}
	}

	r.DataScopes = unique
	r.touch()
	return nil
}

func (r *Role) GetDataScope(resource string) *DataScope {
	resource = strings.ToLower(strings.TrimSpace(resource))
	for i := range r.DataScopes {
		if r.DataScopes[i].Resource == resource {
			return &r.DataScopes[i]
		}
	}
	return nil
}

func (r *Role) HasDataScope(resource string) bool {
	return r.GetDataScope(resource) != nil
}

func (r *Role) CanDelete() bool {
	return !r.IsSystemRole
}

// Update changes name and description together and records an update event.
func (r *Role) Update(name, description string) error {
	if err := r.SetName(name); err != nil {
		return err
	}
	r.SetDescription(description)
	r.AddDomainEvent(NewRoleUpdatedEvent(r))
	return nil
}

var (
	roleCodePattern  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
	permTokenPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

func validateRoleCode(code string) error {
	code = strings.TrimSpace(code)
	switch {
	case code == "":
		return shared.NewDomainError("INVALID_ROLE_CODE", "Role code cannot be empty")
	case len(code) < 2:
		return shared.NewDomainError("INVALID_ROLE_CODE", "Role code must be at least 2 characters")
	case len(code) > 50:
		return shared.NewDomainError("INVALID_ROLE_CODE", "Role code cannot exceed 50 characters")
	case !roleCodePattern.MatchString(code):
		return shared.NewDomainError("INVALID_ROLE_CODE", "Role code must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

func validateRoleName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot exceed 100 characters")
	}
	return nil
}

// validatePermissionToken checks one half of a resource:action pair.
// Data scope resources follow the same rules.
func validatePermissionToken(kind, value string) error {
	value = strings.TrimSpace(value)
	code := "INVALID_PERMISSION_" + strings.ToUpper(kind)
	switch {
	case value == "":
		return shared.NewDomainError(code, "Permission "+kind+" cannot be empty")
	case len(value) > 50:
		return shared.NewDomainError(code, "Permission "+kind+" cannot exceed 50 characters")
	case !permTokenPattern.MatchString(strings.ToLower(value)):
		return shared.NewDomainError(code, "Permission "+kind+" must start with a letter and contain only lowercase letters, numbers, and underscores")
	}
	return nil
}

// Predefined system role codes
const (
	RoleCodeAdmin      = "ADMIN"
	RoleCodeOwner      = "OWNER"
	RoleCodeManager    = "MANAGER"
	RoleCodeAgent      = "AGENT"
	RoleCodeSupervisor = "SUPERVISOR"
	RoleCodeViewer     = "VIEWER"
)

// Predefined resources
const (
	ResourceCall          = "call"
	ResourceCallRecording = "call_recording"
	ResourceSocialMessage = "social_message"
	ResourceTicket        = "ticket"
	ResourceTicketColumn  = "ticket_column"
	ResourceSubscription  = "subscription"
	ResourcePayment       = "payment"
	ResourcePackage       = "package"
	ResourceUser          = "user"
	ResourceRole          = "role"
	ResourceTenant        = "tenant"
)

// Predefined actions
const (
	ActionCreate     = "create"
	ActionRead       = "read"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionEnable     = "enable"
	ActionDisable    = "disable"
	ActionAnswer     = "answer"
	ActionTransfer   = "transfer"
	ActionRecord     = "record"
	ActionMove       = "move"
	ActionComment    = "comment"
	ActionExport     = "export"
	ActionAssignRole = "assign_role"
	ActionViewAll    = "view_all"
)
