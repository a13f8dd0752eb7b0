package identity

import (
	"github.com/echodesk/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeTenant = "Tenant"

// Event type constants
const (
	EventTypeTenantCreated       = "TenantCreated"
	EventTypeTenantUpdated       = "TenantUpdated"
	EventTypeTenantStatusChanged = "TenantStatusChanged"
	EventTypeTenantPlanChanged   = "TenantPlanChanged"
)

// TenantCreatedEvent is published when a new tenant is created
type TenantCreatedEvent struct {
	shared.BaseDomainEvent
	Schema     string       `json:"schema"`
	Name       string       `json:"name"`
	AdminEmail string       `json:"admin_email"`
	Status     TenantStatus `json:"status"`
	Plan       TenantPlan   `json:"plan"`
}

// NewTenantCreatedEvent creates a new TenantCreatedEvent
func NewTenantCreatedEvent(tenant *Tenant) *TenantCreatedEvent {
	return &TenantCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantCreated, AggregateTypeTenant, tenant.ID, tenant.ID),
		Schema:          tenant.Schema,
		Name:            tenant.Name,
		AdminEmail:      tenant.AdminEmail,
		Status:          tenant.Status,
		Plan:            tenant.Plan,
	}
}

// TenantUpdatedEvent is published when a tenant is updated
type TenantUpdatedEvent struct {
	shared.BaseDomainEvent
	Schema    string `json:"schema"`
	Name      string `json:"name"`
	AdminName string `json:"admin_name,omitempty"`
}

// NewTenantUpdatedEvent creates a new TenantUpdatedEvent
func NewTenantUpdatedEvent(tenant *Tenant) *TenantUpdatedEvent {
	return &TenantUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantUpdated, AggregateTypeTenant, tenant.ID, tenant.ID),
		Schema:          tenant.Schema,
		Name:            tenant.Name,
		AdminName:       tenant.AdminName,
	}
}

// TenantStatusChangedEvent is published when a tenant's status changes
type TenantStatusChangedEvent struct {
	shared.BaseDomainEvent
	Schema    string       `json:"schema"`
	OldStatus TenantStatus `json:"old_status"`
	NewStatus TenantStatus `json:"new_status"`
	Reason    string       `json:"reason,omitempty"`
}

// NewTenantStatusChangedEvent creates a new TenantStatusChangedEvent
func NewTenantStatusChangedEvent(tenant *Tenant, oldStatus, newStatus TenantStatus) *TenantStatusChangedEvent {
	return &TenantStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantStatusChanged, AggregateTypeTenant, tenant.ID, tenant.ID),
		Schema:          tenant.Schema,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
		Reason:          tenant.SuspendedReason,
	}
}

// TenantPlanChangedEvent is published when a tenant's billing plan changes
type TenantPlanChangedEvent struct {
	shared.BaseDomainEvent
	Schema  string     `json:"schema"`
	OldPlan TenantPlan `json:"old_plan"`
	NewPlan TenantPlan `json:"new_plan"`
}

// NewTenantPlanChangedEvent creates a new TenantPlanChangedEvent
func NewTenantPlanChangedEvent(tenant *Tenant, oldPlan, newPlan TenantPlan) *TenantPlanChangedEvent {
	return &TenantPlanChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantPlanChanged, AggregateTypeTenant, tenant.ID, tenant.ID),
		Schema:          tenant.Schema,
		OldPlan:         oldPlan,
		NewPlan:         newPlan,
	}
}

