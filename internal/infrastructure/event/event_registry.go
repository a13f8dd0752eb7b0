package event

import (
	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/domain/crm"
	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/domain/social"
)

// RegisterAllEvents registers all domain event types with the serializer
// This is required for the OutboxProcessor to deserialize events from the outbox table
func RegisterAllEvents(serializer *EventSerializer) {
	// Identity domain - user events
	serializer.Register(identity.EventTypeUserCreated, &identity.UserCreatedEvent{})
	serializer.Register(identity.EventTypeUserBlocked, &identity.UserBlockedEvent{})
	serializer.Register(identity.EventTypeUserPasswordChanged, &identity.UserPasswordChangedEvent{})
	serializer.Register(identity.EventTypeUserRoleAssigned, &identity.UserRoleAssignedEvent{})
	serializer.Register(identity.EventTypeUserRoleRemoved, &identity.UserRoleRemovedEvent{})
	serializer.Register(identity.EventTypeUserStatusChanged, &identity.UserStatusChangedEvent{})

	// Identity domain - tenant events
	serializer.Register(identity.EventTypeTenantCreated, &identity.TenantCreatedEvent{})
	serializer.Register(identity.EventTypeTenantUpdated, &identity.TenantUpdatedEvent{})
	serializer.Register(identity.EventTypeTenantStatusChanged, &identity.TenantStatusChangedEvent{})
	serializer.Register(identity.EventTypeTenantPlanChanged, &identity.TenantPlanChangedEvent{})

	// Identity domain - role events
	serializer.Register(identity.EventTypeRoleCreated, &identity.RoleCreatedEvent{})
	serializer.Register(identity.EventTypeRoleUpdated, &identity.RoleUpdatedEvent{})
	serializer.Register(identity.EventTypeRoleEnabled, &identity.RoleEnabledEvent{})
	serializer.Register(identity.EventTypeRoleDisabled, &identity.RoleDisabledEvent{})
	serializer.Register(identity.EventTypeRolePermissionGranted, &identity.RolePermissionGrantedEvent{})
	serializer.Register(identity.EventTypeRolePermissionRevoked, &identity.RolePermissionRevokedEvent{})
	serializer.Register(identity.EventTypeRoleDataScopeChanged, &identity.RoleDataScopeChangedEvent{})

	// CRM domain - call lifecycle events
	serializer.Register(crm.EventTypeCallStarted, &crm.CallStartedEvent{})
	serializer.Register(crm.EventTypeCallAnswered, &crm.CallAnsweredEvent{})
	serializer.Register(crm.EventTypeCallEnded, &crm.CallEndedEvent{})
	serializer.Register(crm.EventTypeRecordingCompleted, &crm.RecordingCompletedEvent{})

	// Social domain
	serializer.Register(social.EventTypeMessageReceived, &social.MessageReceivedEvent{})

	// Billing domain - subscription and payment events
	serializer.Register(billing.EventTypeSubscriptionStarted, &billing.SubscriptionStartedEvent{})
	serializer.Register(billing.EventTypeSubscriptionRenewed, &billing.SubscriptionRenewedEvent{})
	serializer.Register(billing.EventTypeSubscriptionDeactivated, &billing.SubscriptionDeactivatedEvent{})
	serializer.Register(billing.EventTypePaymentOrderCreated, &billing.PaymentOrderCreatedEvent{})
	serializer.Register(billing.EventTypePaymentOrderPaid, &billing.PaymentOrderPaidEvent{})
	serializer.Register(billing.EventTypePaymentOrderFailed, &billing.PaymentOrderFailedEvent{})
}
