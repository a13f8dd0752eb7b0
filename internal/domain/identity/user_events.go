package identity

import (
	"time"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant for User
const AggregateTypeUser = "User"

// User domain event types
const (
	EventTypeUserCreated         = "UserCreated"
	EventTypeUserBlocked         = "UserBlocked"
	EventTypeUserPasswordChanged = "UserPasswordChanged"
	EventTypeUserRoleAssigned    = "UserRoleAssigned"
	EventTypeUserRoleRemoved     = "UserRoleRemoved"
	EventTypeUserStatusChanged   = "UserStatusChanged"
)

// UserCreatedEvent is published when a user is created
type UserCreatedEvent struct {
	shared.BaseDomainEvent
	Email  string     `json:"email"`
	Status UserStatus `json:"status"`
}

// NewUserCreatedEvent creates a new UserCreatedEvent
func NewUserCreatedEvent(user *User) *UserCreatedEvent {
	return &UserCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserCreated, AggregateTypeUser, user.ID, user.TenantID),
		Email:           user.Email,
		Status:          user.Status,
	}
}

// UserBlockedEvent is published when a user is blocked
type UserBlockedEvent struct {
	shared.BaseDomainEvent
	Email string `json:"email"`
}

// NewUserBlockedEvent creates a new UserBlockedEvent
func NewUserBlockedEvent(user *User) *UserBlockedEvent {
	return &UserBlockedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserBlocked, AggregateTypeUser, user.ID, user.TenantID),
		Email:           user.Email,
	}
}

// UserPasswordChangedEvent is published when a user's password is changed
type UserPasswordChangedEvent struct {
	shared.BaseDomainEvent
	Email     string    `json:"email"`
	ChangedAt time.Time `json:"changed_at"`
}

// NewUserPasswordChangedEvent creates a new UserPasswordChangedEvent
func NewUserPasswordChangedEvent(user *User) *UserPasswordChangedEvent {
	changedAt := time.Now()
	if user.PasswordChangedAt != nil {
		changedAt = *user.PasswordChangedAt
	}
	return &UserPasswordChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserPasswordChanged, AggregateTypeUser, user.ID, user.TenantID),
		Email:           user.Email,
		ChangedAt:       changedAt,
	}
}

// UserRoleAssignedEvent is published when a role is assigned to a user
type UserRoleAssignedEvent struct {
	shared.BaseDomainEvent
	Email  string    `json:"email"`
	RoleID uuid.UUID `json:"role_id"`
}

// NewUserRoleAssignedEvent creates a new UserRoleAssignedEvent
func NewUserRoleAssignedEvent(user *User, roleID uuid.UUID) *UserRoleAssignedEvent {
	return &UserRoleAssignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserRoleAssigned, AggregateTypeUser, user.ID, user.TenantID),
		Email:           user.Email,
		RoleID:          roleID,
	}
}

// UserRoleRemovedEvent is published when a role is removed from a user
type UserRoleRemovedEvent struct {
	shared.BaseDomainEvent
	Email  string    `json:"email"`
	RoleID uuid.UUID `json:"role_id"`
}

// NewUserRoleRemovedEvent creates a new UserRoleRemovedEvent
func NewUserRoleRemovedEvent(user *User, roleID uuid.UUID) *UserRoleRemovedEvent {
	return &UserRoleRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserRoleRemoved, AggregateTypeUser, user.ID, user.TenantID),
		Email:           user.Email,
		RoleID:          roleID,
	}
}

// UserStatusChangedEvent is published when a user's status changes
type UserStatusChangedEvent struct {
	shared.BaseDomainEvent
	Email     string     `json:"email"`
	OldStatus UserStatus `json:"old_status"`
	NewStatus UserStatus `json:"new_status"`
}

// NewUserStatusChangedEvent creates a new UserStatusChangedEvent
func NewUserStatusChangedEvent(user *User, oldStatus, newStatus UserStatus) *UserStatusChangedEvent {
	return &UserStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserStatusChanged, AggregateTypeUser, user.ID, user.TenantID),
		Email:           user.Email,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}
