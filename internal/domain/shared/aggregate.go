package shared

import (
	"github.com/google/uuid"
)

// AggregateRoot marks the consistency boundary of a domain object graph.
// Aggregates record domain events as state changes happen; the application
// layer drains them after a successful save and hands them to the event bus
// or the outbox.
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	PullDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot is the embeddable implementation of AggregateRoot.
// Version backs optimistic locking in the persistence layer.
type BaseAggregateRoot struct {
	BaseEntity
	Version      int           `gorm:"not null;default:1"`
	domainEvents []DomainEvent `gorm:"-"`
}

// NewBaseAggregateRoot starts an aggregate at version 1 with no pending events.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}

func (a *BaseAggregateRoot) GetVersion() int   { return a.Version }
func (a *BaseAggregateRoot) IncrementVersion() { a.Version++ }

// AddDomainEvent queues an event for publication after the aggregate is saved.
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns the queued events without draining them.
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// PullDomainEvents drains the queue, returning the events exactly once.
// Publishing code should prefer this over GetDomainEvents plus
// ClearDomainEvents so a retry cannot double-publish.
func (a *BaseAggregateRoot) PullDomainEvents() []DomainEvent {
	events := a.domainEvents
	a.domainEvents = nil
	return events
}

// ClearDomainEvents discards queued events without publishing them.
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// TenantAggregateRoot is an aggregate owned by a single tenant. CreatedBy
// feeds data-scope filtering, which restricts agents to records they or
// their department created.
type TenantAggregateRoot struct {
	BaseAggregateRoot
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy *uuid.UUID `gorm:"type:uuid;index"`
}

// NewTenantAggregateRoot starts a tenant-owned aggregate. Pass a creator
// when the acting user is known so data scoping can attribute the record.
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		TenantID:          tenantID,
	}
}

// NewTenantAggregateRootWithCreator is NewTenantAggregateRoot with the
// acting user recorded as creator.
func NewTenantAggregateRootWithCreator(tenantID, createdBy uuid.UUID) TenantAggregateRoot {
	root := NewTenantAggregateRoot(tenantID)
	root.CreatedBy = &createdBy
	return root
}

func (t *TenantAggregateRoot) SetCreatedBy(userID uuid.UUID) { t.CreatedBy = &userID }

func (t *TenantAggregateRoot) GetCreatedBy() *uuid.UUID { return t.CreatedBy }
