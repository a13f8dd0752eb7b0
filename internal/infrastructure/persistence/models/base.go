package models

import (
	"time"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel carries the identifier and timestamps every table shares.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) toBaseEntity() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity copies identity and timestamps from the domain entity.
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel adds the optimistic-locking version column.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// ToAggregateRoot rebuilds the embedded aggregate root for domain mapping.
func (m *AggregateModel) ToAggregateRoot() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: m.toBaseEntity(),
		Version:    m.Version,
	}
}

// FromDomainAggregateRoot copies root fields from the domain aggregate.
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// TenantAggregateModel adds the tenant and creator columns carried by
// every tenant-owned aggregate.
type TenantAggregateModel struct {
	AggregateModel
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy *uuid.UUID `gorm:"type:uuid;index"`
}

// ToTenantAggregateRoot rebuilds the embedded tenant aggregate root.
func (m *TenantAggregateModel) ToTenantAggregateRoot() shared.TenantAggregateRoot {
	return shared.TenantAggregateRoot{
		BaseAggregateRoot: m.ToAggregateRoot(),
		TenantID:          m.TenantID,
		CreatedBy:         m.CreatedBy,
	}
}

// FromDomainTenantAggregateRoot copies root fields from the domain aggregate.
func (m *TenantAggregateModel) FromDomainTenantAggregateRoot(t shared.TenantAggregateRoot) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.TenantID = t.TenantID
	m.CreatedBy = t.CreatedBy
}
