package models

import (
	"time"

	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	TenantAggregateModel
	Email              string              `gorm:"type:varchar(200);not null;index"`
	FirstName          string              `gorm:"type:varchar(100)"`
	LastName           string              `gorm:"type:varchar(100)"`
	Phone              string              `gorm:"type:varchar(50)"`
	PasswordHash       string              `gorm:"type:varchar(255);not null"`
	AvatarURL          string              `gorm:"type:varchar(500)"`
	Status             identity.UserStatus `gorm:"type:varchar(20);not null;default:'invited'"`
	IsTenantAdmin      bool                `gorm:"not null;default:false"`
	LastLoginAt        *time.Time          `gorm:"index"`
	LastLoginIP        string              `gorm:"type:varchar(45)"`
	FailedAttempts     int                 `gorm:"not null;default:0"`
	LockedUntil        *time.Time
	PasswordChangedAt  *time.Time
	MustChangePassword bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
// Note: RoleIDs must be loaded separately by the repository.
func (m *UserModel) ToDomain() *identity.User {
	user := &identity.User{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Email:              m.Email,
		FirstName:          m.FirstName,
		LastName:           m.LastName,
		Phone:              m.Phone,
		PasswordHash:       m.PasswordHash,
		AvatarURL:          m.AvatarURL,
		Status:             m.Status,
		IsTenantAdmin:      m.IsTenantAdmin,
		RoleIDs:            make([]uuid.UUID, 0), // Loaded separately
		LastLoginAt:        m.LastLoginAt,
		LastLoginIP:        m.LastLoginIP,
		FailedAttempts:     m.FailedAttempts,
		LockedUntil:        m.LockedUntil,
		PasswordChangedAt:  m.PasswordChangedAt,
		MustChangePassword: m.MustChangePassword,
	}
	return user
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainTenantAggregateRoot(u.TenantAggregateRoot)
	m.Email = u.Email
	m.FirstName = u.FirstName
	m.LastName = u.LastName
	m.Phone = u.Phone
	m.PasswordHash = u.PasswordHash
	m.AvatarURL = u.AvatarURL
	m.Status = u.Status
	m.IsTenantAdmin = u.IsTenantAdmin
	m.LastLoginAt = u.LastLoginAt
	m.LastLoginIP = u.LastLoginIP
	m.FailedAttempts = u.FailedAttempts
	m.LockedUntil = u.LockedUntil
	m.PasswordChangedAt = u.PasswordChangedAt
	m.MustChangePassword = u.MustChangePassword
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}

// UserRoleModel is the persistence model for the UserRole relationship.
type UserRoleModel struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoleID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserRoleModel) TableName() string {
	return "user_roles"
}

// ToDomain converts the persistence model to a domain UserRole.
func (m *UserRoleModel) ToDomain() identity.UserRole {
	return identity.UserRole{
		UserID:    m.UserID,
		RoleID:    m.RoleID,
		TenantID:  m.TenantID,
		CreatedAt: m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain UserRole.
func (m *UserRoleModel) FromDomain(ur identity.UserRole) {
	m.UserID = ur.UserID
	m.RoleID = ur.RoleID
	m.TenantID = ur.TenantID
	m.CreatedAt = ur.CreatedAt
}

// TenantModel is the persistence model for the Tenant domain entity.
type TenantModel struct {
	AggregateModel
	Schema            string                `gorm:"type:varchar(63);not null;uniqueIndex"`
	Name              string                `gorm:"type:varchar(200);not null"`
	Domain            string                `gorm:"type:varchar(200);uniqueIndex"`
	AdminEmail        string                `gorm:"type:varchar(200)"`
	AdminName         string                `gorm:"type:varchar(200)"`
	FrontendURL       string                `gorm:"type:varchar(500)"`
	PreferredLanguage string                `gorm:"type:varchar(5);not null;default:'en'"`
	Status            identity.TenantStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	Plan              identity.TenantPlan   `gorm:"type:varchar(20);not null;default:'starter'"`
	SuspendedReason   string                `gorm:"type:text"`
	TrialEndsAt       *time.Time            `gorm:"index"`
	DeactivatedAt     *time.Time
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant entity.
func (m *TenantModel) ToDomain() *identity.Tenant {
	return &identity.Tenant{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Schema:            m.Schema,
		Name:              m.Name,
		Domain:            m.Domain,
		AdminEmail:        m.AdminEmail,
		AdminName:         m.AdminName,
		FrontendURL:       m.FrontendURL,
		PreferredLanguage: m.PreferredLanguage,
		Status:            m.Status,
		Plan:              m.Plan,
		SuspendedReason:   m.SuspendedReason,
		TrialEndsAt:       m.TrialEndsAt,
		DeactivatedAt:     m.DeactivatedAt,
	}
}

// FromDomain populates the persistence model from a domain Tenant entity.
func (m *TenantModel) FromDomain(t *identity.Tenant) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.Schema = t.Schema
	m.Name = t.Name
	m.Domain = t.Domain
	m.AdminEmail = t.AdminEmail
	m.AdminName = t.AdminName
	m.FrontendURL = t.FrontendURL
	m.PreferredLanguage = t.PreferredLanguage
	m.Status = t.Status
	m.Plan = t.Plan
	m.SuspendedReason = t.SuspendedReason
	m.TrialEndsAt = t.TrialEndsAt
	m.DeactivatedAt = t.DeactivatedAt
}

// TenantModelFromDomain creates a new persistence model from a domain Tenant entity.
func TenantModelFromDomain(t *identity.Tenant) *TenantModel {
	m := &TenantModel{}
	m.FromDomain(t)
	return m
}
