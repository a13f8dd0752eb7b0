package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/echodesk/backend/internal/domain/shared"
)

// registrationTTL is how long a signup has to complete payment before
// the reservation lapses.
const registrationTTL = time.Hour

// PendingRegistration holds a signup that is waiting for its first
// payment. The tenant is only provisioned once the payment settles, and
// MarkProcessed guarantees provisioning happens exactly once even if the
// payment webhook is delivered multiple times.
type PendingRegistration struct {
	shared.BaseAggregateRoot
	Email             string    `json:"email" gorm:"index;size:254;not null"`
	CompanyName       string    `json:"company_name" gorm:"size:200;not null"`
	Schema            string    `json:"schema" gorm:"index;size:63;not null"`
	AdminFirstName    string    `json:"admin_first_name" gorm:"size:100"`
	AdminLastName     string    `json:"admin_last_name" gorm:"size:100"`
	AdminPasswordHash string    `json:"-" gorm:"size:100;not null"`
	PackageID         uuid.UUID `json:"package_id" gorm:"type:uuid;not null"`
	AgentCount        int       `json:"agent_count" gorm:"not null;default:1"`
	PreferredLanguage string    `json:"preferred_language" gorm:"size:5;default:'en'"`
	OrderID           string    `json:"order_id" gorm:"index;size:20"`
	ExpiresAt         time.Time `json:"expires_at" gorm:"index;not null"`
	IsProcessed       bool      `json:"is_processed" gorm:"not null;default:false"`
	ProcessedAt       *time.Time `json:"processed_at,omitempty"`
	TenantID          *uuid.UUID `json:"tenant_id,omitempty" gorm:"type:uuid"`
}

func (PendingRegistration) TableName() string {
	return "pending_registrations"
}

// NewPendingRegistration reserves a signup for one hour. The admin
// password is hashed immediately; the plaintext is never stored.
func NewPendingRegistration(email, companyName, schema, password string, packageID uuid.UUID, agentCount int) (*PendingRegistration, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("INVALID_EMAIL", "A valid email address is required")
	}
	if strings.TrimSpace(companyName) == "" {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company name is required")
	}
	if strings.TrimSpace(schema) == "" {
		return nil, shared.NewDomainError("INVALID_SCHEMA", "Workspace identifier is required")
	}
	if len(password) < 8 {
		return nil, shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if packageID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PACKAGE", "Package ID is required")
	}
	if agentCount < 1 {
		return nil, shared.NewDomainError("INVALID_AGENT_COUNT", "Agent count must be at least 1")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_FAILED", "Failed to hash password")
	}

	return &PendingRegistration{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		CompanyName:       strings.TrimSpace(companyName),
		Schema:            strings.TrimSpace(strings.ToLower(schema)),
		AdminPasswordHash: string(hash),
		PackageID:         packageID,
		AgentCount:        agentCount,
		PreferredLanguage: "en",
		ExpiresAt:         time.Now().Add(registrationTTL),
	}, nil
}

// AttachOrder links the registration to its checkout order so the
// payment webhook can find it.
func (r *PendingRegistration) AttachOrder(orderID string) {
	r.OrderID = orderID
	r.IncrementVersion()
}

// IsExpired reports whether the reservation lapsed before payment.
func (r *PendingRegistration) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// MarkProcessed records that the tenant was provisioned. Returns
// ErrAlreadyExists when called twice so duplicate webhook deliveries
// cannot create a second tenant.
func (r *PendingRegistration) MarkProcessed(tenantID uuid.UUID) error {
	if r.IsProcessed {
		return shared.ErrAlreadyExists
	}
	if r.IsExpired() {
		return shared.ErrExpired
	}
	now := time.Now()
	r.IsProcessed = true
	r.ProcessedAt = &now
	r.TenantID = &tenantID
	r.IncrementVersion()
	return nil
}
