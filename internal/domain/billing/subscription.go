package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/echodesk/backend/internal/domain/shared"
)

// GracePeriodDays is how long after expiry a subscription keeps working
// before the tenant is suspended.
const GracePeriodDays = 7

// TenantSubscription links a tenant to its purchased package and tracks
// consumption against the package limits. One active subscription per
// tenant.
type TenantSubscription struct {
	shared.BaseAggregateRoot
	TenantID            uuid.UUID       `json:"tenant_id" gorm:"type:uuid;uniqueIndex;not null"`
	PackageID           uuid.UUID       `json:"package_id" gorm:"type:uuid;index;not null"`
	IsActive            bool            `json:"is_active" gorm:"not null;default:true"`
	StartsAt            time.Time       `json:"starts_at" gorm:"not null"`
	ExpiresAt           time.Time       `json:"expires_at" gorm:"index;not null"`
	AgentCount          int             `json:"agent_count" gorm:"not null;default:1"`
	CurrentUsers        int             `json:"current_users" gorm:"not null;default:0"`
	WhatsAppMessagesUsed int            `json:"whatsapp_messages_used" gorm:"not null;default:0"`
	StorageUsedGB       decimal.Decimal `json:"storage_used_gb" gorm:"type:decimal(10,3);not null;default:0"`
	LastBilledAt        *time.Time      `json:"last_billed_at,omitempty"`
	NextBillingDate     *time.Time      `json:"next_billing_date,omitempty" gorm:"index"`
}

func (TenantSubscription) TableName() string {
	return "tenant_subscriptions"
}

// NewSubscription starts a paid subscription for one billing cycle of
// the given package.
func NewSubscription(tenantID, packageID uuid.UUID, period BillingPeriod, agentCount int) (*TenantSubscription, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if packageID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PACKAGE", "Package ID is required")
	}
	if agentCount < 1 {
		return nil, shared.NewDomainError("INVALID_AGENT_COUNT", "Agent count must be at least 1")
	}

	now := time.Now()
	expires := now.AddDate(0, 0, period.Days())
	sub := &TenantSubscription{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TenantID:          tenantID,
		PackageID:         packageID,
		IsActive:          true,
		StartsAt:          now,
		ExpiresAt:         expires,
		AgentCount:        agentCount,
		LastBilledAt:      &now,
		NextBillingDate:   &expires,
		StorageUsedGB:     decimal.Zero,
	}
	sub.AddDomainEvent(NewSubscriptionStartedEvent(sub))
	return sub, nil
}

// IsExpired reports whether the paid period has ended.
func (s *TenantSubscription) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// InGracePeriod reports whether the subscription is expired but still
// inside the grace window.
func (s *TenantSubscription) InGracePeriod() bool {
	if !s.IsExpired() {
		return false
	}
	return time.Now().Before(s.ExpiresAt.AddDate(0, 0, GracePeriodDays))
}

// GraceEndsAt is the moment service stops if no payment arrives.
func (s *TenantSubscription) GraceEndsAt() time.Time {
	return s.ExpiresAt.AddDate(0, 0, GracePeriodDays)
}

// DaysUntilExpiry returns whole days remaining, negative once expired.
func (s *TenantSubscription) DaysUntilExpiry() int {
	return int(time.Until(s.ExpiresAt).Hours() / 24)
}

// IsUsable reports whether tenant features should keep working: active
// and either unexpired or within grace.
func (s *TenantSubscription) IsUsable() bool {
	if !s.IsActive {
		return false
	}
	return !s.IsExpired() || s.InGracePeriod()
}

// Renew extends the subscription by one billing cycle after a successful
// payment. Renewing during grace extends from the original expiry so the
// tenant does not lose paid days; renewing after grace starts a fresh
// cycle from now.
func (s *TenantSubscription) Renew(period BillingPeriod) {
	base := s.ExpiresAt
	now := time.Now()
	if now.After(s.GraceEndsAt()) {
		base = now
	}
	s.ExpiresAt = base.AddDate(0, 0, period.Days())
	s.LastBilledAt = &now
	next := s.ExpiresAt
	s.NextBillingDate = &next
	s.IsActive = true
	s.IncrementVersion()
	s.AddDomainEvent(NewSubscriptionRenewedEvent(s))
}

// ChangePackage switches the subscription to a different package at the
// next renewal boundary. Counters are kept; limits come from the new
// package.
func (s *TenantSubscription) ChangePackage(packageID uuid.UUID, agentCount int) error {
	if packageID == uuid.Nil {
		return shared.NewDomainError("INVALID_PACKAGE", "Package ID is required")
	}
	if agentCount < 1 {
		return shared.NewDomainError("INVALID_AGENT_COUNT", "Agent count must be at least 1")
	}
	s.PackageID = packageID
	s.AgentCount = agentCount
	s.IncrementVersion()
	return nil
}

// Deactivate turns the subscription off, typically when grace runs out.
func (s *TenantSubscription) Deactivate() {
	if !s.IsActive {
		return
	}
	s.IsActive = false
	s.IncrementVersion()
	s.AddDomainEvent(NewSubscriptionDeactivatedEvent(s))
}

// Reactivate turns a deactivated subscription back on after payment.
func (s *TenantSubscription) Reactivate() {
	if s.IsActive {
		return
	}
	s.IsActive = true
	s.IncrementVersion()
}

// CanAddUser checks the seat ceiling of the given package.
func (s *TenantSubscription) CanAddUser(pkg *Package) bool {
	if pkg.IsUnlimitedUsers() {
		return true
	}
	return s.CurrentUsers < pkg.MaxUsers
}

// RecordUserAdded bumps the seat counter. Callers check CanAddUser
// first; the counter itself never rejects so reconciliation stays
// possible.
func (s *TenantSubscription) RecordUserAdded() {
	s.CurrentUsers++
	s.IncrementVersion()
}

func (s *TenantSubscription) RecordUserRemoved() {
	if s.CurrentUsers > 0 {
		s.CurrentUsers--
	}
	s.IncrementVersion()
}

// RecordWhatsAppMessage bumps the monthly message counter and reports
// whether the tenant is still within quota. Zero limit means unlimited.
func (s *TenantSubscription) RecordWhatsAppMessage(pkg *Package) bool {
	s.WhatsAppMessagesUsed++
	s.IncrementVersion()
	if pkg.MaxWhatsAppMessages == 0 {
		return true
	}
	return s.WhatsAppMessagesUsed <= pkg.MaxWhatsAppMessages
}

// SetStorageUsed records the latest measured storage footprint.
func (s *TenantSubscription) SetStorageUsed(gb decimal.Decimal) error {
	if gb.IsNegative() {
		return shared.NewDomainError("INVALID_STORAGE", "Storage usage cannot be negative")
	}
	s.StorageUsedGB = gb
	s.IncrementVersion()
	return nil
}

// ResetMonthlyCounters zeroes per-cycle counters at renewal.
func (s *TenantSubscription) ResetMonthlyCounters() {
	s.WhatsAppMessagesUsed = 0
	s.IncrementVersion()
}
