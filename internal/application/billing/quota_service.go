package billing

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QuotaExceededError is returned when a package limit blocks an
// operation. Handlers map it to 429.
type QuotaExceededError struct {
	Resource     string
	CurrentUsage int64
	Limit        int64
	Message      string
}

func (e *QuotaExceededError) Error() string {
	return e.Message
}

// HTTPStatusCode returns the HTTP status code for this error (429 Too Many Requests)
func (e *QuotaExceededError) HTTPStatusCode() int {
	return http.StatusTooManyRequests
}

// NewQuotaExceededError creates a new QuotaExceededError
func NewQuotaExceededError(resource string, currentUsage, limit int64) *QuotaExceededError {
	return &QuotaExceededError{
		Resource:     resource,
		CurrentUsage: currentUsage,
		Limit:        limit,
		Message: fmt.Sprintf(
			"Quota exceeded for %s: current usage %d has reached the limit of %d",
			resource, currentUsage, limit,
		),
	}
}

// UsageSummaryDTO reports a tenant's consumption against its package.
type UsageSummaryDTO struct {
	TenantID             uuid.UUID       `json:"tenant_id"`
	PackageName          string          `json:"package_name"`
	Users                int             `json:"users"`
	MaxUsers             int             `json:"max_users"` // 0 = unlimited
	WhatsAppMessagesUsed int             `json:"whatsapp_messages_used"`
	MaxWhatsAppMessages  int             `json:"max_whatsapp_messages"` // 0 = unlimited
	StorageUsedGB        decimal.Decimal `json:"storage_used_gb"`
	MaxStorageGB         int             `json:"max_storage_gb"` // 0 = unlimited
	ExpiresAt            time.Time       `json:"expires_at"`
	InGracePeriod        bool            `json:"in_grace_period"`
	GraceEndsAt          *time.Time      `json:"grace_ends_at,omitempty"`
}

// QuotaService enforces the purchased package's limits: agent seats,
// monthly WhatsApp messages, and storage. It also writes the usage
// audit trail. It implements the identity application's SeatLimiter.
type QuotaService struct {
	subRepo   billing.SubscriptionRepository
	pkgRepo   billing.PackageRepository
	usageRepo billing.UsageLogRepository
	logger    *zap.Logger
}

// NewQuotaService creates a new QuotaService
func NewQuotaService(
	subRepo billing.SubscriptionRepository,
	pkgRepo billing.PackageRepository,
	usageRepo billing.UsageLogRepository,
	logger *zap.Logger,
) *QuotaService {
	return &QuotaService{
		subRepo:   subRepo,
		pkgRepo:   pkgRepo,
		usageRepo: usageRepo,
		logger:    logger,
	}
}

// loadSubscription fetches the tenant's subscription and its package,
// rejecting tenants without a usable subscription.
func (s *QuotaService) loadSubscription(ctx context.Context, tenantID uuid.UUID) (*billing.TenantSubscription, *billing.Package, error) {
	if tenantID == uuid.Nil {
		return nil, nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	sub, err := s.subRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, nil, shared.NewDomainError("NO_SUBSCRIPTION", "Tenant has no subscription")
		}
		s.logger.Error("Failed to find subscription", zap.Error(err))
		return nil, nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find subscription")
	}

	if !sub.IsUsable() {
		return nil, nil, shared.NewDomainError("SUBSCRIPTION_INACTIVE", "Subscription is not active")
	}

	pkg, err := s.pkgRepo.FindByID(ctx, sub.PackageID)
	if err != nil {
		s.logger.Error("Failed to find package",
			zap.String("package_id", sub.PackageID.String()),
			zap.Error(err))
		return nil, nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find package")
	}

	return sub, pkg, nil
}

// CanAddUser checks the agent seat ceiling before a user is created.
func (s *QuotaService) CanAddUser(ctx context.Context, tenantID uuid.UUID) error {
	sub, pkg, err := s.loadSubscription(ctx, tenantID)
	if err != nil {
		return err
	}

	if !sub.CanAddUser(pkg) {
		s.logger.Info("Seat limit reached",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("current_users", sub.CurrentUsers),
			zap.Int("max_users", pkg.MaxUsers))
		return NewQuotaExceededError("agent seats", int64(sub.CurrentUsers), int64(pkg.MaxUsers))
	}

	return nil
}

// RecordUserAdded bumps the seat counter and logs the event.
func (s *QuotaService) RecordUserAdded(ctx context.Context, tenantID, userID uuid.UUID) error {
	sub, err := s.subRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	sub.RecordUserAdded()
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return err
	}

	s.appendUsageLog(ctx, tenantID, billing.UsageUserAdded, decimal.NewFromInt(1), userID)
	return nil
}

// RecordUserRemoved frees a seat and logs the event.
func (s *QuotaService) RecordUserRemoved(ctx context.Context, tenantID, userID uuid.UUID) error {
	sub, err := s.subRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	sub.RecordUserRemoved()
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return err
	}

	s.appendUsageLog(ctx, tenantID, billing.UsageUserRemoved, decimal.NewFromInt(1), userID)
	return nil
}

// RecordWhatsAppMessage counts one inbound or outbound WhatsApp message
// against the monthly quota. It returns a QuotaExceededError once the
// package limit is crossed; the message itself is still counted so the
// audit trail matches what the provider delivered.
func (s *QuotaService) RecordWhatsAppMessage(ctx context.Context, tenantID uuid.UUID) error {
	sub, pkg, err := s.loadSubscription(ctx, tenantID)
	if err != nil {
		return err
	}

	withinQuota := sub.RecordWhatsAppMessage(pkg)
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return err
	}

	s.appendUsageLog(ctx, tenantID, billing.UsageWhatsAppMessage, decimal.NewFromInt(1), uuid.Nil)

	if !withinQuota {
		s.logger.Info("WhatsApp message quota exceeded",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("used", sub.WhatsAppMessagesUsed),
			zap.Int("limit", pkg.MaxWhatsAppMessages))
		return NewQuotaExceededError("whatsapp messages",
			int64(sub.WhatsAppMessagesUsed), int64(pkg.MaxWhatsAppMessages))
	}

	return nil
}

// CheckStorageQuota verifies that adding deltaGB of storage stays under
// the package ceiling.
func (s *QuotaService) CheckStorageQuota(ctx context.Context, tenantID uuid.UUID, deltaGB decimal.Decimal) error {
	sub, pkg, err := s.loadSubscription(ctx, tenantID)
	if err != nil {
		return err
	}

	if pkg.MaxStorageGB == 0 {
		return nil
	}

	projected := sub.StorageUsedGB.Add(deltaGB)
	limit := decimal.NewFromInt(int64(pkg.MaxStorageGB))
	if projected.GreaterThan(limit) {
		return NewQuotaExceededError("storage",
			projected.Round(0).IntPart(), int64(pkg.MaxStorageGB))
	}

	return nil
}

// HasFeature reports whether the tenant's package enables the feature.
func (s *QuotaService) HasFeature(ctx context.Context, tenantID uuid.UUID, key billing.FeatureKey) (bool, error) {
	_, pkg, err := s.loadSubscription(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return pkg.Features.Has(key), nil
}

// GetUsageSummary reports consumption against the package limits.
func (s *QuotaService) GetUsageSummary(ctx context.Context, tenantID uuid.UUID) (*UsageSummaryDTO, error) {
	sub, pkg, err := s.loadSubscription(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	summary := &UsageSummaryDTO{
		TenantID:             tenantID,
		PackageName:          pkg.Name,
		Users:                sub.CurrentUsers,
		MaxUsers:             pkg.MaxUsers,
		WhatsAppMessagesUsed: sub.WhatsAppMessagesUsed,
		MaxWhatsAppMessages:  pkg.MaxWhatsAppMessages,
		StorageUsedGB:        sub.StorageUsedGB,
		MaxStorageGB:         pkg.MaxStorageGB,
		ExpiresAt:            sub.ExpiresAt,
		InGracePeriod:        sub.InGracePeriod(),
	}
	if sub.IsExpired() {
		graceEnd := sub.GraceEndsAt()
		summary.GraceEndsAt = &graceEnd
	}

	return summary, nil
}

// appendUsageLog writes an audit row. Failures are logged, not
// returned: the counter on the subscription is authoritative.
func (s *QuotaService) appendUsageLog(ctx context.Context, tenantID uuid.UUID, eventType billing.UsageEventType, qty decimal.Decimal, userID uuid.UUID) {
	if s.usageRepo == nil {
		return
	}
	entry, err := billing.NewUsageLog(tenantID, eventType, qty)
	if err != nil {
		s.logger.Warn("Failed to build usage log", zap.Error(err))
		return
	}
	if userID != uuid.Nil {
		entry.WithUser(userID)
	}
	if err := s.usageRepo.Save(ctx, entry); err != nil {
		s.logger.Warn("Failed to save usage log",
			zap.String("tenant_id", tenantID.String()),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}
