package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/infrastructure/scheduler"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// usageLogRetention is how long usage audit rows are kept before the
// retention job prunes them.
const usageLogRetention = 365 * 24 * time.Hour

// RenewalNotifier delivers billing lifecycle notices to tenant admins.
// A nil notifier degrades to log-only operation.
type RenewalNotifier interface {
	// NotifyExpiring warns that the subscription expires in daysLeft days.
	NotifyExpiring(ctx context.Context, tenantID uuid.UUID, expiresAt time.Time, daysLeft int) error

	// NotifyGracePeriod warns that the subscription has expired and
	// service stops at graceEndsAt without payment.
	NotifyGracePeriod(ctx context.Context, tenantID uuid.UUID, graceEndsAt time.Time) error

	// NotifySuspended informs the admin that the workspace was suspended.
	NotifySuspended(ctx context.Context, tenantID uuid.UUID) error
}

// LifecycleConfig tunes the daily billing jobs.
type LifecycleConfig struct {
	// RenewalLookaheadDays is how many days before expiry the recurring
	// charge is attempted.
	RenewalLookaheadDays int

	// ReminderDays lists how many days before expiry a reminder goes out.
	ReminderDays []int
}

// DefaultLifecycleConfig returns the production defaults.
func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		RenewalLookaheadDays: 3,
		ReminderDays:         []int{7, 3},
	}
}

// LifecycleService runs the daily billing jobs: recurring saved-card
// charges, expiry reminders, grace-period suspension, trial expiry, and
// housekeeping. It implements scheduler.JobRunner.
type LifecycleService struct {
	subRepo    billing.SubscriptionRepository
	pkgRepo    billing.PackageRepository
	orderRepo  billing.PaymentOrderRepository
	regRepo    billing.PendingRegistrationRepository
	usageRepo  billing.UsageLogRepository
	tenantRepo identity.TenantRepository
	gateway    billing.PaymentGateway
	notifier   RenewalNotifier
	config     LifecycleConfig
	logger     *zap.Logger
}

// LifecycleServiceConfig contains the service's dependencies.
type LifecycleServiceConfig struct {
	SubRepo    billing.SubscriptionRepository
	PkgRepo    billing.PackageRepository
	OrderRepo  billing.PaymentOrderRepository
	RegRepo    billing.PendingRegistrationRepository
	UsageRepo  billing.UsageLogRepository
	TenantRepo identity.TenantRepository
	Gateway    billing.PaymentGateway
	Notifier   RenewalNotifier
	Config     LifecycleConfig
	Logger     *zap.Logger
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(cfg LifecycleServiceConfig) *LifecycleService {
	if cfg.Config.RenewalLookaheadDays <= 0 {
		cfg.Config.RenewalLookaheadDays = 3
	}
	if len(cfg.Config.ReminderDays) == 0 {
		cfg.Config.ReminderDays = []int{7, 3}
	}
	return &LifecycleService{
		subRepo:    cfg.SubRepo,
		pkgRepo:    cfg.PkgRepo,
		orderRepo:  cfg.OrderRepo,
		regRepo:    cfg.RegRepo,
		usageRepo:  cfg.UsageRepo,
		tenantRepo: cfg.TenantRepo,
		gateway:    cfg.Gateway,
		notifier:   cfg.Notifier,
		config:     cfg.Config,
		logger:     cfg.Logger,
	}
}

// ProcessRecurringPayments charges the saved card of every subscription
// whose next billing date falls inside the lookahead window. The charge
// settles through the normal payment callback, so this job only creates
// the recurring order and fires the charge.
func (s *LifecycleService) ProcessRecurringPayments(ctx context.Context, now time.Time) (*scheduler.JobReport, error) {
	report := scheduler.NewJobReport(scheduler.JobTypeRecurringPayments, now)

	cutoff := now.AddDate(0, 0, s.config.RenewalLookaheadDays)
	subs, err := s.subRepo.FindDueForRenewal(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find subscriptions due for renewal: %w", err)
	}

	for _, sub := range subs {
		report.Processed++
		if err := s.chargeSubscription(ctx, sub, now); err != nil {
			s.logger.Error("Recurring charge failed",
				zap.String("tenant_id", sub.TenantID.String()),
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(err))
			report.AddError(fmt.Errorf("tenant %s: %w", sub.TenantID, err))
			continue
		}
		report.Succeeded++
	}

	return report, nil
}

// chargeSubscription creates one recurring order and charges the card
// saved on the tenant's last paid order.
func (s *LifecycleService) chargeSubscription(ctx context.Context, sub *billing.TenantSubscription, now time.Time) error {
	// A settled renewal pushes NextBillingDate past the lookahead
	// window, so a subscription reappearing here means its last charge
	// has not settled yet and another attempt is submitted.
	lastOrder, err := s.orderRepo.FindLastPaidWithCard(ctx, sub.TenantID)
	if err != nil {
		if err == shared.ErrNotFound {
			return billing.ErrNoSavedCard
		}
		return err
	}
	if lastOrder.ProviderOrderID == "" {
		return billing.ErrNoSavedCard
	}

	pkg, err := s.pkgRepo.FindByID(ctx, sub.PackageID)
	if err != nil {
		return fmt.Errorf("load package: %w", err)
	}
	amount, err := pkg.PriceFor(sub.AgentCount)
	if err != nil {
		return err
	}

	order, err := billing.NewRecurringOrder(sub.TenantID, pkg.ID, amount, sub.AgentCount)
	if err != nil {
		return err
	}
	order.SetMetadata(MetadataOrderType, "recurring")
	order.SetMetadata(MetadataParentOrderID, lastOrder.OrderID)
	order.SetMetadata(MetadataSubscriptionID, sub.ID.String())

	if err := s.orderRepo.Save(ctx, order); err != nil {
		return err
	}

	resp, err := s.gateway.ChargeSavedCard(ctx, lastOrder.ProviderOrderID, order.OrderID, amount, order.Currency)
	if err != nil {
		if markErr := order.MarkFailed(err.Error()); markErr == nil {
			if saveErr := s.orderRepo.Save(ctx, order); saveErr != nil {
				s.logger.Warn("Failed to record charge failure", zap.Error(saveErr))
			}
		}
		return fmt.Errorf("charge saved card: %w", err)
	}

	if err := order.AttachProvider(resp.ProviderOrderID, resp.PaymentURL); err != nil {
		return err
	}
	if err := order.MarkProcessing(); err != nil {
		return err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return err
	}

	s.logger.Info("Recurring charge submitted",
		zap.String("tenant_id", sub.TenantID.String()),
		zap.String("order_id", order.OrderID),
		zap.String("amount", amount.String()))
	return nil
}

// CheckSubscriptionStatus sends expiry reminders, warns tenants inside
// the grace window, and suspends subscriptions whose grace has run out.
func (s *LifecycleService) CheckSubscriptionStatus(ctx context.Context, now time.Time) (*scheduler.JobReport, error) {
	report := scheduler.NewJobReport(scheduler.JobTypeSubscriptionCheck, now)

	// Upcoming-expiry reminders.
	for _, days := range s.config.ReminderDays {
		subs, err := s.subRepo.FindExpiring(ctx, days)
		if err != nil {
			report.AddError(fmt.Errorf("find subscriptions expiring in %d days: %w", days, err))
			continue
		}
		for _, sub := range subs {
			report.Processed++
			s.notifyExpiring(ctx, sub, days)
			report.Succeeded++
		}
	}

	// Daily warnings for every subscription still inside the grace
	// window, not just those that expired today.
	inGrace, err := s.subRepo.FindInGrace(ctx)
	if err != nil {
		report.AddError(fmt.Errorf("find in-grace subscriptions: %w", err))
	} else {
		for _, sub := range inGrace {
			report.Processed++
			s.notifyGrace(ctx, sub)
			report.Succeeded++
		}
	}

	// Suspension once grace has fully elapsed.
	lapsed, err := s.subRepo.FindGraceExpired(ctx)
	if err != nil {
		return report, fmt.Errorf("find grace-expired subscriptions: %w", err)
	}
	for _, sub := range lapsed {
		report.Processed++
		if err := s.suspendLapsed(ctx, sub); err != nil {
			report.AddError(fmt.Errorf("suspend tenant %s: %w", sub.TenantID, err))
			continue
		}
		report.Succeeded++
	}

	return report, nil
}

func (s *LifecycleService) notifyExpiring(ctx context.Context, sub *billing.TenantSubscription, daysLeft int) {
	s.logger.Info("Subscription expiry reminder",
		zap.String("tenant_id", sub.TenantID.String()),
		zap.Int("days_left", daysLeft),
		zap.Time("expires_at", sub.ExpiresAt))
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyExpiring(ctx, sub.TenantID, sub.ExpiresAt, daysLeft); err != nil {
		s.logger.Warn("Failed to send expiry reminder",
			zap.String("tenant_id", sub.TenantID.String()),
			zap.Error(err))
	}
}

func (s *LifecycleService) notifyGrace(ctx context.Context, sub *billing.TenantSubscription) {
	s.logger.Info("Subscription entered grace period",
		zap.String("tenant_id", sub.TenantID.String()),
		zap.Time("grace_ends_at", sub.GraceEndsAt()))
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyGracePeriod(ctx, sub.TenantID, sub.GraceEndsAt()); err != nil {
		s.logger.Warn("Failed to send grace warning",
			zap.String("tenant_id", sub.TenantID.String()),
			zap.Error(err))
	}
}

// suspendLapsed deactivates a subscription past grace and suspends its
// tenant.
func (s *LifecycleService) suspendLapsed(ctx context.Context, sub *billing.TenantSubscription) error {
	sub.Deactivate()
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return err
	}

	tenant, err := s.tenantRepo.FindByID(ctx, sub.TenantID)
	if err != nil {
		if err == shared.ErrNotFound {
			s.logger.Warn("Lapsed subscription for unknown tenant",
				zap.String("tenant_id", sub.TenantID.String()))
			return nil
		}
		return err
	}
	if tenant.IsSuspended() || tenant.IsInactive() {
		return nil
	}
	if err := tenant.Suspend("subscription payment overdue"); err != nil {
		return err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return err
	}

	s.logger.Info("Tenant suspended after grace period",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("schema", tenant.Schema))

	if s.notifier != nil {
		if err := s.notifier.NotifySuspended(ctx, tenant.ID); err != nil {
			s.logger.Warn("Failed to send suspension notice", zap.Error(err))
		}
	}
	return nil
}

// ProcessTrialExpirations suspends tenants whose trial period has ended
// without a purchase.
func (s *LifecycleService) ProcessTrialExpirations(ctx context.Context, now time.Time) (*scheduler.JobReport, error) {
	report := scheduler.NewJobReport(scheduler.JobTypeTrialExpirations, now)

	tenants, err := s.tenantRepo.FindTrialExpired(ctx)
	if err != nil {
		return nil, fmt.Errorf("find expired trials: %w", err)
	}

	for i := range tenants {
		tenant := &tenants[i]
		report.Processed++
		if err := tenant.Suspend("trial period ended"); err != nil {
			report.AddError(fmt.Errorf("suspend trial tenant %s: %w", tenant.ID, err))
			continue
		}
		if err := s.tenantRepo.Save(ctx, tenant); err != nil {
			report.AddError(fmt.Errorf("save trial tenant %s: %w", tenant.ID, err))
			continue
		}
		report.Succeeded++

		s.logger.Info("Trial tenant suspended",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("schema", tenant.Schema))

		if s.notifier != nil {
			if err := s.notifier.NotifySuspended(ctx, tenant.ID); err != nil {
				s.logger.Warn("Failed to send trial expiry notice", zap.Error(err))
			}
		}
	}

	return report, nil
}

// CleanupExpiredRegistrations deletes signups whose payment window
// lapsed without settling.
func (s *LifecycleService) CleanupExpiredRegistrations(ctx context.Context, now time.Time) (*scheduler.JobReport, error) {
	report := scheduler.NewJobReport(scheduler.JobTypeRegistrationCleanup, now)

	deleted, err := s.regRepo.DeleteExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("delete expired registrations: %w", err)
	}
	report.Processed = int(deleted)
	report.Succeeded = int(deleted)

	if deleted > 0 {
		s.logger.Info("Expired registrations removed", zap.Int64("count", deleted))
	}
	return report, nil
}

// PruneUsageLogs removes usage audit rows older than the retention
// window.
func (s *LifecycleService) PruneUsageLogs(ctx context.Context, now time.Time) (*scheduler.JobReport, error) {
	report := scheduler.NewJobReport(scheduler.JobTypeUsageRetention, now)

	deleted, err := s.usageRepo.DeleteOlderThan(ctx, now.Add(-usageLogRetention))
	if err != nil {
		return nil, fmt.Errorf("prune usage logs: %w", err)
	}
	report.Processed = int(deleted)
	report.Succeeded = int(deleted)

	if deleted > 0 {
		s.logger.Info("Old usage logs pruned", zap.Int64("count", deleted))
	}
	return report, nil
}

// Ensure LifecycleService implements the scheduler's JobRunner
var _ scheduler.JobRunner = (*LifecycleService)(nil)
