package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// callbackDedupTTL is how long a processed provider callback stays
// remembered. The provider retries failed deliveries for up to a day.
const callbackDedupTTL = 24 * time.Hour

// MetadataRegistrationID links a checkout order to the pending signup
// it pays for.
const MetadataRegistrationID = "registration_id"

// Recurring order metadata keys, set by the renewal job.
const (
	MetadataOrderType      = "type"
	MetadataParentOrderID  = "parent_order_id"
	MetadataSubscriptionID = "subscription_id"
)

// bogCallback is the provider's payment notification envelope. Only the
// identifiers are read; order state is fetched from the provider API
// rather than trusted from the payload.
type bogCallback struct {
	Event string          `json:"event"`
	Body  bogCallbackBody `json:"body"`
}

type bogCallbackBody struct {
	OrderID         string `json:"order_id"`          // provider's ID
	ExternalOrderID string `json:"external_order_id"` // our ED-/REC- ID
	OrderStatus     struct {
		Key string `json:"key"`
	} `json:"order_status"`
}

// WebhookResult is what the callback endpoint returns to the provider.
type WebhookResult struct {
	OrderID         string `json:"order_id"`
	ProviderOrderID string `json:"provider_order_id"`
	Status          string `json:"status"`
	Processed       bool   `json:"processed"`
	Message         string `json:"message,omitempty"`
}

// PaymentWebhookService settles payment orders from Bank of Georgia
// callbacks: marks orders paid or failed, provisions tenants for signup
// checkouts, and starts or renews subscriptions.
type PaymentWebhookService struct {
	gateway     billing.PaymentGateway
	orderRepo   billing.PaymentOrderRepository
	subRepo     billing.SubscriptionRepository
	pkgRepo     billing.PackageRepository
	regRepo     billing.PendingRegistrationRepository
	tenantRepo  identity.TenantRepository
	userRepo    identity.UserRepository
	idempotency shared.IdempotencyStore
	eventBus    shared.EventPublisher
	logger      *zap.Logger
}

// PaymentWebhookServiceConfig contains the service's dependencies.
type PaymentWebhookServiceConfig struct {
	Gateway     billing.PaymentGateway
	OrderRepo   billing.PaymentOrderRepository
	SubRepo     billing.SubscriptionRepository
	PkgRepo     billing.PackageRepository
	RegRepo     billing.PendingRegistrationRepository
	TenantRepo  identity.TenantRepository
	UserRepo    identity.UserRepository
	Idempotency shared.IdempotencyStore
	EventBus    shared.EventPublisher
	Logger      *zap.Logger
}

// NewPaymentWebhookService creates a new PaymentWebhookService
func NewPaymentWebhookService(cfg PaymentWebhookServiceConfig) *PaymentWebhookService {
	return &PaymentWebhookService{
		gateway:     cfg.Gateway,
		orderRepo:   cfg.OrderRepo,
		subRepo:     cfg.SubRepo,
		pkgRepo:     cfg.PkgRepo,
		regRepo:     cfg.RegRepo,
		tenantRepo:  cfg.TenantRepo,
		userRepo:    cfg.UserRepo,
		idempotency: cfg.Idempotency,
		eventBus:    cfg.EventBus,
		logger:      cfg.Logger,
	}
}

// ProcessCallback verifies and applies one provider payment callback.
// Duplicate deliveries of the same (order, status) pair are acknowledged
// without reprocessing.
func (s *PaymentWebhookService) ProcessCallback(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if err := s.gateway.VerifyCallbackSignature(payload, signature); err != nil {
		s.logger.Warn("Payment callback signature rejected", zap.Error(err))
		return nil, shared.NewDomainError("INVALID_SIGNATURE", "Callback signature verification failed")
	}

	var cb bogCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, shared.NewDomainError("MALFORMED_CALLBACK", "Callback payload is not valid JSON")
	}
	if cb.Body.ExternalOrderID == "" && cb.Body.OrderID == "" {
		return nil, shared.NewDomainError("MALFORMED_CALLBACK", "Callback carries no order identifier")
	}

	s.logger.Info("Processing payment callback",
		zap.String("event", cb.Event),
		zap.String("order_id", cb.Body.ExternalOrderID),
		zap.String("provider_order_id", cb.Body.OrderID),
		zap.String("status", cb.Body.OrderStatus.Key))

	result := &WebhookResult{
		OrderID:         cb.Body.ExternalOrderID,
		ProviderOrderID: cb.Body.OrderID,
		Status:          cb.Body.OrderStatus.Key,
	}

	dedupKey := fmt.Sprintf("bog:callback:%s:%s", cb.Body.OrderID, cb.Body.OrderStatus.Key)
	if s.idempotency != nil {
		done, err := s.idempotency.IsProcessed(ctx, dedupKey)
		if err != nil {
			s.logger.Error("Failed to check callback dedup marker", zap.Error(err))
		} else if done {
			result.Processed = true
			result.Message = "Duplicate delivery ignored"
			return result, nil
		}
	}

	order, err := s.findOrder(ctx, cb.Body.ExternalOrderID, cb.Body.OrderID)
	if err != nil {
		return nil, err
	}
	result.OrderID = order.OrderID

	// The callback payload is only a hint; the provider API is the
	// source of truth for the order state.
	details, err := s.gateway.GetOrderDetails(ctx, order.ProviderOrderID)
	if err != nil {
		s.logger.Error("Failed to fetch order details from provider",
			zap.String("provider_order_id", order.ProviderOrderID),
			zap.Error(err))
		return nil, shared.NewDomainError("GATEWAY_ERROR", "Failed to verify order with payment provider")
	}

	if err := s.applyOrderStatus(ctx, order, details); err != nil {
		return nil, err
	}

	// Dedup marker is set only after the full settlement succeeded so a
	// provider retry can recover from a partial failure.
	if s.idempotency != nil {
		if _, err := s.idempotency.MarkProcessed(ctx, dedupKey, callbackDedupTTL); err != nil {
			s.logger.Warn("Failed to set callback dedup marker", zap.Error(err))
		}
	}

	result.Processed = true
	return result, nil
}

func (s *PaymentWebhookService) findOrder(ctx context.Context, externalOrderID, providerOrderID string) (*billing.PaymentOrder, error) {
	if externalOrderID != "" {
		order, err := s.orderRepo.FindByOrderID(ctx, externalOrderID)
		if err == nil {
			return order, nil
		}
		if err != shared.ErrNotFound {
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find order")
		}
	}
	if providerOrderID != "" {
		order, err := s.orderRepo.FindByProviderOrderID(ctx, providerOrderID)
		if err == nil {
			return order, nil
		}
		if err != shared.ErrNotFound {
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find order")
		}
	}
	return nil, shared.NewDomainError("ORDER_NOT_FOUND", "No matching payment order")
}

func (s *PaymentWebhookService) applyOrderStatus(ctx context.Context, order *billing.PaymentOrder, details *billing.OrderDetails) error {
	switch details.Status.ToOrderStatus() {
	case billing.PaymentStatusPaid:
		return s.settlePaid(ctx, order, details)

	case billing.PaymentStatusFailed:
		if order.Status.IsFinal() {
			return nil
		}
		if err := order.MarkFailed(details.RejectReason); err != nil {
			return err
		}
		if err := s.orderRepo.Save(ctx, order); err != nil {
			return err
		}
		s.publishEvents(ctx, order.PullDomainEvents())
		s.logger.Info("Payment order failed",
			zap.String("order_id", order.OrderID),
			zap.String("reason", details.RejectReason))
		return nil

	case billing.PaymentStatusRefunded:
		if order.Status == billing.PaymentStatusRefunded {
			return nil
		}
		if err := order.MarkRefunded(); err != nil {
			return err
		}
		return s.orderRepo.Save(ctx, order)

	case billing.PaymentStatusProcessing:
		if order.Status != billing.PaymentStatusPending {
			return nil
		}
		if err := order.MarkProcessing(); err != nil {
			return err
		}
		return s.orderRepo.Save(ctx, order)

	default:
		s.logger.Debug("Callback for order in non-actionable state",
			zap.String("order_id", order.OrderID),
			zap.String("provider_status", string(details.Status)))
		return nil
	}
}

// settlePaid marks the order paid, provisions the tenant when the order
// paid for a signup, and starts or renews the subscription. Every step
// after the paid mark is idempotent, so a redelivered callback resumes
// an interrupted settlement instead of acking it away.
func (s *PaymentWebhookService) settlePaid(ctx context.Context, order *billing.PaymentOrder, details *billing.OrderDetails) error {
	if order.IsPaid() {
		if !s.settlementIncomplete(ctx, order) {
			return nil
		}
		s.logger.Info("Resuming interrupted settlement",
			zap.String("order_id", order.OrderID))
	} else {
		if err := order.MarkPaid(details.CardSaved); err != nil {
			return err
		}
		if err := s.orderRepo.Save(ctx, order); err != nil {
			return err
		}
		s.publishEvents(ctx, order.PullDomainEvents())

		s.logger.Info("Payment order settled",
			zap.String("order_id", order.OrderID),
			zap.String("tenant_id", order.TenantID.String()),
			zap.Bool("card_saved", details.CardSaved))
	}

	tenantID := order.TenantID
	if regID := order.MetadataString(MetadataRegistrationID); regID != "" {
		provisionedID, err := s.provisionRegistration(ctx, order)
		if err != nil {
			return err
		}
		tenantID = provisionedID
	}

	if err := s.applySubscription(ctx, tenantID, order); err != nil {
		return err
	}

	return s.syncTenantStatus(ctx, tenantID, order.PackageID)
}

// settlementIncomplete reports whether a paid order still has
// provisioning work outstanding: a signup whose tenant was never
// created, or a subscription that was never started or renewed for this
// payment. A fully settled order returns false so redeliveries stay
// no-ops and cannot renew twice.
func (s *PaymentWebhookService) settlementIncomplete(ctx context.Context, order *billing.PaymentOrder) bool {
	tenantID := order.TenantID
	if order.MetadataString(MetadataRegistrationID) != "" {
		reg, err := s.regRepo.FindByOrderID(ctx, order.OrderID)
		if err != nil {
			return false
		}
		if reg.ProcessedAt == nil || reg.TenantID == nil {
			return true
		}
		tenantID = *reg.TenantID
		if _, err := s.tenantRepo.FindByID(ctx, tenantID); err != nil {
			return true
		}
	}

	sub, err := s.subRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		return true
	}
	if order.PaidAt != nil && (sub.LastBilledAt == nil || sub.LastBilledAt.Before(*order.PaidAt)) {
		return true
	}
	return false
}

// provisionRegistration creates the tenant and its admin user for a
// signup checkout. MarkProcessed on the registration reserves the tenant
// ID exactly once; a redelivery resumes with the reserved ID and creates
// whatever the interrupted attempt left missing.
func (s *PaymentWebhookService) provisionRegistration(ctx context.Context, order *billing.PaymentOrder) (uuid.UUID, error) {
	reg, err := s.regRepo.FindByOrderID(ctx, order.OrderID)
	if err != nil {
		if err == shared.ErrNotFound {
			return uuid.Nil, shared.NewDomainError("REGISTRATION_NOT_FOUND", "No pending registration for order "+order.OrderID)
		}
		return uuid.Nil, err
	}

	tenant, err := identity.NewTenant(reg.Schema, reg.CompanyName, reg.Email)
	if err != nil {
		return uuid.Nil, err
	}
	if reg.PreferredLanguage != "" {
		if err := tenant.SetPreferredLanguage(reg.PreferredLanguage); err != nil {
			s.logger.Warn("Invalid preferred language on registration",
				zap.String("language", reg.PreferredLanguage))
		}
	}

	if err := reg.MarkProcessed(tenant.ID); err != nil {
		switch err {
		case shared.ErrAlreadyExists:
			// A concurrent or earlier delivery already claimed the
			// registration. Resume with the reserved tenant ID: the
			// create steps below are existence-checked, so a finished
			// provisioning turns this into a no-op.
			if reg.TenantID == nil {
				return uuid.Nil, shared.NewDomainError("REGISTRATION_INCONSISTENT", "Registration processed but tenant unknown")
			}
			tenant.ID = *reg.TenantID
			s.logger.Info("Registration already claimed, verifying provisioning",
				zap.String("registration_id", reg.ID.String()),
				zap.String("tenant_id", tenant.ID.String()))
		case shared.ErrExpired:
			return uuid.Nil, shared.NewDomainError("REGISTRATION_EXPIRED", "Registration expired before payment settled")
		default:
			return uuid.Nil, err
		}
	} else {
		// Persist the claim before the tenant so a crash between the two
		// cannot provision twice.
		if err := s.regRepo.Save(ctx, reg); err != nil {
			return uuid.Nil, err
		}
	}

	if _, err := s.tenantRepo.FindByID(ctx, tenant.ID); err != nil {
		if err != shared.ErrNotFound {
			return uuid.Nil, err
		}
		if err := s.tenantRepo.Save(ctx, tenant); err != nil {
			return uuid.Nil, err
		}
	}

	if _, err := s.userRepo.FindByEmail(ctx, tenant.ID, reg.Email); err != nil {
		if err != shared.ErrNotFound {
			return uuid.Nil, err
		}
		admin, err := identity.NewTenantAdminFromHash(tenant.ID, reg.Email, reg.AdminPasswordHash)
		if err != nil {
			return uuid.Nil, err
		}
		if reg.AdminFirstName != "" || reg.AdminLastName != "" {
			if err := admin.SetName(reg.AdminFirstName, reg.AdminLastName); err != nil {
				s.logger.Warn("Invalid admin name on registration", zap.Error(err))
			}
		}
		if err := s.userRepo.Create(ctx, admin); err != nil {
			return uuid.Nil, err
		}
	}

	// Recurring orders and the subscription need the real tenant behind
	// this order from now on.
	order.TenantID = tenant.ID
	if err := s.orderRepo.Save(ctx, order); err != nil {
		s.logger.Warn("Failed to re-home order onto provisioned tenant",
			zap.String("order_id", order.OrderID),
			zap.Error(err))
	}

	s.logger.Info("Tenant provisioned from paid registration",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("schema", tenant.Schema),
		zap.String("admin_email", reg.Email))

	return tenant.ID, nil
}

// applySubscription starts a subscription on first payment or renews the
// existing one for another billing cycle.
func (s *PaymentWebhookService) applySubscription(ctx context.Context, tenantID uuid.UUID, order *billing.PaymentOrder) error {
	pkg, err := s.pkgRepo.FindByID(ctx, order.PackageID)
	if err != nil {
		return shared.NewDomainError("PACKAGE_NOT_FOUND", "Order references an unknown package")
	}

	sub, err := s.subRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		if err != shared.ErrNotFound {
			return err
		}
		sub, err = billing.NewSubscription(tenantID, pkg.ID, pkg.BillingPeriod, order.AgentCount)
		if err != nil {
			return err
		}
		if err := s.subRepo.Save(ctx, sub); err != nil {
			return err
		}
		s.publishEvents(ctx, sub.PullDomainEvents())
		s.logger.Info("Subscription started",
			zap.String("tenant_id", tenantID.String()),
			zap.String("package", pkg.Name),
			zap.Time("expires_at", sub.ExpiresAt))
		return nil
	}

	if sub.PackageID != pkg.ID || sub.AgentCount != order.AgentCount {
		if err := sub.ChangePackage(pkg.ID, order.AgentCount); err != nil {
			return err
		}
	}
	sub.Renew(pkg.BillingPeriod)
	sub.ResetMonthlyCounters()
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return err
	}
	s.publishEvents(ctx, sub.PullDomainEvents())

	s.logger.Info("Subscription renewed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("package", pkg.Name),
		zap.Time("expires_at", sub.ExpiresAt))
	return nil
}

// syncTenantStatus lifts suspensions and converts trials once payment
// has settled.
func (s *PaymentWebhookService) syncTenantStatus(ctx context.Context, tenantID uuid.UUID, packageID uuid.UUID) error {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		if err == shared.ErrNotFound {
			s.logger.Warn("Paid order for unknown tenant", zap.String("tenant_id", tenantID.String()))
			return nil
		}
		return err
	}

	pkg, err := s.pkgRepo.FindByID(ctx, packageID)
	if err == nil {
		plan := identity.TenantPlan(pkg.Name)
		switch tenant.Status {
		case identity.TenantStatusTrial:
			if err := tenant.ConvertFromTrial(plan); err != nil {
				s.logger.Warn("Failed to convert trial tenant",
					zap.String("tenant_id", tenantID.String()),
					zap.Error(err))
			}
		default:
			if err := tenant.SetPlan(plan); err != nil {
				s.logger.Warn("Package name does not map to a tenant plan",
					zap.String("package", pkg.Name))
			}
		}
	}

	if tenant.IsSuspended() {
		if err := tenant.Activate(); err != nil {
			s.logger.Warn("Failed to reactivate tenant after payment",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
	}

	return s.tenantRepo.Save(ctx, tenant)
}

func (s *PaymentWebhookService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish domain events", zap.Error(err))
	}
}
