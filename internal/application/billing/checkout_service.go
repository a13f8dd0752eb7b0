package billing

import (
	"context"
	"fmt"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutURLs holds the endpoints handed to the payment provider when
// a checkout is created.
type CheckoutURLs struct {
	// CallbackURL receives the provider's server-to-server payment
	// notification.
	CallbackURL string

	// SuccessURL and FailURL are where the customer lands after the
	// hosted checkout page.
	SuccessURL string
	FailURL    string
}

// RegisterInput starts a paid signup: company details plus the package
// the customer is buying. The tenant is only provisioned once the
// payment callback confirms settlement.
type RegisterInput struct {
	Email             string `json:"email" binding:"required,email"`
	CompanyName       string `json:"company_name" binding:"required"`
	Schema            string `json:"schema" binding:"required"`
	Password          string `json:"password" binding:"required,min=8"`
	AdminFirstName    string `json:"admin_first_name"`
	AdminLastName     string `json:"admin_last_name"`
	PreferredLanguage string `json:"preferred_language"`
	PackageName       string `json:"package" binding:"required"`
	AgentCount        int    `json:"agent_count"`
}

// PurchaseInput upgrades or renews an existing tenant's subscription.
type PurchaseInput struct {
	TenantID    uuid.UUID `json:"-"`
	PackageName string    `json:"package" binding:"required"`
	AgentCount  int       `json:"agent_count"`
	Language    string    `json:"language"`
}

// CheckoutDTO is returned to the frontend so it can redirect the
// customer to the provider's hosted payment page.
type CheckoutDTO struct {
	OrderID        string `json:"order_id"`
	RegistrationID string `json:"registration_id,omitempty"`
	PaymentURL     string `json:"payment_url"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
}

// OrderDTO is the read model for a payment order.
type OrderDTO struct {
	ID             uuid.UUID `json:"id"`
	OrderID        string    `json:"order_id"`
	Kind           string    `json:"kind"`
	Status         string    `json:"status"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	AgentCount     int       `json:"agent_count"`
	CardSaved      bool      `json:"card_saved"`
	FailureReason  string    `json:"failure_reason,omitempty"`
	PaymentURL     string    `json:"payment_url,omitempty"`
	CreatedAt      string    `json:"created_at"`
	PaidAt         *string   `json:"paid_at,omitempty"`
	PackageID      uuid.UUID `json:"package_id"`
	TenantID       uuid.UUID `json:"tenant_id"`
	ProviderStatus string    `json:"provider_status,omitempty"`
}

// CheckoutService creates payment orders against the gateway, both for
// new signups and for existing tenants changing their plan.
type CheckoutService struct {
	gateway    billing.PaymentGateway
	orderRepo  billing.PaymentOrderRepository
	regRepo    billing.PendingRegistrationRepository
	pkgRepo    billing.PackageRepository
	subRepo    billing.SubscriptionRepository
	tenantRepo identity.TenantRepository
	urls       CheckoutURLs
	logger     *zap.Logger
}

// CheckoutServiceConfig contains the service's dependencies.
type CheckoutServiceConfig struct {
	Gateway    billing.PaymentGateway
	OrderRepo  billing.PaymentOrderRepository
	RegRepo    billing.PendingRegistrationRepository
	PkgRepo    billing.PackageRepository
	SubRepo    billing.SubscriptionRepository
	TenantRepo identity.TenantRepository
	URLs       CheckoutURLs
	Logger     *zap.Logger
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(cfg CheckoutServiceConfig) *CheckoutService {
	return &CheckoutService{
		gateway:    cfg.Gateway,
		orderRepo:  cfg.OrderRepo,
		regRepo:    cfg.RegRepo,
		pkgRepo:    cfg.PkgRepo,
		subRepo:    cfg.SubRepo,
		tenantRepo: cfg.TenantRepo,
		urls:       cfg.URLs,
		logger:     cfg.Logger,
	}
}

// Register validates a signup, stores it as a pending registration and
// opens a checkout with the payment provider. Nothing tenant-visible is
// created until the payment webhook settles the order.
func (s *CheckoutService) Register(ctx context.Context, input RegisterInput) (*CheckoutDTO, error) {
	taken, err := s.tenantRepo.ExistsBySchema(ctx, input.Schema)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check schema availability")
	}
	if taken {
		return nil, shared.NewDomainError("SCHEMA_EXISTS", "A workspace with this subdomain already exists")
	}
	pending, err := s.regRepo.ExistsUnprocessedBySchema(ctx, input.Schema)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check schema availability")
	}
	if pending {
		return nil, shared.NewDomainError("SCHEMA_PENDING", "A signup for this subdomain is already awaiting payment")
	}

	pkg, err := s.activePackage(ctx, input.PackageName)
	if err != nil {
		return nil, err
	}

	agentCount := input.AgentCount
	if agentCount <= 0 {
		agentCount = 1
	}
	amount, err := pkg.PriceFor(agentCount)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_AGENT_COUNT", err.Error())
	}

	reg, err := billing.NewPendingRegistration(input.Email, input.CompanyName, input.Schema, input.Password, pkg.ID, agentCount)
	if err != nil {
		return nil, err
	}
	reg.AdminFirstName = input.AdminFirstName
	reg.AdminLastName = input.AdminLastName
	if input.PreferredLanguage != "" {
		reg.PreferredLanguage = input.PreferredLanguage
	}

	// No tenant exists yet, so the registration ID stands in for one
	// on the order. The webhook re-homes the order once the tenant is
	// provisioned.
	order, err := billing.NewCheckoutOrder(reg.ID, pkg.ID, amount, agentCount)
	if err != nil {
		return nil, err
	}
	order.SetMetadata(MetadataOrderType, "registration")
	order.SetMetadata(MetadataRegistrationID, reg.ID.String())
	reg.AttachOrder(order.OrderID)

	if err := s.regRepo.Save(ctx, reg); err != nil {
		return nil, fmt.Errorf("save pending registration: %w", err)
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save payment order: %w", err)
	}

	dto, err := s.openCheckout(ctx, order,
		fmt.Sprintf("EchoDesk %s subscription for %s", pkg.DisplayName, input.CompanyName),
		input.PreferredLanguage)
	if err != nil {
		return nil, err
	}
	dto.RegistrationID = reg.ID.String()

	s.logger.Info("Signup checkout created",
		zap.String("schema", input.Schema),
		zap.String("order_id", order.OrderID),
		zap.String("package", pkg.Name))
	return dto, nil
}

// Purchase opens a checkout for an existing tenant buying or changing a
// package. Settlement arrives through the payment webhook, which
// creates or renews the subscription.
func (s *CheckoutService) Purchase(ctx context.Context, input PurchaseInput) (*CheckoutDTO, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, input.TenantID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load tenant")
	}
	if tenant.IsInactive() {
		return nil, shared.NewDomainError("TENANT_INACTIVE", "Deactivated workspaces cannot purchase subscriptions")
	}

	pkg, err := s.activePackage(ctx, input.PackageName)
	if err != nil {
		return nil, err
	}

	agentCount := input.AgentCount
	if agentCount <= 0 {
		if sub, err := s.subRepo.FindByTenant(ctx, tenant.ID); err == nil {
			agentCount = sub.AgentCount
		} else {
			agentCount = 1
		}
	}
	amount, err := pkg.PriceFor(agentCount)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_AGENT_COUNT", err.Error())
	}

	order, err := billing.NewCheckoutOrder(tenant.ID, pkg.ID, amount, agentCount)
	if err != nil {
		return nil, err
	}
	order.SetMetadata(MetadataOrderType, "purchase")
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save payment order: %w", err)
	}

	language := input.Language
	if language == "" {
		language = tenant.PreferredLanguage
	}
	dto, err := s.openCheckout(ctx, order,
		fmt.Sprintf("EchoDesk %s subscription for %s", pkg.DisplayName, tenant.Name),
		language)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Purchase checkout created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("order_id", order.OrderID),
		zap.String("package", pkg.Name))
	return dto, nil
}

// openCheckout registers the order with the provider and records the
// provider's identifiers on it.
func (s *CheckoutService) openCheckout(ctx context.Context, order *billing.PaymentOrder, description, language string) (*CheckoutDTO, error) {
	resp, err := s.gateway.CreateOrder(ctx, &billing.CreateOrderRequest{
		OrderID:     order.OrderID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Description: description,
		SaveCard:    true,
		CallbackURL: s.urls.CallbackURL,
		RedirectURL: s.urls.SuccessURL,
		Language:    language,
	})
	if err != nil {
		if markErr := order.MarkFailed(err.Error()); markErr == nil {
			if saveErr := s.orderRepo.Save(ctx, order); saveErr != nil {
				s.logger.Warn("Failed to record checkout failure", zap.Error(saveErr))
			}
		}
		s.logger.Error("Gateway rejected checkout",
			zap.String("order_id", order.OrderID),
			zap.Error(err))
		return nil, shared.NewDomainError("GATEWAY_ERROR", "Payment provider rejected the checkout")
	}

	if err := order.AttachProvider(resp.ProviderOrderID, resp.PaymentURL); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save payment order: %w", err)
	}

	return &CheckoutDTO{
		OrderID:    order.OrderID,
		PaymentURL: resp.PaymentURL,
		Amount:     order.Amount.String(),
		Currency:   order.Currency,
	}, nil
}

// activePackage resolves a package by its machine name and rejects
// retired ones.
func (s *CheckoutService) activePackage(ctx context.Context, name string) (*billing.Package, error) {
	pkg, err := s.pkgRepo.FindByName(ctx, name)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("PACKAGE_NOT_FOUND", "Package not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load package")
	}
	if !pkg.IsActive {
		return nil, shared.NewDomainError("PACKAGE_RETIRED", "This package is no longer offered")
	}
	return pkg, nil
}

// GetOrder returns one of the tenant's orders by its public order ID.
func (s *CheckoutService) GetOrder(ctx context.Context, tenantID uuid.UUID, orderID string) (*OrderDTO, error) {
	order, err := s.orderRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("ORDER_NOT_FOUND", "Order not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load order")
	}
	if order.TenantID != tenantID {
		return nil, shared.NewDomainError("ORDER_NOT_FOUND", "Order not found")
	}
	return toOrderDTO(order), nil
}

// ListOrders returns the tenant's most recent orders.
func (s *CheckoutService) ListOrders(ctx context.Context, tenantID uuid.UUID, limit int) ([]*OrderDTO, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	orders, err := s.orderRepo.FindByTenant(ctx, tenantID, limit)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load orders")
	}
	dtos := make([]*OrderDTO, 0, len(orders))
	for _, order := range orders {
		dtos = append(dtos, toOrderDTO(order))
	}
	return dtos, nil
}

func toOrderDTO(order *billing.PaymentOrder) *OrderDTO {
	dto := &OrderDTO{
		ID:            order.ID,
		OrderID:       order.OrderID,
		Kind:          string(order.Kind),
		Status:        string(order.Status),
		Amount:        order.Amount.String(),
		Currency:      order.Currency,
		AgentCount:    order.AgentCount,
		CardSaved:     order.CardSaved,
		FailureReason: order.FailureReason,
		PaymentURL:    order.PaymentURL,
		CreatedAt:     order.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		PackageID:     order.PackageID,
		TenantID:      order.TenantID,
	}
	if order.PaidAt != nil {
		s := order.PaidAt.Format("2006-01-02T15:04:05Z07:00")
		dto.PaidAt = &s
	}
	return dto
}
