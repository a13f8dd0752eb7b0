package billing

import (
	"context"
	"fmt"
	"testing"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type webhookFixture struct {
	svc        *PaymentWebhookService
	gateway    *MockPaymentGateway
	orderRepo  *MockPaymentOrderRepository
	subRepo    *MockSubscriptionRepository
	pkgRepo    *MockPackageRepository
	regRepo    *MockPendingRegistrationRepository
	tenantRepo *MockTenantRepository
	userRepo   *MockUserRepository
	dedup      *fakeIdempotencyStore
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	f := &webhookFixture{
		gateway:    new(MockPaymentGateway),
		orderRepo:  new(MockPaymentOrderRepository),
		subRepo:    new(MockSubscriptionRepository),
		pkgRepo:    new(MockPackageRepository),
		regRepo:    new(MockPendingRegistrationRepository),
		tenantRepo: new(MockTenantRepository),
		userRepo:   new(MockUserRepository),
		dedup:      newFakeIdempotencyStore(),
	}
	f.svc = NewPaymentWebhookService(PaymentWebhookServiceConfig{
		Gateway:     f.gateway,
		OrderRepo:   f.orderRepo,
		SubRepo:     f.subRepo,
		PkgRepo:     f.pkgRepo,
		RegRepo:     f.regRepo,
		TenantRepo:  f.tenantRepo,
		UserRepo:    f.userRepo,
		Idempotency: f.dedup,
		Logger:      zap.NewNop(),
	})
	return f
}

func callbackPayload(providerOrderID, externalOrderID, status string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"order_payment","body":{"order_id":%q,"external_order_id":%q,"order_status":{"key":%q}}}`,
		providerOrderID, externalOrderID, status))
}

func newProviderOrder(t *testing.T, tenantID uuid.UUID, pkg *billing.Package) *billing.PaymentOrder {
	t.Helper()
	order, err := billing.NewCheckoutOrder(tenantID, pkg.ID, decimal.NewFromInt(150), 1)
	require.NoError(t, err)
	require.NoError(t, order.AttachProvider("bog-"+order.OrderID, "https://pay.example/"+order.OrderID))
	return order
}

func TestPaymentWebhook_InvalidSignature(t *testing.T) {
	f := newWebhookFixture(t)
	payload := callbackPayload("bog-1", "ED-1", "completed")
	f.gateway.On("VerifyCallbackSignature", payload, "bad-sig").Return(billing.ErrInvalidSignature)

	_, err := f.svc.ProcessCallback(context.Background(), payload, "bad-sig")
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_SIGNATURE", domainErr.Code)
}

func TestPaymentWebhook_MalformedPayload(t *testing.T) {
	f := newWebhookFixture(t)
	payload := []byte("not json")
	f.gateway.On("VerifyCallbackSignature", payload, "sig").Return(nil)

	_, err := f.svc.ProcessCallback(context.Background(), payload, "sig")
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "MALFORMED_CALLBACK", domainErr.Code)
}

func TestPaymentWebhook_DuplicateDeliveryIgnored(t *testing.T) {
	f := newWebhookFixture(t)
	payload := callbackPayload("bog-9", "ED-9", "completed")
	f.gateway.On("VerifyCallbackSignature", payload, "sig").Return(nil)
	_, err := f.dedup.MarkProcessed(context.Background(), "bog:callback:bog-9:completed", callbackDedupTTL)
	require.NoError(t, err)

	result, err := f.svc.ProcessCallback(context.Background(), payload, "sig")
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, "Duplicate delivery ignored", result.Message)
	f.orderRepo.AssertNotCalled(t, "FindByOrderID", mock.Anything, mock.Anything)
}

func TestPaymentWebhook_UnknownOrder(t *testing.T) {
	f := newWebhookFixture(t)
	payload := callbackPayload("bog-404", "ED-404", "completed")
	f.gateway.On("VerifyCallbackSignature", payload, "sig").Return(nil)
	f.orderRepo.On("FindByOrderID", mock.Anything, "ED-404").Return(nil, shared.ErrNotFound)
	f.orderRepo.On("FindByProviderOrderID", mock.Anything, "bog-404").Return(nil, shared.ErrNotFound)

	_, err := f.svc.ProcessCallback(context.Background(), payload, "sig")
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ORDER_NOT_FOUND", domainErr.Code)
}

func TestPaymentWebhook_PaidRenewal(t *testing.T) {
	f := newWebhookFixture(t)
	tenantID := uuid.New()
	pkg := newTestPackage(t, 5, 1000, 10)
	order := newProviderOrder(t, tenantID, pkg)
	sub := newTestSubscription(t, tenantID, pkg)
	sub.WhatsAppMessagesUsed = 42
	originalExpiry := sub.ExpiresAt

	tenant, err := identity.NewTenant("acme", "Acme Ltd", "admin@acme.ge")
	require.NoError(t, err)

	payload := callbackPayload(order.ProviderOrderID, order.OrderID, "completed")
	f.gateway.On("VerifyCallbackSignature", payload, "sig").Return(nil)
	f.orderRepo.On("FindByOrderID", mock.Anything, order.OrderID).Return(order, nil)
	f.gateway.On("GetOrderDetails", mock.Anything, order.ProviderOrderID).Return(&billing.OrderDetails{
		ProviderOrderID: order.ProviderOrderID,
		Status:          billing.GatewayStatusCompleted,
		Amount:          order.Amount,
		Currency:        "GEL",
		CardSaved:       true,
	}, nil)
	f.orderRepo.On("Save", mock.Anything, order).Return(nil)
	f.pkgRepo.On("FindByID", mock.Anything, pkg.ID).Return(pkg, nil)
	f.subRepo.On("FindByTenant", mock.Anything, tenantID).Return(sub, nil)
	f.subRepo.On("Save", mock.Anything, sub).Return(nil)
	f.tenantRepo.On("FindByID", mock.Anything, tenantID).Return(tenant, nil)
	f.tenantRepo.On("Save", mock.Anything, tenant).Return(nil)

	result, err := f.svc.ProcessCallback(context.Background(), payload, "sig")
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.True(t, order.IsPaid())
	assert.True(t, order.CardSaved)
	assert.True(t, sub.ExpiresAt.After(originalExpiry))
	assert.Equal(t, 0, sub.WhatsAppMessagesUsed, "monthly counters reset on renewal")

	done, err := f.dedup.IsProcessed(context.Background(), "bog:callback:"+order.ProviderOrderID+":completed")
	require.NoError(t, err)
	assert.True(t, done, "dedup marker set after settlement")
}

func TestPaymentWebhook_PaidSignupProvisionsTenant(t *testing.T) {
	f := newWebhookFixture(t)
	pkg := newTestPackage(t, 5, 1000, 10)

	reg, err := billing.NewPendingRegistration("owner@tbilisi.ge", "Tbilisi Telecom", "tbilisi", "s3cret-pass", pkg.ID, 3)
	require.NoError(t, err)
	reg.AdminFirstName = "Giorgi"
	reg.AdminLastName = "Khutsishvili"

	order, err := billing.NewCheckoutOrder(reg.ID, pkg.ID, decimal.NewFromInt(450), 3)
	require.NoError(t, err)
	order.SetMetadata(MetadataRegistrationID, reg.ID.String())
	require.NoError(t, order.AttachProvider("bog-signup", "https://pay.example/signup"))
	reg.AttachOrder(order.OrderID)

	var provisionedTenant *identity.Tenant
	var createdAdmin *identity.User

	payload := callbackPayload("bog-signup", order.OrderID, "completed")
	f.gateway.On("VerifyCallbackSignature", payload, "sig").Return(nil)
	f.orderRepo.On("FindByOrderID", mock.Anything, order.OrderID).Return(order, nil)
	f.gateway.On("GetOrderDetails", mock.Anything, "bog-signup").Return(&billing.OrderDetails{
		ProviderOrderID: "bog-signup",
		Status:          billing.GatewayStatusCompleted,
		CardSaved:       true,
	}, nil)
	f.orderRepo.On("Save", mock.Anything, order).Return(nil)
	f.regRepo.On("FindByOrderID", mock.Anything, order.OrderID).Return(reg, nil)
	f.regRepo.On("Save", mock.Anything, reg).Return(nil)
	f.tenantRepo.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		provisionedTenant = args.Get(1).(*identity.Tenant)
	}).Return(nil)
	f.userRepo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		createdAdmin = args.Get(1).(*identity.User)
	}).Return(nil)
	f.pkgRepo.On("FindByID", mock.Anything, pkg.ID).Return(pkg, nil)
	f.subRepo.On("FindByTenant", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)
	f.subRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	// The status sync re-reads the tenant; the exact lookup is covered
	// by the renewal test, so a miss (logged and tolerated) is enough.
	f.tenantRepo.On("FindByID", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)

	result, err := f.svc.ProcessCallback(context.Background(), payload, "sig")
	require.NoError(t, err)
	assert.True(t, result.Processed)

	require.NotNil(t, provisionedTenant)
	assert.Equal(t, "tbilisi", provisionedTenant.Schema)
	assert.Equal(t, "Tbilisi Telecom", provisionedTenant.Name)

	require.NotNil(t, createdAdmin)
	assert.Equal(t, "owner@tbilisi.ge", createdAdmin.Email)
	assert.True(t, createdAdmin.IsTenantAdmin)
	assert.True(t, createdAdmin.VerifyPassword("s3cret-pass"),
		"admin keeps the password chosen at signup")
	assert.Equal(t, "Giorgi Khutsishvili", createdAdmin.FullName())

	assert.True(t, reg.IsProcessed)
	require.NotNil(t, reg.TenantID)
	assert.Equal(t, provisionedTenant.ID, *reg.TenantID)
	assert.Equal(t, provisionedTenant.ID, order.TenantID, "order re-homed onto the new tenant")
}

func TestPaymentWebhook_SignupDuplicateSettlementReusesTenant(t *testing.T) {
	f := newWebhookFixture(t)
	pkg := newTestPackage(t, 5, 1000, 10)
	existingTenantID := uuid.New()

	reg, err := billing.NewPendingRegistration("owner@dup.ge", "Dup LLC", "dup", "s3cret-pass", pkg.ID, 1)
	require.NoError(t, err)
	require.NoError(t, reg.MarkProcessed(existingTenantID))

	order, err := billing.NewCheckoutOrder(reg.ID, pkg.ID, decimal.NewFromInt(150), 1)
	require.NoError(t, err)
	order.SetMetadata(MetadataRegistrationID, reg.ID.String())
	require.NoError(t, order.AttachProvider("bog-dup", ""))
	reg.AttachOrder(order.OrderID)

	tenant, err := identity.NewTenant("dup", "Dup LLC", "owner@dup.ge")
	require.NoError(t, err)
	existingAdmin, err := identity.NewTenantAdminFromHash(existingTenantID, "owner@dup.ge", reg.AdminPasswordHash)
	require.NoError(t, err)

	payload := callbackPayload("bog-dup", order.OrderID, "completed")
	f.gateway.On("VerifyCallbackSignature", payload, "sig").Return(nil)
	f.orderRepo.On("FindByOrderID", mock.Anything, order.OrderID).Return(order, nil)
	f.gateway.On("GetOrderDetails", mock.Anything, "bog-dup").Return(&billing.OrderDetails{
		ProviderOrderID: "bog-dup",
		Status:          billing.GatewayStatusCompleted,
	}, nil)
	f.orderRepo.On("Save", mock.Anything, order).Return(nil)
	f.regRepo.On("FindByOrderID", mock.Anything, order.OrderID).Return(reg, nil)
	f.userRepo.On("FindByEmail", mock.Anything, existingTenantID, "owner@dup.ge").Return(existingAdmin, nil)
	f.pkgRepo.On("FindByID", mock.Anything, pkg.ID).Return(pkg, nil)
	f.subRepo.On("FindByTenant", mock.Anything, existingTenantID).Return(nil, shared.ErrNotFound)
	f.subRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.tenantRepo.On("FindByID", mock.Anything, existingTenantID).Return(tenant, nil)
	f.tenantRepo.On("Save", mock.Anything, tenant).Return(nil)

	result, err := f.svc.ProcessCallback(context.Background(), payload, "sig")
	require.NoError(t, err)
	assert.True(t, result.Processed)

	// No second tenant or admin was created.
	f.tenantRepo.AssertNumberOfCalls(t, "Save", 1)
	f.userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPaymentWebhook_SignupResumesAfterProvisioningFailure(t *testing.T) {
	f := newWebhookFixture(t)
	pkg := newTestPackage(t, 5, 1000, 10)

	reg, err := billing.NewPendingRegistration("owner@kutaisi.ge", "Kutaisi Wines", "kutaisi", "s3cret-pass", pkg.ID, 2)
	require.NoError(t, err)

	order, err := billing.NewCheckoutOrder(reg.ID, pkg.ID, decimal.NewFromInt(300), 2)
	require.NoError(t, err)
	order.SetMetadata(MetadataRegistrationID, reg.ID.String())
	require.NoError(t, order.AttachProvider("bog-resume", ""))
	reg.AttachOrder(order.OrderID)

	payload := callbackPayload("bog-resume", order.OrderID, "completed")
	f.gateway.On("VerifyCallbackSignature", payload, "sig").Return(nil)
	f.orderRepo.On("FindByOrderID", mock.Anything, order.OrderID).Return(order, nil)
	f.gateway.On("GetOrderDetails", mock.Anything, "bog-resume").Return(&billing.OrderDetails{
		ProviderOrderID: "bog-resume",
		Status:          billing.GatewayStatusCompleted,
	}, nil)
	f.orderRepo.On("Save", mock.Anything, order).Return(nil)
	f.regRepo.On("FindByOrderID", mock.Anything, order.OrderID).Return(reg, nil)
	f.regRepo.On("Save", mock.Anything, reg).Return(nil)
	f.tenantRepo.On("FindByID", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)

	// The first delivery dies creating the tenant, after the order was
	// already marked paid and the registration claimed.
	f.tenantRepo.On("Save", mock.Anything, mock.Anything).Return(fmt.Errorf("connection reset")).Once()

	_, err = f.svc.ProcessCallback(context.Background(), payload, "sig")
	require.Error(t, err)
	assert.True(t, order.IsPaid())
	assert.True(t, reg.IsProcessed)
	f.userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	// The provider retries. The paid order must not short-circuit the
	// redelivery: the tenant, admin and subscription all get created.
	var provisionedTenant *identity.Tenant
	var createdAdmin *identity.User
	f.tenantRepo.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		provisionedTenant = args.Get(1).(*identity.Tenant)
	}).Return(nil)
	f.userRepo.On("FindByEmail", mock.Anything, mock.Anything, "owner@kutaisi.ge").Return(nil, shared.ErrNotFound)
	f.userRepo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		createdAdmin = args.Get(1).(*identity.User)
	}).Return(nil)
	f.pkgRepo.On("FindByID", mock.Anything, pkg.ID).Return(pkg, nil)
	f.subRepo.On("FindByTenant", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)
	f.subRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.ProcessCallback(context.Background(), payload, "sig")
	require.NoError(t, err)
	assert.True(t, result.Processed)

	require.NotNil(t, provisionedTenant)
	assert.Equal(t, "kutaisi", provisionedTenant.Schema)
	require.NotNil(t, reg.TenantID)
	assert.Equal(t, *reg.TenantID, provisionedTenant.ID,
		"resumed provisioning reuses the tenant ID reserved on the first delivery")

	require.NotNil(t, createdAdmin)
	assert.Equal(t, "owner@kutaisi.ge", createdAdmin.Email)
	f.subRepo.AssertCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestPaymentWebhook_RejectedMarksOrderFailed(t *testing.T) {
	f := newWebhookFixture(t)
	tenantID := uuid.New()
	pkg := newTestPackage(t, 5, 0, 0)
	order := newProviderOrder(t, tenantID, pkg)

	payload := callbackPayload(order.ProviderOrderID, order.OrderID, "rejected")
	f.gateway.On("VerifyCallbackSignature", payload, "sig").Return(nil)
	f.orderRepo.On("FindByOrderID", mock.Anything, order.OrderID).Return(order, nil)
	f.gateway.On("GetOrderDetails", mock.Anything, order.ProviderOrderID).Return(&billing.OrderDetails{
		ProviderOrderID: order.ProviderOrderID,
		Status:          billing.GatewayStatusRejected,
		RejectReason:    "insufficient funds",
	}, nil)
	f.orderRepo.On("Save", mock.Anything, order).Return(nil)

	result, err := f.svc.ProcessCallback(context.Background(), payload, "sig")
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, billing.PaymentStatusFailed, order.Status)
	assert.Equal(t, "insufficient funds", order.FailureReason)
	f.subRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestPaymentWebhook_AlreadyPaidOrderIsNoop(t *testing.T) {
	f := newWebhookFixture(t)
	tenantID := uuid.New()
	pkg := newTestPackage(t, 5, 0, 0)
	order := newProviderOrder(t, tenantID, pkg)
	require.NoError(t, order.MarkPaid(true))
	order.ClearDomainEvents()

	// The subscription was billed when the order settled, so nothing is
	// outstanding for this redelivery.
	sub, err := billing.NewSubscription(tenantID, pkg.ID, billing.BillingPeriodMonthly, 1)
	require.NoError(t, err)

	payload := callbackPayload(order.ProviderOrderID, order.OrderID, "completed")
	f.gateway.On("VerifyCallbackSignature", payload, "sig").Return(nil)
	f.orderRepo.On("FindByOrderID", mock.Anything, order.OrderID).Return(order, nil)
	f.gateway.On("GetOrderDetails", mock.Anything, order.ProviderOrderID).Return(&billing.OrderDetails{
		ProviderOrderID: order.ProviderOrderID,
		Status:          billing.GatewayStatusCompleted,
		CardSaved:       true,
	}, nil)
	f.subRepo.On("FindByTenant", mock.Anything, tenantID).Return(sub, nil)

	result, err := f.svc.ProcessCallback(context.Background(), payload, "sig")
	require.NoError(t, err)
	assert.True(t, result.Processed)
	f.orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.subRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
