package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/infrastructure/scheduler"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type lifecycleFixture struct {
	svc        *LifecycleService
	subRepo    *MockSubscriptionRepository
	pkgRepo    *MockPackageRepository
	orderRepo  *MockPaymentOrderRepository
	regRepo    *MockPendingRegistrationRepository
	usageRepo  *MockUsageLogRepository
	tenantRepo *MockTenantRepository
	gateway    *MockPaymentGateway
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{
		subRepo:    new(MockSubscriptionRepository),
		pkgRepo:    new(MockPackageRepository),
		orderRepo:  new(MockPaymentOrderRepository),
		regRepo:    new(MockPendingRegistrationRepository),
		usageRepo:  new(MockUsageLogRepository),
		tenantRepo: new(MockTenantRepository),
		gateway:    new(MockPaymentGateway),
	}
	f.svc = NewLifecycleService(LifecycleServiceConfig{
		SubRepo:    f.subRepo,
		PkgRepo:    f.pkgRepo,
		OrderRepo:  f.orderRepo,
		RegRepo:    f.regRepo,
		UsageRepo:  f.usageRepo,
		TenantRepo: f.tenantRepo,
		Gateway:    f.gateway,
		Config:     DefaultLifecycleConfig(),
		Logger:     zap.NewNop(),
	})
	return f
}

func newPaidCardOrder(t *testing.T, tenantID uuid.UUID, pkg *billing.Package) *billing.PaymentOrder {
	t.Helper()
	order, err := billing.NewCheckoutOrder(tenantID, pkg.ID, decimal.NewFromInt(150), 1)
	require.NoError(t, err)
	require.NoError(t, order.AttachProvider("bog-parent", ""))
	require.NoError(t, order.MarkPaid(true))
	order.ClearDomainEvents()
	return order
}

func TestLifecycle_RecurringPayments_ChargesSavedCard(t *testing.T) {
	f := newLifecycleFixture(t)
	now := time.Now()
	tenantID := uuid.New()
	pkg := newTestPackage(t, 5, 0, 0)
	sub := newTestSubscription(t, tenantID, pkg)
	parent := newPaidCardOrder(t, tenantID, pkg)

	var charged *billing.PaymentOrder
	f.subRepo.On("FindDueForRenewal", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		return cutoff.After(now.AddDate(0, 0, 2)) && cutoff.Before(now.AddDate(0, 0, 4))
	})).Return([]*billing.TenantSubscription{sub}, nil)
	f.orderRepo.On("FindLastPaidWithCard", mock.Anything, tenantID).Return(parent, nil)
	f.pkgRepo.On("FindByID", mock.Anything, pkg.ID).Return(pkg, nil)
	f.orderRepo.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		charged = args.Get(1).(*billing.PaymentOrder)
	}).Return(nil)
	f.gateway.On("ChargeSavedCard", mock.Anything, "bog-parent", mock.Anything, pkg.PriceGEL, "GEL").
		Return(&billing.CreateOrderResponse{ProviderOrderID: "bog-rec-1"}, nil)

	report, err := f.svc.ProcessRecurringPayments(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, scheduler.JobTypeRecurringPayments, report.Job)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 0, report.Failed)

	require.NotNil(t, charged)
	assert.Equal(t, billing.OrderKindRecurring, charged.Kind)
	assert.Equal(t, billing.PaymentStatusProcessing, charged.Status)
	assert.Equal(t, "bog-rec-1", charged.ProviderOrderID)
	assert.Equal(t, "recurring", charged.MetadataString(MetadataOrderType))
	assert.Equal(t, parent.OrderID, charged.MetadataString(MetadataParentOrderID))
	assert.Equal(t, sub.ID.String(), charged.MetadataString(MetadataSubscriptionID))
}

func TestLifecycle_RecurringPayments_NoSavedCard(t *testing.T) {
	f := newLifecycleFixture(t)
	now := time.Now()
	pkg := newTestPackage(t, 5, 0, 0)
	sub := newTestSubscription(t, uuid.New(), pkg)

	f.subRepo.On("FindDueForRenewal", mock.Anything, mock.Anything).
		Return([]*billing.TenantSubscription{sub}, nil)
	f.orderRepo.On("FindLastPaidWithCard", mock.Anything, sub.TenantID).Return(nil, shared.ErrNotFound)

	report, err := f.svc.ProcessRecurringPayments(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "no saved card")
	f.gateway.AssertNotCalled(t, "ChargeSavedCard", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLifecycle_RecurringPayments_GatewayFailureRecordsOrder(t *testing.T) {
	f := newLifecycleFixture(t)
	now := time.Now()
	pkg := newTestPackage(t, 5, 0, 0)
	sub := newTestSubscription(t, uuid.New(), pkg)
	parent := newPaidCardOrder(t, sub.TenantID, pkg)

	var lastSaved *billing.PaymentOrder
	f.subRepo.On("FindDueForRenewal", mock.Anything, mock.Anything).
		Return([]*billing.TenantSubscription{sub}, nil)
	f.orderRepo.On("FindLastPaidWithCard", mock.Anything, sub.TenantID).Return(parent, nil)
	f.pkgRepo.On("FindByID", mock.Anything, pkg.ID).Return(pkg, nil)
	f.orderRepo.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		lastSaved = args.Get(1).(*billing.PaymentOrder)
	}).Return(nil)
	f.gateway.On("ChargeSavedCard", mock.Anything, "bog-parent", mock.Anything, mock.Anything, "GEL").
		Return(nil, errors.New("card expired"))

	report, err := f.svc.ProcessRecurringPayments(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	require.NotNil(t, lastSaved)
	assert.Equal(t, billing.PaymentStatusFailed, lastSaved.Status)
	assert.Equal(t, "card expired", lastSaved.FailureReason)
}

func TestLifecycle_SubscriptionCheck_SuspendsAfterGrace(t *testing.T) {
	f := newLifecycleFixture(t)
	now := time.Now()
	pkg := newTestPackage(t, 5, 0, 0)
	sub := newTestSubscription(t, uuid.New(), pkg)
	sub.ExpiresAt = now.AddDate(0, 0, -billing.GracePeriodDays-2)

	tenant, err := identity.NewTenant("lapsed", "Lapsed Co", "admin@lapsed.ge")
	require.NoError(t, err)

	f.subRepo.On("FindExpiring", mock.Anything, mock.Anything).Return([]*billing.TenantSubscription{}, nil)
	f.subRepo.On("FindInGrace", mock.Anything).Return([]*billing.TenantSubscription{}, nil)
	f.subRepo.On("FindGraceExpired", mock.Anything).Return([]*billing.TenantSubscription{sub}, nil)
	f.subRepo.On("Save", mock.Anything, sub).Return(nil)
	f.tenantRepo.On("FindByID", mock.Anything, sub.TenantID).Return(tenant, nil)
	f.tenantRepo.On("Save", mock.Anything, tenant).Return(nil)

	report, err := f.svc.CheckSubscriptionStatus(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, scheduler.JobTypeSubscriptionCheck, report.Job)
	assert.Equal(t, 1, report.Succeeded)
	assert.False(t, sub.IsActive)
	assert.True(t, tenant.IsSuspended())
}

func TestLifecycle_SubscriptionCheck_RemindersCounted(t *testing.T) {
	f := newLifecycleFixture(t)
	now := time.Now()
	pkg := newTestPackage(t, 5, 0, 0)
	subA := newTestSubscription(t, uuid.New(), pkg)
	subB := newTestSubscription(t, uuid.New(), pkg)

	f.subRepo.On("FindExpiring", mock.Anything, 7).Return([]*billing.TenantSubscription{subA}, nil)
	f.subRepo.On("FindExpiring", mock.Anything, 3).Return([]*billing.TenantSubscription{subB}, nil)
	f.subRepo.On("FindInGrace", mock.Anything).Return([]*billing.TenantSubscription{}, nil)
	f.subRepo.On("FindGraceExpired", mock.Anything).Return([]*billing.TenantSubscription{}, nil)

	report, err := f.svc.CheckSubscriptionStatus(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
}

func TestLifecycle_SubscriptionCheck_WarnsEveryInGraceSubscription(t *testing.T) {
	f := newLifecycleFixture(t)
	now := time.Now()
	pkg := newTestPackage(t, 5, 0, 0)

	// Expired two and five days ago, both still inside the grace window.
	// Each run warns them again until payment or suspension.
	subA := newTestSubscription(t, uuid.New(), pkg)
	subA.ExpiresAt = now.AddDate(0, 0, -2)
	subB := newTestSubscription(t, uuid.New(), pkg)
	subB.ExpiresAt = now.AddDate(0, 0, -5)

	f.subRepo.On("FindExpiring", mock.Anything, mock.Anything).Return([]*billing.TenantSubscription{}, nil)
	f.subRepo.On("FindInGrace", mock.Anything).Return([]*billing.TenantSubscription{subA, subB}, nil)
	f.subRepo.On("FindGraceExpired", mock.Anything).Return([]*billing.TenantSubscription{}, nil)

	report, err := f.svc.CheckSubscriptionStatus(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Succeeded)
	f.subRepo.AssertNumberOfCalls(t, "FindInGrace", 1)
}

func TestLifecycle_TrialExpirations(t *testing.T) {
	f := newLifecycleFixture(t)
	now := time.Now()

	trial, err := identity.NewTrialTenant("trialco", "Trial Co", "admin@trial.ge", 14)
	require.NoError(t, err)

	f.tenantRepo.On("FindTrialExpired", mock.Anything).Return([]identity.Tenant{*trial}, nil)
	f.tenantRepo.On("Save", mock.Anything, mock.MatchedBy(func(tn *identity.Tenant) bool {
		return tn.IsSuspended()
	})).Return(nil)

	report, err := f.svc.ProcessTrialExpirations(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, scheduler.JobTypeTrialExpirations, report.Job)
	assert.Equal(t, 1, report.Succeeded)
	f.tenantRepo.AssertExpectations(t)
}

func TestLifecycle_CleanupExpiredRegistrations(t *testing.T) {
	f := newLifecycleFixture(t)
	now := time.Now()

	f.regRepo.On("DeleteExpired", mock.Anything, now).Return(int64(4), nil)

	report, err := f.svc.CleanupExpiredRegistrations(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, scheduler.JobTypeRegistrationCleanup, report.Job)
	assert.Equal(t, 4, report.Processed)
	assert.Equal(t, 4, report.Succeeded)
}

func TestLifecycle_PruneUsageLogs(t *testing.T) {
	f := newLifecycleFixture(t)
	now := time.Now()

	f.usageRepo.On("DeleteOlderThan", mock.Anything, mock.MatchedBy(func(before time.Time) bool {
		return before.Before(now.AddDate(0, 0, -364))
	})).Return(int64(100), nil)

	report, err := f.svc.PruneUsageLogs(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, scheduler.JobTypeUsageRetention, report.Job)
	assert.Equal(t, 100, report.Processed)
}
