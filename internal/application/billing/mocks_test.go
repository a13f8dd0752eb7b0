package billing

import (
	"context"
	"sync"
	"time"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// Mock implementations shared across the billing service tests.

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Save(ctx context.Context, sub *billing.TenantSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.TenantSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.TenantSubscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.TenantSubscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.TenantSubscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindDueForRenewal(ctx context.Context, cutoff time.Time) ([]*billing.TenantSubscription, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.TenantSubscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindExpiring(ctx context.Context, daysAhead int) ([]*billing.TenantSubscription, error) {
	args := m.Called(ctx, daysAhead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.TenantSubscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindInGrace(ctx context.Context) ([]*billing.TenantSubscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.TenantSubscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindGraceExpired(ctx context.Context) ([]*billing.TenantSubscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.TenantSubscription), args.Error(1)
}

type MockPackageRepository struct {
	mock.Mock
}

func (m *MockPackageRepository) Save(ctx context.Context, pkg *billing.Package) error {
	args := m.Called(ctx, pkg)
	return args.Error(0)
}

func (m *MockPackageRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Package, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Package), args.Error(1)
}

func (m *MockPackageRepository) FindByName(ctx context.Context, name string) (*billing.Package, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Package), args.Error(1)
}

func (m *MockPackageRepository) FindActive(ctx context.Context) ([]*billing.Package, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Package), args.Error(1)
}

func (m *MockPackageRepository) FindAll(ctx context.Context) ([]*billing.Package, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Package), args.Error(1)
}

func (m *MockPackageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockPaymentOrderRepository struct {
	mock.Mock
}

func (m *MockPaymentOrderRepository) Save(ctx context.Context, order *billing.PaymentOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockPaymentOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.PaymentOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentOrder), args.Error(1)
}

func (m *MockPaymentOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*billing.PaymentOrder, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentOrder), args.Error(1)
}

func (m *MockPaymentOrderRepository) FindByProviderOrderID(ctx context.Context, providerOrderID string) (*billing.PaymentOrder, error) {
	args := m.Called(ctx, providerOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentOrder), args.Error(1)
}

func (m *MockPaymentOrderRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.PaymentOrder, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.PaymentOrder), args.Error(1)
}

func (m *MockPaymentOrderRepository) FindLastPaidWithCard(ctx context.Context, tenantID uuid.UUID) (*billing.PaymentOrder, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentOrder), args.Error(1)
}

type MockPendingRegistrationRepository struct {
	mock.Mock
}

func (m *MockPendingRegistrationRepository) Save(ctx context.Context, reg *billing.PendingRegistration) error {
	args := m.Called(ctx, reg)
	return args.Error(0)
}

func (m *MockPendingRegistrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.PendingRegistration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PendingRegistration), args.Error(1)
}

func (m *MockPendingRegistrationRepository) FindByOrderID(ctx context.Context, orderID string) (*billing.PendingRegistration, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PendingRegistration), args.Error(1)
}

func (m *MockPendingRegistrationRepository) ExistsUnprocessedBySchema(ctx context.Context, schema string) (bool, error) {
	args := m.Called(ctx, schema)
	return args.Bool(0), args.Error(1)
}

func (m *MockPendingRegistrationRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type MockUsageLogRepository struct {
	mock.Mock
}

func (m *MockUsageLogRepository) Save(ctx context.Context, log *billing.UsageLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockUsageLogRepository) SaveBatch(ctx context.Context, logs []*billing.UsageLog) error {
	args := m.Called(ctx, logs)
	return args.Error(0)
}

func (m *MockUsageLogRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, eventType billing.UsageEventType, from, to time.Time) ([]*billing.UsageLog, error) {
	args := m.Called(ctx, tenantID, eventType, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.UsageLog), args.Error(1)
}

func (m *MockUsageLogRepository) SumByTenant(ctx context.Context, tenantID uuid.UUID, eventType billing.UsageEventType, from, to time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, eventType, from, to)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockUsageLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindBySchema(ctx context.Context, schema string) (*identity.Tenant, error) {
	args := m.Called(ctx, schema)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByDomain(ctx context.Context, domain string) (*identity.Tenant, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Tenant, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByStatus(ctx context.Context, status identity.TenantStatus, filter shared.Filter) ([]identity.Tenant, error) {
	args := m.Called(ctx, status, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockTenantRepository) FindTrialExpired(ctx context.Context) ([]identity.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTenantRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTenantRepository) CountByStatus(ctx context.Context, status identity.TenantStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTenantRepository) ExistsBySchema(ctx context.Context, schema string) (bool, error) {
	args := m.Called(ctx, schema)
	return args.Bool(0), args.Error(1)
}

func (m *MockTenantRepository) ExistsByDomain(ctx context.Context, domain string) (bool, error) {
	args := m.Called(ctx, domain)
	return args.Bool(0), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*identity.User, error) {
	args := m.Called(ctx, tenantID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter identity.UserFilter) ([]*identity.User, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*identity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error) {
	args := m.Called(ctx, tenantID, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) SaveUserRoles(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) LoadUserRoles(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, req *billing.CreateOrderRequest) (*billing.CreateOrderResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CreateOrderResponse), args.Error(1)
}

func (m *MockPaymentGateway) GetOrderDetails(ctx context.Context, providerOrderID string) (*billing.OrderDetails, error) {
	args := m.Called(ctx, providerOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.OrderDetails), args.Error(1)
}

func (m *MockPaymentGateway) ChargeSavedCard(ctx context.Context, parentProviderOrderID, orderID string, amount decimal.Decimal, currency string) (*billing.CreateOrderResponse, error) {
	args := m.Called(ctx, parentProviderOrderID, orderID, amount, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CreateOrderResponse), args.Error(1)
}

func (m *MockPaymentGateway) VerifyCallbackSignature(body []byte, signature string) error {
	args := m.Called(body, signature)
	return args.Error(0)
}

// fakeIdempotencyStore is a map-backed shared.IdempotencyStore.
type fakeIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{seen: make(map[string]bool)}
}

func (f *fakeIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[eventID] {
		return false, nil
	}
	f.seen[eventID] = true
	return true, nil
}

func (f *fakeIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[eventID], nil
}

func (f *fakeIdempotencyStore) Close() error {
	return nil
}
