package social

import (
	"context"
	"sync"
	"time"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/domain/social"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Save(ctx context.Context, msg *social.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*social.Message, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*social.Message), args.Error(1)
}

func (m *MockMessageRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter social.MessageFilter) (*shared.Paginated[*social.Message], error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*social.Message]), args.Error(1)
}

func (m *MockMessageRepository) ExistsByExternalID(ctx context.Context, tenantID uuid.UUID, platform social.Platform, externalID string) (bool, error) {
	args := m.Called(ctx, tenantID, platform, externalID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessageRepository) CountInbound(ctx context.Context, tenantID uuid.UUID, platform social.Platform, from, to time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, platform, from, to)
	return args.Get(0).(int64), args.Error(1)
}

type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) Save(ctx context.Context, conn *social.Connection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *MockConnectionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*social.Connection, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*social.Connection), args.Error(1)
}

func (m *MockConnectionRepository) FindByAccount(ctx context.Context, platform social.Platform, accountID string) (*social.Connection, error) {
	args := m.Called(ctx, platform, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*social.Connection), args.Error(1)
}

func (m *MockConnectionRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*social.Connection, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*social.Connection), args.Error(1)
}

func (m *MockConnectionRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// fakeMessageQuota rejects WhatsApp messages when exhausted is set.
type fakeMessageQuota struct {
	mu        sync.Mutex
	exhausted bool
	counted   []uuid.UUID
}

func (f *fakeMessageQuota) RecordWhatsAppMessage(ctx context.Context, tenantID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exhausted {
		return shared.NewDomainError("QUOTA_EXCEEDED", "WhatsApp message limit reached")
	}
	f.counted = append(f.counted, tenantID)
	return nil
}

// fakeEventBus records published domain events.
type fakeEventBus struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (f *fakeEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
	return nil
}
