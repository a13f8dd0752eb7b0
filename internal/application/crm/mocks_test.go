package crm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/echodesk/backend/internal/domain/crm"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockCallLogRepository struct {
	mock.Mock
}

func (m *MockCallLogRepository) Save(ctx context.Context, call *crm.CallLog) error {
	args := m.Called(ctx, call)
	return args.Error(0)
}

func (m *MockCallLogRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*crm.CallLog, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.CallLog), args.Error(1)
}

func (m *MockCallLogRepository) FindBySipCallID(ctx context.Context, tenantID uuid.UUID, sipCallID string) (*crm.CallLog, error) {
	args := m.Called(ctx, tenantID, sipCallID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.CallLog), args.Error(1)
}

func (m *MockCallLogRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter crm.CallLogFilter) (*shared.Paginated[*crm.CallLog], error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*crm.CallLog]), args.Error(1)
}

func (m *MockCallLogRepository) FindLive(ctx context.Context, tenantID uuid.UUID) ([]*crm.CallLog, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*crm.CallLog), args.Error(1)
}

func (m *MockCallLogRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (map[crm.CallStatus]int64, error) {
	args := m.Called(ctx, tenantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[crm.CallStatus]int64), args.Error(1)
}

func (m *MockCallLogRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// callEventSink collects appended timeline rows.
type callEventSink struct {
	mu     sync.Mutex
	events []*crm.CallEvent
	err    error
}

func (r *callEventSink) Append(ctx context.Context, event *crm.CallEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *callEventSink) FindByCall(ctx context.Context, tenantID, callLogID uuid.UUID) ([]*crm.CallEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*crm.CallEvent
	for _, ev := range r.events {
		if ev.TenantID == tenantID && ev.CallLogID == callLogID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r *callEventSink) types() []crm.CallEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]crm.CallEventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

type MockCallRecordingRepository struct {
	mock.Mock
}

func (m *MockCallRecordingRepository) Save(ctx context.Context, rec *crm.CallRecording) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockCallRecordingRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*crm.CallRecording, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.CallRecording), args.Error(1)
}

func (m *MockCallRecordingRepository) FindByCall(ctx context.Context, tenantID, callLogID uuid.UUID) ([]*crm.CallRecording, error) {
	args := m.Called(ctx, tenantID, callLogID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*crm.CallRecording), args.Error(1)
}

func (m *MockCallRecordingRepository) SumStorageBytes(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) Save(ctx context.Context, client *crm.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *MockClientRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*crm.Client, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Client), args.Error(1)
}

func (m *MockClientRepository) FindByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*crm.Client, error) {
	args := m.Called(ctx, tenantID, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Client), args.Error(1)
}

func (m *MockClientRepository) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*crm.Client, error) {
	args := m.Called(ctx, tenantID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Client), args.Error(1)
}

func (m *MockClientRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*crm.Client], error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*crm.Client]), args.Error(1)
}

func (m *MockClientRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
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

// fakeStorageQuota rejects uploads when over is set.
type fakeStorageQuota struct {
	mu    sync.Mutex
	over  bool
	calls []decimal.Decimal
}

func (f *fakeStorageQuota) CheckStorageQuota(ctx context.Context, tenantID uuid.UUID, deltaGB decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, deltaGB)
	if f.over {
		return shared.NewDomainError("QUOTA_EXCEEDED", "Storage quota exceeded")
	}
	return nil
}

// fakeRecordingStorage is an in-memory RecordingStorage.
type fakeRecordingStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	failAll bool
}

func newFakeRecordingStorage() *fakeRecordingStorage {
	return &fakeRecordingStorage{objects: make(map[string][]byte)}
}

func (f *fakeRecordingStorage) GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	if f.failAll {
		return "", time.Time{}, fmt.Errorf("storage unavailable")
	}
	return "https://storage.test/upload/" + storageKey, time.Now().Add(expiresIn), nil
}

func (f *fakeRecordingStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if f.failAll {
		return "", time.Time{}, fmt.Errorf("storage unavailable")
	}
	return "https://storage.test/download/" + storageKey, time.Now().Add(expiresIn), nil
}

func (f *fakeRecordingStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[storageKey] = data
	return nil
}

func (f *fakeRecordingStorage) DeleteObject(ctx context.Context, storageKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, storageKey)
	f.deleted = append(f.deleted, storageKey)
	return nil
}

func (f *fakeRecordingStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[storageKey]
	return ok, nil
}
