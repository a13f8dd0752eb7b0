package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeOutboxRepo is an in-memory OutboxRepository for processor tests.
// Individual methods can be overridden per test through the fn hooks.
type fakeOutboxRepo struct {
	mu               sync.Mutex
	entries          map[uuid.UUID]*shared.OutboxEntry
	findPendingFn    func(ctx context.Context, limit int) ([]*shared.OutboxEntry, error)
	findRetryableFn  func(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error)
	markProcessingFn func(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error)
	updateFn         func(ctx context.Context, entry *shared.OutboxEntry) error
	deleteFn         func(ctx context.Context, before time.Time) (int64, error)
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *fakeOutboxRepo) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *fakeOutboxRepo) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	if r.findPendingFn != nil {
		return r.findPendingFn(ctx, limit)
	}
	return r.byStatus(shared.OutboxStatusPending, limit), nil
}

func (r *fakeOutboxRepo) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	if r.findRetryableFn != nil {
		return r.findRetryableFn(ctx, before, limit)
	}
	return nil, nil
}

func (r *fakeOutboxRepo) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	if r.markProcessingFn != nil {
		return r.markProcessingFn(ctx, ids)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var claimed []*shared.OutboxEntry
	for _, id := range ids {
		if e, ok := r.entries[id]; ok {
			e.Status = shared.OutboxStatusProcessing
			claimed = append(claimed, e)
		}
	}
	return claimed, nil
}

func (r *fakeOutboxRepo) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	if r.updateFn != nil {
		return r.updateFn(ctx, entry)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ID] = entry
	return nil
}

func (r *fakeOutboxRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	if r.deleteFn != nil {
		return r.deleteFn(ctx, before)
	}
	return 0, nil
}

func (r *fakeOutboxRepo) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	dead := r.byStatus(shared.OutboxStatusDead, pageSize)
	return dead, int64(len(dead)), nil
}

func (r *fakeOutboxRepo) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id], nil
}

func (r *fakeOutboxRepo) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func (r *fakeOutboxRepo) byStatus(status shared.OutboxStatus, limit int) []*shared.OutboxEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == status {
			result = append(result, e)
			if len(result) >= limit {
				break
			}
		}
	}
	return result
}

func (r *fakeOutboxRepo) statusOf(id uuid.UUID) shared.OutboxStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id].Status
}

func (r *fakeOutboxRepo) lastErrorOf(id uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id].LastError
}

func TestOutboxProcessor_DeliversPendingEntries(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("crm.call.ended", &testEvent{})

	repo := newFakeOutboxRepo()
	eventBus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("crm.call.ended")
	eventBus.Subscribe(handler, "crm.call.ended")

	tenantID := uuid.New()
	event := newTestEvent("crm.call.ended", tenantID)
	payload, err := serializer.Serialize(event)
	require.NoError(t, err)
	entry := shared.NewOutboxEntry(tenantID, event, payload)
	require.NoError(t, repo.Save(context.Background(), entry))

	processor := NewOutboxProcessor(repo, eventBus, serializer, OutboxProcessorConfig{
		BatchSize:    100,
		PollInterval: 50 * time.Millisecond,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, processor.Start(ctx))

	time.Sleep(200 * time.Millisecond)

	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, processor.Stop(stopCtx))

	assert.Len(t, handler.getHandled(), 1)
	assert.Equal(t, shared.OutboxStatusSent, repo.statusOf(entry.ID))
}

func TestOutboxProcessor_StopGracefully(t *testing.T) {
	processor := NewOutboxProcessor(
		newFakeOutboxRepo(),
		NewInMemoryEventBus(zap.NewNop()),
		NewEventSerializer(),
		DefaultOutboxProcessorConfig(),
		zap.NewNop())

	require.NoError(t, processor.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, processor.Stop(stopCtx))
}

func TestOutboxProcessor_UnknownEventTypeMarksFailed(t *testing.T) {
	// The serializer has no types registered, so deserialization fails and
	// the entry goes onto the retry path.
	serializer := NewEventSerializer()
	repo := newFakeOutboxRepo()

	tenantID := uuid.New()
	event := newTestEvent("crm.fax.received", tenantID)
	entry := shared.NewOutboxEntry(tenantID, event, []byte(`{}`))
	require.NoError(t, repo.Save(context.Background(), entry))

	processor := NewOutboxProcessor(repo, NewInMemoryEventBus(zap.NewNop()), serializer, OutboxProcessorConfig{
		BatchSize:    100,
		PollInterval: 50 * time.Millisecond,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, processor.Start(ctx))

	time.Sleep(200 * time.Millisecond)

	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	_ = processor.Stop(stopCtx)

	assert.Equal(t, shared.OutboxStatusFailed, repo.statusOf(entry.ID))
	assert.Contains(t, repo.lastErrorOf(entry.ID), "unknown event type")
}

func TestDefaultOutboxProcessorConfig(t *testing.T) {
	config := DefaultOutboxProcessorConfig()

	assert.Equal(t, 100, config.BatchSize)
	assert.Equal(t, 5*time.Second, config.PollInterval)
	assert.True(t, config.CleanupEnabled)
	assert.Equal(t, 7*24*time.Hour, config.CleanupRetention)
	assert.Equal(t, 1*time.Hour, config.CleanupInterval)
}
