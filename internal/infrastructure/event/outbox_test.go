package event

import (
	"testing"
	"time"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOutboxEntry(t *testing.T) {
	tenantID := uuid.New()
	event := newTestEvent("crm.call.ended", tenantID)
	payload := []byte(`{"duration":185}`)

	entry := shared.NewOutboxEntry(tenantID, event, payload)

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, tenantID, entry.TenantID)
	assert.Equal(t, event.EventID(), entry.EventID)
	assert.Equal(t, "crm.call.ended", entry.EventType)
	assert.Equal(t, event.AggregateID(), entry.AggregateID)
	assert.Equal(t, "CallLog", entry.AggregateType)
	assert.Equal(t, payload, entry.Payload)
	assert.Equal(t, shared.OutboxStatusPending, entry.Status)
	assert.Equal(t, 0, entry.RetryCount)
	assert.Equal(t, shared.DefaultMaxRetries, entry.MaxRetries)
}

func TestOutboxEntry_CanRetry(t *testing.T) {
	tests := []struct {
		name       string
		status     shared.OutboxStatus
		retryCount int
		canRetry   bool
	}{
		{"pending is not retryable", shared.OutboxStatusPending, 0, false},
		{"failed with budget left", shared.OutboxStatusFailed, 2, true},
		{"failed at max retries", shared.OutboxStatusFailed, 5, false},
		{"dead", shared.OutboxStatusDead, 5, false},
		{"sent", shared.OutboxStatusSent, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &shared.OutboxEntry{
				Status:     tt.status,
				RetryCount: tt.retryCount,
				MaxRetries: 5,
			}
			assert.Equal(t, tt.canRetry, entry.CanRetry())
		})
	}
}

func TestOutboxEntry_MarkProcessing(t *testing.T) {
	t.Run("from pending", func(t *testing.T) {
		entry := &shared.OutboxEntry{Status: shared.OutboxStatusPending}

		require.NoError(t, entry.MarkProcessing())
		assert.Equal(t, shared.OutboxStatusProcessing, entry.Status)
	})

	t.Run("from failed", func(t *testing.T) {
		entry := &shared.OutboxEntry{Status: shared.OutboxStatusFailed}

		require.NoError(t, entry.MarkProcessing())
		assert.Equal(t, shared.OutboxStatusProcessing, entry.Status)
	})

	t.Run("sent entries stay sent", func(t *testing.T) {
		entry := &shared.OutboxEntry{Status: shared.OutboxStatusSent}

		require.Error(t, entry.MarkProcessing())
	})
}

func TestOutboxEntry_MarkSent(t *testing.T) {
	entry := &shared.OutboxEntry{Status: shared.OutboxStatusProcessing}

	entry.MarkSent()

	assert.Equal(t, shared.OutboxStatusSent, entry.Status)
	assert.NotNil(t, entry.ProcessedAt)
}

func TestOutboxEntry_MarkFailed(t *testing.T) {
	t.Run("first failure schedules a retry", func(t *testing.T) {
		entry := &shared.OutboxEntry{
			Status:     shared.OutboxStatusProcessing,
			RetryCount: 0,
			MaxRetries: 5,
		}

		entry.MarkFailed("webhook endpoint unreachable")

		assert.Equal(t, shared.OutboxStatusFailed, entry.Status)
		assert.Equal(t, 1, entry.RetryCount)
		assert.Equal(t, "webhook endpoint unreachable", entry.LastError)
		require.NotNil(t, entry.NextRetryAt)
		assert.True(t, entry.NextRetryAt.After(time.Now()))
		assert.True(t, entry.NextRetryAt.Before(time.Now().Add(2*time.Second)))
	})

	t.Run("exhausting retries moves the entry to dead", func(t *testing.T) {
		entry := &shared.OutboxEntry{
			Status:     shared.OutboxStatusProcessing,
			RetryCount: 4,
			MaxRetries: 5,
		}

		entry.MarkFailed("webhook endpoint unreachable")

		assert.Equal(t, shared.OutboxStatusDead, entry.Status)
		assert.Equal(t, 5, entry.RetryCount)
		assert.True(t, entry.IsDead())
	})

	t.Run("backoff doubles per attempt", func(t *testing.T) {
		entry := &shared.OutboxEntry{
			Status:     shared.OutboxStatusProcessing,
			RetryCount: 3,
			MaxRetries: 5,
		}

		before := time.Now()
		entry.MarkFailed("timeout")

		// Fourth attempt waits 2^3 = 8 seconds.
		assert.True(t, entry.NextRetryAt.After(before.Add(7*time.Second)))
		assert.True(t, entry.NextRetryAt.Before(before.Add(10*time.Second)))
	})
}

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	t.Run("requeues a dead entry", func(t *testing.T) {
		entry := &shared.OutboxEntry{
			Status:     shared.OutboxStatusDead,
			RetryCount: 5,
			MaxRetries: 5,
			LastError:  "webhook endpoint unreachable",
		}

		require.NoError(t, entry.ResetForRetry())

		assert.Equal(t, shared.OutboxStatusPending, entry.Status)
		assert.Equal(t, 0, entry.RetryCount)
	})

	t.Run("rejects entries that are not dead", func(t *testing.T) {
		entry := &shared.OutboxEntry{Status: shared.OutboxStatusPending}

		require.Error(t, entry.ResetForRetry())
	})
}
