package event

import (
	"testing"
	"time"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callCompletedEvent stands in for a real domain event in serializer tests.
type callCompletedEvent struct {
	shared.BaseDomainEvent
	Direction string `json:"direction"`
	Duration  int    `json:"duration"`
}

func newCallCompletedEvent() *callCompletedEvent {
	return &callCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("crm.call.completed", "CallLog", uuid.New(), uuid.New()),
		Direction:       "inbound",
		Duration:        185,
	}
}

func TestEventSerializer_Register(t *testing.T) {
	serializer := NewEventSerializer()

	serializer.Register("crm.call.completed", &callCompletedEvent{})

	assert.True(t, serializer.IsRegistered("crm.call.completed"))
	assert.False(t, serializer.IsRegistered("crm.call.missed"))
}

func TestEventSerializer_RegisteredTypes(t *testing.T) {
	serializer := NewEventSerializer()

	serializer.Register("crm.call.completed", &callCompletedEvent{})
	serializer.Register("crm.call.transferred", &callCompletedEvent{})

	types := serializer.RegisteredTypes()
	assert.Len(t, types, 2)
	assert.Contains(t, types, "crm.call.completed")
	assert.Contains(t, types, "crm.call.transferred")
}

func TestEventSerializer_Serialize(t *testing.T) {
	serializer := NewEventSerializer()
	event := newCallCompletedEvent()

	data, err := serializer.Serialize(event)

	require.NoError(t, err)
	assert.Contains(t, string(data), `"direction":"inbound"`)
	assert.Contains(t, string(data), `"duration":185`)
}

func TestEventSerializer_Deserialize(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("crm.call.completed", &callCompletedEvent{})

	original := newCallCompletedEvent()
	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	deserialized, err := serializer.Deserialize("crm.call.completed", data)
	require.NoError(t, err)

	event, ok := deserialized.(*callCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventType(), event.EventType())
	assert.Equal(t, original.Direction, event.Direction)
	assert.Equal(t, original.Duration, event.Duration)
}

func TestEventSerializer_Deserialize_UnknownType(t *testing.T) {
	serializer := NewEventSerializer()

	_, err := serializer.Deserialize("crm.call.missed", []byte(`{}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestEventSerializer_Deserialize_InvalidJSON(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("crm.call.completed", &callCompletedEvent{})

	_, err := serializer.Deserialize("crm.call.completed", []byte(`{"direction":`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}

func TestEventSerializer_Deserialize_YieldsFreshInstances(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("crm.call.completed", &callCompletedEvent{})

	first, err := serializer.Deserialize("crm.call.completed", []byte(`{"direction":"inbound"}`))
	require.NoError(t, err)
	second, err := serializer.Deserialize("crm.call.completed", []byte(`{"direction":"outbound"}`))
	require.NoError(t, err)

	assert.Equal(t, "inbound", first.(*callCompletedEvent).Direction)
	assert.Equal(t, "outbound", second.(*callCompletedEvent).Direction)
}

func TestEventSerializer_RoundTrip_PreservesEnvelope(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("crm.call.completed", &callCompletedEvent{})

	tenantID := uuid.New()
	callID := uuid.New()
	original := &callCompletedEvent{
		BaseDomainEvent: shared.BaseDomainEvent{
			ID:            uuid.New(),
			Type:          "crm.call.completed",
			Timestamp:     time.Now().Truncate(time.Second),
			AggID:         callID,
			AggType:       "CallLog",
			TenantIDValue: tenantID,
		},
		Direction: "outbound",
		Duration:  412,
	}

	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	deserialized, err := serializer.Deserialize("crm.call.completed", data)
	require.NoError(t, err)

	event := deserialized.(*callCompletedEvent)
	assert.Equal(t, original.EventID(), event.EventID())
	assert.Equal(t, original.AggregateID(), event.AggregateID())
	assert.Equal(t, original.AggregateType(), event.AggregateType())
	assert.Equal(t, original.TenantID(), event.TenantID())
	assert.Equal(t, original.Duration, event.Duration)
}
