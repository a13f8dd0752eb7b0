package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/echodesk/backend/internal/domain/shared"
)

// EventSerializer converts domain events to and from the JSON payloads stored
// in the outbox table. Deserialization needs every event type registered up
// front (see RegisterAllEvents); an unregistered type is a wiring bug.
type EventSerializer struct {
	mu        sync.RWMutex
	factories map[string]func() shared.DomainEvent
}

func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		factories: make(map[string]func() shared.DomainEvent),
	}
}

// Register binds an event type string ("crm.call.ended") to the concrete Go
// type of the given instance. The instance itself is only used as a template.
func (s *EventSerializer) Register(eventType string, eventInstance shared.DomainEvent) {
	t := reflect.TypeOf(eventInstance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[eventType] = func() shared.DomainEvent {
		return reflect.New(t).Interface().(shared.DomainEvent)
	}
}

func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Deserialize rebuilds a typed domain event from its stored payload.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	factory, ok := s.factories[eventType]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	event := factory()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}

func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.factories[eventType]
	return ok
}

// RegisteredTypes lists every event type the serializer can deserialize.
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.factories))
	for t := range s.factories {
		types = append(types, t)
	}
	return types
}
