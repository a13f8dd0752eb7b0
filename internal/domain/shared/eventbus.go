package shared

import "context"

// EventHandler consumes domain events. EventTypes declares the types a
// handler wants; an empty slice subscribes it to everything.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher delivers events to subscribed handlers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber manages handler registrations. Subscribing with no
// event types falls back to the handler's own EventTypes declaration.
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is the full in-process bus: publish, subscribe, and a
// start/stop lifecycle for draining in-flight handlers on shutdown.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxEventSaver writes events to the outbox table inside the caller's
// open transaction, so the aggregate row and its events commit together.
// txProvider is the active *gorm.DB transaction handle.
type OutboxEventSaver interface {
	SaveEvents(ctx context.Context, txProvider interface{}, events ...DomainEvent) error
}
