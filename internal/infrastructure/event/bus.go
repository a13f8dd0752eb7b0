package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/echodesk/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus delivers domain events to subscribed handlers inside the
// same process. Delivery is synchronous: Publish returns once every matching
// handler ran. Handler failures are logged and never abort the remaining
// handlers, so a broken projection cannot block a call from ending.
type InMemoryEventBus struct {
	mu sync.RWMutex
	// byType maps an event type ("crm.call.ended") to its handlers.
	byType map[string][]shared.EventHandler
	// catchAll handlers receive every event regardless of type.
	catchAll []shared.EventHandler
	logger   *zap.Logger
	running  atomic.Bool
	wg       sync.WaitGroup
}

func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		byType: make(map[string][]shared.EventHandler),
		logger: logger,
	}
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)

// Publish dispatches each event to every handler subscribed to its type,
// plus the catch-all handlers.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		handlers := b.handlersFor(event.EventType())
		if len(handlers) == 0 {
			b.logger.Debug("No handlers for event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()))
			continue
		}
		for _, handler := range handlers {
			b.dispatch(ctx, handler, event)
		}
	}
	return nil
}

// Subscribe registers a handler for the given event types. With no types it
// falls back to handler.EventTypes(), and if that is empty too the handler
// becomes a catch-all.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(eventTypes) == 0 {
		b.catchAll = append(b.catchAll, handler)
		b.logger.Debug("Subscribed catch-all event handler")
		return
	}
	for _, eventType := range eventTypes {
		b.byType[eventType] = append(b.byType[eventType], handler)
	}
	b.logger.Debug("Subscribed event handler", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes the handler from every subscription.
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.catchAll = without(b.catchAll, handler)
	for eventType, handlers := range b.byType {
		remaining := without(handlers, handler)
		if len(remaining) == 0 {
			delete(b.byType, eventType)
		} else {
			b.byType[eventType] = remaining
		}
	}
}

func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("Event bus started")
	return nil
}

// Stop waits for in-flight dispatches to drain before returning.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop: %w", ctx.Err())
	}
}

// handlersFor snapshots the handlers matching an event type under the read
// lock so dispatch itself runs unlocked.
func (b *InMemoryEventBus) handlersFor(eventType string) []shared.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	handlers := make([]shared.EventHandler, 0, len(b.byType[eventType])+len(b.catchAll))
	handlers = append(handlers, b.byType[eventType]...)
	handlers = append(handlers, b.catchAll...)
	return handlers
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) {
	b.wg.Add(1)
	defer b.wg.Done()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Any("panic", r))
		}
	}()

	if err := handler.Handle(ctx, event); err != nil {
		b.logger.Error("Event handler failed",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
			zap.Error(err))
	}
}

func without(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	remaining := handlers[:0:0]
	for _, h := range handlers {
		if h != target {
			remaining = append(remaining, h)
		}
	}
	return remaining
}
