package event

import (
	"context"
	"sync/atomic"

	"github.com/echodesk/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotencyMetrics counts how deliveries to a wrapped handler resolved.
type IdempotencyMetrics struct {
	EventsProcessed atomic.Int64
	EventsDuplicate atomic.Int64
	EventsFailed    atomic.Int64
}

// Stats returns a snapshot of the counters.
func (m *IdempotencyMetrics) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: m.EventsProcessed.Load(),
		EventsDuplicate: m.EventsDuplicate.Load(),
		EventsFailed:    m.EventsFailed.Load(),
	}
}

type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// IdempotentHandler wraps an EventHandler so redelivered events are handled
// at most once. The outbox retries on failure, so a handler like the webhook
// dispatcher can see the same event twice; the store's check-and-set keeps
// the second delivery from firing the side effect again.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
	metrics *IdempotencyMetrics
}

type IdempotentHandlerOption func(*IdempotentHandler)

func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithIdempotencyMetrics shares a metrics instance across several handlers.
func WithIdempotencyMetrics(metrics *IdempotencyMetrics) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.metrics = metrics
	}
}

func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
		metrics: &IdempotencyMetrics{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)

func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle runs the wrapped handler unless the event was already processed.
// A store error degrades to processing anyway: risking a duplicate beats
// dropping an event.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}

	eventID := event.EventID().String()

	isNew, err := h.store.MarkProcessed(ctx, eventID, h.config.TTL)
	switch {
	case err != nil:
		h.logger.Warn("Idempotency check failed, processing anyway",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
			zap.Error(err))
	case !isNew:
		h.metrics.EventsDuplicate.Add(1)
		h.logger.Debug("Duplicate event skipped",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()))
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.metrics.EventsFailed.Add(1)
		h.logger.Error("Event handler failed",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
			zap.Error(err))
		// The idempotency key stays set after a failure. Retrying before the
		// TTL expires is still a duplicate; after expiry the event can run
		// again.
		return err
	}

	h.metrics.EventsProcessed.Add(1)
	return nil
}

func (h *IdempotentHandler) GetMetrics() *IdempotencyMetrics {
	return h.metrics
}

func (h *IdempotentHandler) GetWrappedHandler() shared.EventHandler {
	return h.handler
}
