package event

import (
	"context"
	"fmt"

	"github.com/echodesk/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher writes domain events into the outbox table inside the same
// transaction that commits the aggregate. An ended call and its
// crm.call.ended entry either both land or neither does.
type OutboxPublisher struct {
	serializer *EventSerializer
}

func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer}
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)

// PublishWithTx serializes the events and stores them as pending outbox
// entries using the given transaction.
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", event.EventType(), err)
		}
		entries = append(entries, shared.NewOutboxEntry(event.TenantID(), event, payload))
	}

	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// SaveEvents implements shared.OutboxEventSaver. The application layer only
// sees an opaque transaction handle; here it must be the gorm transaction.
func (p *OutboxPublisher) SaveEvents(ctx context.Context, txProvider interface{}, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("txProvider must be a *gorm.DB, got %T", txProvider)
	}
	return p.PublishWithTx(ctx, tx, events...)
}
