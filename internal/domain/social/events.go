package social

import (
	"github.com/echodesk/backend/internal/domain/shared"
)

const EventTypeMessageReceived = "social.message.received"

// MessageReceivedEvent fires for every newly ingested inbound message.
// The WhatsApp quota counter subscribes to it.
type MessageReceivedEvent struct {
	shared.BaseDomainEvent
	Platform   Platform `json:"platform"`
	ExternalID string   `json:"external_id"`
	SenderID   string   `json:"sender_id"`
}

func NewMessageReceivedEvent(m *Message) *MessageReceivedEvent {
	return &MessageReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMessageReceived, "SocialMessage", m.ID, m.TenantID),
		Platform:        m.Platform,
		ExternalID:      m.ExternalID,
		SenderID:        m.SenderID,
	}
}
