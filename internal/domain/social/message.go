package social

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/echodesk/backend/internal/domain/shared"
)

// Platform identifies the messaging network a message came from.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformWhatsApp  Platform = "whatsapp"
)

func (p Platform) IsValid() bool {
	return p == PlatformFacebook || p == PlatformInstagram || p == PlatformWhatsApp
}

// MessageDirection tells whether the business or the customer wrote it.
type MessageDirection string

const (
	MessageInbound  MessageDirection = "inbound"  // customer -> business
	MessageOutbound MessageDirection = "outbound" // business -> customer, echo events
)

// Message is one unified inbox entry ingested from a platform webhook.
// The platform's own message ID is kept for deduplication: webhook
// deliveries are at-least-once and the same message can arrive twice.
type Message struct {
	shared.TenantAggregateRoot
	Platform      Platform         `json:"platform" gorm:"size:20;index;not null"`
	ExternalID    string           `json:"external_id" gorm:"index;size:128;not null"`
	AccountID     string           `json:"account_id" gorm:"index;size:100;not null"`
	SenderID      string           `json:"sender_id" gorm:"size:100;not null"`
	SenderName    string           `json:"sender_name,omitempty" gorm:"size:200"`
	ProfilePicURL string           `json:"profile_pic_url,omitempty" gorm:"size:500"`
	Text          string           `json:"text" gorm:"type:text"`
	AttachmentURL string           `json:"attachment_url,omitempty" gorm:"size:500"`
	Direction     MessageDirection `json:"direction" gorm:"size:10;not null"`
	SentAt        time.Time        `json:"sent_at" gorm:"index;not null"`
	IsRead        bool             `json:"is_read" gorm:"not null;default:false"`
}

func (Message) TableName() string {
	return "social_messages"
}

// NewInboundMessage ingests a customer message from a platform webhook.
// sentAt is the platform's own timestamp, not the delivery time.
func NewInboundMessage(tenantID uuid.UUID, platform Platform, externalID, accountID, senderID, text string, sentAt time.Time) (*Message, error) {
	return newMessage(tenantID, platform, externalID, accountID, senderID, text, sentAt, MessageInbound)
}

// NewOutboundMessage records an echo of the business's own reply so the
// conversation thread stays complete.
func NewOutboundMessage(tenantID uuid.UUID, platform Platform, externalID, accountID, senderID, text string, sentAt time.Time) (*Message, error) {
	return newMessage(tenantID, platform, externalID, accountID, senderID, text, sentAt, MessageOutbound)
}

func newMessage(tenantID uuid.UUID, platform Platform, externalID, accountID, senderID, text string, sentAt time.Time, dir MessageDirection) (*Message, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if !platform.IsValid() {
		return nil, shared.NewDomainError("INVALID_PLATFORM", "Unknown platform: "+string(platform))
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, shared.NewDomainError("INVALID_MESSAGE_ID", "Platform message ID is required")
	}
	if strings.TrimSpace(accountID) == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Platform account ID is required")
	}
	if strings.TrimSpace(senderID) == "" {
		return nil, shared.NewDomainError("INVALID_SENDER", "Sender ID is required")
	}
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	msg := &Message{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Platform:            platform,
		ExternalID:          externalID,
		AccountID:           strings.TrimSpace(accountID),
		SenderID:            strings.TrimSpace(senderID),
		Text:                text,
		Direction:           dir,
		SentAt:              sentAt,
	}
	if dir == MessageInbound {
		msg.AddDomainEvent(NewMessageReceivedEvent(msg))
	}
	return msg, nil
}

// WithSender fills optional profile details from the webhook payload.
func (m *Message) WithSender(name, profilePicURL string) *Message {
	m.SenderName = strings.TrimSpace(name)
	m.ProfilePicURL = strings.TrimSpace(profilePicURL)
	return m
}

// WithAttachment records the first attachment URL of a media message.
func (m *Message) WithAttachment(url string) *Message {
	m.AttachmentURL = strings.TrimSpace(url)
	return m
}

// MarkRead flags the message handled by an agent.
func (m *Message) MarkRead() {
	if m.IsRead {
		return
	}
	m.IsRead = true
	m.IncrementVersion()
}
