package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/echodesk/backend/internal/domain/shared"
)

// UsageEventType classifies a single usage log entry.
type UsageEventType string

const (
	UsageUserAdded       UsageEventType = "user_added"
	UsageUserRemoved     UsageEventType = "user_removed"
	UsageWhatsAppMessage UsageEventType = "whatsapp_message"
	UsageStorage         UsageEventType = "storage_usage"
	UsageFeatureUsed     UsageEventType = "feature_used"
)

func (t UsageEventType) IsValid() bool {
	switch t {
	case UsageUserAdded, UsageUserRemoved, UsageWhatsAppMessage, UsageStorage, UsageFeatureUsed:
		return true
	default:
		return false
	}
}

// Unit returns the unit the quantity is measured in.
func (t UsageEventType) Unit() string {
	switch t {
	case UsageStorage:
		return "gb"
	case UsageWhatsAppMessage:
		return "messages"
	case UsageUserAdded, UsageUserRemoved:
		return "users"
	default:
		return "events"
	}
}

// UsageLog is an immutable audit row recording one unit of consumption
// against a tenant's subscription. Counters on TenantSubscription hold
// the running totals; these rows exist for reconciliation and billing
// disputes.
type UsageLog struct {
	shared.BaseEntity
	TenantID   uuid.UUID       `json:"tenant_id" gorm:"type:uuid;index;not null"`
	EventType  UsageEventType  `json:"event_type" gorm:"size:30;index;not null"`
	Quantity   decimal.Decimal `json:"quantity" gorm:"type:decimal(12,3);not null"`
	Unit       string          `json:"unit" gorm:"size:20;not null"`
	FeatureKey string          `json:"feature_key,omitempty" gorm:"size:50"`
	UserID     *uuid.UUID      `json:"user_id,omitempty" gorm:"type:uuid"`
	RecordedAt time.Time       `json:"recorded_at" gorm:"index;not null"`
	Metadata   map[string]any  `json:"metadata,omitempty" gorm:"serializer:json"`
}

func (UsageLog) TableName() string {
	return "usage_logs"
}

// NewUsageLog records one usage event. Quantity must be positive;
// direction is conveyed by the event type (user_removed rows carry a
// positive quantity).
func NewUsageLog(tenantID uuid.UUID, eventType UsageEventType, quantity decimal.Decimal) (*UsageLog, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if !eventType.IsValid() {
		return nil, shared.NewDomainError("INVALID_USAGE_TYPE", "Unknown usage event type: "+string(eventType))
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Usage quantity must be positive")
	}
	return &UsageLog{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		EventType:  eventType,
		Quantity:   quantity,
		Unit:       eventType.Unit(),
		RecordedAt: time.Now(),
	}, nil
}

// WithUser attributes the event to the acting user.
func (u *UsageLog) WithUser(userID uuid.UUID) *UsageLog {
	if userID != uuid.Nil {
		u.UserID = &userID
	}
	return u
}

// WithFeature tags a feature_used event with the feature key.
func (u *UsageLog) WithFeature(key FeatureKey) *UsageLog {
	u.FeatureKey = string(key)
	return u
}

// WithMetadata attaches free-form context to the event.
func (u *UsageLog) WithMetadata(md map[string]any) *UsageLog {
	u.Metadata = md
	return u
}
