package crm

import (
	"time"

	"github.com/google/uuid"

	"github.com/echodesk/backend/internal/domain/shared"
)

// CallEventType classifies one entry in a call's append-only timeline.
type CallEventType string

const (
	CallEventInitiated         CallEventType = "initiated"
	CallEventRinging           CallEventType = "ringing"
	CallEventAnswered          CallEventType = "answered"
	CallEventHold              CallEventType = "hold"
	CallEventUnhold            CallEventType = "unhold"
	CallEventTransferInitiated CallEventType = "transfer_initiated"
	CallEventTransferCompleted CallEventType = "transfer_completed"
	CallEventRecordingStarted  CallEventType = "recording_started"
	CallEventRecordingStopped  CallEventType = "recording_stopped"
	CallEventMuted             CallEventType = "muted"
	CallEventUnmuted           CallEventType = "unmuted"
	CallEventDTMF              CallEventType = "dtmf"
	CallEventQualityChange     CallEventType = "quality_change"
	CallEventEnded             CallEventType = "ended"
	CallEventFailed            CallEventType = "failed"
	CallEventError             CallEventType = "error"
)

func (t CallEventType) IsValid() bool {
	switch t {
	case CallEventInitiated, CallEventRinging, CallEventAnswered, CallEventHold,
		CallEventUnhold, CallEventTransferInitiated, CallEventTransferCompleted,
		CallEventRecordingStarted, CallEventRecordingStopped, CallEventMuted,
		CallEventUnmuted, CallEventDTMF, CallEventQualityChange, CallEventEnded,
		CallEventFailed, CallEventError:
		return true
	default:
		return false
	}
}

// CallEvent is one immutable row in a call's timeline. Events are only
// ever appended; correcting a mistake means appending another event.
type CallEvent struct {
	shared.BaseEntity
	TenantID  uuid.UUID      `json:"tenant_id" gorm:"type:uuid;index;not null"`
	CallLogID uuid.UUID      `json:"call_log_id" gorm:"type:uuid;index;not null"`
	EventType CallEventType  `json:"event_type" gorm:"size:20;not null"`
	UserID    *uuid.UUID     `json:"user_id,omitempty" gorm:"type:uuid"`
	OccurredAt time.Time     `json:"occurred_at" gorm:"index;not null"`
	Metadata  map[string]any `json:"metadata,omitempty" gorm:"serializer:json"`
}

func (CallEvent) TableName() string {
	return "call_events"
}

// NewCallEvent appends a timeline entry for the given call.
func NewCallEvent(tenantID, callLogID uuid.UUID, eventType CallEventType) (*CallEvent, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if callLogID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CALL", "Call log ID is required")
	}
	if !eventType.IsValid() {
		return nil, shared.NewDomainError("INVALID_EVENT_TYPE", "Unknown call event type: "+string(eventType))
	}
	return &CallEvent{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		CallLogID:  callLogID,
		EventType:  eventType,
		OccurredAt: time.Now(),
	}, nil
}

// WithUser attributes the event to the agent who triggered it.
func (e *CallEvent) WithUser(userID uuid.UUID) *CallEvent {
	if userID != uuid.Nil {
		e.UserID = &userID
	}
	return e
}

// WithMetadata attaches provider payload fragments or DTMF digits.
func (e *CallEvent) WithMetadata(md map[string]any) *CallEvent {
	e.Metadata = md
	return e
}
