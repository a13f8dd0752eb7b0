package crm

import (
	"github.com/echodesk/backend/internal/domain/shared"
)

const (
	EventTypeCallStarted        = "crm.call.started"
	EventTypeCallAnswered       = "crm.call.answered"
	EventTypeCallEnded          = "crm.call.ended"
	EventTypeRecordingCompleted = "crm.recording.completed"
)

// CallStartedEvent fires when a call log row is opened.
type CallStartedEvent struct {
	shared.BaseDomainEvent
	CallerNumber    string        `json:"caller_number"`
	RecipientNumber string        `json:"recipient_number"`
	Direction       CallDirection `json:"direction"`
}

func NewCallStartedEvent(c *CallLog) *CallStartedEvent {
	return &CallStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCallStarted, "CallLog", c.ID, c.TenantID),
		CallerNumber:    c.CallerNumber,
		RecipientNumber: c.RecipientNumber,
		Direction:       c.Direction,
	}
}

// CallAnsweredEvent fires when an agent picks up.
type CallAnsweredEvent struct {
	shared.BaseDomainEvent
	HandledBy string `json:"handled_by,omitempty"`
}

func NewCallAnsweredEvent(c *CallLog) *CallAnsweredEvent {
	e := &CallAnsweredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCallAnswered, "CallLog", c.ID, c.TenantID),
	}
	if c.HandledBy != nil {
		e.HandledBy = c.HandledBy.String()
	}
	return e
}

// CallEndedEvent fires on any terminal status.
type CallEndedEvent struct {
	shared.BaseDomainEvent
	Direction       CallDirection `json:"direction"`
	Status          CallStatus    `json:"status"`
	DurationSeconds int           `json:"duration_seconds"`
}

func NewCallEndedEvent(c *CallLog) *CallEndedEvent {
	return &CallEndedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCallEnded, "CallLog", c.ID, c.TenantID),
		Direction:       c.Direction,
		Status:          c.Status,
		DurationSeconds: c.DurationSeconds,
	}
}

// RecordingCompletedEvent fires when a recording file lands in storage.
type RecordingCompletedEvent struct {
	shared.BaseDomainEvent
	StorageKey      string `json:"storage_key"`
	DurationSeconds int    `json:"duration_seconds"`
}

func NewRecordingCompletedEvent(r *CallRecording) *RecordingCompletedEvent {
	return &RecordingCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRecordingCompleted, "CallRecording", r.ID, r.TenantID),
		StorageKey:      r.StorageKey,
		DurationSeconds: r.DurationSeconds,
	}
}
