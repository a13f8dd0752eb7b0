package crm

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/echodesk/backend/internal/domain/shared"
)

// CallStatus is the lifecycle position of a call.
type CallStatus string

const (
	CallStatusInitiated   CallStatus = "initiated"
	CallStatusRinging     CallStatus = "ringing"
	CallStatusAnswered    CallStatus = "answered"
	CallStatusOnHold      CallStatus = "on_hold"
	CallStatusRecording   CallStatus = "recording"
	CallStatusTransferred CallStatus = "transferred"
	CallStatusEnded       CallStatus = "ended"
	CallStatusMissed      CallStatus = "missed"
	CallStatusBusy        CallStatus = "busy"
	CallStatusNoAnswer    CallStatus = "no_answer"
	CallStatusFailed      CallStatus = "failed"
	CallStatusCancelled   CallStatus = "cancelled"
)

func (s CallStatus) IsValid() bool {
	switch s {
	case CallStatusInitiated, CallStatusRinging, CallStatusAnswered, CallStatusOnHold,
		CallStatusRecording, CallStatusTransferred, CallStatusEnded, CallStatusMissed,
		CallStatusBusy, CallStatusNoAnswer, CallStatusFailed, CallStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the call can no longer change status.
func (s CallStatus) IsTerminal() bool {
	switch s {
	case CallStatusEnded, CallStatusMissed, CallStatusBusy, CallStatusNoAnswer,
		CallStatusFailed, CallStatusCancelled, CallStatusTransferred:
		return true
	default:
		return false
	}
}

// IsLive reports whether both parties are connected.
func (s CallStatus) IsLive() bool {
	return s == CallStatusAnswered || s == CallStatusOnHold || s == CallStatusRecording
}

// LiveCallStatuses returns the statuses of in-progress calls.
func LiveCallStatuses() []CallStatus {
	return []CallStatus{CallStatusAnswered, CallStatusOnHold, CallStatusRecording}
}

// CallDirection distinguishes who placed the call.
type CallDirection string

const (
	DirectionInbound  CallDirection = "inbound"
	DirectionOutbound CallDirection = "outbound"
)

func (d CallDirection) IsValid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// CallType is the media type of the call.
type CallType string

const (
	CallTypeVoice      CallType = "voice"
	CallTypeVideo      CallType = "video"
	CallTypeConference CallType = "conference"
)

func (t CallType) IsValid() bool {
	return t == CallTypeVoice || t == CallTypeVideo || t == CallTypeConference
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{4,20}$`)

func normalizeNumber(number string) (string, error) {
	number = strings.TrimSpace(number)
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(number)
	if cleaned == "anonymous" || cleaned == "" {
		// withheld caller ID still produces a log row
		return "anonymous", nil
	}
	if !phonePattern.MatchString(cleaned) {
		return "", shared.NewDomainError("INVALID_PHONE_NUMBER", "Invalid phone number: "+number)
	}
	return cleaned, nil
}

// CallLog is one phone call's lifecycle and metadata. Status moves
// initiated -> ringing -> answered -> (on_hold/recording) -> ended, with
// missed/busy/no_answer/failed/cancelled closing unanswered calls and
// transferred closing a call handed to another agent.
type CallLog struct {
	shared.TenantAggregateRoot
	CallerNumber    string        `json:"caller_number" gorm:"index;size:20;not null"`
	RecipientNumber string        `json:"recipient_number" gorm:"size:20;not null"`
	Direction       CallDirection `json:"direction" gorm:"size:10;index;not null"`
	CallType        CallType      `json:"call_type" gorm:"size:15;not null;default:'voice'"`
	Status          CallStatus    `json:"status" gorm:"size:20;index;not null"`
	SipCallID       string        `json:"sip_call_id,omitempty" gorm:"index;size:255"`
	ClientID        *uuid.UUID    `json:"client_id,omitempty" gorm:"type:uuid;index"`
	HandledBy       *uuid.UUID    `json:"handled_by,omitempty" gorm:"type:uuid;index"`
	StartedAt       time.Time     `json:"started_at" gorm:"index;not null"`
	AnsweredAt      *time.Time    `json:"answered_at,omitempty"`
	EndedAt         *time.Time    `json:"ended_at,omitempty"`
	DurationSeconds int           `json:"duration_seconds" gorm:"not null;default:0"`
	QualityScore    *float64      `json:"quality_score,omitempty"`
	Notes           string        `json:"notes,omitempty" gorm:"type:text"`
}

func (CallLog) TableName() string {
	return "call_logs"
}

// NewCallLog opens a call in the initiated state.
func NewCallLog(tenantID uuid.UUID, caller, recipient string, direction CallDirection, callType CallType) (*CallLog, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Call direction must be 'inbound' or 'outbound'")
	}
	if callType == "" {
		callType = CallTypeVoice
	}
	if !callType.IsValid() {
		return nil, shared.NewDomainError("INVALID_CALL_TYPE", "Unknown call type: "+string(callType))
	}
	caller, err := normalizeNumber(caller)
	if err != nil {
		return nil, err
	}
	recipient, err = normalizeNumber(recipient)
	if err != nil {
		return nil, err
	}

	call := &CallLog{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		CallerNumber:        caller,
		RecipientNumber:     recipient,
		Direction:           direction,
		CallType:            callType,
		Status:              CallStatusInitiated,
		StartedAt:           time.Now(),
	}
	call.AddDomainEvent(NewCallStartedEvent(call))
	return call, nil
}

// AttachSipCallID links the call to its SIP Call-ID header so provider
// webhooks can find it.
func (c *CallLog) AttachSipCallID(sipCallID string) {
	c.SipCallID = strings.TrimSpace(sipCallID)
	c.IncrementVersion()
}

// AssignClient links the call to a known client, usually auto-detected
// by phone number.
func (c *CallLog) AssignClient(clientID uuid.UUID) {
	if clientID == uuid.Nil {
		return
	}
	c.ClientID = &clientID
	c.IncrementVersion()
}

// AssignHandler records the agent working the call.
func (c *CallLog) AssignHandler(userID uuid.UUID) {
	if userID == uuid.Nil {
		return
	}
	c.HandledBy = &userID
	c.IncrementVersion()
}

func (c *CallLog) transition(to CallStatus, allowedFrom ...CallStatus) error {
	if c.Status == to {
		return nil
	}
	if c.Status.IsTerminal() {
		return shared.NewDomainError("CALL_ENDED",
			fmt.Sprintf("Call is already %s", c.Status))
	}
	for _, from := range allowedFrom {
		if c.Status == from {
			c.Status = to
			c.IncrementVersion()
			return nil
		}
	}
	return shared.NewDomainError("INVALID_CALL_TRANSITION",
		fmt.Sprintf("Cannot move call from %s to %s", c.Status, to))
}

// Ring marks the callee's device ringing.
func (c *CallLog) Ring() error {
	return c.transition(CallStatusRinging, CallStatusInitiated)
}

// Answer connects the call and stamps the answered time.
func (c *CallLog) Answer(handledBy uuid.UUID) error {
	if err := c.transition(CallStatusAnswered, CallStatusInitiated, CallStatusRinging); err != nil {
		return err
	}
	now := time.Now()
	c.AnsweredAt = &now
	if handledBy != uuid.Nil {
		c.HandledBy = &handledBy
	}
	c.AddDomainEvent(NewCallAnsweredEvent(c))
	return nil
}

// Hold parks a live call.
func (c *CallLog) Hold() error {
	return c.transition(CallStatusOnHold, CallStatusAnswered, CallStatusRecording)
}

// Resume takes a held call off hold.
func (c *CallLog) Resume() error {
	return c.transition(CallStatusAnswered, CallStatusOnHold)
}

// StartRecording flags the live call as being recorded.
func (c *CallLog) StartRecording() error {
	return c.transition(CallStatusRecording, CallStatusAnswered)
}

// StopRecording returns a recorded call to plain answered.
func (c *CallLog) StopRecording() error {
	return c.transition(CallStatusAnswered, CallStatusRecording)
}

// Transfer closes the call as handed to another agent.
func (c *CallLog) Transfer() error {
	if err := c.transition(CallStatusTransferred, CallStatusAnswered, CallStatusOnHold, CallStatusRecording); err != nil {
		return err
	}
	c.finish()
	return nil
}

// End hangs up a live call and computes the talk duration.
func (c *CallLog) End() error {
	if err := c.transition(CallStatusEnded, CallStatusAnswered, CallStatusOnHold, CallStatusRecording); err != nil {
		return err
	}
	c.finish()
	c.AddDomainEvent(NewCallEndedEvent(c))
	return nil
}

// Close settles an unanswered call: missed, busy, no_answer, failed or
// cancelled depending on what the provider reported.
func (c *CallLog) Close(outcome CallStatus) error {
	switch outcome {
	case CallStatusMissed, CallStatusBusy, CallStatusNoAnswer, CallStatusFailed, CallStatusCancelled:
	default:
		return shared.NewDomainError("INVALID_OUTCOME", "Close outcome must be an unanswered terminal status")
	}
	if err := c.transition(outcome, CallStatusInitiated, CallStatusRinging); err != nil {
		return err
	}
	c.finish()
	c.AddDomainEvent(NewCallEndedEvent(c))
	return nil
}

func (c *CallLog) finish() {
	now := time.Now()
	c.EndedAt = &now
	if c.AnsweredAt != nil {
		c.DurationSeconds = int(now.Sub(*c.AnsweredAt).Seconds())
	}
}

// SetQualityScore records a 0-5 MOS-style score after the call.
func (c *CallLog) SetQualityScore(score float64) error {
	if score < 0 || score > 5 {
		return shared.NewDomainError("INVALID_QUALITY_SCORE", "Quality score must be between 0 and 5")
	}
	c.QualityScore = &score
	c.IncrementVersion()
	return nil
}

// SetNotes replaces the agent's free-form notes.
func (c *CallLog) SetNotes(notes string) {
	c.Notes = notes
	c.IncrementVersion()
}

// IsLive reports whether the call is currently connected.
func (c *CallLog) IsLive() bool {
	return c.Status.IsLive()
}
