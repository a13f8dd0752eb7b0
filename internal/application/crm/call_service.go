package crm

import (
	"context"
	"time"

	"github.com/echodesk/backend/internal/domain/crm"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StartCallInput opens a new call log.
type StartCallInput struct {
	CallerNumber    string `json:"caller_number" binding:"required"`
	RecipientNumber string `json:"recipient_number" binding:"required"`
	Direction       string `json:"direction" binding:"required,oneof=inbound outbound"`
	CallType        string `json:"call_type"`
	SipCallID       string `json:"sip_call_id"`
}

// CallDTO is the read model for a call log.
type CallDTO struct {
	ID              uuid.UUID  `json:"id"`
	CallerNumber    string     `json:"caller_number"`
	RecipientNumber string     `json:"recipient_number"`
	Direction       string     `json:"direction"`
	CallType        string     `json:"call_type"`
	Status          string     `json:"status"`
	SipCallID       string     `json:"sip_call_id,omitempty"`
	ClientID        *uuid.UUID `json:"client_id,omitempty"`
	HandledBy       *uuid.UUID `json:"handled_by,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	AnsweredAt      *time.Time `json:"answered_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
	QualityScore    *float64   `json:"quality_score,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

// CallEventDTO is one timeline entry.
type CallEventDTO struct {
	EventType  string         `json:"event_type"`
	UserID     *uuid.UUID     `json:"user_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// CallDetailDTO bundles a call with its timeline.
type CallDetailDTO struct {
	CallDTO
	Timeline []CallEventDTO `json:"timeline"`
}

// CallService drives the call lifecycle: open, transition, annotate,
// and query. Every transition appends to the call's event timeline.
type CallService struct {
	callRepo   crm.CallLogRepository
	eventRepo  crm.CallEventRepository
	clientRepo crm.ClientRepository
	eventBus   shared.EventPublisher
	logger     *zap.Logger
}

// NewCallService creates a new CallService
func NewCallService(
	callRepo crm.CallLogRepository,
	eventRepo crm.CallEventRepository,
	clientRepo crm.ClientRepository,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *CallService {
	return &CallService{
		callRepo:   callRepo,
		eventRepo:  eventRepo,
		clientRepo: clientRepo,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// StartCall opens a call in the initiated state and links a known
// client by the external party's number.
func (s *CallService) StartCall(ctx context.Context, tenantID uuid.UUID, input StartCallInput) (*CallDTO, error) {
	callType := crm.CallType(input.CallType)
	if input.CallType == "" {
		callType = crm.CallTypeVoice
	}

	call, err := crm.NewCallLog(tenantID, input.CallerNumber, input.RecipientNumber,
		crm.CallDirection(input.Direction), callType)
	if err != nil {
		return nil, err
	}
	if input.SipCallID != "" {
		call.AttachSipCallID(input.SipCallID)
	}

	// The external party is the caller on inbound calls and the
	// recipient on outbound ones.
	externalNumber := call.CallerNumber
	if call.Direction == crm.DirectionOutbound {
		externalNumber = call.RecipientNumber
	}
	if client, err := s.clientRepo.FindByPhone(ctx, tenantID, externalNumber); err == nil {
		call.AssignClient(client.ID)
	} else if err != shared.ErrNotFound {
		s.logger.Warn("Client lookup by phone failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}

	if err := s.callRepo.Save(ctx, call); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save call")
	}
	s.appendEvent(ctx, call, crm.CallEventInitiated, uuid.Nil, nil)
	s.publishEvents(ctx, call)

	s.logger.Info("Call started",
		zap.String("tenant_id", tenantID.String()),
		zap.String("call_id", call.ID.String()),
		zap.String("direction", string(call.Direction)))
	return toCallDTO(call), nil
}

// Ring marks the callee's device ringing.
func (s *CallService) Ring(ctx context.Context, tenantID, callID uuid.UUID) (*CallDTO, error) {
	return s.applyTransition(ctx, tenantID, callID, uuid.Nil, crm.CallEventRinging, func(c *crm.CallLog) error {
		return c.Ring()
	})
}

// Answer connects the call to an agent.
func (s *CallService) Answer(ctx context.Context, tenantID, callID, agentID uuid.UUID) (*CallDTO, error) {
	return s.applyTransition(ctx, tenantID, callID, agentID, crm.CallEventAnswered, func(c *crm.CallLog) error {
		return c.Answer(agentID)
	})
}

// Hold parks a live call.
func (s *CallService) Hold(ctx context.Context, tenantID, callID, agentID uuid.UUID) (*CallDTO, error) {
	return s.applyTransition(ctx, tenantID, callID, agentID, crm.CallEventHold, func(c *crm.CallLog) error {
		return c.Hold()
	})
}

// Resume takes a held call off hold.
func (s *CallService) Resume(ctx context.Context, tenantID, callID, agentID uuid.UUID) (*CallDTO, error) {
	return s.applyTransition(ctx, tenantID, callID, agentID, crm.CallEventUnhold, func(c *crm.CallLog) error {
		return c.Resume()
	})
}

// Transfer closes the call as handed to another agent.
func (s *CallService) Transfer(ctx context.Context, tenantID, callID, agentID uuid.UUID, target string) (*CallDTO, error) {
	dto, err := s.applyTransition(ctx, tenantID, callID, agentID, crm.CallEventTransferCompleted, func(c *crm.CallLog) error {
		return c.Transfer()
	})
	if err != nil {
		return nil, err
	}
	if target != "" {
		s.logger.Info("Call transferred",
			zap.String("call_id", callID.String()),
			zap.String("target", target))
	}
	return dto, nil
}

// End hangs up a live call.
func (s *CallService) End(ctx context.Context, tenantID, callID, agentID uuid.UUID) (*CallDTO, error) {
	return s.applyTransition(ctx, tenantID, callID, agentID, crm.CallEventEnded, func(c *crm.CallLog) error {
		return c.End()
	})
}

// CloseUnanswered settles a call that never connected.
func (s *CallService) CloseUnanswered(ctx context.Context, tenantID, callID uuid.UUID, outcome string) (*CallDTO, error) {
	eventType := crm.CallEventEnded
	if outcome == string(crm.CallStatusFailed) {
		eventType = crm.CallEventFailed
	}
	return s.applyTransition(ctx, tenantID, callID, uuid.Nil, eventType, func(c *crm.CallLog) error {
		return c.Close(crm.CallStatus(outcome))
	})
}

// applyTransition loads the call, runs the mutation, saves, and appends
// the timeline entry.
func (s *CallService) applyTransition(ctx context.Context, tenantID, callID, agentID uuid.UUID, eventType crm.CallEventType, mutate func(*crm.CallLog) error) (*CallDTO, error) {
	call, err := s.loadCall(ctx, tenantID, callID)
	if err != nil {
		return nil, err
	}
	if err := mutate(call); err != nil {
		return nil, err
	}
	if err := s.callRepo.Save(ctx, call); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save call")
	}
	s.appendEvent(ctx, call, eventType, agentID, nil)
	s.publishEvents(ctx, call)
	return toCallDTO(call), nil
}

// AddNote replaces the agent's notes on the call.
func (s *CallService) AddNote(ctx context.Context, tenantID, callID uuid.UUID, notes string) (*CallDTO, error) {
	call, err := s.loadCall(ctx, tenantID, callID)
	if err != nil {
		return nil, err
	}
	call.SetNotes(notes)
	if err := s.callRepo.Save(ctx, call); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save call")
	}
	return toCallDTO(call), nil
}

// SetQualityScore records a post-call quality rating.
func (s *CallService) SetQualityScore(ctx context.Context, tenantID, callID uuid.UUID, score float64) (*CallDTO, error) {
	call, err := s.loadCall(ctx, tenantID, callID)
	if err != nil {
		return nil, err
	}
	if err := call.SetQualityScore(score); err != nil {
		return nil, err
	}
	if err := s.callRepo.Save(ctx, call); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save call")
	}
	s.appendEvent(ctx, call, crm.CallEventQualityChange, uuid.Nil, map[string]any{"score": score})
	return toCallDTO(call), nil
}

// Get returns a call with its full timeline.
func (s *CallService) Get(ctx context.Context, tenantID, callID uuid.UUID) (*CallDetailDTO, error) {
	call, err := s.loadCall(ctx, tenantID, callID)
	if err != nil {
		return nil, err
	}
	events, err := s.eventRepo.FindByCall(ctx, tenantID, call.ID)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load call timeline")
	}

	detail := &CallDetailDTO{CallDTO: *toCallDTO(call), Timeline: make([]CallEventDTO, 0, len(events))}
	for _, ev := range events {
		detail.Timeline = append(detail.Timeline, CallEventDTO{
			EventType:  string(ev.EventType),
			UserID:     ev.UserID,
			OccurredAt: ev.OccurredAt,
			Metadata:   ev.Metadata,
		})
	}
	return detail, nil
}

// List returns calls matching the filter.
func (s *CallService) List(ctx context.Context, tenantID uuid.UUID, filter crm.CallLogFilter) (*shared.Paginated[*CallDTO], error) {
	page, err := s.callRepo.FindAll(ctx, tenantID, filter)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list calls")
	}
	dtos := make([]*CallDTO, 0, len(page.Items))
	for _, call := range page.Items {
		dtos = append(dtos, toCallDTO(call))
	}
	return &shared.Paginated[*CallDTO]{
		Items:      dtos,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

// ListLive returns in-progress calls for the live wallboard.
func (s *CallService) ListLive(ctx context.Context, tenantID uuid.UUID) ([]*CallDTO, error) {
	calls, err := s.callRepo.FindLive(ctx, tenantID)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list live calls")
	}
	dtos := make([]*CallDTO, 0, len(calls))
	for _, call := range calls {
		dtos = append(dtos, toCallDTO(call))
	}
	return dtos, nil
}

// CallStatsDTO is a per-status call count over a period.
type CallStatsDTO struct {
	From   time.Time        `json:"from"`
	To     time.Time        `json:"to"`
	Total  int64            `json:"total"`
	Counts map[string]int64 `json:"counts"`
}

// GetStats aggregates call outcomes over a period.
func (s *CallService) GetStats(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*CallStatsDTO, error) {
	counts, err := s.callRepo.CountByStatus(ctx, tenantID, from, to)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to aggregate call stats")
	}
	stats := &CallStatsDTO{From: from, To: to, Counts: make(map[string]int64, len(counts))}
	for status, n := range counts {
		stats.Counts[string(status)] = n
		stats.Total += n
	}
	return stats, nil
}

func (s *CallService) loadCall(ctx context.Context, tenantID, callID uuid.UUID) (*crm.CallLog, error) {
	call, err := s.callRepo.FindByID(ctx, tenantID, callID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("CALL_NOT_FOUND", "Call not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load call")
	}
	return call, nil
}

// appendEvent writes one timeline row. Timeline failures are logged
// rather than failing the transition: the call row is authoritative.
func (s *CallService) appendEvent(ctx context.Context, call *crm.CallLog, eventType crm.CallEventType, userID uuid.UUID, md map[string]any) {
	event, err := crm.NewCallEvent(call.TenantID, call.ID, eventType)
	if err != nil {
		s.logger.Warn("Failed to build call event", zap.Error(err))
		return
	}
	if userID != uuid.Nil {
		event.WithUser(userID)
	}
	if md != nil {
		event.WithMetadata(md)
	}
	if err := s.eventRepo.Append(ctx, event); err != nil {
		s.logger.Warn("Failed to append call event",
			zap.String("call_id", call.ID.String()),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}

func (s *CallService) publishEvents(ctx context.Context, call *crm.CallLog) {
	events := call.PullDomainEvents()
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish call events", zap.Error(err))
	}
}

func toCallDTO(call *crm.CallLog) *CallDTO {
	return &CallDTO{
		ID:              call.ID,
		CallerNumber:    call.CallerNumber,
		RecipientNumber: call.RecipientNumber,
		Direction:       string(call.Direction),
		CallType:        string(call.CallType),
		Status:          string(call.Status),
		SipCallID:       call.SipCallID,
		ClientID:        call.ClientID,
		HandledBy:       call.HandledBy,
		StartedAt:       call.StartedAt,
		AnsweredAt:      call.AnsweredAt,
		EndedAt:         call.EndedAt,
		DurationSeconds: call.DurationSeconds,
		QualityScore:    call.QualityScore,
		Notes:           call.Notes,
	}
}
