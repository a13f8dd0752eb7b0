package crm

import (
	"context"
	"strings"

	"github.com/echodesk/backend/internal/domain/crm"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SipEventInput is one PBX event notification. Event names follow the
// common SIP/Asterisk vocabulary; unknown events are acknowledged and
// dropped so a PBX firmware update cannot wedge the webhook.
type SipEventInput struct {
	SipCallID string `json:"sip_call_id" binding:"required"`
	Event     string `json:"event" binding:"required"`
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Direction string `json:"direction"`
	AgentID   string `json:"agent_id"`
}

// SipWebhookService translates PBX call events into call log
// transitions. The PBX is fire-and-forget, so every path that can be
// tolerated returns success.
type SipWebhookService struct {
	calls    *CallService
	callRepo crm.CallLogRepository
	logger   *zap.Logger
}

// NewSipWebhookService creates a new SipWebhookService
func NewSipWebhookService(calls *CallService, callRepo crm.CallLogRepository, logger *zap.Logger) *SipWebhookService {
	return &SipWebhookService{calls: calls, callRepo: callRepo, logger: logger}
}

// ProcessEvent applies one PBX event to the matching call log. A start
// event for an unknown SIP call ID opens a new call.
func (s *SipWebhookService) ProcessEvent(ctx context.Context, tenantID uuid.UUID, input SipEventInput) (*CallDTO, error) {
	event := strings.ToLower(strings.TrimSpace(input.Event))

	call, err := s.callRepo.FindBySipCallID(ctx, tenantID, input.SipCallID)
	if err != nil {
		if err != shared.ErrNotFound {
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to look up call")
		}
		if event == "start" || event == "invite" {
			return s.startFromEvent(ctx, tenantID, input)
		}
		return nil, shared.NewDomainError("CALL_NOT_FOUND", "No call for SIP ID "+input.SipCallID)
	}

	agentID := uuid.Nil
	if input.AgentID != "" {
		if parsed, err := uuid.Parse(input.AgentID); err == nil {
			agentID = parsed
		}
	}

	switch event {
	case "start", "invite":
		// Duplicate start for a call we already track.
		return toCallDTO(call), nil
	case "ringing":
		return s.calls.Ring(ctx, tenantID, call.ID)
	case "answered", "answer":
		return s.calls.Answer(ctx, tenantID, call.ID, agentID)
	case "hold":
		return s.calls.Hold(ctx, tenantID, call.ID, agentID)
	case "unhold", "resume":
		return s.calls.Resume(ctx, tenantID, call.ID, agentID)
	case "transfer":
		return s.calls.Transfer(ctx, tenantID, call.ID, agentID, "")
	case "hangup", "bye":
		if call.AnsweredAt != nil {
			return s.calls.End(ctx, tenantID, call.ID, agentID)
		}
		return s.calls.CloseUnanswered(ctx, tenantID, call.ID, string(crm.CallStatusMissed))
	case "cancel":
		return s.calls.CloseUnanswered(ctx, tenantID, call.ID, string(crm.CallStatusCancelled))
	case "busy":
		return s.calls.CloseUnanswered(ctx, tenantID, call.ID, string(crm.CallStatusBusy))
	case "noanswer", "no_answer", "timeout":
		return s.calls.CloseUnanswered(ctx, tenantID, call.ID, string(crm.CallStatusNoAnswer))
	case "failed", "error":
		return s.calls.CloseUnanswered(ctx, tenantID, call.ID, string(crm.CallStatusFailed))
	default:
		s.logger.Debug("Ignoring unknown PBX event",
			zap.String("event", input.Event),
			zap.String("sip_call_id", input.SipCallID))
		return toCallDTO(call), nil
	}
}

func (s *SipWebhookService) startFromEvent(ctx context.Context, tenantID uuid.UUID, input SipEventInput) (*CallDTO, error) {
	direction := input.Direction
	if direction == "" {
		direction = string(crm.DirectionInbound)
	}
	return s.calls.StartCall(ctx, tenantID, StartCallInput{
		CallerNumber:    input.Caller,
		RecipientNumber: input.Recipient,
		Direction:       direction,
		SipCallID:       input.SipCallID,
	})
}
