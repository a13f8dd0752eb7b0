package social

import (
	"context"
	"time"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/domain/social"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageDTO is the read model for one inbox entry.
type MessageDTO struct {
	ID            uuid.UUID `json:"id"`
	Platform      string    `json:"platform"`
	ExternalID    string    `json:"external_id"`
	AccountID     string    `json:"account_id"`
	SenderID      string    `json:"sender_id"`
	SenderName    string    `json:"sender_name,omitempty"`
	ProfilePicURL string    `json:"profile_pic_url,omitempty"`
	Text          string    `json:"text"`
	AttachmentURL string    `json:"attachment_url,omitempty"`
	Direction     string    `json:"direction"`
	SentAt        time.Time `json:"sent_at"`
	IsRead        bool      `json:"is_read"`
}

// InboxStatsDTO counts inbound traffic per platform over a period.
type InboxStatsDTO struct {
	From   time.Time        `json:"from"`
	To     time.Time        `json:"to"`
	Counts map[string]int64 `json:"counts"`
}

// InboxService reads and manages the unified social inbox.
type InboxService struct {
	msgRepo social.MessageRepository
	logger  *zap.Logger
}

// NewInboxService creates a new InboxService
func NewInboxService(msgRepo social.MessageRepository, logger *zap.Logger) *InboxService {
	return &InboxService{msgRepo: msgRepo, logger: logger}
}

// List returns inbox entries matching the filter.
func (s *InboxService) List(ctx context.Context, tenantID uuid.UUID, filter social.MessageFilter) (*shared.Paginated[*MessageDTO], error) {
	page, err := s.msgRepo.FindAll(ctx, tenantID, filter)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list messages")
	}
	dtos := make([]*MessageDTO, 0, len(page.Items))
	for _, msg := range page.Items {
		dtos = append(dtos, toMessageDTO(msg))
	}
	return &shared.Paginated[*MessageDTO]{
		Items:      dtos,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

// Get returns one inbox entry.
func (s *InboxService) Get(ctx context.Context, tenantID, messageID uuid.UUID) (*MessageDTO, error) {
	msg, err := s.load(ctx, tenantID, messageID)
	if err != nil {
		return nil, err
	}
	return toMessageDTO(msg), nil
}

// MarkRead flags a message handled by an agent.
func (s *InboxService) MarkRead(ctx context.Context, tenantID, messageID uuid.UUID) (*MessageDTO, error) {
	msg, err := s.load(ctx, tenantID, messageID)
	if err != nil {
		return nil, err
	}
	msg.MarkRead()
	if err := s.msgRepo.Save(ctx, msg); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save message")
	}
	return toMessageDTO(msg), nil
}

// GetStats counts inbound messages per platform over a period.
func (s *InboxService) GetStats(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*InboxStatsDTO, error) {
	stats := &InboxStatsDTO{From: from, To: to, Counts: make(map[string]int64, 3)}
	for _, platform := range []social.Platform{social.PlatformFacebook, social.PlatformInstagram, social.PlatformWhatsApp} {
		n, err := s.msgRepo.CountInbound(ctx, tenantID, platform, from, to)
		if err != nil {
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count messages")
		}
		stats.Counts[string(platform)] = n
	}
	return stats, nil
}

func (s *InboxService) load(ctx context.Context, tenantID, messageID uuid.UUID) (*social.Message, error) {
	msg, err := s.msgRepo.FindByID(ctx, tenantID, messageID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("MESSAGE_NOT_FOUND", "Message not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load message")
	}
	return msg, nil
}

func toMessageDTO(msg *social.Message) *MessageDTO {
	return &MessageDTO{
		ID:            msg.ID,
		Platform:      string(msg.Platform),
		ExternalID:    msg.ExternalID,
		AccountID:     msg.AccountID,
		SenderID:      msg.SenderID,
		SenderName:    msg.SenderName,
		ProfilePicURL: msg.ProfilePicURL,
		Text:          msg.Text,
		AttachmentURL: msg.AttachmentURL,
		Direction:     string(msg.Direction),
		SentAt:        msg.SentAt,
		IsRead:        msg.IsRead,
	}
}
