package ticket

import (
	"context"
	"time"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/domain/ticket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateTicketInput opens a ticket. Without a column it lands in the
// board's default lane.
type CreateTicketInput struct {
	Title       string     `json:"title" binding:"required,max=255"`
	Description string     `json:"description"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high critical"`
	ColumnID    *uuid.UUID `json:"column_id"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
	ClientID    *uuid.UUID `json:"client_id"`
	Tags        []string   `json:"tags"`
}

// UpdateTicketInput edits a ticket. Nil pointers leave fields as-is.
type UpdateTicketInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status" binding:"omitempty,oneof=open in_progress resolved closed"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=low medium high critical"`
}

// MoveTicketInput places a ticket in a lane. A nil Position appends it
// to the bottom.
type MoveTicketInput struct {
	ColumnID uuid.UUID `json:"column_id" binding:"required"`
	Position *int      `json:"position"`
}

// TicketDTO is the read model for a ticket.
type TicketDTO struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Status           string     `json:"status"`
	Priority         string     `json:"priority"`
	ColumnID         uuid.UUID  `json:"column_id"`
	PositionInColumn int        `json:"position_in_column"`
	AssignedTo       *uuid.UUID `json:"assigned_to,omitempty"`
	ClientID         *uuid.UUID `json:"client_id,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CommentDTO is one entry of a ticket thread.
type CommentDTO struct {
	ID        uuid.UUID `json:"id"`
	TicketID  uuid.UUID `json:"ticket_id"`
	UserID    uuid.UUID `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketService manages tickets and their comment threads.
type TicketService struct {
	ticketRepo  ticket.TicketRepository
	colRepo     ticket.ColumnRepository
	commentRepo ticket.CommentRepository
	logger      *zap.Logger
}

// NewTicketService creates a new TicketService
func NewTicketService(
	ticketRepo ticket.TicketRepository,
	colRepo ticket.ColumnRepository,
	commentRepo ticket.CommentRepository,
	logger *zap.Logger,
) *TicketService {
	return &TicketService{
		ticketRepo:  ticketRepo,
		colRepo:     colRepo,
		commentRepo: commentRepo,
		logger:      logger,
	}
}

// Create opens a ticket at the bottom of its column.
func (s *TicketService) Create(ctx context.Context, tenantID, createdBy uuid.UUID, input CreateTicketInput) (*TicketDTO, error) {
	var col *ticket.Column
	var err error
	if input.ColumnID != nil {
		col, err = s.loadColumn(ctx, tenantID, *input.ColumnID)
	} else {
		col, err = s.colRepo.FindDefault(ctx, tenantID)
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("NO_DEFAULT_COLUMN", "The board has no default column")
		} else if err != nil {
			err = shared.NewDomainError("INTERNAL_ERROR", "Failed to load default column")
		}
	}
	if err != nil {
		return nil, err
	}

	t, err := ticket.NewTicket(tenantID, createdBy, col.ID, input.Title, input.Description)
	if err != nil {
		return nil, err
	}
	if input.Priority != "" {
		if err := t.SetPriority(ticket.Priority(input.Priority)); err != nil {
			return nil, err
		}
	}
	if input.AssignedTo != nil {
		t.Assign(*input.AssignedTo)
	}
	if input.ClientID != nil {
		t.LinkClient(*input.ClientID)
	}
	for _, tag := range input.Tags {
		t.AddTag(tag)
	}

	max, err := s.ticketRepo.MaxPositionInColumn(ctx, tenantID, col.ID)
	if err != nil && err != shared.ErrNotFound {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to place ticket")
	}
	t.PositionInColumn = max + 1

	if err := s.ticketRepo.Save(ctx, t); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save ticket")
	}

	s.logger.Info("Ticket created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("ticket_id", t.ID.String()),
		zap.String("column_id", col.ID.String()))
	return toTicketDTO(t), nil
}

// Update edits a ticket's fields.
func (s *TicketService) Update(ctx context.Context, tenantID, ticketID uuid.UUID, input UpdateTicketInput) (*TicketDTO, error) {
	t, err := s.load(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil || input.Description != nil {
		title, description := t.Title, t.Description
		if input.Title != nil {
			title = *input.Title
		}
		if input.Description != nil {
			description = *input.Description
		}
		if err := t.Update(title, description); err != nil {
			return nil, err
		}
	}
	if input.Status != nil {
		if err := t.SetStatus(ticket.Status(*input.Status)); err != nil {
			return nil, err
		}
	}
	if input.Priority != nil {
		if err := t.SetPriority(ticket.Priority(*input.Priority)); err != nil {
			return nil, err
		}
	}

	if err := s.ticketRepo.Save(ctx, t); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save ticket")
	}
	return toTicketDTO(t), nil
}

// Move places a ticket in another lane. A closed-status lane closes the
// ticket; leaving one reopens it.
func (s *TicketService) Move(ctx context.Context, tenantID, ticketID uuid.UUID, input MoveTicketInput) (*TicketDTO, error) {
	t, err := s.load(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	col, err := s.loadColumn(ctx, tenantID, input.ColumnID)
	if err != nil {
		return nil, err
	}

	position := 0
	if input.Position != nil {
		position = *input.Position
	} else {
		max, err := s.ticketRepo.MaxPositionInColumn(ctx, tenantID, col.ID)
		if err != nil && err != shared.ErrNotFound {
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to place ticket")
		}
		position = max + 1
	}

	if err := t.MoveToColumn(col, position); err != nil {
		return nil, err
	}
	if err := s.ticketRepo.Save(ctx, t); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save ticket")
	}
	return toTicketDTO(t), nil
}

// Assign hands the ticket to an agent; uuid.Nil unassigns.
func (s *TicketService) Assign(ctx context.Context, tenantID, ticketID, userID uuid.UUID) (*TicketDTO, error) {
	t, err := s.load(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	t.Assign(userID)
	if err := s.ticketRepo.Save(ctx, t); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save ticket")
	}
	return toTicketDTO(t), nil
}

// Get returns one ticket.
func (s *TicketService) Get(ctx context.Context, tenantID, ticketID uuid.UUID) (*TicketDTO, error) {
	t, err := s.load(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	return toTicketDTO(t), nil
}

// List returns tickets matching the filter.
func (s *TicketService) List(ctx context.Context, tenantID uuid.UUID, filter ticket.TicketFilter) (*shared.Paginated[*TicketDTO], error) {
	page, err := s.ticketRepo.FindAll(ctx, tenantID, filter)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list tickets")
	}
	dtos := make([]*TicketDTO, 0, len(page.Items))
	for _, t := range page.Items {
		dtos = append(dtos, toTicketDTO(t))
	}
	return &shared.Paginated[*TicketDTO]{
		Items:      dtos,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

// ListByColumn returns one lane's tickets top to bottom.
func (s *TicketService) ListByColumn(ctx context.Context, tenantID, columnID uuid.UUID) ([]*TicketDTO, error) {
	tickets, err := s.ticketRepo.FindByColumn(ctx, tenantID, columnID)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list tickets")
	}
	dtos := make([]*TicketDTO, 0, len(tickets))
	for _, t := range tickets {
		dtos = append(dtos, toTicketDTO(t))
	}
	return dtos, nil
}

// Delete removes a ticket and its thread.
func (s *TicketService) Delete(ctx context.Context, tenantID, ticketID uuid.UUID) error {
	if _, err := s.load(ctx, tenantID, ticketID); err != nil {
		return err
	}
	if err := s.ticketRepo.Delete(ctx, tenantID, ticketID); err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete ticket")
	}
	return nil
}

// AddComment appends to the ticket's thread.
func (s *TicketService) AddComment(ctx context.Context, tenantID, ticketID, userID uuid.UUID, body string) (*CommentDTO, error) {
	if _, err := s.load(ctx, tenantID, ticketID); err != nil {
		return nil, err
	}
	comment, err := ticket.NewComment(tenantID, ticketID, userID, body)
	if err != nil {
		return nil, err
	}
	if err := s.commentRepo.Save(ctx, comment); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save comment")
	}
	return toCommentDTO(comment), nil
}

// EditComment replaces a comment body; only the author may edit.
func (s *TicketService) EditComment(ctx context.Context, tenantID, commentID, userID uuid.UUID, body string) (*CommentDTO, error) {
	comment, err := s.commentRepo.FindByID(ctx, tenantID, commentID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("COMMENT_NOT_FOUND", "Comment not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load comment")
	}
	if err := comment.Edit(userID, body); err != nil {
		return nil, err
	}
	if err := s.commentRepo.Save(ctx, comment); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save comment")
	}
	return toCommentDTO(comment), nil
}

// ListComments returns the ticket's thread oldest first.
func (s *TicketService) ListComments(ctx context.Context, tenantID, ticketID uuid.UUID) ([]*CommentDTO, error) {
	comments, err := s.commentRepo.FindByTicket(ctx, tenantID, ticketID)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list comments")
	}
	dtos := make([]*CommentDTO, 0, len(comments))
	for _, comment := range comments {
		dtos = append(dtos, toCommentDTO(comment))
	}
	return dtos, nil
}

func (s *TicketService) load(ctx context.Context, tenantID, ticketID uuid.UUID) (*ticket.Ticket, error) {
	t, err := s.ticketRepo.FindByID(ctx, tenantID, ticketID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TICKET_NOT_FOUND", "Ticket not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load ticket")
	}
	return t, nil
}

func (s *TicketService) loadColumn(ctx context.Context, tenantID, columnID uuid.UUID) (*ticket.Column, error) {
	col, err := s.colRepo.FindByID(ctx, tenantID, columnID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("COLUMN_NOT_FOUND", "Column not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load column")
	}
	return col, nil
}

func toTicketDTO(t *ticket.Ticket) *TicketDTO {
	return &TicketDTO{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		Status:           string(t.Status),
		Priority:         string(t.Priority),
		ColumnID:         t.ColumnID,
		PositionInColumn: t.PositionInColumn,
		AssignedTo:       t.AssignedTo,
		ClientID:         t.ClientID,
		Tags:             t.Tags,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func toCommentDTO(c *ticket.Comment) *CommentDTO {
	return &CommentDTO{
		ID:        c.ID,
		TicketID:  c.TicketID,
		UserID:    c.UserID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
}
