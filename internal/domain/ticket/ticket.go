package ticket

import (
	"strings"

	"github.com/google/uuid"

	"github.com/echodesk/backend/internal/domain/shared"
)

// Status is the coarse lifecycle of a ticket, independent of which board
// column it sits in.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	default:
		return false
	}
}

// Priority orders the queue.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Ticket is a unit of support work on the board.
type Ticket struct {
	shared.TenantAggregateRoot
	Title            string     `json:"title" gorm:"size:255;not null"`
	Description      string     `json:"description" gorm:"type:text"`
	Status           Status     `json:"status" gorm:"size:20;index;not null;default:'open'"`
	Priority         Priority   `json:"priority" gorm:"size:20;index;not null;default:'medium'"`
	ColumnID         uuid.UUID  `json:"column_id" gorm:"type:uuid;index;not null"`
	PositionInColumn int        `json:"position_in_column" gorm:"not null;default:0"`
	AssignedTo       *uuid.UUID `json:"assigned_to,omitempty" gorm:"type:uuid;index"`
	ClientID         *uuid.UUID `json:"client_id,omitempty" gorm:"type:uuid;index"`
	Tags             []string   `json:"tags,omitempty" gorm:"serializer:json"`
}

func (Ticket) TableName() string {
	return "tickets"
}

// NewTicket opens a ticket in the given column. Position within the
// column is assigned by the service layer (appended to the bottom).
func NewTicket(tenantID, createdBy, columnID uuid.UUID, title, description string) (*Ticket, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if columnID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COLUMN", "Column ID is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Ticket title is required")
	}

	t := &Ticket{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy),
		Title:               title,
		Description:         description,
		Status:              StatusOpen,
		Priority:            PriorityMedium,
		ColumnID:            columnID,
	}
	return t, nil
}

// Update edits title and description.
func (t *Ticket) Update(title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return shared.NewDomainError("INVALID_TITLE", "Ticket title is required")
	}
	t.Title = title
	t.Description = description
	t.IncrementVersion()
	return nil
}

// SetStatus moves the coarse lifecycle. Any valid status is reachable
// from any other; the board columns carry the finer workflow.
func (t *Ticket) SetStatus(status Status) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown ticket status: "+string(status))
	}
	t.Status = status
	t.IncrementVersion()
	return nil
}

func (t *Ticket) SetPriority(priority Priority) error {
	if !priority.IsValid() {
		return shared.NewDomainError("INVALID_PRIORITY", "Unknown ticket priority: "+string(priority))
	}
	t.Priority = priority
	t.IncrementVersion()
	return nil
}

// MoveToColumn places the ticket in another lane at the given position.
// A column flagged is_closed_status also closes the ticket.
func (t *Ticket) MoveToColumn(column *Column, position int) error {
	if column == nil {
		return shared.NewDomainError("INVALID_COLUMN", "Column is required")
	}
	if column.TenantID != t.TenantID {
		return shared.ErrForbidden
	}
	if position < 0 {
		return shared.NewDomainError("INVALID_POSITION", "Position cannot be negative")
	}
	t.ColumnID = column.ID
	t.PositionInColumn = position
	if column.IsClosedStatus {
		t.Status = StatusClosed
	} else if t.Status == StatusClosed {
		t.Status = StatusOpen
	}
	t.IncrementVersion()
	return nil
}

// Assign hands the ticket to an agent; uuid.Nil unassigns.
func (t *Ticket) Assign(userID uuid.UUID) {
	if userID == uuid.Nil {
		t.AssignedTo = nil
	} else {
		t.AssignedTo = &userID
	}
	t.IncrementVersion()
}

// LinkClient associates the ticket with a CRM client.
func (t *Ticket) LinkClient(clientID uuid.UUID) {
	if clientID == uuid.Nil {
		return
	}
	t.ClientID = &clientID
	t.IncrementVersion()
}

// AddTag appends a tag once; duplicates are ignored.
func (t *Ticket) AddTag(tag string) {
	tag = strings.TrimSpace(strings.ToLower(tag))
	if tag == "" {
		return
	}
	for _, existing := range t.Tags {
		if existing == tag {
			return
		}
	}
	t.Tags = append(t.Tags, tag)
	t.IncrementVersion()
}

func (t *Ticket) RemoveTag(tag string) {
	tag = strings.TrimSpace(strings.ToLower(tag))
	for i, existing := range t.Tags {
		if existing == tag {
			t.Tags = append(t.Tags[:i], t.Tags[i+1:]...)
			t.IncrementVersion()
			return
		}
	}
}

// IsClosed reports whether the ticket is finished.
func (t *Ticket) IsClosed() bool {
	return t.Status == StatusClosed || t.Status == StatusResolved
}

// Comment is one note on a ticket's thread.
type Comment struct {
	shared.BaseEntity
	TenantID uuid.UUID `json:"tenant_id" gorm:"type:uuid;index;not null"`
	TicketID uuid.UUID `json:"ticket_id" gorm:"type:uuid;index;not null"`
	UserID   uuid.UUID `json:"user_id" gorm:"type:uuid;not null"`
	Body     string    `json:"body" gorm:"type:text;not null"`
}

func (Comment) TableName() string {
	return "ticket_comments"
}

// NewComment adds a note to a ticket.
func NewComment(tenantID, ticketID, userID uuid.UUID, body string) (*Comment, error) {
	if tenantID == uuid.Nil || ticketID == uuid.Nil || userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMMENT", "Tenant, ticket and user IDs are required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, shared.NewDomainError("INVALID_COMMENT", "Comment body cannot be empty")
	}
	return &Comment{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		TicketID:   ticketID,
		UserID:     userID,
		Body:       body,
	}, nil
}

// Edit replaces the body; only the author may edit.
func (c *Comment) Edit(userID uuid.UUID, body string) error {
	if c.UserID != userID {
		return shared.ErrForbidden
	}
	if strings.TrimSpace(body) == "" {
		return shared.NewDomainError("INVALID_COMMENT", "Comment body cannot be empty")
	}
	c.Body = body
	return nil
}
