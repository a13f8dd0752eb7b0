package ticket

import (
	"context"

	"github.com/google/uuid"

	"github.com/echodesk/backend/internal/domain/shared"
)

// TicketFilter narrows board listings.
type TicketFilter struct {
	shared.Filter
	Status     Status
	Priority   Priority
	ColumnID   *uuid.UUID
	AssignedTo *uuid.UUID
	Tag        string
	Search     string // matches title
}

// ColumnRepository persists board lanes.
type ColumnRepository interface {
	Save(ctx context.Context, col *Column) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Column, error)
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]*Column, error)
	FindDefault(ctx context.Context, tenantID uuid.UUID) (*Column, error)
	MaxPosition(ctx context.Context, tenantID uuid.UUID) (int, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// TicketRepository persists tickets.
type TicketRepository interface {
	Save(ctx context.Context, t *Ticket) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Ticket, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter TicketFilter) (*shared.Paginated[*Ticket], error)
	FindByColumn(ctx context.Context, tenantID, columnID uuid.UUID) ([]*Ticket, error)
	MaxPositionInColumn(ctx context.Context, tenantID, columnID uuid.UUID) (int, error)

	// MoveAllToColumn bulk-moves every ticket out of a column being
	// deleted into the default lane.
	MoveAllToColumn(ctx context.Context, tenantID, fromColumnID, toColumnID uuid.UUID) (int64, error)

	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// CommentRepository persists ticket threads.
type CommentRepository interface {
	Save(ctx context.Context, c *Comment) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Comment, error)
	FindByTicket(ctx context.Context, tenantID, ticketID uuid.UUID) ([]*Comment, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
