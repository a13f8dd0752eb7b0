package ticket

import (
	"context"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/domain/ticket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateColumnInput adds a board lane. A nil Position appends the lane
// to the right edge of the board.
type CreateColumnInput struct {
	Name           string `json:"name" binding:"required,max=100"`
	Description    string `json:"description" binding:"max=500"`
	Color          string `json:"color"`
	Position       *int   `json:"position"`
	IsDefault      bool   `json:"is_default"`
	IsClosedStatus bool   `json:"is_closed_status"`
	TrackTime      bool   `json:"track_time"`
}

// UpdateColumnInput edits a lane. Nil pointers leave fields as-is.
type UpdateColumnInput struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	Color          *string `json:"color"`
	IsClosedStatus *bool   `json:"is_closed_status"`
	TrackTime      *bool   `json:"track_time"`
}

// ColumnDTO is the read model for a board lane.
type ColumnDTO struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Color          string    `json:"color"`
	Position       int       `json:"position"`
	IsDefault      bool      `json:"is_default"`
	IsClosedStatus bool      `json:"is_closed_status"`
	TrackTime      bool      `json:"track_time"`
}

// BoardService manages the tenant's ticket board columns.
type BoardService struct {
	colRepo    ticket.ColumnRepository
	ticketRepo ticket.TicketRepository
	logger     *zap.Logger
}

// NewBoardService creates a new BoardService
func NewBoardService(colRepo ticket.ColumnRepository, ticketRepo ticket.TicketRepository, logger *zap.Logger) *BoardService {
	return &BoardService{colRepo: colRepo, ticketRepo: ticketRepo, logger: logger}
}

// CreateColumn adds a lane. Without an explicit position the lane lands
// after the current rightmost column.
func (s *BoardService) CreateColumn(ctx context.Context, tenantID uuid.UUID, input CreateColumnInput) (*ColumnDTO, error) {
	position := 0
	if input.Position != nil {
		position = *input.Position
	} else {
		max, err := s.colRepo.MaxPosition(ctx, tenantID)
		if err != nil && err != shared.ErrNotFound {
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to place column")
		}
		position = max + 1
	}

	col, err := ticket.NewColumn(tenantID, input.Name, position)
	if err != nil {
		return nil, err
	}
	col.Description = input.Description
	if input.Color != "" {
		if err := col.SetColor(input.Color); err != nil {
			return nil, err
		}
	}
	col.SetClosedStatus(input.IsClosedStatus)
	col.SetTrackTime(input.TrackTime)

	if input.IsDefault {
		if err := s.clearCurrentDefault(ctx, tenantID); err != nil {
			return nil, err
		}
		col.MakeDefault()
	}

	if err := s.colRepo.Save(ctx, col); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save column")
	}

	s.logger.Info("Board column created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("column_id", col.ID.String()),
		zap.Int("position", col.Position))
	return toColumnDTO(col), nil
}

// UpdateColumn edits a lane's fields.
func (s *BoardService) UpdateColumn(ctx context.Context, tenantID, columnID uuid.UUID, input UpdateColumnInput) (*ColumnDTO, error) {
	col, err := s.loadColumn(ctx, tenantID, columnID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if err := col.Rename(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Description != nil {
		col.Description = *input.Description
	}
	if input.Color != nil {
		if err := col.SetColor(*input.Color); err != nil {
			return nil, err
		}
	}
	if input.IsClosedStatus != nil {
		col.SetClosedStatus(*input.IsClosedStatus)
	}
	if input.TrackTime != nil {
		col.SetTrackTime(*input.TrackTime)
	}

	if err := s.colRepo.Save(ctx, col); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save column")
	}
	return toColumnDTO(col), nil
}

// SetDefaultColumn moves the default landing flag to another lane.
func (s *BoardService) SetDefaultColumn(ctx context.Context, tenantID, columnID uuid.UUID) (*ColumnDTO, error) {
	col, err := s.loadColumn(ctx, tenantID, columnID)
	if err != nil {
		return nil, err
	}
	if col.IsDefault {
		return toColumnDTO(col), nil
	}
	if err := s.clearCurrentDefault(ctx, tenantID); err != nil {
		return nil, err
	}
	col.MakeDefault()
	if err := s.colRepo.Save(ctx, col); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save column")
	}
	return toColumnDTO(col), nil
}

// ReorderColumns applies a full left-to-right ordering of column IDs.
func (s *BoardService) ReorderColumns(ctx context.Context, tenantID uuid.UUID, orderedIDs []uuid.UUID) ([]*ColumnDTO, error) {
	cols, err := s.colRepo.FindAll(ctx, tenantID)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load board")
	}
	byID := make(map[uuid.UUID]*ticket.Column, len(cols))
	for _, col := range cols {
		byID[col.ID] = col
	}
	if len(orderedIDs) != len(cols) {
		return nil, shared.NewDomainError("INVALID_ORDER", "Ordering must list every column exactly once")
	}

	dtos := make([]*ColumnDTO, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		col, ok := byID[id]
		if !ok {
			return nil, shared.NewDomainError("COLUMN_NOT_FOUND", "Unknown column in ordering")
		}
		delete(byID, id)
		if err := col.MoveTo(i); err != nil {
			return nil, err
		}
		if err := s.colRepo.Save(ctx, col); err != nil {
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save column")
		}
		dtos = append(dtos, toColumnDTO(col))
	}
	return dtos, nil
}

// ListColumns returns the board left to right.
func (s *BoardService) ListColumns(ctx context.Context, tenantID uuid.UUID) ([]*ColumnDTO, error) {
	cols, err := s.colRepo.FindAll(ctx, tenantID)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load board")
	}
	dtos := make([]*ColumnDTO, 0, len(cols))
	for _, col := range cols {
		dtos = append(dtos, toColumnDTO(col))
	}
	return dtos, nil
}

// DeleteColumn removes a lane. Its tickets move to the default lane
// first so none are orphaned; the default lane itself cannot be deleted.
func (s *BoardService) DeleteColumn(ctx context.Context, tenantID, columnID uuid.UUID) error {
	col, err := s.loadColumn(ctx, tenantID, columnID)
	if err != nil {
		return err
	}
	if col.IsDefault {
		return shared.NewDomainError("DEFAULT_COLUMN", "The default column cannot be deleted")
	}

	def, err := s.colRepo.FindDefault(ctx, tenantID)
	if err != nil {
		if err == shared.ErrNotFound {
			return shared.NewDomainError("NO_DEFAULT_COLUMN", "The board has no default column to receive tickets")
		}
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to load default column")
	}

	moved, err := s.ticketRepo.MoveAllToColumn(ctx, tenantID, col.ID, def.ID)
	if err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to move tickets out of column")
	}
	if err := s.colRepo.Delete(ctx, tenantID, col.ID); err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete column")
	}

	s.logger.Info("Board column deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("column_id", col.ID.String()),
		zap.Int64("tickets_moved", moved))
	return nil
}

func (s *BoardService) clearCurrentDefault(ctx context.Context, tenantID uuid.UUID) error {
	current, err := s.colRepo.FindDefault(ctx, tenantID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil
		}
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to load default column")
	}
	current.ClearDefault()
	if err := s.colRepo.Save(ctx, current); err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save column")
	}
	return nil
}

func (s *BoardService) loadColumn(ctx context.Context, tenantID, columnID uuid.UUID) (*ticket.Column, error) {
	col, err := s.colRepo.FindByID(ctx, tenantID, columnID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("COLUMN_NOT_FOUND", "Column not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load column")
	}
	return col, nil
}

func toColumnDTO(col *ticket.Column) *ColumnDTO {
	return &ColumnDTO{
		ID:             col.ID,
		Name:           col.Name,
		Description:    col.Description,
		Color:          col.Color,
		Position:       col.Position,
		IsDefault:      col.IsDefault,
		IsClosedStatus: col.IsClosedStatus,
		TrackTime:      col.TrackTime,
	}
}
