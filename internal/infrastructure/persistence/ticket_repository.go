package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/domain/ticket"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormColumnRepository implements ColumnRepository using GORM
type GormColumnRepository struct {
	db *gorm.DB
}

// NewGormColumnRepository creates a new GormColumnRepository
func NewGormColumnRepository(db *gorm.DB) *GormColumnRepository {
	return &GormColumnRepository{db: db}
}

// Save creates or updates a column
func (r *GormColumnRepository) Save(ctx context.Context, col *ticket.Column) error {
	return r.db.WithContext(ctx).Save(col).Error
}

// FindByID finds a column by ID within a tenant
func (r *GormColumnRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ticket.Column, error) {
	var col ticket.Column
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&col).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &col, nil
}

// FindAll returns a tenant's board columns ordered by position
func (r *GormColumnRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]*ticket.Column, error) {
	var cols []*ticket.Column
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("position ASC").
		Find(&cols).Error; err != nil {
		return nil, err
	}
	return cols, nil
}

// FindDefault returns the tenant's default landing column
func (r *GormColumnRepository) FindDefault(ctx context.Context, tenantID uuid.UUID) (*ticket.Column, error) {
	var col ticket.Column
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_default = ?", tenantID, true).
		First(&col).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &col, nil
}

// MaxPosition returns the highest column position for a tenant, -1 when
// the board has no columns yet
func (r *GormColumnRepository) MaxPosition(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var max *int
	if err := r.db.WithContext(ctx).
		Model(&ticket.Column{}).
		Where("tenant_id = ?", tenantID).
		Select("MAX(position)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return -1, nil
	}
	return *max, nil
}

// Delete deletes a column within a tenant
func (r *GormColumnRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&ticket.Column{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormColumnRepository implements ColumnRepository
var _ ticket.ColumnRepository = (*GormColumnRepository)(nil)

// GormTicketRepository implements TicketRepository using GORM
type GormTicketRepository struct {
	db *gorm.DB
}

// NewGormTicketRepository creates a new GormTicketRepository
func NewGormTicketRepository(db *gorm.DB) *GormTicketRepository {
	return &GormTicketRepository{db: db}
}

// Save creates or updates a ticket
func (r *GormTicketRepository) Save(ctx context.Context, t *ticket.Ticket) error {
	return r.db.WithContext(ctx).Save(t).Error
}

// FindByID finds a ticket by ID within a tenant
func (r *GormTicketRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ticket.Ticket, error) {
	var t ticket.Ticket
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindAll returns tickets for a tenant with filtering and pagination
func (r *GormTicketRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter ticket.TicketFilter) (*shared.Paginated[*ticket.Ticket], error) {
	query := r.db.WithContext(ctx).
		Model(&ticket.Ticket{}).
		Where("tenant_id = ?", tenantID)

	query = r.applyFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	// Apply sorting with whitelist validation to prevent SQL injection
	sortField := ValidateSortField(filter.OrderBy, TicketSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortField + " " + sortOrder)

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	query = query.Offset((page - 1) * pageSize).Limit(pageSize)

	var tickets []*ticket.Ticket
	if err := query.Find(&tickets).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(tickets, total, page, pageSize)
	return &result, nil
}

// FindByColumn returns a column's tickets ordered by board position
func (r *GormTicketRepository) FindByColumn(ctx context.Context, tenantID, columnID uuid.UUID) ([]*ticket.Ticket, error) {
	var tickets []*ticket.Ticket
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND column_id = ?", tenantID, columnID).
		Order("position_in_column ASC").
		Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

// MaxPositionInColumn returns the highest ticket position in a column,
// -1 when the column is empty
func (r *GormTicketRepository) MaxPositionInColumn(ctx context.Context, tenantID, columnID uuid.UUID) (int, error) {
	var max *int
	if err := r.db.WithContext(ctx).
		Model(&ticket.Ticket{}).
		Where("tenant_id = ? AND column_id = ?", tenantID, columnID).
		Select("MAX(position_in_column)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return -1, nil
	}
	return *max, nil
}

// MoveAllToColumn bulk-moves every ticket out of a column being deleted
// into the default lane
func (r *GormTicketRepository) MoveAllToColumn(ctx context.Context, tenantID, fromColumnID, toColumnID uuid.UUID) (int64, error) {
	var offset int
	base, err := r.MaxPositionInColumn(ctx, tenantID, toColumnID)
	if err != nil {
		return 0, err
	}
	offset = base + 1

	result := r.db.WithContext(ctx).
		Model(&ticket.Ticket{}).
		Where("tenant_id = ? AND column_id = ?", tenantID, fromColumnID).
		Updates(map[string]any{
			"column_id":          toColumnID,
			"position_in_column": gorm.Expr("position_in_column + ?", offset),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Delete deletes a ticket within a tenant
func (r *GormTicketRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("tenant_id = ? AND ticket_id = ?", tenantID, id).
			Delete(&ticket.Comment{}).Error; err != nil {
			return err
		}

		result := tx.
			Where("tenant_id = ? AND id = ?", tenantID, id).
			Delete(&ticket.Ticket{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// applyFilter applies filter options to the query
func (r *GormTicketRepository) applyFilter(query *gorm.DB, filter ticket.TicketFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.ColumnID != nil {
		query = query.Where("column_id = ?", *filter.ColumnID)
	}
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	}
	if filter.Tag != "" {
		query = query.Where("tags LIKE ?", "%\""+filter.Tag+"\"%")
	}
	if filter.Search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	return query
}

// Ensure GormTicketRepository implements TicketRepository
var _ ticket.TicketRepository = (*GormTicketRepository)(nil)

// GormCommentRepository implements CommentRepository using GORM
type GormCommentRepository struct {
	db *gorm.DB
}

// NewGormCommentRepository creates a new GormCommentRepository
func NewGormCommentRepository(db *gorm.DB) *GormCommentRepository {
	return &GormCommentRepository{db: db}
}

// Save creates or updates a comment
func (r *GormCommentRepository) Save(ctx context.Context, c *ticket.Comment) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// FindByID finds a comment by ID within a tenant
func (r *GormCommentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ticket.Comment, error) {
	var c ticket.Comment
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByTicket returns a ticket's comment thread oldest first
func (r *GormCommentRepository) FindByTicket(ctx context.Context, tenantID, ticketID uuid.UUID) ([]*ticket.Comment, error) {
	var comments []*ticket.Comment
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND ticket_id = ?", tenantID, ticketID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// Delete deletes a comment within a tenant
func (r *GormCommentRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&ticket.Comment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormCommentRepository implements CommentRepository
var _ ticket.CommentRepository = (*GormCommentRepository)(nil)
