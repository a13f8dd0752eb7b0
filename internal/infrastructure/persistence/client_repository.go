package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/echodesk/backend/internal/domain/crm"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormClientRepository implements ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// Save creates or updates a client
func (r *GormClientRepository) Save(ctx context.Context, client *crm.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

// FindByID finds a client by ID within a tenant
func (r *GormClientRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*crm.Client, error) {
	var client crm.Client
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// FindByPhone finds a client by phone number within a tenant
func (r *GormClientRepository) FindByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*crm.Client, error) {
	if phone == "" {
		return nil, shared.ErrNotFound
	}
	var client crm.Client
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND phone = ?", tenantID, phone).
		First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// FindByEmail finds a client by email within a tenant
func (r *GormClientRepository) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*crm.Client, error) {
	if email == "" {
		return nil, shared.ErrNotFound
	}
	var client crm.Client
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND LOWER(email) = ?", tenantID, strings.ToLower(email)).
		First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// FindAll returns clients for a tenant with pagination
func (r *GormClientRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*crm.Client], error) {
	query := r.db.WithContext(ctx).
		Model(&crm.Client{}).
		Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ? OR LOWER(company) LIKE ?",
			pattern, pattern, "%"+filter.Search+"%", pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	// Apply sorting with whitelist validation to prevent SQL injection
	sortField := ValidateSortField(filter.OrderBy, ClientSortFields, "created_at")
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

	var clients []*crm.Client
	if err := query.Find(&clients).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(clients, total, page, pageSize)
	return &result, nil
}

// Delete deletes a client within a tenant
func (r *GormClientRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&crm.Client{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormClientRepository implements ClientRepository
var _ crm.ClientRepository = (*GormClientRepository)(nil)
