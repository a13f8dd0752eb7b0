package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTenantRepository implements identity.TenantRepository on GORM.
// Tenants are the one aggregate queried without a tenant scope.
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindBySchema looks a tenant up by its unique schema name, ignoring case.
func (r *GormTenantRepository) FindBySchema(ctx context.Context, schema string) (*identity.Tenant, error) {
	return r.findOne(r.db.WithContext(ctx).
		Where("LOWER(schema) = ?", strings.ToLower(schema)))
}

// FindByDomain looks a tenant up by its custom domain, ignoring case.
func (r *GormTenantRepository) FindByDomain(ctx context.Context, domain string) (*identity.Tenant, error) {
	if domain == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(r.db.WithContext(ctx).
		Where("LOWER(domain) = ?", strings.ToLower(domain)))
}

func (r *GormTenantRepository) findOne(query *gorm.DB) (*identity.Tenant, error) {
	var model models.TenantModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Tenant, error) {
	query := r.db.WithContext(ctx).Model(&models.TenantModel{})
	if filter.Search != "" {
		keyword := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR schema ILIKE ? OR admin_email ILIKE ?", keyword, keyword, keyword)
	}
	return r.findPage(query, filter)
}

func (r *GormTenantRepository) FindByStatus(ctx context.Context, status identity.TenantStatus, filter shared.Filter) ([]identity.Tenant, error) {
	query := r.db.WithContext(ctx).Model(&models.TenantModel{}).Where("status = ?", status)
	if filter.Search != "" {
		keyword := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR schema ILIKE ?", keyword, keyword)
	}
	return r.findPage(query, filter)
}

// findPage applies whitelisted sorting plus pagination and maps the rows.
func (r *GormTenantRepository) findPage(query *gorm.DB, filter shared.Filter) ([]identity.Tenant, error) {
	sortField := ValidateSortField(filter.OrderBy, TenantSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	limit := filter.PageSize
	if limit <= 0 {
		limit = 20
	}

	var rows []models.TenantModel
	if err := query.
		Order(sortField + " " + sortOrder).
		Offset(filter.Offset()).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return tenantsToDomain(rows), nil
}

func tenantsToDomain(rows []models.TenantModel) []identity.Tenant {
	tenants := make([]identity.Tenant, len(rows))
	for i, row := range rows {
		tenants[i] = *row.ToDomain()
	}
	return tenants
}

// FindActiveIDs returns the IDs of every tenant able to serve traffic,
// trials included.
func (r *GormTenantRepository) FindActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.TenantModel{}).
		Where("status IN ?", []identity.TenantStatus{identity.TenantStatusActive, identity.TenantStatusTrial}).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// FindTrialExpired returns trial tenants whose trial window has passed.
func (r *GormTenantRepository) FindTrialExpired(ctx context.Context) ([]identity.Tenant, error) {
	var rows []models.TenantModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", identity.TenantStatusTrial).
		Where("trial_ends_at IS NOT NULL").
		Where("trial_ends_at <= ?", time.Now()).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return tenantsToDomain(rows), nil
}

// Save creates or updates a tenant.
func (r *GormTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	return r.db.WithContext(ctx).Save(models.TenantModelFromDomain(tenant)).Error
}

func (r *GormTenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.TenantModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormTenantRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.TenantModel{})
	if filter.Search != "" {
		keyword := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR schema ILIKE ?", keyword, keyword)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormTenantRepository) CountByStatus(ctx context.Context, status identity.TenantStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TenantModel{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormTenantRepository) ExistsBySchema(ctx context.Context, schema string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TenantModel{}).
		Where("LOWER(schema) = ?", strings.ToLower(schema)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormTenantRepository) ExistsByDomain(ctx context.Context, domain string) (bool, error) {
	if domain == "" {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TenantModel{}).
		Where("LOWER(domain) = ?", strings.ToLower(domain)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ identity.TenantRepository = (*GormTenantRepository)(nil)
