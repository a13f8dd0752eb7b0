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

// GormUserRepository implements identity.UserRepository on GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	return r.db.WithContext(ctx).Create(models.UserModelFromDomain(user)).Error
}

func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	result := r.db.WithContext(ctx).Save(models.UserModelFromDomain(user))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes the user and their role assignments.
func (r *GormUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		Delete(&models.UserRoleModel{}).Error; err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Delete(&models.UserModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByEmail matches the address case-insensitively within the tenant.
func (r *GormUserRepository) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*identity.User, error) {
	if email == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(r.db.WithContext(ctx).
		Where("tenant_id = ? AND LOWER(email) = ?", tenantID, strings.ToLower(email)))
}

func (r *GormUserRepository) findOne(query *gorm.DB) (*identity.User, error) {
	var model models.UserModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns a page of tenant users plus the unpaged total.
func (r *GormUserRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter identity.UserFilter) ([]*identity.User, int64, error) {
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.UserModel{}).Where("users.tenant_id = ?", tenantID),
		filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.SortBy, UserSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.SortOrder)

	var rows []*models.UserModel
	if err := query.
		Order(sortField + " " + sortOrder).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	return usersToDomain(rows), total, nil
}

func usersToDomain(rows []*models.UserModel) []*identity.User {
	users := make([]*identity.User, len(rows))
	for i, row := range rows {
		users[i] = row.ToDomain()
	}
	return users
}

func (r *GormUserRepository) ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error) {
	if email == "" {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("tenant_id = ? AND LOWER(email) = ?", tenantID, strings.ToLower(email)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveUserRoles replaces the user's role assignments with the current
// in-memory set.
func (r *GormUserRepository) SaveUserRoles(ctx context.Context, user *identity.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserRoleModel{}).Error; err != nil {
			return err
		}
		if len(user.RoleIDs) == 0 {
			return nil
		}

		rows := make([]models.UserRoleModel, len(user.RoleIDs))
		for i, roleID := range user.RoleIDs {
			rows[i] = models.UserRoleModel{
				UserID:    user.ID,
				RoleID:    roleID,
				TenantID:  user.TenantID,
				CreatedAt: time.Now(),
			}
		}
		return tx.Create(&rows).Error
	})
}

func (r *GormUserRepository) LoadUserRoles(ctx context.Context, user *identity.User) error {
	var roleIDs []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.UserRoleModel{}).
		Where("user_id = ?", user.ID).
		Pluck("role_id", &roleIDs).Error; err != nil {
		return err
	}
	user.RoleIDs = roleIDs
	return nil
}

func (r *GormUserRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormUserRepository) applyFilter(query *gorm.DB, filter identity.UserFilter) *gorm.DB {
	if filter.Keyword != "" {
		pattern := "%" + filter.Keyword + "%"
		query = query.Where(
			"email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?",
			pattern, pattern, pattern,
		)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.RoleID != nil {
		query = query.Joins("JOIN user_roles ON users.id = user_roles.user_id").
			Where("user_roles.role_id = ?", *filter.RoleID)
	}
	return query
}

var _ identity.UserRepository = (*GormUserRepository)(nil)
