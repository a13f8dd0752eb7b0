package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPackageRepository implements PackageRepository using GORM
type GormPackageRepository struct {
	db *gorm.DB
}

// NewGormPackageRepository creates a new GormPackageRepository
func NewGormPackageRepository(db *gorm.DB) *GormPackageRepository {
	return &GormPackageRepository{db: db}
}

// Save creates or updates a package
func (r *GormPackageRepository) Save(ctx context.Context, pkg *billing.Package) error {
	return r.db.WithContext(ctx).Save(pkg).Error
}

// FindByID finds a package by ID
func (r *GormPackageRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Package, error) {
	var pkg billing.Package
	if err := r.db.WithContext(ctx).First(&pkg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &pkg, nil
}

// FindByName finds a package by its machine name
func (r *GormPackageRepository) FindByName(ctx context.Context, name string) (*billing.Package, error) {
	var pkg billing.Package
	if err := r.db.WithContext(ctx).
		Where("name = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&pkg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &pkg, nil
}

// FindActive returns all packages available for purchase
func (r *GormPackageRepository) FindActive(ctx context.Context) ([]*billing.Package, error) {
	var packages []*billing.Package
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, name ASC").
		Find(&packages).Error; err != nil {
		return nil, err
	}
	return packages, nil
}

// FindAll returns every package including retired ones
func (r *GormPackageRepository) FindAll(ctx context.Context) ([]*billing.Package, error) {
	var packages []*billing.Package
	if err := r.db.WithContext(ctx).
		Order("sort_order ASC, name ASC").
		Find(&packages).Error; err != nil {
		return nil, err
	}
	return packages, nil
}

// Delete deletes a package
func (r *GormPackageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&billing.Package{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormPackageRepository implements PackageRepository
var _ billing.PackageRepository = (*GormPackageRepository)(nil)
