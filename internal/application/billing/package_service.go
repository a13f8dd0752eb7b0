package billing

import (
	"context"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreatePackageInput describes a new catalog entry.
type CreatePackageInput struct {
	Name                string                  `json:"name" binding:"required"`
	DisplayName         string                  `json:"display_name" binding:"required"`
	Description         string                  `json:"description"`
	PricingModel        string                  `json:"pricing_model" binding:"required,oneof=agent crm"`
	PriceGEL            decimal.Decimal         `json:"price_gel" binding:"required"`
	BillingPeriod       string                  `json:"billing_period" binding:"required,oneof=monthly yearly"`
	MaxUsers            int                     `json:"max_users"`
	MaxWhatsAppMessages int                     `json:"max_whatsapp_messages"`
	MaxStorageGB        int                     `json:"max_storage_gb"`
	Features            billing.PackageFeatures `json:"features"`
	SortOrder           int                     `json:"sort_order"`
}

// UpdatePackageInput changes an existing package. Nil pointers leave
// the field untouched. Name, pricing model, and billing period are
// immutable once the package exists; retire it and create a new one
// instead.
type UpdatePackageInput struct {
	DisplayName         *string                  `json:"display_name"`
	Description         *string                  `json:"description"`
	PriceGEL            *decimal.Decimal         `json:"price_gel"`
	MaxUsers            *int                     `json:"max_users"`
	MaxWhatsAppMessages *int                     `json:"max_whatsapp_messages"`
	MaxStorageGB        *int                     `json:"max_storage_gb"`
	Features            *billing.PackageFeatures `json:"features"`
	SortOrder           *int                     `json:"sort_order"`
}

// PackageDTO is the read model for a catalog package.
type PackageDTO struct {
	ID                  uuid.UUID            `json:"id"`
	Name                string               `json:"name"`
	DisplayName         string               `json:"display_name"`
	Description         string               `json:"description,omitempty"`
	PricingModel        string               `json:"pricing_model"`
	PriceGEL            string               `json:"price_gel"`
	BillingPeriod       string               `json:"billing_period"`
	MaxUsers            int                  `json:"max_users"`
	MaxWhatsAppMessages int                  `json:"max_whatsapp_messages"`
	MaxStorageGB        int                  `json:"max_storage_gb"`
	Features            []billing.FeatureKey `json:"features"`
	IsActive            bool                 `json:"is_active"`
	SortOrder           int                  `json:"sort_order"`
}

// PackageService manages the subscription catalog.
type PackageService struct {
	pkgRepo billing.PackageRepository
	logger  *zap.Logger
}

// NewPackageService creates a new PackageService
func NewPackageService(pkgRepo billing.PackageRepository, logger *zap.Logger) *PackageService {
	return &PackageService{pkgRepo: pkgRepo, logger: logger}
}

// Create adds a package to the catalog.
func (s *PackageService) Create(ctx context.Context, input CreatePackageInput) (*PackageDTO, error) {
	if _, err := s.pkgRepo.FindByName(ctx, input.Name); err == nil {
		return nil, shared.NewDomainError("PACKAGE_EXISTS", "A package with this name already exists")
	} else if err != shared.ErrNotFound {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check package name")
	}

	pkg, err := billing.NewPackage(input.Name, input.DisplayName,
		billing.PricingModel(input.PricingModel), input.PriceGEL,
		billing.BillingPeriod(input.BillingPeriod))
	if err != nil {
		return nil, err
	}
	pkg.Description = input.Description
	pkg.SortOrder = input.SortOrder
	if err := pkg.SetLimits(input.MaxUsers, input.MaxWhatsAppMessages, input.MaxStorageGB); err != nil {
		return nil, err
	}
	pkg.SetFeatures(input.Features)

	if err := s.pkgRepo.Save(ctx, pkg); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save package")
	}

	s.logger.Info("Package created",
		zap.String("package_id", pkg.ID.String()),
		zap.String("name", pkg.Name))
	return toPackageDTO(pkg), nil
}

// Update edits a package's mutable fields.
func (s *PackageService) Update(ctx context.Context, id uuid.UUID, input UpdatePackageInput) (*PackageDTO, error) {
	pkg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.DisplayName != nil {
		pkg.DisplayName = *input.DisplayName
	}
	if input.Description != nil {
		pkg.Description = *input.Description
	}
	if input.PriceGEL != nil {
		if err := pkg.SetPrice(*input.PriceGEL); err != nil {
			return nil, err
		}
	}
	if input.MaxUsers != nil || input.MaxWhatsAppMessages != nil || input.MaxStorageGB != nil {
		users, msgs, storage := pkg.MaxUsers, pkg.MaxWhatsAppMessages, pkg.MaxStorageGB
		if input.MaxUsers != nil {
			users = *input.MaxUsers
		}
		if input.MaxWhatsAppMessages != nil {
			msgs = *input.MaxWhatsAppMessages
		}
		if input.MaxStorageGB != nil {
			storage = *input.MaxStorageGB
		}
		if err := pkg.SetLimits(users, msgs, storage); err != nil {
			return nil, err
		}
	}
	if input.Features != nil {
		pkg.SetFeatures(*input.Features)
	}
	if input.SortOrder != nil {
		pkg.SortOrder = *input.SortOrder
		pkg.IncrementVersion()
	}

	if err := s.pkgRepo.Save(ctx, pkg); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save package")
	}
	return toPackageDTO(pkg), nil
}

// Get returns one package by ID.
func (s *PackageService) Get(ctx context.Context, id uuid.UUID) (*PackageDTO, error) {
	pkg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPackageDTO(pkg), nil
}

// GetByName returns one package by its machine name.
func (s *PackageService) GetByName(ctx context.Context, name string) (*PackageDTO, error) {
	pkg, err := s.pkgRepo.FindByName(ctx, name)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("PACKAGE_NOT_FOUND", "Package not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load package")
	}
	return toPackageDTO(pkg), nil
}

// ListActive returns sellable packages for the public pricing page.
func (s *PackageService) ListActive(ctx context.Context) ([]*PackageDTO, error) {
	pkgs, err := s.pkgRepo.FindActive(ctx)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load packages")
	}
	return toPackageDTOs(pkgs), nil
}

// ListAll returns the whole catalog including retired packages.
func (s *PackageService) ListAll(ctx context.Context) ([]*PackageDTO, error) {
	pkgs, err := s.pkgRepo.FindAll(ctx)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load packages")
	}
	return toPackageDTOs(pkgs), nil
}

// Retire takes a package off sale. Existing subscriptions keep running.
func (s *PackageService) Retire(ctx context.Context, id uuid.UUID) error {
	pkg, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	pkg.Deactivate()
	if err := s.pkgRepo.Save(ctx, pkg); err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save package")
	}
	s.logger.Info("Package retired", zap.String("name", pkg.Name))
	return nil
}

// Reactivate puts a retired package back on sale.
func (s *PackageService) Reactivate(ctx context.Context, id uuid.UUID) error {
	pkg, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	pkg.Activate()
	if err := s.pkgRepo.Save(ctx, pkg); err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save package")
	}
	return nil
}

func (s *PackageService) load(ctx context.Context, id uuid.UUID) (*billing.Package, error) {
	pkg, err := s.pkgRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("PACKAGE_NOT_FOUND", "Package not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load package")
	}
	return pkg, nil
}

func toPackageDTO(pkg *billing.Package) *PackageDTO {
	return &PackageDTO{
		ID:                  pkg.ID,
		Name:                pkg.Name,
		DisplayName:         pkg.DisplayName,
		Description:         pkg.Description,
		PricingModel:        string(pkg.PricingModel),
		PriceGEL:            pkg.PriceGEL.String(),
		BillingPeriod:       string(pkg.BillingPeriod),
		MaxUsers:            pkg.MaxUsers,
		MaxWhatsAppMessages: pkg.MaxWhatsAppMessages,
		MaxStorageGB:        pkg.MaxStorageGB,
		Features:            pkg.Features.Keys(),
		IsActive:            pkg.IsActive,
		SortOrder:           pkg.SortOrder,
	}
}

func toPackageDTOs(pkgs []*billing.Package) []*PackageDTO {
	dtos := make([]*PackageDTO, 0, len(pkgs))
	for _, pkg := range pkgs {
		dtos = append(dtos, toPackageDTO(pkg))
	}
	return dtos
}
