package identity

import (
	"context"
	"time"

	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantService handles tenant management operations
type TenantService struct {
	tenantRepo identity.TenantRepository
	logger     *zap.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(
	tenantRepo identity.TenantRepository,
	logger *zap.Logger,
) *TenantService {
	return &TenantService{
		tenantRepo: tenantRepo,
		logger:     logger,
	}
}

// CreateTenantInput contains input for creating a tenant
type CreateTenantInput struct {
	Schema            string
	Name              string
	AdminEmail        string
	AdminName         string
	Domain            string
	FrontendURL       string
	PreferredLanguage string
	Plan              string
	TrialDays         int // If > 0, creates a trial tenant
}

// UpdateTenantInput contains input for updating a tenant
type UpdateTenantInput struct {
	ID                uuid.UUID
	Name              *string
	AdminName         *string
	Domain            *string
	FrontendURL       *string
	PreferredLanguage *string
}

// TenantDTO represents tenant data transfer object
type TenantDTO struct {
	ID                uuid.UUID  `json:"id"`
	Schema            string     `json:"schema"`
	Name              string     `json:"name"`
	Domain            string     `json:"domain,omitempty"`
	AdminEmail        string     `json:"admin_email"`
	AdminName         string     `json:"admin_name,omitempty"`
	FrontendURL       string     `json:"frontend_url,omitempty"`
	PreferredLanguage string     `json:"preferred_language"`
	Status            string     `json:"status"`
	Plan              string     `json:"plan"`
	SuspendedReason   string     `json:"suspended_reason,omitempty"`
	TrialEndsAt       *time.Time `json:"trial_ends_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TenantFilter represents filter for querying tenants
type TenantFilter struct {
	Page     int
	PageSize int
	SortBy   string
	SortDir  string
	Keyword  string
	Status   string
}

// ToSharedFilter converts TenantFilter to shared.Filter
func (f TenantFilter) ToSharedFilter() shared.Filter {
	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return shared.Filter{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  f.SortBy,
		OrderDir: f.SortDir,
		Search:   f.Keyword,
	}
}

// TenantListResult represents paginated tenant list result
type TenantListResult struct {
	Tenants    []TenantDTO `json:"tenants"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// Create provisions a new tenant workspace
func (s *TenantService) Create(ctx context.Context, input CreateTenantInput) (*TenantDTO, error) {
	s.logger.Info("Creating new tenant",
		zap.String("schema", input.Schema),
		zap.String("name", input.Name))

	// Check schema uniqueness
	exists, err := s.tenantRepo.ExistsBySchema(ctx, input.Schema)
	if err != nil {
		s.logger.Error("Failed to check schema existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check schema availability")
	}
	if exists {
		return nil, shared.NewDomainError("SCHEMA_EXISTS", "A workspace with this schema already exists")
	}

	// Check domain uniqueness if provided
	if input.Domain != "" {
		exists, err := s.tenantRepo.ExistsByDomain(ctx, input.Domain)
		if err != nil {
			s.logger.Error("Failed to check domain existence", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check domain availability")
		}
		if exists {
			return nil, shared.NewDomainError("DOMAIN_EXISTS", "A workspace with this domain already exists")
		}
	}

	var tenant *identity.Tenant
	if input.TrialDays > 0 {
		tenant, err = identity.NewTrialTenant(input.Schema, input.Name, input.AdminEmail, input.TrialDays)
	} else {
		tenant, err = identity.NewTenant(input.Schema, input.Name, input.AdminEmail)
	}
	if err != nil {
		return nil, err
	}

	// Set optional fields
	if input.AdminName != "" {
		if err := tenant.Update(tenant.Name, input.AdminName); err != nil {
			return nil, err
		}
	}
	if input.Domain != "" {
		if err := tenant.SetDomain(input.Domain); err != nil {
			return nil, err
		}
	}
	if input.FrontendURL != "" {
		if err := tenant.SetFrontendURL(input.FrontendURL); err != nil {
			return nil, err
		}
	}
	if input.PreferredLanguage != "" {
		if err := tenant.SetPreferredLanguage(input.PreferredLanguage); err != nil {
			return nil, err
		}
	}
	if input.Plan != "" && input.TrialDays == 0 {
		if err := tenant.SetPlan(identity.TenantPlan(input.Plan)); err != nil {
			return nil, err
		}
	}

	// Save tenant
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to create tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create tenant")
	}

	s.logger.Info("Tenant created successfully",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("schema", tenant.Schema))

	return toTenantDTO(tenant), nil
}

// GetByID retrieves a tenant by ID
func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		s.logger.Error("Failed to find tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}
	return toTenantDTO(tenant), nil
}

// GetBySchema retrieves a tenant by its schema name
func (s *TenantService) GetBySchema(ctx context.Context, schema string) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindBySchema(ctx, schema)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		s.logger.Error("Failed to find tenant by schema", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}
	return toTenantDTO(tenant), nil
}

// GetByDomain retrieves a tenant by its custom domain
func (s *TenantService) GetByDomain(ctx context.Context, domain string) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindByDomain(ctx, domain)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		s.logger.Error("Failed to find tenant by domain", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}
	return toTenantDTO(tenant), nil
}

// List retrieves a paginated list of tenants
func (s *TenantService) List(ctx context.Context, filter TenantFilter) (*TenantListResult, error) {
	sharedFilter := filter.ToSharedFilter()

	var tenants []identity.Tenant
	var err error
	if filter.Status != "" {
		tenants, err = s.tenantRepo.FindByStatus(ctx, identity.TenantStatus(filter.Status), sharedFilter)
	} else {
		tenants, err = s.tenantRepo.FindAll(ctx, sharedFilter)
	}
	if err != nil {
		s.logger.Error("Failed to list tenants", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list tenants")
	}

	total, err := s.tenantRepo.Count(ctx, sharedFilter)
	if err != nil {
		s.logger.Error("Failed to count tenants", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count tenants")
	}

	totalPages := int(total) / sharedFilter.PageSize
	if int(total)%sharedFilter.PageSize > 0 {
		totalPages++
	}

	tenantDTOs := make([]TenantDTO, len(tenants))
	for i := range tenants {
		tenantDTOs[i] = *toTenantDTO(&tenants[i])
	}

	return &TenantListResult{
		Tenants:    tenantDTOs,
		Total:      total,
		Page:       sharedFilter.Page,
		PageSize:   sharedFilter.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Update updates a tenant's information
func (s *TenantService) Update(ctx context.Context, input UpdateTenantInput) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, input.ID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}

	if input.Name != nil || input.AdminName != nil {
		name := tenant.Name
		adminName := tenant.AdminName
		if input.Name != nil {
			name = *input.Name
		}
		if input.AdminName != nil {
			adminName = *input.AdminName
		}
		if err := tenant.Update(name, adminName); err != nil {
			return nil, err
		}
	}

	if input.Domain != nil {
		if *input.Domain != "" && *input.Domain != tenant.Domain {
			exists, err := s.tenantRepo.ExistsByDomain(ctx, *input.Domain)
			if err != nil {
				return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check domain availability")
			}
			if exists {
				return nil, shared.NewDomainError("DOMAIN_EXISTS", "A workspace with this domain already exists")
			}
		}
		if err := tenant.SetDomain(*input.Domain); err != nil {
			return nil, err
		}
	}

	if input.FrontendURL != nil {
		if err := tenant.SetFrontendURL(*input.FrontendURL); err != nil {
			return nil, err
		}
	}

	if input.PreferredLanguage != nil {
		if err := tenant.SetPreferredLanguage(*input.PreferredLanguage); err != nil {
			return nil, err
		}
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to update tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update tenant")
	}

	s.logger.Info("Tenant updated", zap.String("tenant_id", input.ID.String()))

	return toTenantDTO(tenant), nil
}

// SetPlan updates a tenant's billing plan code
func (s *TenantService) SetPlan(ctx context.Context, id uuid.UUID, plan string) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}

	if err := tenant.SetPlan(identity.TenantPlan(plan)); err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to update tenant plan", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update tenant plan")
	}

	s.logger.Info("Tenant plan updated",
		zap.String("tenant_id", id.String()),
		zap.String("plan", plan))

	return toTenantDTO(tenant), nil
}

// Activate activates a tenant
func (s *TenantService) Activate(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}

	if err := tenant.Activate(); err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to activate tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to activate tenant")
	}

	s.logger.Info("Tenant activated", zap.String("tenant_id", id.String()))

	return toTenantDTO(tenant), nil
}

// Suspend suspends a tenant
func (s *TenantService) Suspend(ctx context.Context, id uuid.UUID, reason string) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}

	if err := tenant.Suspend(reason); err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to suspend tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to suspend tenant")
	}

	s.logger.Info("Tenant suspended",
		zap.String("tenant_id", id.String()),
		zap.String("reason", reason))

	return toTenantDTO(tenant), nil
}

// Deactivate deactivates a tenant
func (s *TenantService) Deactivate(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}

	if err := tenant.Deactivate(); err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to deactivate tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to deactivate tenant")
	}

	s.logger.Info("Tenant deactivated", zap.String("tenant_id", id.String()))

	return toTenantDTO(tenant), nil
}

// Delete deletes a tenant
func (s *TenantService) Delete(ctx context.Context, id uuid.UUID) error {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}

	// Only inactive tenants can be removed for good
	if !tenant.IsInactive() {
		return shared.NewDomainError("TENANT_NOT_INACTIVE", "Tenant must be deactivated before deletion")
	}

	if err := s.tenantRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete tenant", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete tenant")
	}

	s.logger.Info("Tenant deleted", zap.String("tenant_id", id.String()))

	return nil
}

// Count returns the total number of tenants
func (s *TenantService) Count(ctx context.Context) (int64, error) {
	return s.tenantRepo.Count(ctx, shared.Filter{})
}

// GetStats returns tenant statistics by status
func (s *TenantService) GetStats(ctx context.Context) (*TenantStatsDTO, error) {
	stats := &TenantStatsDTO{}

	total, err := s.tenantRepo.Count(ctx, shared.Filter{})
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count tenants")
	}
	stats.Total = total

	for status, target := range map[identity.TenantStatus]*int64{
		identity.TenantStatusActive:    &stats.Active,
		identity.TenantStatusTrial:     &stats.Trial,
		identity.TenantStatusSuspended: &stats.Suspended,
		identity.TenantStatusInactive:  &stats.Inactive,
	} {
		count, err := s.tenantRepo.CountByStatus(ctx, status)
		if err != nil {
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count tenants by status")
		}
		*target = count
	}

	return stats, nil
}

// TenantStatsDTO represents tenant statistics
type TenantStatsDTO struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Trial     int64 `json:"trial"`
	Suspended int64 `json:"suspended"`
	Inactive  int64 `json:"inactive"`
}

// toTenantDTO converts domain Tenant to TenantDTO
func toTenantDTO(tenant *identity.Tenant) *TenantDTO {
	return &TenantDTO{
		ID:                tenant.ID,
		Schema:            tenant.Schema,
		Name:              tenant.Name,
		Domain:            tenant.Domain,
		AdminEmail:        tenant.AdminEmail,
		AdminName:         tenant.AdminName,
		FrontendURL:       tenant.FrontendURL,
		PreferredLanguage: tenant.PreferredLanguage,
		Status:            string(tenant.Status),
		Plan:              string(tenant.Plan),
		SuspendedReason:   tenant.SuspendedReason,
		TrialEndsAt:       tenant.TrialEndsAt,
		CreatedAt:         tenant.CreatedAt,
		UpdatedAt:         tenant.UpdatedAt,
	}
}
