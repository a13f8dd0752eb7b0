package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/echodesk/backend/internal/domain/shared"
)

// TenantStatus represents the lifecycle status of a tenant workspace
type TenantStatus string

const (
	TenantStatusTrial     TenantStatus = "trial"     // Trial period, full access until trial ends
	TenantStatusActive    TenantStatus = "active"    // Paid subscription active
	TenantStatusSuspended TenantStatus = "suspended" // Suspended for non-payment or abuse
	TenantStatusInactive  TenantStatus = "inactive"  // Deactivated, kept for data retention
)

// TenantPlan is the code of the billing package the tenant is on
type TenantPlan string

const (
	TenantPlanTrial        TenantPlan = "trial"
	TenantPlanStarter      TenantPlan = "starter"
	TenantPlanProfessional TenantPlan = "professional"
	TenantPlanEnterprise   TenantPlan = "enterprise"
)

// Language codes supported by tenant-facing surfaces
const (
	LanguageEnglish  = "en"
	LanguageGeorgian = "ka"
	LanguageRussian  = "ru"
)

// Schema names that can never be claimed by a tenant
var reservedSchemas = map[string]bool{
	"public": true, "admin": true, "api": true, "www": true,
	"app": true, "mail": true, "static": true, "media": true,
	"webhooks": true, "cron": true, "billing": true,
}

// Tenant is the aggregate root for a customer workspace.
// The Schema is the tenant's unique identifier used in URLs and
// subdomains; the Domain is an optional custom domain.
type Tenant struct {
	shared.BaseAggregateRoot
	Schema            string
	Name              string
	Domain            string
	AdminEmail        string
	AdminName         string
	FrontendURL       string
	PreferredLanguage string
	Status            TenantStatus
	Plan              TenantPlan
	SuspendedReason   string
	TrialEndsAt       *time.Time
	DeactivatedAt     *time.Time
}

// NewTenant creates an active tenant on the starter plan
func NewTenant(schema, name, adminEmail string) (*Tenant, error) {
	if err := validateSchema(schema); err != nil {
		return nil, err
	}
	if err := validateTenantName(name); err != nil {
		return nil, err
	}
	if err := validateEmail(adminEmail); err != nil {
		return nil, err
	}

	tenant := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Schema:            strings.ToLower(strings.TrimSpace(schema)),
		Name:              strings.TrimSpace(name),
		AdminEmail:        strings.ToLower(strings.TrimSpace(adminEmail)),
		PreferredLanguage: LanguageEnglish,
		Status:            TenantStatusActive,
		Plan:              TenantPlanStarter,
	}

	tenant.AddDomainEvent(NewTenantCreatedEvent(tenant))

	return tenant, nil
}

// NewTrialTenant creates a tenant in trial status with the given trial length
func NewTrialTenant(schema, name, adminEmail string, trialDays int) (*Tenant, error) {
	tenant, err := NewTenant(schema, name, adminEmail)
	if err != nil {
		return nil, err
	}
	if trialDays <= 0 {
		return nil, shared.NewDomainError("INVALID_TRIAL_DAYS", "Trial days must be positive")
	}

	trialEnd := time.Now().AddDate(0, 0, trialDays)
	tenant.Status = TenantStatusTrial
	tenant.Plan = TenantPlanTrial
	tenant.TrialEndsAt = &trialEnd

	return tenant, nil
}

// Update changes the tenant's display name and admin contact name
func (t *Tenant) Update(name, adminName string) error {
	if err := validateTenantName(name); err != nil {
		return err
	}
	if len(adminName) > 200 {
		return shared.NewDomainError("INVALID_ADMIN_NAME", "Admin name cannot exceed 200 characters")
	}

	t.Name = strings.TrimSpace(name)
	t.AdminName = strings.TrimSpace(adminName)
	t.touch()

	t.AddDomainEvent(NewTenantUpdatedEvent(t))

	return nil
}

// SetDomain sets the tenant's custom domain
func (t *Tenant) SetDomain(domain string) error {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain != "" {
		if len(domain) > 253 {
			return shared.NewDomainError("INVALID_DOMAIN", "Domain cannot exceed 253 characters")
		}
		domainRegex := regexp.MustCompile(`^[a-z0-9]([a-z0-9\-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9\-]*[a-z0-9])?)+$`)
		if !domainRegex.MatchString(domain) {
			return shared.NewDomainError("INVALID_DOMAIN", "Invalid domain format")
		}
	}

	t.Domain = domain
	t.touch()

	return nil
}

// SetFrontendURL sets the URL the tenant's users are redirected to after auth
func (t *Tenant) SetFrontendURL(url string) error {
	if url != "" && len(url) > 500 {
		return shared.NewDomainError("INVALID_FRONTEND_URL", "Frontend URL cannot exceed 500 characters")
	}
	t.FrontendURL = strings.TrimSpace(url)
	t.touch()
	return nil
}

// SetPreferredLanguage sets the tenant's notification language
func (t *Tenant) SetPreferredLanguage(lang string) error {
	switch lang {
	case LanguageEnglish, LanguageGeorgian, LanguageRussian:
		t.PreferredLanguage = lang
		t.touch()
		return nil
	default:
		return shared.NewDomainError("INVALID_LANGUAGE", "Unsupported language code")
	}
}

// SetPlan changes the tenant's billing plan
func (t *Tenant) SetPlan(plan TenantPlan) error {
	switch plan {
	case TenantPlanTrial, TenantPlanStarter, TenantPlanProfessional, TenantPlanEnterprise:
	default:
		return shared.NewDomainError("INVALID_PLAN", "Unknown plan code")
	}

	if t.Plan == plan {
		return nil
	}

	oldPlan := t.Plan
	t.Plan = plan
	t.touch()

	t.AddDomainEvent(NewTenantPlanChangedEvent(t, oldPlan, plan))

	return nil
}

// Activate transitions the tenant to active status.
// Used on first successful payment and when lifting a suspension.
func (t *Tenant) Activate() error {
	if t.Status == TenantStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Tenant is already active")
	}

	oldStatus := t.Status
	t.Status = TenantStatusActive
	t.SuspendedReason = ""
	t.DeactivatedAt = nil
	t.touch()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusActive))

	return nil
}

// Suspend suspends the tenant, recording why
func (t *Tenant) Suspend(reason string) error {
	if t.Status == TenantStatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Tenant is already suspended")
	}
	if t.Status == TenantStatusInactive {
		return shared.NewDomainError("TENANT_INACTIVE", "Cannot suspend an inactive tenant")
	}

	oldStatus := t.Status
	t.Status = TenantStatusSuspended
	t.SuspendedReason = reason
	t.touch()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusSuspended))

	return nil
}

// Deactivate permanently deactivates the tenant
func (t *Tenant) Deactivate() error {
	if t.Status == TenantStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Tenant is already inactive")
	}

	oldStatus := t.Status
	now := time.Now()
	t.Status = TenantStatusInactive
	t.DeactivatedAt = &now
	t.touch()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusInactive))

	return nil
}

// ConvertFromTrial upgrades a trial tenant to a paid plan
func (t *Tenant) ConvertFromTrial(plan TenantPlan) error {
	if t.Status != TenantStatusTrial {
		return shared.NewDomainError("NOT_TRIAL", "Tenant is not in trial status")
	}
	if plan == TenantPlanTrial {
		return shared.NewDomainError("INVALID_PLAN", "Cannot convert to trial plan")
	}

	if err := t.SetPlan(plan); err != nil {
		return err
	}

	t.Status = TenantStatusActive
	t.TrialEndsAt = nil
	t.touch()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, TenantStatusTrial, TenantStatusActive))

	return nil
}

// IsActive returns true if the tenant can use the system
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive || (t.Status == TenantStatusTrial && !t.IsTrialExpired())
}

// IsInactive returns true if the tenant has been deactivated
func (t *Tenant) IsInactive() bool {
	return t.Status == TenantStatusInactive
}

// IsSuspended returns true if the tenant is suspended
func (t *Tenant) IsSuspended() bool {
	return t.Status == TenantStatusSuspended
}

// IsTrialExpired returns true if the trial period has ended
func (t *Tenant) IsTrialExpired() bool {
	if t.Status != TenantStatusTrial || t.TrialEndsAt == nil {
		return false
	}
	return time.Now().After(*t.TrialEndsAt)
}

func (t *Tenant) touch() {
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

func validateSchema(schema string) error {
	schema = strings.ToLower(strings.TrimSpace(schema))
	if schema == "" {
		return shared.NewDomainError("INVALID_SCHEMA", "Schema name cannot be empty")
	}
	if len(schema) < 3 {
		return shared.NewDomainError("INVALID_SCHEMA", "Schema name must be at least 3 characters")
	}
	if len(schema) > 63 {
		return shared.NewDomainError("INVALID_SCHEMA", "Schema name cannot exceed 63 characters")
	}

	schemaRegex := regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	if !schemaRegex.MatchString(schema) {
		return shared.NewDomainError("INVALID_SCHEMA", "Schema name must start with a letter and contain only lowercase letters, numbers, and underscores")
	}

	if reservedSchemas[schema] {
		return shared.NewDomainError("RESERVED_SCHEMA", "Schema name is reserved")
	}

	return nil
}

func validateTenantName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot exceed 200 characters")
	}
	return nil
}
