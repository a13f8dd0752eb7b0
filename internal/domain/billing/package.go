package billing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/echodesk/backend/internal/domain/shared"
)

// PricingModel determines how a package is billed.
type PricingModel string

const (
	// PricingModelAgent bills per seat: price is multiplied by the agent count.
	PricingModelAgent PricingModel = "agent"
	// PricingModelCRM is a flat monthly price regardless of seats.
	PricingModelCRM PricingModel = "crm"
)

func (m PricingModel) IsValid() bool {
	return m == PricingModelAgent || m == PricingModelCRM
}

// BillingPeriod is the renewal interval of a package.
type BillingPeriod string

const (
	BillingPeriodMonthly BillingPeriod = "monthly"
	BillingPeriodYearly  BillingPeriod = "yearly"
)

func (p BillingPeriod) IsValid() bool {
	return p == BillingPeriodMonthly || p == BillingPeriodYearly
}

// Days returns the length of one billing cycle in days.
func (p BillingPeriod) Days() int {
	if p == BillingPeriodYearly {
		return 365
	}
	return 30
}

// PackageFeatures is the set of capability switches a package grants.
// A zero value means everything is off.
type PackageFeatures struct {
	CallLogging        bool `json:"call_logging"`
	CallRecording      bool `json:"call_recording"`
	SocialFacebook     bool `json:"social_facebook"`
	SocialInstagram    bool `json:"social_instagram"`
	SocialWhatsApp     bool `json:"social_whatsapp"`
	TicketBoard        bool `json:"ticket_board"`
	AdvancedReporting  bool `json:"advanced_reporting"`
	APIAccess          bool `json:"api_access"`
	PrioritySupport    bool `json:"priority_support"`
	CustomIntegrations bool `json:"custom_integrations"`
}

// FeatureKey names a gated capability. Keys line up with the
// PackageFeatures switches and are what the HTTP feature gate checks.
type FeatureKey string

const (
	FeatureCallLogging        FeatureKey = "call_logging"
	FeatureCallRecording      FeatureKey = "call_recording"
	FeatureSocialFacebook     FeatureKey = "social_facebook"
	FeatureSocialInstagram    FeatureKey = "social_instagram"
	FeatureSocialWhatsApp     FeatureKey = "social_whatsapp"
	FeatureTicketBoard        FeatureKey = "ticket_board"
	FeatureAdvancedReporting  FeatureKey = "advanced_reporting"
	FeatureAPIAccess          FeatureKey = "api_access"
	FeaturePrioritySupport    FeatureKey = "priority_support"
	FeatureCustomIntegrations FeatureKey = "custom_integrations"
)

// Has reports whether the feature identified by key is enabled.
func (f PackageFeatures) Has(key FeatureKey) bool {
	switch key {
	case FeatureCallLogging:
		return f.CallLogging
	case FeatureCallRecording:
		return f.CallRecording
	case FeatureSocialFacebook:
		return f.SocialFacebook
	case FeatureSocialInstagram:
		return f.SocialInstagram
	case FeatureSocialWhatsApp:
		return f.SocialWhatsApp
	case FeatureTicketBoard:
		return f.TicketBoard
	case FeatureAdvancedReporting:
		return f.AdvancedReporting
	case FeatureAPIAccess:
		return f.APIAccess
	case FeaturePrioritySupport:
		return f.PrioritySupport
	case FeatureCustomIntegrations:
		return f.CustomIntegrations
	default:
		return false
	}
}

// Keys returns every enabled feature key, used to seed the gate cache.
func (f PackageFeatures) Keys() []FeatureKey {
	all := []FeatureKey{
		FeatureCallLogging, FeatureCallRecording,
		FeatureSocialFacebook, FeatureSocialInstagram, FeatureSocialWhatsApp,
		FeatureTicketBoard, FeatureAdvancedReporting, FeatureAPIAccess,
		FeaturePrioritySupport, FeatureCustomIntegrations,
	}
	var enabled []FeatureKey
	for _, k := range all {
		if f.Has(k) {
			enabled = append(enabled, k)
		}
	}
	return enabled
}

// Package is a sellable subscription plan. It is a catalog entity shared
// across tenants, so it is not tenant scoped.
type Package struct {
	shared.BaseAggregateRoot
	Name                string          `json:"name" gorm:"uniqueIndex;size:100;not null"`
	DisplayName         string          `json:"display_name" gorm:"size:200;not null"`
	Description         string          `json:"description" gorm:"type:text"`
	PricingModel        PricingModel    `json:"pricing_model" gorm:"size:20;not null;default:'crm'"`
	PriceGEL            decimal.Decimal `json:"price_gel" gorm:"type:decimal(10,2);not null"`
	BillingPeriod       BillingPeriod   `json:"billing_period" gorm:"size:20;not null;default:'monthly'"`
	MaxUsers            int             `json:"max_users" gorm:"not null;default:0"`
	MaxWhatsAppMessages int             `json:"max_whatsapp_messages" gorm:"not null;default:0"`
	MaxStorageGB        int             `json:"max_storage_gb" gorm:"not null;default:0"`
	Features            PackageFeatures `json:"features" gorm:"embedded;embeddedPrefix:feature_"`
	IsActive            bool            `json:"is_active" gorm:"not null;default:true"`
	SortOrder           int             `json:"sort_order" gorm:"not null;default:0"`
}

func (Package) TableName() string {
	return "billing_packages"
}

// NewPackage creates an active package. Name is the stable machine
// identifier; DisplayName is what customers see.
func NewPackage(name, displayName string, model PricingModel, priceGEL decimal.Decimal, period BillingPeriod) (*Package, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return nil, shared.NewDomainError("INVALID_PACKAGE_NAME", "Package name cannot be empty")
	}
	if strings.TrimSpace(displayName) == "" {
		return nil, shared.NewDomainError("INVALID_PACKAGE_NAME", "Package display name cannot be empty")
	}
	if !model.IsValid() {
		return nil, shared.NewDomainError("INVALID_PRICING_MODEL", "Pricing model must be 'agent' or 'crm'")
	}
	if !period.IsValid() {
		return nil, shared.NewDomainError("INVALID_BILLING_PERIOD", "Billing period must be 'monthly' or 'yearly'")
	}
	if priceGEL.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Package price cannot be negative")
	}

	pkg := &Package{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		DisplayName:       strings.TrimSpace(displayName),
		PricingModel:      model,
		PriceGEL:          priceGEL,
		BillingPeriod:     period,
		IsActive:          true,
	}
	return pkg, nil
}

// PriceFor computes the charge for one billing cycle. Per-agent packages
// multiply by the seat count; flat packages ignore it.
func (p *Package) PriceFor(agentCount int) (decimal.Decimal, error) {
	if p.PricingModel == PricingModelAgent {
		if agentCount < 1 {
			return decimal.Zero, shared.NewDomainError("INVALID_AGENT_COUNT", "Agent count must be at least 1")
		}
		return p.PriceGEL.Mul(decimal.NewFromInt(int64(agentCount))), nil
	}
	return p.PriceGEL, nil
}

// SetPrice updates the package price for future orders only.
func (p *Package) SetPrice(priceGEL decimal.Decimal) error {
	if priceGEL.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Package price cannot be negative")
	}
	p.PriceGEL = priceGEL
	p.IncrementVersion()
	return nil
}

// SetLimits updates the quota ceilings. Zero means unlimited.
func (p *Package) SetLimits(maxUsers, maxWhatsAppMessages, maxStorageGB int) error {
	if maxUsers < 0 || maxWhatsAppMessages < 0 || maxStorageGB < 0 {
		return shared.NewDomainError("INVALID_LIMIT", "Package limits cannot be negative")
	}
	p.MaxUsers = maxUsers
	p.MaxWhatsAppMessages = maxWhatsAppMessages
	p.MaxStorageGB = maxStorageGB
	p.IncrementVersion()
	return nil
}

// SetFeatures replaces the feature switches wholesale.
func (p *Package) SetFeatures(features PackageFeatures) {
	p.Features = features
	p.IncrementVersion()
}

func (p *Package) Activate() {
	p.IsActive = true
	p.IncrementVersion()
}

// Deactivate hides the package from new purchases. Existing
// subscriptions keep renewing against it.
func (p *Package) Deactivate() {
	p.IsActive = false
	p.IncrementVersion()
}

// IsUnlimitedUsers reports whether the package has no seat ceiling.
func (p *Package) IsUnlimitedUsers() bool {
	return p.MaxUsers == 0
}
