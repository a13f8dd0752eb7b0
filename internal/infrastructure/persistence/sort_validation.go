package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// Common allowed sort fields for entities with base fields
// These are the common fields present in most entities

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// UserSortFields contains allowed sort fields for users
var UserSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"email":         true,
	"first_name":    true,
	"last_name":     true,
	"status":        true,
	"last_login_at": true,
}

// TenantSortFields contains allowed sort fields for tenants
var TenantSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"schema":        true,
	"name":          true,
	"status":        true,
	"plan":          true,
	"trial_ends_at": true,
}

// RoleSortFields contains allowed sort fields for roles
var RoleSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"code":           true,
	"name":           true,
	"sort_order":     true,
	"is_enabled":     true,
	"is_system_role": true,
}

// CallLogSortFields contains allowed sort fields for call logs
var CallLogSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"caller_number": true,
	"callee_number": true,
	"direction":     true,
	"status":        true,
	"started_at":    true,
	"answered_at":   true,
	"ended_at":      true,
	"duration":      true,
}

// ClientSortFields contains allowed sort fields for CRM clients
var ClientSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"phone":      true,
	"email":      true,
}

// SocialMessageSortFields contains allowed sort fields for social messages
var SocialMessageSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"platform":   true,
	"direction":  true,
	"sent_at":    true,
}

// TicketSortFields contains allowed sort fields for tickets
var TicketSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"title":      true,
	"status":     true,
	"priority":   true,
	"position":   true,
	"column_id":  true,
	"due_date":   true,
}

// PackageSortFields contains allowed sort fields for billing packages
var PackageSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"price_gel":  true,
	"sort_order": true,
	"is_active":  true,
}

// SubscriptionSortFields contains allowed sort fields for subscriptions
var SubscriptionSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"status":            true,
	"next_billing_date": true,
	"expires_at":        true,
}

// PaymentOrderSortFields contains allowed sort fields for payment orders
var PaymentOrderSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"order_id":   true,
	"status":     true,
	"amount":     true,
	"paid_at":    true,
}
