package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
	// ErrCodeValidationLength is used when a field length is invalid
	ErrCodeValidationLength = "ERR_VALIDATION_LENGTH"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the user lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeQuotaExceeded is used when a plan quota would be exceeded
	ErrCodeQuotaExceeded = "ERR_QUOTA_EXCEEDED"
	// ErrCodeFeatureNotAvailable is used when the tenant's package lacks a feature
	ErrCodeFeatureNotAvailable = "ERR_FEATURE_NOT_AVAILABLE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodeTooManyRequests is an alias for rate limiting
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,
	ErrCodeValidationLength:   http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:        http.StatusUnprocessableEntity,
	ErrCodeQuotaExceeded:       http.StatusUnprocessableEntity,
	ErrCodeFeatureNotAvailable: http.StatusForbidden,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if status, ok := DomainErrorHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps generic domain error codes to standardized codes.
// Specific domain codes (CALL_NOT_FOUND, QUOTA_EXCEEDED, ...) are preserved
// as-is and resolved to HTTP statuses via DomainErrorHTTPStatus.
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// DomainErrorHTTPStatus maps domain-specific error codes to HTTP statuses.
// Codes here are passed through to API clients unchanged so that the
// frontend can branch on them; only the status is derived.
var DomainErrorHTTPStatus = map[string]int{
	// Lookups
	"TENANT_NOT_FOUND":     http.StatusNotFound,
	"USER_NOT_FOUND":       http.StatusNotFound,
	"ROLE_NOT_FOUND":       http.StatusNotFound,
	"CALL_NOT_FOUND":       http.StatusNotFound,
	"CLIENT_NOT_FOUND":     http.StatusNotFound,
	"RECORDING_NOT_FOUND":  http.StatusNotFound,
	"MESSAGE_NOT_FOUND":    http.StatusNotFound,
	"CONNECTION_NOT_FOUND": http.StatusNotFound,
	"TICKET_NOT_FOUND":     http.StatusNotFound,
	"COLUMN_NOT_FOUND":     http.StatusNotFound,
	"COMMENT_NOT_FOUND":    http.StatusNotFound,
	"PACKAGE_NOT_FOUND":    http.StatusNotFound,
	"ORDER_NOT_FOUND":      http.StatusNotFound,
	"NO_SUBSCRIPTION":      http.StatusNotFound,
	"NO_DEFAULT_COLUMN":    http.StatusNotFound,

	// Conflicts
	"PACKAGE_EXISTS": http.StatusConflict,
	"SCHEMA_EXISTS":  http.StatusConflict,
	"SCHEMA_PENDING": http.StatusConflict,
	"PHONE_EXISTS":   http.StatusConflict,
	"EMAIL_EXISTS":   http.StatusConflict,
	"ACCOUNT_IN_USE": http.StatusConflict,

	// Business rules
	"INVALID_TRANSITION":      http.StatusUnprocessableEntity,
	"INVALID_CALL_TRANSITION": http.StatusUnprocessableEntity,
	"CALL_ENDED":              http.StatusUnprocessableEntity,
	"RECORDING_NOT_READY":     http.StatusUnprocessableEntity,
	"FILE_MISSING":            http.StatusUnprocessableEntity,
	"QUOTA_EXCEEDED":          http.StatusUnprocessableEntity,
	"USER_LIMIT_REACHED":      http.StatusUnprocessableEntity,
	"SUBSCRIPTION_INACTIVE":   http.StatusUnprocessableEntity,
	"SUBSCRIPTION_EXPIRED":    http.StatusUnprocessableEntity,
	"PACKAGE_RETIRED":         http.StatusUnprocessableEntity,
	"TENANT_INACTIVE":         http.StatusUnprocessableEntity,
	"NO_SAVED_CARD":           http.StatusUnprocessableEntity,
	"DEFAULT_COLUMN":          http.StatusUnprocessableEntity,
	"INVALID_ORDER":           http.StatusUnprocessableEntity,

	// Input
	"INVALID_PHONE_NUMBER":  http.StatusBadRequest,
	"INVALID_QUALITY_SCORE": http.StatusBadRequest,
	"INVALID_COLOR":         http.StatusBadRequest,
	"MALFORMED_PAYLOAD":     http.StatusBadRequest,

	// Authentication
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"TOKEN_INVALID":       http.StatusUnauthorized,
	"TOKEN_EXPIRED":       http.StatusUnauthorized,
	"TOKEN_MAX_REFRESH":   http.StatusUnauthorized,
	"TOKEN_ERROR":         http.StatusUnauthorized,
	"ACCOUNT_LOCKED":      http.StatusForbidden,
	"ACCOUNT_BLOCKED":     http.StatusForbidden,
	"ACCOUNT_INACTIVE":    http.StatusForbidden,

	// Webhook security
	"INVALID_SIGNATURE":   http.StatusForbidden,
	"VERIFICATION_FAILED": http.StatusForbidden,

	// Feature gating
	"FEATURE_NOT_AVAILABLE": http.StatusForbidden,

	// Upstream payment provider failures
	"GATEWAY_ERROR": http.StatusBadGateway,
}

// NormalizeErrorCode converts a legacy error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
