package shared

// DomainError is a business-rule violation with a stable machine code.
// The HTTP layer maps codes to status codes; messages are safe to show
// to API consumers.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError builds a DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Sentinel errors shared across the domains. Compare with errors.Is.
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrExpired             = NewDomainError("EXPIRED", "Resource has expired")
	ErrLimitExceeded       = NewDomainError("LIMIT_EXCEEDED", "Subscription limit exceeded")
	ErrFeatureNotAvailable = NewDomainError("FEATURE_NOT_AVAILABLE", "Feature not included in the current package")
)
