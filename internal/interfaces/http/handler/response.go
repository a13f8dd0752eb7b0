package handler

import "github.com/echodesk/backend/internal/interfaces/http/dto"

// The types below exist for OpenAPI documentation only. Handlers write
// dto.Response at runtime; swag needs concrete generic instantiations
// to render the schemas.

// APIResponse is the standard envelope with a typed data field.
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is the envelope of a failed request.
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// SuccessResponse is the envelope of a success with no payload.
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// CountData carries a bare count payload.
type CountData struct {
	Count int64 `json:"count"`
}
