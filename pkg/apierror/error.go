package apierror

import (
	"encoding/json"
	"net/http"
)

// Error represents a structured API error response.
type Error struct {
	StatusCode int          `json:"-"`
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Details    []FieldError `json:"details,omitempty"`

	// Data is a partial result delivered alongside the error.
	Data any `json:"-"`
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// ToJSON converts the error to JSON bytes.
func (e *Error) ToJSON() []byte {
	body := map[string]any{
		"code":    e.Code,
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		body["details"] = e.Details
	}

	response := map[string]any{
		"success": false,
		"error":   body,
	}
	if e.Data != nil {
		response["data"] = e.Data
	}

	data, _ := json.Marshal(response)
	return data
}

// ValidationError creates a 400 error with validation details.
func ValidationError(message string, details ...FieldError) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
		Message:    message,
		Details:    details,
	}
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

// NotFound creates a 404 Not Found error.
func NotFound(message string) *Error {
	if message == "" {
		message = "Resource not found"
	}
	return &Error{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    message,
	}
}

// InternalError creates a 500 Internal Server Error.
func InternalError(message string) *Error {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
	}
}

// BadGateway creates a 502 error for upstream store failures.
func BadGateway(message string) *Error {
	if message == "" {
		message = "Upstream data store failed"
	}
	return &Error{
		StatusCode: http.StatusBadGateway,
		Code:       "BAD_GATEWAY",
		Message:    message,
	}
}

// PartialFetch creates a 502 error carrying whatever was fetched successfully.
func PartialFetch(message string, data any) *Error {
	return &Error{
		StatusCode: http.StatusBadGateway,
		Code:       "PARTIAL_FETCH",
		Message:    message,
		Data:       data,
	}
}

// GatewayTimeout creates a 504 error for requests whose deadline passed.
func GatewayTimeout(message string) *Error {
	if message == "" {
		message = "Request timed out"
	}
	return &Error{
		StatusCode: http.StatusGatewayTimeout,
		Code:       "TIMEOUT",
		Message:    message,
	}
}
