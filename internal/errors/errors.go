package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-access-api/internal/logger"
	"go.uber.org/zap"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"

	// Authorization errors
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeRoleNotAuthorized = "ROLE_NOT_AUTHORIZED"

	// Validation errors
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeMissingField  = "MISSING_FIELD"
	ErrCodeInvalidFormat = "INVALID_FORMAT"

	// Resource errors
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeConflict      = "CONFLICT"

	// Service errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// NewAPIErrorWithDetails creates a new APIError with details
func NewAPIErrorWithDetails(code, message string, details interface{}) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.JSON(statusCode, err)
}

// Helper functions for common error responses

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeUnauthorized, message))
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, http.StatusForbidden, NewAPIError(ErrCodeForbidden, message))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, NewAPIError(ErrCodeNotFound, message))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeInvalidInput, message))
}

// InvalidFields sends a 400 response listing the offending fields and the
// rule each one broke. The code is MISSING_FIELD when any field is absent.
func InvalidFields(c *gin.Context, message string, fields map[string]string) {
	code := ErrCodeInvalidFormat
	for _, rule := range fields {
		if rule == "required" {
			code = ErrCodeMissingField
			break
		}
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIErrorWithDetails(code, message, fields))
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	if message == "" {
		message = "Resource conflict"
	}
	RespondWithError(c, http.StatusConflict, NewAPIError(ErrCodeConflict, message))
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, message))
}

// ServiceUnavailable sends a 503 response
func ServiceUnavailable(c *gin.Context, message string) {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	RespondWithError(c, http.StatusServiceUnavailable, NewAPIError(ErrCodeServiceUnavailable, message))
}

// RespondWithServiceError maps an error returned by a service to an HTTP
// response. Domain errors keep their message; anything else is logged and
// answered with a generic 500 so no internal detail crosses the boundary.
func RespondWithServiceError(c *gin.Context, err error) {
	message := MessageOf(err)

	switch KindOf(err) {
	case KindValidation:
		BadRequest(c, message)
	case KindNotFound:
		NotFound(c, message)
	case KindConflict:
		if code := CodeOf(err); code != "" {
			RespondWithError(c, http.StatusConflict, NewAPIError(code, message))
			return
		}
		Conflict(c, message)
	case KindUnauthorized:
		RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeInvalidCredentials, message))
	case KindForbidden:
		RespondWithError(c, http.StatusForbidden, NewAPIError(ErrCodeRoleNotAuthorized, message))
	case KindUnavailable:
		logger.FromGin(c).Warn("dependency unavailable", zap.Error(err))
		ServiceUnavailable(c, "")
	default:
		logger.FromGin(c).Error("unexpected error", zap.Error(err))
		InternalError(c, "")
	}
}
