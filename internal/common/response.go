package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIResponse is the standardized JSON response envelope.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError contains error details in the response.
type APIError struct {
	Code    int      `json:"code"`
	Kind    string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Success sends a successful JSON response with data.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Data:    data,
	})
}

// Error sends an error JSON response.
func Error(c *gin.Context, statusCode int, kind, message string) {
	ErrorWithDetails(c, statusCode, kind, message, nil)
}

// ErrorWithDetails sends an error JSON response carrying an ordered list
// of violation details (missing field names, validation messages).
func ErrorWithDetails(c *gin.Context, statusCode int, kind, message string, details []string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    statusCode,
			Kind:    kind,
			Message: message,
			Details: details,
		},
	})
}

// Error kinds used in the JSON error payload. These are the
// machine-readable names of the dispatch failure taxonomy.
const (
	KindMissingFields         = "missing_fields"
	KindUnknownTemplate       = "unknown_template"
	KindValidationFailed      = "validation_failed"
	KindDelayInvalid          = "delay_invalid"
	KindProviderNotConfigured = "provider_not_configured"
	KindProviderError         = "provider_error"
	KindRateLimited           = "rate_limited"
	KindUnauthorized          = "unauthorized"
	KindInternal              = "internal_error"
)

// HandleError inspects a domain error and sends the appropriate HTTP
// response. Uses errors.As to traverse the full error chain, supporting
// wrapped errors. Unexpected errors become a generic internal failure
// without leaking internal state.
func HandleError(c *gin.Context, err error) {
	var missing *MissingFieldsError
	var unknownTmpl *UnknownTemplateError
	var validation *ValidationFailedError
	var delay *DelayError
	var notConfigured *NotConfiguredError
	var provider *ProviderError
	var rateLimited *RateLimitedError
	var unauthorized *UnauthorizedError

	switch {
	case errors.As(err, &missing):
		ErrorWithDetails(c, http.StatusBadRequest, KindMissingFields, missing.Error(), missing.Fields)
	case errors.As(err, &unknownTmpl):
		ErrorWithDetails(c, http.StatusBadRequest, KindUnknownTemplate, unknownTmpl.Error(), unknownTmpl.Valid)
	case errors.As(err, &validation):
		ErrorWithDetails(c, http.StatusBadRequest, KindValidationFailed, "Template validation failed", validation.Violations)
	case errors.As(err, &delay):
		Error(c, http.StatusBadRequest, KindDelayInvalid, delay.Error())
	case errors.As(err, &notConfigured):
		Error(c, http.StatusServiceUnavailable, KindProviderNotConfigured, notConfigured.Error())
	case errors.As(err, &provider):
		Error(c, http.StatusBadGateway, KindProviderError, provider.Error())
	case errors.As(err, &rateLimited):
		Error(c, http.StatusTooManyRequests, KindRateLimited, rateLimited.Error())
	case errors.As(err, &unauthorized):
		Error(c, http.StatusUnauthorized, KindUnauthorized, unauthorized.Error())
	default:
		Error(c, http.StatusInternalServerError, KindInternal, "internal server error")
	}
}
