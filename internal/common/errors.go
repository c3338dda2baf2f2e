package common

import (
	"fmt"
	"strings"
)

// MissingFieldsError indicates a request lacks fields required for its
// channel. It is reported before any provider call is attempted.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "Missing required fields: " + strings.Join(e.Fields, ", ")
}

// NewMissingFieldsError creates a new MissingFieldsError.
func NewMissingFieldsError(fields ...string) *MissingFieldsError {
	return &MissingFieldsError{Fields: fields}
}

// UnknownTemplateError indicates a referenced template identifier is not
// in the registry. Valid carries the full set of registered names so
// callers can surface it in user-facing messages.
type UnknownTemplateError struct {
	Name  string
	Valid []string
}

func (e *UnknownTemplateError) Error() string {
	return fmt.Sprintf("template %q not found (available: %s)", e.Name, strings.Join(e.Valid, ", "))
}

// NewUnknownTemplateError creates a new UnknownTemplateError.
func NewUnknownTemplateError(name string, valid []string) *UnknownTemplateError {
	return &UnknownTemplateError{Name: name, Valid: valid}
}

// ValidationFailedError indicates a property bag failed a template's
// field or shape rules. Violations keeps the schema order.
type ValidationFailedError struct {
	Violations []string
}

func (e *ValidationFailedError) Error() string {
	return "template validation failed: " + strings.Join(e.Violations, "; ")
}

// NewValidationFailedError creates a new ValidationFailedError.
func NewValidationFailedError(violations []string) *ValidationFailedError {
	return &ValidationFailedError{Violations: violations}
}

// DelayError indicates an invalid delay amount or unit.
type DelayError struct {
	Message string
}

func (e *DelayError) Error() string {
	return e.Message
}

// NewDelayError creates a new DelayError.
func NewDelayError(format string, args ...any) *DelayError {
	return &DelayError{Message: fmt.Sprintf(format, args...)}
}

// NotConfiguredError indicates required provider credentials are absent.
// Dispatch fails fast with this error before any network call.
type NotConfiguredError struct {
	Provider string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("%s provider is not configured", e.Provider)
}

// NewNotConfiguredError creates a new NotConfiguredError.
func NewNotConfiguredError(provider string) *NotConfiguredError {
	return &NotConfiguredError{Provider: provider}
}

// ProviderError indicates an external provider failure. The message is
// passed through from the provider and never retried by the core.
type ProviderError struct {
	Provider string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: %s", e.Provider, e.Message)
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, message string) *ProviderError {
	return &ProviderError{Provider: provider, Message: message}
}

// RateLimitedError indicates a per-recipient send limit was hit.
type RateLimitedError struct {
	Recipient string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for recipient: %s", e.Recipient)
}

// NewRateLimitedError creates a new RateLimitedError.
func NewRateLimitedError(recipient string) *RateLimitedError {
	return &RateLimitedError{Recipient: recipient}
}

// UnauthorizedError indicates missing or invalid authentication.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return e.Message
}

// NewUnauthorizedError creates a new UnauthorizedError.
func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}
