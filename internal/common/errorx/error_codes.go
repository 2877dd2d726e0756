package errorx

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryValidation     ErrorCategory = "validation"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryNotFound       ErrorCategory = "not_found"
	CategoryInternal       ErrorCategory = "internal"
	CategoryExternal       ErrorCategory = "external"
)

// Severity represents the severity level of an error
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// APIError represents a structured API error
type APIError struct {
	Code        string         `json:"code"`
	Message     string         `json:"message"`
	Category    ErrorCategory  `json:"category"`
	Severity    Severity       `json:"severity"`
	HTTPStatus  int            `json:"-"`
	Details     map[string]any `json:"details,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	TraceID     string         `json:"trace_id,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Category, e.Message)
}

// JSON returns the error as a JSON string
func (e *APIError) JSON() string {
	out, _ := json.Marshal(e)
	return string(out)
}

// Clone returns a copy that can be decorated without touching e
func (e *APIError) Clone() *APIError {
	c := *e
	c.Details = maps.Clone(e.Details)
	c.Suggestions = slices.Clone(e.Suggestions)
	return &c
}

// WithDetail returns a copy of e carrying the detail
func (e *APIError) WithDetail(key string, value any) *APIError {
	c := e.Clone()
	if c.Details == nil {
		c.Details = make(map[string]any)
	}
	c.Details[key] = value
	return c
}

// WithSuggestion returns a copy of e carrying the suggestion
func (e *APIError) WithSuggestion(suggestion string) *APIError {
	c := e.Clone()
	c.Suggestions = append(c.Suggestions, suggestion)
	return c
}

// Common error codes and messages
var (
	// Validation Errors (E1000-E1999)
	ErrInvalidInput = &APIError{
		Code:       "E1001",
		Message:    "Invalid input provided",
		Category:   CategoryValidation,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusBadRequest,
	}

	// Authentication Errors (E2000-E2999)
	ErrUnauthorized = &APIError{
		Code:       "E2001",
		Message:    "Authentication required",
		Category:   CategoryAuthentication,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusUnauthorized,
		Suggestions: []string{
			"Send a valid Bearer token",
		},
	}

	// Not Found Errors (E4000-E4999)
	ErrResourceNotFound = &APIError{
		Code:       "E4001",
		Message:    "Requested resource not found",
		Category:   CategoryNotFound,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusNotFound,
	}

	// Internal Server Errors (E5000-E5999)
	ErrPanic = &APIError{
		Code:       "E5000",
		Message:    "Server panic occurred",
		Category:   CategoryInternal,
		Severity:   SeverityCritical,
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrInternalServer = &APIError{
		Code:       "E5001",
		Message:    "Internal server error occurred",
		Category:   CategoryInternal,
		Severity:   SeverityCritical,
		HTTPStatus: http.StatusInternalServerError,
		Suggestions: []string{
			"Please try again later",
		},
	}

	ErrDatabaseError = &APIError{
		Code:       "E5002",
		Message:    "Database operation failed",
		Category:   CategoryInternal,
		Severity:   SeverityError,
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrDatabaseUnavailable = &APIError{
		Code:       "E5031",
		Message:    "Database unavailable",
		Category:   CategoryExternal,
		Severity:   SeverityError,
		HTTPStatus: http.StatusServiceUnavailable,
	}

	ErrRequestTimeout = &APIError{
		Code:       "E5041",
		Message:    "Request did not complete in time",
		Category:   CategoryExternal,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusGatewayTimeout,
	}
)
