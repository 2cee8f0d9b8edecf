// Package errors provides a lightweight structured error type (BlogforgeError)
// for category-based classification and retry semantics in the CLI and dev server.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a Blogforge error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Build and processing errors
	CategoryPlugin     ErrorCategory = "plugin"
	CategoryBuild      ErrorCategory = "build"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Runtime and infrastructure errors
	CategoryServer   ErrorCategory = "server"
	CategoryEvents   ErrorCategory = "events"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// BlogforgeError is a structured error with category, retryability, and context
type BlogforgeError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for BlogforgeError
type ContextFields map[string]any

// Error implements the error interface
func (e *BlogforgeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *BlogforgeError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *BlogforgeError) WithContext(key string, value any) *BlogforgeError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// WithSeverity overrides the error severity
func (e *BlogforgeError) WithSeverity(severity ErrorSeverity) *BlogforgeError {
	e.Severity = severity
	return e
}

// New creates a new BlogforgeError
func New(category ErrorCategory, severity ErrorSeverity, message string) *BlogforgeError {
	return &BlogforgeError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new BlogforgeError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *BlogforgeError {
	return &BlogforgeError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}

// Retryable creates a new retryable BlogforgeError
func Retryable(category ErrorCategory, severity ErrorSeverity, message string) *BlogforgeError {
	return &BlogforgeError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: true,
	}
}

// ValidationError creates a validation error with SeverityError
func ValidationError(message string) *BlogforgeError {
	return New(CategoryValidation, SeverityError, message)
}

// ConfigError creates a configuration error with SeverityFatal
func ConfigError(message string) *BlogforgeError {
	return New(CategoryConfig, SeverityFatal, message)
}

// IsRetryable reports whether err (or any wrapped cause) is a retryable BlogforgeError.
func IsRetryable(err error) bool {
	for err != nil {
		if be, ok := err.(*BlogforgeError); ok {
			return be.Retryable
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
