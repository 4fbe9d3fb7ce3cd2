// Package errors provides the structured error type used across snazzy and
// the domain errors raised by the component bundling pipeline.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeBuild      ErrorType = "build"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// SnazzyError is a structured error type with context.
type SnazzyError struct {
	Type      ErrorType
	Code      string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Component string
	Source    string
}

// Error implements the error interface.
func (e *SnazzyError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.Source != "" {
		parts = append(parts, e.Source)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *SnazzyError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *SnazzyError) Is(target error) bool {
	var t *SnazzyError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *SnazzyError) WithContext(key string, value interface{}) *SnazzyError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation records the source identifier the error refers to.
func (e *SnazzyError) WithLocation(source string) *SnazzyError {
	e.Source = source

	return e
}

// WithComponent adds component context.
func (e *SnazzyError) WithComponent(component string) *SnazzyError {
	e.Component = component

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *SnazzyError {
	return &SnazzyError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewIOError creates a file system error without an underlying cause.
func NewIOError(code, message string) *SnazzyError {
	return &SnazzyError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
	}
}

// NewBuildError creates a build error.
func NewBuildError(code, message string, cause error) *SnazzyError {
	return &SnazzyError{
		Type:    ErrorTypeBuild,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *SnazzyError {
	return &SnazzyError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsConfigError checks if an error is configuration-related.
func IsConfigError(err error) bool {
	var se *SnazzyError
	if errors.As(err, &se) {
		return se.Type == ErrorTypeConfig
	}

	return false
}

// Common error codes.
const (
	ErrCodeMalformedComponent = "ERR_MALFORMED_COMPONENT"
	ErrCodeUnknownDependency  = "ERR_UNKNOWN_DEPENDENCY"
	ErrCodeCyclicDependency   = "ERR_CYCLIC_DEPENDENCY"
	ErrCodeExternalTool       = "ERR_EXTERNAL_TOOL"
	ErrCodeTransformFailed    = "ERR_TRANSFORM_FAILED"
	ErrCodeBuildFailed        = "ERR_BUILD_FAILED"
	ErrCodeConfigInvalid      = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound       = "ERR_FILE_NOT_FOUND"
	ErrCodeWriteFailed        = "ERR_WRITE_FAILED"
	ErrCodeInternalError      = "ERR_INTERNAL"
	ErrCodeInvalidName        = "ERR_INVALID_NAME"
)

// As is errors.As, re-exported so callers importing this package under its
// own name do not need a second import.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// New is errors.New.
func New(text string) error {
	return errors.New(text)
}
