// Package errors defines the error taxonomy shared by the development loop:
// transient I/O, build failures, deploy failures, fatal configuration errors
// and cancellation.
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
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeBuild      ErrorType = "build"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeDeploy     ErrorType = "deploy"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeWatchLimit      = "ERR_WATCH_LIMIT"
	ErrCodeWatchFailed     = "ERR_WATCH_FAILED"
	ErrCodeBuildFailed     = "ERR_BUILD_FAILED"
	ErrCodeBuildCancelled  = "ERR_BUILD_CANCELLED"
	ErrCodeConnect         = "ERR_CONNECT"
	ErrCodeDeployFailed    = "ERR_DEPLOY_FAILED"
	ErrCodeRedirect        = "ERR_REDIRECT"
	ErrCodeUnauthorized    = "ERR_UNAUTHORIZED"
	ErrCodeConfigInvalid   = "ERR_CONFIG_INVALID"
	ErrCodeProcess         = "ERR_PROCESS"
	ErrCodeInvalidArgument = "ERR_INVALID_ARGUMENT"
	ErrCodeInternalError   = "ERR_INTERNAL"
)

// DevError is a structured error type with context.
type DevError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	FilePath    string
	Recoverable bool
}

// Error implements the error interface.
func (e *DevError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *DevError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by type and code.
func (e *DevError) Is(target error) bool {
	var t *DevError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *DevError) WithContext(key string, value interface{}) *DevError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath adds file location information.
func (e *DevError) WithPath(filePath string) *DevError {
	e.FilePath = filePath

	return e
}

// WithComponent adds component context.
func (e *DevError) WithComponent(component string) *DevError {
	e.Component = component

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *DevError {
	return &DevError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewBuildError creates a build error.
func NewBuildError(code, message string, cause error) *DevError {
	return &DevError{
		Type:        ErrorTypeBuild,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *DevError {
	return &DevError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewNetworkError creates a network error. Network errors are transient and
// the loop retries them on the next trigger.
func NewNetworkError(code, message string, cause error) *DevError {
	return &DevError{
		Type:        ErrorTypeNetwork,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewDeployError creates a deploy error.
func NewDeployError(code, message string, cause error) *DevError {
	return &DevError{
		Type:        ErrorTypeDeploy,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *DevError {
	return &DevError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *DevError {
	return &DevError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// ErrBuildCancelled is returned for builds superseded by a newer change burst.
var ErrBuildCancelled = &DevError{
	Type:        ErrorTypeBuild,
	Code:        ErrCodeBuildCancelled,
	Message:     "build cancelled",
	Recoverable: true,
}

// ErrWatchLimit is returned when the OS refuses to allocate more watches.
var ErrWatchLimit = &DevError{
	Type:    ErrorTypeIO,
	Code:    ErrCodeWatchLimit,
	Message: "file watch limit reached",
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var de *DevError
	if errors.As(err, &de) {
		return de.Recoverable
	}

	return false
}

// IsBuildError checks if an error is build-related.
func IsBuildError(err error) bool {
	var de *DevError
	if errors.As(err, &de) {
		return de.Type == ErrorTypeBuild
	}

	return false
}

// IsDeployError checks if an error came from a deploy attempt.
func IsDeployError(err error) bool {
	var de *DevError
	if errors.As(err, &de) {
		return de.Type == ErrorTypeDeploy
	}

	return false
}

// IsCancelled reports whether err marks a superseded build.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrBuildCancelled)
}

// IsWatchLimit reports whether err stems from exhausted OS watch resources.
func IsWatchLimit(err error) bool {
	return errors.Is(err, ErrWatchLimit)
}
