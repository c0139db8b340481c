// Package errors provides a standardized application error type used
// across every component of the trap ingestion pipeline.
package errors

import (
	"fmt"
	"runtime"
	"time"
)

// AppError is a structured error carrying enough context for both
// structured logging and the recoverable/fatal policy in spec.md §7.
type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	Cause      error                  `json:"cause,omitempty"`
	StackTrace string                 `json:"stack_trace,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Severity   Severity               `json:"severity"`
}

// Severity classifies how an error should be handled by its caller.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Error codes used across the pipeline. CodeConfigInvalid and
// CodeConfigNotFound cover configuration loading; each of the others
// maps to one of the error kinds enumerated in spec.md §7.
const (
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeConfigNotFound   = "CONFIG_NOT_FOUND"
	CodeLogUnopenable    = "LOG_UNOPENABLE"
	CodeLogTruncated     = "LOG_TRUNCATED"
	CodeIndexUnreadable  = "INDEX_UNREADABLE"
	CodeTrapMalformed    = "TRAP_MALFORMED"
	CodeFilterFailed     = "FILTER_FAILED"
	CodePersistFailed    = "PERSIST_FAILED"
	CodeForwardFailed    = "FORWARD_FAILED"
	CodeWorkerPanic      = "WORKER_PANIC"
)

// New creates a standardized error with medium severity and a caller
// stack frame for quick triage.
func New(code, component, operation, message string) *AppError {
	_, file, line, _ := runtime.Caller(1)

	return &AppError{
		Code:       code,
		Message:    message,
		Component:  component,
		Operation:  operation,
		StackTrace: fmt.Sprintf("%s:%d", file, line),
		Metadata:   make(map[string]interface{}),
		Timestamp:  time.Now(),
		Severity:   SeverityMedium,
	}
}

// NewCritical creates a fatal-class error (log-file missing at
// startup, for example).
func NewCritical(code, component, operation, message string) *AppError {
	err := New(code, component, operation, message)
	err.Severity = SeverityCritical
	return err
}

// NewWithSeverity creates an error with an explicit severity.
func NewWithSeverity(severity Severity, code, component, operation, message string) *AppError {
	err := New(code, component, operation, message)
	err.Severity = severity
	return err
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Component, e.Operation, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
}

// Unwrap allows errors.Is/errors.As to reach the wrapped cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Wrap attaches a cause to the error and returns it for chaining.
func (e *AppError) Wrap(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithMetadata attaches a key/value pair of structured context.
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// IsCritical reports whether the error should abort startup.
func (e *AppError) IsCritical() bool {
	return e.Severity == SeverityCritical
}

// IsRecoverable reports whether the pipeline should continue after
// logging the error, per spec.md §7's per-error-kind policy.
func (e *AppError) IsRecoverable() bool {
	switch e.Severity {
	case SeverityCritical, SeverityHigh:
		return false
	default:
		return true
	}
}

// ToMap converts the error into a flat map suitable for
// logrus.WithFields.
func (e *AppError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code":      e.Code,
		"error_component": e.Component,
		"error_operation": e.Operation,
		"error_severity":  string(e.Severity),
		"error_timestamp": e.Timestamp,
	}

	if e.Cause != nil {
		result["error_cause"] = e.Cause.Error()
	}

	for k, v := range e.Metadata {
		result[fmt.Sprintf("error_meta_%s", k)] = v
	}

	return result
}

// IsAppError reports whether err is an *AppError.
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError converts err to *AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}
