package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the bridge.
type ErrorCode string

// Definition and registry error codes. These are raised synchronously at
// registration or lookup time, never during a running execution.
const (
	ErrDefinition ErrorCode = "DEFINITION_ERROR"
	ErrNotFound   ErrorCode = "NOT_FOUND"
)

// Runtime error codes. These are recorded on the affected task and observed
// through status queries; they never escape as errors from ExecuteWorkflow.
const (
	ErrResolution ErrorCode = "RESOLUTION_ERROR"
	ErrExecution  ErrorCode = "EXECUTION_ERROR"
	ErrTimeout    ErrorCode = "TIMEOUT"
	ErrCancelled  ErrorCode = "CANCELLED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	TaskID    string    `json:"task_id,omitempty"`
	Reference string    `json:"reference,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Cause != nil && e.TaskID != "":
		return fmt.Sprintf("[%s] %s (task %s): %v", e.Code, e.Message, e.TaskID, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	case e.TaskID != "":
		return fmt.Sprintf("[%s] %s (task %s)", e.Code, e.Message, e.TaskID)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewDefinitionError creates an Error for a malformed workflow definition.
func NewDefinitionError(message string) *Error {
	return &Error{Code: ErrDefinition, Message: message}
}

// NewNotFoundError creates an Error for an unknown workflow or execution id.
func NewNotFoundError(kind, id string) *Error {
	return &Error{Code: ErrNotFound, Message: fmt.Sprintf("%s not found: %s", kind, id)}
}

// NewResolutionError creates an Error for a template reference with no
// matching variable store entry.
func NewResolutionError(reference string) *Error {
	return &Error{
		Code:      ErrResolution,
		Message:   fmt.Sprintf("unresolved reference: ${%s}", reference),
		Reference: reference,
	}
}

// NewExecutionError creates an Error for an executor-reported failure.
// Execution errors are retryable by default, subject to the task retry policy.
func NewExecutionError(message string) *Error {
	return &Error{Code: ErrExecution, Message: message, Retryable: true}
}

// NewTimeoutError creates an Error for a task that exceeded its timeout.
func NewTimeoutError(message string) *Error {
	return &Error{Code: ErrTimeout, Message: message, Retryable: true}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithTask attaches the owning task id.
func (e *Error) WithTask(taskID string) *Error {
	e.TaskID = taskID
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsDefinitionError reports whether err carries the DEFINITION_ERROR code.
func IsDefinitionError(err error) bool {
	return GetErrorCode(err) == ErrDefinition
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	return GetErrorCode(err) == ErrNotFound
}

// IsResolutionError reports whether err carries the RESOLUTION_ERROR code.
func IsResolutionError(err error) bool {
	return GetErrorCode(err) == ErrResolution
}

// IsTimeout reports whether err carries the TIMEOUT code.
func IsTimeout(err error) bool {
	return GetErrorCode(err) == ErrTimeout
}
