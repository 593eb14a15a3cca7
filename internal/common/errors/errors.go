// Package errors provides standardized error handling for the integrity engine.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfigurationUnavailable ErrorCode = "CONFIGURATION_UNAVAILABLE"
	ErrCodeCheckExecutionFailed     ErrorCode = "CHECK_EXECUTION_FAILED"

	ErrCodeFixNotAvailable       ErrorCode = "FIX_NOT_AVAILABLE"
	ErrCodeFixNotAuthorized      ErrorCode = "FIX_NOT_AUTHORIZED"
	ErrCodeTargetNotFound        ErrorCode = "TARGET_NOT_FOUND"
	ErrCodeCorrectionWriteFailed ErrorCode = "CORRECTION_WRITE_FAILED"

	ErrCodeInvalidRequest           ErrorCode = "INVALID_REQUEST"
	ErrCodeUnknownDivergenceType    ErrorCode = "UNKNOWN_DIVERGENCE_TYPE"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewConfigurationUnavailableError signals a grade configuration read failure.
// Never fatal: the resolver falls back to the built-in default structure.
func NewConfigurationUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigurationUnavailable,
		Message:   "Grade configuration could not be loaded, using built-in default",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCheckExecutionFailedError signals one detection check erroring out.
// The failed check is reported as zero-with-flag and never aborts the batch.
func NewCheckExecutionFailedError(checkType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCheckExecutionFailed,
		Message:   "Integrity check could not run",
		Details:   fmt.Sprintf("check: %s, error: %s", checkType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFixNotAvailableError is returned when no fix exists for the divergence type.
func NewFixNotAvailableError(divergenceType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFixNotAvailable,
		Message:   "No correction is available for this divergence type",
		Details:   fmt.Sprintf("type: %s", divergenceType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFixNotAuthorizedError is returned when an unattended correction is requested
// for a type that requires operator confirmation.
func NewFixNotAuthorizedError(divergenceType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFixNotAuthorized,
		Message:   "Correction requires operator confirmation",
		Details:   fmt.Sprintf("type: %s", divergenceType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTargetNotFoundError marks a correction target that no longer exhibits the
// violation. Callers report it as a no-op, not an error.
func NewTargetNotFoundError(entityKind string, id int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeTargetNotFound,
		Message:   "Correction target no longer exhibits the violation",
		Details:   fmt.Sprintf("%s: %d", entityKind, id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCorrectionWriteFailedError wraps a failed correction write for one target.
func NewCorrectionWriteFailedError(divergenceType string, id int64, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCorrectionWriteFailed,
		Message:   "Correction write failed",
		Details:   fmt.Sprintf("type: %s, target: %d, error: %s", divergenceType, id, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError marks a malformed or schema-invalid request payload.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request payload",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownDivergenceTypeError marks a request for a type absent from the catalog.
func NewUnknownDivergenceTypeError(divergenceType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownDivergenceType,
		Message:   "Unknown divergence type",
		Details:   fmt.Sprintf("type: %s", divergenceType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
