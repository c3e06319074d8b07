package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeEntries represents failures fetching diary entries
	ErrorTypeEntries ErrorType = "entries"
	// ErrorTypeSession represents graph view session errors
	ErrorTypeSession ErrorType = "session"
	// ErrorTypeNavigation represents invalid drill or mode changes
	ErrorTypeNavigation ErrorType = "navigation"
	// ErrorTypeAnalysis represents LLM analysis errors
	ErrorTypeAnalysis ErrorType = "analysis"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Kind reports the error category. Promoted to every typed error below.
func (e *BaseError) Kind() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Entries Errors

// ErrEntriesFetchFailed is returned when an entry source cannot be read
type ErrEntriesFetchFailed struct {
	*BaseError
	UserID string
	Source string
}

func NewEntriesFetchFailed(source, userID string, err error) *ErrEntriesFetchFailed {
	return &ErrEntriesFetchFailed{
		BaseError: NewBaseError(ErrorTypeEntries, fmt.Sprintf("failed to fetch entries from %s for user %s", source, userID), err),
		UserID:    userID,
		Source:    source,
	}
}

// Session Errors

// ErrSessionNotFound is returned when a graph view session id is unknown or expired
type ErrSessionNotFound struct {
	*BaseError
	SessionID string
}

func NewSessionNotFound(sessionID string) *ErrSessionNotFound {
	return &ErrSessionNotFound{
		BaseError: NewBaseError(ErrorTypeSession, fmt.Sprintf("session not found: %s", sessionID), nil),
		SessionID: sessionID,
	}
}

// Navigation Errors

// ErrModeLocked is returned when the cluster mode is changed below the drill root
var ErrModeLocked = NewBaseError(ErrorTypeNavigation, "cluster mode can only be changed at the root of the drill path", nil)

// ErrNotDrillable is returned when a double-click target cannot be entered
type ErrNotDrillable struct {
	*BaseError
	NodeID string
	Reason string
}

func NewNotDrillable(nodeID, reason string) *ErrNotDrillable {
	return &ErrNotDrillable{
		BaseError: NewBaseError(ErrorTypeNavigation, fmt.Sprintf("cannot drill into %s: %s", nodeID, reason), nil),
		NodeID:    nodeID,
		Reason:    reason,
	}
}

// Analysis Errors

// ErrAnalysisFailed is returned when the LLM analysis request fails
type ErrAnalysisFailed struct {
	*BaseError
	Model     string
	Attempts  int
	Retryable bool
}

func NewAnalysisFailed(model string, attempts int, retryable bool, err error) *ErrAnalysisFailed {
	return &ErrAnalysisFailed{
		BaseError: NewBaseError(ErrorTypeAnalysis, fmt.Sprintf("analysis failed after %d attempts", attempts), err),
		Model:     model,
		Attempts:  attempts,
		Retryable: retryable,
	}
}

// ErrAnalysisEmpty is returned when the LLM returns no usable content
var ErrAnalysisEmpty = NewBaseError(ErrorTypeAnalysis, "no content in analysis response", nil)

// Context Errors

// ErrContextTimeout is returned when context times out
type ErrContextTimeout struct {
	*BaseError
	Operation string
	Timeout   time.Duration
}

func NewContextTimeout(operation string, timeout time.Duration) *ErrContextTimeout {
	return &ErrContextTimeout{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context timeout: %s (timeout: %v)", operation, timeout), nil),
		Operation: operation,
		Timeout:   timeout,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error, or any error it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if typed, ok := err.(interface{ Kind() ErrorType }); ok && typed.Kind() == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	var analysisErr *ErrAnalysisFailed
	if stderrors.As(err, &analysisErr) {
		return analysisErr.Retryable
	}
	// Entry sources are network backed
	return IsErrorType(err, ErrorTypeEntries)
}
