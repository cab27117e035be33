package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeStore represents failures talking to the graph document store
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeInput represents caller contract violations (bad ids, malformed replacements)
	ErrorTypeInput ErrorType = "input"
	// ErrorTypeConflict represents a stale write against a newer stored document
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeTool represents tool execution errors
	ErrorTypeTool ErrorType = "tool"
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

// ErrType reports the error category. Typed errors embedding *BaseError inherit it.
func (e *BaseError) ErrType() ErrorType {
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

// Store Errors

// ErrStoreOperationFailed is returned when a backend read or write fails
type ErrStoreOperationFailed struct {
	*BaseError
	Op  string
	Key string
}

func NewStoreOperationFailed(op, key string, err error) *ErrStoreOperationFailed {
	return &ErrStoreOperationFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("store %s failed for %s", op, key), err),
		Op:        op,
		Key:       key,
	}
}

// ErrConflict is returned when a put carries a version token that is no longer current.
// The write was not applied.
type ErrConflict struct {
	*BaseError
	Key             string
	ExpectedVersion string
}

func NewConflict(key, expectedVersion string) *ErrConflict {
	return &ErrConflict{
		BaseError:       NewBaseError(ErrorTypeConflict, fmt.Sprintf("document %s changed since it was read", key), nil),
		Key:             key,
		ExpectedVersion: expectedVersion,
	}
}

// Input Errors

// ErrInvalidInput is returned when a caller-supplied argument is unusable
type ErrInvalidInput struct {
	*BaseError
	Field  string
	Reason string
}

func NewInvalidInput(field, reason string) *ErrInvalidInput {
	return &ErrInvalidInput{
		BaseError: NewBaseError(ErrorTypeInput, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrMalformedReplacement is returned when a replacement subgraph cannot be merged as a whole
type ErrMalformedReplacement struct {
	*BaseError
	EntityID string
	Reason   string
}

func NewMalformedReplacement(entityID, reason string) *ErrMalformedReplacement {
	return &ErrMalformedReplacement{
		BaseError: NewBaseError(ErrorTypeInput, fmt.Sprintf("malformed replacement: %s", reason), nil),
		EntityID:  entityID,
		Reason:    reason,
	}
}

// ErrPartialResponse is returned when an in-progress model output is offered for merging
var ErrPartialResponse = NewBaseError(ErrorTypeInput, "partial model output cannot be merged", nil)

// Tool Errors

// ErrToolExecutionFailed is returned when tool execution fails
type ErrToolExecutionFailed struct {
	*BaseError
	ToolName string
	Reason   string
}

func NewToolExecutionFailed(toolName, reason string, err error) *ErrToolExecutionFailed {
	return &ErrToolExecutionFailed{
		BaseError: NewBaseError(ErrorTypeTool, fmt.Sprintf("tool execution failed: %s", toolName), err),
		ToolName:  toolName,
		Reason:    reason,
	}
}

// ErrToolNotFound is returned when a requested tool is not found
type ErrToolNotFound struct {
	*BaseError
	ToolName string
}

func NewToolNotFound(toolName string) *ErrToolNotFound {
	return &ErrToolNotFound{
		BaseError: NewBaseError(ErrorTypeTool, fmt.Sprintf("tool not found: %s", toolName), nil),
		ToolName:  toolName,
	}
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// Helper functions

type typed interface {
	ErrType() ErrorType
}

// IsErrorType checks if an error, or any error it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		var t typed
		if !stderrors.As(err, &t) {
			return false
		}
		if t.ErrType() == errType {
			return true
		}
		// Keep looking below the first typed error in the chain
		unwrapper, ok := t.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// IsConflict reports whether err is a stale-version write rejection
func IsConflict(err error) bool {
	return IsErrorType(err, ErrorTypeConflict)
}

// IsInput reports whether err is a caller contract violation
func IsInput(err error) bool {
	return IsErrorType(err, ErrorTypeInput)
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	// A conflict needs a fresh extraction, replaying the same write cannot succeed
	if IsConflict(err) || IsInput(err) {
		return false
	}
	// Store errors are usually transient backend trouble
	if IsErrorType(err, ErrorTypeStore) {
		return true
	}
	return false
}
