package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeMissingInput   ErrorType = "MISSING_INPUT"
	ErrTypeSchemaMismatch ErrorType = "SCHEMA_MISMATCH"
	ErrTypeEmptyJoin      ErrorType = "EMPTY_JOIN"
	ErrTypeInvalidRecord  ErrorType = "INVALID_RECORD"
	ErrTypeConfig         ErrorType = "CONFIG"
	ErrTypeIO             ErrorType = "IO"
)

// Sentinels for errors.Is checks against an AppError of the same type
var (
	ErrMissingInput   = &AppError{Type: ErrTypeMissingInput, Message: "required input is missing"}
	ErrSchemaMismatch = &AppError{Type: ErrTypeSchemaMismatch, Message: "required field is missing"}
	ErrEmptyJoin      = &AppError{Type: ErrTypeEmptyJoin, Message: "no overlapping keys"}
	ErrConfig         = &AppError{Type: ErrTypeConfig, Message: "invalid configuration"}
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError of the same type
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewMissingInputError reports a dataset that could not be obtained
func NewMissingInputError(dataset, path string, cause error) *AppError {
	return NewAppError(ErrTypeMissingInput, fmt.Sprintf("%s input %s could not be read", dataset, path), cause).
		WithContext("dataset", dataset).
		WithContext("path", path)
}

// NewSchemaMismatchError reports required fields absent from an input record set
func NewSchemaMismatchError(dataset string, missing []string) *AppError {
	return NewAppError(ErrTypeSchemaMismatch, fmt.Sprintf("%s is missing required fields %v", dataset, missing), nil).
		WithContext("dataset", dataset).
		WithContext("missing", missing)
}

// NewEmptyJoinError reports a reconciliation join without any overlapping (group, month) pair
func NewEmptyJoinError(forecastKeys, planKeys int) *AppError {
	return NewAppError(ErrTypeEmptyJoin,
		fmt.Sprintf("no overlapping keys between %d forecast and %d plan pairs", forecastKeys, planKeys), nil).
		WithContext("forecast_keys", forecastKeys).
		WithContext("plan_keys", planKeys)
}

// NewInvalidRecordError reports a record that violates an entity invariant
func NewInvalidRecordError(message string, cause error) *AppError {
	return NewAppError(ErrTypeInvalidRecord, message, cause)
}

// NewConfigError reports an invalid configuration
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewIOError reports a failure writing an output dataset
func NewIOError(message string, cause error) *AppError {
	return NewAppError(ErrTypeIO, message, cause)
}

// TypeOf returns the ErrorType of the first AppError in the chain, or "" if there is none
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}
