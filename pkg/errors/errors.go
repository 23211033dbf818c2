package errors

import (
	"fmt"
	"strings"
)

// Locations a field error can point at.
const (
	LocationBody   = "body"
	LocationParams = "params"
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field    string `json:"field"`
	Location string `json:"location"`
	Message  string `json:"message"`
}

// ValidationError represents a validation failure with field-level details
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError creates a validation error for a single body field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Fields: []FieldError{{Field: field, Location: LocationBody, Message: message}},
	}
}

// NewValidationErrors creates a validation error from a list of field errors
func NewValidationErrors(fields []FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		messages = append(messages, fmt.Sprintf("%s %s", f.Field, f.Message))
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, ", "))
}

// PersistenceError is a database failure together with the statement that failed.
type PersistenceError struct {
	Message string
	SQL     string
	Err     error
}

// NewPersistenceError wraps a driver error and the SQL it was raised for
func NewPersistenceError(err error, sql string) *PersistenceError {
	msg := "unknown database error"
	if err != nil {
		msg = err.Error()
	}
	return &PersistenceError{
		Message: msg,
		SQL:     sql,
		Err:     err,
	}
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	if e.SQL != "" {
		return fmt.Sprintf("%s (sql: %s)", e.Message, e.SQL)
	}
	return e.Message
}

// Unwrap returns the wrapped driver error
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Resource)
}
