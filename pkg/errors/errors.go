// Package errors provides custom error types for the cwemap system.
// These errors enable programmatic error checking with errors.Is and
// errors.As, and carry enough context to debug failed rebuilds and lookups.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the cwemap system
var (
	// ErrNotFound indicates that a requested group or entity was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrFetch indicates a network or transport failure while retrieving catalog data
	ErrFetch = errors.New("fetch failed")

	// ErrStorage indicates a disk read, write, or permission failure
	ErrStorage = errors.New("storage failure")

	// ErrParse indicates a malformed raw catalog or persisted record
	ErrParse = errors.New("parse failure")

	// ErrDanglingReference indicates a relationship edge pointing at an unknown id
	ErrDanglingReference = errors.New("dangling reference")

	// ErrNotInstalled indicates that no usable local store exists
	ErrNotInstalled = errors.New("catalog not installed")
)

// NotFoundError represents an error when a group or entity is not found
type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s with ID %s not found: %v", e.Resource, e.ID, e.Err)
	}
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Unwrap implements errors.Unwrap
func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// FetchError represents a failure to retrieve a remote resource
type FetchError struct {
	URL        string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch error from %s (status %d): %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fetch error from %s: %s", e.URL, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// NewFetchError creates a new FetchError
func NewFetchError(url string, statusCode int, message string) *FetchError {
	return &FetchError{
		URL:        url,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// DanglingReferenceError describes a membership edge whose target is not in
// the entity set. Indexing records these instead of failing.
type DanglingReferenceError struct {
	Owner  string // owner group, e.g. "category"
	ID     string // owner id
	Target string // missing target id
}

// Error implements the error interface
func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s %s references unknown id %s", e.Owner, e.ID, e.Target)
}

// Is implements errors.Is support
func (e *DanglingReferenceError) Is(target error) bool {
	return target == ErrDanglingReference
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "xml", "html", "zip"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete", "rename"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *IOError) Is(target error) bool {
	return target == ErrStorage
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "build", "load", "update", "delete", "fetch"
	Resource  string // "catalog", "store", "index", "entity"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsFetch checks if an error is a network or transport failure
func IsFetch(err error) bool {
	return errors.Is(err, ErrFetch)
}

// IsStorage checks if an error is a disk failure
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsParse checks if an error is a parse failure
func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsDanglingReference checks if an error is a dangling reference
func IsDanglingReference(err error) bool {
	return errors.Is(err, ErrDanglingReference)
}

// IsNotInstalled checks if an error reports a missing local store
func IsNotInstalled(err error) bool {
	return errors.Is(err, ErrNotInstalled)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   err.Error(),
		Err:       err,
	}
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapFetch wraps an error as a FetchError
func WrapFetch(url string, err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{
		URL:     url,
		Message: err.Error(),
		Err:     err,
	}
}
