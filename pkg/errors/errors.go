// Package errors provides custom error types for the SIPI registry system.
// These errors enable programmatic error checking and carry enough context
// (source, element, status) to diagnose failed sync runs.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the registry system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrSourceUnavailable indicates that an upstream data source is temporarily unavailable
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrRateLimited indicates that the upstream API rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrUnresolvedPlace indicates that a place name could not be resolved to a bounding box
	ErrUnresolvedPlace = errors.New("place not resolved")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// AlreadyExistsError represents an error when a resource already exists
type AlreadyExistsError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with ID %s already exists", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(resource, id string) *AlreadyExistsError {
	return &AlreadyExistsError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
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
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents an error from an upstream HTTP API (Overpass, Nominatim).
// A fetch that fails with an APIError aborts the whole sync run.
type APIError struct {
	Source     string // upstream source name, e.g. "overpass"
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Source, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Source, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return target == ErrSourceUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(source string, statusCode int, message string) *APIError {
	return &APIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
	}
}

// GeocodeError represents a failure to resolve a named place to a bounding box
type GeocodeError struct {
	Place   string
	Message string
	Err     error
}

// Error implements the error interface
func (e *GeocodeError) Error() string {
	return fmt.Sprintf("geocode error for %q: %s", e.Place, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *GeocodeError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *GeocodeError) Is(target error) bool {
	return target == ErrUnresolvedPlace
}

// NewGeocodeError creates a new GeocodeError
func NewGeocodeError(place, message string, err error) *GeocodeError {
	return &GeocodeError{Place: place, Message: message, Err: err}
}

// SyncError represents an error during sync operations
type SyncError struct {
	Scope    string
	Elements []string // OSM ids of the affected elements, when known
	Err      error
}

// Error implements the error interface
func (e *SyncError) Error() string {
	if len(e.Elements) > 0 {
		return fmt.Sprintf("sync error for scope %s (affected elements: %v): %v", e.Scope, e.Elements, e.Err)
	}
	return fmt.Sprintf("sync error for scope %s: %v", e.Scope, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewSyncError creates a new SyncError
func NewSyncError(scope string, elements []string, err error) *SyncError {
	return &SyncError{Scope: scope, Elements: elements, Err: err}
}

// ElementError represents a failure while normalizing, deciding, or persisting
// a single upstream element. It is recoverable: the sync loop counts it and
// moves on to the next element.
type ElementError struct {
	OSMType string
	OSMID   int64
	Stage   string // "normalize", "decide", "persist"
	Err     error
}

// Error implements the error interface
func (e *ElementError) Error() string {
	return fmt.Sprintf("element %s/%d failed during %s: %v", e.OSMType, e.OSMID, e.Stage, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ElementError) Unwrap() error {
	return e.Err
}

// NewElementError creates a new ElementError
func NewElementError(osmType string, osmID int64, stage string, err error) *ElementError {
	return &ElementError{OSMType: osmType, OSMID: osmID, Stage: stage, Err: err}
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
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", etc.
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

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, File: file, Message: err.Error(), Err: err}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsSourceUnavailable checks if an error indicates upstream unavailability
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsUnresolvedPlace checks if an error is a place resolution failure
func IsUnresolvedPlace(err error) bool {
	return errors.Is(err, ErrUnresolvedPlace)
}
