// Package errors provides custom error types for the shopsync engine.
// The taxonomy separates fatal failures (bad credentials, unreachable
// source) from per-record failures (invalid record, duplicate link,
// destination conflict) so the orchestrator can decide whether to abort
// the run or record the outcome and continue.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's tree matches target.
// It's an alias for the standard library errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's tree that matches target.
// It's an alias for the standard library errors.As for convenience.
var As = errors.As

// Common sentinel errors for the shopsync engine
var (
	// ErrSourceAuth indicates the source system rejected our credentials
	ErrSourceAuth = errors.New("source authentication failed")

	// ErrSourceUnavailable indicates the source system could not be reached
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSchema indicates a source record is missing an expected field
	ErrSchema = errors.New("source schema mismatch")

	// ErrInvalidRecord indicates a source record could not be normalized
	ErrInvalidRecord = errors.New("invalid record")

	// ErrDuplicateLink indicates more than one destination record claims
	// the same external identifier
	ErrDuplicateLink = errors.New("duplicate link")

	// ErrDestinationAuth indicates the destination rejected our credential
	ErrDestinationAuth = errors.New("destination authentication failed")

	// ErrDestinationUnavailable indicates the destination could not be
	// reached after retries were exhausted
	ErrDestinationUnavailable = errors.New("destination unavailable")

	// ErrConflict indicates the destination reported a uniqueness conflict
	// (handle or SKU already taken)
	ErrConflict = errors.New("destination conflict")

	// ErrRateLimited indicates the destination rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrCanceled indicates the run was canceled
	ErrCanceled = errors.New("run canceled")
)

// SourceError represents a failure talking to the source system as a whole,
// as opposed to a problem with an individual record.
type SourceError struct {
	Op       string // "authenticate", "search_read"
	Endpoint string
	Message  string
	Err      error
}

// Error implements the error interface
func (e *SourceError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("source %s failed against %s: %s", e.Op, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("source %s failed: %s", e.Op, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *SourceError) Is(target error) bool {
	if e.Op == "authenticate" {
		return target == ErrSourceAuth
	}
	return target == ErrSourceUnavailable
}

// NewSourceError creates a new SourceError
func NewSourceError(op, endpoint, message string, err error) *SourceError {
	return &SourceError{Op: op, Endpoint: endpoint, Message: message, Err: err}
}

// SchemaError represents a source record missing an expected field.
// It is a per-record failure and never aborts the run.
type SchemaError struct {
	ExternalID string
	Field      string
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	if e.ExternalID != "" {
		return fmt.Sprintf("source record %s missing expected field %q", e.ExternalID, e.Field)
	}
	return fmt.Sprintf("source record missing expected field %q", e.Field)
}

// Is implements errors.Is support
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// InvalidRecordError represents a source record that could not be
// normalized into an upsert payload (negative price, negative quantity,
// missing identifier). It is a per-record skip, not a run-aborting error.
type InvalidRecordError struct {
	ExternalID string
	Field      string
	Reason     string
}

// Error implements the error interface
func (e *InvalidRecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid record %s: field %s: %s", e.ExternalID, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid record %s: %s", e.ExternalID, e.Reason)
}

// Is implements errors.Is support
func (e *InvalidRecordError) Is(target error) bool {
	return target == ErrInvalidRecord
}

// NewInvalidRecordError creates a new InvalidRecordError
func NewInvalidRecordError(externalID, field, reason string) *InvalidRecordError {
	return &InvalidRecordError{ExternalID: externalID, Field: field, Reason: reason}
}

// DuplicateLinkError represents a data-integrity fault where more than one
// destination record carries the same external identifier in its metadata.
// The engine refuses to guess which record to update.
type DuplicateLinkError struct {
	ExternalID string
	ProductIDs []string
}

// Error implements the error interface
func (e *DuplicateLinkError) Error() string {
	return fmt.Sprintf("external id %s claimed by %d destination products: %s",
		e.ExternalID, len(e.ProductIDs), strings.Join(e.ProductIDs, ", "))
}

// Is implements errors.Is support
func (e *DuplicateLinkError) Is(target error) bool {
	return target == ErrDuplicateLink
}

// APIError represents an error response from the destination API.
type APIError struct {
	System     string // "source" or "destination"
	StatusCode int
	Endpoint   string
	Message    string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (status %d) at %s: %s", e.System, e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s API error at %s: %s", e.System, e.Endpoint, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support, mapping HTTP-style status semantics
// onto the sentinel taxonomy: 401 is an auth failure, 409 a uniqueness
// conflict, 429 a rate limit, and 5xx transient unavailability.
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == 401:
		if e.System == "source" {
			return target == ErrSourceAuth
		}
		return target == ErrDestinationAuth
	case e.StatusCode == 409:
		return target == ErrConflict
	case e.StatusCode == 429:
		return target == ErrRateLimited
	case e.StatusCode == 0, e.StatusCode >= 500:
		// Status 0 means the request never produced a response
		// (connection refused, timeout).
		if e.System == "source" {
			return target == ErrSourceUnavailable
		}
		return target == ErrDestinationUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(system string, statusCode int, endpoint, message string) *APIError {
	return &APIError{
		System:     system,
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsFatal reports whether an error should abort the whole run rather than
// be recorded against a single record. Bad credentials on either side and
// an unreachable source leave no useful way to continue.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSourceAuth) ||
		errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, ErrDestinationAuth)
}

// IsRetryable reports whether an error is worth retrying with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, ErrDestinationUnavailable)
}

// IsInvalidRecord checks if an error is a per-record normalization failure
func IsInvalidRecord(err error) bool {
	return errors.Is(err, ErrInvalidRecord)
}

// IsSchema checks if an error is a per-record schema mismatch
func IsSchema(err error) bool {
	return errors.Is(err, ErrSchema)
}

// IsDuplicateLink checks if an error is a duplicate link fault
func IsDuplicateLink(err error) bool {
	return errors.Is(err, ErrDuplicateLink)
}

// IsConflict checks if an error is a destination uniqueness conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}
