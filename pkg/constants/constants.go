// Package constants provides shared constants used throughout the shopsync
// codebase. This includes timeouts, retry policy, pagination defaults, and
// other configuration values that should be consistent across the engine.
package constants

import "time"

// Timeout constants define various timeout durations used by the engine
const (
	// DefaultHTTPTimeout is the standard timeout for a single HTTP request
	// to either the source or the destination system
	DefaultHTTPTimeout = 30 * time.Second

	// SyncTimeout is the default timeout for an entire sync run
	SyncTimeout = 30 * time.Minute

	// CheckTimeout is the timeout for connectivity checks
	CheckTimeout = 1 * time.Minute
)

// Retry constants define the backoff policy for transient failures
const (
	// MaxRetries is the maximum number of retry attempts for a request
	// that failed with a retryable error (network failure, 429, 5xx)
	MaxRetries = 3

	// RetryBackoff is the base backoff duration between retries; each
	// attempt doubles it, with jitter added on top
	RetryBackoff = 1 * time.Second

	// MaxRetryBackoff is the ceiling for a single backoff sleep
	MaxRetryBackoff = 30 * time.Second
)

// Pagination and throughput constants
const (
	// DefaultPageSize is the number of source records requested per page.
	// Odoo-style backends cap search_read pages around this size.
	DefaultPageSize = 80

	// DefaultConcurrency is the number of records in flight at once.
	// Sequential by default: one record flows through map, resolve and
	// upsert before the next begins.
	DefaultConcurrency = 1

	// MaxConcurrency caps the worker pool so a misconfigured run cannot
	// storm the destination's rate limit
	MaxConcurrency = 16

	// DestinationRequestsPerSecond is the default admission rate for
	// destination requests
	DestinationRequestsPerSecond = 10
)

// Destination payload constants
const (
	// DefaultCurrency is the currency code used for variant prices when
	// the configuration does not specify one
	DefaultCurrency = "inr"

	// ExternalIDKey is the destination metadata key carrying the source
	// system's external identifier
	ExternalIDKey = "external_id"
)

// File permission constants define standard Unix file permissions
const (
	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)
