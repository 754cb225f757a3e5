// Package sync provides options and result types for sync runs. The
// orchestration itself lives in internal/sync; this package carries the
// public configuration surface and the run report.
package sync

import (
	"time"

	"github.com/suprameds/shopsync/pkg/constants"
	"github.com/suprameds/shopsync/pkg/errors"
)

// Options controls the orchestration of a single sync run.
type Options struct {
	// DryRun maps and resolves normally but only simulates upserts,
	// never mutating the destination.
	DryRun bool

	// Concurrency is the number of records allowed in the resolve and
	// upsert stages at once. 1 means strictly sequential processing.
	Concurrency int

	// Currency is the currency code attached to variant prices.
	Currency string

	// Timeout bounds the entire run. Zero means no timeout.
	Timeout time.Duration
}

// Defaults returns the default sync options.
func Defaults() *Options {
	return &Options{
		DryRun:      false,
		Concurrency: constants.DefaultConcurrency,
		Currency:    constants.DefaultCurrency,
		Timeout:     constants.SyncTimeout,
	}
}

// Option is a function that configures sync Options.
type Option func(*Options)

// Apply applies the given options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithDryRun enables dry-run mode.
func WithDryRun(dryRun bool) Option {
	return func(o *Options) { o.DryRun = dryRun }
}

// WithConcurrency sets the number of records in flight at once.
func WithConcurrency(n int) Option {
	return func(o *Options) { o.Concurrency = n }
}

// WithCurrency sets the variant price currency code.
func WithCurrency(code string) Option {
	return func(o *Options) { o.Currency = code }
}

// WithTimeout bounds the entire run.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// Validate checks if the sync options are valid.
func (o *Options) Validate() error {
	if o.Concurrency <= 0 {
		return &errors.ConfigError{Field: "concurrency", Message: "must be positive"}
	}
	if o.Concurrency > constants.MaxConcurrency {
		return &errors.ConfigError{Field: "concurrency", Message: "exceeds maximum"}
	}
	if o.Currency == "" {
		return &errors.ConfigError{Field: "currency", Message: "must not be empty"}
	}
	if o.Timeout < 0 {
		return &errors.ConfigError{Field: "timeout", Message: "must be non-negative"}
	}
	return nil
}
