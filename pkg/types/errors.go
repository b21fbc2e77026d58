// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the failure classes the pipeline distinguishes.
var (
	// ErrNetwork indicates a remote call failed after retries, or failed
	// with a status that is not worth retrying.
	ErrNetwork = errors.New("network failure")

	// ErrRateLimited indicates the remote service asked us to slow down.
	ErrRateLimited = errors.New("rate limited")

	// ErrParse indicates a response body could not be interpreted.
	ErrParse = errors.New("malformed response")

	// ErrConfiguration indicates invalid configuration.
	ErrConfiguration = errors.New("invalid configuration")
)

// NetworkError is returned when a remote operation cannot be completed.
type NetworkError struct {
	Op       string
	Attempts int
	Cause    error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Op, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetwork, e.Cause}
}

// RateLimitError is returned for HTTP 429, and for 503 carrying Retry-After.
type RateLimitError struct {
	Status     int
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (HTTP %d): retry after %s", e.Status, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited (HTTP %d)", e.Status)
}

// Unwrap returns the sentinel for use with errors.Is.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// StatusError is returned for a non-2xx response that is not a rate limit.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// Temporary reports whether the status indicates a transient server fault.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 && e.Code < 600
}

// ParseError describes a response that could not be decoded. ID is empty
// when the whole batch was unreadable.
type ParseError struct {
	Op    string
	ID    string
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: record %s: %v", e.Op, e.ID, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Cause}
}

// ConfigurationError reports an invalid configuration value.
type ConfigurationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Message
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Message)
}

// Unwrap returns the sentinel for use with errors.Is.
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
