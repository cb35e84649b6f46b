package domain

import (
	"context"
	"errors"
	"fmt"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a transport failure or a non-success HTTP status.
type NetworkError struct {
	Op         string // Operation that failed (e.g., "coins", "coin_detail", "ohlc")
	StatusCode int    // HTTP status, 0 when the transport itself failed
	Err        error  // Underlying error
	Retriable  bool   // Whether retrying by hand makes sense
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// NewStatusError creates a network error for a non-success HTTP status.
// 429 and 5xx are marked retriable.
func NewStatusError(op string, status int, err error) *NetworkError {
	return &NetworkError{
		Op:         op,
		StatusCode: status,
		Err:        err,
		Retriable:  status == 429 || status >= 500,
	}
}

// CancellationError is returned when a request was cancelled on purpose
// (superseded or torn down). It is never shown to the user.
type CancellationError struct {
	Op    string
	Cause error
}

func (e *CancellationError) Error() string {
	return e.Op + ": cancelled"
}

func (e *CancellationError) Unwrap() error {
	return e.Cause
}

func (e *CancellationError) Is(target error) bool {
	return target == ErrCancelled
}

// IsCancellation reports whether err stems from a deliberate cancellation.
// Deadline expiry is a genuine failure and does not count.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// PersistenceReadError is produced when persisted state cannot be read back.
// Callers recover by falling back to an empty value.
type PersistenceReadError struct {
	Key string
	Err error
}

func (e *PersistenceReadError) Error() string {
	return "persistence read [" + e.Key + "]: " + e.Err.Error()
}

func (e *PersistenceReadError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrCancelled marks a request that was superseded or torn down.
	ErrCancelled = errors.New("request cancelled")

	// ErrNotFound is returned when the provider has no such coin.
	ErrNotFound = errors.New("not found")

	// ErrNoData is returned when the provider answered with an empty or unusable payload.
	ErrNoData = errors.New("no data available")

	// ErrUnexpectedStatus is wrapped by NetworkError for non-success responses.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrUnsupportedCurrency is returned for currencies outside the closed set.
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrInvalidCoin is returned when a coin violates the non-negative invariants.
	ErrInvalidCoin = errors.New("invalid coin")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
