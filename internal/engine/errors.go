package engine

import (
	"errors"
	"fmt"

	"github.com/example/ledger-engine/internal/money"
)

// Error kinds surfaced by the engine (spec §7), mirroring the
// sentinel/typed-error style of internal/wallet's ErrNotFound /
// ErrInsufficientFunds / ErrInvalidArgument.

// ValidationError wraps a request-shape problem: amount <= 0, user_id <= 0,
// unknown/inactive asset, missing idempotency key. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("engine: validation failed on %s: %s", e.Field, e.Reason)
}

// InsufficientFundsError is returned by SPEND when the source wallet's
// balance is below the requested amount.
type InsufficientFundsError struct {
	Balance  money.Money
	Required money.Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("engine: insufficient funds: balance=%s required=%s", e.Balance, e.Required)
}

// ConfigurationError signals a provisioning defect: a system wallet or
// asset type that should exist does not.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "engine: configuration error: " + e.Reason
}

// StorageError wraps an unexpected storage failure that was not one of the
// transient categories the engine retries internally.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return "engine: storage error: " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ErrTimeout is returned when the caller's context deadline elapses before
// the engine can commit.
var ErrTimeout = errors.New("engine: deadline exceeded before commit")
