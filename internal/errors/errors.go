// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrMissingDSN          = errors.New("database DSN not configured")
	ErrInvalidMode         = errors.New("invalid trading mode")
	ErrCheckpointNotFound  = errors.New("checkpoint not found")
	ErrCheckpointInvalid   = errors.New("checkpoint failed validation")
	ErrCheckpointDuplicate = errors.New("checkpoint sequence already exists")
	ErrLiveNotImplemented  = errors.New("live trading not implemented")
	ErrTradingHalted       = errors.New("trading halted by emergency stop")
	ErrCircuitCooldown     = errors.New("circuit breaker cooling down")
	ErrEmptyAssetUniverse  = errors.New("asset universe is empty")
	ErrDatabaseError       = errors.New("database error")
)

// ConfigError represents a fatal configuration error. It aborts the run
// before any signal is processed.
type ConfigError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfigInvalid
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field string, value interface{}, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// PersistenceError represents a failed write or query against the
// persistence gateway. A single persistence failure never aborts the run
// and never touches the ledger.
type PersistenceError struct {
	Op    string // e.g. "insert_prediction"
	Table string
	Err   error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("persistence error [%s] %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("persistence error [%s] %s", e.Op, e.Table)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(op, table string, err error) *PersistenceError {
	return &PersistenceError{
		Op:    op,
		Table: table,
		Err:   err,
	}
}

// ValidationError represents a structural or invariant violation, most
// commonly on a checkpoint under validation.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// GeneratorError represents a failure to produce a valid signal. The
// affected prediction slot is skipped; the loop continues.
type GeneratorError struct {
	Reason string
	Err    error
}

func (e *GeneratorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generator error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("generator error: %s", e.Reason)
}

func (e *GeneratorError) Unwrap() error {
	return e.Err
}

// NewGeneratorError creates a new GeneratorError.
func NewGeneratorError(reason string, err error) *GeneratorError {
	return &GeneratorError{
		Reason: reason,
		Err:    err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
