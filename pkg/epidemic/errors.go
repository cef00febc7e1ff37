package epidemic

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("invalid configuration")
	ErrNumerical     = errors.New("numerical failure")
)

// ConfigurationError reports a parameter rejected before integration starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

func configError(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NumericalError reports a solver failure or a non-finite trajectory.
type NumericalError struct {
	Model Model
	Err   error
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("%s integration failed: %v", e.Model, e.Err)
}

func (e *NumericalError) Is(target error) bool {
	return target == ErrNumerical
}

func (e *NumericalError) Unwrap() error {
	return e.Err
}
