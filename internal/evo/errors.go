package evo

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is matched by every configuration error reported before a
// run starts.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrUnevaluatedGenome is returned when selection meets a genome whose
// fitness was never computed from its current bits.
var ErrUnevaluatedGenome = errors.New("genome has not been evaluated")

// ConfigError reports a fatal misconfiguration of a run parameter.
type ConfigError struct {
	Field  string
	Reason string
	// Err is the underlying cause, if any.
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configError(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
