package polyfill

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every ConfigError.
var ErrInvalidConfig = errors.New("invalid build config")

// ConfigError reports a BuildConfig that does not have the shape the
// override needs.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid build config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks the parts of cfg the override reads.
func Validate(cfg *BuildConfig) error {
	if cfg == nil {
		return &ConfigError{Field: "config", Reason: "missing"}
	}
	if cfg.Resolve == nil {
		return &ConfigError{Field: "resolve", Reason: "missing"}
	}
	for name, fb := range cfg.Resolve.Fallback {
		if !fb.Disabled && fb.Path == "" {
			return &ConfigError{Field: fmt.Sprintf("resolve.fallback[%q]", name), Reason: "empty path"}
		}
	}
	for i, p := range cfg.Plugins {
		if p == nil {
			return &ConfigError{Field: fmt.Sprintf("plugins[%d]", i), Reason: "nil plugin"}
		}
	}
	return nil
}
