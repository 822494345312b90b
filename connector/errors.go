package connector

import (
	"fmt"
)

// ConfigurationError is returned for missing or contradictory configuration fields.
type ConfigurationError struct {
	Backend Backend
	Field   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s configuration: %s", e.Backend, e.Reason)
	}
	return fmt.Sprintf("invalid %s configuration: %s: %s", e.Backend, e.Field, e.Reason)
}

func NewConfigurationError(backend Backend, field, reason string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{
		Backend: backend,
		Field:   field,
		Reason:  fmt.Sprintf(reason, args...),
	}
}

// NotInitializedError is returned when the native configuration is requested
// before Initialize has been called and auto-initialization is disabled.
type NotInitializedError struct {
	Backend Backend
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("%s configuration is not initialized", e.Backend)
}
