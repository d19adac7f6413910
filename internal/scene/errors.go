package scene

import (
	"errors"
	"fmt"
)

// ConfigurationError represents a fatal configuration problem, such as a
// setResource action naming a resource type no constructor was registered
// for. It indicates a deployment or wiring bug and must propagate to the
// caller; it is never retried.
type ConfigurationError struct {
	// ResourceType is the unrecognized discriminant.
	ResourceType string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.ResourceType != "" {
		return fmt.Sprintf("configuration: %s (resourceType=%s)", e.Message, e.ResourceType)
	}
	return fmt.Sprintf("configuration: %s", e.Message)
}

// InvariantError represents a caller-contract violation, such as
// dispatching undo or redo against an empty stack. The UI is expected to
// disable those actions; hitting this error is a bug in the caller, not a
// user-recoverable condition.
type InvariantError struct {
	// Op is the violated operation ("undo", "redo").
	Op string

	// Message describes the violated contract.
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant: %s: %s", e.Op, e.Message)
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsInvariantError reports whether err is an InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
