package checkout

import "fmt"

// ConfigurationError is fatal: the catalog is set up in a way that makes the
// current operation impossible (no resolvable price, no resolvable store,
// a referenced category that does not exist). It aborts the operation.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return e.Msg
}

func configErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// ValidationError is a single business-rule violation. Violations are
// collected and returned as a list, never raised, so a caller can show all
// problems at once.
type ValidationError struct {
	Attribute string `json:"attribute"`
	Message   string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Attribute, e.Message)
}
