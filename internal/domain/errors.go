package domain

import "fmt"

// ValidationError marks a malformed profile or signal. Per-item, non-fatal:
// the affected entry is rejected, the rest of the batch proceeds.
type ValidationError struct {
	Field   string
	Reason  string
	Index   int  // position within Field, meaningful only when Indexed
	Indexed bool // distinguishes signals[0] from a field-level fault
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Indexed {
		return fmt.Sprintf("validation: %s[%d]: %s", e.Field, e.Index, e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// ConfigError marks a malformed weight table or watch-list configuration.
// Fatal at startup: the process must not serve traffic.
type ConfigError struct {
	File   string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("config: %s: %s", e.File, e.Reason)
	}
	return fmt.Sprintf("config: %s", e.Reason)
}
