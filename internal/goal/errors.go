package goal

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation error")

// ValidationError reports a caller contract violation: a goal with a
// non-positive target, a non-finite progress value or an empty sample set.
// It is never produced by Extract.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the Goal invariants: a positive target, a known cadence and
// a non-empty category.
func (g Goal) Validate() error {
	if g.Target <= 0 {
		return invalid("target", "must be positive, got %d", g.Target)
	}
	if g.Type == "" {
		return invalid("type", "must not be empty")
	}
	if !g.Frequency.Valid() {
		return invalid("frequency", "unknown cadence %q", g.Frequency)
	}
	return nil
}
