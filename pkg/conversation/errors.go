package conversation

import (
	"fmt"

	"github.com/aretw0/continuum/pkg/core"
)

// ValidationError reports a message or context that breaks the data model.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid conversation: " + e.Reason
	}
	return fmt.Sprintf("invalid conversation: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, core.ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == core.ErrValidation
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
