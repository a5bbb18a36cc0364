package registry

import (
	"fmt"
	"strings"

	"github.com/aretw0/continuum/pkg/core"
)

// ValidationError reports registry content that is structurally invalid.
type ValidationError struct {
	Problems []string
	// DuplicateID is set when the failure is a model id collision.
	DuplicateID string
}

func (e *ValidationError) Error() string {
	return "invalid registry: " + strings.Join(e.Problems, "; ")
}

// Is makes errors.Is(err, core.ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == core.ErrValidation
}

func duplicateModel(id string, first, second string) *ValidationError {
	return &ValidationError{
		Problems:    []string{fmt.Sprintf("duplicate model id %q (providers %q and %q)", id, first, second)},
		DuplicateID: id,
	}
}
