package query

import (
	"fmt"

	"github.com/starford/ansuz/internal/apperr"
)

// ValidationError reports malformed structured criteria. Index is the
// offending criterion's position, or -1 when the document itself is
// malformed.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid criteria: %s", e.Reason)
	}
	if e.Field == "" {
		return fmt.Sprintf("invalid criterion %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid criterion %d: %s: %s", e.Index, e.Field, e.Reason)
}

// Is reports whether target is apperr.ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == apperr.ErrValidation }
