package datexpr

import (
	"errors"
	"fmt"

	"github.com/starford/ansuz/internal/apperr"
)

var (
	errEmptyExpression = errors.New("empty expression")
	errInvertedRange   = errors.New("range start is after range end")
	errOutOfRange      = errors.New("date outside years 1 to 9999")
)

// DateParseError reports an expression that could not be resolved to an
// instant or a range. Field is empty when the error comes straight from the
// resolver; the query compiler fills it with the backend field name.
type DateParseError struct {
	Field      string
	Expression string
	Err        error
}

func (e *DateParseError) Error() string {
	msg := fmt.Sprintf("unable to parse date expression %q", e.Expression)
	if e.Field != "" {
		msg = fmt.Sprintf("invalid date expression for field %s: %q", e.Field, e.Expression)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DateParseError) Unwrap() error { return e.Err }

// Is reports whether target is apperr.ErrDateParse.
func (e *DateParseError) Is(target error) bool { return target == apperr.ErrDateParse }

// ConfigurationError reports an unusable reference instant.
type ConfigurationError struct {
	Value string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid reference instant: %v", e.Err)
	}
	return fmt.Sprintf("invalid reference instant %q: %v", e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is reports whether target is apperr.ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == apperr.ErrConfiguration }
