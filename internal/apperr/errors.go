// Package apperr defines the error kinds shared by every ansuz surface.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("invalid criteria")
	ErrDateParse     = errors.New("unparseable date expression")
	ErrConfiguration = errors.New("invalid configuration")
)
