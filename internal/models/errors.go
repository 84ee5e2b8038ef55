package models

import (
	"errors"
	"fmt"
)

// ErrValidation marks malformed input rejected at the write boundary.
var ErrValidation = errors.New("validation failed")

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
