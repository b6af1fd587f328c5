// Package domain holds error kinds shared by the shop's domain packages.
package domain

import (
	"fmt"
	"strings"
)

// ValidationError reports malformed or missing input. No state is written
// when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid returns a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Required returns a ValidationError for the first blank value among pairs of
// (field name, value).
func Required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return Invalid(pairs[i], "is required")
		}
	}
	return nil
}
