package validation

import (
	"errors"
	"fmt"
)

// Kind classifies why a field value was rejected.
type Kind string

const (
	InvalidFormat Kind = "InvalidFormat"
	OutOfRange    Kind = "OutOfRange"
	InvalidEnum   Kind = "InvalidEnum"
	// Conflict is raised by the storage layer for uniqueness violations.
	Conflict Kind = "Conflict"
)

// Error reports a single rejected field.
type Error struct {
	Field   string `json:"field"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newError(field string, kind Kind, format string, args ...any) *Error {
	return &Error{Field: field, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewConflict builds the error returned when a unique field is already taken.
func NewConflict(field string) *Error {
	return newError(field, Conflict, "%s already exists", field)
}

// KindOf returns the kind of a validation error wrapped anywhere in err.
func KindOf(err error) (Kind, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries a validation error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
