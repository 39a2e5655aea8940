package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no document has the requested id.
	ErrNotFound = errors.New("document not found")

	// ErrValidation is returned when a document does not fit its schema.
	ErrValidation = errors.New("document validation failed")

	// ErrIncompatibleSchema is returned when a model name is bound twice on
	// one connection with schemas that disagree.
	ErrIncompatibleSchema = errors.New("model already bound with a different schema")

	// ErrInvalidName is returned when a backend cannot store a model or
	// field under the given name.
	ErrInvalidName = errors.New("invalid model or field name")

	// ErrNoConnection is returned by Registry.Conn before Open.
	ErrNoConnection = errors.New("no default store connection")
)

// Duplicate-key codes reported by backends. Insert uses CodeDuplicateKey,
// Save uses CodeDuplicateKeyUpdate.
const (
	CodeDuplicateKey       = 11000
	CodeDuplicateKeyUpdate = 11001
)

// Error is a store failure carrying a numeric code.
type Error struct {
	Code  int
	Model string
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("E%d duplicate key on %s.%s: %v", e.Code, e.Model, e.Field, e.Err)
	}
	return fmt.Sprintf("E%d %s: %v", e.Code, e.Model, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsDuplicateKey reports whether err is a uniqueness violation.
func IsDuplicateKey(err error) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == CodeDuplicateKey || se.Code == CodeDuplicateKeyUpdate
}
