// Package apperr defines the error kinds shared by the clinic's domain
// services. Repositories translate storage failures into these kinds and
// handlers translate them into responses.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrNotAuthorized = errors.New("not authorized")
	ErrAlreadyUsed   = errors.New("already used")
)

// ValidationError collects per-field problems found in submitted input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidation returns an empty ValidationError ready for Add.
func NewValidation() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Validation returns a ValidationError with a single field message.
func Validation(field, msg string) error {
	v := NewValidation()
	v.Add(field, msg)
	return v
}

// Add records msg for field. The first message per field wins.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; ok {
		return
	}
	e.Fields[field] = msg
}

// Err returns e when it holds at least one field, nil otherwise.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// DuplicateError reports a unique constraint violation on Field.
type DuplicateError struct {
	Field string
}

// Duplicate returns a DuplicateError for field.
func Duplicate(field string) error {
	return &DuplicateError{Field: field}
}

func (e *DuplicateError) Error() string {
	if e.Field == "" {
		return ErrDuplicateKey.Error()
	}
	return fmt.Sprintf("duplicate %s", e.Field)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateKey }

// FieldErrors extracts per-field messages from err, if it carries any.
func FieldErrors(err error) map[string]string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Fields
	}
	var d *DuplicateError
	if errors.As(err, &d) && d.Field != "" {
		return map[string]string{d.Field: "already registered"}
	}
	return nil
}
