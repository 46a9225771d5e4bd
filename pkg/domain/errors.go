package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation is matched by every fault caused by invalid caller input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFoundSentinel is matched by every ErrNotFound value.
	ErrNotFoundSentinel = errors.New("not found")
)

// ErrNotFound is returned when an operation addresses a nonexistent record.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// Is lets errors.Is(err, ErrNotFoundSentinel) match any ErrNotFound.
func (e ErrNotFound) Is(target error) bool {
	return target == ErrNotFoundSentinel
}

// ValidationError reports the fields that failed validation, keyed by their wire name.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(fields map[string]string) ValidationError {
	return ValidationError{Fields: fields}
}

func (e ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}
