package models

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a record does not exist or belongs to another owner.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned on a unique constraint violation.
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrValidation is matched by every FieldErrors value.
	ErrValidation = errors.New("validation failed")
)

// FieldErrors maps a request field to its problem.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (f FieldErrors) Is(target error) bool {
	return target == ErrValidation
}

// Err returns nil when f is empty.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return f
}
