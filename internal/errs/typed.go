package errs

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError carries field-level detail for a rejected payload.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation: " + strings.Join(parts, ", ")
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StorageError tags a backend failure at the point of detection.
// It matches ErrStorage with errors.Is and unwraps to the driver error.
type StorageError struct {
	Op  string
	Err error
}

// Storage wraps err as a StorageError; nil stays nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

// Unwrap returns the underlying driver error.
func (e *StorageError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }
