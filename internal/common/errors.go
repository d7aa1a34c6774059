// Package common defines shared constants and sentinel errors used across
// towervault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Validation errors: constraint violations rejected synchronously
	// at write time. The offending write is never applied.
	ErrValidation = errors.New("validation error")

	// Service-level errors (generic/internal flow control).
	ErrInternal = errors.New("internal error")
)
