// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict means the row changed under a compare-and-swap update.
	ErrConflict = errors.New("conflicting update")

	// ErrStoreUnavailable is a transient credential store failure. It is never
	// reported as an authentication failure.
	ErrStoreUnavailable = errors.New("service currently unavailable")

	// Validation errors.
	ErrValidation = errors.New("validation error")

	// Token errors.
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenNotFound = errors.New("token not found")
)
