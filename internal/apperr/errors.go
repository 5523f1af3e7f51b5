// Package apperr defines the error taxonomy shared by the stores, the services and the
// HTTP layer. Callers match with errors.Is against the sentinels below.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")

	// Authentication failures all satisfy errors.Is(err, ErrUnauthorized).
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrTokenInvalid       = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrTokenExpired       = fmt.Errorf("%w: token expired", ErrUnauthorized)
)

func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func Conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}

func Forbidden(msg string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, msg)
}

// NotFound names the missing entity, e.g. NotFound("tweet").
func NotFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

// Internal wraps a storage or infrastructure failure. The cause is kept for logging
// and unwrapping but is never shown to clients.
func Internal(err error, op string) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}

func IsValidation(err error) bool   { return errors.Is(err, ErrValidation) }
func IsConflict(err error) bool     { return errors.Is(err, ErrConflict) }
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
func IsForbidden(err error) bool    { return errors.Is(err, ErrForbidden) }
func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
