// internal/pkg/errors/error.go
package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict: resource already exists")
	ErrInternal     = errors.New("internal server error")
	ErrRateLimited  = errors.New("too many requests")
)

// Domain errors
var (
	ErrCorruptState      = errors.New("persisted state is corrupt")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrQuotaExhausted    = errors.New("usage quota exhausted")
	ErrInvalidStrength   = errors.New("relationship strength must be between 0 and 100")
)

// Persistence errors. ErrPersistenceTimeout wraps ErrPersistenceIO so callers
// that only care about "the store failed" can check the latter.
var (
	ErrPersistenceIO      = errors.New("persistence failure")
	ErrPersistenceTimeout = fmt.Errorf("persistence timeout: %w", ErrPersistenceIO)
	ErrVersionConflict    = errors.New("document version conflict")
)

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsPersistence reports whether err came from the document store.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistenceIO)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
