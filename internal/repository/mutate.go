// internal/repository/mutate.go
package repository

import (
	"context"
	"errors"
	"fmt"

	xerrors "fluencr-service/internal/pkg/errors"
)

// MutateFunc receives the current document (nil when absent) and returns
// the bytes to store. Returning nil bytes skips the write; returning an
// error aborts without writing.
type MutateFunc func(current *Document) ([]byte, error)

// Mutate runs a read-modify-write on key and retries the whole cycle when
// another writer got in first. onRetry, when set, is called before each retry.
func Mutate(ctx context.Context, store DocumentStore, key string, maxRetries int, fn MutateFunc, onRetry func(attempt int)) (int64, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 && onRetry != nil {
			onRetry(attempt)
		}

		current, err := store.Get(ctx, key)
		if err != nil && !errors.Is(err, xerrors.ErrNotFound) {
			return 0, err
		}

		data, err := fn(current)
		if err != nil {
			return 0, err
		}

		var expected int64
		if current != nil {
			expected = current.Version
		}
		if data == nil {
			return expected, nil
		}

		version, err := store.Put(ctx, key, data, expected)
		if err == nil {
			return version, nil
		}
		if !errors.Is(err, xerrors.ErrVersionConflict) {
			return 0, err
		}
		lastErr = err
	}
	return 0, fmt.Errorf("gave up on %s after %d attempts: %w", key, maxRetries, lastErr)
}
