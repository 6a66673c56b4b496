// internal/repository/timeout.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	xerrors "fluencr-service/internal/pkg/errors"
)

// TimeoutStore bounds every call to the wrapped store and normalises its
// failures: deadlines become ErrPersistenceTimeout and any other backend
// error is wrapped in ErrPersistenceIO. Not-found and version conflicts pass
// through untouched.
type TimeoutStore struct {
	inner   DocumentStore
	timeout time.Duration
}

func WithTimeout(inner DocumentStore, timeout time.Duration) *TimeoutStore {
	return &TimeoutStore{inner: inner, timeout: timeout}
}

func (s *TimeoutStore) Get(ctx context.Context, key string) (*Document, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	doc, err := s.inner.Get(ctx, key)
	return doc, classify(ctx, "get", key, err)
}

func (s *TimeoutStore) Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	v, err := s.inner.Put(ctx, key, data, expectedVersion)
	return v, classify(ctx, "put", key, err)
}

func (s *TimeoutStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	return classify(ctx, "delete", key, s.inner.Delete(ctx, key))
}

func (s *TimeoutStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func classify(ctx context.Context, op, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, xerrors.ErrNotFound), errors.Is(err, xerrors.ErrVersionConflict),
		errors.Is(err, xerrors.ErrPersistenceIO):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%s %s: %w", op, key, xerrors.ErrPersistenceTimeout)
	}
	return fmt.Errorf("%s %s: %w: %v", op, key, xerrors.ErrPersistenceIO, err)
}
