// internal/repository/memory/store.go
package memory

import (
	"context"
	"sync"
	"time"

	xerrors "fluencr-service/internal/pkg/errors"
	"fluencr-service/internal/repository"
)

// Store keeps documents in process memory. Used for local development and tests.
type Store struct {
	mu   sync.Mutex
	docs map[string]repository.Document
	// last version of each deleted key
	tombstones map[string]int64
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		docs:       map[string]repository.Document{},
		tombstones: map[string]int64{},
		now:        time.Now,
	}
}

func (s *Store) Get(ctx context.Context, key string) (*repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[key]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	doc.Data = append([]byte(nil), doc.Data...)
	return &doc, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.docs[key]
	switch {
	case !ok && expectedVersion != 0:
		return 0, xerrors.ErrVersionConflict
	case ok && current.Version != expectedVersion:
		return 0, xerrors.ErrVersionConflict
	}

	next := expectedVersion + 1
	if !ok {
		next = s.tombstones[key] + 1
		delete(s.tombstones, key)
	}
	s.docs[key] = repository.Document{
		Key:       key,
		Data:      append([]byte(nil), data...),
		Version:   next,
		UpdatedAt: s.now().UTC(),
	}
	return next, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.docs[key]; ok {
		s.tombstones[key] = doc.Version
		delete(s.docs, key)
	}
	return nil
}
