// internal/repository/redisstore/store.go
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	xerrors "fluencr-service/internal/pkg/errors"
	"fluencr-service/internal/repository"

	"github.com/redis/go-redis/v9"
)

const (
	fieldData      = "data"
	fieldVersion   = "version"
	fieldUpdatedAt = "updated_at"
	fieldDeleted   = "deleted"
)

// Store keeps each document in a Redis hash and implements compare-and-swap
// with WATCH/MULTI on the document key. Delete leaves a tombstone holding the
// last version so a recreated document never reuses an old version.
type Store struct {
	client redis.UniversalClient
}

func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, key string) (*repository.Document, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if len(fields) == 0 || fields[fieldDeleted] != "" {
		return nil, xerrors.ErrNotFound
	}
	return decode(key, fields)
}

func (s *Store) Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	next := expectedVersion + 1

	txf := func(tx *redis.Tx) error {
		vals, err := tx.HMGet(ctx, key, fieldVersion, fieldDeleted).Result()
		if err != nil {
			return fmt.Errorf("failed to read version of %s: %w", key, err)
		}

		var current int64
		if v, ok := vals[0].(string); ok {
			if current, err = strconv.ParseInt(v, 10, 64); err != nil {
				return fmt.Errorf("%w: bad version on %s", xerrors.ErrPersistenceIO, key)
			}
		}
		deleted := vals[1] != nil

		switch {
		case deleted && expectedVersion != 0:
			return xerrors.ErrVersionConflict
		case deleted:
			next = current + 1
		case current != expectedVersion:
			return xerrors.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldData, data,
				fieldVersion, next,
				fieldUpdatedAt, time.Now().UTC().Format(time.RFC3339Nano),
			)
			pipe.HDel(ctx, key, fieldDeleted)
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, xerrors.ErrVersionConflict):
		return 0, xerrors.ErrVersionConflict
	}
	return 0, fmt.Errorf("failed to write %s: %w", key, err)
}

// Delete drops the data and marks the hash deleted, keeping its version.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, key, fieldData)
		pipe.HSet(ctx, key,
			fieldDeleted, "1",
			fieldUpdatedAt, time.Now().UTC().Format(time.RFC3339Nano),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func decode(key string, fields map[string]string) (*repository.Document, error) {
	version, err := strconv.ParseInt(fields[fieldVersion], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad version on %s", xerrors.ErrPersistenceIO, key)
	}
	doc := &repository.Document{
		Key:     key,
		Data:    []byte(fields[fieldData]),
		Version: version,
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt]); err == nil {
		doc.UpdatedAt = ts
	}
	return doc, nil
}
